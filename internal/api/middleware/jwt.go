package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/shashank-upadhya/notes/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserFinder 将令牌中的用户 ID 解析为存活的用户记录。
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// AuthMiddleware 校验 Bearer JWT，解析出存活用户并将 userID 写入上下文。
//
// 令牌缺失、格式错误、签名无效、过期、用户已不存在——全部折叠为 401，
// 不区分具体原因。
func AuthMiddleware(jwtSecret string, users UserFinder) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Not authorized, no token provided")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "Not authorized, no token provided")
			return
		}

		tokenStr := parts[1]
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			unauthorized(c, "Not authorized, token failed")
			return
		}

		uid, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			unauthorized(c, "Not authorized, token failed")
			return
		}

		user, err := users.FindByID(c.Request.Context(), uint(uid))
		if err != nil || user == nil {
			unauthorized(c, "Not authorized, user not found")
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"message": message, "code": "unauthorized"})
	c.Abort()
}

// UserID returns the authenticated user ID stashed by AuthMiddleware.
func UserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
