package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issueToken 为用户签发 HS256 会话令牌，Subject 为十进制用户 ID。
func (h *Handler) issueToken(userID uint) (string, error) {
	if len(h.jwtSecret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
