package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shashank-upadhya/notes/internal/model"
	"github.com/shashank-upadhya/notes/internal/pkg/metrics"
	"github.com/shashank-upadhya/notes/internal/pkg/notify"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 稳定的机器可读错误码，随 message 一起返回。
const (
	codeValidation   = "validation_error"
	codeConflict     = "conflict"
	codeNotFound     = "not_found"
	codeInvalidOtp   = "invalid_otp"
	codeOtpExpired   = "otp_expired"
	codeUnauthorized = "unauthorized"
	codeDelivery     = "delivery_error"
	codeServerError  = "server_error"
)

// Handler 提供注册、验证与登录接口。
type Handler struct {
	store     UserStore
	mailer    notify.Sender
	verifier  IdentityVerifier
	jwtSecret []byte
	tokenTTL  time.Duration
	otpTTL    time.Duration
	logger    *slog.Logger
}

// NewHandler 创建 Auth Handler。
//
// verifier 为 nil 表示 Google 登录未配置，对应接口返回 500。
func NewHandler(store UserStore, mailer notify.Sender, verifier IdentityVerifier, jwtSecret string, tokenTTL, otpTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		mailer:    mailer,
		verifier:  verifier,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		otpTTL:    otpTTL,
		logger:    logger,
	}
}

type signupRequest struct {
	Name        string `json:"name" binding:"required"`
	DateOfBirth string `json:"dateOfBirth" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
}

type verifyOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
	Otp   string `json:"otp" binding:"required,len=6,numeric"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type googleLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

type generateOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"message": message, "code": code})
}

func userPayload(user *model.User) gin.H {
	return gin.H{"id": user.ID, "email": user.Email, "name": user.Name}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// parseDateOfBirth 解析 ISO 8601 出生日期（日期或完整时间戳）。
func parseDateOfBirth(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Signup 创建或更新未验证用户并发送验证码。
//
// POST /api/auth/signup
//
// 已验证的邮箱返回 409；未验证的邮箱覆盖资料并重发验证码（旧码作废）。
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	dateOfBirth, err := parseDateOfBirth(req.DateOfBirth)
	if err != nil {
		fail(c, http.StatusBadRequest, codeValidation, "dateOfBirth must be a valid ISO date.")
		return
	}
	email := normalizeEmail(req.Email)

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusInternalServerError, codeServerError, "Server error during signup.")
		return
	}
	if user != nil && user.IsVerified {
		fail(c, http.StatusConflict, codeConflict, "User with this email already exists.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, codeServerError, "Server error during signup.")
		return
	}

	if user == nil {
		user = &model.User{Email: email}
	}
	user.Name = req.Name
	user.DateOfBirth = dateOfBirth
	user.Password = string(hash)

	if err := h.issueOtp(c.Request.Context(), user); err != nil {
		if errors.Is(err, ErrDelivery) {
			// 挑战已持久化；重新注册或重新请求验证码即可恢复
			fail(c, http.StatusInternalServerError, codeDelivery, "Server error during signup.")
			return
		}
		fail(c, http.StatusInternalServerError, codeServerError, "Server error during signup.")
		return
	}

	metrics.SignupTotal.Inc()
	if h.logger != nil {
		h.logger.Info("signup otp sent", slog.String("email", email))
	}
	c.JSON(http.StatusCreated, gin.H{"message": "OTP sent to your email. Please verify."})
}

// VerifyOtp 校验注册验证码并签发会话令牌。
//
// POST /api/auth/verify-otp
func (h *Handler) VerifyOtp(c *gin.Context) {
	var req verifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	email := normalizeEmail(req.Email)

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, codeNotFound, "User not found.")
			return
		}
		fail(c, http.StatusInternalServerError, codeServerError, "Server error during OTP verification.")
		return
	}

	if !h.checkOtp(c, user, req.Otp) {
		return
	}

	// 条件更新：只有挑战码仍然匹配时才消费并置为已验证
	ok, err := h.store.ConsumeOtp(c.Request.Context(), user.ID, req.Otp, true)
	if err != nil {
		fail(c, http.StatusInternalServerError, codeServerError, "Server error during OTP verification.")
		return
	}
	if !ok {
		metrics.OtpVerifyFailedTotal.Inc()
		fail(c, http.StatusBadRequest, codeInvalidOtp, "Invalid OTP.")
		return
	}

	token, err := h.issueToken(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, codeServerError, "Server error during OTP verification.")
		return
	}

	if h.logger != nil {
		h.logger.Info("account verified", slog.String("email", email))
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Account verified successfully!",
		"token":   token,
		"user":    userPayload(user),
	})
}

// Login 校验邮箱密码并签发会话令牌。
//
// POST /api/auth/login
//
// 用户不存在、无密码、未验证与密码错误统一折叠为 401，避免账号枚举。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	email := normalizeEmail(req.Email)

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil || user.Password == "" || !user.IsVerified {
		fail(c, http.StatusUnauthorized, codeUnauthorized, "Invalid credentials or user not verified.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		fail(c, http.StatusUnauthorized, codeUnauthorized, "Invalid credentials.")
		return
	}

	token, err := h.issueToken(user.ID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		fail(c, http.StatusInternalServerError, codeServerError, "Server error during login.")
		return
	}

	metrics.LoginTotal.WithLabelValues("password").Inc()
	if h.logger != nil {
		h.logger.Info("user logged in", slog.String("email", email))
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully!",
		"token":   token,
		"user":    userPayload(user),
	})
}

// GenerateLoginOtp 为已验证用户签发登录验证码。
//
// POST /api/auth/generate-login-otp
func (h *Handler) GenerateLoginOtp(c *gin.Context) {
	var req generateOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	email := normalizeEmail(req.Email)

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil || !user.IsVerified {
		fail(c, http.StatusNotFound, codeNotFound, "No verified user found with this email.")
		return
	}

	if err := h.issueOtp(c.Request.Context(), user); err != nil {
		if errors.Is(err, ErrDelivery) {
			fail(c, http.StatusInternalServerError, codeDelivery, "Server error.")
			return
		}
		fail(c, http.StatusInternalServerError, codeServerError, "Server error.")
		return
	}

	if h.logger != nil {
		h.logger.Info("login otp sent", slog.String("email", email))
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP has been sent to your email."})
}

// LoginWithOtp 通过验证码免密登录。
//
// POST /api/auth/login-with-otp
//
// 未验证用户统一按"无已验证用户"处理，防止注册验证码绕过验证直接换取会话。
func (h *Handler) LoginWithOtp(c *gin.Context) {
	var req verifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	email := normalizeEmail(req.Email)

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, codeNotFound, "User not found.")
			return
		}
		fail(c, http.StatusInternalServerError, codeServerError, "Server error.")
		return
	}
	if !user.IsVerified {
		fail(c, http.StatusNotFound, codeNotFound, "No verified user found with this email.")
		return
	}

	if !h.checkOtp(c, user, req.Otp) {
		return
	}

	ok, err := h.store.ConsumeOtp(c.Request.Context(), user.ID, req.Otp, false)
	if err != nil {
		fail(c, http.StatusInternalServerError, codeServerError, "Server error.")
		return
	}
	if !ok {
		metrics.OtpVerifyFailedTotal.Inc()
		fail(c, http.StatusBadRequest, codeInvalidOtp, "Invalid OTP.")
		return
	}

	token, err := h.issueToken(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, codeServerError, "Server error.")
		return
	}

	metrics.LoginTotal.WithLabelValues("otp").Inc()
	if h.logger != nil {
		h.logger.Info("user logged in with otp", slog.String("email", email))
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully!",
		"token":   token,
		"user":    userPayload(user),
	})
}

// GoogleLogin 通过 Google ID Token 登录。
//
// POST /api/auth/google
//
// 查找顺序: googleId → email（为既有密码账号绑定 googleId）→ 新建已验证用户。
func (h *Handler) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if h.verifier == nil {
		fail(c, http.StatusInternalServerError, codeServerError, "Server configuration error.")
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("google token verification failed", slog.String("error", err.Error()))
		}
		fail(c, http.StatusBadRequest, codeValidation, "Invalid Google token.")
		return
	}
	email := normalizeEmail(identity.Email)

	user, err := h.store.FindByGoogleID(c.Request.Context(), identity.GoogleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusInternalServerError, codeServerError, "Google authentication failed.")
		return
	}
	if user == nil {
		user, err = h.store.FindByEmail(c.Request.Context(), email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusInternalServerError, codeServerError, "Google authentication failed.")
			return
		}
		if user != nil {
			user.GoogleID = identity.GoogleID
		} else {
			user = &model.User{
				Name:        identity.Name,
				Email:       email,
				GoogleID:    identity.GoogleID,
				IsVerified:  true,
				DateOfBirth: time.Unix(0, 0), // 联邦账号无出生日期，用纪元占位
			}
		}
		if err := h.store.Save(c.Request.Context(), user); err != nil {
			fail(c, http.StatusInternalServerError, codeServerError, "Google authentication failed.")
			return
		}
	}

	token, err := h.issueToken(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, codeServerError, "Google authentication failed.")
		return
	}

	metrics.LoginTotal.WithLabelValues("google").Inc()
	if h.logger != nil {
		h.logger.Info("google login", slog.String("email", email))
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Google login successful!",
		"token":   token,
		"user":    userPayload(user),
	})
}

// checkOtp 执行只读的 OTP 校验并负责失败响应；通过返回 true。
func (h *Handler) checkOtp(c *gin.Context, user *model.User, supplied string) bool {
	switch err := validateOtp(user, supplied, time.Now()); {
	case err == nil:
		return true
	case errors.Is(err, ErrOtpExpired):
		metrics.OtpVerifyFailedTotal.Inc()
		fail(c, http.StatusBadRequest, codeOtpExpired, "OTP has expired.")
	default:
		// ErrOtpNotFound 与 ErrOtpInvalid 对外同为 "Invalid OTP."
		metrics.OtpVerifyFailedTotal.Inc()
		fail(c, http.StatusBadRequest, codeInvalidOtp, "Invalid OTP.")
	}
	return false
}
