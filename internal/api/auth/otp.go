package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/shashank-upadhya/notes/internal/model"
	"github.com/shashank-upadhya/notes/internal/pkg/metrics"
)

// OTP 校验错误。
var (
	ErrOtpNotFound = errors.New("no otp challenge outstanding")
	ErrOtpInvalid  = errors.New("otp mismatch")
	ErrOtpExpired  = errors.New("otp expired")

	// ErrDelivery 表示挑战已持久化但验证码邮件发送失败。
	ErrDelivery = errors.New("otp delivery failed")
)

const otpLength = 6

// generateOtp 生成 6 位数字验证码，在 [100000, 999999] 上均匀分布。
func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// validateOtp 校验用户提交的验证码，无副作用；消费由调用方负责。
func validateOtp(user *model.User, supplied string, now time.Time) error {
	code, expiresAt, ok := user.OtpChallenge()
	if !ok {
		return ErrOtpNotFound
	}
	// 明文相等比较，与原有语义一致（非常量时间）
	if code != supplied {
		return ErrOtpInvalid
	}
	if now.After(expiresAt) {
		return ErrOtpExpired
	}
	return nil
}

// issueOtp 为用户签发新的 OTP 挑战并发送邮件。
//
// 新挑战覆盖旧挑战。邮件发送失败时返回 ErrDelivery，
// 此时挑战已持久化，不回滚；用户重新触发签发即可恢复。
func (h *Handler) issueOtp(ctx context.Context, user *model.User) error {
	code, err := generateOtp()
	if err != nil {
		return err
	}
	user.SetOtpChallenge(code, time.Now().Add(h.otpTTL))

	if err := h.store.Save(ctx, user); err != nil {
		if h.logger != nil {
			h.logger.Error("save otp challenge failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		}
		return fmt.Errorf("save otp challenge: %w", err)
	}
	metrics.OtpIssuedTotal.Inc()

	if h.mailer == nil {
		return fmt.Errorf("%w: email notifier not configured", ErrDelivery)
	}
	if err := h.mailer.SendOtpEmail(user.Email, code); err != nil {
		if h.logger != nil {
			h.logger.Warn("send otp email failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		}
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
