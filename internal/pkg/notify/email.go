package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shashank-upadhya/notes/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现基于 SMTP 的验证码邮件发送。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendOtpEmail 发送邮箱验证码。
func (n *EmailNotifier) SendOtpEmail(toEmail string, code string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your OTP Code for Note-Taking App")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome to the Note-Taking App!</h2>
    <p>Your One-Time Password (OTP) for account verification is:</p>
    <div style="font-size: 24px; font-weight: bold; letter-spacing: 2px; color: #007BFF;">%s</div>
    <p>This code will expire in 10 minutes.</p>
    <p>If you did not request this, please ignore this email.</p>
  </div>
</body>
</html>`, code)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("otp email sent", slog.String("to", toEmail))
	}
	return nil
}
