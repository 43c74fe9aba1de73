package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// SignupTotal 注册请求成功计数。
	SignupTotal prometheus.Counter
	// OtpIssuedTotal 发放的 OTP 数量。
	OtpIssuedTotal prometheus.Counter
	// OtpVerifyFailedTotal OTP 校验失败计数（错误码/过期）。
	OtpVerifyFailedTotal prometheus.Counter
	// LoginTotal 按方式统计的登录成功数 (password / otp / google)。
	LoginTotal *prometheus.CounterVec
	// NoteCreatedTotal 创建的笔记数。
	NoteCreatedTotal prometheus.Counter
	// NoteDeletedTotal 删除的笔记数。
	NoteDeletedTotal prometheus.Counter
)

// InitMetrics 初始化 Prometheus 指标。重复调用安全。
func InitMetrics() {
	initOnce.Do(func() {
		SignupTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "notes_signup_total",
			Help: "Total number of successful signup requests.",
		})
		OtpIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "notes_otp_issued_total",
			Help: "Total number of OTP challenges issued.",
		})
		OtpVerifyFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "notes_otp_verify_failed_total",
			Help: "Total number of failed OTP validations.",
		})
		LoginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "notes_login_total",
			Help: "Total number of successful logins by method.",
		}, []string{"method"})
		NoteCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "notes_note_created_total",
			Help: "Total number of notes created.",
		})
		NoteDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "notes_note_deleted_total",
			Help: "Total number of notes deleted.",
		})
	})
}
