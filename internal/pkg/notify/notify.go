package notify

// Sender 定义验证码发送接口。
type Sender interface {
	// SendOtpEmail 向指定邮箱发送一次性验证码。
	//
	// 参数:
	//   toEmail: 接收邮箱
	//   code: 6 位数字验证码
	SendOtpEmail(toEmail string, code string) error
}
