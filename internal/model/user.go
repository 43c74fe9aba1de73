package model

import "time"

// User 表示系统用户。
//
// Google 登录创建的用户没有密码哈希（Password 为空），邮箱注册的用户没有 GoogleID。
// OTP 挑战（Otp + OtpExpiresAt）两个字段要么同时存在，要么同时为空，
// 通过 SetOtpChallenge / ClearOtpChallenge / OtpChallenge 维护该不变量。
type User struct {
	ID        uint      `gorm:"primaryKey"` // 用户 ID
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	Name         string     `gorm:"not null"`                               // 用户名
	Email        string     `gorm:"type:varchar(191);uniqueIndex;not null"` // 邮箱（唯一，已小写化）
	DateOfBirth  time.Time  // 出生日期（Google 用户为 Unix 纪元占位值）
	Password     string     // bcrypt 哈希（Google 用户为空）
	GoogleID     string     `gorm:"type:varchar(191);index"` // Google 账号 subject（为空表示未绑定）
	IsVerified   bool       `gorm:"default:false"`           // 邮箱是否已验证
	Otp          string     `gorm:"type:varchar(16)"`        // 当前 OTP 挑战码
	OtpExpiresAt *time.Time // OTP 过期时间

	Notes []Note `gorm:"foreignKey:UserID"`
}

// SetOtpChallenge 设置新的 OTP 挑战，覆盖旧挑战。
func (u *User) SetOtpChallenge(code string, expiresAt time.Time) {
	u.Otp = code
	u.OtpExpiresAt = &expiresAt
}

// ClearOtpChallenge 清除 OTP 挑战。
func (u *User) ClearOtpChallenge() {
	u.Otp = ""
	u.OtpExpiresAt = nil
}

// OtpChallenge 返回当前挑战。ok 为 false 表示没有未消费的挑战。
func (u *User) OtpChallenge() (code string, expiresAt time.Time, ok bool) {
	if u.Otp == "" || u.OtpExpiresAt == nil {
		return "", time.Time{}, false
	}
	return u.Otp, *u.OtpExpiresAt, true
}
