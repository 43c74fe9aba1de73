package model

import (
	"time"
)

// Note 表示用户的一条笔记。
//
// 笔记归属关系（UserID）在创建后不可变更；所有读写都必须限定在所有者范围内。
type Note struct {
	ID        uint      `gorm:"primaryKey"` // 笔记唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserID  uint   `gorm:"not null;index"`    // 所属用户 ID
	User    User   `gorm:"foreignKey:UserID"` // 所属用户
	Title   string `gorm:"not null"`          // 标题（非空）
	Content string `gorm:"type:text;not null"` // 正文（非空）
}
