package auth

import (
	"context"

	"github.com/shashank-upadhya/notes/internal/model"

	"gorm.io/gorm"
)

// UserStore 定义认证流程所需的用户存储操作。
//
// 查询未命中时返回 gorm.ErrRecordNotFound。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
	// ConsumeOtp 以条件更新的方式一次性消费 OTP：仅当该用户当前挑战码
	// 仍等于 code 时才清除挑战（verify 为 true 时同时置 is_verified）。
	// 返回是否有行被更新；并发竞争下同一个码最多被消费一次。
	ConsumeOtp(ctx context.Context, userID uint, code string, verify bool) (bool, error)
}

type dbUserStore struct {
	db *gorm.DB
}

// NewUserStore 创建基于 gorm 的用户存储。
func NewUserStore(db *gorm.DB) UserStore {
	return dbUserStore{db: db}
}

func (s dbUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) Save(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s dbUserStore) ConsumeOtp(ctx context.Context, userID uint, code string, verify bool) (bool, error) {
	updates := map[string]interface{}{
		"otp":            "",
		"otp_expires_at": nil,
	}
	if verify {
		updates["is_verified"] = true
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND otp = ?", userID, code).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
