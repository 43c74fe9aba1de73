package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// Identity 是身份提供方校验通过后返回的身份声明。
type Identity struct {
	GoogleID string // Google 账号 subject
	Email    string
	Name     string
}

// IdentityVerifier 校验不透明的身份令牌并返回身份声明。
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type googleVerifier struct {
	clientID string
}

// NewGoogleVerifier 创建基于 Google ID Token 的校验器。
// clientID 为空时返回 nil（Google 登录未配置）。
func NewGoogleVerifier(clientID string) IdentityVerifier {
	if clientID == "" {
		return nil
	}
	return &googleVerifier{clientID: clientID}
}

func (v *googleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, err
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if payload.Subject == "" || email == "" || name == "" {
		return nil, errors.New("incomplete identity claims")
	}

	return &Identity{
		GoogleID: payload.Subject,
		Email:    email,
		Name:     name,
	}, nil
}
