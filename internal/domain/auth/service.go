package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"fieldpay/internal/platform/logging"
)

type UserStore interface {
	FindActiveUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

type Service struct {
	Store    UserStore
	Secret   string
	TokenTTL time.Duration
	logger   *zap.Logger
}

func NewService(store UserStore, secret string, ttl time.Duration, logger ...*zap.Logger) *Service {
	return &Service{Store: store, Secret: secret, TokenTTL: ttl, logger: logging.Named("auth.service", logger...)}
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Session{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Role: user.Role, BranchID: user.BranchID}, s.TokenTTL)
	if err != nil {
		return Session{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return Session{Token: token, ExpiresAt: time.Now().Add(s.TokenTTL), User: user}, nil
}

func (s *Service) CreateUser(ctx context.Context, email, password, role, branchID string) (User, error) {
	if !ValidRole(role) {
		return User{}, ErrInvalidRole
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.Store.CreateUser(ctx, User{
		Email:        strings.TrimSpace(email),
		Role:         role,
		BranchID:     branchID,
		PasswordHash: hash,
	})
}
