package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

type TokenManager interface {
	IssueAccessToken(ctx context.Context, email string, ttl time.Duration) (string, time.Time, error)
	VerifyAccessToken(ctx context.Context, token string) (auth.Claims, error)
	Revoke(ctx context.Context, claims auth.Claims) error
}

type Credentials struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

type AuthService struct {
	users  repo.UserRepository
	hasher PasswordHasher
	tokens TokenManager
	logger *zap.Logger
}

func NewAuthService(users repo.UserRepository, hasher PasswordHasher, tokens TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

func (s *AuthService) Register(ctx context.Context, c Credentials) (model.User, error) {
	c.Email = model.NormalizeEmail(c.Email)
	if err := validateStruct(c); err != nil {
		return model.User{}, err
	}
	if err := auth.ValidatePassword(c.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	digest, err := s.hasher.Hash(c.Password)
	if err != nil {
		return model.User{}, err
	}

	u, err := s.users.Create(ctx, c.Email, digest)
	if err != nil {
		return model.User{}, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", u.ID))
	return u, nil
}

// Login checks the password and issues an access token. Unknown email and
// wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, c Credentials) (LoginResult, error) {
	email := model.NormalizeEmail(c.Email)
	if email == "" || c.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrorNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !s.hasher.Verify(c.Password, u.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.IssueAccessToken(ctx, u.Email, 0)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AccessToken: token, ExpiresAt: exp}, nil
}

// Logout revokes token if it is a live access token. Anything else is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.VerifyAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil
		}
		return err
	}
	return s.tokens.Revoke(ctx, claims)
}
