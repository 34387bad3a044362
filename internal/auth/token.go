package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidToken covers bad signatures, malformed input, a wrong token
	// type and revoked tokens.
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = fmt.Errorf("%w: expired", ErrInvalidToken)
)

type TokenType string

const (
	AccessToken TokenType = "access"
	GuestToken  TokenType = "guest"
)

const minSecretLength = 32

type Claims struct {
	Subject   string
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	Secret    string
	AccessTTL time.Duration
	GuestTTL  time.Duration
}

// Tokens issues and verifies HS256-signed tokens.
type Tokens struct {
	key       []byte
	accessTTL time.Duration
	guestTTL  time.Duration
	revoker   Revoker
	logger    *zap.Logger
	now       func() time.Time
}

func NewTokens(cfg TokenConfig, revoker Revoker, logger *zap.Logger) (*Tokens, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d characters", minSecretLength)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.GuestTTL <= 0 {
		cfg.GuestTTL = 30 * 24 * time.Hour
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Tokens{
		key:       []byte(cfg.Secret),
		accessTTL: cfg.AccessTTL,
		guestTTL:  cfg.GuestTTL,
		revoker:   revoker,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// IssueAccessToken signs a token for email. A non-positive ttl uses the configured default.
func (t *Tokens) IssueAccessToken(ctx context.Context, email string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = t.accessTTL
	}
	return t.issue(email, AccessToken, ttl)
}

func (t *Tokens) VerifyAccessToken(ctx context.Context, token string) (Claims, error) {
	return t.verify(ctx, token, AccessToken)
}

// IssueGuestToken signs a guest session id for the session cookie.
func (t *Tokens) IssueGuestToken(ctx context.Context, guestID string) (string, error) {
	token, _, err := t.issue(guestID, GuestToken, t.guestTTL)
	return token, err
}

func (t *Tokens) VerifyGuestToken(ctx context.Context, token string) (Claims, error) {
	return t.verify(ctx, token, GuestToken)
}

// Revoke blacklists a verified token until it would have expired anyway.
func (t *Tokens) Revoke(ctx context.Context, claims Claims) error {
	if claims.ID == "" {
		return nil
	}
	return t.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt)
}

func (t *Tokens) issue(subject string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(ttl)
	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

func (t *Tokens) verify(ctx context.Context, raw string, want TokenType) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return t.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		t.logger.Debug("token rejected", zap.String("want", string(want)), zap.Error(err))
		return Claims{}, ErrInvalidToken
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || tc.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	if tc.Type != want {
		return Claims{}, fmt.Errorf("%w: want %s token, got %q", ErrInvalidToken, want, tc.Type)
	}

	// Guest tokens are never revoked.
	if want == AccessToken {
		revoked, err := t.revoker.IsRevoked(ctx, tc.ID)
		if err != nil {
			t.logger.Warn("revocation check failed", zap.String("jti", tc.ID), zap.Error(err))
			return Claims{}, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return Claims{}, fmt.Errorf("%w: revoked", ErrInvalidToken)
		}
	}

	claims := Claims{
		Subject: tc.Subject,
		Type:    tc.Type,
		ID:      tc.ID,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}
