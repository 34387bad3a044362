package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (auth.Claims, error)
	VerifyGuestToken(ctx context.Context, token string) (auth.Claims, error)
}

type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

type GuestFinder interface {
	Get(ctx context.Context, id string) (model.GuestSession, error)
}

type Resolver struct {
	tokens   TokenVerifier
	users    UserFinder
	guests   GuestFinder
	cookies  Cookies
	guestTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewResolver(tokens TokenVerifier, users UserFinder, guests GuestFinder, cookies Cookies, guestTTL time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		tokens:   tokens,
		users:    users,
		guests:   guests,
		cookies:  cookies,
		guestTTL: guestTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve checks the bearer token, then the session cookie as an access
// token, then the session cookie as a guest token. The first match wins.
// Bad or stale credentials count as absent; only storage failures are
// returned as errors. Resolve never writes.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (Identity, error) {
	if bearer := BearerToken(req); bearer != "" {
		id, err := r.userFromToken(ctx, bearer)
		if err != nil || id != nil {
			return id, err
		}
	}

	cookie := r.cookies.Value(req)
	if cookie == "" {
		return UnresolvedGuest{}, nil
	}

	id, err := r.userFromToken(ctx, cookie)
	if err != nil || id != nil {
		return id, err
	}

	claims, err := r.tokens.VerifyGuestToken(ctx, cookie)
	if err != nil {
		r.logger.Debug("session cookie rejected", zap.Error(err))
		return UnresolvedGuest{}, nil
	}

	guest, err := r.guests.Get(ctx, claims.Subject)
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		r.logger.Debug("guest session not found", zap.String("guest_id", claims.Subject))
		return UnresolvedGuest{}, nil
	case err != nil:
		return nil, fmt.Errorf("load guest session: %w", err)
	}

	if r.guestTTL > 0 && r.now().Sub(guest.LastSeen()) > r.guestTTL {
		r.logger.Debug("guest session expired", zap.String("guest_id", guest.ID))
		return UnresolvedGuest{}, nil
	}
	return GuestOwner{GuestID: guest.ID}, nil
}

// userFromToken returns nil, nil when token does not identify an existing user.
func (r *Resolver) userFromToken(ctx context.Context, token string) (Identity, error) {
	claims, err := r.tokens.VerifyAccessToken(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			return nil, err
		}
		return nil, nil
	}

	user, err := r.users.GetByEmail(ctx, claims.Subject)
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		r.logger.Debug("token subject has no user", zap.String("email", claims.Subject))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}
	return AuthenticatedUser{UserID: user.ID, Email: user.Email}, nil
}

// Middleware resolves the identity once per request and stores it in the
// request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, err := r.Resolve(req.Context(), req)
		if err != nil {
			r.logger.Error("resolve identity", zap.Error(err))
			respond.Error(w, req, http.StatusInternalServerError, "internal server error")
			return
		}
		next.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), id)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
