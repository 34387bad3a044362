package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/internal/service"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

type AuthHandler struct {
	auth    *service.AuthService
	cookies identity.Cookies
	logger  *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, cookies identity.Cookies, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		cookies: cookies,
		logger:  logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type statusResponse struct {
	IsGuest   bool   `json:"is_guest"`
	UserEmail string `json:"user_email,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}
	h.login(w, r, req)
}

// Token is the OAuth2 password flow: form fields username and password.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	h.login(w, r, service.Credentials{
		Email:    r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, creds service.Credentials) {
	res, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, h.cookies.New(res.AccessToken))
	respond.JSON(w, r, http.StatusOK, tokenResponse{AccessToken: res.AccessToken, TokenType: "bearer"})
}

// Logout revokes the presented access token and drops the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := identity.BearerToken(r)
	if token == "" {
		token = h.cookies.Value(r)
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, h.cookies.Expire())
	respond.Message(w, r, http.StatusOK, "logout successful")
}

func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{IsGuest: true}
	if u, ok := identity.FromContext(r.Context()).(identity.AuthenticatedUser); ok {
		resp = statusResponse{IsGuest: false, UserEmail: u.Email}
	}
	respond.JSON(w, r, http.StatusOK, resp)
}
