package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/repo"
	"github.com/BuzzLyutic/task-tracker/internal/service"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

var errInvalidTaskID = errors.New("invalid task id")

func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrorDuplicateUser):
		respond.Error(w, r, http.StatusConflict, "user with this email already exists")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPasswordTooShort):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTimerConfig):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respond.Error(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrMissingGuestCookie):
		logger.Error("mutation without guest session", zap.String("path", r.URL.Path))
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, errInvalidTaskID):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, repo.ErrorMissingOwner):
		logger.Error("task without owner", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	default:
		logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidTaskID
	}
	return id, nil
}

func taskIDParam(r *http.Request) (int64, error) {
	return parseTaskID(chi.URLParam(r, "id"))
}
