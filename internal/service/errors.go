package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/internal/model"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidTimerConfig = errors.New("timer length must be greater than zero")
	ErrMissingGuestCookie = errors.New("guest session cookie is required")
	ErrPasswordTooShort   = auth.ErrPasswordTooShort
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// ownerOf is the precondition for every call except create: the caller must
// already own a user account or a guest session.
func ownerOf(id identity.Identity) (model.Owner, error) {
	owner, ok := identity.Owner(id)
	if !ok {
		return model.Owner{}, ErrMissingGuestCookie
	}
	return owner, nil
}
