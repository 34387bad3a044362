package repo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

const (
	uniqueViolationCode = "23505"
	checkViolationCode  = "23514"

	singleOwnerConstraint = "tasks_single_owner"
)

var (
	ErrorNotFound      = errors.New("not found")
	ErrorConflict      = errors.New("conflict")
	ErrorDuplicateUser = fmt.Errorf("%w: user with this email already exists", ErrorConflict)
	ErrorMissingOwner  = model.ErrMissingOwner
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %s", ErrorConflict, pgErr.ConstraintName)
		case checkViolationCode:
			if pgErr.ConstraintName == singleOwnerConstraint {
				return ErrorMissingOwner
			}
		}
	}
	return err
}
