package services

import (
	"errors"
	"fmt"

	"github.com/shutterbay/api/internal/repositories"
)

var (
	// ErrValidation indicates malformed or empty input.
	ErrValidation = errors.New("validation failed")
	// ErrAuthorization indicates the actor may not perform the requested operation.
	ErrAuthorization = errors.New("not authorized")
	// ErrNotFound indicates the referenced order, product or notification does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the transition is not allowed from the current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict indicates a uniqueness violation such as a duplicate review or email.
	ErrConflict = errors.New("conflict")
	// ErrUpstream indicates an identity, email or blob storage collaborator failed.
	ErrUpstream = errors.New("upstream failure")
	// ErrUnavailable indicates the persistence layer could not be reached.
	ErrUnavailable = errors.New("temporarily unavailable")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
