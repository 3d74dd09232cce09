package finding

import (
	"errors"
	"fmt"

	"github.com/remedyops/findings-api/pkg/domain/shared"
)

// Domain errors for findings.
var (
	ErrFindingNotFound = errors.New("finding not found")
	ErrFindingExists   = errors.New("finding already exists")
	ErrNoFindingsFound = errors.New("no findings found for the provided IDs")
)

// NewFindingNotFoundError creates a new finding not found error.
func NewFindingNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrFindingNotFound, id)
}

// NewFindingExistsError creates a new finding exists error.
func NewFindingExistsError(id string) error {
	return fmt.Errorf("%w: %s", ErrFindingExists, id)
}

// IsFindingNotFound checks if the error is a finding not found error.
func IsFindingNotFound(err error) bool {
	return errors.Is(err, ErrFindingNotFound) || errors.Is(err, shared.ErrNotFound)
}

// IsFindingExists checks if the error is a finding exists error.
func IsFindingExists(err error) bool {
	return errors.Is(err, ErrFindingExists) || errors.Is(err, shared.ErrAlreadyExists)
}
