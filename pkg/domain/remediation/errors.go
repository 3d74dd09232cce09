package remediation

import (
	"errors"
	"fmt"

	"github.com/remedyops/findings-api/pkg/domain/shared"
)

// Domain errors for remediation history.
var (
	ErrEventNotFound = errors.New("remediation event not found")
	ErrEventExists   = errors.New("remediation event already exists")
)

// NewEventNotFoundError creates a new event not found error.
func NewEventNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrEventNotFound, id)
}

// IsEventNotFound checks if the error is an event not found error.
func IsEventNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) || errors.Is(err, shared.ErrNotFound)
}

// IsEventExists checks if the error is an event exists error.
func IsEventExists(err error) bool {
	return errors.Is(err, ErrEventExists) || errors.Is(err, shared.ErrAlreadyExists)
}
