package remediation

import (
	"context"

	"github.com/remedyops/findings-api/pkg/search"
)

// Repository defines the interface for remediation history persistence.
type Repository interface {
	// Create persists a new execution event. Duplicate identifiers fail with
	// ErrEventExists.
	Create(ctx context.Context, e *Event) error

	// GetByID retrieves an event by its composite "<findingId>#<executionId>"
	// identifier.
	GetByID(ctx context.Context, id string) (*Event, error)

	// Update overwrites an existing event. An absent identifier fails with
	// ErrEventNotFound.
	Update(ctx context.Context, e *Event) error

	// Search executes a planned filter/sort/pagination request over the
	// execution history, narrowed to the given account scope.
	Search(ctx context.Context, criteria search.Criteria, scope search.Scope) (search.Result[*Event], error)
}
