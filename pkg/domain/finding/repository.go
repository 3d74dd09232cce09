package finding

import (
	"context"

	"github.com/remedyops/findings-api/pkg/search"
)

// Repository defines the interface for finding persistence.
type Repository interface {
	// Create persists a new finding. It fails with ErrFindingExists when a
	// record with the same identifier already exists; the stored record is
	// left untouched.
	Create(ctx context.Context, f *Finding) error

	// Update overwrites the stored finding only when the given record's
	// UpdatedAt is strictly newer than the stored one. A stale write fails
	// with shared.ErrStaleWrite and leaves the store unchanged.
	Update(ctx context.Context, f *Finding) error

	// Delete removes a finding. Deleting an absent record is not an error.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a finding by its full identifier. Returns
	// ErrFindingNotFound when absent.
	GetByID(ctx context.Context, id string) (*Finding, error)

	// Search executes a planned filter/sort/pagination request, narrowed to
	// the given account scope.
	Search(ctx context.Context, criteria search.Criteria, scope search.Scope) (search.Result[*Finding], error)
}
