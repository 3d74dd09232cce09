// Package finding contains the security finding aggregate.
package finding

import (
	"fmt"
	"strings"
	"time"

	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/search"
)

// Finding represents a security finding record.
//
// The primary key is (FindingType, ID) where ID embeds the finding type as
// "<findingType>:<uuid>", so the full identifier alone is enough to derive
// the compound key for a point lookup.
type Finding struct {
	id          string
	findingType string

	accountID    string
	resourceID   string
	resourceType string
	severity     Severity
	status       RemediationStatus
	title        string
	description  string

	createdAt time.Time
	updatedAt time.Time

	// Internal bookkeeping, never surfaced past the service boundary.
	lastUpdatedBy string
	expiresAt     *time.Time
}

// NewID generates a finding identifier embedding the finding type.
func NewID(findingType string) string {
	return findingType + ":" + shared.NewID().String()
}

// ParseID decomposes a finding identifier into its finding type partition.
// Returns false when the identifier format carries no derivable partition.
func ParseID(id string) (string, bool) {
	findingType, rest, ok := strings.Cut(id, ":")
	if !ok || findingType == "" || rest == "" {
		return "", false
	}
	return findingType, true
}

// New creates a new Finding.
func New(findingType, accountID, resourceID string, severity Severity, title string, updatedAt time.Time) (*Finding, error) {
	if findingType == "" {
		return nil, fmt.Errorf("%w: finding type is required", shared.ErrValidation)
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: account ID is required", shared.ErrValidation)
	}
	if resourceID == "" {
		return nil, fmt.Errorf("%w: resource ID is required", shared.ErrValidation)
	}
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: invalid severity", shared.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	return &Finding{
		id:          NewID(findingType),
		findingType: findingType,
		accountID:   accountID,
		resourceID:  resourceID,
		severity:    severity,
		status:      StatusNew,
		title:       title,
		createdAt:   time.Now().UTC(),
		updatedAt:   updatedAt.UTC(),
	}, nil
}

// Reconstitute recreates a Finding from persistence or external input. The
// identifier must embed a finding type partition.
func Reconstitute(
	id string,
	accountID, resourceID, resourceType string,
	severity Severity,
	status RemediationStatus,
	title, description string,
	createdAt, updatedAt time.Time,
	lastUpdatedBy string,
	expiresAt *time.Time,
) (*Finding, error) {
	findingType, ok := ParseID(id)
	if !ok {
		return nil, fmt.Errorf("%w: finding ID %q has no derivable finding type", shared.ErrValidation, id)
	}
	return &Finding{
		id:            id,
		findingType:   findingType,
		accountID:     accountID,
		resourceID:    resourceID,
		resourceType:  resourceType,
		severity:      severity,
		status:        status,
		title:         title,
		description:   description,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		lastUpdatedBy: lastUpdatedBy,
		expiresAt:     expiresAt,
	}, nil
}

// ID returns the full finding identifier.
func (f *Finding) ID() string { return f.id }

// FindingType returns the finding type partition.
func (f *Finding) FindingType() string { return f.findingType }

// AccountID returns the account the finding belongs to.
func (f *Finding) AccountID() string { return f.accountID }

// ResourceID returns the affected resource identifier.
func (f *Finding) ResourceID() string { return f.resourceID }

// ResourceType returns the affected resource type.
func (f *Finding) ResourceType() string { return f.resourceType }

// Severity returns the finding severity.
func (f *Finding) Severity() Severity { return f.severity }

// Status returns the remediation status.
func (f *Finding) Status() RemediationStatus { return f.status }

// Title returns the finding title.
func (f *Finding) Title() string { return f.title }

// Description returns the finding description.
func (f *Finding) Description() string { return f.description }

// CreatedAt returns the creation timestamp.
func (f *Finding) CreatedAt() time.Time { return f.createdAt }

// UpdatedAt returns the external last-modified timestamp. Updates only win
// when this is strictly newer than the stored value.
func (f *Finding) UpdatedAt() time.Time { return f.updatedAt }

// LastUpdatedBy returns the internal audit principal. Never surfaced to API
// consumers.
func (f *Finding) LastUpdatedBy() string { return f.lastUpdatedBy }

// ExpiresAt returns the internal time-to-live, if set.
func (f *Finding) ExpiresAt() *time.Time { return f.expiresAt }

// SetStatus transitions the remediation status and stamps the change.
func (f *Finding) SetStatus(status RemediationStatus, by string) {
	f.status = status
	f.updatedAt = time.Now().UTC()
	f.lastUpdatedBy = by
}

// SetDescription updates the description.
func (f *Finding) SetDescription(description string) {
	f.description = description
}

// SetResourceType updates the resource type.
func (f *Finding) SetResourceType(resourceType string) {
	f.resourceType = resourceType
}

// StampUpdatedBy records the principal responsible for the current write.
func (f *Finding) StampUpdatedBy(by string) {
	f.lastUpdatedBy = by
}

// SortKey returns the composite <timestamp>#<id> sort attribute value. The
// identifier suffix makes the ordering total even under timestamp ties.
func (f *Finding) SortKey() string {
	return search.FormatTime(f.updatedAt) + "#" + f.id
}

// RecordID implements search.Record.
func (f *Finding) RecordID() string { return f.id }

// FieldValue implements search.Record, exposing filterable fields under
// their request names.
func (f *Finding) FieldValue(field string) (string, bool) {
	switch field {
	case search.FieldID:
		return f.id, true
	case search.FieldAccount:
		return f.accountID, true
	case search.FieldResource:
		return f.resourceID, true
	case "ResourceType":
		return f.resourceType, true
	case search.FieldSeverity:
		return f.severity.String(), true
	case search.FieldStatus:
		return f.status.String(), true
	case "Title":
		return f.title, true
	case "Description":
		return f.description, true
	case "FindingType":
		return f.findingType, true
	case search.FieldUpdatedAt:
		return search.FormatTime(f.updatedAt), true
	default:
		return "", false
	}
}
