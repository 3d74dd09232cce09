// Package remediation contains the remediation execution history aggregate.
package remediation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/search"
)

// ExecutionStatus represents the state of one remediation execution.
type ExecutionStatus string

const (
	ExecutionPending    ExecutionStatus = "PENDING"
	ExecutionInProgress ExecutionStatus = "IN_PROGRESS"
	ExecutionSucceeded  ExecutionStatus = "SUCCESS"
	ExecutionFailed     ExecutionStatus = "FAILED"
)

// AllExecutionStatuses returns all valid execution statuses.
func AllExecutionStatuses() []ExecutionStatus {
	return []ExecutionStatus{
		ExecutionPending,
		ExecutionInProgress,
		ExecutionSucceeded,
		ExecutionFailed,
	}
}

// IsValid checks if the execution status is valid.
func (s ExecutionStatus) IsValid() bool {
	return slices.Contains(AllExecutionStatuses(), s)
}

// String returns the string representation.
func (s ExecutionStatus) String() string {
	return string(s)
}

// Event represents one remediation execution against a finding.
//
// The primary key is (FindingType, ID) where ID is the composite
// "<findingId>#<executionId>", so one finding's executions share a partition
// and sort together.
type Event struct {
	findingID   string
	executionID string
	findingType string

	accountID  string
	resourceID string
	action     string
	status     ExecutionStatus
	message    string
	ticket     bool

	startedAt time.Time
	updatedAt time.Time

	// Internal bookkeeping, never surfaced past the service boundary.
	lastUpdatedBy string
	expiresAt     *time.Time
}

// ComposeID builds the composite event identifier.
func ComposeID(findingID, executionID string) string {
	return findingID + "#" + executionID
}

// SplitID decomposes a composite event identifier.
func SplitID(id string) (findingID, executionID string, ok bool) {
	findingID, executionID, ok = strings.Cut(id, "#")
	if !ok || findingID == "" || executionID == "" {
		return "", "", false
	}
	return findingID, executionID, true
}

// NewEvent creates a new remediation execution event.
func NewEvent(findingID, executionID, accountID, action string, requestTicket bool) (*Event, error) {
	findingType, ok := finding.ParseID(findingID)
	if !ok {
		return nil, fmt.Errorf("%w: finding ID %q has no derivable finding type", shared.ErrValidation, findingID)
	}
	if executionID == "" {
		return nil, fmt.Errorf("%w: execution ID is required", shared.ErrValidation)
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: account ID is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Event{
		findingID:   findingID,
		executionID: executionID,
		findingType: findingType,
		accountID:   accountID,
		action:      action,
		status:      ExecutionPending,
		ticket:      requestTicket,
		startedAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstitute recreates an Event from persistence.
func Reconstitute(
	findingID, executionID string,
	accountID, resourceID, action string,
	status ExecutionStatus,
	message string,
	ticket bool,
	startedAt, updatedAt time.Time,
	lastUpdatedBy string,
	expiresAt *time.Time,
) (*Event, error) {
	findingType, ok := finding.ParseID(findingID)
	if !ok {
		return nil, fmt.Errorf("%w: finding ID %q has no derivable finding type", shared.ErrValidation, findingID)
	}
	return &Event{
		findingID:     findingID,
		executionID:   executionID,
		findingType:   findingType,
		accountID:     accountID,
		resourceID:    resourceID,
		action:        action,
		status:        status,
		message:       message,
		ticket:        ticket,
		startedAt:     startedAt,
		updatedAt:     updatedAt,
		lastUpdatedBy: lastUpdatedBy,
		expiresAt:     expiresAt,
	}, nil
}

// ID returns the composite event identifier.
func (e *Event) ID() string { return ComposeID(e.findingID, e.executionID) }

// FindingID returns the finding this execution targets.
func (e *Event) FindingID() string { return e.findingID }

// ExecutionID returns the execution identifier.
func (e *Event) ExecutionID() string { return e.executionID }

// FindingType returns the finding type partition.
func (e *Event) FindingType() string { return e.findingType }

// AccountID returns the account the finding belongs to.
func (e *Event) AccountID() string { return e.accountID }

// ResourceID returns the affected resource identifier.
func (e *Event) ResourceID() string { return e.resourceID }

// Action returns the action that triggered the execution.
func (e *Event) Action() string { return e.action }

// Status returns the execution status.
func (e *Event) Status() ExecutionStatus { return e.status }

// Message returns the execution outcome message.
func (e *Event) Message() string { return e.message }

// TicketRequested reports whether a ticket was requested for this execution.
func (e *Event) TicketRequested() bool { return e.ticket }

// StartedAt returns the execution start time.
func (e *Event) StartedAt() time.Time { return e.startedAt }

// UpdatedAt returns the last update time.
func (e *Event) UpdatedAt() time.Time { return e.updatedAt }

// LastUpdatedBy returns the internal audit principal.
func (e *Event) LastUpdatedBy() string { return e.lastUpdatedBy }

// ExpiresAt returns the internal time-to-live, if set.
func (e *Event) ExpiresAt() *time.Time { return e.expiresAt }

// Complete transitions the execution to a terminal status with an outcome
// message and stamps the change.
func (e *Event) Complete(status ExecutionStatus, message, by string) {
	e.status = status
	e.message = message
	e.updatedAt = time.Now().UTC()
	e.lastUpdatedBy = by
}

// MarkInProgress records that the execution has started running.
func (e *Event) MarkInProgress() {
	e.status = ExecutionInProgress
	e.updatedAt = time.Now().UTC()
}

// SetResourceID records the affected resource.
func (e *Event) SetResourceID(resourceID string) {
	e.resourceID = resourceID
}

// StampUpdatedBy records the principal responsible for the current write.
func (e *Event) StampUpdatedBy(by string) {
	e.lastUpdatedBy = by
}

// SetExpiresAt sets the history retention time-to-live.
func (e *Event) SetExpiresAt(t time.Time) {
	tt := t.UTC()
	e.expiresAt = &tt
}

// SortKey returns the composite <timestamp>#<id> sort attribute value.
func (e *Event) SortKey() string {
	return search.FormatTime(e.updatedAt) + "#" + e.ID()
}

// RecordID implements search.Record.
func (e *Event) RecordID() string { return e.ID() }

// FieldValue implements search.Record.
func (e *Event) FieldValue(field string) (string, bool) {
	switch field {
	case search.FieldID:
		return e.ID(), true
	case search.FieldFinding:
		return e.findingID, true
	case "ExecutionId":
		return e.executionID, true
	case search.FieldAccount:
		return e.accountID, true
	case search.FieldResource:
		return e.resourceID, true
	case "Action":
		return e.action, true
	case search.FieldStatus:
		return e.status.String(), true
	case "FindingType":
		return e.findingType, true
	case search.FieldUpdatedAt:
		return search.FormatTime(e.updatedAt), true
	default:
		return "", false
	}
}
