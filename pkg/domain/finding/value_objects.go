package finding

import (
	"fmt"
	"slices"
	"strings"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityCritical      Severity = "CRITICAL"
	SeverityHigh          Severity = "HIGH"
	SeverityMedium        Severity = "MEDIUM"
	SeverityLow           Severity = "LOW"
	SeverityInformational Severity = "INFORMATIONAL"
)

// AllSeverities returns all valid severities.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityInformational,
	}
}

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	return slices.Contains(AllSeverities(), s)
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return sev, nil
}

// RemediationStatus represents the remediation state of a finding.
type RemediationStatus string

const (
	StatusNew        RemediationStatus = "NEW"
	StatusInProgress RemediationStatus = "IN_PROGRESS"
	StatusResolved   RemediationStatus = "RESOLVED"
	StatusFailed     RemediationStatus = "FAILED"
	StatusSuppressed RemediationStatus = "SUPPRESSED"
)

// AllRemediationStatuses returns all valid remediation statuses.
func AllRemediationStatuses() []RemediationStatus {
	return []RemediationStatus{
		StatusNew,
		StatusInProgress,
		StatusResolved,
		StatusFailed,
		StatusSuppressed,
	}
}

// IsValid checks if the status is valid.
func (s RemediationStatus) IsValid() bool {
	return slices.Contains(AllRemediationStatuses(), s)
}

// String returns the string representation.
func (s RemediationStatus) String() string {
	return string(s)
}

// ParseRemediationStatus parses a string into a RemediationStatus.
func ParseRemediationStatus(s string) (RemediationStatus, error) {
	st := RemediationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("invalid remediation status: %s", s)
	}
	return st, nil
}

// ActionType represents a bulk action applied to findings.
type ActionType string

const (
	ActionSuppress                   ActionType = "Suppress"
	ActionUnsuppress                 ActionType = "Unsuppress"
	ActionRemediate                  ActionType = "Remediate"
	ActionRemediateAndGenerateTicket ActionType = "RemediateAndGenerateTicket"
)

// AllActionTypes returns all valid action types.
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionSuppress,
		ActionUnsuppress,
		ActionRemediate,
		ActionRemediateAndGenerateTicket,
	}
}

// IsValid checks if the action type is valid.
func (a ActionType) IsValid() bool {
	return slices.Contains(AllActionTypes(), a)
}

// String returns the string representation.
func (a ActionType) String() string {
	return string(a)
}

// IsRemediation reports whether the action triggers a remediation execution.
func (a ActionType) IsRemediation() bool {
	return a == ActionRemediate || a == ActionRemediateAndGenerateTicket
}
