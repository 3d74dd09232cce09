// Package search provides the declarative filter/sort/pagination model and
// the pure query planner that maps a filter set onto a store execution
// strategy.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"
)

// TimeLayout is the fixed-width timestamp format used in sort attributes and
// range comparisons. Fixed fractional digits keep lexicographic order equal
// to chronological order, which RFC3339Nano's trimmed fractions do not.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders a timestamp in TimeLayout, UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Comparison is a filter comparison operator.
type Comparison string

const (
	ComparisonEquals      Comparison = "EQUALS"
	ComparisonNotEquals   Comparison = "NOT_EQUALS"
	ComparisonContains    Comparison = "CONTAINS"
	ComparisonNotContains Comparison = "NOT_CONTAINS"
	ComparisonGTE         Comparison = "GREATER_THAN_OR_EQUAL"
	ComparisonLTE         Comparison = "LESS_THAN_OR_EQUAL"
)

// AllComparisons returns all valid comparison operators.
func AllComparisons() []Comparison {
	return []Comparison{
		ComparisonEquals,
		ComparisonNotEquals,
		ComparisonContains,
		ComparisonNotContains,
		ComparisonGTE,
		ComparisonLTE,
	}
}

// IsValid checks if the comparison is valid.
func (c Comparison) IsValid() bool {
	return slices.Contains(AllComparisons(), c)
}

// Operator combines the filters of a composite group.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// IsValid checks if the operator is valid.
func (o Operator) IsValid() bool {
	return o == OperatorAnd || o == OperatorOr
}

// Filter is a single field comparison.
type Filter struct {
	Field      string
	Comparison Comparison
	Value      string
}

// Group is a set of filters combined by one operator. Groups themselves are
// always combined with AND.
type Group struct {
	Operator Operator
	Filters  []Filter
}

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// IsValid checks if the sort order is valid.
func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// Sort is a sorting specification. Only one sort field is effective per
// request; ties are always broken by record identifier.
type Sort struct {
	Field string
	Order SortOrder
}

// Criteria is a normalized search request.
type Criteria struct {
	Groups    []Group
	Sort      Sort
	PageSize  int
	NextToken string
}

// ShapeHash fingerprints the filter and sort shape of the criteria. A
// continuation token is only honored when the caller repeats the exact same
// shape; anything else restarts the scan.
func (c Criteria) ShapeHash() string {
	var sb strings.Builder
	for _, g := range c.Groups {
		sb.WriteString(string(g.Operator))
		sb.WriteByte('(')
		for _, f := range g.Filters {
			sb.WriteString(f.Field)
			sb.WriteByte('|')
			sb.WriteString(string(f.Comparison))
			sb.WriteByte('|')
			sb.WriteString(f.Value)
			sb.WriteByte(';')
		}
		sb.WriteByte(')')
	}
	sb.WriteString(c.Sort.Field)
	sb.WriteByte('|')
	sb.WriteString(string(c.Sort.Order))

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:8])
}

// Result is a single page of search results.
type Result[T any] struct {
	Items     []T
	NextToken string
}

// Scope restricts results to a set of account identifiers. An unrestricted
// scope allows everything; a restricted scope with no accounts allows
// nothing.
type Scope struct {
	Restricted bool
	Accounts   []string
}

// Unrestricted returns a scope that allows every account.
func Unrestricted() Scope {
	return Scope{}
}

// Restricted returns a scope limited to the given accounts.
func Restricted(accounts []string) Scope {
	return Scope{Restricted: true, Accounts: accounts}
}

// Allows reports whether the scope permits the given account.
func (s Scope) Allows(accountID string) bool {
	if !s.Restricted {
		return true
	}
	return slices.Contains(s.Accounts, accountID)
}
