package search

import (
	"sort"
	"strconv"
	"strings"
)

// Record is the view of a stored record the in-memory predicate engine
// needs: a stable identifier and string access to filterable fields.
type Record interface {
	RecordID() string
	FieldValue(field string) (string, bool)
}

// MatchesGroups reports whether the record satisfies every filter group.
// Groups combine with AND; filters within a group combine per the group's
// operator.
func MatchesGroups(r Record, groups []Group) bool {
	for _, g := range groups {
		if !matchesGroup(r, g) {
			return false
		}
	}
	return true
}

func matchesGroup(r Record, g Group) bool {
	if len(g.Filters) == 0 {
		return true
	}
	if g.Operator == OperatorOr {
		for _, f := range g.Filters {
			if matchesFilter(r, f) {
				return true
			}
		}
		return false
	}
	for _, f := range g.Filters {
		if !matchesFilter(r, f) {
			return false
		}
	}
	return true
}

func matchesFilter(r Record, f Filter) bool {
	val, ok := r.FieldValue(f.Field)
	if !ok {
		// A record without the field can only satisfy negative comparisons.
		return f.Comparison == ComparisonNotEquals || f.Comparison == ComparisonNotContains
	}

	switch f.Comparison {
	case ComparisonEquals:
		return val == f.Value
	case ComparisonNotEquals:
		return val != f.Value
	case ComparisonContains:
		return strings.Contains(strings.ToLower(val), strings.ToLower(f.Value))
	case ComparisonNotContains:
		return !strings.Contains(strings.ToLower(val), strings.ToLower(f.Value))
	case ComparisonGTE:
		return compareOrdered(val, f.Value) >= 0
	case ComparisonLTE:
		return compareOrdered(val, f.Value) <= 0
	default:
		return false
	}
}

// compareOrdered compares numerically when both sides parse as numbers,
// lexicographically otherwise. RFC 3339 timestamps order correctly under the
// lexicographic branch.
func compareOrdered(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// ApplyGroups filters items down to those matching every group.
func ApplyGroups[T Record](items []T, groups []Group) []T {
	if len(groups) == 0 {
		return items
	}
	out := items[:0:0]
	for _, it := range items {
		if MatchesGroups(it, groups) {
			out = append(out, it)
		}
	}
	return out
}

// ApplyScope drops items whose account field is outside the scope.
func ApplyScope[T Record](items []T, scope Scope, accountField string) []T {
	if !scope.Restricted {
		return items
	}
	out := items[:0:0]
	for _, it := range items {
		account, _ := it.FieldValue(accountField)
		if scope.Allows(account) {
			out = append(out, it)
		}
	}
	return out
}

// SortItems orders items by the given field, ties broken by record
// identifier so paging stays deterministic when many records share a value.
func SortItems[T Record](items []T, field string, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		vi, _ := items[i].FieldValue(field)
		vj, _ := items[j].FieldValue(field)
		cmp := compareOrdered(vi, vj)
		if cmp == 0 {
			cmp = strings.Compare(items[i].RecordID(), items[j].RecordID())
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// Dedupe removes duplicate records by identifier, keeping first occurrence.
func Dedupe[T Record](items []T) []T {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		id := it.RecordID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, it)
	}
	return out
}
