package search

// StrategyKind identifies how a planned query executes against the store.
type StrategyKind int

const (
	// StrategyDirectKey resolves identifier equality filters with parallel
	// point lookups.
	StrategyDirectKey StrategyKind = iota

	// StrategyIndexedQuery pages through a single secondary index.
	StrategyIndexedQuery
)

// Strategy is the planner's output: either a set of direct key lookups or a
// single indexed query, plus the filters left for in-memory evaluation.
type Strategy struct {
	Kind StrategyKind

	// IDs holds the distinct identifiers to fetch for StrategyDirectKey.
	IDs []string

	// Index, PartitionField and PartitionValue describe the pushed-down
	// equality for StrategyIndexedQuery. PartitionField is empty when the
	// fallback all-records index was chosen.
	Index          string
	PartitionField string
	PartitionValue string

	// SortNative reports whether the requested sort maps onto the index's
	// composite sort attribute, making it a scan direction instead of an
	// in-memory re-sort.
	SortNative bool
	Descending bool

	// Post holds the filter groups evaluated in memory against fetched
	// records.
	Post []Group
}

// Plan selects an execution strategy for the given criteria. It is a pure
// function: no store access, fully unit-testable.
//
// Unmapped filter fields are deliberately kept as in-memory predicates
// against the fallback index rather than rejected, so new record attributes
// can be filtered on before an index exists for them. The executor meters
// these fallback scans since they degrade to marker-partition scans.
func Plan(c Criteria, schema Schema) Strategy {
	desc := c.Sort.Order != SortAsc
	sortNative := c.Sort.Field == "" || c.Sort.Field == schema.SortField

	if ids := directIDs(c.Groups, schema.IDField); len(ids) > 0 {
		return Strategy{
			Kind:       StrategyDirectKey,
			IDs:        ids,
			SortNative: sortNative,
			Descending: desc,
			Post:       c.Groups,
		}
	}

	pushed := pushdownCandidates(c.Groups)
	for _, idx := range schema.Indexes {
		value, ok := pushed[idx.Field]
		if !ok {
			continue
		}
		return Strategy{
			Kind:           StrategyIndexedQuery,
			Index:          idx.Name,
			PartitionField: idx.Field,
			PartitionValue: value,
			SortNative:     sortNative,
			Descending:     desc,
			Post:           stripPushed(c.Groups, idx.Field, value),
		}
	}

	return Strategy{
		Kind:       StrategyIndexedQuery,
		Index:      schema.AllIndex,
		SortNative: sortNative,
		Descending: desc,
		Post:       c.Groups,
	}
}

// directIDs collects identifier values servable by point lookups. An
// identifier equality is only usable when it is mandatory: it sits in an AND
// group (or is the sole filter of its group), or its OR group consists of
// nothing but identifier equalities (the union of which is exactly the
// lookup set).
func directIDs(groups []Group, idField string) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			ids = append(ids, v)
		}
	}

	for _, g := range groups {
		if g.Operator != OperatorOr || len(g.Filters) == 1 {
			for _, f := range g.Filters {
				if f.Field == idField && f.Comparison == ComparisonEquals {
					add(f.Value)
				}
			}
			continue
		}

		allIDs := len(g.Filters) > 0
		for _, f := range g.Filters {
			if f.Field != idField || f.Comparison != ComparisonEquals {
				allIDs = false
				break
			}
		}
		if allIDs {
			for _, f := range g.Filters {
				add(f.Value)
			}
		}
	}
	return ids
}

// EqualsValues collects every equality value requested for the field, in any
// group position. Used to surface which accounts a request is asking for so
// the caller can reconcile them against its grant before execution.
func EqualsValues(groups []Group, field string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, g := range groups {
		for _, f := range g.Filters {
			if f.Field == field && f.Comparison == ComparisonEquals && !seen[f.Value] {
				seen[f.Value] = true
				values = append(values, f.Value)
			}
		}
	}
	return values
}

// pushdownCandidates returns field→value for equality filters that every
// matching record must satisfy. Filters inside multi-filter OR groups are
// never candidates: the group can match records without them.
func pushdownCandidates(groups []Group) map[string]string {
	out := make(map[string]string)
	for _, g := range groups {
		if g.Operator == OperatorOr && len(g.Filters) > 1 {
			continue
		}
		for _, f := range g.Filters {
			if f.Comparison != ComparisonEquals {
				continue
			}
			if _, exists := out[f.Field]; !exists {
				out[f.Field] = f.Value
			}
		}
	}
	return out
}

// stripPushed removes the pushed-down equality from the post-filter groups.
// Only exact matches in mandatory positions are removed; everything else
// still runs in memory. Groups left empty are dropped.
func stripPushed(groups []Group, field, value string) []Group {
	var out []Group
	for _, g := range groups {
		mandatory := g.Operator != OperatorOr || len(g.Filters) == 1
		if !mandatory {
			out = append(out, g)
			continue
		}
		kept := make([]Filter, 0, len(g.Filters))
		for _, f := range g.Filters {
			if f.Field == field && f.Comparison == ComparisonEquals && f.Value == value {
				continue
			}
			kept = append(kept, f)
		}
		if len(kept) > 0 {
			out = append(out, Group{Operator: g.Operator, Filters: kept})
		}
	}
	return out
}
