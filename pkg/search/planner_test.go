package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		IDField:   "Id",
		SortField: "UpdatedAt",
		Indexes: []Index{
			{Name: "gsi-account", Field: "AccountId"},
			{Name: "gsi-resource", Field: "ResourceId"},
			{Name: "gsi-severity", Field: "Severity"},
			{Name: "gsi-status", Field: "RemediationStatus"},
		},
		AllIndex: "gsi-all",
	}
}

func TestPlanDirectKey(t *testing.T) {
	tests := []struct {
		name    string
		groups  []Group
		wantIDs []string
	}{
		{
			name: "single id equality",
			groups: []Group{
				{Operator: OperatorAnd, Filters: []Filter{
					{Field: "Id", Comparison: ComparisonEquals, Value: "t:1"},
				}},
			},
			wantIDs: []string{"t:1"},
		},
		{
			name: "or group of only id equalities is a union",
			groups: []Group{
				{Operator: OperatorOr, Filters: []Filter{
					{Field: "Id", Comparison: ComparisonEquals, Value: "t:1"},
					{Field: "Id", Comparison: ComparisonEquals, Value: "t:2"},
				}},
			},
			wantIDs: []string{"t:1", "t:2"},
		},
		{
			name: "duplicate ids collapse",
			groups: []Group{
				{Operator: OperatorAnd, Filters: []Filter{
					{Field: "Id", Comparison: ComparisonEquals, Value: "t:1"},
				}},
				{Operator: OperatorAnd, Filters: []Filter{
					{Field: "Id", Comparison: ComparisonEquals, Value: "t:1"},
				}},
			},
			wantIDs: []string{"t:1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Plan(Criteria{Groups: tt.groups}, testSchema())
			assert.Equal(t, StrategyDirectKey, s.Kind)
			assert.Equal(t, tt.wantIDs, s.IDs)
			// The full groups stay as post-filters for direct lookups.
			assert.Equal(t, tt.groups, s.Post)
		})
	}
}

func TestPlanIDInsideMixedOrGroupIsNotDirect(t *testing.T) {
	groups := []Group{
		{Operator: OperatorOr, Filters: []Filter{
			{Field: "Id", Comparison: ComparisonEquals, Value: "t:1"},
			{Field: "Severity", Comparison: ComparisonEquals, Value: "HIGH"},
		}},
	}

	s := Plan(Criteria{Groups: groups}, testSchema())
	assert.Equal(t, StrategyIndexedQuery, s.Kind)
	assert.Equal(t, "gsi-all", s.Index)
}

func TestPlanIndexSelectionOrder(t *testing.T) {
	// Account beats resource beats severity when several are present.
	groups := []Group{
		{Operator: OperatorAnd, Filters: []Filter{
			{Field: "Severity", Comparison: ComparisonEquals, Value: "HIGH"},
			{Field: "AccountId", Comparison: ComparisonEquals, Value: "acct-1"},
		}},
	}

	s := Plan(Criteria{Groups: groups}, testSchema())
	require.Equal(t, StrategyIndexedQuery, s.Kind)
	assert.Equal(t, "gsi-account", s.Index)
	assert.Equal(t, "AccountId", s.PartitionField)
	assert.Equal(t, "acct-1", s.PartitionValue)

	// The pushed equality is stripped; the severity filter remains.
	require.Len(t, s.Post, 1)
	assert.Equal(t, "Severity", s.Post[0].Filters[0].Field)
}

func TestPlanOrGroupEqualityIsNotPushedDown(t *testing.T) {
	groups := []Group{
		{Operator: OperatorOr, Filters: []Filter{
			{Field: "AccountId", Comparison: ComparisonEquals, Value: "acct-1"},
			{Field: "AccountId", Comparison: ComparisonEquals, Value: "acct-2"},
		}},
	}

	s := Plan(Criteria{Groups: groups}, testSchema())
	assert.Equal(t, StrategyIndexedQuery, s.Kind)
	assert.Equal(t, "gsi-all", s.Index)
	assert.Equal(t, groups, s.Post)
}

func TestPlanSingleFilterOrGroupIsMandatory(t *testing.T) {
	groups := []Group{
		{Operator: OperatorOr, Filters: []Filter{
			{Field: "ResourceId", Comparison: ComparisonEquals, Value: "res-1"},
		}},
	}

	s := Plan(Criteria{Groups: groups}, testSchema())
	assert.Equal(t, "gsi-resource", s.Index)
	assert.Empty(t, s.Post)
}

func TestPlanFallbackKeepsUnmappedFilters(t *testing.T) {
	groups := []Group{
		{Operator: OperatorAnd, Filters: []Filter{
			{Field: "Title", Comparison: ComparisonContains, Value: "bucket"},
		}},
	}

	s := Plan(Criteria{Groups: groups}, testSchema())
	assert.Equal(t, StrategyIndexedQuery, s.Kind)
	assert.Equal(t, "gsi-all", s.Index)
	assert.Empty(t, s.PartitionField)
	assert.Equal(t, groups, s.Post)
}

func TestPlanEmptyCriteriaScansFallbackDescending(t *testing.T) {
	s := Plan(Criteria{}, testSchema())
	assert.Equal(t, StrategyIndexedQuery, s.Kind)
	assert.Equal(t, "gsi-all", s.Index)
	assert.True(t, s.SortNative)
	assert.True(t, s.Descending)
}

func TestPlanSortNative(t *testing.T) {
	tests := []struct {
		name       string
		sort       Sort
		wantNative bool
		wantDesc   bool
	}{
		{"no sort defaults to native descending", Sort{}, true, true},
		{"timestamp asc is native", Sort{Field: "UpdatedAt", Order: SortAsc}, true, false},
		{"timestamp desc is native", Sort{Field: "UpdatedAt", Order: SortDesc}, true, true},
		{"other field needs re-sort", Sort{Field: "Severity", Order: SortAsc}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Plan(Criteria{Sort: tt.sort}, testSchema())
			assert.Equal(t, tt.wantNative, s.SortNative)
			assert.Equal(t, tt.wantDesc, s.Descending)
		})
	}
}

func TestEqualsValues(t *testing.T) {
	groups := []Group{
		{Operator: OperatorAnd, Filters: []Filter{
			{Field: "AccountId", Comparison: ComparisonEquals, Value: "acct-1"},
			{Field: "AccountId", Comparison: ComparisonNotEquals, Value: "acct-9"},
		}},
		{Operator: OperatorOr, Filters: []Filter{
			{Field: "AccountId", Comparison: ComparisonEquals, Value: "acct-2"},
			{Field: "AccountId", Comparison: ComparisonEquals, Value: "acct-1"},
		}},
	}

	assert.Equal(t, []string{"acct-1", "acct-2"}, EqualsValues(groups, "AccountId"))
	assert.Empty(t, EqualsValues(groups, "ResourceId"))
}

func TestShapeHash(t *testing.T) {
	a := Criteria{Groups: []Group{{Operator: OperatorAnd, Filters: []Filter{
		{Field: "Severity", Comparison: ComparisonEquals, Value: "HIGH"},
	}}}}
	same := Criteria{Groups: []Group{{Operator: OperatorAnd, Filters: []Filter{
		{Field: "Severity", Comparison: ComparisonEquals, Value: "HIGH"},
	}}}}
	different := Criteria{Groups: []Group{{Operator: OperatorAnd, Filters: []Filter{
		{Field: "Severity", Comparison: ComparisonEquals, Value: "LOW"},
	}}}}

	assert.Equal(t, a.ShapeHash(), same.ShapeHash())
	assert.NotEqual(t, a.ShapeHash(), different.ShapeHash())

	// Page position does not change the shape.
	paged := same
	paged.NextToken = "token"
	paged.PageSize = 10
	assert.Equal(t, a.ShapeHash(), paged.ShapeHash())
}
