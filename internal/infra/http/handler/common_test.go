package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyops/findings-api/pkg/apierror"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/search"
	"github.com/remedyops/findings-api/pkg/validator"
)

func TestToCriteria(t *testing.T) {
	req := SearchRequest{
		MaxResults: 25,
		NextToken:  "token",
		Filters: &Filters{
			CompositeFilters: []CompositeFilter{
				{
					Operator: "AND",
					StringFilters: []StringFilter{
						{FieldName: "AccountId", Filter: FilterValue{Value: "acct-1", Comparison: "EQUALS"}},
						{FieldName: "Severity", Filter: FilterValue{Value: "HIGH", Comparison: "EQUALS"}},
					},
				},
				{
					Operator: "OR",
					StringFilters: []StringFilter{
						{FieldName: "Title", Filter: FilterValue{Value: "bucket", Comparison: "CONTAINS"}},
					},
				},
			},
		},
		SortCriteria: []SortCriterion{
			{Field: "UpdatedAt", SortOrder: "asc"},
			{Field: "Severity", SortOrder: "desc"},
		},
	}

	c := req.toCriteria()

	assert.Equal(t, 25, c.PageSize)
	assert.Equal(t, "token", c.NextToken)
	require.Len(t, c.Groups, 2)
	assert.Equal(t, search.OperatorAnd, c.Groups[0].Operator)
	assert.Equal(t, search.Filter{Field: "AccountId", Comparison: search.ComparisonEquals, Value: "acct-1"}, c.Groups[0].Filters[0])
	assert.Equal(t, search.OperatorOr, c.Groups[1].Operator)

	// Only the first sort criterion is effective.
	assert.Equal(t, search.Sort{Field: "UpdatedAt", Order: search.SortAsc}, c.Sort)
}

func TestToCriteriaEmptyRequest(t *testing.T) {
	c := SearchRequest{}.toCriteria()
	assert.Empty(t, c.Groups)
	assert.Zero(t, c.PageSize)
	assert.Empty(t, c.Sort.Field)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"api error passes through", apierror.BadRequest("bad"), http.StatusBadRequest},
		{"validation errors", validator.ValidationErrors{{Field: "max_results", Message: "too big"}}, http.StatusUnprocessableEntity},
		{"domain validation", fmt.Errorf("%w: bad input", shared.ErrValidation), http.StatusBadRequest},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("%w: nope", shared.ErrForbidden), http.StatusForbidden},
		{"no findings resolved", finding.ErrNoFindingsFound, http.StatusNotFound},
		{"finding not found", finding.NewFindingNotFoundError("t:1"), http.StatusNotFound},
		{"event not found", remediation.NewEventNotFoundError("t:1#e"), http.StatusNotFound},
		{"finding exists", finding.NewFindingExistsError("t:1"), http.StatusConflict},
		{"stale write", fmt.Errorf("%w: newer stored", shared.ErrStaleWrite), http.StatusConflict},
		{"dependency failure", fmt.Errorf("%w: dynamo down", shared.ErrDependency), http.StatusBadGateway},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, mapError(tt.err).Status)
		})
	}
}

func TestMapErrorHidesInternalDetail(t *testing.T) {
	apiErr := mapError(errors.New("connection string postgres://secret"))
	assert.NotContains(t, apiErr.Message, "secret")

	apiErr = mapError(fmt.Errorf("%w: host redis:6379 unreachable", shared.ErrDependency))
	assert.NotContains(t, apiErr.Message, "redis")
}
