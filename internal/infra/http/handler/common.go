// Package handler contains the HTTP handlers for the findings API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/remedyops/findings-api/pkg/apierror"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
	"github.com/remedyops/findings-api/pkg/validator"
)

// SearchRequest is the external search request shape, shared by findings,
// remediation history and export.
type SearchRequest struct {
	MaxResults   int             `json:"MaxResults" validate:"omitempty,min=1,max=100"`
	Filters      *Filters        `json:"Filters" validate:"omitempty"`
	SortCriteria []SortCriterion `json:"SortCriteria" validate:"omitempty,dive"`
	NextToken    string          `json:"NextToken"`
}

// Filters carries the composite filter groups of a search request.
type Filters struct {
	CompositeFilters []CompositeFilter `json:"CompositeFilters" validate:"omitempty,dive"`
}

// CompositeFilter is one group of field filters combined by one operator.
type CompositeFilter struct {
	Operator      string         `json:"Operator" validate:"required,composite_op"`
	StringFilters []StringFilter `json:"StringFilters" validate:"required,min=1,dive"`
}

// StringFilter is a single field comparison.
type StringFilter struct {
	FieldName string      `json:"FieldName" validate:"required"`
	Filter    FilterValue `json:"Filter" validate:"required"`
}

// FilterValue is the comparison half of a string filter.
type FilterValue struct {
	Value      string `json:"Value" validate:"required"`
	Comparison string `json:"Comparison" validate:"required,comparison"`
}

// SortCriterion names a sort field and direction. Only the first criterion
// of a request is effective.
type SortCriterion struct {
	Field     string `json:"Field" validate:"required"`
	SortOrder string `json:"SortOrder" validate:"required,sort_order"`
}

// toCriteria converts the external request into the normalized search model.
func (r SearchRequest) toCriteria() search.Criteria {
	c := search.Criteria{
		PageSize:  r.MaxResults,
		NextToken: r.NextToken,
	}
	if r.Filters != nil {
		for _, cf := range r.Filters.CompositeFilters {
			g := search.Group{Operator: search.Operator(cf.Operator)}
			for _, sf := range cf.StringFilters {
				g.Filters = append(g.Filters, search.Filter{
					Field:      sf.FieldName,
					Comparison: search.Comparison(sf.Filter.Comparison),
					Value:      sf.Filter.Value,
				})
			}
			c.Groups = append(c.Groups, g)
		}
	}
	if len(r.SortCriteria) > 0 {
		c.Sort = search.Sort{
			Field: r.SortCriteria[0].Field,
			Order: search.SortOrder(r.SortCriteria[0].SortOrder),
		}
	}
	return c
}

// decodeJSON decodes a request body, rejecting unknown or malformed input.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apierror.BadRequest("Malformed request body")
	}
	return nil
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps domain errors onto the API error taxonomy and writes the
// response. Downstream failure detail is logged, never exposed.
func respondError(w http.ResponseWriter, log *logger.Logger, err error) {
	apiErr := mapError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Debug("request rejected", "status", apiErr.Status, "error", err)
	}
	apiErr.WriteJSON(w)
}

func mapError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return apierror.ValidationFailed("Validation failed", vErrs)
	}

	switch {
	case errors.Is(err, shared.ErrValidation):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		return apierror.Unauthorized("")
	case errors.Is(err, shared.ErrForbidden):
		return apierror.Forbidden("")
	case errors.Is(err, finding.ErrNoFindingsFound):
		return apierror.New(http.StatusNotFound, apierror.CodeNotFound, "No findings found for the provided IDs")
	case finding.IsFindingNotFound(err),
		errors.Is(err, remediation.ErrEventNotFound),
		errors.Is(err, shared.ErrNotFound):
		return apierror.NotFound("Record")
	case finding.IsFindingExists(err),
		errors.Is(err, remediation.ErrEventExists),
		errors.Is(err, shared.ErrAlreadyExists):
		return apierror.Conflict("Record already exists")
	case errors.Is(err, shared.ErrStaleWrite):
		return apierror.Conflict("A newer version of the record exists")
	case errors.Is(err, shared.ErrDependency):
		return apierror.DependencyFailed(err)
	default:
		return apierror.InternalError(err)
	}
}
