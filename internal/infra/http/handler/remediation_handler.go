package handler

import (
	"net/http"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/internal/infra/http/middleware"
	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
	"github.com/remedyops/findings-api/pkg/validator"
)

// RemediationHandler handles the remediation history endpoints.
type RemediationHandler struct {
	remediations *app.RemediationService
	auth         *app.AuthService
	validate     *validator.Validator
	log          *logger.Logger
}

// NewRemediationHandler creates a new RemediationHandler.
func NewRemediationHandler(remediations *app.RemediationService, auth *app.AuthService, validate *validator.Validator, log *logger.Logger) *RemediationHandler {
	return &RemediationHandler{
		remediations: remediations,
		auth:         auth,
		validate:     validate,
		log:          log.With("handler", "remediation"),
	}
}

// RemediationExecutionDTO is the external representation of one execution.
type RemediationExecutionDTO struct {
	FindingID       string `json:"FindingId"`
	ExecutionID     string `json:"ExecutionId"`
	FindingType     string `json:"FindingType"`
	AccountID       string `json:"AccountId"`
	ResourceID      string `json:"ResourceId,omitempty"`
	Action          string `json:"Action"`
	ExecutionStatus string `json:"ExecutionStatus"`
	Message         string `json:"Message,omitempty"`
	StartedAt       string `json:"StartedAt"`
	UpdatedAt       string `json:"UpdatedAt"`
}

func toExecutionDTO(e *remediation.Event) RemediationExecutionDTO {
	return RemediationExecutionDTO{
		FindingID:       e.FindingID(),
		ExecutionID:     e.ExecutionID(),
		FindingType:     e.FindingType(),
		AccountID:       e.AccountID(),
		ResourceID:      e.ResourceID(),
		Action:          e.Action(),
		ExecutionStatus: e.Status().String(),
		Message:         e.Message(),
		StartedAt:       search.FormatTime(e.StartedAt()),
		UpdatedAt:       search.FormatTime(e.UpdatedAt()),
	}
}

// RemediationSearchResponse is one page of execution history results.
type RemediationSearchResponse struct {
	RemediationExecutions []RemediationExecutionDTO `json:"RemediationExecutions"`
	NextToken             string                    `json:"NextToken,omitempty"`
}

// Search handles POST /api/v1/remediations/search.
func (h *RemediationHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondError(w, h.log, err)
		return
	}
	criteria := req.toCriteria()

	rctx := accesscontrol.RuleContext{}
	if types := search.EqualsValues(criteria.Groups, "FindingType"); len(types) > 0 {
		rctx[app.RuleContextFindingType] = types[0]
	}

	user := middleware.UserFromContext(r.Context())
	if err := h.auth.Authorize(user, app.ReadRemediationsRule(), rctx); err != nil {
		respondError(w, h.log, err)
		return
	}

	result, err := h.remediations.Search(r.Context(), user, criteria)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	resp := RemediationSearchResponse{
		RemediationExecutions: make([]RemediationExecutionDTO, 0, len(result.Items)),
		NextToken:             result.NextToken,
	}
	for _, e := range result.Items {
		resp.RemediationExecutions = append(resp.RemediationExecutions, toExecutionDTO(e))
	}
	respondJSON(w, http.StatusOK, resp)
}
