package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/internal/infra/http/middleware"
	"github.com/remedyops/findings-api/pkg/apierror"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
	"github.com/remedyops/findings-api/pkg/validator"
)

// FindingHandler handles the finding endpoints.
type FindingHandler struct {
	findings *app.FindingService
	exports  *app.ExportService
	auth     *app.AuthService
	validate *validator.Validator
	log      *logger.Logger
}

// NewFindingHandler creates a new FindingHandler.
func NewFindingHandler(findings *app.FindingService, exports *app.ExportService, auth *app.AuthService, validate *validator.Validator, log *logger.Logger) *FindingHandler {
	return &FindingHandler{
		findings: findings,
		exports:  exports,
		auth:     auth,
		validate: validate,
		log:      log.With("handler", "finding"),
	}
}

// FindingDTO is the external representation of a finding. Audit and
// retention attributes stay internal.
type FindingDTO struct {
	ID                string `json:"Id"`
	FindingType       string `json:"FindingType"`
	AccountID         string `json:"AccountId"`
	ResourceID        string `json:"ResourceId"`
	ResourceType      string `json:"ResourceType,omitempty"`
	Severity          string `json:"Severity"`
	RemediationStatus string `json:"RemediationStatus"`
	Title             string `json:"Title"`
	Description       string `json:"Description,omitempty"`
	CreatedAt         string `json:"CreatedAt"`
	UpdatedAt         string `json:"UpdatedAt"`
}

func toFindingDTO(f *finding.Finding) FindingDTO {
	return FindingDTO{
		ID:                f.ID(),
		FindingType:       f.FindingType(),
		AccountID:         f.AccountID(),
		ResourceID:        f.ResourceID(),
		ResourceType:      f.ResourceType(),
		Severity:          f.Severity().String(),
		RemediationStatus: f.Status().String(),
		Title:             f.Title(),
		Description:       f.Description(),
		CreatedAt:         search.FormatTime(f.CreatedAt()),
		UpdatedAt:         search.FormatTime(f.UpdatedAt()),
	}
}

// FindingSearchResponse is one page of finding search results.
type FindingSearchResponse struct {
	Findings  []FindingDTO `json:"Findings"`
	NextToken string       `json:"NextToken,omitempty"`
}

// Search handles POST /api/v1/findings/search.
func (h *FindingHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if err := h.auth.Authorize(user, app.ReadFindingsRule(), nil); err != nil {
		respondError(w, h.log, err)
		return
	}

	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondError(w, h.log, err)
		return
	}

	result, err := h.findings.Search(r.Context(), user, req.toCriteria())
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	resp := FindingSearchResponse{
		Findings:  make([]FindingDTO, 0, len(result.Items)),
		NextToken: result.NextToken,
	}
	for _, f := range result.Items {
		resp.Findings = append(resp.Findings, toFindingDTO(f))
	}
	respondJSON(w, http.StatusOK, resp)
}

// ActionRequest is a bulk action request against findings.
type ActionRequest struct {
	ActionType string   `json:"actionType" validate:"required,action_type"`
	FindingIDs []string `json:"findingIds" validate:"required,min=1,dive,required"`
}

// ActionResponse reports a completed or started bulk action.
type ActionResponse struct {
	Status     string   `json:"status"`
	AppliedIDs []string `json:"appliedIds,omitempty"`
	SkippedIDs []string `json:"skippedIds,omitempty"`
}

// Action handles POST /api/v1/findings/actions.
func (h *FindingHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondError(w, h.log, err)
		return
	}
	action := finding.ActionType(req.ActionType)

	user := middleware.UserFromContext(r.Context())
	if err := h.auth.Authorize(user, app.ActionRule(action), nil); err != nil {
		respondError(w, h.log, err)
		return
	}

	result, err := h.findings.ApplyAction(r.Context(), user, action, req.FindingIDs)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	status := http.StatusOK
	if action.IsRemediation() {
		status = http.StatusAccepted
	}
	respondJSON(w, status, ActionResponse{
		Status:     result.Status,
		AppliedIDs: result.AppliedIDs,
		SkippedIDs: result.SkippedIDs,
	})
}

// SaveFindingRequest upserts one finding from the ingest path.
type SaveFindingRequest struct {
	ID                string `json:"Id"`
	FindingType       string `json:"FindingType" validate:"required_without=ID"`
	AccountID         string `json:"AccountId" validate:"required"`
	ResourceID        string `json:"ResourceId" validate:"required"`
	ResourceType      string `json:"ResourceType"`
	Severity          string `json:"Severity" validate:"required,severity"`
	RemediationStatus string `json:"RemediationStatus" validate:"omitempty,remediation_status"`
	Title             string `json:"Title" validate:"required"`
	Description       string `json:"Description"`
	UpdatedAt         string `json:"UpdatedAt"`
}

// SaveFindingResponse reports the stored finding identifier.
type SaveFindingResponse struct {
	ID      string `json:"Id"`
	Created bool   `json:"Created"`
}

// Save handles PUT /api/v1/findings.
func (h *FindingHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if err := h.auth.Authorize(user, app.WriteFindingsRule(), nil); err != nil {
		respondError(w, h.log, err)
		return
	}

	var req SaveFindingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondError(w, h.log, err)
		return
	}

	f, err := h.toFinding(req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	created, err := h.findings.Save(r.Context(), user, f)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, SaveFindingResponse{ID: f.ID(), Created: created})
}

func (h *FindingHandler) toFinding(req SaveFindingRequest) (*finding.Finding, error) {
	updatedAt := time.Now().UTC()
	if req.UpdatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, req.UpdatedAt)
		if err != nil {
			return nil, apierror.BadRequest("UpdatedAt must be an RFC 3339 timestamp")
		}
		updatedAt = t.UTC()
	}

	status := finding.StatusNew
	if req.RemediationStatus != "" {
		status = finding.RemediationStatus(req.RemediationStatus)
	}

	if req.ID == "" {
		f, err := finding.New(req.FindingType, req.AccountID, req.ResourceID, finding.Severity(req.Severity), req.Title, updatedAt)
		if err != nil {
			return nil, err
		}
		f.SetDescription(req.Description)
		f.SetResourceType(req.ResourceType)
		return f, nil
	}

	return finding.Reconstitute(
		req.ID,
		req.AccountID, req.ResourceID, req.ResourceType,
		finding.Severity(req.Severity),
		status,
		req.Title, req.Description,
		time.Now().UTC(), updatedAt,
		"",
		nil,
	)
}

// Delete handles DELETE /api/v1/findings/{findingType}/{findingID}.
func (h *FindingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if err := h.auth.Authorize(user, app.WriteFindingsRule(), nil); err != nil {
		respondError(w, h.log, err)
		return
	}

	findingType := chi.URLParam(r, "findingType")
	rest := chi.URLParam(r, "findingID")
	id := findingType + ":" + rest

	if err := h.findings.Delete(r.Context(), user, id); err != nil {
		respondError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportResponse reports a finished export document.
type ExportResponse struct {
	DownloadURL   string `json:"downloadUrl"`
	Status        string `json:"status"`
	TotalExported int    `json:"totalExported"`
	Message       string `json:"message,omitempty"`
}

// Export handles POST /api/v1/findings/export. The request carries the
// search shape minus pagination.
func (h *FindingHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if err := h.auth.Authorize(user, app.ReadFindingsRule(), nil); err != nil {
		respondError(w, h.log, err)
		return
	}

	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondError(w, h.log, err)
		return
	}

	result, err := h.exports.Export(r.Context(), user, req.toCriteria())
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	resp := ExportResponse{
		DownloadURL:   result.URL,
		Status:        "complete",
		TotalExported: result.RecordCount,
	}
	if result.Truncated {
		resp.Status = "partial"
		resp.Message = "Export truncated at the record cap; narrow the filters to export the full set"
	}
	respondJSON(w, http.StatusOK, resp)
}
