package app

import (
	"context"

	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
)

// pipelinePrincipal stamps writes made on behalf of the remediation pipeline
// rather than an authenticated caller.
const pipelinePrincipal = "remediation-pipeline"

// RemediationService serves the remediation execution history.
type RemediationService struct {
	history  remediation.Repository
	findings finding.Repository
	auth     *AuthService
	log      *logger.Logger
}

// NewRemediationService creates a new RemediationService.
func NewRemediationService(history remediation.Repository, findings finding.Repository, auth *AuthService, log *logger.Logger) *RemediationService {
	return &RemediationService{
		history:  history,
		findings: findings,
		auth:     auth,
		log:      log.With("service", "remediation"),
	}
}

// Search executes a scoped search over the execution history.
func (s *RemediationService) Search(ctx context.Context, user *accesscontrol.AuthenticatedUser, criteria search.Criteria) (search.Result[*remediation.Event], error) {
	requested := search.EqualsValues(criteria.Groups, search.FieldAccount)
	scope, err := s.auth.DeriveScope(ctx, user, requested)
	if err != nil {
		return search.Result[*remediation.Event]{}, err
	}
	return s.history.Search(ctx, criteria, scope)
}

// GetByID retrieves one execution event by its composite identifier.
func (s *RemediationService) GetByID(ctx context.Context, user *accesscontrol.AuthenticatedUser, id string) (*remediation.Event, error) {
	scope, err := s.auth.DeriveScope(ctx, user, nil)
	if err != nil {
		return nil, err
	}
	event, err := s.history.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(event.AccountID()) {
		return nil, remediation.NewEventNotFoundError(id)
	}
	return event, nil
}

// MarkRunning records that the pipeline picked the execution up and is
// running it. Called from the pipeline worker, not from an authenticated
// request.
func (s *RemediationService) MarkRunning(ctx context.Context, findingID, executionID string) error {
	event, err := s.history.GetByID(ctx, remediation.ComposeID(findingID, executionID))
	if err != nil {
		return err
	}
	event.MarkInProgress()
	event.StampUpdatedBy(pipelinePrincipal)
	return s.history.Update(ctx, event)
}

// RecordOutcome writes the terminal result of an execution into the history
// and moves the finding to the matching status. Called from the pipeline
// worker, not from an authenticated request.
func (s *RemediationService) RecordOutcome(ctx context.Context, findingID, executionID string, succeeded bool, message string) error {
	event, err := s.history.GetByID(ctx, remediation.ComposeID(findingID, executionID))
	if err != nil {
		return err
	}

	status := remediation.ExecutionSucceeded
	findingStatus := finding.StatusResolved
	if !succeeded {
		status = remediation.ExecutionFailed
		findingStatus = finding.StatusFailed
	}
	event.Complete(status, message, pipelinePrincipal)
	if err := s.history.Update(ctx, event); err != nil {
		return err
	}

	f, err := s.findings.GetByID(ctx, findingID)
	if err != nil {
		if finding.IsFindingNotFound(err) {
			// The finding can be deleted while its execution is in flight;
			// the history record alone is the outcome then.
			s.log.Warn("finding gone before outcome recorded", "finding_id", findingID, "execution_id", executionID)
			return nil
		}
		return err
	}
	f.SetStatus(findingStatus, pipelinePrincipal)
	if err := s.findings.Update(ctx, f); err != nil {
		return err
	}

	s.log.Info("execution outcome recorded",
		"finding_id", findingID,
		"execution_id", executionID,
		"status", status.String(),
	)
	return nil
}
