package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/remedyops/findings-api/internal/metrics"
	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
)

// resolveConcurrency bounds the parallel target resolution of a bulk action.
const resolveConcurrency = 10

// historyRetention is how long remediation execution events stay queryable
// before the store expires them.
const historyRetention = 365 * 24 * time.Hour

// RemediationDispatcher hands a finding to the asynchronous remediation
// pipeline and returns the execution identifier assigned to the run.
type RemediationDispatcher interface {
	StartExecution(ctx context.Context, f *finding.Finding, requestTicket bool) (string, error)
}

// ActionResult reports the outcome of a bulk action.
type ActionResult struct {
	Action finding.ActionType

	// Status is IN_PROGRESS for remediation actions, which complete
	// asynchronously, and APPLIED for synchronous status transitions.
	Status string

	// AppliedIDs lists the findings the action was applied to. SkippedIDs
	// lists requested identifiers that resolved to nothing visible; they are
	// reported, never failed on, as long as at least one target resolved.
	AppliedIDs []string
	SkippedIDs []string

	// ExecutionIDs maps finding ID to the execution started for it, for
	// remediation actions only.
	ExecutionIDs map[string]string
}

// FindingService orchestrates finding reads, writes and bulk actions.
type FindingService struct {
	findings   finding.Repository
	history    remediation.Repository
	auth       *AuthService
	dispatcher RemediationDispatcher
	log        *logger.Logger
}

// NewFindingService creates a new FindingService.
func NewFindingService(
	findings finding.Repository,
	history remediation.Repository,
	auth *AuthService,
	dispatcher RemediationDispatcher,
	log *logger.Logger,
) *FindingService {
	return &FindingService{
		findings:   findings,
		history:    history,
		auth:       auth,
		dispatcher: dispatcher,
		log:        log.With("service", "finding"),
	}
}

// Search executes a scoped finding search. Accounts named in the filter set
// are reconciled against the caller's grant before the store is touched.
func (s *FindingService) Search(ctx context.Context, user *accesscontrol.AuthenticatedUser, criteria search.Criteria) (search.Result[*finding.Finding], error) {
	requested := search.EqualsValues(criteria.Groups, search.FieldAccount)
	scope, err := s.auth.DeriveScope(ctx, user, requested)
	if err != nil {
		return search.Result[*finding.Finding]{}, err
	}
	return s.findings.Search(ctx, criteria, scope)
}

// Save upserts a finding from the ingest path. A fresh identifier is created;
// a known identifier is updated only when the incoming record is strictly
// newer than the stored one. Returns whether a new record was created.
func (s *FindingService) Save(ctx context.Context, user *accesscontrol.AuthenticatedUser, f *finding.Finding) (bool, error) {
	scope, err := s.auth.DeriveScope(ctx, user, nil)
	if err != nil {
		return false, err
	}
	if !scope.Allows(f.AccountID()) {
		return false, fmt.Errorf("%w: account %s is outside the caller's grant", shared.ErrForbidden, f.AccountID())
	}

	f.StampUpdatedBy(user.Username)

	err = s.findings.Create(ctx, f)
	if err == nil {
		s.log.Info("finding created", "finding_id", f.ID(), "account_id", f.AccountID())
		return true, nil
	}
	if !finding.IsFindingExists(err) {
		return false, err
	}

	if err := s.findings.Update(ctx, f); err != nil {
		return false, err
	}
	s.log.Info("finding updated", "finding_id", f.ID(), "account_id", f.AccountID())
	return false, nil
}

// Delete removes a finding. Deleting an absent finding succeeds.
func (s *FindingService) Delete(ctx context.Context, user *accesscontrol.AuthenticatedUser, id string) error {
	if err := s.findings.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("finding deleted", "finding_id", id, "user", user.Username)
	return nil
}

// ApplyAction applies a bulk action to the requested findings.
//
// Targets resolve in parallel through a request-scoped cache; identifiers
// that resolve to nothing visible to the caller are skipped, and the request
// only fails when not a single target resolves. Write failures on resolved
// targets do surface as request failures.
func (s *FindingService) ApplyAction(ctx context.Context, user *accesscontrol.AuthenticatedUser, action finding.ActionType, ids []string) (*ActionResult, error) {
	scope, err := s.auth.DeriveScope(ctx, user, nil)
	if err != nil {
		return nil, err
	}

	cache := newItemCache[*finding.Finding]()
	targets, skipped := s.resolveTargets(ctx, ids, scope, cache)
	if len(targets) == 0 {
		metrics.ActionsTotal.WithLabelValues(action.String(), "rejected").Inc()
		return nil, finding.ErrNoFindingsFound
	}

	result := &ActionResult{
		Action:     action,
		Status:     "APPLIED",
		SkippedIDs: skipped,
	}
	if action.IsRemediation() {
		result.Status = remediation.ExecutionInProgress.String()
		result.ExecutionIDs = make(map[string]string, len(targets))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for _, f := range targets {
		f := f
		g.Go(func() error {
			if err := s.applyOne(gctx, user, action, f, cache, &mu, result); err != nil {
				return err
			}
			mu.Lock()
			result.AppliedIDs = append(result.AppliedIDs, f.ID())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.ActionsTotal.WithLabelValues(action.String(), "failed").Inc()
		return nil, err
	}

	metrics.ActionsTotal.WithLabelValues(action.String(), "applied").Inc()
	s.log.Info("bulk action applied",
		"action", action.String(),
		"applied", len(result.AppliedIDs),
		"skipped", len(result.SkippedIDs),
		"user", user.Username,
	)
	return result, nil
}

// resolveTargets fetches the requested findings in parallel. Misses, lookup
// failures and records outside the caller's scope all count as skips.
func (s *FindingService) resolveTargets(ctx context.Context, ids []string, scope search.Scope, cache *itemCache[*finding.Finding]) ([]*finding.Finding, []string) {
	resolved := make([]*finding.Finding, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if f, ok := cache.Get(id); ok {
				resolved[i] = f
				return nil
			}
			f, err := s.findings.GetByID(gctx, id)
			if err != nil {
				if !finding.IsFindingNotFound(err) {
					s.log.Warn("target lookup failed, treated as miss", "finding_id", id, "error", err)
				}
				return nil
			}
			cache.Put(id, f)
			resolved[i] = f
			return nil
		})
	}
	_ = g.Wait()

	var targets []*finding.Finding
	var skipped []string
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		f := resolved[i]
		if f == nil || !scope.Allows(f.AccountID()) {
			skipped = append(skipped, id)
			continue
		}
		if seen[f.ID()] {
			continue
		}
		seen[f.ID()] = true
		targets = append(targets, f)
	}
	return targets, skipped
}

func (s *FindingService) applyOne(ctx context.Context, user *accesscontrol.AuthenticatedUser, action finding.ActionType, f *finding.Finding, cache *itemCache[*finding.Finding], mu *sync.Mutex, result *ActionResult) error {
	switch action {
	case finding.ActionSuppress:
		return s.transition(ctx, f, finding.StatusSuppressed, user.Username, cache)
	case finding.ActionUnsuppress:
		return s.transition(ctx, f, finding.StatusNew, user.Username, cache)
	case finding.ActionRemediate, finding.ActionRemediateAndGenerateTicket:
		execID, err := s.startRemediation(ctx, user, action, f, cache)
		if err != nil {
			return err
		}
		mu.Lock()
		result.ExecutionIDs[f.ID()] = execID
		mu.Unlock()
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func (s *FindingService) transition(ctx context.Context, f *finding.Finding, status finding.RemediationStatus, by string, cache *itemCache[*finding.Finding]) error {
	defer cache.Invalidate(f.ID())
	f.SetStatus(status, by)
	return s.findings.Update(ctx, f)
}

// startRemediation dispatches the execution, records the history event and
// marks the finding in progress. Any failure in the chain fails the request.
func (s *FindingService) startRemediation(ctx context.Context, user *accesscontrol.AuthenticatedUser, action finding.ActionType, f *finding.Finding, cache *itemCache[*finding.Finding]) (string, error) {
	requestTicket := action == finding.ActionRemediateAndGenerateTicket

	execID, err := s.dispatcher.StartExecution(ctx, f, requestTicket)
	if err != nil {
		return "", fmt.Errorf("dispatch remediation for %s: %w", f.ID(), err)
	}

	event, err := remediation.NewEvent(f.ID(), execID, f.AccountID(), action.String(), requestTicket)
	if err != nil {
		return "", err
	}
	event.SetResourceID(f.ResourceID())
	event.StampUpdatedBy(user.Username)
	event.SetExpiresAt(time.Now().Add(historyRetention))

	if err := s.history.Create(ctx, event); err != nil {
		return "", fmt.Errorf("record remediation event for %s: %w", f.ID(), err)
	}
	if err := s.transition(ctx, f, finding.StatusInProgress, user.Username, cache); err != nil {
		return "", err
	}
	return execID, nil
}
