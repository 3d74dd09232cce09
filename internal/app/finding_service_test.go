package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
)

func newFindingServiceFixture(grants *stubGrants) (*FindingService, *stubFindings, *stubHistory, *stubDispatcher) {
	findings := newStubFindings()
	history := newStubHistory()
	dispatcher := newStubDispatcher()
	svc := NewFindingService(findings, history, newTestAuth(grants), dispatcher, logger.NewNop())
	return svc, findings, history, dispatcher
}

func openGrants() *stubGrants {
	return &stubGrants{accounts: map[string][]string{}}
}

func TestApplyActionRejectsWhenNothingResolves(t *testing.T) {
	svc, _, _, _ := newFindingServiceFixture(openGrants())

	_, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionSuppress, []string{"t:404", "t:405"})
	assert.ErrorIs(t, err, finding.ErrNoFindingsFound)
}

func TestApplyActionSkipsMissesAndApplies(t *testing.T) {
	svc, findings, _, _ := newFindingServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	findings.items[f.ID()] = f

	result, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionSuppress, []string{"t:001", "t:404"})
	require.NoError(t, err)

	assert.Equal(t, "APPLIED", result.Status)
	assert.Equal(t, []string{"t:001"}, result.AppliedIDs)
	assert.Equal(t, []string{"t:404"}, result.SkippedIDs)
	assert.Equal(t, finding.StatusSuppressed, findings.items["t:001"].Status())
	assert.Equal(t, "admin", findings.items["t:001"].LastUpdatedBy())
}

func TestApplyActionUnsuppressRestoresNew(t *testing.T) {
	svc, findings, _, _ := newFindingServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusSuppressed)
	findings.items[f.ID()] = f

	result, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionUnsuppress, []string{"t:001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t:001"}, result.AppliedIDs)
	assert.Equal(t, finding.StatusNew, findings.items["t:001"].Status())
}

func TestApplyActionSkipsTargetsOutsideGrant(t *testing.T) {
	grants := &stubGrants{accounts: map[string][]string{"owner": {"acct-1"}}}
	svc, findings, _, _ := newFindingServiceFixture(grants)
	mine := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	theirs := testFinding(t, "t:002", "acct-2", finding.StatusNew)
	findings.items[mine.ID()] = mine
	findings.items[theirs.ID()] = theirs

	result, err := svc.ApplyAction(context.Background(), ownerUser(), finding.ActionSuppress, []string{"t:001", "t:002"})
	require.NoError(t, err)

	assert.Equal(t, []string{"t:001"}, result.AppliedIDs)
	assert.Equal(t, []string{"t:002"}, result.SkippedIDs)
	assert.Equal(t, finding.StatusNew, findings.items["t:002"].Status())
}

func TestApplyActionDeduplicatesTargets(t *testing.T) {
	svc, findings, _, _ := newFindingServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	findings.items[f.ID()] = f

	result, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionSuppress, []string{"t:001", "t:001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t:001"}, result.AppliedIDs)
	assert.Len(t, findings.updates, 1)
}

func TestApplyActionWriteFailureSurfaces(t *testing.T) {
	svc, findings, _, _ := newFindingServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	findings.items[f.ID()] = f
	findings.updateErr["t:001"] = errors.New("write throttled")

	_, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionSuppress, []string{"t:001"})
	assert.ErrorContains(t, err, "write throttled")
}

func TestApplyActionRemediateStartsExecution(t *testing.T) {
	svc, findings, history, dispatcher := newFindingServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	findings.items[f.ID()] = f

	result, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionRemediate, []string{"t:001"})
	require.NoError(t, err)

	assert.Equal(t, remediation.ExecutionInProgress.String(), result.Status)
	execID := result.ExecutionIDs["t:001"]
	require.NotEmpty(t, execID)

	event, err := history.GetByID(context.Background(), remediation.ComposeID("t:001", execID))
	require.NoError(t, err)
	assert.Equal(t, remediation.ExecutionPending, event.Status())
	assert.Equal(t, "acct-1", event.AccountID())
	assert.Equal(t, "res-t:001", event.ResourceID())
	assert.False(t, event.TicketRequested())
	require.NotNil(t, event.ExpiresAt())
	assert.True(t, event.ExpiresAt().After(time.Now().Add(300*24*time.Hour)))

	assert.Equal(t, finding.StatusInProgress, findings.items["t:001"].Status())
	assert.False(t, dispatcher.tickets["t:001"])
}

func TestApplyActionRemediateWithTicket(t *testing.T) {
	svc, findings, history, dispatcher := newFindingServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	findings.items[f.ID()] = f

	result, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionRemediateAndGenerateTicket, []string{"t:001"})
	require.NoError(t, err)

	assert.True(t, dispatcher.tickets["t:001"])
	event, err := history.GetByID(context.Background(), remediation.ComposeID("t:001", result.ExecutionIDs["t:001"]))
	require.NoError(t, err)
	assert.True(t, event.TicketRequested())
}

func TestApplyActionDispatchFailureSurfaces(t *testing.T) {
	svc, findings, _, dispatcher := newFindingServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	findings.items[f.ID()] = f
	dispatcher.err = errors.New("broker unavailable")

	_, err := svc.ApplyAction(context.Background(), adminUser(), finding.ActionRemediate, []string{"t:001"})
	assert.ErrorContains(t, err, "broker unavailable")
	// The finding must not move while nothing was dispatched.
	assert.Equal(t, finding.StatusNew, findings.items["t:001"].Status())
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	svc, findings, _, _ := newFindingServiceFixture(openGrants())

	f := testFinding(t, "t:001", "acct-1", finding.StatusNew)
	created, err := svc.Save(context.Background(), adminUser(), f)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "admin", findings.items["t:001"].LastUpdatedBy())

	newer := testFinding(t, "t:001", "acct-1", finding.StatusResolved)
	created, err = svc.Save(context.Background(), adminUser(), newer)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, finding.StatusResolved, findings.items["t:001"].Status())
}

func TestSaveOutsideGrantIsForbidden(t *testing.T) {
	grants := &stubGrants{accounts: map[string][]string{"owner": {"acct-1"}}}
	svc, findings, _, _ := newFindingServiceFixture(grants)

	f := testFinding(t, "t:001", "acct-9", finding.StatusNew)
	_, err := svc.Save(context.Background(), ownerUser(), f)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, findings.items)
}

func TestSearchReconcilesRequestedAccountsBeforeStore(t *testing.T) {
	grants := &stubGrants{accounts: map[string][]string{"owner": {"acct-1"}}}
	svc, findings, _, _ := newFindingServiceFixture(grants)

	_, err := svc.Search(context.Background(), ownerUser(), search.Criteria{
		Groups: []search.Group{{
			Operator: search.OperatorAnd,
			Filters: []search.Filter{
				{Field: search.FieldAccount, Comparison: search.ComparisonEquals, Value: "acct-9"},
			},
		}},
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, findings.searchCalls)
}

func TestDeleteAbsentFindingSucceeds(t *testing.T) {
	svc, _, _, _ := newFindingServiceFixture(openGrants())
	assert.NoError(t, svc.Delete(context.Background(), adminUser(), "t:404"))
}
