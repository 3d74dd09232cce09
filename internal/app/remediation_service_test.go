package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/logger"
)

func newRemediationServiceFixture(grants *stubGrants) (*RemediationService, *stubFindings, *stubHistory) {
	findings := newStubFindings()
	history := newStubHistory()
	svc := NewRemediationService(history, findings, newTestAuth(grants), logger.NewNop())
	return svc, findings, history
}

func seedExecution(t *testing.T, history *stubHistory, findingID, executionID string) *remediation.Event {
	t.Helper()
	event, err := remediation.NewEvent(findingID, executionID, "acct-1", "Remediate", false)
	require.NoError(t, err)
	require.NoError(t, history.Create(context.Background(), event))
	return event
}

func TestMarkRunning(t *testing.T) {
	svc, _, history := newRemediationServiceFixture(openGrants())
	seedExecution(t, history, "t:001", "exec-1")

	err := svc.MarkRunning(context.Background(), "t:001", "exec-1")
	require.NoError(t, err)

	event, err := history.GetByID(context.Background(), remediation.ComposeID("t:001", "exec-1"))
	require.NoError(t, err)
	assert.Equal(t, remediation.ExecutionInProgress, event.Status())
	assert.Equal(t, "remediation-pipeline", event.LastUpdatedBy())

	err = svc.MarkRunning(context.Background(), "t:001", "exec-404")
	assert.ErrorIs(t, err, remediation.ErrEventNotFound)
}

func TestRecordOutcomeSuccess(t *testing.T) {
	svc, findings, history := newRemediationServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusInProgress)
	findings.items[f.ID()] = f
	seedExecution(t, history, "t:001", "exec-1")

	err := svc.RecordOutcome(context.Background(), "t:001", "exec-1", true, "bucket policy restored")
	require.NoError(t, err)

	event, err := history.GetByID(context.Background(), remediation.ComposeID("t:001", "exec-1"))
	require.NoError(t, err)
	assert.Equal(t, remediation.ExecutionSucceeded, event.Status())
	assert.Equal(t, "bucket policy restored", event.Message())
	assert.Equal(t, "remediation-pipeline", event.LastUpdatedBy())

	assert.Equal(t, finding.StatusResolved, findings.items["t:001"].Status())
	assert.Equal(t, "remediation-pipeline", findings.items["t:001"].LastUpdatedBy())
}

func TestRecordOutcomeFailure(t *testing.T) {
	svc, findings, history := newRemediationServiceFixture(openGrants())
	f := testFinding(t, "t:001", "acct-1", finding.StatusInProgress)
	findings.items[f.ID()] = f
	seedExecution(t, history, "t:001", "exec-1")

	err := svc.RecordOutcome(context.Background(), "t:001", "exec-1", false, "engine timeout")
	require.NoError(t, err)

	event, err := history.GetByID(context.Background(), remediation.ComposeID("t:001", "exec-1"))
	require.NoError(t, err)
	assert.Equal(t, remediation.ExecutionFailed, event.Status())
	assert.Equal(t, finding.StatusFailed, findings.items["t:001"].Status())
}

func TestRecordOutcomeToleratesDeletedFinding(t *testing.T) {
	svc, _, history := newRemediationServiceFixture(openGrants())
	seedExecution(t, history, "t:001", "exec-1")

	// The finding can be removed while its execution is in flight; the
	// history record alone carries the outcome.
	err := svc.RecordOutcome(context.Background(), "t:001", "exec-1", true, "done")
	require.NoError(t, err)

	event, err := history.GetByID(context.Background(), remediation.ComposeID("t:001", "exec-1"))
	require.NoError(t, err)
	assert.Equal(t, remediation.ExecutionSucceeded, event.Status())
}

func TestRecordOutcomeUnknownExecution(t *testing.T) {
	svc, _, _ := newRemediationServiceFixture(openGrants())

	err := svc.RecordOutcome(context.Background(), "t:001", "exec-404", true, "done")
	assert.ErrorIs(t, err, remediation.ErrEventNotFound)
}

func TestGetByIDHidesOutOfScopeEvents(t *testing.T) {
	grants := &stubGrants{accounts: map[string][]string{"owner": {"acct-2"}}}
	svc, _, history := newRemediationServiceFixture(grants)
	seedExecution(t, history, "t:001", "exec-1")

	_, err := svc.GetByID(context.Background(), ownerUser(), remediation.ComposeID("t:001", "exec-1"))
	assert.ErrorIs(t, err, remediation.ErrEventNotFound)

	got, err := svc.GetByID(context.Background(), adminUser(), remediation.ComposeID("t:001", "exec-1"))
	require.NoError(t, err)
	assert.Equal(t, "exec-1", got.ExecutionID())
}
