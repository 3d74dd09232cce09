package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/domain/remediation"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/search"
)

// stubFindings is an in-memory finding.Repository with error injection.
type stubFindings struct {
	mu      sync.Mutex
	items   map[string]*finding.Finding
	pages   []search.Result[*finding.Finding]
	updates []string

	updateErr   map[string]error
	searchCalls []search.Criteria
}

func newStubFindings() *stubFindings {
	return &stubFindings{
		items:     make(map[string]*finding.Finding),
		updateErr: make(map[string]error),
	}
}

func (s *stubFindings) Create(_ context.Context, f *finding.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[f.ID()]; ok {
		return finding.NewFindingExistsError(f.ID())
	}
	s.items[f.ID()] = f
	return nil
}

func (s *stubFindings) Update(_ context.Context, f *finding.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[f.ID()]; err != nil {
		return err
	}
	if _, ok := s.items[f.ID()]; !ok {
		return finding.NewFindingNotFoundError(f.ID())
	}
	s.items[f.ID()] = f
	s.updates = append(s.updates, f.ID())
	return nil
}

func (s *stubFindings) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *stubFindings) GetByID(_ context.Context, id string) (*finding.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.items[id]
	if !ok {
		return nil, finding.NewFindingNotFoundError(id)
	}
	return f, nil
}

func (s *stubFindings) Search(_ context.Context, criteria search.Criteria, _ search.Scope) (search.Result[*finding.Finding], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls = append(s.searchCalls, criteria)
	if len(s.pages) == 0 {
		return search.Result[*finding.Finding]{}, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

// stubHistory is an in-memory remediation.Repository.
type stubHistory struct {
	mu     sync.Mutex
	events map[string]*remediation.Event
}

func newStubHistory() *stubHistory {
	return &stubHistory{events: make(map[string]*remediation.Event)}
}

func (s *stubHistory) Create(_ context.Context, e *remediation.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID()]; ok {
		return fmt.Errorf("%w: %s", remediation.ErrEventExists, e.ID())
	}
	s.events[e.ID()] = e
	return nil
}

func (s *stubHistory) Update(_ context.Context, e *remediation.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID()]; !ok {
		return remediation.NewEventNotFoundError(e.ID())
	}
	s.events[e.ID()] = e
	return nil
}

func (s *stubHistory) GetByID(_ context.Context, id string) (*remediation.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, remediation.NewEventNotFoundError(id)
	}
	return e, nil
}

func (s *stubHistory) Search(_ context.Context, _ search.Criteria, _ search.Scope) (search.Result[*remediation.Event], error) {
	return search.Result[*remediation.Event]{}, nil
}

// stubDispatcher hands out sequential execution identifiers.
type stubDispatcher struct {
	mu      sync.Mutex
	n       int
	err     error
	tickets map[string]bool
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{tickets: make(map[string]bool)}
}

func (d *stubDispatcher) StartExecution(_ context.Context, f *finding.Finding, requestTicket bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	d.n++
	d.tickets[f.ID()] = requestTicket
	return fmt.Sprintf("exec-%d", d.n), nil
}

// stubGrants maps principals to account grants.
type stubGrants struct {
	accounts map[string][]string
	err      error
}

func (s *stubGrants) GetAuthorizedAccounts(_ context.Context, principal string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	accounts, ok := s.accounts[principal]
	if !ok {
		return nil, accesscontrol.ErrGrantNotFound
	}
	return accounts, nil
}

func newTestAuth(grants accesscontrol.GrantRepository) *AuthService {
	return NewAuthService(grants, accesscontrol.DefaultClaimNames(), logger.NewNop())
}

func adminUser() *accesscontrol.AuthenticatedUser {
	return &accesscontrol.AuthenticatedUser{Username: "admin", Groups: []accesscontrol.Role{accesscontrol.RoleAdmin}}
}

func ownerUser() *accesscontrol.AuthenticatedUser {
	return &accesscontrol.AuthenticatedUser{Username: "owner", Groups: []accesscontrol.Role{accesscontrol.RoleAccountOwner}}
}

func testFinding(t *testing.T, id, account string, status finding.RemediationStatus) *finding.Finding {
	t.Helper()
	now := time.Now().UTC()
	f, err := finding.Reconstitute(id, account, "res-"+id, "", finding.SeverityHigh, status,
		"title", "", now.Add(-time.Hour), now.Add(-time.Minute), "", nil)
	require.NoError(t, err)
	return f
}
