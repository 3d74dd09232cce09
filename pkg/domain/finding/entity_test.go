package finding

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyops/findings-api/pkg/search"
)

func TestNewIDEmbedsFindingType(t *testing.T) {
	id := NewID("s3-public-bucket")
	assert.True(t, strings.HasPrefix(id, "s3-public-bucket:"))

	findingType, ok := ParseID(id)
	require.True(t, ok)
	assert.Equal(t, "s3-public-bucket", findingType)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id     string
		wantOK bool
	}{
		{"s3-public:abc-123", true},
		{"no-separator", false},
		{":missing-type", false},
		{"missing-rest:", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, ok := ParseID(tt.id)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNewValidation(t *testing.T) {
	now := time.Now()

	_, err := New("", "acct-1", "res-1", SeverityHigh, "title", now)
	assert.Error(t, err)

	_, err = New("t", "", "res-1", SeverityHigh, "title", now)
	assert.Error(t, err)

	_, err = New("t", "acct-1", "res-1", Severity("BOGUS"), "title", now)
	assert.Error(t, err)

	f, err := New("t", "acct-1", "res-1", SeverityHigh, "title", now)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, f.Status())
	assert.Equal(t, "t", f.FindingType())
}

func TestReconstituteRejectsUnparsableID(t *testing.T) {
	_, err := Reconstitute("no-separator", "acct-1", "res-1", "", SeverityHigh, StatusNew, "title", "", time.Now(), time.Now(), "", nil)
	assert.Error(t, err)
}

func TestSortKeyOrdersChronologically(t *testing.T) {
	early, err := Reconstitute("t:1", "acct-1", "res-1", "", SeverityHigh, StatusNew, "title", "",
		time.Now(), time.Date(2026, 3, 1, 10, 0, 0, 5, time.UTC), "", nil)
	require.NoError(t, err)
	late, err := Reconstitute("t:2", "acct-1", "res-1", "", SeverityHigh, StatusNew, "title", "",
		time.Now(), time.Date(2026, 3, 1, 10, 0, 0, 500_000_000, time.UTC), "", nil)
	require.NoError(t, err)

	// Fixed-width fractional seconds keep string order equal to time order
	// even when one timestamp has a tiny fractional part.
	assert.Less(t, early.SortKey(), late.SortKey())
}

func TestSetStatusStampsAudit(t *testing.T) {
	f, err := New("t", "acct-1", "res-1", SeverityHigh, "title", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	before := f.UpdatedAt()

	f.SetStatus(StatusSuppressed, "ops-user")

	assert.Equal(t, StatusSuppressed, f.Status())
	assert.Equal(t, "ops-user", f.LastUpdatedBy())
	assert.True(t, f.UpdatedAt().After(before))
}

func TestFieldValue(t *testing.T) {
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f, err := Reconstitute("t:1", "acct-1", "res-1", "s3", SeverityCritical, StatusInProgress,
		"Public bucket", "desc", time.Now(), updated, "", nil)
	require.NoError(t, err)

	for field, want := range map[string]string{
		search.FieldID:        "t:1",
		search.FieldAccount:   "acct-1",
		search.FieldResource:  "res-1",
		"ResourceType":        "s3",
		search.FieldSeverity:  "CRITICAL",
		search.FieldStatus:    "IN_PROGRESS",
		"Title":               "Public bucket",
		"FindingType":         "t",
		search.FieldUpdatedAt: search.FormatTime(updated),
	} {
		got, ok := f.FieldValue(field)
		require.True(t, ok, field)
		assert.Equal(t, want, got, field)
	}

	_, ok := f.FieldValue("Unknown")
	assert.False(t, ok)
}
