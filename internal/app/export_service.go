package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/remedyops/findings-api/internal/metrics"
	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/pagination"
	"github.com/remedyops/findings-api/pkg/search"
)

// ExportSink stores a finished export document and returns a time-limited
// download URL for it.
type ExportSink interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
}

// ExportResult reports a finished export.
type ExportResult struct {
	URL         string
	RecordCount int

	// Truncated reports that the filtered set exceeded the record cap and the
	// document holds only the leading records in sort order.
	Truncated bool
}

// ExportService renders filtered finding sets into downloadable CSV
// documents.
type ExportService struct {
	findings   finding.Repository
	auth       *AuthService
	sink       ExportSink
	maxRecords int
	log        *logger.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(findings finding.Repository, auth *AuthService, sink ExportSink, maxRecords int, log *logger.Logger) *ExportService {
	return &ExportService{
		findings:   findings,
		auth:       auth,
		sink:       sink,
		maxRecords: maxRecords,
		log:        log.With("service", "export"),
	}
}

// Export drains the filtered, scoped finding set page by page, renders it to
// CSV and stores the document. The same planner and scope rules as the
// interactive search apply; the drain stops at the record cap and marks the
// result truncated instead of failing.
func (s *ExportService) Export(ctx context.Context, user *accesscontrol.AuthenticatedUser, criteria search.Criteria) (*ExportResult, error) {
	requested := search.EqualsValues(criteria.Groups, search.FieldAccount)
	scope, err := s.auth.DeriveScope(ctx, user, requested)
	if err != nil {
		return nil, err
	}

	criteria.PageSize = pagination.MaxPageSize
	criteria.NextToken = ""

	var rows []*finding.Finding
	truncated := false
	for {
		page, err := s.findings.Search(ctx, criteria, scope)
		if err != nil {
			metrics.ExportsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		rows = append(rows, page.Items...)

		if len(rows) >= s.maxRecords {
			truncated = len(rows) > s.maxRecords || page.NextToken != ""
			rows = rows[:s.maxRecords]
			break
		}
		if page.NextToken == "" {
			break
		}
		criteria.NextToken = page.NextToken
	}

	doc, err := renderCSV(rows)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	name := exportName()
	url, err := s.sink.Store(ctx, name, doc)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("store export document: %w", err)
	}

	status := "completed"
	if truncated {
		status = "partial"
	}
	metrics.ExportsTotal.WithLabelValues(status).Inc()
	s.log.Info("export stored",
		"name", name,
		"records", len(rows),
		"truncated", truncated,
		"user", user.Username,
	)

	return &ExportResult{
		URL:         url,
		RecordCount: len(rows),
		Truncated:   truncated,
	}, nil
}

func exportName() string {
	return fmt.Sprintf("findings-%s-%s.csv",
		time.Now().UTC().Format("20060102T150405Z"),
		uuid.NewString()[:8],
	)
}

func renderCSV(rows []*finding.Finding) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"Id", "FindingType", "AccountId", "ResourceId", "ResourceType",
		"Severity", "RemediationStatus", "Title", "Description", "UpdatedAt",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}
	for _, f := range rows {
		record := []string{
			f.ID(),
			f.FindingType(),
			f.AccountID(),
			f.ResourceID(),
			f.ResourceType(),
			f.Severity().String(),
			f.Status().String(),
			f.Title(),
			f.Description(),
			search.FormatTime(f.UpdatedAt()),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("render export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}
	return buf.Bytes(), nil
}
