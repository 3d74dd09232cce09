package dynamo

import (
	"github.com/remedyops/findings-api/internal/config"
	"github.com/remedyops/findings-api/pkg/search"
)

// Attribute names shared by the record tables.
const (
	attrFindingType = "findingType"
	attrFindingID   = "findingId"
	attrEventID     = "eventId"
	attrAccountID   = "accountId"
	attrResourceID  = "resourceId"
	attrSeverity    = "severity"
	attrStatus      = "remediationStatus"
	attrExecStatus  = "executionStatus"
	attrRecordType  = "recordType"
	attrSortKey     = "sortTimestamp"
	attrPrincipal   = "principal"
)

// Marker values for the all-records index partition.
const (
	recordTypeFinding     = "FINDING"
	recordTypeRemediation = "REMEDIATION"
)

// tableSpec binds one record family's planner schema to its store layout.
type tableSpec struct {
	table    string
	resource string
	schema   search.Schema

	// indexPartitionAttr maps index name to its partition attribute.
	indexPartitionAttr map[string]string

	// allIndexValue is the constant marker partitioning the fallback index.
	allIndexValue string
}

// findingSpec builds the findings table spec from configuration.
func findingSpec(cfg config.DynamoConfig) tableSpec {
	return tableSpec{
		table:    cfg.FindingsTable,
		resource: "findings",
		schema: search.Schema{
			IDField:   search.FieldID,
			SortField: search.FieldUpdatedAt,
			Indexes: []search.Index{
				{Name: cfg.AccountIndex, Field: search.FieldAccount},
				{Name: cfg.ResourceIndex, Field: search.FieldResource},
				{Name: cfg.SeverityIndex, Field: search.FieldSeverity},
				{Name: cfg.StatusIndex, Field: search.FieldStatus},
			},
			AllIndex: cfg.AllIndex,
		},
		indexPartitionAttr: map[string]string{
			cfg.AccountIndex:  attrAccountID,
			cfg.ResourceIndex: attrResourceID,
			cfg.SeverityIndex: attrSeverity,
			cfg.StatusIndex:   attrStatus,
			cfg.AllIndex:      attrRecordType,
		},
		allIndexValue: recordTypeFinding,
	}
}

// remediationSpec builds the remediation history table spec.
func remediationSpec(cfg config.DynamoConfig) tableSpec {
	return tableSpec{
		table:    cfg.RemediationTable,
		resource: "remediations",
		schema: search.Schema{
			IDField:   search.FieldID,
			SortField: search.FieldUpdatedAt,
			Indexes: []search.Index{
				{Name: cfg.AccountIndex, Field: search.FieldAccount},
				{Name: cfg.FindingIndex, Field: search.FieldFinding},
				{Name: cfg.StatusIndex, Field: search.FieldStatus},
			},
			AllIndex: cfg.AllIndex,
		},
		indexPartitionAttr: map[string]string{
			cfg.AccountIndex: attrAccountID,
			cfg.FindingIndex: attrFindingID,
			cfg.StatusIndex:  attrExecStatus,
			cfg.AllIndex:     attrRecordType,
		},
		allIndexValue: recordTypeRemediation,
	}
}
