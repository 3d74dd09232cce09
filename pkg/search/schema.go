package search

// Well-known request field names shared by both record families.
const (
	FieldID        = "Id"
	FieldFinding   = "FindingId"
	FieldAccount   = "AccountId"
	FieldResource  = "ResourceId"
	FieldSeverity  = "Severity"
	FieldStatus    = "RemediationStatus"
	FieldUpdatedAt = "UpdatedAt"
)

// Index describes one secondary index: its store name and the request field
// whose equality filters it can serve as a partition key.
type Index struct {
	Name  string
	Field string
}

// Schema is the planner's decision table for one record family. Indexes are
// listed in preference order; AllIndex is the fallback index covering every
// record via a constant marker partition.
type Schema struct {
	// IDField is the request field holding the record identifier. Equality
	// filters on it are served by direct point lookups.
	IDField string

	// SortField is the request field served natively by the composite
	// <timestamp>#<id> sort attribute every index carries.
	SortField string

	Indexes  []Index
	AllIndex string
}

func (s Schema) indexFor(field string) (Index, bool) {
	for _, idx := range s.Indexes {
		if idx.Field == field {
			return idx, true
		}
	}
	return Index{}, false
}

// AccountIndexName returns the name of the account-partitioned index, if the
// schema has one. The executor skips the account scoping post-filter when the
// chosen index is already partitioned by account.
func (s Schema) AccountIndexName() string {
	if idx, ok := s.indexFor(FieldAccount); ok {
		return idx.Name
	}
	return ""
}
