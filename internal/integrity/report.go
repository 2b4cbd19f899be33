// Package integrity implements system-wide data scans: foreign-key
// sweeps, batched business-rule compliance, orphan and circular-reference
// detection, and timestamp/status consistency, aggregated into a report
// with a weighted health score and recommendations.
package integrity

import "time"

// Category selects one scan kind.
type Category string

const (
	CategoryForeignKeys   Category = "foreign_keys"
	CategoryBusinessRules Category = "business_rules"
	CategoryOrphans       Category = "orphans"
	CategoryCircularRefs  Category = "circular_refs"
	CategoryConsistency   Category = "consistency"
	CategoryConstraints   Category = "constraints"
)

// AllCategories returns every scan category, in execution order.
func AllCategories() []Category {
	return []Category{
		CategoryForeignKeys,
		CategoryBusinessRules,
		CategoryOrphans,
		CategoryCircularRefs,
		CategoryConsistency,
		CategoryConstraints,
	}
}

// ParseCategory converts a raw string to a Category, reporting whether it
// is known.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range AllCategories() {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// CheckConfig selects what one scan invocation covers.
type CheckConfig struct {
	// Categories to run; empty means all.
	Categories []Category
	// Tables to scan; empty means every scannable table.
	Tables []string
	// BatchSize bounds records fetched per page in batched scans.
	BatchSize int
	// MaxErrors stops a scan from accumulating violations without
	// bound on badly corrupted data.
	MaxErrors int
}

// ViolationType classifies an integrity violation.
type ViolationType string

const (
	ViolationForeignKey      ViolationType = "FOREIGN_KEY"
	ViolationBusinessRule    ViolationType = "BUSINESS_RULE"
	ViolationConstraint      ViolationType = "CONSTRAINT"
	ViolationOrphan          ViolationType = "ORPHAN"
	ViolationCircularRef     ViolationType = "CIRCULAR_REF"
	ViolationDataConsistency ViolationType = "DATA_CONSISTENCY"
)

// Severity grades a violation for the health score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Violation is one concrete violation instance found by a scan. Scans
// never deduplicate: a record violating twice appears twice.
type Violation struct {
	Type         ViolationType          `json:"type"`
	Severity     Severity               `json:"severity"`
	Table        string                 `json:"table"`
	RecordID     string                 `json:"recordId"`
	Field        string                 `json:"field,omitempty"`
	Message      string                 `json:"message"`
	Details      map[string]interface{} `json:"details,omitempty"`
	SuggestedFix string                 `json:"suggestedFix,omitempty"`
}

// Summary condenses one scan invocation.
type Summary struct {
	RecordsChecked  int64                 `json:"recordsChecked"`
	TablesChecked   []string              `json:"tablesChecked"`
	ByType          map[ViolationType]int `json:"byType"`
	BySeverity      map[Severity]int      `json:"bySeverity"`
	HealthScore     int                   `json:"healthScore"`
	Recommendations []string              `json:"recommendations"`
}

// Report aggregates everything one PerformIntegrityCheck call found.
type Report struct {
	CheckID    string        `json:"checkId"`
	Violations []Violation   `json:"violations"`
	Warnings   []Violation   `json:"warnings"`
	Summary    Summary       `json:"summary"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
}

// ViolationsFound returns the number of blocking violations.
func (r *Report) ViolationsFound() int {
	return len(r.Violations)
}
