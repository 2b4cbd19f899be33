package integrity

import "fmt"

// Severity weights for the health score penalty.
const (
	penaltyCritical = 20
	penaltyHigh     = 10
	penaltyMedium   = 5
	penaltyLow      = 1
)

// healthScore computes the 0-100 score from severity-weighted violations.
// Warnings count as low-severity. The score floors at 0.
func healthScore(violations, warnings []Violation) int {
	penalty := 0
	for _, v := range violations {
		switch v.Severity {
		case SeverityCritical:
			penalty += penaltyCritical
		case SeverityHigh:
			penalty += penaltyHigh
		case SeverityMedium:
			penalty += penaltyMedium
		default:
			penalty += penaltyLow
		}
	}
	penalty += len(warnings) * penaltyLow

	score := 100 - penalty
	if score < 0 {
		return 0
	}
	return score
}

// recommendations derives operator guidance from a scan's findings.
func recommendations(summary Summary, warnings int) []string {
	var recs []string

	if summary.BySeverity[SeverityCritical] > 0 {
		recs = append(recs, fmt.Sprintf(
			"Address %d critical violation(s) immediately", summary.BySeverity[SeverityCritical]))
	}
	if summary.ByType[ViolationForeignKey] > 0 {
		recs = append(recs, fmt.Sprintf(
			"Review foreign key constraints: %d broken reference(s) found", summary.ByType[ViolationForeignKey]))
	}
	if summary.ByType[ViolationCircularRef] > 0 {
		recs = append(recs, fmt.Sprintf(
			"Resolve %d circular reference(s) in hierarchies or dependency graphs", summary.ByType[ViolationCircularRef]))
	}
	if summary.HealthScore < 80 {
		recs = append(recs, "Health score is below 80; run integrity checks more frequently")
	}
	if warnings > 10 {
		recs = append(recs, fmt.Sprintf(
			"Review the data quality process: %d warnings accumulated", warnings))
	}
	if len(recs) == 0 {
		recs = append(recs, "Data integrity looks healthy; no action needed")
	}
	return recs
}
