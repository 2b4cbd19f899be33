package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/validation"
)

// ForeignKeyManager owns the reference map of the task domain and performs
// request-time FK validation, scan-time violation sweeps, and read-only
// cascade analysis.
type ForeignKeyManager struct {
	access Access
	logger *zap.Logger
}

// NewForeignKeyManager creates a ForeignKeyManager over the given Access.
func NewForeignKeyManager(access Access, logger *zap.Logger) *ForeignKeyManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForeignKeyManager{access: access, logger: logger}
}

// References returns every foreign-key relationship in the task domain.
func (m *ForeignKeyManager) References() []Reference {
	return []Reference{
		{FromTable: model.TableItems, FromColumn: "list_id", ToTable: model.TableLists, OnDelete: CascadeDelete},
		{FromTable: model.TableLists, FromColumn: "parent_id", ToTable: model.TableLists, OnDelete: CascadeSetNull},
		{FromTable: model.TableItems, FromColumn: "assignee_id", ToTable: model.TableUsers, OnDelete: CascadeSetNull},
		{FromTable: model.TableItemDependencies, FromColumn: "item_id", ToTable: model.TableItems, OnDelete: CascadeDelete},
		{FromTable: model.TableItemDependencies, FromColumn: "depends_on_id", ToTable: model.TableItems, OnDelete: CascadeDelete},
	}
}

// ReferencesTo returns the references whose target is the given table.
func (m *ForeignKeyManager) ReferencesTo(table string) []Reference {
	var refs []Reference
	for _, ref := range m.References() {
		if ref.ToTable == table {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ValidateReferences checks every foreign-key field present in a payload
// against the store. Violations accumulate; one bad reference does not
// hide another.
func (m *ForeignKeyManager) ValidateReferences(
	ctx context.Context,
	modelName string,
	data map[string]interface{},
) *validation.Result {
	result := validation.NewResult()

	switch modelName {
	case model.ModelList:
		m.checkReference(ctx, result, "parentId", data, m.access.ListExists)
	case model.ModelItem:
		m.checkReference(ctx, result, "listId", data, m.access.ListExists)
		m.checkReference(ctx, result, "assigneeId", data, m.access.UserExists)
		m.checkDependencies(ctx, result, data)
	}

	return result
}

func (m *ForeignKeyManager) checkReference(
	ctx context.Context,
	result *validation.Result,
	field string,
	data map[string]interface{},
	exists func(context.Context, string) (bool, error),
) {
	raw, present := data[field]
	if !present || raw == nil {
		return
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return
	}

	found, err := exists(ctx, id)
	if err != nil {
		result.AddError(validation.Error{
			Field:   field,
			Code:    validation.CodeFKConstraintError,
			Message: fmt.Sprintf("reference check failed: %v", err),
			Context: map[string]interface{}{"id": id},
		})
		return
	}
	if !found {
		result.AddError(validation.Error{
			Field:   field,
			Code:    validation.CodeForeignKeyViolation,
			Message: fmt.Sprintf("referenced record %q does not exist", id),
			Context: map[string]interface{}{"id": id},
		})
	}
}

func (m *ForeignKeyManager) checkDependencies(
	ctx context.Context,
	result *validation.Result,
	data map[string]interface{},
) {
	for _, id := range stringSlice(data["dependencies"]) {
		found, err := m.access.ItemExists(ctx, id)
		if err != nil {
			result.AddError(validation.Error{
				Field:   "dependencies",
				Code:    validation.CodeFKConstraintError,
				Message: fmt.Sprintf("reference check failed: %v", err),
				Context: map[string]interface{}{"id": id},
			})
			continue
		}
		if !found {
			result.AddError(validation.Error{
				Field:   "dependencies",
				Code:    validation.CodeForeignKeyViolation,
				Message: fmt.Sprintf("dependency %q does not exist", id),
				Context: map[string]interface{}{"id": id},
			})
		}
	}
}

// CheckViolations sweeps the reference map for rows pointing at records
// that no longer exist. Tables, when non-empty, restricts the sweep to
// references originating from those tables.
func (m *ForeignKeyManager) CheckViolations(ctx context.Context, tables []string) ([]BrokenReference, error) {
	wanted := make(map[string]bool, len(tables))
	for _, t := range tables {
		wanted[t] = true
	}

	var broken []BrokenReference
	for _, ref := range m.References() {
		if len(wanted) > 0 && !wanted[ref.FromTable] {
			continue
		}
		found, err := m.access.MissingReferences(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", ref, err)
		}
		broken = append(broken, found...)
	}
	return broken, nil
}

// AffectedTable is one table touched by a hypothetical deletion.
type AffectedTable struct {
	Table    string        `json:"table"`
	Via      string        `json:"via"`
	Count    int64         `json:"count"`
	OnDelete CascadeAction `json:"onDelete"`
}

// CascadeReport predicts what a deletion would touch. It is produced by
// read-only analysis; nothing is deleted.
type CascadeReport struct {
	Table    string          `json:"table"`
	RecordID string          `json:"recordId"`
	Affected []AffectedTable `json:"affected"`
}

// TotalAffected sums the affected record counts across tables.
func (r *CascadeReport) TotalAffected() int64 {
	var total int64
	for _, a := range r.Affected {
		total += a.Count
	}
	return total
}

// AnalyzeCascade reports which records would be affected if the given
// record were deleted. Read-only: the caller decides whether a non-empty
// cascade blocks the deletion.
func (m *ForeignKeyManager) AnalyzeCascade(ctx context.Context, modelName, id string) (*CascadeReport, error) {
	table := model.TableForModel(modelName)
	if table == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, modelName)
	}

	report := &CascadeReport{Table: table, RecordID: id}
	for _, ref := range m.ReferencesTo(table) {
		count, err := m.access.CountReferencing(ctx, ref, id)
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", ref, err)
		}
		if count == 0 {
			continue
		}
		report.Affected = append(report.Affected, AffectedTable{
			Table:    ref.FromTable,
			Via:      ref.FromColumn,
			Count:    count,
			OnDelete: ref.OnDelete,
		})
	}

	m.logger.Debug("cascade analysis complete",
		zap.String("table", table),
		zap.String("record_id", id),
		zap.Int64("total_affected", report.TotalAffected()))

	return report, nil
}

// stringSlice coerces a payload value into a string slice. JSON payloads
// arrive as []interface{}; typed callers may pass []string directly.
func stringSlice(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
