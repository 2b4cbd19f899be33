package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/validation"
)

// RetentionPolicy decides whether a record may be deleted under the
// retention policy. Callers with a real policy engine inject their own;
// the default gates on record age alone.
type RetentionPolicy func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error)

// DefaultRetentionPolicy permits deletion of records older than minAge.
// A zero minAge disables the gate entirely.
func DefaultRetentionPolicy(minAge time.Duration) RetentionPolicy {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
		if minAge <= 0 {
			return true, nil
		}
		created, ok := toTime(data["createdAt"])
		if !ok {
			// Without a creation timestamp the gate cannot judge
			// age; let the deletion through.
			return true, nil
		}
		return vctx.Clock().Sub(created) >= minAge, nil
	}
}

// Builtins constructs the system rules shipped with the engine, wired to
// the given store and thresholds. The caller registers them via AddRule;
// RegisterBuiltins does both.
func Builtins(cfg config.ValidationConfig, st store.Access, retention RetentionPolicy) []*Rule {
	if retention == nil {
		retention = DefaultRetentionPolicy(cfg.RetentionMinAge)
	}

	return []*Rule{
		maxNestingDepthRule(cfg, st),
		dependencyCompletionRule(st),
		retentionRule(retention),
		reasonableDueDateRule(cfg),
		workloadBalanceRule(cfg, st),
	}
}

// RegisterBuiltins adds every builtin system rule to the engine.
func RegisterBuiltins(e *Engine, cfg config.ValidationConfig, st store.Access, retention RetentionPolicy) {
	for _, rule := range Builtins(cfg, st, retention) {
		e.AddRule(rule)
	}
}

// maxNestingDepthRule blocks creating or moving a list deeper than the
// configured hierarchy ceiling.
func maxNestingDepthRule(cfg config.ValidationConfig, st store.Access) *Rule {
	return &Rule{
		ID:          "list_max_nesting_depth",
		Name:        "Maximum list nesting depth",
		Description: fmt.Sprintf("Lists may not be nested more than %d levels deep", cfg.MaxNestingDepth),
		Category:    CategoryDataIntegrity,
		Severity:    validation.SeverityError,
		Enabled:     true,
		Priority:    100,
		AppliesTo:   []string{model.ModelList},
		Metadata:    map[string]interface{}{"field": "parentId"},
		Conditions: []Condition{
			{Field: "parentId", Operator: OpExists},
		},
		Actions: []Action{
			{
				Type:    ActionValidate,
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("list would exceed the maximum nesting depth of %d", cfg.MaxNestingDepth),
				Check: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					parentID, _ := data["parentId"].(string)
					if parentID == "" {
						return true, nil
					}
					ancestors, err := st.ListAncestors(ctx, parentID, cfg.MaxNestingDepth+1)
					if err != nil {
						return false, err
					}
					// Depth of the new list: the parent's chain,
					// the parent itself, plus this list.
					return len(ancestors)+2 <= cfg.MaxNestingDepth, nil
				},
			},
		},
	}
}

// dependencyCompletionRule blocks completing an item while any of its
// dependencies is still open.
func dependencyCompletionRule(st store.Access) *Rule {
	return &Rule{
		ID:          "item_dependency_completion",
		Name:        "Dependencies complete before completion",
		Description: "An item cannot be completed while its dependencies are incomplete",
		Category:    CategoryBusinessLogic,
		Severity:    validation.SeverityError,
		Enabled:     true,
		Priority:    90,
		AppliesTo:   []string{model.ModelItem},
		Metadata:    map[string]interface{}{"field": "dependencies"},
		Conditions: []Condition{
			{Field: "status", Operator: OpEquals, Value: string(model.ItemCompleted)},
		},
		Actions: []Action{
			{
				Type:    ActionValidate,
				Code:    validation.CodeBusinessRuleViolation,
				Message: "item has incomplete dependencies and cannot be completed",
				Check: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					deps, err := dependencyIDs(ctx, st, data)
					if err != nil {
						return false, err
					}
					if len(deps) == 0 {
						return true, nil
					}
					statuses, err := st.ItemStatuses(ctx, deps)
					if err != nil {
						return false, err
					}
					for _, dep := range deps {
						if statuses[dep] != string(model.ItemCompleted) {
							return false, nil
						}
					}
					return true, nil
				},
			},
		},
	}
}

// retentionRule gates deletions on the injected retention policy.
func retentionRule(policy RetentionPolicy) *Rule {
	return &Rule{
		ID:          "data_retention_on_delete",
		Name:        "Data retention compliance",
		Description: "Deletions must satisfy the configured retention policy",
		Category:    CategoryCompliance,
		Severity:    validation.SeverityError,
		Enabled:     true,
		Priority:    80,
		AppliesTo:   []string{model.ModelList, model.ModelItem},
		Metadata:    map[string]interface{}{"field": "id"},
		Conditions: []Condition{
			{
				Operator: OpCustom,
				Custom: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					return vctx != nil && vctx.Operation == validation.OpDelete, nil
				},
			},
		},
		Actions: []Action{
			{
				Type:    ActionValidate,
				Code:    validation.CodeBusinessRuleViolation,
				Message: "deletion violates the data retention policy",
				Check:   CheckFunc(policy),
			},
		},
	}
}

// reasonableDueDateRule warns on due dates in the past or implausibly far
// out.
func reasonableDueDateRule(cfg config.ValidationConfig) *Rule {
	horizon := time.Duration(cfg.DueDateHorizonDays) * 24 * time.Hour
	return &Rule{
		ID:          "item_reasonable_due_date",
		Name:        "Reasonable due date",
		Description: fmt.Sprintf("Due dates should fall within the next %d days", cfg.DueDateHorizonDays),
		Category:    CategoryBusinessLogic,
		Severity:    validation.SeverityWarning,
		Enabled:     true,
		Priority:    50,
		AppliesTo:   []string{model.ModelItem},
		Metadata:    map[string]interface{}{"field": "dueDate"},
		Conditions: []Condition{
			{Field: "dueDate", Operator: OpExists},
		},
		Actions: []Action{
			{
				Type:    ActionValidate,
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("due date is in the past or more than %d days out", cfg.DueDateHorizonDays),
				Check: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					due, ok := toTime(data["dueDate"])
					if !ok {
						// Shape validation owns format errors.
						return true, nil
					}
					now := vctx.Clock()
					return !due.Before(now) && due.Before(now.Add(horizon)), nil
				},
			},
		},
	}
}

// workloadBalanceRule warns when an assignee already carries too many open
// items.
func workloadBalanceRule(cfg config.ValidationConfig, st store.Access) *Rule {
	return &Rule{
		ID:          "user_workload_balance",
		Name:        "Assignee workload balance",
		Description: fmt.Sprintf("Assignees should carry fewer than %d open items", cfg.WorkloadThreshold),
		Category:    CategoryPerformance,
		Severity:    validation.SeverityWarning,
		Enabled:     true,
		Priority:    40,
		AppliesTo:   []string{model.ModelItem},
		Metadata:    map[string]interface{}{"field": "assigneeId"},
		Conditions: []Condition{
			{Field: "assigneeId", Operator: OpExists},
		},
		Actions: []Action{
			{
				Type:    ActionValidate,
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("assignee already has %d or more open items", cfg.WorkloadThreshold),
				Check: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					userID, _ := data["assigneeId"].(string)
					if userID == "" {
						return true, nil
					}
					open, err := st.OpenItemCount(ctx, userID)
					if err != nil {
						return false, err
					}
					return open < cfg.WorkloadThreshold, nil
				},
			},
		},
	}
}

// dependencyIDs collects an item's dependency ids from the payload when
// present, falling back to the persisted set for updates that do not
// resend the field.
func dependencyIDs(ctx context.Context, st store.Access, data map[string]interface{}) ([]string, error) {
	if raw, ok := data["dependencies"]; ok {
		return toStringSlice(raw), nil
	}
	id, _ := data["id"].(string)
	if id == "" {
		return nil, nil
	}
	return st.ItemDependencies(ctx, id)
}

// toStringSlice coerces a payload value into a string slice.
func toStringSlice(raw interface{}) []string {
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
