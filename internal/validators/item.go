package validators

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/validation"
)

// NewItemValidator builds the validator for the item model: list and
// assignee existence, dependency existence and acyclicity, due-date and
// duration plausibility, status transitions, and dependency-completion
// gating.
func NewItemValidator(cfg config.ValidationConfig, st store.Access, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		model:        model.ModelItem,
		createFields: model.ItemCreateFields(),
		updateFields: model.ItemUpdateFields(),
		exists:       existsForModel(st, model.ModelItem),
		logger:       logger,
		constraints: []Constraint{
			{Name: "list_exists", Kind: ConstraintForeignKey, Check: itemListExists(st)},
			{Name: "dependencies_exist", Kind: ConstraintForeignKey, Check: itemDependenciesExist(st)},
			{Name: "no_circular_dependencies", Kind: ConstraintCheck, Check: noCircularDependencies(st)},
			{Name: "assignee_exists", Kind: ConstraintForeignKey, Check: itemAssigneeExists(st)},
		},
		rules: []LocalRule{
			{Name: "due_date", Check: itemDueDate(cfg)},
			{Name: "duration", Check: itemDuration(cfg)},
			{Name: "status_transition", Check: itemStatusTransition(st)},
			{Name: "dependency_gate", Check: itemDependencyGate(st)},
		},
	}
}

// itemListExists requires the payload listId to reference a real list.
func itemListExists(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		listID, _ := data["listId"].(string)
		if listID == "" {
			return result, nil
		}

		found, err := st.ListExists(ctx, listID)
		if err != nil {
			return nil, err
		}
		if !found {
			result.AddError(validation.Error{
				Field:   "listId",
				Code:    validation.CodeForeignKeyViolation,
				Message: fmt.Sprintf("list %q does not exist", listID),
				Context: map[string]interface{}{"id": listID},
			})
		}
		return result, nil
	}
}

// itemDependenciesExist checks every payload dependency id, reporting one
// error per missing record.
func itemDependenciesExist(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		for _, dep := range fieldStrings(data, "dependencies") {
			found, err := st.ItemExists(ctx, dep)
			if err != nil {
				return nil, err
			}
			if !found {
				result.AddError(validation.Error{
					Field:   "dependencies",
					Code:    validation.CodeForeignKeyViolation,
					Message: fmt.Sprintf("dependency %q does not exist", dep),
					Context: map[string]interface{}{"id": dep},
				})
			}
		}
		return result, nil
	}
}

// noCircularDependencies rejects dependency sets that would close a cycle
// through the transitive dependency graph back to the item itself.
func noCircularDependencies(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		id, _ := data["id"].(string)
		deps := fieldStrings(data, "dependencies")
		if len(deps) == 0 {
			return result, nil
		}

		for _, dep := range deps {
			if dep == id && id != "" {
				result.AddError(validation.Error{
					Field:   "dependencies",
					Code:    validation.CodeCircularDependency,
					Message: "item cannot depend on itself",
					Context: map[string]interface{}{"id": id},
				})
				continue
			}
			if id == "" {
				// A new item has no dependents yet, so no cycle
				// can close through it.
				continue
			}
			circular, err := reaches(ctx, st, dep, id, make(map[string]bool), ancestorWalkLimit)
			if err != nil {
				return nil, err
			}
			if circular {
				result.AddError(validation.Error{
					Field:   "dependencies",
					Code:    validation.CodeCircularDependency,
					Message: fmt.Sprintf("dependency %q transitively depends on this item", dep),
					Context: map[string]interface{}{"id": id, "dependency": dep},
				})
			}
		}
		return result, nil
	}
}

// reaches walks the persisted dependency graph depth-first, reporting
// whether target is reachable from start.
func reaches(ctx context.Context, st store.Access, start, target string, visited map[string]bool, depth int) (bool, error) {
	if depth <= 0 || visited[start] {
		return false, nil
	}
	visited[start] = true

	deps, err := st.ItemDependencies(ctx, start)
	if err != nil {
		return false, err
	}
	for _, dep := range deps {
		if dep == target {
			return true, nil
		}
		found, err := reaches(ctx, st, dep, target, visited, depth-1)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// itemAssigneeExists requires the payload assigneeId to reference a real
// user.
func itemAssigneeExists(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		userID, _ := data["assigneeId"].(string)
		if userID == "" {
			return result, nil
		}

		found, err := st.UserExists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !found {
			result.AddError(validation.Error{
				Field:   "assigneeId",
				Code:    validation.CodeForeignKeyViolation,
				Message: fmt.Sprintf("user %q does not exist", userID),
				Context: map[string]interface{}{"id": userID},
			})
		}
		return result, nil
	}
}

// itemDueDate warns on due dates already past or beyond the configured
// horizon.
func itemDueDate(cfg config.ValidationConfig) CheckFunc {
	horizon := time.Duration(cfg.DueDateHorizonDays) * 24 * time.Hour
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		due, ok := fieldTime(data, "dueDate")
		if !ok {
			return result, nil
		}

		now := vctx.Clock()
		switch {
		case due.Before(now):
			result.AddWarning(validation.Warning{
				Field:   "dueDate",
				Code:    validation.CodeBusinessRuleViolation,
				Message: "due date is already in the past",
				Context: map[string]interface{}{"dueDate": due},
			})
		case due.After(now.Add(horizon)):
			result.AddWarning(validation.Warning{
				Field:   "dueDate",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("due date is more than %d days out", cfg.DueDateHorizonDays),
				Context: map[string]interface{}{"dueDate": due, "horizonDays": cfg.DueDateHorizonDays},
			})
		}
		return result, nil
	}
}

// itemDuration warns on duration estimates past the long-task threshold
// and on actuals overrunning the estimate by the configured factor.
func itemDuration(cfg config.ValidationConfig) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()

		estimate, hasEstimate := toInt(data["estimatedDuration"])
		actual, hasActual := toInt(data["actualDuration"])

		if hasEstimate && cfg.LongTaskMinutes > 0 && estimate > int64(cfg.LongTaskMinutes) {
			result.AddWarning(validation.Warning{
				Field:   "estimatedDuration",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("estimate of %d minutes exceeds the long-task threshold of %d", estimate, cfg.LongTaskMinutes),
				Context: map[string]interface{}{"estimate": estimate, "threshold": cfg.LongTaskMinutes},
			})
		}
		if hasEstimate && hasActual && estimate > 0 &&
			float64(actual) > float64(estimate)*cfg.DurationOverrunFactor {
			result.AddWarning(validation.Warning{
				Field:   "actualDuration",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("actual duration %d is more than %.1fx the estimate of %d", actual, cfg.DurationOverrunFactor, estimate),
				Context: map[string]interface{}{"actual": actual, "estimate": estimate, "factor": cfg.DurationOverrunFactor},
			})
		}
		return result, nil
	}
}

// itemStatusTransition checks a requested status change against the item
// lifecycle table.
func itemStatusTransition(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		if vctx == nil || vctx.Operation != validation.OpUpdate {
			return result, nil
		}
		target, given := data["status"].(string)
		if !given {
			return result, nil
		}
		id, _ := data["id"].(string)
		if id == "" {
			return result, nil
		}

		current, err := st.CurrentStatus(ctx, model.TableItems, id)
		if err != nil {
			if store.IsNotFound(err) {
				return result, nil
			}
			return nil, err
		}

		from, err := model.ParseItemStatus(current)
		if err != nil {
			return nil, err
		}
		to, err := model.ParseItemStatus(target)
		if err != nil {
			// Shape validation already rejected the value.
			return result, nil
		}

		if !from.CanTransitionTo(to) {
			result.AddError(validation.Error{
				Field:   "status",
				Code:    validation.CodeInvalidStateTransition,
				Message: fmt.Sprintf("item cannot transition from %q to %q", from, to),
				Context: map[string]interface{}{"from": string(from), "to": string(to)},
			})
		}
		return result, nil
	}
}

// itemDependencyGate blocks completing an item with incomplete
// dependencies and warns when starting one.
func itemDependencyGate(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		target, given := data["status"].(string)
		if !given {
			return result, nil
		}
		if target != string(model.ItemCompleted) && target != string(model.ItemInProgress) {
			return result, nil
		}

		deps := fieldStrings(data, "dependencies")
		if _, sent := data["dependencies"]; !sent {
			if id, _ := data["id"].(string); id != "" {
				persisted, err := st.ItemDependencies(ctx, id)
				if err != nil {
					return nil, err
				}
				deps = persisted
			}
		}
		if len(deps) == 0 {
			return result, nil
		}

		statuses, err := st.ItemStatuses(ctx, deps)
		if err != nil {
			return nil, err
		}
		var incomplete []string
		for _, dep := range deps {
			if statuses[dep] != string(model.ItemCompleted) {
				incomplete = append(incomplete, dep)
			}
		}
		if len(incomplete) == 0 {
			return result, nil
		}

		if target == string(model.ItemCompleted) {
			result.AddError(validation.Error{
				Field:   "dependencies",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("cannot complete item with %d incomplete dependencies", len(incomplete)),
				Context: map[string]interface{}{"incomplete": incomplete},
			})
		} else {
			result.AddWarning(validation.Warning{
				Field:   "dependencies",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("starting item with %d incomplete dependencies", len(incomplete)),
				Context: map[string]interface{}{"incomplete": incomplete},
			})
		}
		return result, nil
	}
}
