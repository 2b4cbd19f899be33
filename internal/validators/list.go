package validators

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/validation"
)

// ancestorWalkLimit bounds hierarchy walks independently of the nesting
// ceiling so a corrupted parent chain cannot loop a validation call.
const ancestorWalkLimit = 32

// NewListValidator builds the validator for the list model: parent
// existence, circular-parent prevention, title uniqueness within a parent
// scope, nesting depth, status transitions, and completion-timestamp
// consistency.
func NewListValidator(cfg config.ValidationConfig, st store.Access, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		model:        model.ModelList,
		createFields: model.ListCreateFields(),
		updateFields: model.ListUpdateFields(),
		exists:       existsForModel(st, model.ModelList),
		logger:       logger,
		constraints: []Constraint{
			{Name: "parent_list_exists", Kind: ConstraintForeignKey, Check: parentListExists(st)},
			{Name: "no_circular_parent", Kind: ConstraintCheck, Check: noCircularParent(st)},
			{Name: "unique_title_in_parent", Kind: ConstraintUnique, Check: uniqueTitleInParent(st)},
		},
		rules: []LocalRule{
			{Name: "nesting_depth", Check: listNestingDepth(cfg, st)},
			{Name: "status_transition", Check: listStatusTransition(st)},
			{Name: "completion_timestamp", Check: listCompletionTimestamp(st)},
		},
	}
}

// parentListExists requires a payload parentId to reference a real list.
func parentListExists(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		parentID, _ := data["parentId"].(string)
		if parentID == "" {
			return result, nil
		}

		found, err := st.ListExists(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if !found {
			result.AddError(validation.Error{
				Field:   "parentId",
				Code:    validation.CodeForeignKeyViolation,
				Message: fmt.Sprintf("parent list %q does not exist", parentID),
				Context: map[string]interface{}{"id": parentID},
			})
		}
		return result, nil
	}
}

// noCircularParent walks the ancestor chain of the requested parent and
// rejects the update when the chain reaches the list's own id.
func noCircularParent(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()

		id, _ := data["id"].(string)
		parentID, _ := data["parentId"].(string)
		if id == "" || parentID == "" {
			// A list being created cannot appear in any existing
			// chain.
			return result, nil
		}

		circular := parentID == id
		if !circular {
			ancestors, err := st.ListAncestors(ctx, parentID, ancestorWalkLimit)
			if err != nil {
				return nil, err
			}
			for _, ancestor := range ancestors {
				if ancestor == id {
					circular = true
					break
				}
			}
		}

		if circular {
			result.AddError(validation.Error{
				Field:   "parentId",
				Code:    validation.CodeCircularDependency,
				Message: fmt.Sprintf("setting parent %q would create a cycle in the list hierarchy", parentID),
				Context: map[string]interface{}{"id": id, "parentId": parentID},
			})
		}
		return result, nil
	}
}

// uniqueTitleInParent rejects a title already used by a sibling list under
// the same parent. On update the record's own row is excluded.
func uniqueTitleInParent(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		title, _ := data["title"].(string)
		if title == "" {
			return result, nil
		}

		id, _ := data["id"].(string)
		parentID, parentGiven := data["parentId"].(string)
		if !parentGiven && id != "" {
			// Update without a parent change: the scope is the
			// persisted parent.
			persisted, err := st.ListParent(ctx, id)
			if err != nil && !store.IsNotFound(err) {
				return nil, err
			}
			parentID = persisted
		}

		taken, err := st.TitleExistsInParent(ctx, title, parentID, id)
		if err != nil {
			return nil, err
		}
		if taken {
			result.AddError(validation.Error{
				Field:   "title",
				Code:    validation.CodeDuplicateValue,
				Message: fmt.Sprintf("a list titled %q already exists in this scope", title),
				Context: map[string]interface{}{"title": title, "parentId": parentID},
			})
		}
		return result, nil
	}
}

// listNestingDepth enforces the hierarchy ceiling and warns when the
// hierarchy approaches it.
func listNestingDepth(cfg config.ValidationConfig, st store.Access) CheckFunc {
	warnAt := int(math.Ceil(float64(cfg.MaxNestingDepth) * cfg.NestingWarnRatio))
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()
		parentID, _ := data["parentId"].(string)
		if parentID == "" {
			return result, nil
		}

		ancestors, err := st.ListAncestors(ctx, parentID, ancestorWalkLimit)
		if err != nil {
			return nil, err
		}
		depth := len(ancestors) + 2

		if depth > cfg.MaxNestingDepth {
			result.AddError(validation.Error{
				Field:   "parentId",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("nesting depth %d exceeds the maximum of %d", depth, cfg.MaxNestingDepth),
				Context: map[string]interface{}{"depth": depth, "max": cfg.MaxNestingDepth},
			})
		} else if depth >= warnAt {
			result.AddWarning(validation.Warning{
				Field:   "parentId",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("nesting depth %d is approaching the maximum of %d", depth, cfg.MaxNestingDepth),
				Context: map[string]interface{}{"depth": depth, "max": cfg.MaxNestingDepth},
			})
		}
		return result, nil
	}
}

// listStatusTransition checks a requested status change against the list
// lifecycle table.
func listStatusTransition(st store.Access) CheckFunc {
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

		current, err := st.CurrentStatus(ctx, model.TableLists, id)
		if err != nil {
			if store.IsNotFound(err) {
				// Existence is someone else's finding.
				return result, nil
			}
			return nil, err
		}

		from, err := model.ParseListStatus(current)
		if err != nil {
			return nil, err
		}
		to, err := model.ParseListStatus(target)
		if err != nil {
			// Shape validation already rejected the value.
			return result, nil
		}

		if !from.CanTransitionTo(to) {
			result.AddError(validation.Error{
				Field:   "status",
				Code:    validation.CodeInvalidStateTransition,
				Message: fmt.Sprintf("list cannot transition from %q to %q", from, to),
				Context: map[string]interface{}{"from": string(from), "to": string(to)},
			})
		}
		return result, nil
	}
}

// listCompletionTimestamp requires completedAt to be set exactly when the
// status is completed: missing-on-complete warns, present-otherwise errors.
func listCompletionTimestamp(st store.Access) CheckFunc {
	return func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error) {
		result := validation.NewResult()

		status, statusGiven := data["status"].(string)
		_, completedGiven := fieldTime(data, "completedAt")
		if !statusGiven && !completedGiven {
			return result, nil
		}

		if !statusGiven && vctx != nil && vctx.Operation == validation.OpUpdate {
			if id, _ := data["id"].(string); id != "" {
				current, err := st.CurrentStatus(ctx, model.TableLists, id)
				if err != nil && !store.IsNotFound(err) {
					return nil, err
				}
				status = current
			}
		}

		completed := status == string(model.ListCompleted)
		switch {
		case completed && !completedGiven:
			result.AddWarning(validation.Warning{
				Field:   "completedAt",
				Code:    validation.CodeBusinessRuleViolation,
				Message: "completed list has no completion timestamp",
			})
		case !completed && completedGiven:
			result.AddError(validation.Error{
				Field:   "completedAt",
				Code:    validation.CodeBusinessRuleViolation,
				Message: fmt.Sprintf("completedAt is set but status is %q", status),
				Context: map[string]interface{}{"status": status},
			})
		}
		return result, nil
	}
}
