// Package validators implements the per-model validation pipeline: shape
// validation first (short-circuiting), then named constraints, then
// validator-local business rules. Constraint and rule findings accumulate
// so one call surfaces the complete violation set.
package validators

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/validation"
)

// ConstraintKind classifies a named constraint.
type ConstraintKind string

const (
	ConstraintForeignKey   ConstraintKind = "foreign_key"
	ConstraintUnique       ConstraintKind = "unique"
	ConstraintCheck        ConstraintKind = "check"
	ConstraintBusinessRule ConstraintKind = "business_rule"
)

// CheckFunc is an async predicate over a payload. It reports findings on
// the returned Result; a non-nil error means the check itself broke and is
// converted into a synthetic *_ERROR finding by the pipeline.
type CheckFunc func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (*validation.Result, error)

// Constraint is a named structural check owned by one model's validator.
type Constraint struct {
	Name  string
	Kind  ConstraintKind
	Check CheckFunc
}

// LocalRule is a model-specific semantic check following the same
// pass/fail/warn contract as constraints.
type LocalRule struct {
	Name  string
	Check CheckFunc
}

// Base is the validator shared by all models. List and Item validators are
// Base instances configured with their field specs, constraints, and local
// rules.
type Base struct {
	model        string
	createFields map[string]model.FieldSpec
	updateFields map[string]model.FieldSpec
	constraints  []Constraint
	rules        []LocalRule
	deleteRules  []LocalRule

	exists func(ctx context.Context, id string) (bool, error)
	logger *zap.Logger
}

// Model returns the model name this validator is registered under.
func (b *Base) Model() string {
	return b.model
}

// ValidateCreate validates a creation payload. Shape failures
// short-circuit; constraints and rules never run against malformed
// payloads.
func (b *Base) ValidateCreate(ctx context.Context, data map[string]interface{}, vctx *validation.Context) *validation.Result {
	result := validateShape(b.createFields, data, nil)
	if !result.OK() {
		return result
	}

	b.runConstraints(ctx, data, vctx, result)
	b.runRules(ctx, data, vctx, result)
	return result
}

// ValidateUpdate validates an update payload. Server-owned fields are
// rejected at the shape stage.
func (b *Base) ValidateUpdate(ctx context.Context, data map[string]interface{}, vctx *validation.Context) *validation.Result {
	result := validateShape(b.updateFields, data, model.ImmutableFields())
	if !result.OK() {
		return result
	}

	b.runConstraints(ctx, data, vctx, result)
	b.runRules(ctx, data, vctx, result)
	return result
}

// ValidateDelete validates a deletion by id: the record must exist, and
// the model's delete rules must pass.
func (b *Base) ValidateDelete(ctx context.Context, id string, vctx *validation.Context) *validation.Result {
	result := validation.NewResult()
	if id == "" {
		result.Fail("id", validation.CodeRequiredField, "id is required")
		return result
	}

	if b.exists != nil {
		found, err := b.exists(ctx, id)
		if err != nil {
			result.AddError(validation.Error{
				Field:   "id",
				Code:    validation.CodeConstraintError,
				Message: fmt.Sprintf("existence check failed: %v", err),
			})
			return result
		}
		if !found {
			result.AddError(validation.Error{
				Field:   "id",
				Code:    validation.CodeResourceNotFound,
				Message: fmt.Sprintf("%s %q does not exist", b.model, id),
				Context: map[string]interface{}{"id": id},
			})
			return result
		}
	}

	if vctx == nil || !vctx.SkipBusinessRules {
		data := map[string]interface{}{"id": id}
		for _, rule := range b.deleteRules {
			b.runCheck(ctx, rule.Name, validation.CodeBusinessRuleError, rule.Check, data, vctx, result)
		}
	}
	return result
}

// runConstraints executes every named constraint, accumulating findings.
// One failing constraint never hides another.
func (b *Base) runConstraints(ctx context.Context, data map[string]interface{}, vctx *validation.Context, result *validation.Result) {
	if vctx != nil && vctx.SkipConstraints {
		return
	}
	for _, c := range b.constraints {
		code := validation.CodeConstraintError
		if c.Kind == ConstraintBusinessRule {
			code = validation.CodeBusinessRuleError
		}
		b.runCheck(ctx, c.Name, code, c.Check, data, vctx, result)
	}
}

// runRules executes every validator-local business rule.
func (b *Base) runRules(ctx context.Context, data map[string]interface{}, vctx *validation.Context, result *validation.Result) {
	if vctx != nil && vctx.SkipBusinessRules {
		return
	}
	for _, rule := range b.rules {
		b.runCheck(ctx, rule.Name, validation.CodeBusinessRuleError, rule.Check, data, vctx, result)
	}
}

// runCheck invokes one check with fault containment: an error or panic
// becomes a synthetic finding under errCode and siblings still run.
func (b *Base) runCheck(
	ctx context.Context,
	name string,
	errCode validation.Code,
	check CheckFunc,
	data map[string]interface{},
	vctx *validation.Context,
	result *validation.Result,
) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("check panicked",
				zap.String("model", b.model),
				zap.String("check", name),
				zap.Any("panic", r))
			result.AddError(validation.Error{
				Field:   name,
				Code:    errCode,
				Message: fmt.Sprintf("check %q panicked: %v", name, r),
			})
		}
	}()

	partial, err := check(ctx, data, vctx)
	if err != nil {
		b.logger.Error("check failed to execute",
			zap.String("model", b.model),
			zap.String("check", name),
			zap.Error(err))
		result.AddError(validation.Error{
			Field:   name,
			Code:    errCode,
			Message: fmt.Sprintf("check %q failed to execute: %v", name, err),
		})
		return
	}
	result.Merge(partial)
}

// existsForModel picks the store existence check matching a model name.
func existsForModel(st store.Access, modelName string) func(ctx context.Context, id string) (bool, error) {
	switch modelName {
	case model.ModelList:
		return st.ListExists
	case model.ModelItem:
		return st.ItemExists
	default:
		return nil
	}
}
