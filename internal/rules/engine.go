package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/validation"
)

// Engine stores rules indexed by target model and executes them in
// descending priority order. Reads are safe under concurrency; writes
// (AddRule, RemoveRule, SetRuleEnabled) take the write lock and are meant
// to happen during startup, before traffic.
type Engine struct {
	mu      sync.RWMutex
	rules   map[string]*Rule
	byModel map[string][]*Rule

	logger *zap.Logger
}

// NewEngine creates an empty rule engine. A nil logger defaults to a
// no-op.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rules:   make(map[string]*Rule),
		byModel: make(map[string][]*Rule),
		logger:  logger,
	}
}

// AddRule inserts or overwrites a rule by id and re-indexes the affected
// models. A rule with an empty AppliesTo is stored but never indexed.
func (e *Engine) AddRule(rule *Rule) {
	if rule == nil || rule.ID == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.rules[rule.ID]; ok {
		e.unindexLocked(old)
	}
	e.rules[rule.ID] = rule

	for _, modelName := range rule.AppliesTo {
		index := append(e.byModel[modelName], rule)
		// Stable sort keeps registration order among equal
		// priorities, which the deterministic-ordering contract
		// depends on.
		sort.SliceStable(index, func(i, j int) bool {
			return index[i].Priority > index[j].Priority
		})
		e.byModel[modelName] = index
	}

	e.logger.Debug("rule registered",
		zap.String("rule_id", rule.ID),
		zap.Int("priority", rule.Priority),
		zap.Strings("applies_to", rule.AppliesTo))
}

// RemoveRule deletes a rule and purges it from every model index.
// Idempotent: removing an unknown id is a no-op.
func (e *Engine) RemoveRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[id]
	if !ok {
		return
	}
	e.unindexLocked(rule)
	delete(e.rules, id)
}

func (e *Engine) unindexLocked(rule *Rule) {
	for _, modelName := range rule.AppliesTo {
		index := e.byModel[modelName]
		kept := index[:0]
		for _, r := range index {
			if r.ID != rule.ID {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(e.byModel, modelName)
		} else {
			e.byModel[modelName] = kept
		}
	}
}

// SetRuleEnabled toggles a rule without removing it. Unknown ids are a
// no-op.
func (e *Engine) SetRuleEnabled(id string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rule, ok := e.rules[id]; ok {
		rule.Enabled = enabled
	}
}

// Rule returns the registered rule with the given id.
func (e *Engine) Rule(id string) (*Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rule, ok := e.rules[id]
	return rule, ok
}

// RulesFor returns the rules indexed for a model, in execution order.
func (e *Engine) RulesFor(modelName string) []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	index := e.byModel[modelName]
	out := make([]*Rule, len(index))
	copy(out, index)
	return out
}

// ExecuteRules runs every enabled rule indexed under modelName against the
// data object, in descending priority order. The caller's map is never
// mutated: transforms apply to a deep copy returned in Execution.Data. A
// rule that errors or panics mid-execution yields one RULE_EXECUTION_ERROR
// and the batch continues.
func (e *Engine) ExecuteRules(
	ctx context.Context,
	modelName string,
	data map[string]interface{},
	vctx *validation.Context,
) *Execution {
	exec := &Execution{
		Result: validation.NewResult(),
		Data:   deepCopyRecord(data),
	}

	for _, rule := range e.RulesFor(modelName) {
		if !rule.Enabled {
			continue
		}
		e.executeRule(ctx, rule, exec, vctx)
	}

	return exec
}

// executeRule evaluates one rule's conditions and, when all hold, runs its
// actions. Failures inside the rule are contained here.
func (e *Engine) executeRule(
	ctx context.Context,
	rule *Rule,
	exec *Execution,
	vctx *validation.Context,
) {
	defer func() {
		if r := recover(); r != nil {
			e.recordExecutionError(rule, exec, fmt.Errorf("panic: %v", r))
		}
	}()

	for _, cond := range rule.Conditions {
		ok, err := evaluateCondition(ctx, cond, exec.Data, vctx)
		if err != nil {
			e.recordExecutionError(rule, exec, err)
			return
		}
		if !ok {
			// AND semantics: one false condition and the rule
			// body never runs.
			return
		}
	}

	e.runActions(ctx, rule, exec, vctx)
}

// runActions executes a rule's actions in order. The loop stops at the
// first governing outcome: a failed validate, a transform, or a block.
func (e *Engine) runActions(
	ctx context.Context,
	rule *Rule,
	exec *Execution,
	vctx *validation.Context,
) {
	for _, action := range rule.Actions {
		switch action.Type {
		case ActionValidate:
			ok := true
			if action.Check != nil {
				var err error
				ok, err = action.Check(ctx, exec.Data, vctx)
				if err != nil {
					e.recordExecutionError(rule, exec, err)
					return
				}
			}
			if !ok {
				e.recordFailure(rule, action, exec)
				return
			}

		case ActionTransform:
			if action.Transform == nil {
				continue
			}
			partial, err := action.Transform(ctx, exec.Data, vctx)
			if err != nil {
				e.recordExecutionError(rule, exec, err)
				return
			}
			for k, v := range partial {
				exec.Data[k] = deepCopyValue(v)
			}
			exec.Outcomes = append(exec.Outcomes, Outcome{
				RuleID:          rule.ID,
				RuleName:        rule.Name,
				Passed:          true,
				Severity:        rule.Severity,
				TransformedData: partial,
				Metadata:        rule.Metadata,
			})
			// A transform ends the rule; later actions are
			// skipped.
			return

		case ActionLog:
			e.logger.Info("rule log action",
				zap.String("rule_id", rule.ID),
				zap.String("rule_name", rule.Name),
				zap.String("message", action.Message),
				zap.Any("params", action.Params))

		case ActionNotify:
			// Reserved extension point. Params are carried for a
			// future notifier.
			e.logger.Debug("rule notify action (no-op)",
				zap.String("rule_id", rule.ID),
				zap.Any("params", action.Params))

		case ActionBlock:
			e.recordFailure(rule, action, exec)
			return
		}
	}

	exec.Outcomes = append(exec.Outcomes, Outcome{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Passed:   true,
		Severity: rule.Severity,
		Metadata: rule.Metadata,
	})
}

// recordFailure maps a failed rule onto the result envelope by severity:
// error blocks, warning reports, info is outcome-only.
func (e *Engine) recordFailure(rule *Rule, action Action, exec *Execution) {
	code := action.Code
	if code == "" {
		code = validation.CodeBusinessRuleViolation
	}
	message := action.Message
	if message == "" {
		message = fmt.Sprintf("business rule %q failed", rule.Name)
	}

	exec.Outcomes = append(exec.Outcomes, Outcome{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Passed:   false,
		Severity: rule.Severity,
		Code:     code,
		Message:  message,
		Metadata: rule.Metadata,
	})

	field := ruleField(rule)
	switch rule.Severity {
	case validation.SeverityWarning:
		exec.Result.AddWarning(validation.Warning{
			Field:    field,
			Code:     code,
			Message:  message,
			Severity: validation.SeverityWarning,
			Context:  map[string]interface{}{"rule_id": rule.ID},
		})
	case validation.SeverityInfo:
		// Recorded in the outcome only; info never gates success.
	default:
		exec.Result.AddError(validation.Error{
			Field:    field,
			Code:     code,
			Message:  message,
			Severity: validation.SeverityError,
			Context:  map[string]interface{}{"rule_id": rule.ID},
		})
	}
}

// recordExecutionError converts a thrown rule into a synthetic blocking
// error so the batch can continue past it.
func (e *Engine) recordExecutionError(rule *Rule, exec *Execution, err error) {
	e.logger.Error("rule execution failed",
		zap.String("rule_id", rule.ID),
		zap.String("rule_name", rule.Name),
		zap.Error(err))

	message := fmt.Sprintf("rule %q failed to execute: %v", rule.Name, err)
	exec.Outcomes = append(exec.Outcomes, Outcome{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Passed:   false,
		Severity: validation.SeverityError,
		Code:     validation.CodeRuleExecutionError,
		Message:  message,
	})
	exec.Result.AddError(validation.Error{
		Field:    ruleField(rule),
		Code:     validation.CodeRuleExecutionError,
		Message:  message,
		Severity: validation.SeverityError,
		Context:  map[string]interface{}{"rule_id": rule.ID},
	})
}

// ruleField names the result field for a rule-level finding.
func ruleField(rule *Rule) string {
	if field, ok := rule.Metadata["field"].(string); ok && field != "" {
		return field
	}
	return rule.ID
}

// deepCopyRecord copies a record map so transforms never alias the
// caller's data.
func deepCopyRecord(record map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue recursively copies nested maps and slices.
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyRecord(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
