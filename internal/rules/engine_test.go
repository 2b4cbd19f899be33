package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskward/taskward/internal/validation"
)

func failingRule(id string, priority int, message string) *Rule {
	return &Rule{
		ID:        id,
		Name:      id,
		Severity:  validation.SeverityError,
		Enabled:   true,
		Priority:  priority,
		AppliesTo: []string{"item"},
		Actions: []Action{
			{Type: ActionBlock, Message: message, Code: validation.CodeBusinessRuleViolation},
		},
	}
}

func TestExecuteRulesPriorityOrdering(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(failingRule("rule-a", 10, "from A"))
	engine.AddRule(failingRule("rule-b", 90, "from B"))

	exec := engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)

	require.Len(t, exec.Result.Errors, 2)
	// Higher priority reports first.
	assert.Equal(t, "from B", exec.Result.Errors[0].Message)
	assert.Equal(t, "from A", exec.Result.Errors[1].Message)
}

func TestExecuteRulesDeterministic(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(failingRule("rule-a", 50, "from A"))
	engine.AddRule(failingRule("rule-b", 50, "from B"))
	engine.AddRule(failingRule("rule-c", 70, "from C"))

	data := map[string]interface{}{"status": "pending"}
	first := engine.ExecuteRules(context.Background(), "item", data, nil)
	second := engine.ExecuteRules(context.Background(), "item", data, nil)

	require.Equal(t, len(first.Result.Errors), len(second.Result.Errors))
	for i := range first.Result.Errors {
		assert.Equal(t, first.Result.Errors[i], second.Result.Errors[i])
	}
	// Equal priorities keep registration order.
	assert.Equal(t, "from C", first.Result.Errors[0].Message)
	assert.Equal(t, "from A", first.Result.Errors[1].Message)
	assert.Equal(t, "from B", first.Result.Errors[2].Message)
}

func TestExecuteRulesANDSemantics(t *testing.T) {
	fired := 0
	rule := &Rule{
		ID:        "two-conditions",
		Name:      "two conditions",
		Severity:  validation.SeverityError,
		Enabled:   true,
		AppliesTo: []string{"item"},
		Conditions: []Condition{
			{Field: "status", Operator: OpEquals, Value: "completed"},
			{Field: "priority", Operator: OpEquals, Value: "high"},
		},
		Actions: []Action{
			{
				Type: ActionValidate,
				Check: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					fired++
					return false, nil
				},
				Message: "fired",
			},
		},
	}

	engine := NewEngine(nil)
	engine.AddRule(rule)

	// One condition false: the rule body never runs.
	exec := engine.ExecuteRules(context.Background(), "item",
		map[string]interface{}{"status": "completed", "priority": "low"}, nil)
	assert.Zero(t, fired)
	assert.True(t, exec.Result.OK())

	// Both true: it fires.
	exec = engine.ExecuteRules(context.Background(), "item",
		map[string]interface{}{"status": "completed", "priority": "high"}, nil)
	assert.Equal(t, 1, fired)
	assert.False(t, exec.Result.OK())
}

func TestExecuteRulesFaultIsolation(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(&Rule{
		ID:        "broken",
		Name:      "broken rule",
		Severity:  validation.SeverityError,
		Enabled:   true,
		Priority:  90,
		AppliesTo: []string{"item"},
		Actions: []Action{
			{
				Type: ActionValidate,
				Check: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					return false, errors.New("backend exploded")
				},
			},
		},
	})
	engine.AddRule(failingRule("healthy", 10, "healthy rule fired"))

	exec := engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)

	require.Len(t, exec.Result.Errors, 2)
	assert.Equal(t, validation.CodeRuleExecutionError, exec.Result.Errors[0].Code)
	assert.Equal(t, "healthy rule fired", exec.Result.Errors[1].Message)
}

func TestExecuteRulesPanicContainment(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(&Rule{
		ID:        "panics",
		Name:      "panics",
		Severity:  validation.SeverityError,
		Enabled:   true,
		Priority:  90,
		AppliesTo: []string{"item"},
		Actions: []Action{
			{
				Type: ActionValidate,
				Check: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error) {
					panic("boom")
				},
			},
		},
	})
	engine.AddRule(failingRule("survivor", 10, "survivor fired"))

	exec := engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)

	require.Len(t, exec.Result.Errors, 2)
	assert.Equal(t, validation.CodeRuleExecutionError, exec.Result.Errors[0].Code)
	assert.Equal(t, "survivor fired", exec.Result.Errors[1].Message)
}

func TestSetRuleEnabledToggle(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(failingRule("toggle-me", 10, "toggled rule fired"))

	engine.SetRuleEnabled("toggle-me", false)
	exec := engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)
	assert.True(t, exec.Result.OK())

	// Re-enabling restores behavior without re-registration.
	engine.SetRuleEnabled("toggle-me", true)
	exec = engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)
	require.Len(t, exec.Result.Errors, 1)
	assert.Equal(t, "toggled rule fired", exec.Result.Errors[0].Message)

	// Unknown id is a no-op.
	engine.SetRuleEnabled("nonexistent", false)
}

func TestRemoveRuleIdempotent(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(failingRule("gone", 10, "gone"))

	engine.RemoveRule("gone")
	engine.RemoveRule("gone")
	engine.RemoveRule("never-existed")

	assert.Empty(t, engine.RulesFor("item"))
	exec := engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)
	assert.True(t, exec.Result.OK())
}

func TestEmptyAppliesToNeverIndexed(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(&Rule{
		ID:       "unbound",
		Name:     "unbound",
		Enabled:  true,
		Severity: validation.SeverityError,
		Actions:  []Action{{Type: ActionBlock, Message: "should never fire"}},
	})

	for _, modelName := range []string{"list", "item", ""} {
		exec := engine.ExecuteRules(context.Background(), modelName, map[string]interface{}{}, nil)
		assert.True(t, exec.Result.OK())
	}
}

func TestTransformMergesWithoutMutatingCaller(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(&Rule{
		ID:        "normalizer",
		Name:      "normalizer",
		Severity:  validation.SeverityInfo,
		Enabled:   true,
		Priority:  90,
		AppliesTo: []string{"item"},
		Actions: []Action{
			{
				Type: ActionTransform,
				Transform: func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (map[string]interface{}, error) {
					return map[string]interface{}{"priority": "medium"}, nil
				},
			},
			// Unreachable: transform ends the rule.
			{Type: ActionBlock, Message: "must not fire"},
		},
	})

	// Later rule sees the transformed payload.
	engine.AddRule(&Rule{
		ID:        "after-transform",
		Name:      "after transform",
		Severity:  validation.SeverityError,
		Enabled:   true,
		Priority:  10,
		AppliesTo: []string{"item"},
		Conditions: []Condition{
			{Field: "priority", Operator: OpEquals, Value: "medium"},
		},
		Actions: []Action{{Type: ActionBlock, Message: "saw transformed value"}},
	})

	caller := map[string]interface{}{"title": "task"}
	exec := engine.ExecuteRules(context.Background(), "item", caller, nil)

	// Caller's map untouched; merged copy carries the transform.
	_, mutated := caller["priority"]
	assert.False(t, mutated)
	assert.Equal(t, "medium", exec.Data["priority"])

	require.Len(t, exec.Result.Errors, 1)
	assert.Equal(t, "saw transformed value", exec.Result.Errors[0].Message)
}

func TestWarningSeverityDoesNotBlock(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(&Rule{
		ID:        "advisory",
		Name:      "advisory",
		Severity:  validation.SeverityWarning,
		Enabled:   true,
		AppliesTo: []string{"item"},
		Actions:   []Action{{Type: ActionBlock, Message: "heads up"}},
	})

	exec := engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)

	assert.True(t, exec.Result.OK())
	require.Len(t, exec.Result.Warnings, 1)
	assert.Equal(t, "heads up", exec.Result.Warnings[0].Message)
}

func TestAddRuleOverwritesByID(t *testing.T) {
	engine := NewEngine(nil)
	engine.AddRule(failingRule("dup", 10, "first version"))
	engine.AddRule(failingRule("dup", 20, "second version"))

	assert.Len(t, engine.RulesFor("item"), 1)
	exec := engine.ExecuteRules(context.Background(), "item", map[string]interface{}{}, nil)
	require.Len(t, exec.Result.Errors, 1)
	assert.Equal(t, "second version", exec.Result.Errors[0].Message)
}
