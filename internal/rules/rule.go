// Package rules implements the declarative business rule engine: rules
// carry ordered conditions (all must hold) and ordered actions, are indexed
// per model in descending priority, and execute with per-rule fault
// isolation so one broken rule never aborts the batch.
package rules

import (
	"context"

	"github.com/taskward/taskward/internal/validation"
)

// Operator is the comparison a condition applies between a field value and
// the condition's value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "not_exists"
	OpRegex       Operator = "regex"
	OpCustom      Operator = "custom"
)

// Valid reports whether the operator is a known value.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan,
		OpContains, OpNotContains, OpIn, OpNotIn,
		OpExists, OpNotExists, OpRegex, OpCustom:
		return true
	}
	return false
}

// Category classifies a rule for reporting.
type Category string

const (
	CategoryDataIntegrity Category = "data_integrity"
	CategoryBusinessLogic Category = "business_logic"
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategoryCompliance    Category = "compliance"
)

// CustomFunc is the predicate behind an OpCustom condition. It receives
// the full data object and the per-call validation context.
type CustomFunc func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error)

// Condition is one declarative predicate of a rule. Field supports
// dot-notation paths into nested objects; a missing intermediate segment
// resolves to absent rather than an error.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
	Custom   CustomFunc
}

// ActionType is the effect kind of a rule action.
type ActionType string

const (
	// ActionValidate is a pass/fail gate; failure halts later actions.
	ActionValidate ActionType = "validate"
	// ActionTransform produces a partial replacement merged into the
	// payload and ends action execution for the rule.
	ActionTransform ActionType = "transform"
	// ActionLog emits a diagnostic and never fails the rule.
	ActionLog ActionType = "log"
	// ActionNotify is a reserved extension point, currently a no-op.
	ActionNotify ActionType = "notify"
	// ActionBlock fails the rule unconditionally.
	ActionBlock ActionType = "block"
)

// CheckFunc is the predicate behind an ActionValidate action.
type CheckFunc func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (bool, error)

// TransformFunc produces a partial payload merged into the data under
// validation. It must not mutate its input.
type TransformFunc func(ctx context.Context, data map[string]interface{}, vctx *validation.Context) (map[string]interface{}, error)

// Action is one effect of a rule, executed in array order per the rule's
// action list.
type Action struct {
	Type      ActionType
	Code      validation.Code
	Message   string
	Check     CheckFunc
	Transform TransformFunc
	Params    map[string]interface{}
}

// Rule is a named, prioritized policy unit. Conditions are AND-ed; there
// is no native OR, which is expressed as a custom condition or a second
// rule. A rule with an empty AppliesTo is never indexed for any model.
type Rule struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Severity    validation.Severity
	Enabled     bool
	Priority    int
	AppliesTo   []string
	Conditions  []Condition
	Actions     []Action
	Metadata    map[string]interface{}
}

// Outcome is the per-rule execution record surfaced to the orchestrator's
// breakdown.
type Outcome struct {
	RuleID          string
	RuleName        string
	Passed          bool
	Severity        validation.Severity
	Code            validation.Code
	Message         string
	TransformedData map[string]interface{}
	Metadata        map[string]interface{}
}

// Execution is the result of one ExecuteRules call. Data is the payload
// after transform actions, built on a deep copy; the caller's map is never
// mutated.
type Execution struct {
	Result   *validation.Result
	Data     map[string]interface{}
	Outcomes []Outcome
}
