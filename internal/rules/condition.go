package rules

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/taskward/taskward/internal/validation"
)

// evaluateCondition checks one condition against a data object. It returns
// an error only when the condition itself is broken (malformed regex,
// unknown operator, missing custom predicate); the engine surfaces that as
// a rule execution error one level up.
func evaluateCondition(
	ctx context.Context,
	cond Condition,
	data map[string]interface{},
	vctx *validation.Context,
) (bool, error) {
	if cond.Operator == OpCustom {
		if cond.Custom == nil {
			return false, fmt.Errorf("custom condition on %q has no predicate", cond.Field)
		}
		return cond.Custom(ctx, data, vctx)
	}

	value, present := resolvePath(data, cond.Field)

	switch cond.Operator {
	case OpExists:
		return present && value != nil, nil
	case OpNotExists:
		return !present || value == nil, nil
	case OpEquals:
		return equalValues(value, cond.Value), nil
	case OpNotEquals:
		return !equalValues(value, cond.Value), nil
	case OpGreaterThan:
		return compareValues(value, cond.Value) > 0, nil
	case OpLessThan:
		return compareValues(value, cond.Value) < 0, nil
	case OpContains:
		return containsValue(value, cond.Value), nil
	case OpNotContains:
		return !containsValue(value, cond.Value), nil
	case OpIn:
		return memberOf(cond.Value, value), nil
	case OpNotIn:
		return !memberOf(cond.Value, value), nil
	case OpRegex:
		return matchRegex(value, cond.Value)
	default:
		return false, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// resolvePath walks a dot-notation path into nested maps. Traversal
// through a missing or non-map intermediate segment yields absent.
func resolvePath(data map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current interface{} = data
	for _, segment := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// equalValues compares with numeric coercion so 5 equals 5.0 regardless of
// which Go numeric kind the payload decoded into.
func equalValues(a, b interface{}) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values: negative when a < b, positive when
// a > b, zero when equal or incomparable. Numbers compare numerically,
// strings lexicographically, timestamps chronologically.
func compareValues(a, b interface{}) int {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs)
		}
	}

	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	return 0
}

// containsValue implements the contains operator: substring containment on
// strings, membership on slices, vacuously false for anything else.
func containsValue(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && strings.Contains(h, n)
	case []interface{}:
		for _, item := range h {
			if equalValues(item, needle) {
				return true
			}
		}
		return false
	case []string:
		n, ok := needle.(string)
		if !ok {
			return false
		}
		for _, item := range h {
			if item == n {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// memberOf reports whether value is a member of the condition's set.
func memberOf(set, value interface{}) bool {
	switch s := set.(type) {
	case []interface{}:
		for _, item := range s {
			if equalValues(item, value) {
				return true
			}
		}
	case []string:
		v, ok := value.(string)
		if !ok {
			return false
		}
		for _, item := range s {
			if item == v {
				return true
			}
		}
	}
	return false
}

// matchRegex matches a string field against a pattern. Non-string operands
// are silently false; a malformed pattern is an error the engine converts
// into a rule execution error.
func matchRegex(value, pattern interface{}) (bool, error) {
	s, sok := value.(string)
	p, pok := pattern.(string)
	if !sok || !pok {
		return false, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", p, err)
	}
	return re.MatchString(s), nil
}

// toFloat64 coerces any Go numeric kind to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toTime coerces a time.Time or RFC 3339 string into a timestamp.
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
		return time.Time{}, false
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
