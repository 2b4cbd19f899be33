package validators

import (
	"fmt"
	"time"

	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/validation"
)

// validateShape checks a payload against a field spec map: required
// presence, value types, string lengths, and enum membership. Unknown
// payload keys are ignored except for the listed immutable fields, which
// are server-owned and rejected outright.
func validateShape(
	fields map[string]model.FieldSpec,
	data map[string]interface{},
	immutable []string,
) *validation.Result {
	result := validation.NewResult()

	for _, field := range immutable {
		if _, present := data[field]; present {
			result.AddError(validation.Error{
				Field:   field,
				Code:    validation.CodeConstraintViolation,
				Message: fmt.Sprintf("%s is server-managed and cannot be set", field),
			})
		}
	}

	for name, spec := range fields {
		value, present := data[name]
		if !present || value == nil {
			if spec.Required {
				result.Fail(name, validation.CodeRequiredField, fmt.Sprintf("%s is required", name))
			}
			continue
		}
		checkFieldValue(result, name, spec, value)
	}

	return result
}

func checkFieldValue(result *validation.Result, name string, spec model.FieldSpec, value interface{}) {
	switch spec.Type {
	case model.FieldString:
		s, ok := value.(string)
		if !ok {
			typeError(result, name, spec, value)
			return
		}
		if spec.MaxLen > 0 && len(s) > spec.MaxLen {
			result.AddError(validation.Error{
				Field:   name,
				Code:    validation.CodeOutOfRange,
				Message: fmt.Sprintf("%s must be at most %d characters", name, spec.MaxLen),
				Context: map[string]interface{}{"max": spec.MaxLen, "actual": len(s)},
			})
		}
		if len(spec.Enum) > 0 && !enumContains(spec.Enum, s) {
			result.AddError(validation.Error{
				Field:   name,
				Code:    validation.CodeInvalidFormat,
				Message: fmt.Sprintf("%s must be one of %v", name, spec.Enum),
				Context: map[string]interface{}{"allowed": spec.Enum, "actual": s},
			})
		}

	case model.FieldInt:
		n, ok := toInt(value)
		if !ok {
			typeError(result, name, spec, value)
			return
		}
		if n < 0 {
			result.AddError(validation.Error{
				Field:   name,
				Code:    validation.CodeOutOfRange,
				Message: fmt.Sprintf("%s must not be negative", name),
				Context: map[string]interface{}{"actual": n},
			})
		}

	case model.FieldFloat:
		if _, ok := toFloat(value); !ok {
			typeError(result, name, spec, value)
		}

	case model.FieldBool:
		if _, ok := value.(bool); !ok {
			typeError(result, name, spec, value)
		}

	case model.FieldTimestamp:
		switch v := value.(type) {
		case time.Time, *time.Time:
			// Already a timestamp.
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				result.AddError(validation.Error{
					Field:   name,
					Code:    validation.CodeInvalidFormat,
					Message: fmt.Sprintf("%s must be an RFC 3339 timestamp", name),
					Context: map[string]interface{}{"actual": v},
				})
			}
		default:
			typeError(result, name, spec, value)
		}

	case model.FieldStringSlice:
		switch v := value.(type) {
		case []string:
			// Already typed.
		case []interface{}:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					typeError(result, name, spec, item)
					return
				}
			}
		default:
			typeError(result, name, spec, value)
		}

	case model.FieldMap:
		if _, ok := value.(map[string]interface{}); !ok {
			typeError(result, name, spec, value)
		}
	}
}

func typeError(result *validation.Result, name string, spec model.FieldSpec, value interface{}) {
	result.AddError(validation.Error{
		Field:   name,
		Code:    validation.CodeInvalidType,
		Message: fmt.Sprintf("%s must be a %s", name, spec.Type),
		Context: map[string]interface{}{"actual": fmt.Sprintf("%T", value)},
	})
}

func enumContains(enum []string, value string) bool {
	for _, allowed := range enum {
		if allowed == value {
			return true
		}
	}
	return false
}

// toInt accepts the integer encodings a JSON decode or typed caller can
// produce. Fractional floats are not integers.
func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// fieldTime reads a timestamp field that already passed shape validation.
func fieldTime(data map[string]interface{}, name string) (time.Time, bool) {
	switch v := data[name].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
		return time.Time{}, false
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// fieldStrings reads a string-slice field that already passed shape
// validation.
func fieldStrings(data map[string]interface{}, name string) []string {
	switch v := data[name].(type) {
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
