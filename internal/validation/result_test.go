package validation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestResult_OK(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *Result
		wantOK bool
	}{
		{
			name:   "empty result passes",
			build:  NewResult,
			wantOK: true,
		},
		{
			name: "warnings do not fail a result",
			build: func() *Result {
				r := NewResult()
				r.Warn("dueDate", CodeBusinessRuleViolation, "due date is in the past")
				return r
			},
			wantOK: true,
		},
		{
			name: "single error fails the result",
			build: func() *Result {
				r := NewResult()
				r.Fail("title", CodeRequiredField, "is required")
				return r
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.build()
			if got := r.OK(); got != tt.wantOK {
				t.Errorf("Result.OK() = %v, want %v", got, tt.wantOK)
			}
		})
	}
}

func TestResult_DefaultSeverities(t *testing.T) {
	r := NewResult()
	r.AddError(Error{Field: "listId", Code: CodeForeignKeyViolation, Message: "list does not exist"})
	r.AddWarning(Warning{Field: "dueDate", Code: CodeBusinessRuleViolation, Message: "more than a year out"})

	if r.Errors[0].Severity != SeverityError {
		t.Errorf("error severity = %q, want %q", r.Errors[0].Severity, SeverityError)
	}
	if r.Warnings[0].Severity != SeverityWarning {
		t.Errorf("warning severity = %q, want %q", r.Warnings[0].Severity, SeverityWarning)
	}
}

func TestResult_MergePreservesOrder(t *testing.T) {
	first := NewResult()
	first.Fail("parentId", CodeForeignKeyViolation, "parent list does not exist")

	second := NewResult()
	second.Fail("title", CodeDuplicateValue, "title already used in this parent")

	combined := NewResult()
	combined.Merge(first)
	combined.Merge(second)
	combined.Merge(nil) // no-op

	if len(combined.Errors) != 2 {
		t.Fatalf("merged errors = %d, want 2", len(combined.Errors))
	}
	if combined.Errors[0].Code != CodeForeignKeyViolation || combined.Errors[1].Code != CodeDuplicateValue {
		t.Errorf("merge did not preserve order: %v", combined.Errors)
	}
}

func TestResult_ErrorString(t *testing.T) {
	r := NewResult()
	r.Fail("title", CodeRequiredField, "is required")

	if got := r.Error(); got != "validation failed: title: is required" {
		t.Errorf("Error() = %q", got)
	}

	r.Fail("listId", CodeForeignKeyViolation, "list does not exist")
	if got := r.Error(); !strings.Contains(got, "  - title: is required") {
		t.Errorf("multi-error Error() missing line: %q", got)
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	r := NewResult()
	r.Fail("status", CodeInvalidStateTransition, "cannot move from deleted to active")

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Success  bool      `json:"success"`
		Errors   []Error   `json:"errors"`
		Warnings []Warning `json:"warnings"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Success {
		t.Error("success = true for a failed result")
	}
	if len(decoded.Errors) != 1 || decoded.Errors[0].Code != CodeInvalidStateTransition {
		t.Errorf("errors = %v", decoded.Errors)
	}
	if decoded.Warnings == nil {
		t.Error("warnings should marshal as [], not null")
	}
}

func TestResult_Messages(t *testing.T) {
	r := NewResult()
	r.Fail("title", CodeRequiredField, "is required")
	r.Fail("", CodeValidationError, "update requires at least one field")

	got := r.Messages()
	want := []string{"title: is required", "update requires at least one field"}
	if len(got) != len(want) {
		t.Fatalf("Messages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Messages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContext_Clock(t *testing.T) {
	pinned := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ctx := &Context{Operation: OpCreate, Now: pinned}
	if got := ctx.Clock(); !got.Equal(pinned) {
		t.Errorf("Clock() = %v, want pinned %v", got, pinned)
	}

	unpinned := &Context{Operation: OpCreate}
	if got := unpinned.Clock(); time.Since(got) > time.Minute {
		t.Errorf("Clock() without Now should be near wall clock, got %v", got)
	}

	var nilCtx *Context
	if got := nilCtx.Clock(); time.Since(got) > time.Minute {
		t.Errorf("nil Context Clock() should fall back to wall clock, got %v", got)
	}
}

func TestOp_Valid(t *testing.T) {
	for _, op := range []Op{OpCreate, OpUpdate, OpDelete} {
		if !op.Valid() {
			t.Errorf("Op(%q).Valid() = false", op)
		}
	}
	if Op("upsert").Valid() {
		t.Error(`Op("upsert").Valid() = true`)
	}
}
