package validators

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/validation"
)

func newListFixture(st *fakeAccess) *Base {
	return NewListValidator(config.Default().Validation, st, nil)
}

func TestListCreateValid(t *testing.T) {
	v := newListFixture(&fakeAccess{lists: map[string]bool{"parent": true}})

	result := v.ValidateCreate(context.Background(), map[string]interface{}{
		"title":    "Groceries",
		"parentId": "parent",
	}, nil)
	assert.True(t, result.OK())
	assert.Empty(t, result.Warnings)
}

func TestListCreateShapeShortCircuits(t *testing.T) {
	// lookupErr would surface as CONSTRAINT_ERROR findings if any
	// constraint ran; a malformed payload must never reach the store.
	v := newListFixture(&fakeAccess{lookupErr: errors.New("store must not be called")})

	result := v.ValidateCreate(context.Background(), map[string]interface{}{
		"description": "no title",
	}, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeRequiredField, result.Errors[0].Code)
	assert.Equal(t, "title", result.Errors[0].Field)
}

func TestListUpdateRejectsServerOwnedFields(t *testing.T) {
	v := newListFixture(&fakeAccess{lookupErr: errors.New("store must not be called")})

	result := v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":        "l1",
		"title":     "Renamed",
		"createdAt": "2026-01-01T00:00:00Z",
	}, nil)
	assert.False(t, result.OK())
	assert.True(t, hasErrorCode(t, result, validation.CodeConstraintViolation))
}

func TestListCreateMissingParent(t *testing.T) {
	v := newListFixture(&fakeAccess{lists: map[string]bool{}})

	result := v.ValidateCreate(context.Background(), map[string]interface{}{
		"title":    "Orphan",
		"parentId": "ghost",
	}, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeForeignKeyViolation, result.Errors[0].Code)
	assert.Equal(t, "parentId", result.Errors[0].Field)
}

func TestListUpdateCircularParent(t *testing.T) {
	// Hierarchy a -> b -> c; reparenting a under c closes the loop.
	st := &fakeAccess{
		lists:     map[string]bool{"a": true, "b": true, "c": true},
		ancestors: map[string][]string{"c": {"b", "a"}},
	}
	v := newListFixture(st)

	result := v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":       "a",
		"parentId": "c",
	}, nil)
	assert.True(t, hasErrorCode(t, result, validation.CodeCircularDependency))

	// Self-parenting is the degenerate cycle.
	result = v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":       "a",
		"parentId": "a",
	}, nil)
	assert.True(t, hasErrorCode(t, result, validation.CodeCircularDependency))
}

func TestListDuplicateTitleUsesPersistedParent(t *testing.T) {
	// Update that renames without moving: uniqueness is scoped to the
	// persisted parent, not the payload.
	st := &fakeAccess{
		parents:     map[string]string{"l1": "parent"},
		takenTitles: map[string]bool{"Taken|parent": true},
	}
	v := newListFixture(st)

	result := v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":    "l1",
		"title": "Taken",
	}, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeDuplicateValue, result.Errors[0].Code)
}

func TestListErrorsAccumulate(t *testing.T) {
	// A missing parent and a duplicate title are independent findings;
	// one call reports both.
	st := &fakeAccess{
		lists:       map[string]bool{},
		takenTitles: map[string]bool{"Dup|ghost": true},
	}
	v := newListFixture(st)

	result := v.ValidateCreate(context.Background(), map[string]interface{}{
		"title":    "Dup",
		"parentId": "ghost",
	}, nil)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, errorCodes(result), validation.CodeForeignKeyViolation)
	assert.Contains(t, errorCodes(result), validation.CodeDuplicateValue)
}

func TestListNestingDepth(t *testing.T) {
	st := &fakeAccess{
		lists: map[string]bool{"deep": true, "mid": true},
		ancestors: map[string][]string{
			"deep": {"l4", "l3", "l2", "l1"}, // a child would be depth 6
			"mid":  {"l2", "l1"},             // a child would be depth 4
		},
	}
	v := newListFixture(st)

	result := v.ValidateCreate(context.Background(), map[string]interface{}{
		"title":    "Too deep",
		"parentId": "deep",
	}, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeBusinessRuleViolation, result.Errors[0].Code)

	// Depth four against a ceiling of five warns but passes.
	result = v.ValidateCreate(context.Background(), map[string]interface{}{
		"title":    "Close to the edge",
		"parentId": "mid",
	}, nil)
	assert.True(t, result.OK())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "parentId", result.Warnings[0].Field)
}

func TestListStatusTransitions(t *testing.T) {
	st := &fakeAccess{statuses: map[string]string{
		"lists|active-list":  "active",
		"lists|deleted-list": "deleted",
	}}
	v := newListFixture(st)
	vctx := &validation.Context{Operation: validation.OpUpdate}

	// Archiving an active list is legal.
	result := v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":     "active-list",
		"status": "archived",
	}, vctx)
	assert.True(t, result.OK())

	// Deleted is terminal.
	result = v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":     "deleted-list",
		"status": "active",
	}, vctx)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeInvalidStateTransition, result.Errors[0].Code)
}

func TestListCompletionTimestamp(t *testing.T) {
	st := &fakeAccess{statuses: map[string]string{"lists|l1": "active"}}
	v := newListFixture(st)
	vctx := &validation.Context{Operation: validation.OpUpdate}

	// Completing without a timestamp warns.
	result := v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":     "l1",
		"status": "completed",
	}, vctx)
	assert.True(t, result.OK())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "completedAt", result.Warnings[0].Field)

	// A completion timestamp on a non-completed list is an error.
	result = v.ValidateUpdate(context.Background(), map[string]interface{}{
		"id":          "l1",
		"status":      "active",
		"completedAt": "2026-02-01T10:00:00Z",
	}, vctx)
	assert.True(t, hasErrorCode(t, result, validation.CodeBusinessRuleViolation))
}

func TestListSkipFlags(t *testing.T) {
	st := &fakeAccess{lists: map[string]bool{}}
	v := newListFixture(st)

	data := map[string]interface{}{"title": "x", "parentId": "ghost"}

	result := v.ValidateCreate(context.Background(), data,
		&validation.Context{SkipConstraints: true})
	assert.True(t, result.OK())

	// Constraints still run when only business rules are skipped.
	result = v.ValidateCreate(context.Background(), data,
		&validation.Context{SkipBusinessRules: true})
	assert.True(t, hasErrorCode(t, result, validation.CodeForeignKeyViolation))
}

func TestListCheckFailureContainment(t *testing.T) {
	// Every lookup fails; each broken check becomes its own synthetic
	// finding and the rest still run.
	v := newListFixture(&fakeAccess{lookupErr: errors.New("connection reset")})

	result := v.ValidateCreate(context.Background(), map[string]interface{}{
		"title":    "x",
		"parentId": "p",
	}, nil)
	assert.Contains(t, errorCodes(result), validation.CodeConstraintError)
	assert.Contains(t, errorCodes(result), validation.CodeBusinessRuleError)
	assert.GreaterOrEqual(t, len(result.Errors), 2)
}

func TestListValidateDelete(t *testing.T) {
	v := newListFixture(&fakeAccess{lists: map[string]bool{"l1": true}})

	result := v.ValidateDelete(context.Background(), "l1", nil)
	assert.True(t, result.OK())

	result = v.ValidateDelete(context.Background(), "ghost", nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeResourceNotFound, result.Errors[0].Code)

	result = v.ValidateDelete(context.Background(), "", nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeRequiredField, result.Errors[0].Code)
}
