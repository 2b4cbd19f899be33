package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/validation"
)

type fkFake struct {
	Access

	lists map[string]bool
	items map[string]bool
	users map[string]bool

	broken    map[string][]BrokenReference // keyed by ref.FromColumn
	refCounts map[string]int64             // keyed by ref.FromColumn
	lookupErr error
}

func (f *fkFake) ListExists(ctx context.Context, id string) (bool, error) {
	return f.lists[id], f.lookupErr
}

func (f *fkFake) ItemExists(ctx context.Context, id string) (bool, error) {
	return f.items[id], f.lookupErr
}

func (f *fkFake) UserExists(ctx context.Context, id string) (bool, error) {
	return f.users[id], f.lookupErr
}

func (f *fkFake) MissingReferences(ctx context.Context, ref Reference) ([]BrokenReference, error) {
	return f.broken[ref.FromColumn], f.lookupErr
}

func (f *fkFake) CountReferencing(ctx context.Context, ref Reference, id string) (int64, error) {
	return f.refCounts[ref.FromColumn], f.lookupErr
}

func TestValidateReferencesAccumulates(t *testing.T) {
	fake := &fkFake{
		lists: map[string]bool{},
		items: map[string]bool{"dep-ok": true},
		users: map[string]bool{},
	}
	m := NewForeignKeyManager(fake, nil)

	result := m.ValidateReferences(context.Background(), model.ModelItem, map[string]interface{}{
		"listId":       "ghost-list",
		"assigneeId":   "ghost-user",
		"dependencies": []string{"dep-ok", "dep-ghost"},
	})
	require.Len(t, result.Errors, 3)
	for _, e := range result.Errors {
		assert.Equal(t, validation.CodeForeignKeyViolation, e.Code)
	}
}

func TestValidateReferencesSkipsAbsentFields(t *testing.T) {
	m := NewForeignKeyManager(&fkFake{}, nil)

	result := m.ValidateReferences(context.Background(), model.ModelList, map[string]interface{}{
		"title": "No parent",
	})
	assert.True(t, result.OK())
}

func TestValidateReferencesLookupFailure(t *testing.T) {
	fake := &fkFake{lookupErr: errors.New("connection reset")}
	m := NewForeignKeyManager(fake, nil)

	result := m.ValidateReferences(context.Background(), model.ModelList, map[string]interface{}{
		"parentId": "p1",
	})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CodeFKConstraintError, result.Errors[0].Code)
}

func TestCheckViolationsFiltersTables(t *testing.T) {
	ref := Reference{
		FromTable:  model.TableItems,
		FromColumn: "list_id",
		ToTable:    model.TableLists,
		OnDelete:   CascadeDelete,
	}
	fake := &fkFake{broken: map[string][]BrokenReference{
		"list_id": {{Reference: ref, RecordID: "i1", Value: "gone"}},
	}}
	m := NewForeignKeyManager(fake, nil)

	broken, err := m.CheckViolations(context.Background(), []string{model.TableItems})
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "i1", broken[0].RecordID)

	// Restricting the sweep to lists leaves items out entirely.
	broken, err = m.CheckViolations(context.Background(), []string{model.TableLists})
	require.NoError(t, err)
	assert.Empty(t, broken)
}

func TestAnalyzeCascade(t *testing.T) {
	fake := &fkFake{refCounts: map[string]int64{
		"list_id":   5,
		"parent_id": 2,
	}}
	m := NewForeignKeyManager(fake, nil)

	report, err := m.AnalyzeCascade(context.Background(), model.ModelList, "l1")
	require.NoError(t, err)
	assert.Equal(t, model.TableLists, report.Table)
	assert.Equal(t, int64(7), report.TotalAffected())
	require.Len(t, report.Affected, 2)
	assert.Equal(t, CascadeDelete, report.Affected[0].OnDelete)
	assert.Equal(t, CascadeSetNull, report.Affected[1].OnDelete)
}

func TestAnalyzeCascadeUnknownModel(t *testing.T) {
	m := NewForeignKeyManager(&fkFake{}, nil)

	_, err := m.AnalyzeCascade(context.Background(), "widget", "x")
	assert.True(t, IsUnknownTable(err))
}

func TestReferencesCoverDomain(t *testing.T) {
	m := NewForeignKeyManager(&fkFake{}, nil)

	to := make(map[string]int)
	for _, ref := range m.References() {
		to[ref.ToTable]++
	}
	assert.Equal(t, 2, to[model.TableLists])
	assert.Equal(t, 2, to[model.TableItems])
	assert.Equal(t, 1, to[model.TableUsers])
}
