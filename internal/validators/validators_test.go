package validators

import (
	"context"
	"testing"

	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/validation"
)

// fakeAccess is an in-memory store.Access for validator tests. Only the
// methods validators reach for are stubbed; any other call panics through
// the embedded nil interface. A non-nil lookupErr makes every lookup fail,
// for containment tests.
type fakeAccess struct {
	store.Access

	lists map[string]bool
	items map[string]bool
	users map[string]bool

	ancestors   map[string][]string // list id -> ancestor chain, nearest first
	parents     map[string]string   // list id -> persisted parent
	takenTitles map[string]bool     // title + "|" + parentID
	statuses    map[string]string   // table + "|" + id -> status
	itemDeps    map[string][]string // item id -> dependency ids

	lookupErr error
}

func (f *fakeAccess) ListExists(ctx context.Context, id string) (bool, error) {
	return f.lists[id], f.lookupErr
}

func (f *fakeAccess) ItemExists(ctx context.Context, id string) (bool, error) {
	return f.items[id], f.lookupErr
}

func (f *fakeAccess) UserExists(ctx context.Context, id string) (bool, error) {
	return f.users[id], f.lookupErr
}

func (f *fakeAccess) ListAncestors(ctx context.Context, id string, maxDepth int) ([]string, error) {
	return f.ancestors[id], f.lookupErr
}

func (f *fakeAccess) ListParent(ctx context.Context, id string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	parent, ok := f.parents[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return parent, nil
}

func (f *fakeAccess) TitleExistsInParent(ctx context.Context, title, parentID, excludeID string) (bool, error) {
	return f.takenTitles[title+"|"+parentID], f.lookupErr
}

func (f *fakeAccess) CurrentStatus(ctx context.Context, table, id string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	status, ok := f.statuses[table+"|"+id]
	if !ok {
		return "", store.ErrNotFound
	}
	return status, nil
}

func (f *fakeAccess) ItemDependencies(ctx context.Context, id string) ([]string, error) {
	return f.itemDeps[id], f.lookupErr
}

func (f *fakeAccess) ItemStatuses(ctx context.Context, ids []string) (map[string]string, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	out := make(map[string]string)
	for _, id := range ids {
		if status, ok := f.statuses["items|"+id]; ok {
			out[id] = status
		}
	}
	return out, nil
}

// errorCodes flattens a result's error codes for order-insensitive
// assertions.
func errorCodes(result *validation.Result) []validation.Code {
	codes := make([]validation.Code, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func hasErrorCode(t *testing.T, result *validation.Result, code validation.Code) bool {
	t.Helper()
	for _, e := range result.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}
