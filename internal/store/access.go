// Package store is the data-access collaborator of the validation core. It
// supplies the existence checks, hierarchy traversals, and batched record
// fetches that constraints, business rules, and integrity scans await on,
// plus the foreign-key reference map used for request-time FK validation
// and read-only cascade analysis.
package store

import (
	"context"
	"fmt"
	"time"
)

// Record is one persisted row presented to the validation core as a
// loosely-typed field map. Every record carries an "id" key.
type Record map[string]interface{}

// ID returns the record's id, or the empty string when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// String returns the named field as a string, or "" when absent or not a
// string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Time returns the named field as a time.Time. The zero time is returned
// when the field is absent, nil, or not a timestamp.
func (r Record) Time(field string) time.Time {
	switch v := r[field].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

// Reference describes one foreign-key relationship in the task domain.
type Reference struct {
	FromTable  string
	FromColumn string
	ToTable    string
	OnDelete   CascadeAction
}

// String returns the reference in from.column -> to form.
func (ref Reference) String() string {
	return fmt.Sprintf("%s.%s -> %s", ref.FromTable, ref.FromColumn, ref.ToTable)
}

// CascadeAction is what deleting a referenced row does to referencing rows.
type CascadeAction string

const (
	CascadeDelete   CascadeAction = "cascade"
	CascadeSetNull  CascadeAction = "set_null"
	CascadeRestrict CascadeAction = "restrict"
)

// BrokenReference is one row whose foreign-key column points at a record
// that no longer exists.
type BrokenReference struct {
	Reference Reference
	RecordID  string
	Value     string
}

// Access is the read-side contract the validation core depends on. All
// methods take a context because each is a suspension point awaiting the
// underlying database; implementations must honor cancellation.
//
// Existence checks return (false, nil) for unknown ids and reserve the
// error return for infrastructure failures.
type Access interface {
	// Existence checks for foreign-key constraints.
	ListExists(ctx context.Context, id string) (bool, error)
	ItemExists(ctx context.Context, id string) (bool, error)
	UserExists(ctx context.Context, id string) (bool, error)

	// CurrentStatus returns the persisted status of a record, for
	// status-transition rules on update. ErrNotFound when the record
	// does not exist.
	CurrentStatus(ctx context.Context, table, id string) (string, error)

	// ListParent returns the parent list id, or "" for a root list.
	ListParent(ctx context.Context, id string) (string, error)

	// ListAncestors walks the parent chain upward from the given list,
	// nearest ancestor first, stopping at a root or after maxDepth
	// hops.
	ListAncestors(ctx context.Context, id string, maxDepth int) ([]string, error)

	// ItemDependencies returns the ids the given item depends on.
	ItemDependencies(ctx context.Context, id string) ([]string, error)

	// DependentItems returns the ids of items that depend on the given
	// item.
	DependentItems(ctx context.Context, id string) ([]string, error)

	// ItemStatuses returns the status of each existing item in ids.
	// Missing ids are absent from the result rather than an error.
	ItemStatuses(ctx context.Context, ids []string) (map[string]string, error)

	// TitleExistsInParent reports whether another list under the same
	// parent already carries the title. excludeID skips the record
	// being updated; parentID "" means root scope.
	TitleExistsInParent(ctx context.Context, title, parentID, excludeID string) (bool, error)

	// OpenItemCount counts pending/in_progress/blocked items assigned
	// to the user, for workload-balance rules.
	OpenItemCount(ctx context.Context, userID string) (int, error)

	// FetchBatch returns up to limit records from the table with
	// id > afterID, ordered by id. Keyset pagination keeps repeated
	// scans deterministic on a stable snapshot.
	FetchBatch(ctx context.Context, table, afterID string, limit int) ([]Record, error)

	// CountRows returns the row count of a table.
	CountRows(ctx context.Context, table string) (int64, error)

	// OrphanedItems returns items whose list no longer exists.
	OrphanedItems(ctx context.Context) ([]Record, error)

	// OrphanedLists returns lists whose parent no longer exists.
	OrphanedLists(ctx context.Context) ([]Record, error)

	// MissingReferences returns rows of ref.FromTable whose
	// ref.FromColumn points at a nonexistent ref.ToTable row.
	MissingReferences(ctx context.Context, ref Reference) ([]BrokenReference, error)

	// CountReferencing counts rows of ref.FromTable whose
	// ref.FromColumn equals id, for cascade analysis.
	CountReferencing(ctx context.Context, ref Reference, id string) (int64, error)
}
