package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/model"
)

// SQL implements Access against a PostgreSQL database. Callers open the
// *sql.DB with the pgx stdlib driver; SQL never closes it.
type SQL struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQL creates a SQL-backed Access. A nil logger defaults to a no-op.
func NewSQL(db *sql.DB, logger *zap.Logger) *SQL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQL{db: db, logger: logger}
}

// DB returns the underlying database handle.
func (s *SQL) DB() *sql.DB {
	return s.db
}

func (s *SQL) exists(ctx context.Context, table, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", pq.QuoteIdentifier(table))

	var found bool
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&found); err != nil {
		return false, ConvertDBError(err)
	}
	return found, nil
}

// ListExists reports whether a list row with the given id exists.
func (s *SQL) ListExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, model.TableLists, id)
}

// ItemExists reports whether an item row with the given id exists.
func (s *SQL) ItemExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, model.TableItems, id)
}

// UserExists reports whether a user row with the given id exists.
func (s *SQL) UserExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, model.TableUsers, id)
}

// CurrentStatus returns the persisted status of a record.
func (s *SQL) CurrentStatus(ctx context.Context, table, id string) (string, error) {
	if model.ModelForTable(table) == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	query := fmt.Sprintf("SELECT status FROM %s WHERE id = $1", pq.QuoteIdentifier(table))

	var status string
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&status); err != nil {
		return "", ConvertDBError(err)
	}
	return status, nil
}

// ListParent returns the parent id of a list, or "" for a root list.
func (s *SQL) ListParent(ctx context.Context, id string) (string, error) {
	var parent sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT parent_id FROM lists WHERE id = $1", id).Scan(&parent)
	if err != nil {
		return "", ConvertDBError(err)
	}
	if !parent.Valid {
		return "", nil
	}
	return parent.String, nil
}

// ListAncestors walks the parent chain upward via a recursive CTE, nearest
// ancestor first, bounded by maxDepth.
func (s *SQL) ListAncestors(ctx context.Context, id string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT l.id, l.parent_id, 1 AS depth
			FROM lists l
			WHERE l.id = (SELECT parent_id FROM lists WHERE id = $1)
			UNION ALL
			SELECT l.id, l.parent_id, a.depth + 1
			FROM lists l
			JOIN ancestors a ON l.id = a.parent_id
			WHERE a.depth < $2
		)
		SELECT id FROM ancestors ORDER BY depth`, id, maxDepth)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var chain []string
	for rows.Next() {
		var ancestor string
		if err := rows.Scan(&ancestor); err != nil {
			return nil, ConvertDBError(err)
		}
		chain = append(chain, ancestor)
	}
	return chain, rows.Err()
}

// ItemDependencies returns the ids the given item depends on.
func (s *SQL) ItemDependencies(ctx context.Context, id string) ([]string, error) {
	return s.queryIDs(ctx,
		"SELECT depends_on_id FROM item_dependencies WHERE item_id = $1 ORDER BY depends_on_id", id)
}

// DependentItems returns the ids of items that depend on the given item.
func (s *SQL) DependentItems(ctx context.Context, id string) ([]string, error) {
	return s.queryIDs(ctx,
		"SELECT item_id FROM item_dependencies WHERE depends_on_id = $1 ORDER BY item_id", id)
}

func (s *SQL) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ConvertDBError(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ItemStatuses returns the status of each existing item in ids, batched
// through a single ANY($1) query.
func (s *SQL) ItemStatuses(ctx context.Context, ids []string) (map[string]string, error) {
	statuses := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, status FROM items WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, ConvertDBError(err)
		}
		statuses[id] = status
	}
	return statuses, rows.Err()
}

// TitleExistsInParent reports whether another list under the same parent
// already carries the title. Deleted lists do not reserve titles.
func (s *SQL) TitleExistsInParent(ctx context.Context, title, parentID, excludeID string) (bool, error) {
	var found bool
	var err error
	if parentID == "" {
		err = s.db.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM lists
				WHERE title = $1 AND parent_id IS NULL AND id <> $2 AND status <> 'deleted'
			)`, title, excludeID).Scan(&found)
	} else {
		err = s.db.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM lists
				WHERE title = $1 AND parent_id = $2 AND id <> $3 AND status <> 'deleted'
			)`, title, parentID, excludeID).Scan(&found)
	}
	if err != nil {
		return false, ConvertDBError(err)
	}
	return found, nil
}

// OpenItemCount counts the user's items that are still open.
func (s *SQL) OpenItemCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM items
		WHERE assignee_id = $1 AND status = ANY($2)`,
		userID, pq.Array([]string{"pending", "in_progress", "blocked"})).Scan(&count)
	if err != nil {
		return 0, ConvertDBError(err)
	}
	return count, nil
}

// FetchBatch returns up to limit records with id > afterID in id order.
func (s *SQL) FetchBatch(ctx context.Context, table, afterID string, limit int) ([]Record, error) {
	if model.ModelForTable(table) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE id > $1 ORDER BY id LIMIT $2", pq.QuoteIdentifier(table))

	rows, err := s.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountRows returns the row count of a table.
func (s *SQL) CountRows(ctx context.Context, table string) (int64, error) {
	if model.ModelForTable(table) == "" {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))

	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, ConvertDBError(err)
	}
	return count, nil
}

// OrphanedItems returns items whose list row no longer exists.
func (s *SQL) OrphanedItems(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.* FROM items i
		LEFT JOIN lists l ON i.list_id = l.id
		WHERE l.id IS NULL
		ORDER BY i.id`)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// OrphanedLists returns lists whose parent row no longer exists.
func (s *SQL) OrphanedLists(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.* FROM lists c
		LEFT JOIN lists p ON c.parent_id = p.id
		WHERE c.parent_id IS NOT NULL AND p.id IS NULL
		ORDER BY c.id`)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// MissingReferences returns rows of ref.FromTable whose ref.FromColumn
// points at a nonexistent ref.ToTable row.
func (s *SQL) MissingReferences(ctx context.Context, ref Reference) ([]BrokenReference, error) {
	idColumn := "id"
	if ref.FromTable == model.TableItemDependencies {
		idColumn = "item_id"
	}
	query := fmt.Sprintf(`
		SELECT child.%s, child.%s
		FROM %s child
		LEFT JOIN %s parent ON child.%s = parent.id
		WHERE child.%s IS NOT NULL AND parent.id IS NULL
		ORDER BY child.%s`,
		pq.QuoteIdentifier(idColumn), pq.QuoteIdentifier(ref.FromColumn),
		pq.QuoteIdentifier(ref.FromTable), pq.QuoteIdentifier(ref.ToTable),
		pq.QuoteIdentifier(ref.FromColumn), pq.QuoteIdentifier(ref.FromColumn),
		pq.QuoteIdentifier(idColumn))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var broken []BrokenReference
	for rows.Next() {
		var recordID, value string
		if err := rows.Scan(&recordID, &value); err != nil {
			return nil, ConvertDBError(err)
		}
		broken = append(broken, BrokenReference{Reference: ref, RecordID: recordID, Value: value})
	}
	return broken, rows.Err()
}

// CountReferencing counts rows of ref.FromTable pointing at the given id.
func (s *SQL) CountReferencing(ctx context.Context, ref Reference, id string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1",
		pq.QuoteIdentifier(ref.FromTable), pq.QuoteIdentifier(ref.FromColumn))

	var count int64
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, ConvertDBError(err)
	}
	return count, nil
}

// scanRecords converts generic rows into Records. Column names are
// normalized from snake_case to the camelCase field names the validation
// core speaks, so a scanned record and a request payload look alike.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []Record
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, ConvertDBError(err)
		}

		record := make(Record, len(columns))
		for i, column := range columns {
			value := values[i]
			// Text columns come back as []byte from database/sql.
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			record[fieldName(column)] = value
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// fieldName converts a snake_case column name to its camelCase field name
// (list_id -> listId).
func fieldName(column string) string {
	out := make([]byte, 0, len(column))
	upper := false
	for i := 0; i < len(column); i++ {
		c := column[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
