package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConvertDBError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil passes through", in: nil, want: nil},
		{name: "no rows", in: sql.ErrNoRows, want: ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505", Detail: "dup"}, want: ErrUniqueViolation},
		{name: "foreign key violation", in: &pgconn.PgError{Code: "23503", Detail: "fk"}, want: ErrForeignKeyViolation},
		{name: "check violation", in: &pgconn.PgError{Code: "23514", Detail: "chk"}, want: ErrCheckViolation},
		{name: "not null violation", in: &pgconn.PgError{Code: "23502", ColumnName: "title"}, want: ErrNotNullViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertDBError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestConvertDBErrorUnknownPassesThrough(t *testing.T) {
	unknown := errors.New("network down")
	assert.Equal(t, unknown, ConvertDBError(unknown))

	// Non-constraint postgres errors are not translated.
	pgErr := &pgconn.PgError{Code: "57014"}
	assert.Equal(t, error(pgErr), ConvertDBError(pgErr))
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(ErrUniqueViolation))
	assert.True(t, IsUniqueViolation(ConvertDBError(&pgconn.PgError{Code: "23505"})))
	assert.True(t, IsForeignKeyViolation(ConvertDBError(&pgconn.PgError{Code: "23503"})))
}
