package validation

import (
	"database/sql"
	"time"
)

// Op identifies the operation a validation call is gating.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Valid reports whether the operation is one of the known values.
func (o Op) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Context carries per-call validation options. It is created fresh by the
// caller for each validate call and never retained by validators or the
// rule engine.
//
// Tx, when set, lets existence and uniqueness checks read through the
// caller's open transaction so that validation sees uncommitted writes.
// The core never commits or rolls it back.
type Context struct {
	Operation         Op
	UserID            string
	SkipBusinessRules bool
	SkipConstraints   bool
	Tx                *sql.Tx

	// Now pins "current time" for date plausibility rules. Zero means
	// use the wall clock.
	Now time.Time
}

// Clock returns the pinned time if set, otherwise time.Now().
func (c *Context) Clock() time.Time {
	if c == nil || c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}
