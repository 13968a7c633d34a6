package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// DBTX is the subset of database/sql operations the repositories need.
// Both *sql.DB and *sql.Tx satisfy it, so a repository can be re-bound to
// a transaction with WithTx when a trade write and a position write must
// commit together.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// ParseTime parses a date string in "2006-01-02", RFC3339 or SQLite
// datetime format.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %q", str)
}

// parseNullTime parses a nullable datetime column into *time.Time.
func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := ParseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
