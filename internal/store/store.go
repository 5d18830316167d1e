package store

import (
	"database/sql"
	"strings"
	"time"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx. Stores
// are built over it so the sync engine can run a whole batch inside one
// transaction while handlers keep using the plain connection.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// inPlaceholders builds a "?, ?, ?" fragment and the matching args for an
// IN clause over string values.
func inPlaceholders(values []string) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return strings.Join(marks, ", "), args
}
