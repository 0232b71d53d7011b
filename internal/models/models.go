// Package models defines the records exchanged between the feedback back-office services,
// handlers and renderers.
package models

import (
	"database/sql"
	"time"
)

// DateLayout is the wire and storage format of calendar dates
const DateLayout = "2006-01-02"

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullInt64ToPointer(ni sql.NullInt64) *int64 {
	if ni.Valid {
		return &ni.Int64
	}
	return nil
}

// NullString builds a sql.NullString that is NULL for the empty string
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
