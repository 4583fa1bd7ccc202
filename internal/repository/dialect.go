package repository

import (
	"strings"
	"time"
)

// Dialect captures the handful of SQL differences between MySQL and the
// embedded SQLite store.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// lockSuffix returns the row-locking clause appended to SELECTs that feed
// an admission decision.  SQLite has no row locks; its writers are
// serialized by BEGIN IMMEDIATE and a single connection instead.
func (d Dialect) lockSuffix() string {
	if d == SQLite {
		return ""
	}
	return " FOR UPDATE"
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// dbTimeLayout is the layout every timestamp is written with.  Values are
// always UTC.
const dbTimeLayout = "2006-01-02 15:04:05"

// formatTime renders t for a DATETIME parameter.
func formatTime(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

// nowUTC is the clock used for bookkeeping columns such as updated_at.
var nowUTC = func() time.Time { return time.Now().UTC() }
