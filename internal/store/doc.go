// Package store is the append-only SQLite store of shareholding observations.
//
// The table layout is fixed (see schema.sql) and dates are ISO YYYY-MM-DD
// text, so lexicographic comparison in SQL is chronological. Rows are only
// ever inserted. Append validates a whole batch before writing any of it
// and commits in a single transaction, so readers never observe a partial
// day for a security.
//
// The pure Go modernc.org/sqlite driver is used; no cgo toolchain is needed.
package store
