// Package sqlite implements the catalog store and the keyword index on a
// single SQLite database (modernc.org/sqlite, no cgo).
//
// Standards and chunks live in plain tables; chunk text is mirrored into an
// FTS5 virtual table that serves BM25-ranked keyword search. Schema changes
// are applied through embedded, versioned migrations at open time.
package sqlite
