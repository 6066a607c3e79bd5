// Package sqlite implements the store.VariantStore interface on an embedded
// SQLite database. The schema is owned by goose migrations embedded in the
// binary, so a host never has to run a migration step of its own.
package sqlite
