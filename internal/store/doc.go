// Package store persists exercises, lesson progress and mirror sync state.
//
// Three backends implement Store: SQLite (default, single file), PostgreSQL
// (schema managed by golang-migrate) and an in-memory store for ephemeral runs.
package store
