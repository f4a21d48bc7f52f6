// Package store provides the persistence layer: users, sessions, tasks,
// webhook subscriptions, and query history, backed by GORM over SQLite or
// PostgreSQL.
package store
