// Package storage provides the SQLite-backed password store: embedded
// schema migrations, repositories over the settings, group, password and
// audit tables, and whole-store operations such as key rotation.
package storage
