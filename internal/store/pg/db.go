// Package pg implements the fan-out engine's repository interfaces
// (internal/store) over Postgres via database/sql and pgx: one file per
// table family, a shared *sql.DB, context-scoped queries.
package pg

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// OpenDB opens a pooled Postgres connection and verifies it.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStores wires every repository interface in internal/store.Stores
// to Postgres-backed implementations over a single shared connection.
func NewStores(db *sql.DB) *store.Stores {
	return &store.Stores{
		Users:     NewUserStore(db),
		Groups:    NewGroupStore(db),
		Members:   NewMemberStore(db),
		Messages:  NewMessageStore(db),
		Redirects: NewRedirectStore(db),
		PMs:       NewPMStore(db),
		Bans:      NewBanStore(db),
		Masks:     NewMaskStore(db),
		Codes:     NewCodeStore(db),
	}
}
