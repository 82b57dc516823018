package storage

import (
	"database/sql"
	"embed"
	"encoding/json"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/bivory/grove/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore is an optional SessionStore backend for fleets that want a
// session store shared across machines instead of per-host files. It is
// additive to spec.md §4.3's two required implementations (memory, file),
// never a replacement: it satisfies the same SessionStore interface and
// the same last-writer-wins semantics via a single INSERT ... ON CONFLICT
// round trip, so no read-modify-write lock is introduced here either.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens databaseURL, runs embedded migrations, and returns
// a ready PostgresStore.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, core.BackendErr("failed to open postgres connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		return nil, core.BackendErr("failed to ping postgres: %v", err)
	}
	if err := migrateUp(db); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// newPostgresStoreFromDB wraps an already-open *sql.DB without running
// migrations, used by tests against github.com/DATA-DOG/go-sqlmock.
func newPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func migrateUp(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return core.BackendErr("failed to init migration driver: %v", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return core.BackendErr("failed to load embedded migrations: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return core.BackendErr("failed to init migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return core.BackendErr("migration failed: %v", err)
	}
	return nil
}

func (p *PostgresStore) Get(id string) (*core.SessionState, error) {
	if err := core.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	row := p.db.QueryRow(`SELECT data FROM sessions WHERE id = $1`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, core.StorageErr(id, err)
	}
	var s core.SessionState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, core.SerdeErr("failed to parse session %s: %v", id, err)
	}
	return &s, nil
}

// Put is a single INSERT ... ON CONFLICT DO UPDATE round trip: the last
// writer wins per session id, matching the file store's atomic-replace
// semantics without any read-modify-write locking.
func (p *PostgresStore) Put(session *core.SessionState) error {
	if err := core.ValidateIdentifier(session.ID); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return core.SerdeErr("failed to serialize session %s: %v", session.ID, err)
	}
	_, err = p.db.Exec(`
		INSERT INTO sessions (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, session.ID, data, session.UpdatedAt)
	if err != nil {
		return core.StorageErr(session.ID, err)
	}
	return nil
}

func (p *PostgresStore) List(limit int) ([]core.SessionState, error) {
	rows, err := p.db.Query(`SELECT data FROM sessions ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, core.StorageErr("sessions", err)
	}
	defer rows.Close()

	var result []core.SessionState
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, core.StorageErr("sessions", err)
		}
		var s core.SessionState
		if err := json.Unmarshal(raw, &s); err != nil {
			continue // tolerate a malformed row rather than failing the whole list
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (p *PostgresStore) Delete(id string) error {
	if err := core.ValidateIdentifier(id); err != nil {
		return err
	}
	if _, err := p.db.Exec(`DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return core.StorageErr(id, err)
	}
	return nil
}

// Close releases the underlying database connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
