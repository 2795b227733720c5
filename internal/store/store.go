package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/keyfold/keyfold/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Store persists principals and API key records. SQLite is the default and
// is used in-memory by tests; Postgres and MySQL are supported for shared
// deployments. All uniqueness guarantees (notably principal usernames) are
// enforced by database constraints, not application checks.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New opens a store for the given driver and DSN. For SQLite the DSN is a
// data directory; pass empty string for in-memory.
func New(driver, dsn string) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(dsn, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(dsn, "keyfold.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err == nil {
			db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
			if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
				return nil, fmt.Errorf("enable foreign keys: %w", err)
			}
		}
	case DriverPostgres:
		db, err = sqlx.Connect("pgx", dsn)
	case DriverMySQL:
		// parseTime is required so DATETIME columns scan into time.Time.
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		db, err = sqlx.Connect("mysql", dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q (want %s, %s, or %s)",
			driver, DriverSQLite, DriverPostgres, DriverMySQL)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the active driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isDuplicate reports whether err is a uniqueness violation. Each supported
// engine words the error differently.
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// insert runs a named INSERT and populates *id. Postgres has no
// LastInsertId, so the query gains a RETURNING clause there.
func (s *Store) insert(ctx context.Context, query string, arg interface{}, id *int64) error {
	if s.driver == DriverPostgres {
		rows, err := s.db.NamedQueryContext(ctx, query+" RETURNING id", arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		return rows.Scan(id)
	}

	result, err := s.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return err
	}
	n, err := result.LastInsertId()
	if err != nil {
		return err
	}
	*id = n
	return nil
}

// ---------------------------------------------------------------------------
// Principals
// ---------------------------------------------------------------------------

// CreatePrincipal inserts a new principal. The ID, CreatedAt, and UpdatedAt
// fields on p are populated after a successful insert. Returns ErrDuplicate
// if the username is already taken.
func (s *Store) CreatePrincipal(ctx context.Context, p *model.Principal) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	const q = `INSERT INTO principals
		(username, password_hash, encrypted_api_key, created_at, updated_at)
		VALUES
		(:username, :password_hash, :encrypted_api_key, :created_at, :updated_at)`

	if err := s.insert(ctx, q, p, &p.ID); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

// GetPrincipal returns a principal by ID.
func (s *Store) GetPrincipal(ctx context.Context, id int64) (*model.Principal, error) {
	var p model.Principal
	q := s.db.Rebind("SELECT * FROM principals WHERE id = ?")
	if err := s.db.GetContext(ctx, &p, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}
	return &p, nil
}

// GetPrincipalByUsername returns a principal by its unique username.
func (s *Store) GetPrincipalByUsername(ctx context.Context, username string) (*model.Principal, error) {
	var p model.Principal
	q := s.db.Rebind("SELECT * FROM principals WHERE username = ?")
	if err := s.db.GetContext(ctx, &p, q, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get principal by username: %w", err)
	}
	return &p, nil
}

// ListPrincipals returns all principals ordered by username.
func (s *Store) ListPrincipals(ctx context.Context) ([]model.Principal, error) {
	var principals []model.Principal
	if err := s.db.SelectContext(ctx, &principals, "SELECT * FROM principals ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	return principals, nil
}

// HasAnyPrincipal reports whether at least one principal exists. Used for
// first-run detection at startup.
func (s *Store) HasAnyPrincipal(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM principals"); err != nil {
		return false, fmt.Errorf("count principals: %w", err)
	}
	return count > 0, nil
}

// UpdatePrincipalAPIKey sets the encrypted API key blob on a principal.
// The single UPDATE either fully applies or fails; there is no partial
// write to roll back.
func (s *Store) UpdatePrincipalAPIKey(ctx context.Context, id int64, encrypted string) error {
	q := s.db.Rebind("UPDATE principals SET encrypted_api_key = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, encrypted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update principal api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update principal api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a new API key record. The key_hash must already be
// set; records are immutable after insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	const q = `INSERT INTO api_keys
		(key_hash, key_prefix, principal_id, created_at, expires_at)
		VALUES
		(:key_hash, :key_prefix, :principal_id, :created_at, :expires_at)`

	if err := s.insert(ctx, q, key, &key.ID); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// ListLiveAPIKeysByPrefix returns all unexpired key records sharing the
// given non-secret prefix. The prefix narrows the candidate set so callers
// only run the hash comparison against a handful of rows instead of the
// whole table; the security-relevant match is still hash-only.
func (s *Store) ListLiveAPIKeysByPrefix(ctx context.Context, prefix string, now time.Time) ([]model.APIKey, error) {
	var keys []model.APIKey
	q := s.db.Rebind("SELECT * FROM api_keys WHERE key_prefix = ? AND expires_at > ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &keys, q, prefix, now.UTC()); err != nil {
		return nil, fmt.Errorf("list live api keys: %w", err)
	}
	return keys, nil
}

// ListAPIKeysForPrincipal returns all key records (live and expired) owned
// by a principal, newest first.
func (s *Store) ListAPIKeysForPrincipal(ctx context.Context, principalID int64) ([]model.APIKey, error) {
	var keys []model.APIKey
	q := s.db.Rebind("SELECT * FROM api_keys WHERE principal_id = ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &keys, q, principalID); err != nil {
		return nil, fmt.Errorf("list api keys for principal: %w", err)
	}
	return keys, nil
}
