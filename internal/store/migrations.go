package store

import "fmt"

// Per-driver DDL. The schemas are identical in shape; the dialects differ in
// auto-increment syntax, timestamp types, and indexable string columns
// (MySQL cannot put a unique constraint on unsized TEXT).
var migrations = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS principals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			encrypted_api_key TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key_hash TEXT NOT NULL,
			key_prefix TEXT NOT NULL,
			principal_id INTEGER NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(key_prefix)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_principal ON api_keys(principal_id)`,
	},

	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS principals (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			encrypted_api_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id BIGSERIAL PRIMARY KEY,
			key_hash TEXT NOT NULL,
			key_prefix TEXT NOT NULL,
			principal_id BIGINT NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(key_prefix)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_principal ON api_keys(principal_id)`,
	},

	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS principals (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			username VARCHAR(190) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			encrypted_api_key TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			key_hash VARCHAR(100) NOT NULL,
			key_prefix VARCHAR(32) NOT NULL,
			principal_id BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			expires_at DATETIME(6) NOT NULL,
			INDEX idx_api_keys_prefix (key_prefix),
			INDEX idx_api_keys_principal (principal_id),
			CONSTRAINT fk_api_keys_principal FOREIGN KEY (principal_id)
				REFERENCES principals(id) ON DELETE CASCADE
		)`,
	},
}

func (s *Store) migrate() error {
	stmts, ok := migrations[s.driver]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", s.driver)
	}
	for _, m := range stmts {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
