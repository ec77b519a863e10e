// Package store persists service configurations in SQLite. It is the single
// source of truth for what the user has configured; live connectors are
// derived from it by the registry and never written back.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/avelinn/mediadeck/internal/domain"
)

// ErrNotFound is returned when no service with the requested id exists.
var ErrNotFound = errors.New("service not found")

// Store wraps the SQLite database holding service configurations.
type Store struct {
	conn *sql.DB
}

// Config holds database connection pool settings.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New opens the database at path and initializes the schema.
func New(path string) (*Store, error) {
	return NewWithConfig(path, Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
}

// NewWithConfig opens the database with custom pool settings.
func NewWithConfig(path string, cfg Config) (*Store, error) {
	// Ensure the database directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{conn: conn}

	if _, err := conn.Exec(GetSchema()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks if the database connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

const selectColumns = `id, kind, name, base_url, api_key, username, password, enabled, timeout_ms`

// ListConfigs returns all service configurations in creation order.
func (s *Store) ListConfigs(ctx context.Context) ([]domain.ServiceConfig, error) {
	// rowid breaks ties between rows created within the same second.
	query := `SELECT ` + selectColumns + ` FROM services ORDER BY created_at, rowid`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var configs []domain.ServiceConfig
	for rows.Next() {
		cfg, err := scanConfigRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service row: %w", err)
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// GetConfig returns the configuration for one service id.
func (s *Store) GetConfig(ctx context.Context, id string) (domain.ServiceConfig, error) {
	query := `SELECT ` + selectColumns + ` FROM services WHERE id = ?`

	cfg, err := scanConfigRow(s.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ServiceConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.ServiceConfig{}, fmt.Errorf("failed to get service %s: %w", id, err)
	}

	return cfg, nil
}

// SaveConfig inserts or updates a service configuration. A config without an
// id is treated as new and assigned one. The stored (possibly id-assigned)
// config is returned.
func (s *Store) SaveConfig(ctx context.Context, cfg domain.ServiceConfig) (domain.ServiceConfig, error) {
	cfg = cfg.Normalized()
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	if err := cfg.Validate(); err != nil {
		return domain.ServiceConfig{}, err
	}

	query := `
		INSERT INTO services (id, kind, name, base_url, api_key, username, password, enabled, timeout_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			base_url = excluded.base_url,
			api_key = excluded.api_key,
			username = excluded.username,
			password = excluded.password,
			enabled = excluded.enabled,
			timeout_ms = excluded.timeout_ms,
			updated_at = strftime('%s', 'now')
	`

	_, err := s.conn.ExecContext(ctx, query,
		cfg.ID, string(cfg.Kind), cfg.Name, cfg.BaseURL,
		cfg.Credential.APIKey, cfg.Credential.Username, cfg.Credential.Password,
		cfg.Enabled, cfg.Timeout.Milliseconds(),
	)
	if err != nil {
		return domain.ServiceConfig{}, fmt.Errorf("failed to save service %s: %w", cfg.ID, err)
	}

	return cfg, nil
}

// DeleteConfig removes a service configuration.
func (s *Store) DeleteConfig(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete service %s: %w", id, err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

// scanConfigRow scans a single service row from a query result
func scanConfigRow(scanner interface {
	Scan(dest ...interface{}) error
}) (domain.ServiceConfig, error) {
	var cfg domain.ServiceConfig
	var kind string
	var timeoutMs int64

	err := scanner.Scan(
		&cfg.ID,
		&kind,
		&cfg.Name,
		&cfg.BaseURL,
		&cfg.Credential.APIKey,
		&cfg.Credential.Username,
		&cfg.Credential.Password,
		&cfg.Enabled,
		&timeoutMs,
	)
	if err != nil {
		return domain.ServiceConfig{}, err
	}

	cfg.Kind = domain.ServiceKind(kind)
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond

	return cfg.Normalized(), nil
}
