// Package sqlx implements engine.Store on PostgreSQL or MySQL through
// jmoiron/sqlx.
package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	// DriverMySQL needs parseTime=true in the DSN so created_at scans into time.Time.
	DriverMySQL Driver = "mysql"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver" env:"DRIVER, overwrite"`
	DSN             string        `json:"dsn" env:"DSN, overwrite"`
	MaxOpenConns    int           `json:"max_open_conns" env:"MAX_OPEN_CONNS, overwrite"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"MAX_IDLE_CONNS, overwrite"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"CONN_MAX_LIFETIME, overwrite"`
	AutoMigrate     bool          `json:"auto_migrate" env:"AUTO_MIGRATE, overwrite"`
}

// DefaultConfig returns pool defaults for driver. DSN is left empty.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		AutoMigrate:     true,
	}
}

// Store is a SQL-backed engine.Store. log_entries is append-only and
// users.total_points is updated in the same transaction as each insert.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens and pings the configured database. Migrate runs first when
// AutoMigrate is set.
func New(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("sql dsn cannot be empty")
	}
	db, err := sqlx.ConnectContext(ctx, string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, driver: cfg.Driver}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing with sqlmock).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity for health endpoints.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

var schema = map[Driver][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS departments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			department_id TEXT NOT NULL REFERENCES departments(id),
			pin TEXT NOT NULL,
			total_points BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS log_entries (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL REFERENCES users(id),
			department_id TEXT NOT NULL,
			type TEXT NOT NULL,
			sheets BIGINT NOT NULL,
			paper_used BIGINT NOT NULL,
			eco_points BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS log_entries_user_idx ON log_entries (user_id)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS departments (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			department_id VARCHAR(64) NOT NULL,
			pin VARCHAR(16) NOT NULL,
			total_points BIGINT NOT NULL DEFAULT 0,
			FOREIGN KEY (department_id) REFERENCES departments(id)
		)`,
		`CREATE TABLE IF NOT EXISTS log_entries (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(64) NOT NULL UNIQUE,
			user_id VARCHAR(64) NOT NULL,
			department_id VARCHAR(64) NOT NULL,
			type VARCHAR(32) NOT NULL,
			sheets BIGINT NOT NULL,
			paper_used BIGINT NOT NULL,
			eco_points BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX log_entries_user_idx (user_id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	},
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema[s.driver] {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) upsertDepartmentSQL() string {
	if s.driver == DriverMySQL {
		return `INSERT INTO departments (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)`
	}
	return s.db.Rebind(`INSERT INTO departments (id, name) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`)
}

// upsertUserSQL never touches total_points on conflict.
func (s *Store) upsertUserSQL() string {
	if s.driver == DriverMySQL {
		return `INSERT INTO users (id, name, email, department_id, pin, total_points) VALUES (?, ?, ?, ?, ?, 0)
			ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email), department_id = VALUES(department_id), pin = VALUES(pin)`
	}
	return s.db.Rebind(`INSERT INTO users (id, name, email, department_id, pin, total_points) VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, department_id = EXCLUDED.department_id, pin = EXCLUDED.pin`)
}

func (s *Store) SeedRoster(ctx context.Context, departments []core.Department, users []core.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range departments {
		if _, err := tx.ExecContext(ctx, s.upsertDepartmentSQL(), d.ID, d.Name); err != nil {
			return fmt.Errorf("failed to seed department %s: %w", d.ID, err)
		}
	}
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, s.upsertUserSQL(), u.ID, u.Name, u.Email, u.DepartmentID, u.PIN); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Departments(ctx context.Context) ([]core.Department, error) {
	out := make([]core.Department, 0)
	if err := s.db.SelectContext(ctx, &out, `SELECT id, name FROM departments ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return out, nil
}

const userColumns = `id, name, email, department_id, pin, total_points`

func (s *Store) Users(ctx context.Context) ([]core.User, error) {
	out := make([]core.User, 0)
	if err := s.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return out, nil
}

func (s *Store) User(ctx context.Context, id core.UserID) (core.User, error) {
	var u core.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

func (s *Store) Logs(ctx context.Context) ([]core.LogEntry, error) {
	out := make([]core.LogEntry, 0)
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, department_id, type, sheets, paper_used, eco_points, created_at FROM log_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to load logs: %w", err)
	}
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}

// AppendLog inserts entry and adds its eco-points to the owner's total in a
// single transaction, returning the new total.
func (s *Store) AppendLog(ctx context.Context, entry core.LogEntry) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	err = tx.GetContext(ctx, &current, s.db.Rebind(`SELECT total_points FROM users WHERE id = ? FOR UPDATE`), entry.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s: %w", entry.UserID, core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load points: %w", err)
	}
	total, err := core.AddSafe(current, entry.EcoPoints)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, s.db.Rebind(`INSERT INTO log_entries
		(id, user_id, department_id, type, sheets, paper_used, eco_points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.UserID, entry.DepartmentID, entry.Type, entry.Sheets, entry.PaperUsed, entry.EcoPoints, entry.CreatedAt.UTC())
	if isDuplicate(err) {
		return 0, fmt.Errorf("%w: duplicate log id %s", core.ErrInvalidInput, entry.ID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert log: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE users SET total_points = ? WHERE id = ?`), total, entry.UserID); err != nil {
		return 0, fmt.Errorf("failed to update points: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return total, nil
}

// isDuplicate reports a unique-key violation from either driver.
func isDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
