package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"investlab/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite reference-data store: engine settings plus the
// static price, factor and bond datasets loaded at startup.
type DB struct {
	sql *sql.DB
}

func dbPath() string {
	// Prefer working directory so the DB is stable across go run / go build.
	// Fall back to executable directory for deployed builds.
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "investlab.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "investlab.db")
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open() (*DB, error) {
	return OpenPath(dbPath())
}

// OpenPath opens the database at an explicit path (used by tests).
func OpenPath(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS config (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS prices (
				ticker    TEXT NOT NULL,
				date      TEXT NOT NULL,
				adj_close REAL NOT NULL,
				PRIMARY KEY (ticker, date)
			);
			CREATE INDEX IF NOT EXISTS idx_prices_date ON prices(date);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS ff_factors (
				model  TEXT NOT NULL,
				date   TEXT NOT NULL,
				mkt_rf REAL NOT NULL,
				smb    REAL NOT NULL,
				hml    REAL NOT NULL,
				rmw    REAL,
				cma    REAL,
				rf     REAL NOT NULL,
				PRIMARY KEY (model, date)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (factor data)")
	}

	if version < 3 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS bonds (
				name      TEXT PRIMARY KEY,
				maturity  REAL NOT NULL,
				coupon    REAL NOT NULL,
				yield     REAL NOT NULL,
				duration  REAL NOT NULL,
				convexity REAL NOT NULL
			);

			INSERT OR IGNORE INTO bonds (name, maturity, coupon, yield, duration, convexity) VALUES
				('2Y Treasury',   2,  0.040, 0.044,  1.9,   4.5),
				('5Y Treasury',   5,  0.042, 0.043,  4.5,  24.0),
				('10Y Treasury', 10,  0.040, 0.042,  8.4,  82.0),
				('30Y Treasury', 30,  0.045, 0.046, 16.8, 380.0),
				('IG Corporate', 10,  0.052, 0.055,  7.8,  74.0),
				('HY Corporate',  7,  0.075, 0.082,  5.2,  36.0);

			INSERT OR IGNORE INTO schema_version (version) VALUES (3);
		`)
		if err != nil {
			return fmt.Errorf("migration v3: %w", err)
		}
		logger.Info("DB", "Applied migration v3 (bond reference data)")
	}

	return nil
}

// SqlDB returns the underlying *sql.DB for use by other packages.
func (d *DB) SqlDB() *sql.DB {
	return d.sql
}
