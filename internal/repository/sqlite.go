package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) a SQLite database and its tables.
// ":memory:" opens a shared in-memory database on a single connection.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		group_id TEXT,
		demographics TEXT NOT NULL,
		scores TEXT NOT NULL,
		answers TEXT NOT NULL,
		how_found TEXT,
		rank_key INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_date ON results(date DESC);
	CREATE INDEX IF NOT EXISTS idx_results_group ON results(group_id);

	CREATE TABLE IF NOT EXISTS identity_averages (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		averages TEXT NOT NULL,
		computed_at TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}
