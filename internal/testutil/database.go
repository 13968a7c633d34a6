package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the production database migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Account table
		CREATE TABLE IF NOT EXISTS account (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			name VARCHAR(100) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- Position table
		CREATE TABLE IF NOT EXISTS position (
			account_id VARCHAR(36) NOT NULL,
			code VARCHAR(6) NOT NULL,
			cost FLOAT NOT NULL,
			shares FLOAT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (account_id, code),
			FOREIGN KEY(account_id) REFERENCES account(id) ON DELETE CASCADE
		);

		-- Trade table
		CREATE TABLE IF NOT EXISTS trade (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			account_id VARCHAR(36) NOT NULL,
			code VARCHAR(6) NOT NULL,
			op_type VARCHAR(6) NOT NULL,
			amount FLOAT,
			shares_redeemed FLOAT,
			settlement_date VARCHAR(10) NOT NULL,
			settlement_nav FLOAT,
			shares_delta FLOAT,
			cost_after FLOAT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			applied_at DATETIME,
			FOREIGN KEY(account_id) REFERENCES account(id) ON DELETE CASCADE
		);

		-- Subscription table
		CREATE TABLE IF NOT EXISTS subscription (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			code VARCHAR(6) NOT NULL,
			email VARCHAR(255) NOT NULL,
			threshold_up FLOAT NOT NULL DEFAULT 0,
			threshold_down FLOAT NOT NULL DEFAULT 0,
			enable_volatility BOOLEAN NOT NULL DEFAULT TRUE,
			enable_digest BOOLEAN NOT NULL DEFAULT FALSE,
			digest_time VARCHAR(5) NOT NULL DEFAULT '14:45',
			last_notified_at DATETIME,
			last_digest_at DATETIME,
			CONSTRAINT unique_subscription UNIQUE (user_id, code, email)
		);

		-- Fund catalogue
		CREATE TABLE IF NOT EXISTS fund (
			code VARCHAR(6) NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			type VARCHAR(50),
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- NAV history cache
		CREATE TABLE IF NOT EXISTS nav_history (
			code VARCHAR(6) NOT NULL,
			date VARCHAR(10) NOT NULL,
			nav FLOAT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (code, date)
		);

		-- Intraday snapshots
		CREATE TABLE IF NOT EXISTS intraday_snapshot (
			code VARCHAR(6) NOT NULL,
			date VARCHAR(10) NOT NULL,
			time VARCHAR(5) NOT NULL,
			estimate FLOAT NOT NULL,
			PRIMARY KEY (code, date, time)
		);

		-- System settings
		CREATE TABLE IF NOT EXISTS system_setting (
			"key" VARCHAR(64) NOT NULL PRIMARY KEY,
			value TEXT NOT NULL,
			encrypted BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS ix_position_account_id ON position(account_id);
		CREATE INDEX IF NOT EXISTS ix_trade_account_id ON trade(account_id);
		CREATE INDEX IF NOT EXISTS ix_trade_code ON trade(code);
		CREATE INDEX IF NOT EXISTS ix_trade_pending ON trade(applied_at, settlement_nav);
		CREATE INDEX IF NOT EXISTS ix_nav_history_code_date ON nav_history(code, date);
		CREATE INDEX IF NOT EXISTS ix_subscription_user_id ON subscription(user_id);
		CREATE INDEX IF NOT EXISTS ix_intraday_snapshot_date ON intraday_snapshot(date);
		CREATE INDEX IF NOT EXISTS ix_fund_name ON fund(name);
	`

	_, err := db.Exec(schema)
	return err
}

// CleanDatabase truncates all tables in dependency order.
// Useful for reusing the same database across multiple tests.
//
// Example usage:
//
//	func TestMultipleThings(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//
//	    t.Run("First test", func(t *testing.T) {
//	        // Create data
//	        testutil.CleanDatabase(t, db)  // Clean after
//	    })
//
//	    t.Run("Second test", func(t *testing.T) {
//	        // Fresh clean database
//	    })
//	}
func CleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	// Order matters: delete children before parents due to foreign keys
	tables := []string{
		"trade",
		"position",
		"subscription",
		"intraday_snapshot",
		"nav_history",
		"fund",
		"account",
		"system_setting",
	}

	for _, table := range tables {
		//nolint:gosec // G202: Table names are from hardcoded slice, no SQL injection risk
		query := "DELETE FROM " + table
		if _, err := db.Exec(query); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}
}

// CountRows returns the number of rows in a table.
// Useful for assertions in tests.
//
// Example usage:
//
//	count := testutil.CountRows(t, db, "trade")
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	query := "SELECT COUNT(*) FROM " + table
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}

// AssertRowCount asserts that a table has the expected number of rows.
//
// Example usage:
//
//	testutil.AssertRowCount(t, db, "position", 2)
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	actual := CountRows(t, db, table)
	if actual != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}
