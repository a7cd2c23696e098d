package database

import (
	"database/sql"
	"fmt"

	"github.com/username/estruturadas/backend/src/logger"
	_ "modernc.org/sqlite"
)

// Connect opens the SQLite database at databasePath and ensures the
// schema exists. The returned handle is the only way components reach
// storage; nothing in this package keeps a process-wide connection.
func Connect(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databasePath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database at %s: %w", databasePath, err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
	return db, nil
}

func createTables(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account INTEGER NOT NULL,
		client TEXT NOT NULL,
		registration_date TEXT NOT NULL,
		side TEXT NOT NULL,
		market_segment TEXT NOT NULL,
		underlying TEXT NOT NULL,
		quantity REAL NOT NULL,
		value REAL NOT NULL,
		specification TEXT,
		instrument_kind TEXT,
		option_right TEXT,
		strike REAL,
		series_letter TEXT,
		expiration TEXT,
		outcome TEXT
	);

	CREATE TABLE IF NOT EXISTS price_bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		open REAL,
		high REAL,
		low REAL,
		mean REAL,
		close REAL NOT NULL,
		volume REAL,
		UNIQUE(asset, trade_date)
	);

	CREATE TABLE IF NOT EXISTS option_expirations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		letter_code TEXT NOT NULL,
		expiration_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dividends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset TEXT NOT NULL,
		event_type TEXT,
		ex_date TEXT NOT NULL,
		payment_date TEXT,
		amount REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_code TEXT NOT NULL UNIQUE,
		lookup_code TEXT NOT NULL,
		current_price REAL,
		last_update TEXT
	);

	CREATE TABLE IF NOT EXISTS consolidated_positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account INTEGER NOT NULL,
		client TEXT NOT NULL,
		underlying TEXT NOT NULL,
		first_trade TEXT NOT NULL,
		purchased_qty REAL NOT NULL,
		purchase_cost REAL NOT NULL,
		avg_buy_price REAL NOT NULL,
		sold_qty REAL NOT NULL,
		sale_proceeds REAL NOT NULL,
		avg_sell_price REAL NOT NULL,
		net_qty REAL NOT NULL,
		premium_received REAL NOT NULL,
		premium_paid REAL NOT NULL,
		net_premium REAL NOT NULL,
		dividend_credit REAL NOT NULL,
		closing_price REAL NOT NULL,
		first_close REAL NOT NULL,
		market_value REAL NOT NULL,
		invested_value REAL NOT NULL,
		result_no_options REAL NOT NULL,
		result_options REAL NOT NULL,
		return_no_premium REAL NOT NULL,
		return_with_premium REAL NOT NULL,
		return_with_dividends REAL NOT NULL,
		return_dividends_and_premium REAL NOT NULL,
		sale_result_no_premium REAL NOT NULL,
		sale_result_with_premium REAL NOT NULL,
		price_variation REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS structured_operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account INTEGER NOT NULL,
		client TEXT NOT NULL,
		ticker TEXT NOT NULL,
		advisor TEXT,
		desk TEXT,
		structure_tag TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		expiration TEXT NOT NULL,
		asset_value REAL NOT NULL,
		unit_cost REAL NOT NULL,
		dividends REAL NOT NULL,
		invested REAL NOT NULL,
		leg1_quantity REAL, leg1_option_type TEXT, leg1_strike REAL, leg1_barrier REAL, leg1_rebate REAL,
		leg2_quantity REAL, leg2_option_type TEXT, leg2_strike REAL, leg2_barrier REAL, leg2_rebate REAL,
		leg3_quantity REAL, leg3_option_type TEXT, leg3_strike REAL, leg3_barrier REAL, leg3_rebate REAL,
		leg4_quantity REAL, leg4_option_type TEXT, leg4_strike REAL, leg4_barrier REAL, leg4_rebate REAL,
		reference_price REAL,
		adjustment REAL,
		result REAL,
		status TEXT,
		volume REAL,
		coupon_premium REAL,
		return_pct REAL
	);

	CREATE TABLE IF NOT EXISTS free_positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account INTEGER NOT NULL,
		client TEXT NOT NULL,
		ticker TEXT NOT NULL,
		advisor TEXT,
		desk TEXT,
		total_qty REAL NOT NULL,
		free_qty REAL NOT NULL,
		avg_price REAL,
		current_price REAL,
		return_pct REAL,
		free_volume REAL
	);
	`

	if _, err := db.Exec(createTableStatement); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// WithTransaction executes fn within a database transaction. It handles
// begin, commit, rollback and panic recovery; if fn returns an error or
// panics the transaction is rolled back.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", commitErr)
			}
		}
	}()

	err = fn(tx)
	return err
}
