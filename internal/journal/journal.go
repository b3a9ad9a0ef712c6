// Package journal persists the append-only trade log to SQLite so the
// audit trail survives restarts and stays queryable.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/models"

	_ "modernc.org/sqlite"
)

type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id   TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	action     TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	price      REAL NOT NULL,
	order_id   INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_cycle ON trades(cycle_id);
`

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append writes one trade record. Records are never updated afterwards.
func (j *Journal) Append(ctx context.Context, rec models.TradeRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (cycle_id, symbol, action, quantity, price, order_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, rec.Symbol, rec.Action, rec.Quantity, rec.Price, rec.OrderID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

// ListCycle returns every trade recorded for one cycle, oldest first.
func (j *Journal) ListCycle(ctx context.Context, cycleID string) ([]models.TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT cycle_id, symbol, action, quantity, price, order_id, created_at
		 FROM trades WHERE cycle_id = ? ORDER BY id`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

// Recent returns the most recent trades, newest first, up to limit.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT cycle_id, symbol, action, quantity, price, order_id, created_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

// Count returns the total number of recorded trades.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n)
	return n, err
}

func scanTrades(rows *sql.Rows) ([]models.TradeRecord, error) {
	var out []models.TradeRecord
	for rows.Next() {
		var rec models.TradeRecord
		var createdAt string
		if err := rows.Scan(&rec.CycleID, &rec.Symbol, &rec.Action, &rec.Quantity,
			&rec.Price, &rec.OrderID, &createdAt); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("bad trade timestamp %q: %w", createdAt, err)
		}
		rec.Timestamp = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}
