package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/flowtrader/market"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers; concurrent sinks would otherwise
	// hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(position_id, symbol, side, source, quantity, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PositionID, t.Symbol, t.Side.String(), t.Source, t.Quantity, t.EntryPrice,
		t.ExitPrice, t.OpenTime.UTC(), t.CloseTime.UTC(), t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordDecision(d DecisionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO decisions
		(decision_id, symbol, at, admitted, reason, regime, source, confidence, position_id, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Symbol, d.At.UTC(), d.Admitted, d.Reason, d.Regime, d.Source,
		d.Confidence, d.PositionID, string(d.Diagnostics),
	)
	return err
}

// RecentOutcomes returns the last k closed trades of every symbol, oldest
// first. The ledger uses it to warm its correlation history.
func (j *SQLite) RecentOutcomes(k int) ([]market.Outcome, error) {
	rows, err := j.db.Query(`
		SELECT t.symbol, t.source, t.realized_pl, t.close_time
		FROM trades t
		WHERE (SELECT COUNT(*) FROM trades u WHERE u.symbol = t.symbol AND u.close_time > t.close_time) < ?
		ORDER BY t.close_time ASC`, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Outcome
	for rows.Next() {
		var (
			o  market.Outcome
			pl float64
		)
		if err := rows.Scan(&o.Symbol, &o.Source, &pl, &o.ClosedAt); err != nil {
			return nil, err
		}
		o.Result = market.ResultOf(pl)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
