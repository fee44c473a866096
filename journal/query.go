package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/flowtrader/market"
)

const tradeColumns = `position_id, symbol, side, source, quantity, entry_price, exit_price, open_time, close_time, realized_pl, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec  TradeRecord
		side string
	)
	err := s.Scan(
		&rec.PositionID,
		&rec.Symbol,
		&side,
		&rec.Source,
		&rec.Quantity,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	rec.Side, err = market.ParseSide(side)
	return rec, err
}

// GetTrade returns a single trade record by position ID.
func (j *SQLite) GetTrade(positionID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE position_id = ?`, positionID)
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TradeRecord{}, fmt.Errorf("trade %q not found", positionID)
	}
	return rec, err
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListDecisions returns the latest limit decisions for symbol, newest
// first. An empty symbol lists every symbol.
func (j *SQLite) ListDecisions(symbol string, limit int) ([]DecisionRecord, error) {
	rows, err := j.db.Query(`
		SELECT decision_id, symbol, at, admitted, reason, regime, source, confidence, position_id, diagnostics
		FROM decisions
		WHERE ? = '' OR symbol = ?
		ORDER BY at DESC, decision_id DESC
		LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var (
			rec  DecisionRecord
			diag string
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.At, &rec.Admitted, &rec.Reason,
			&rec.Regime, &rec.Source, &rec.Confidence, &rec.PositionID, &diag); err != nil {
			return nil, err
		}
		rec.Diagnostics = []byte(diag)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReasonCount is the number of decisions with one outcome.
type ReasonCount struct {
	Reason string
	Count  int
}

// ReasonCounts summarizes decisions by rejection reason; opened admitted
// decisions are counted under "admitted" and refused opens under their
// own reason.
func (j *SQLite) ReasonCounts() ([]ReasonCount, error) {
	rows, err := j.db.Query(`
		SELECT CASE WHEN admitted AND reason = '' THEN 'admitted' ELSE reason END AS r, COUNT(*)
		FROM decisions
		GROUP BY r
		ORDER BY COUNT(*) DESC, r ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReasonCount
	for rows.Next() {
		var rc ReasonCount
		if err := rows.Scan(&rc.Reason, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
