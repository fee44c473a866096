package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"
)

// CSVJournal appends trades and decisions to two CSV files. It is safe
// for concurrent use.
type CSVJournal struct {
	mu        sync.Mutex
	trades    *csv.Writer
	decisions *csv.Writer
	tf, df    *os.File
}

func NewCSV(tradesPath, decisionsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	df, err := os.Create(decisionsPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSVJournal{trades: csv.NewWriter(tf), decisions: csv.NewWriter(df), tf: tf, df: df}
	if err := j.writeHeaders(); err != nil {
		return nil, errors.Join(err, tf.Close(), df.Close())
	}
	return j, nil
}

func (j *CSVJournal) writeHeaders() error {
	if err := j.trades.Write([]string{"position_id", "symbol", "side", "source", "quantity", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}); err != nil {
		return err
	}
	if err := j.decisions.Write([]string{"decision_id", "symbol", "at", "admitted", "reason", "regime", "source", "confidence", "position_id"}); err != nil {
		return err
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.trades.Write([]string{
		t.PositionID,
		t.Symbol,
		t.Side.String(),
		t.Source,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.RealizedPL),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordDecision(d DecisionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.decisions.Write([]string{
		d.ID,
		d.Symbol,
		d.At.UTC().Format(time.RFC3339),
		strconv.FormatBool(d.Admitted),
		d.Reason,
		d.Regime,
		d.Source,
		f(d.Confidence),
		d.PositionID,
	})
	if err != nil {
		return err
	}
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.decisions.Flush()
	if err := j.decisions.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.df.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
