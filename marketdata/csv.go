package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/flowtrader/market"
)

// Bar is one row of a candle CSV.
type Bar struct {
	Symbol string
	market.Candle
}

// CSVFeed reads candle rows:
//
//	time,symbol,open,high,low,close,volume
//
// where time is RFC3339, RFC3339Nano or unix seconds. A header row is
// allowed and empty rows are skipped. Rows outside [from, to) are dropped
// when the bounds are set.
type CSVFeed struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
	line     int
}

func OpenCSV(path string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewCSVFeed(f, from, to)
	feed.c = f
	return feed, nil
}

func NewCSVFeed(r io.Reader, from, to time.Time) *CSVFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVFeed{r: cr, from: from, to: to}
}

func (f *CSVFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// Next returns the next bar, or false at the end of input.
func (f *CSVFeed) Next() (Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return Bar{}, false, nil
		}
		if err != nil {
			return Bar{}, false, err
		}
		f.line, _ = f.r.FieldPos(0)
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, err := parseBar(row)
		if err != nil {
			return Bar{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

// ReadAll drains a feed.
func ReadAll(r io.Reader) ([]Bar, error) {
	feed := NewCSVFeed(r, time.Time{}, time.Time{})
	var out []Bar
	for {
		b, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, b)
	}
}

// WriteCSV writes bars in the format CSVFeed reads, with a header.
func WriteCSV(w io.Writer, bars []Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "symbol", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Time.UTC().Format(time.RFC3339),
			b.Symbol,
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseBar(row []string) (Bar, error) {
	if len(row) < 7 {
		return Bar{}, fmt.Errorf("want 7 fields, got %d", len(row))
	}
	t, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Bar{}, err
	}
	sym := strings.TrimSpace(row[1])
	if sym == "" {
		return Bar{}, fmt.Errorf("empty symbol")
	}

	var v [5]float64
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := range v {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(row[i+2]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad %s %q: %w", names[i], row[i+2], err)
		}
	}

	c := market.Candle{Time: t, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]}
	if err := c.Validate(); err != nil {
		return Bar{}, err
	}
	return Bar{Symbol: sym, Candle: c}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", s)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
