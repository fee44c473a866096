package backtest

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rustyeddy/flowtrader/journal"
	"github.com/rustyeddy/flowtrader/pkg/id"
)

// Result is a lightweight summary of a backtest run.
type Result struct {
	Symbols []string

	Start time.Time
	End   time.Time

	Bars      int
	Decisions int
	Admitted  int
	// Reasons counts rejected decisions by reason.
	Reasons map[string]int

	Trades int
	Wins   int
	Losses int
	Open   int
	NetPL  float64
}

func (r Result) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

// Record converts the result into a journal row.
func (r Result) Record(dataset string, cfg []byte) journal.BacktestRun {
	now := time.Now().UTC()
	return journal.BacktestRun{
		RunID:     id.At(now),
		Created:   now,
		Dataset:   dataset,
		Symbols:   r.Symbols,
		Config:    cfg,
		Start:     r.Start,
		End:       r.End,
		Bars:      r.Bars,
		Decisions: r.Decisions,
		Admitted:  r.Admitted,
		Trades:    r.Trades,
		Wins:      r.Wins,
		Losses:    r.Losses,
		NetPL:     r.NetPL,
		Reasons:   r.Reasons,
	}
}

func PrintBacktestRun(w io.Writer, r journal.BacktestRun) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	fmt.Fprintf(w, "Symbols:       %v\n", r.Symbols)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Bars:          %d\n", r.Bars)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Decisions")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Evaluated:     %d\n", r.Decisions)
	fmt.Fprintf(w, "Admitted:      %d\n", r.Admitted)
	reasons := make([]string, 0, len(r.Reasons))
	for k := range r.Reasons {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)
	for _, k := range reasons {
		fmt.Fprintf(w, "  %-36s %d\n", k+":", r.Reasons[k])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate()*100)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.NetPL)
	fmt.Fprintln(w, "==================================================")
}
