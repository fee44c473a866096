package journal

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string
	Created time.Time
	Dataset string
	Symbols []string
	Config  []byte

	Start time.Time
	End   time.Time

	Bars      int
	Decisions int
	Admitted  int

	Trades int
	Wins   int
	Losses int
	NetPL  float64

	// Reasons counts rejections by reason.
	Reasons map[string]int
}

func (r BacktestRun) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

// RecordBacktest stores the summary of a run.
func (j *SQLite) RecordBacktest(r BacktestRun) error {
	_, err := j.db.Exec(`
		INSERT INTO backtest_runs
		(run_id, created, dataset, symbols, start_time, end_time, bars, decisions, admitted, trades, wins, losses, net_pl, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Dataset, strings.Join(r.Symbols, ","), r.Start.UTC(), r.End.UTC(),
		r.Bars, r.Decisions, r.Admitted, r.Trades, r.Wins, r.Losses, r.NetPL, string(r.Config),
	)
	return err
}

// GetBacktestRun loads a run summary; Reasons is not stored.
func (j *SQLite) GetBacktestRun(runID string) (BacktestRun, error) {
	var (
		r       BacktestRun
		symbols string
		cfg     string
	)
	err := j.db.QueryRow(`
		SELECT run_id, created, dataset, symbols, start_time, end_time, bars, decisions, admitted, trades, wins, losses, net_pl, config
		FROM backtest_runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Created, &r.Dataset, &symbols, &r.Start, &r.End,
		&r.Bars, &r.Decisions, &r.Admitted, &r.Trades, &r.Wins, &r.Losses, &r.NetPL, &cfg,
	)
	if err != nil {
		return BacktestRun{}, fmt.Errorf("backtest run %q: %w", runID, err)
	}
	if symbols != "" {
		r.Symbols = strings.Split(symbols, ",")
	}
	r.Config = []byte(cfg)
	return r, nil
}

var backtestOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"join":   strings.Join,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// WriteOrg renders the run as an org-mode report.
func (r BacktestRun) WriteOrg(w io.Writer) error {
	return backtestOrg.Execute(w, r)
}

const BacktestOrgTemplate = `* BACKTEST: flow {{join .Symbols " "}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02 15:04"}}
:END_DATE:    {{.End.Format "2006-01-02 15:04"}}
:BARS:        {{.Bars}}
:DECISIONS:   {{.Decisions}}
:ADMITTED:    {{.Admitted}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .WinRate)}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Decisions
| Outcome | Count |
|---------+-------|
| admitted | {{.Admitted}} |
{{- range $reason, $n := .Reasons}}
| {{$reason}} | {{$n}} |
{{- end}}

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
`
