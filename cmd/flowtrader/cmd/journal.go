package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/flowtrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade and decision journal data",
	Long: `Query and display journal records from the SQLite database.

Subcommands:
  trade      - Get details of a specific position by ID
  today      - List trades closed today
  day        - List trades closed on a specific day
  decisions  - List recent decisions
  reasons    - Count decisions by rejection reason
  run        - Show a recorded backtest run

Examples:
  flowtrader journal trade <position-id>
  flowtrader journal day 2024-01-15
  flowtrader journal decisions --symbol BTCUSDT --limit 20`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <position-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalDecisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recent decisions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalDecisions,
}

var journalReasonsCmd = &cobra.Command{
	Use:   "reasons",
	Short: "Count decisions by rejection reason",
	Args:  cobra.NoArgs,
	RunE:  runJournalReasons,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a recorded backtest run as org",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var (
	journalDBPath string
	journalSymbol string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd, journalTodayCmd, journalDayCmd, journalDecisionsCmd, journalReasonsCmd, journalRunCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./flowtrader.db", "path to SQLite journal DB")
	journalDecisionsCmd.Flags().StringVarP(&journalSymbol, "symbol", "s", "", "only this symbol")
	journalDecisionsCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "maximum rows")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(cmd, time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd, args[0])
}

func listDay(cmd *cobra.Command, day string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalDecisions(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListDecisions(journalSymbol, journalLimit)
	if err != nil {
		return fmt.Errorf("query decisions: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatDecisionsOrg(recs))
	return nil
}

func runJournalReasons(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	counts, err := j.ReasonCounts()
	if err != nil {
		return fmt.Errorf("query reasons: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "| Reason | Count |")
	fmt.Fprintln(out, "|--------+-------|")
	for _, c := range counts {
		fmt.Fprintf(out, "| %s | %d |\n", c.Reason, c.Count)
	}
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.GetBacktestRun(args[0])
	if err != nil {
		return err
	}
	return run.WriteOrg(cmd.OutOrStdout())
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
