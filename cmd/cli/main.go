package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kurihiro0119/worktime-metrics/internal/aggregator"
	"github.com/kurihiro0119/worktime-metrics/internal/config"
	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/importer"
	"github.com/kurihiro0119/worktime-metrics/internal/logging"
	"github.com/kurihiro0119/worktime-metrics/internal/payroll"
	"github.com/kurihiro0119/worktime-metrics/internal/period"
	"github.com/kurihiro0119/worktime-metrics/internal/watch"
)

var (
	outputJSON bool
	remote     bool
	periodSel  string
	startDate  string
	endDate    string
	days       int
	rate       float64

	memberName  string
	memberEmail string
	memberID    string

	recordDate     string
	recordHours    float64
	recordCategory string

	exportOutput string
)

var rootCmd = &cobra.Command{
	Use:   "worktime",
	Short: "Work time metrics tool",
	Long: `A CLI tool for aggregating tracked work time into productivity reports and payroll.

Time records are imported from tracker exports or entered manually, then
bucketed per day and category to produce summaries, daily breakdowns and
hourly-rate payroll for each member.`,
	SilenceUsage: true,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import time records from an export file",
	Long:  `Import time records from a JSON array or newline-delimited JSON export. Use "-" to read standard input.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a member",
	Args:  cobra.NoArgs,
	RunE:  runMemberAdd,
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List members",
	Args:  cobra.NoArgs,
	RunE:  runMembers,
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage time records",
}

var recordAddCmd = &cobra.Command{
	Use:   "add [member]",
	Short: "Add a manual time entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordAdd,
}

var recordSetHoursCmd = &cobra.Command{
	Use:   "set-hours [record-id] [hours]",
	Short: "Correct the worked hours of a record",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecordSetHours,
}

var summaryCmd = &cobra.Command{
	Use:   "summary [member]",
	Short: "Show a member's summary",
	Long:  `Display total time, per-category breakdown and productivity score for a member.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

var dailyCmd = &cobra.Command{
	Use:   "daily [member]",
	Short: "Show a member's daily breakdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runDaily,
}

var payrollCmd = &cobra.Command{
	Use:   "payroll [member]",
	Short: "Show payroll for one member or everyone",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPayroll,
}

var payCmd = &cobra.Command{
	Use:   "pay [member]",
	Short: "Mark a member as paid for the period",
	Args:  cobra.ExactArgs(1),
	RunE:  runPay,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export payroll as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var watchCmd = &cobra.Command{
	Use:   "watch [member]",
	Short: "Re-display a member's summary whenever records change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "query the API server at API_ENDPOINT instead of local storage")
	rootCmd.PersistentFlags().StringVar(&periodSel, "period", "", "period (today, week, month, custom); default week")
	rootCmd.PersistentFlags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().IntVar(&days, "days", 0, "last N days, overrides --period")

	payrollCmd.Flags().Float64Var(&rate, "rate", 0, "hourly rate override")
	payCmd.Flags().Float64Var(&rate, "rate", 0, "hourly rate override")

	memberAddCmd.Flags().StringVar(&memberID, "id", "", "member ID (generated when empty)")
	memberAddCmd.Flags().StringVar(&memberName, "name", "", "display name")
	memberAddCmd.Flags().StringVar(&memberEmail, "email", "", "email address")
	memberAddCmd.Flags().Float64Var(&rate, "rate", 0, "hourly rate")
	_ = memberAddCmd.MarkFlagRequired("name")

	recordAddCmd.Flags().StringVar(&recordDate, "date", "", "day worked (YYYY-MM-DD), default today")
	recordAddCmd.Flags().Float64Var(&recordHours, "hours", 0, "hours worked")
	recordAddCmd.Flags().StringVar(&recordCategory, "category", string(domain.CategoryProductive), "category")
	_ = recordAddCmd.MarkFlagRequired("hours")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")

	memberCmd.AddCommand(memberAddCmd)
	recordCmd.AddCommand(recordAddCmd, recordSetHoursCmd)
	rootCmd.AddCommand(importCmd, memberCmd, membersCmd, recordCmd, summaryCmd, dailyCmd, payrollCmd, payCmd, exportCmd, watchCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, os.Stderr, false), nil
}

func openBackend() (backend, *config.Config, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if remote {
		return newRemoteBackend(cfg), cfg, nil
	}
	b, err := newLocalBackend(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return b, cfg, nil
}

func currentPeriodArgs(cmd *cobra.Command) periodArgs {
	pa := periodArgs{Period: periodSel, Start: startDate, End: endDate, Days: days}
	if f := cmd.Flags().Lookup("rate"); f != nil && f.Changed {
		r := rate
		pa.Rate = &r
	}
	return pa
}

func runImport(cmd *cobra.Command, args []string) error {
	if remote {
		return fmt.Errorf("import writes to local storage and cannot be used with --remote")
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	imp := importer.New(store, importer.WithLogger(logger))
	res, err := imp.Import(cmd.Context(), in, func(saved, total int) {
		if !outputJSON {
			fmt.Fprintf(os.Stderr, "\rProgress: %d/%d records", saved, total)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	if outputJSON {
		return printJSON(res)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Printf("Imported %d records (%d generated IDs, %d without a usable start time)\n", res.Imported, res.Generated, res.Undated)
	return nil
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	if err := payroll.ValidateRate(rate); err != nil {
		return err
	}
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	m, err := b.AddMember(cmd.Context(), &domain.Member{ID: memberID, Name: memberName, Email: memberEmail, HourlyRate: rate})
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}
	if outputJSON {
		return printJSON(m)
	}
	fmt.Printf("Saved member %s (%s)\n", m.Name, m.ID)
	return nil
}

func runMembers(cmd *cobra.Command, args []string) error {
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	members, err := b.Members(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	if outputJSON {
		return printJSON(members)
	}
	renderMembers(os.Stdout, members)
	return nil
}

func runRecordAdd(cmd *cobra.Command, args []string) error {
	if recordHours < 0 {
		return fmt.Errorf("hours must not be negative")
	}
	b, cfg, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	start := period.StartOfDay(time.Now().In(loc))
	if recordDate != "" {
		if start, err = period.ParseDate(recordDate, loc); err != nil {
			return err
		}
	}

	r, err := b.AddRecord(cmd.Context(), args[0], start, recordHours, recordCategory)
	if err != nil {
		return fmt.Errorf("failed to add record: %w", err)
	}
	if outputJSON {
		return printJSON(r)
	}
	fmt.Printf("Added record %s: %s h on %s\n", r.ID, formatHours(r.DurationMs), start.Format("2006-01-02"))
	return nil
}

func runRecordSetHours(cmd *cobra.Command, args []string) error {
	var hours float64
	if _, err := fmt.Sscanf(args[1], "%g", &hours); err != nil || hours < 0 {
		return fmt.Errorf("hours must be a non-negative number, got %q", args[1])
	}
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	r, err := b.SetHours(cmd.Context(), args[0], hours)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if outputJSON {
		return printJSON(r)
	}
	fmt.Printf("Record %s now holds %s h\n", r.ID, formatHours(r.DurationMs))
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	s, err := b.Summary(cmd.Context(), args[0], currentPeriodArgs(cmd))
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}
	if outputJSON {
		return printJSON(s)
	}
	renderSummary(os.Stdout, s)
	return nil
}

func runDaily(cmd *cobra.Command, args []string) error {
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	report, err := b.Daily(cmd.Context(), args[0], currentPeriodArgs(cmd))
	if err != nil {
		return fmt.Errorf("failed to get daily breakdown: %w", err)
	}
	if outputJSON {
		return printJSON(report)
	}
	renderDaily(os.Stdout, report)
	return nil
}

func runPayroll(cmd *cobra.Command, args []string) error {
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	pa := currentPeriodArgs(cmd)
	if len(args) == 1 {
		line, err := b.Payroll(cmd.Context(), args[0], pa)
		if err != nil {
			return fmt.Errorf("failed to compute payroll: %w", err)
		}
		if outputJSON {
			return printJSON(line)
		}
		renderPayroll(os.Stdout, []*payroll.Line{line})
		return nil
	}

	lines, err := b.PayrollAll(cmd.Context(), pa)
	if err != nil {
		return fmt.Errorf("failed to compute payroll: %w", err)
	}
	if outputJSON {
		return printJSON(lines)
	}
	renderPayroll(os.Stdout, lines)
	return nil
}

func runPay(cmd *cobra.Command, args []string) error {
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := b.MarkPaid(cmd.Context(), args[0], currentPeriodArgs(cmd))
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if outputJSON {
		return printJSON(p)
	}
	fmt.Printf("Paid %s %s for %s (%s h)\n", p.OwnerID, formatMoney(p.Amount), p.PeriodID, formatHoursFloat(p.Hours))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	b, _, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	var out io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if err := b.ExportCSV(cmd.Context(), currentPeriodArgs(cmd), out); err != nil {
		return fmt.Errorf("failed to export payroll: %w", err)
	}
	if exportOutput != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", exportOutput)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	if remote {
		return fmt.Errorf("watch polls local storage and cannot be used with --remote")
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := newLocalBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	pa := currentPeriodArgs(cmd)
	q, err := aggregator.ParsePeriodQuery(pa.Period, pa.Start, pa.End, pa.Days, b.agg.Location())
	if err != nil {
		return err
	}

	w := watch.New(b.store, b.agg, args[0], q, func(s *domain.MemberSummary) {
		if outputJSON {
			_ = printJSON(s)
			return
		}
		fmt.Printf("\n[%s]\n", time.Now().Format("15:04:05"))
		renderSummary(os.Stdout, s)
	}, watch.WithInterval(cfg.WatchInterval), watch.WithLogger(logger))

	if !outputJSON {
		fmt.Fprintf(os.Stderr, "Watching %s every %s (Ctrl-C to stop)\n", args[0], cfg.WatchInterval)
	}
	if err := w.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
		return err
	}
	return nil
}
