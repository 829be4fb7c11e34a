package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mahdizarei0614/jira-worklogs/internal/config"
	"github.com/mahdizarei0614/jira-worklogs/internal/jalaali"
	"github.com/mahdizarei0614/jira-worklogs/internal/jira"
	"github.com/mahdizarei0614/jira-worklogs/internal/report"
	"github.com/mahdizarei0614/jira-worklogs/internal/state"
)

var (
	configPath string
	logger     *zap.Logger
	outWriter  io.Writer = os.Stdout
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jira-worklogs",
		Short: "Jira worklog attendance reports on the Jalaali calendar",
		Long:  "Aggregate Jira worklogs into Jalaali-calendar attendance reports with daily, monthly and quarterly rollups",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log file path
			cfg, err := config.Load(configPath)
			if err == nil && cfg.Log.File != "" {
				logger, err = initFileLogger(cfg.Log.File, cfg.Log.Level)
				if err != nil {
					initLogger() // Fallback to console
				}
			} else {
				initLogger() // Default console logger
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Config file path")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(rangeCmd())
	rootCmd.AddCommand(sprintCmd())
	rootCmd.AddCommand(logCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func scanCmd() *cobra.Command {
	var year, month string
	var teeOutput string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Build the monthly attendance report plus the quarterly rollup",
		RunE: func(cmd *cobra.Command, args []string) error {
			restore, err := setupTee(teeOutput)
			if err != nil {
				return err
			}
			defer restore()

			svc, username, _, err := initializeService()
			if err != nil {
				return err
			}

			result, err := svc.ComputeScan(report.ScanOptions{
				Identity: username,
				Year:     year,
				Month:    month,
			})
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			printMonthly(result.Monthly, username)
			printQuarterly(result.Quarter)
			return nil
		},
	}

	cmd.Flags().StringVar(&year, "year", "", "Jalaali year (e.g. 1404); omit to reuse the last selection")
	cmd.Flags().StringVar(&month, "month", "", "Jalaali month 1-12; omit to reuse the last selection")
	cmd.Flags().StringVar(&teeOutput, "tee-output", "", "Mirror scan output to file (empty to disable)")

	return cmd
}

func rangeCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "range",
		Short: "List worklogs over an arbitrary Jalaali date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, username, _, err := initializeService()
			if err != nil {
				return err
			}

			fromDate, err := jalaali.ParseDate(from)
			if err != nil {
				return fmt.Errorf("bad --from date: %w", err)
			}
			toDate, err := jalaali.ParseDate(to)
			if err != nil {
				return fmt.Errorf("bad --to date: %w", err)
			}

			// The service treats the end as exclusive; the flag is inclusive.
			result, err := svc.FetchWorklogsRange(report.RangeOptions{
				Identity: username,
				Start:    fromDate.Gregorian(),
				End:      toDate.Gregorian().Add(24 * time.Hour),
			})
			if err != nil {
				return fmt.Errorf("range query failed: %w", err)
			}

			outPrintf("📒 Worklogs %s .. %s for %s\n", result.Start.Label(), result.End.Label(), username)
			outPrintln("═══════════════════════════════════════════════════════")
			for _, entry := range result.Worklogs {
				outPrintf("  %s | %-12s | %5.2fh | %s\n",
					jalaali.FormatMinute(entry.Started), entry.IssueKey, entry.Hours, entry.Summary)
			}
			outPrintf("\n  Total: %.2fh across %d entries\n", result.TotalHours, len(result.Worklogs))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Range start, Jalaali yyyy/mm/dd (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "Range end, Jalaali yyyy/mm/dd (inclusive)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func sprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sprint",
		Short: "List your issues in open sprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, username, _, err := initializeService()
			if err != nil {
				return err
			}

			issues, err := svc.ActiveSprintIssues(username)
			if err != nil {
				return fmt.Errorf("sprint query failed: %w", err)
			}

			outPrintf("🏃 Open sprint issues for %s\n", username)
			outPrintln("═══════════════════════════════════════════════════════")
			for _, issue := range issues {
				sprints := strings.Join(issue.Sprints, ", ")
				if sprints == "" {
					sprints = "-"
				}
				outPrintf("  %-12s | %-12s | %-20s | %s\n",
					issue.Key, issue.Status, sprints, issue.Summary)
			}
			if len(issues) == 0 {
				outPrintln("  (no issues in open sprints)")
			}
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	var issueKey, date, at, comment string
	var hours float64

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Create a worklog entry on an issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, client, err := initializeService()
			if err != nil {
				return err
			}

			day, err := jalaali.ParseDate(date)
			if err != nil {
				return fmt.Errorf("bad --date: %w", err)
			}
			var hh, mm int
			if _, err := fmt.Sscanf(at, "%d:%d", &hh, &mm); err != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
				return fmt.Errorf("bad --at time %q, want HH:MM", at)
			}
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive")
			}

			started := day.Gregorian().Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
			seconds := int(hours * 3600)

			id, err := client.CreateWorklog(issueKey, started, seconds, comment)
			if err != nil {
				return err
			}

			outPrintf("✅ Logged %.2fh on %s at %s %s (worklog %s)\n",
				hours, issueKey, day.Label(), at, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&issueKey, "issue", "", "Issue key (e.g. PRJ-42)")
	cmd.Flags().StringVar(&date, "date", "", "Jalaali date yyyy/mm/dd")
	cmd.Flags().StringVar(&at, "at", "09:00", "Start time HH:MM")
	cmd.Flags().Float64Var(&hours, "hours", 0, "Hours to log")
	cmd.Flags().StringVar(&comment, "comment", "", "Worklog comment")
	cmd.MarkFlagRequired("issue")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("hours")

	return cmd
}

func printMonthly(monthly *report.MonthlyReport, username string) {
	outPrintf("📊 %s %d for %s\n", jalaali.MonthName(monthly.Month), monthly.Year, username)
	outPrintln("═══════════════════════════════════════════════════════")
	outPrintf("  Logged hours:    %.2fh\n", monthly.TotalHours)
	outPrintf("  Expected so far: %.2fh\n", monthly.ExpectedByNowHours)
	outPrintf("  Expected total:  %.2fh\n", monthly.ExpectedByEndMonthHours)
	outPrintf("  Deficit days:    %d\n", len(monthly.DeficitDays))

	outPrintln("\n📅 Per-day breakdown:")
	outPrintln("  Day          | Gregorian  | Hours  | Status")
	outPrintln("  -------------+------------+--------+--------")
	for _, day := range monthly.Days {
		outPrintf("  %s   | %s | %5.2fh | %s\n",
			day.Label, day.GregorianLabel, day.Hours, statusLabel(day))
	}

	if len(monthly.DueIssues) > 0 {
		outPrintln("\n⏰ Due this month:")
		for _, issue := range monthly.DueIssues {
			due := issue.DueDate
			if issue.DueDateJalaali != "" {
				due = fmt.Sprintf("%s (%s)", issue.DueDateJalaali, issue.DueDate)
			}
			outPrintf("  %-12s | due %s | %s\n", issue.Key, due, issue.Summary)
		}
	}
	if len(monthly.AssignedIssues) > 0 {
		outPrintln("\n📌 Assigned issues:")
		for _, issue := range monthly.AssignedIssues {
			boards := strings.Join(issue.BoardNames, ", ")
			if boards == "" {
				boards = "-"
			}
			outPrintf("  %-12s | %-12s | boards: %s | %s\n",
				issue.Key, issue.Status, boards, issue.Summary)
		}
	}
}

func printQuarterly(quarter *report.QuarterlyReport) {
	outPrintf("\n🗓  Quarterly rollup %d\n", quarter.Year)
	outPrintln("═══════════════════════════════════════════════════════")
	for _, season := range quarter.Seasons {
		outPrintf("  %s: %.2fh logged, %.2fh expected, delta %+.2fh\n",
			season.Name, season.TotalHours, season.ExpectedHours, season.Delta)
		for _, summary := range season.Months {
			if !summary.OK {
				outPrintf("    %-11s | unavailable: %s\n", summary.MonthName, summary.Reason)
				continue
			}
			outPrintf("    %-11s | %6.2fh / %6.2fh | %+.2fh\n",
				summary.MonthName, summary.TotalHours, summary.ExpectedHours, summary.Delta)
		}
	}
}

func statusLabel(day report.DayRecord) string {
	switch day.Classification {
	case report.ColorGreen:
		return "✅ on target"
	case report.ColorYellow:
		return "⚠️  off target"
	case report.ColorRed:
		return "❌ nothing logged"
	default:
		if day.IsFuture {
			return "· upcoming"
		}
		if day.IsHoliday {
			return "· holiday"
		}
		return "· weekend"
	}
}

func setupTee(teeOutput string) (func(), error) {
	outWriter = os.Stdout
	if teeOutput == "" {
		return func() { outWriter = os.Stdout }, nil
	}
	if err := os.MkdirAll(filepath.Dir(teeOutput), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tee path: %w", err)
	}
	f, err := os.OpenFile(teeOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open tee-output file: %w", err)
	}
	outWriter = io.MultiWriter(os.Stdout, f)
	outPrintf("📝 Output is mirrored to %s\n", teeOutput)
	return func() {
		f.Close()
		outWriter = os.Stdout
	}, nil
}

func outPrintf(format string, a ...interface{}) {
	if outWriter == nil {
		outWriter = os.Stdout
	}
	fmt.Fprintf(outWriter, format, a...)
}

func outPrintln(a ...interface{}) {
	if outWriter == nil {
		outWriter = os.Stdout
	}
	fmt.Fprintln(outWriter, a...)
}

func initializeService() (*report.Service, string, *jira.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}

	client := jira.NewClient(cfg.Jira.BaseURL, cfg.Jira.Token, jira.NewBoardCache(), logger)

	username := cfg.Jira.Username
	if username == "" {
		me, err := client.Myself()
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to resolve identity: %w", err)
		}
		username = me.Username()
	}

	store := state.NewStore(cfg.Report.StateFile, logger)
	if err := store.Load(); err != nil {
		return nil, "", nil, fmt.Errorf("failed to load report state: %w", err)
	}

	return report.NewService(client, store, logger), username, client, nil
}

func initLogger() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	// Setup encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	// Create core with lumberjack writer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
