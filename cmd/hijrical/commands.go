package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hijrical/internal/app"
	"hijrical/internal/config"
	"hijrical/internal/events"
	"hijrical/internal/facts"
	"hijrical/internal/format"
	"hijrical/internal/hijri"
	"hijrical/internal/ics"
	appLog "hijrical/internal/log"
	"hijrical/internal/timeline"
	"hijrical/internal/web"
	"hijrical/internal/widget"
)

const defaultConfigPath = "/etc/hijrical/config.yaml"

// nowFunc is the clock used by every command.
var nowFunc = time.Now

// rootOptions holds persistent flag values.
type rootOptions struct {
	configPath string
	logLevel   string
	jsonOut    bool
}

// env is what a subcommand needs after config loading.
type env struct {
	cfg *config.Config
	svc *app.Service
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "hijrical",
		Short:         "Hijri calendar and event timeline",
		Long:          "hijrical shows today's Umm al-Qura Hijri date, a monthly fact and the timeline of significant dates of the Hijri year.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: DEBUG, INFO or ERROR (overrides config)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print JSON instead of text")

	root.AddCommand(
		newTodayCommand(opts),
		newTimelineCommand(opts),
		newFactCommand(opts),
		newWidgetCommand(opts),
		newICSCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return root
}

// setup loads config, applies the log level and builds the service.
func setup(opts *rootOptions) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", opts.configPath, err)
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	svcOpts := []app.Option{
		app.WithLocation(resolveLocationOrLocal(cfg.Timezone)),
		app.WithNow(nowFunc),
		app.WithTargetYear(cfg.TargetYear),
		app.WithExtraEvents(cfg.Events),
	}
	if cfg.FactsPath != "" {
		table, err := facts.LoadTable(cfg.FactsPath)
		if err != nil {
			return nil, fmt.Errorf("load facts: %w", err)
		}
		svcOpts = append(svcOpts, app.WithFacts(facts.NewSelector(table, nil)))
	}

	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"target_year", cfg.TargetYear,
		"refresh", cfg.RefreshCron,
		"widget_days", cfg.WidgetDays,
		"extra_events", len(cfg.Events),
	)
	return &env{cfg: cfg, svc: app.NewService(svcOpts...)}, nil
}

func resolveLocationOrLocal(tz string) *time.Location {
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		appLog.Error("invalid timezone, falling back to local", err, "timezone", tz)
		return time.Local
	}
	return loc
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTodayCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Print today's Hijri date and a fact",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			now := e.svc.Now()
			d := e.svc.Today(now)
			fact := e.svc.Fact(now)

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, struct {
					Date    any    `json:"date"`
					Ordinal int    `json:"ordinal"`
					Fact    string `json:"fact"`
				}{app.HijriView(d), hijri.TodayOrdinal(now), fact})
			}
			fmt.Fprintln(out, format.HijriDate(d))
			fmt.Fprintln(out, d.GregorianLabel)
			fmt.Fprintln(out)
			fmt.Fprintln(out, fact)
			return nil
		},
	}
}

func newTimelineCommand(opts *rootOptions) *cobra.Command {
	var yearFlag int
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print the significant dates of a Hijri year",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			now := e.svc.Now()
			year := yearFlag
			if year == 0 {
				year = e.svc.TimelineYear(now)
			}
			if year < hijri.MinYear || year > hijri.MaxYear {
				return fmt.Errorf("year must be between %d and %d", hijri.MinYear, hijri.MaxYear)
			}

			entries := e.svc.Timeline(now, year)
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, app.Rows(entries))
			}
			writeTimeline(out, year, entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&yearFlag, "year", 0, "Hijri year (default: configured target year or today's year)")
	return cmd
}

func writeTimeline(w io.Writer, year int, entries []timeline.Entry) {
	fmt.Fprintf(w, "Timeline %d AH\n\n", year)
	for _, r := range app.Rows(entries) {
		fmt.Fprintf(w, "%-8s %-20s %-40s %s\n", r.Status, r.Date, r.Title, r.Distance)
	}
	past, cur, fut := timeline.Counts(entries)
	fmt.Fprintf(w, "\n%d past, %d today, %d ahead\n", past, cur, fut)
}

func newFactCommand(opts *rootOptions) *cobra.Command {
	var monthFlag string
	cmd := &cobra.Command{
		Use:   "fact",
		Short: "Print a random fact about a Hijri month",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			month := monthFlag
			if month == "" {
				month = e.svc.Today(e.svc.Now()).MonthName
			}
			fact := e.svc.FactFor(month)
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"month": month, "fact": fact})
			}
			fmt.Fprintln(cmd.OutOrStdout(), fact)
			return nil
		},
	}
	cmd.Flags().StringVar(&monthFlag, "month", "", "Month name, e.g. Ramadan (default: current month)")
	return cmd
}

func newWidgetCommand(opts *rootOptions) *cobra.Command {
	var daysFlag int
	cmd := &cobra.Command{
		Use:   "widget",
		Short: "Print widget timeline entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			days := daysFlag
			if days == 0 {
				days = e.cfg.WidgetDays
			}
			wt, err := e.svc.Widget(e.svc.Now(), days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, wt)
			}
			for _, en := range wt.Entries {
				line := fmt.Sprintf("%s  %s", en.Date.Format("2006-01-02 15:04"), en.Inline)
				if en.NextEvent != "" {
					line += fmt.Sprintf("  next: %s (%s)", en.NextEvent, en.NextIn)
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "refresh after %s\n", wt.RefreshAfter.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().IntVar(&daysFlag, "days", 0, "Number of daily entries (default: config widget_days)")
	return cmd
}

func newICSCommand(opts *rootOptions) *cobra.Command {
	var (
		outPath string
		years   int
	)
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Write the timeline as an iCalendar feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			if years < 1 {
				return errors.New("--years must be at least 1")
			}

			now := e.svc.Now()
			first := e.svc.TimelineYear(now)
			cats := make([]events.Catalog, 0, years)
			for y := first; y < first+years && y <= hijri.MaxYear; y++ {
				cats = append(cats, e.svc.Catalog(y))
			}
			feed := ics.ExportOptions{Name: "Hijri calendar", Stamp: now}

			if outPath == "" || outPath == "-" {
				return ics.Write(cmd.OutOrStdout(), cats, feed)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := ics.Write(f, cats, feed); err != nil {
				f.Close()
				return err
			}
			appLog.Info("ics feed written", "path", outPath, "years", len(cats))
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default: stdout)")
	cmd.Flags().IntVar(&years, "years", 1, "Number of consecutive Hijri years to export")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the midnight refresh scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			if listen != "" {
				e.cfg.Listen = listen
			}
			appLog.Info("hijrical starting", "version", version, "listen", e.cfg.Listen, "timezone", e.cfg.Timezone)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, e)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func serve(ctx context.Context, e *env) error {
	srv := web.NewServer(e.cfg, e.svc)

	sched, err := widget.NewScheduler(e.cfg.RefreshCron, e.svc.Location(), func() { srv.Refresh() })
	if err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	sched.RunNow()
	appLog.Info("refresh scheduled", "next", sched.Next(e.svc.Now()).Format(time.RFC3339))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	err = web.StartServer(ctx, srv)
	if err != nil {
		appLog.Error("http server failed", err)
	}
	// A failed listener stops the scheduler too.
	cancel()
	<-done
	appLog.Info("hijrical exiting")
	return err
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print hijrical version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hijrical %s\n", version)
		},
	}
}
