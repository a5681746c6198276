package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/kimai-report/pkg/auth"
	"github.com/harrisonrobin/kimai-report/pkg/config"
	"github.com/harrisonrobin/kimai-report/pkg/journal"
	"github.com/harrisonrobin/kimai-report/pkg/kimai"
	"github.com/harrisonrobin/kimai-report/pkg/metrics"
	"github.com/harrisonrobin/kimai-report/pkg/reconcile"
	"github.com/harrisonrobin/kimai-report/pkg/sequencer"
	"github.com/harrisonrobin/kimai-report/pkg/tags"
	"github.com/harrisonrobin/kimai-report/pkg/timew"
)

var Version = "dev"

type options struct {
	configPath  string
	workers     int
	metricsFile string
	journal     bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "kimai-report",
		Short: "Timewarrior report that logs tracked intervals to Kimai",
		Long: "Reads a Timewarrior report from stdin, e.g. `timew report kimai :week`,\n" +
			"and logs every interval tagged with a Kimai project and activity.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/kimai-report/config.yaml)")
	rootCmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "sessions handled at once (default: number of CPUs)")
	rootCmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	rootCmd.Flags().BoolVar(&opts.journal, "journal", false, "journal created records so failed write-backs can be repaired")

	rootCmd.AddCommand(configCmd(opts))
	rootCmd.AddCommand(journalCmd(opts))
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func runReport(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.journal {
		cfg.Journal.Enabled = true
	}

	logger := newLogger(cfg.LogLevel).With().Str("run_id", uuid.NewString()).Logger()

	report, err := timew.ParseReport(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading report from stdin: %w", err)
	}
	logger.Debug().Int("sessions", len(report.Sessions)).Msg("report parsed")
	if len(report.Sessions) == 0 {
		return nil
	}

	classifier, err := tags.NewClassifier(cfg.Classes())
	if err != nil {
		return err
	}

	httpClient, err := auth.GetClient(ctx, auth.Credentials{User: cfg.Kimai.User, Token: cfg.Kimai.Token})
	if err != nil {
		return err
	}
	remote := kimai.NewClient(cfg.Kimai.URL, httpClient, cfg.Location(), logger)
	store := timew.NewClient(cfg.Timew.Bin, logger)

	in, closeIn := answerSource()
	defer closeIn()

	seq := sequencer.New()
	console := sequencer.NewConsole(os.Stdout, in, seq.Print)

	engineOpts := []reconcile.Option{
		reconcile.WithWorkers(cfg.Workers),
		reconcile.WithLogger(logger),
	}

	if cfg.Journal.Enabled {
		path, err := cfg.JournalPath()
		if err != nil {
			return err
		}
		j, err := journal.Open(path)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		engineOpts = append(engineOpts, reconcile.WithRecorder(j))
	}

	var m *metrics.Metrics
	if opts.metricsFile != "" {
		m = metrics.New()
		engineOpts = append(engineOpts, reconcile.WithMetrics(m))
	}

	engine := reconcile.New(classifier, remote, store, console, seq, engineOpts...)
	summary, runErr := engine.Run(ctx, report.Sessions)

	logger.Info().
		Int("created", summary.Created).
		Int("already_synced", summary.AlreadySynced).
		Int("conflicts", summary.Conflicts).
		Int("unresolvable", summary.Unresolvable).
		Int("failed", summary.Failed).
		Msg("run finished")

	if m != nil {
		if err := m.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn().Err(err).Str("path", opts.metricsFile).Msg("failed to write metrics")
		}
	}
	return runErr
}

// answerSource returns where conflict answers are read from. Stdin carries
// the report, so the terminal is preferred when there is one.
func answerSource() (io.Reader, func()) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return os.Stdin, func() {}
	}
	return tty, func() { tty.Close() }
}

func configCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				p, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
