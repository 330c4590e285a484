package main

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pstitle/internal/app"
	"pstitle/internal/config"
	"pstitle/internal/env"
	"pstitle/internal/logging"
	"pstitle/internal/models"
	"pstitle/internal/progress"
	"pstitle/internal/report"
	"pstitle/internal/stages"
	"pstitle/pkg/graceful"
)

// runState carries what main needs to pick an exit code.
type runState struct {
	interrupted bool
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"count":               "count",
	"skip":                "skip",
	"delay-rate-limit":    "delay_rate_limit",
	"delay-auth":          "delay_auth",
	"delay-retrieve":      "delay_retrieve",
	"delay-persist":       "delay_persist",
	"persist-concurrency": "persist_concurrency",
	"shutdown-timeout":    "shutdown_timeout",
	"resume-from-output":  "resume_from_output",
	"color":               "color",
	"log-level":           "log_level",
	"log-json":            "log_json",
	"sink":                "sink",
	"output":              "output",
}

func newRootCmd(state *runState, stderr io.Writer) *cobra.Command {
	var (
		configFile string
		envFiles   []string
		envLoaded  []string
		noProgress bool
		v          *viper.Viper
	)

	cmd := &cobra.Command{
		Use:   "pstitle",
		Short: "Populate title records and report on the outcome",
		Long: `pstitle works through a numbered sequence of title records. Each record is
rate limited, authenticated, fetched and augmented in order, then persisted
concurrently. Press Ctrl-C to stop after the current record; the report is
written either way.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			envLoaded, err = env.LoadEnv(envFiles...)
			if err != nil {
				return err
			}
			v, err = config.New()
			if err != nil {
				return err
			}
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return errors.Wrapf(err, "bind --%s", flag)
				}
			}
			if noProgress {
				v.Set("progress", false)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return runPipeline(cmd, cfg, envLoaded, state, stderr)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.IntP("count", "c", 50, "total number of records")
	f.IntP("skip", "s", 0, "number of records already processed")
	f.Int("delay-rate-limit", 50, "rate limit interval in milliseconds")
	f.Int("delay-auth", 20, "authentication delay in milliseconds")
	f.Int("delay-retrieve", 50, "retrieval delay in milliseconds")
	f.Int("delay-persist", 10, "persist delay in milliseconds for the delay sink")
	f.Int("persist-concurrency", 10, "maximum number of concurrent persists")
	f.Duration("shutdown-timeout", config.DefaultShutdownTimeout, "how long to wait for persists after an interrupt")
	f.Bool("resume-from-output", false, "skip records the sink already holds")
	f.BoolVar(&noProgress, "no-progress", false, "do not show the progress bar")
	f.String("color", config.ColorAuto, "colorize output: auto, always or never")
	f.String("log-level", "warn", "log level: debug, info, warn or error")
	f.Bool("log-json", false, "log in JSON")
	f.String("sink", config.SinkDelay, "where records are persisted: delay, file, s3, postgres or kafka")
	f.StringP("output", "o", "records.jsonl", "output file for the file sink")
	f.StringVar(&configFile, "config", "", "config file (YAML, TOML or JSON)")
	f.StringSliceVar(&envFiles, "env-file", nil, "env files to load instead of ./.env")

	return cmd
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, envLoaded []string, state *runState, stderr io.Writer) error {
	ctx := cmd.Context()

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Writer: stderr})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if len(envLoaded) == 0 {
		logger.Debug("no .env file found, assuming environment variables are set directly")
	} else {
		logger.Debug("loaded env files", zap.Strings("files", envLoaded))
	}

	terminal := isTerminal(stderr)
	palette := report.PlainPalette()
	if cfg.Color == config.ColorAlways || (cfg.Color == config.ColorAuto && terminal) {
		palette = report.DefaultPalette()
	}
	if err := report.WriteLogo(stderr, palette); err != nil {
		return err
	}

	interrupts, stop := graceful.Interrupts(ctx, logger)
	defer stop()

	sink, err := app.OpenSink(ctx, cfg, logger)
	if err != nil {
		return errors.Wrapf(err, "open %s sink", cfg.Sink)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("closing sink", zap.Error(err))
		}
	}()

	var tracker progress.Tracker = progress.NopTracker{}
	if cfg.Progress && terminal {
		tracker = progress.NewBarTracker(stderr, "Populating records")
	}

	runner := app.NewRunner(cfg, app.Deps{
		Stages: stages.NewSimulated(stages.Delays{
			RateLimit: config.Ms(cfg.DelayRateLimit),
			Auth:      config.Ms(cfg.DelayAuth),
			Retrieve:  config.Ms(cfg.DelayRetrieve),
		}),
		Sink:        sink,
		Credentials: models.Credentials{Token: cfg.APIToken},
		Interrupt:   interrupts,
		Tracker:     tracker,
		Out:         stderr,
		Palette:     palette,
		Logger:      logger,
	})

	res, err := runner.Run(ctx)
	state.interrupted = res.Interrupted
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
