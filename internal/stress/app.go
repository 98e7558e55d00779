package stress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/refmap-go/internal/infra/buildinfo"
	"github.com/yndnr/refmap-go/internal/infra/confloader"
	"github.com/yndnr/refmap-go/internal/infra/shutdown"
	"github.com/yndnr/refmap-go/internal/telemetry/logger"
	"github.com/yndnr/refmap-go/internal/telemetry/metric"
)

// shutdownTimeout bounds how long hooks get to drain on stop.
const shutdownTimeout = 10 * time.Second

// App builds the refmap-stress command line application.
func App() *cli.App {
	return &cli.App{
		Name:    "refmap-stress",
		Usage:   "churn workload generator for refmap self-cleaning maps",
		Version: buildinfo.Get().Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file (watched for live reload)",
				EnvVars: []string{"REFMAP_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "map variant: ordered, hashed, ordered-ctx, hashed-ctx, sharded",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of workload goroutines",
			},
			&cli.IntFlag{
				Name:  "keys",
				Usage: "size of the key space",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "run length (0 runs until interrupted)",
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "total operations per second (0 = unlimited)",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "serve Prometheus metrics",
			},
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "metrics listen address",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format: json, text",
			},
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, c.App.Name, buildinfo.String())
					return nil
				},
			},
		},
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	runID := ulid.Make().String()
	log = log.With("run_id", runID)

	runner, err := NewRunner(cfg, log)
	if err != nil {
		return err
	}

	handler := shutdown.NewHandler(shutdownTimeout)

	if cfg.Metrics.Enabled {
		reg := metric.NewRegistry()
		reg.Maps.Register(cfg.Map.Kind, runner)
		srv := &http.Server{
			Addr:    cfg.Metrics.Listen,
			Handler: reg.Handler(),
		}
		go func() {
			log.Info("metrics listening", "addr", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		handler.OnShutdown(func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		})
	}

	if path := c.String("config"); path != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
		if err != nil {
			return fmt.Errorf("init config watcher: %w", err)
		}
		if err := watcher.Watch(path); err != nil {
			return err
		}
		watcher.OnChange(func(changed string) {
			reloaded := DefaultConfig()
			l := confloader.NewLoader(confloader.WithConfigFile(path))
			if err := l.Load(&reloaded); err != nil {
				log.Warn("config reload failed", "error", err)
				return
			}
			runner.SetRate(reloaded.Load.Rate)
			logger.SetLevel(reloaded.Log.Level)
		})
		watcher.StartAsync()
		handler.OnShutdown(func(context.Context) error {
			return watcher.Stop()
		})
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- runner.Run(runCtx)
		handler.Trigger()
	}()

	// Registered last so it runs first on shutdown: stop the workload
	// and let workers release their handles before anything else tears
	// down.
	handler.OnShutdown(func(ctx context.Context) error {
		cancelRun()
		select {
		case err := <-runDone:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	return handler.Wait()
}

// loadConfig merges defaults, config file, environment, and flags.
func loadConfig(c *cli.Context) (Config, error) {
	cfg := DefaultConfig()

	var opts []confloader.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(opts...).Load(&cfg); err != nil {
		return Config{}, err
	}

	if c.IsSet("kind") {
		cfg.Map.Kind = c.String("kind")
	}
	if c.IsSet("workers") {
		cfg.Load.Workers = c.Int("workers")
	}
	if c.IsSet("keys") {
		cfg.Load.Keys = c.Int("keys")
	}
	if c.IsSet("duration") {
		cfg.Load.Duration = c.Duration("duration")
	}
	if c.IsSet("rate") {
		cfg.Load.Rate = c.Float64("rate")
	}
	if c.IsSet("metrics") {
		cfg.Metrics.Enabled = c.Bool("metrics")
	}
	if c.IsSet("metrics-listen") {
		cfg.Metrics.Listen = c.String("metrics-listen")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}

	return cfg, cfg.Validate()
}
