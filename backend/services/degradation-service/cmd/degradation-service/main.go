package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"baas/backend/libs/logging"
	"baas/backend/services/degradation-service/internal/app"
	"baas/backend/services/degradation-service/internal/config"
	"baas/backend/services/degradation-service/internal/models"
)

var version = "dev"

// RunCmd runs the full pipeline once.
type RunCmd struct{}

// DeriveCmd recomputes the derived tables from an existing segment table.
type DeriveCmd struct {
	Segments string `arg:"positional,required" help:"segment summary CSV produced by a previous run"`
}

// ServeCmd runs the pipeline and serves the results API.
type ServeCmd struct {
	Port *string `arg:"--port" help:"HTTP port"`
}

type argSpec struct {
	Run    *RunCmd    `arg:"subcommand:run" help:"run the full pipeline once"`
	Derive *DeriveCmd `arg:"subcommand:derive" help:"derive reference, slope and degradation tables from a segment table"`
	Serve  *ServeCmd  `arg:"subcommand:serve" help:"run the pipeline and serve its results over HTTP"`

	DataDir    *string  `arg:"-d,--data-dir" help:"directory scanned recursively for telemetry CSV files"`
	OutputDir  *string  `arg:"-o,--output-dir" help:"directory receiving the result tables"`
	Workers    *int     `arg:"-w,--workers" help:"concurrent file workers (0 uses the CPU count)"`
	Classifier *string  `arg:"--classifier" help:"path-hint, status-vote or current-threshold"`
	Threshold  *float64 `arg:"--current-threshold" help:"mean pack current separating fast from slow"`
	Mode       *string  `arg:"--segment-mode" help:"activity or whole-file"`
	WindowDays *int     `arg:"--window-days" help:"minimum observation span of the filtered table"`
	Plots      bool     `arg:"--plots" help:"render indicator box plots"`
	KeepParts  bool     `arg:"--keep-parts" help:"keep per-file intermediate artifacts"`
	LogLevel   *string  `arg:"-l,--log-level" help:"debug, info, warn or error"`
}

func (argSpec) Version() string {
	return version
}

func (a argSpec) apply(cfg *config.Config) {
	if a.DataDir != nil {
		cfg.Input.DataDir = *a.DataDir
	}
	if a.OutputDir != nil {
		cfg.Output.Dir = *a.OutputDir
	}
	if a.Workers != nil {
		cfg.Input.Workers = *a.Workers
	}
	if a.Classifier != nil {
		cfg.Classifier.Strategy = *a.Classifier
	}
	if a.Threshold != nil {
		cfg.Classifier.CurrentThreshold = *a.Threshold
	}
	if a.Mode != nil {
		cfg.Input.SegmentMode = *a.Mode
	}
	if a.WindowDays != nil {
		cfg.Window.MinDays = *a.WindowDays
	}
	if a.Plots {
		cfg.Output.Plots = true
	}
	if a.KeepParts {
		cfg.Output.KeepParts = true
	}
	if a.LogLevel != nil {
		cfg.Log.Level = *a.LogLevel
	}
	if a.Serve != nil && a.Serve.Port != nil {
		cfg.HTTP.Port = *a.Serve.Port
	}
}

func main() {
	var args argSpec
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand: run, derive or serve")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	args.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Options{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init application", zap.Error(err))
	}
	defer application.Close()

	switch {
	case args.Run != nil:
		result, err := application.RunOnce(ctx)
		if err != nil {
			logger.Fatal("pipeline failed", zap.Error(err))
		}
		logOutputs(logger, result)
	case args.Derive != nil:
		result, err := application.Derive(ctx, args.Derive.Segments)
		if err != nil {
			logger.Fatal("derive failed", zap.Error(err))
		}
		logOutputs(logger, result)
	case args.Serve != nil:
		if err := application.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("application stopped with error", zap.Error(err))
		}
	}
}

func logOutputs(logger *zap.Logger, result *models.RunResult) {
	for table, path := range result.Outputs {
		logger.Info("table written", zap.String("table", table), zap.String("path", path))
	}
}
