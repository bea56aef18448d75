package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/controller"
	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/log"
	"github.com/hyperion-energy/hyperion/pkg/metrics"
	"github.com/hyperion-energy/hyperion/pkg/proposal"
	"github.com/hyperion-energy/hyperion/pkg/server"
	"github.com/hyperion-energy/hyperion/pkg/simulation"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	// init packages
	e := engine.Configured()
	sim := simulation.Configured(e)
	prop := proposal.Configured(e)

	m, err := metrics.NewController()
	if err != nil {
		panic(fmt.Errorf("failed to create metrics: %w", err))
	}
	c := controller.Configured(sim, prop, m)

	// init server
	srv := server.Configured(c, e)

	traceStdout := lflag.Bool("trace-stdout", false, "Export trace spans of service calls to stdout")
	metricsPrometheus := lflag.Bool("metrics-prometheus", false, "Expose metrics for prometheus scraping on /metrics")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	log.SetDefaultLogLevel(level)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *traceStdout {
		shutdown, err := initTracer()
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to flush traces", "error", err)
			}
		}()
	}

	if *metricsPrometheus {
		p, err := metrics.NewPrometheus()
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to initialize metrics", "error", err)
			os.Exit(1)
		}
		// instruments created on the global provider so far delegate to p
		otel.SetMeterProvider(p.MeterProvider())
		srv.SetMetricsHandler(p.Handler())
		defer func() {
			if err := p.Shutdown(context.Background()); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to shut down metrics", "error", err)
			}
		}()
	}

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}

// initTracer exports spans to stdout and returns the func flushing them.
func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
