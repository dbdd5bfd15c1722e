// Package main is the entry point for the ladle CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.trai.ch/ladle/cmd/ladle/commands"
	"go.trai.ch/ladle/internal/adapters/config"
	"go.trai.ch/ladle/internal/adapters/logger"
	"go.trai.ch/ladle/internal/adapters/telemetry"
	"go.trai.ch/ladle/internal/adapters/telemetry/progrock"
	"go.trai.ch/ladle/internal/app"
	"go.trai.ch/ladle/internal/core/ports"
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The log handler must exist before cobra parses flags, so the format
	// flag is pre-scanned from the raw arguments.
	log := logger.NewWithOptions(logger.Options{
		JSON:  jsonLogsRequested(os.Args[1:]),
		Level: slog.LevelInfo,
	})

	var tracer ports.Tracer = telemetry.NewNoOpTracer()
	if os.Getenv("LADLE_PROGRESS") != "" {
		progressTracer := progrock.New()
		defer progressTracer.Close()
		tracer = progressTracer
	}

	application := app.New(log, config.NewLoader(log), tracer)

	cli := commands.New(application)
	cli.SetLogHook(func(verbosity int, quiet bool) {
		switch {
		case quiet:
			log.SetLevel(slog.LevelWarn)
		case verbosity > 0:
			log.SetLevel(slog.LevelDebug)
		}
	})

	if err := cli.Execute(ctx); err != nil {
		// zerr prints a pretty error report with stack trace and metadata when using %+v
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 1
	}
	return 0
}

func jsonLogsRequested(args []string) bool {
	for i, arg := range args {
		if arg == "--log-format=json" {
			return true
		}
		if arg == "--log-format" && i+1 < len(args) && args[i+1] == "json" {
			return true
		}
	}
	return false
}
