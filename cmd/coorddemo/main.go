// Command coorddemo walks through the gocoord primitives: plain task
// spawning, message passing over a shared channel, a mutex-guarded counter,
// moving data into a task and a chunked parallel reduction.
//
// It exits 0 when every stage succeeds, 1 when any stage reports a worker
// failure and 2 on invalid flags or configuration.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/panyam/gocoord/internal/config"
	"github.com/spf13/pflag"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, config.FromEnv(), stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "coorddemo:", err)
		return exitUsage
	}
	return run(cfg, stdout, newLogger(stderr, cfg.Verbose))
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// parseFlags layers command line flags over base, which already carries the
// defaults and environment overrides.
func parseFlags(args []string, base *config.Config, stderr io.Writer) (*config.Config, error) {
	cfg := *base
	fs := pflag.NewFlagSet("coorddemo", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "chunk workers for the parallel computation stage")
	fs.IntVarP(&cfg.Items, "items", "n", cfg.Items, "reduce the numbers 1..items")
	fs.IntVar(&cfg.Producers, "producers", cfg.Producers, "senders in the message passing stage")
	fs.IntVar(&cfg.Increments, "increments", cfg.Increments, "workers incrementing the shared counter")
	fs.DurationVar(&cfg.MessageDelay, "delay", cfg.MessageDelay, "pause between messages")
	fs.StringVar(&cfg.FailStage, "fail-stage", cfg.FailStage,
		"make a worker panic in the named stage ("+strings.Join(stageNames(), ", ")+")")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.FailStage != "" && findStage(cfg.FailStage) == nil {
		return nil, fmt.Errorf("unknown stage %q", cfg.FailStage)
	}
	return &cfg, nil
}
