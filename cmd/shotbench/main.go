// Command shotbench times shot searches over random game packets.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
)

func main() {
	cfg := benchConfig{}
	flag.StringVar(&cfg.Arena, "arena", "soccar", "arena to load")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "independent sessions run in parallel")
	flag.IntVar(&cfg.Iterations, "iterations", 10000, "ticks per worker")
	flag.IntVar(&cfg.Cars, "cars", 64, "cars per packet")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if cfg.Workers < 1 || cfg.Cars < 1 {
		logger.Error("workers and cars must be positive", "workers", cfg.Workers, "cars", cfg.Cars)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("Starting benchmark", "arena", cfg.Arena, "workers", cfg.Workers, "iterations", cfg.Iterations)
	result, err := runBench(ctx, cfg)
	if err != nil {
		logger.Error("Benchmark failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Benchmark complete", "result", result.String())
}
