package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/okian/admission/internal/loadgen"
	"github.com/okian/admission/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultDeadline = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		programs   = flag.Int("programs", loadgen.DefaultPrograms, "Number of programs to seed")
		candidates = flag.Int("candidates", loadgen.DefaultCandidates, "Number of candidates to generate")
		batchSize  = flag.Int("batch", loadgen.DefaultBatchSize, "Candidates per batch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", loadgen.DefaultTimeout, "HTTP request timeout")
		poll       = flag.Duration("poll", loadgen.DefaultPollInterval, "Delay between result polls")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		outputFile = flag.String("output", "", "Write generated candidates to this JSON file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDeadline)
	defer cancel()

	_, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL:      *baseURL,
		Programs:     *programs,
		Candidates:   *candidates,
		BatchSize:    *batchSize,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: *poll,
		Seed:         *seed,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "load run failed:", err)
		os.Exit(1)
	}
}
