package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/common"
	"github.com/KI7MT/ki7mt-bia-apps/internal/pipeline"
	"github.com/KI7MT/ki7mt-bia-apps/internal/store"
)

// errBuildingsFailed makes the process exit non-zero after all buildings ran.
var errBuildingsFailed = errors.New("one or more buildings failed")

func run(parent context.Context, opts *options, settings bia.Settings, stages []pipeline.Stage) error {
	log.Println("=========================================================")
	log.Printf("BIA Potential v%s", Version)
	log.Println("=========================================================")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Println("\nShutdown requested...")
			cancel()
		case <-ctx.Done():
		}
	}()

	loc := pipeline.Locator{Scenario: opts.scenario}
	runner, err := pipeline.NewRunner(loc, settings)
	if err != nil {
		return err
	}

	buildings := opts.buildings
	if len(buildings) == 0 {
		buildings = runner.Buildings()
	}
	if len(buildings) == 0 {
		return fmt.Errorf("no buildings in %s", loc.Zone())
	}

	pool := pipeline.NewPool(opts.workers)
	runID := uuid.New()
	log.Printf("Scenario: %s", opts.scenario)
	log.Printf("Run: %s | Buildings: %d | Workers: %d", runID, len(buildings), pool.Workers())

	var ledger *store.RunLog
	if !opts.noRunLog {
		if err := os.MkdirAll(loc.AgricultureDir(), 0o755); err != nil {
			return err
		}
		if ledger, err = store.OpenRunLog(loc.RunLog()); err != nil {
			return err
		}
		defer ledger.Close()
	}

	startTime := time.Now()
	failed := false
	for _, stage := range stages {
		if ctx.Err() != nil {
			break
		}
		summary, err := runStage(ctx, runner, pool, stage, buildings, runID, ledger, opts.silent)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			failed = true
		}
	}

	log.Println()
	log.Printf("Total elapsed: %v", time.Since(startTime).Round(time.Millisecond))
	if ledger != nil {
		if counts, err := ledger.StatusCounts(context.Background(), runID); err == nil {
			log.Printf("Run log: %v -> %s", counts, loc.RunLog())
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if failed {
		return errBuildingsFailed
	}
	return nil
}

func runStage(ctx context.Context, runner *pipeline.Runner, pool *pipeline.Pool, stage pipeline.Stage,
	buildings []string, runID uuid.UUID, ledger *store.RunLog, silent bool) (pipeline.Summary, error) {

	task, err := runner.Task(stage)
	if err != nil {
		return pipeline.Summary{}, err
	}

	log.Println()
	log.Printf("Stage: %s", stage)
	runner.LogSettings(stage)

	stats := common.NewStats(len(buildings))
	stats.SetSilent(silent)
	stats.StartReporter()

	results := pool.Run(ctx, stage, buildings, task, func(r pipeline.Result) {
		switch r.Status {
		case pipeline.StatusDone:
			stats.AddDone(r.Sensors)
			log.Printf("[%s] %s: %d surfaces -> %s (%v)",
				r.Building, stage, r.Sensors, r.Output, r.Elapsed.Round(time.Millisecond))
		case pipeline.StatusSkipped:
			stats.AddSkipped()
			log.Printf("[%s] %s: skipped, %v", r.Building, stage, r.Err)
		default:
			stats.AddFailed()
			log.Printf("[%s] %s: FAILED: %v", r.Building, stage, r.Err)
		}

		if ledger == nil {
			return
		}
		entry := store.RunEntry{
			RunID:    runID,
			Building: r.Building,
			Stage:    string(r.Stage),
			Status:   string(r.Status),
			Sensors:  r.Sensors,
			Elapsed:  r.Elapsed,
		}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		if err := ledger.Record(context.Background(), entry); err != nil {
			log.Printf("[%s] run log: %v", r.Building, err)
		}
	})
	stats.StopReporter()

	summary := pipeline.Summarize(results)
	elapsed := time.Since(stats.StartTime)

	log.Println()
	log.Println("=========================================================")
	log.Printf("Final Statistics (%s)", stage)
	log.Println("=========================================================")
	log.Printf("Buildings:     %d", len(buildings))
	log.Printf("Written:       %d", summary.Done)
	log.Printf("No potential:  %d", summary.Skipped)
	log.Printf("Failed:        %d", summary.Failed)
	log.Printf("Surfaces:      %d", summary.Sensors)
	log.Printf("Elapsed:       %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:          %.1f buildings/sec", float64(len(buildings))/elapsed.Seconds())
	log.Println("=========================================================")

	return summary, nil
}
