// bia-ingest - Publish BIA stage outputs into ClickHouse
//
// Reads {building}_DLI_daily and {building}_BIA_crop_profile outputs
// (.parquet, .csv or .csv.gz) and inserts:
//   - daily DLI rows through the native protocol (ch-go, columnar)
//   - crop calendar days through clickhouse-go/v2 batches
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/bia-ingest ./cmd/bia-ingest

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-bia-apps/internal/common"
	"github.com/KI7MT/ki7mt-bia-apps/internal/pipeline"
	"github.com/KI7MT/ki7mt-bia-apps/internal/store"
	"github.com/KI7MT/ki7mt-bia-apps/internal/tabular"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const (
	dliSuffix     = "_DLI_daily"
	profileSuffix = "_BIA_crop_profile"
)

// output is one stage output file found on disk.
type output struct {
	path     string
	building string
	profile  bool
	rank     int // index into extensions
}

// dedupe keeps one output per building and kind, preferring earlier
// extensions. Results are sorted by path.
func dedupe(outputs []output) (keep, dropped []output) {
	type key struct {
		building string
		profile  bool
	}
	best := make(map[key]int)
	for i, o := range outputs {
		k := key{o.building, o.profile}
		j, seen := best[k]
		switch {
		case !seen:
			best[k] = i
		case o.rank < outputs[j].rank:
			dropped = append(dropped, outputs[j])
			best[k] = i
		default:
			dropped = append(dropped, o)
		}
	}
	for _, i := range best {
		keep = append(keep, outputs[i])
	}
	sort.Slice(keep, func(i, j int) bool { return keep[i].path < keep[j].path })
	sort.Slice(dropped, func(i, j int) bool { return dropped[i].path < dropped[j].path })
	return keep, dropped
}

// extensions in preference order when a building has several outputs of one
// kind.
var extensions = []string{".parquet", ".csv.gz", ".csv"}

// classify recognizes stage outputs by file name.
func classify(path string) (output, bool) {
	base := filepath.Base(path)
	for rank, ext := range extensions {
		if !strings.HasSuffix(base, ext) {
			continue
		}
		stem := strings.TrimSuffix(base, ext)
		switch {
		case strings.HasSuffix(stem, dliSuffix):
			return output{path: path, building: strings.TrimSuffix(stem, dliSuffix), rank: rank}, true
		case strings.HasSuffix(stem, profileSuffix):
			return output{path: path, building: strings.TrimSuffix(stem, profileSuffix), profile: true, rank: rank}, true
		}
		return output{}, false
	}
	return output{}, false
}

func main() {
	common.LoadEnv()
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	dliTable := flag.String("dli-table", store.DLITable, "ClickHouse table for daily DLI")
	profileTable := flag.String("profile-table", store.ProfileTable, "ClickHouse table for crop profiles")
	scenario := flag.String("scenario", cfg.Scenario, "Scenario directory")
	create := flag.Bool("create", false, "Create tables if missing")
	truncate := flag.Bool("truncate", false, "Truncate tables before insert")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "bia-ingest v%s - BIA Output Publisher\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Publishes DLI daily and crop profile outputs into ClickHouse.\n")
		fmt.Fprintf(os.Stderr, "Without files, every output in the scenario's agriculture directory is used.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	log.Println("=========================================================")
	log.Printf("BIA Ingest v%s", Version)
	log.Println("=========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	// Discover files
	paths := flag.Args()
	if len(paths) == 0 {
		dir := pipeline.Locator{Scenario: *scenario}.AgricultureDir()
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Fatalf("Cannot read output directory: %v", err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}

	var outputs []output
	for _, p := range paths {
		if o, ok := classify(p); ok {
			outputs = append(outputs, o)
		}
	}
	if len(outputs) == 0 {
		log.Fatal("No stage outputs to ingest")
	}
	outputs, dropped := dedupe(outputs)
	for _, o := range dropped {
		log.Printf("[%s] skipped, another format of this output is ingested", filepath.Base(o.path))
	}
	log.Printf("Found %d output file(s)", len(outputs))

	opt := store.Options{
		Addr:     *chHost,
		Database: *chDB,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	}

	log.Printf("Connecting to ClickHouse at %s...", *chHost)
	native, err := store.DialNative(ctx, opt)
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer native.Close()

	conn, err := store.Open(ctx, opt)
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	dliFQN := fmt.Sprintf("%s.%s", *chDB, *dliTable)
	profileFQN := fmt.Sprintf("%s.%s", *chDB, *profileTable)
	log.Printf("Tables: %s, %s", dliFQN, profileFQN)

	if *create {
		for _, ddl := range []string{store.DLISchema(dliFQN), store.ProfileSchema(profileFQN)} {
			if err := native.Do(ctx, ch.Query{Body: ddl}); err != nil {
				log.Fatalf("Create table failed: %v", err)
			}
		}
	}
	if *truncate {
		for _, table := range []string{dliFQN, profileFQN} {
			log.Printf("Truncating table %s...", table)
			if err := native.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", table)}); err != nil {
				log.Printf("Truncate warning: %v", err)
			}
		}
	}

	runID := uuid.New()
	log.Printf("Run: %s", runID)

	startTime := time.Now()
	dliWriter := store.NewDLIWriter(native, dliFQN)
	profileWriter := store.NewProfileWriter(conn, profileFQN)
	var files, failed int

	for _, o := range outputs {
		if ctx.Err() != nil {
			break
		}

		name := filepath.Base(o.path)
		if o.profile {
			cal, err := tabular.ReadProfile(o.path)
			if err == nil {
				err = profileWriter.Write(ctx, runID, o.building, cal)
			}
			if err != nil {
				log.Printf("[%s] %v", name, err)
				failed++
				continue
			}
			log.Printf("[%s] %d surfaces", name, cal.Len())
		} else {
			sensors, dli, err := tabular.ReadDLI(o.path)
			if err == nil {
				err = dliWriter.Write(ctx, runID, sensors, dli)
			}
			if err != nil {
				log.Printf("[%s] %v", name, err)
				failed++
				continue
			}
			log.Printf("[%s] %d surfaces", name, len(sensors))
		}
		files++
	}

	if err := dliWriter.Flush(ctx); err != nil {
		log.Fatalf("Insert error: %v", err)
	}

	elapsed := time.Since(startTime)
	totalRows := dliWriter.Rows() + profileWriter.Rows()

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Files:         %d (%d failed)", files, failed)
	log.Printf("DLI Rows:      %d", dliWriter.Rows())
	log.Printf("Profile Rows:  %d", profileWriter.Rows())
	log.Printf("Elapsed:       %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:          %.0f rows/sec", float64(totalRows)/elapsed.Seconds())
	log.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}
