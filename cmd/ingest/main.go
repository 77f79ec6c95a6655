// Command ingest bulk-loads archived daily-mean temperature series
// into the Postgres archive. Input is CSV with a year,doy,tas header;
// values are degrees Celsius on a 365-day axis (leap days are dropped).
//
// Usage:
//
//	go run ./cmd/ingest -region austria -csv data/tas_austria.csv
//	go run ./cmd/ingest -dir data/archive
//
// In -dir mode every tas_<region>.csv in the directory is ingested
// under the region id taken from its filename.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/foehnwatch/tas-tracker/internal/adapter/postgres"
	"github.com/foehnwatch/tas-tracker/internal/config"
	"github.com/foehnwatch/tas-tracker/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV file holding one region's series")
	region := flag.String("region", "", "region id for -csv")
	dir := flag.String("dir", "", "directory of tas_<region>.csv files")
	flag.Parse()

	switch {
	case *csvPath != "" && *dir != "":
		flag.Usage()
		return fmt.Errorf("-csv and -dir are mutually exclusive")
	case *csvPath == "" && *dir == "":
		flag.Usage()
		return fmt.Errorf("one of -csv or -dir is required")
	case *csvPath != "" && *region == "":
		flag.Usage()
		return fmt.Errorf("-csv needs -region")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := postgres.Open(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("open archive store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	if *csvPath != "" {
		return ingestFile(ctx, store, logger, *csvPath, *region)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "tas_*.csv"))
	if err != nil {
		return fmt.Errorf("scan %s: %w", *dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no tas_<region>.csv files in %s", *dir)
	}
	for _, file := range files {
		id := regionFromFilename(file)
		if err := ingestFile(ctx, store, logger, file, id); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

func ingestFile(ctx context.Context, store *postgres.Store, logger *slog.Logger, path, region string) error {
	days, skipped, err := readSeriesCSV(path, region)
	if err != nil {
		return err
	}
	if err := store.UpsertDays(ctx, days); err != nil {
		return err
	}
	logger.Info("region ingested", "region", region, "rows", len(days), "skipped", skipped, "file", path)
	return nil
}

// readSeriesCSV parses one region's series. Rows with a day-of-year
// outside the 365-day axis are counted and dropped, not fatal, so leap
// days in the export do not abort a load.
func readSeriesCSV(path, region string) ([]postgres.Day, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("no data rows")
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"year", "doy", "tas"} {
		if _, ok := idx[col]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", col)
		}
	}

	days := make([]postgres.Day, 0, len(rows)-1)
	skipped := 0
	for i, row := range rows[1:] {
		line := i + 2
		year, err := strconv.Atoi(strings.TrimSpace(row[idx["year"]]))
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: bad year: %v", line, err)
		}
		doy, err := strconv.Atoi(strings.TrimSpace(row[idx["doy"]]))
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: bad doy: %v", line, err)
		}
		tas, err := strconv.ParseFloat(strings.TrimSpace(row[idx["tas"]]), 64)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: bad tas: %v", line, err)
		}
		if doy < 1 || doy > 365 {
			skipped++
			continue
		}
		days = append(days, postgres.Day{Region: region, Year: year, Doy: doy, Tas: tas})
	}
	return days, skipped, nil
}

func regionFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimPrefix(base, "tas_"), ".csv")
}
