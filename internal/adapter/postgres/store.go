package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/foehnwatch/tas-tracker/internal/config"
	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
)

// daysPerYear is the width of the archive grid. Leap days are folded
// into day 365 upstream, so the table never stores a day 366.
const daysPerYear = 365

// Store reads and maintains the daily mean temperature archive.
type Store struct {
	db      *sqlx.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Open connects to the archive database, applies the pool limits, and
// verifies the connection with a ping.
func Open(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}

	logger.Info("archive database connected",
		"max_open_conns", cfg.DBMaxOpenConns,
		"max_idle_conns", cfg.DBMaxIdleConns,
	)

	return &Store{db: db, logger: logger, metrics: metrics}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck pings the database with a short deadline.
func (s *Store) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("archive database health check: %w", err)
	}
	return nil
}

// EnsureSchema creates the archive table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS daily_means (
			region TEXT             NOT NULL,
			year   INT              NOT NULL,
			doy    SMALLINT         NOT NULL CHECK (doy BETWEEN 1 AND 365),
			tas    DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (region, year, doy)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

type dayRow struct {
	Year int     `db:"year"`
	Doy  int     `db:"doy"`
	Tas  float64 `db:"tas"`
}

// LoadBase assembles the full year-by-day grid for a region. Days
// without a stored value stay NaN. A region with no rows at all is
// reported as ErrInvalidRegion.
func (s *Store) LoadBase(ctx context.Context, region string) (*domain.Dataset, error) {
	start := time.Now()

	var rows []dayRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT year, doy, tas
		FROM daily_means
		WHERE region = $1
		ORDER BY year, doy
	`, region)
	if err != nil {
		return nil, fmt.Errorf("load archive for %q: %w", region, err)
	}

	s.metrics.ArchiveLoadDuration.Observe(time.Since(start).Seconds())

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no archived years for %q", domain.ErrInvalidRegion, region)
	}

	years, base := assembleGrid(rows)

	s.logger.Debug("archive loaded",
		"region", region,
		"years", len(years),
		"rows", len(rows),
	)

	return domain.NewDataset(region, years, base)
}

// assembleGrid turns year-ordered rows into a dense NaN-initialized
// grid, one row per distinct year.
func assembleGrid(rows []dayRow) ([]int, [][]float64) {
	var years []int
	var base [][]float64

	idx := -1
	for _, r := range rows {
		if idx < 0 || years[idx] != r.Year {
			row := make([]float64, daysPerYear)
			for i := range row {
				row[i] = math.NaN()
			}
			years = append(years, r.Year)
			base = append(base, row)
			idx++
		}
		if r.Doy >= 1 && r.Doy <= daysPerYear {
			base[idx][r.Doy-1] = r.Tas
		}
	}

	return years, base
}

// Day is one archived daily mean, as written by the ingester.
type Day struct {
	Region string  `db:"region"`
	Year   int     `db:"year"`
	Doy    int     `db:"doy"`
	Tas    float64 `db:"tas"`
}

// UpsertDays writes a batch of daily means in a single transaction,
// replacing values that already exist.
func (s *Store) UpsertDays(ctx context.Context, days []Day) error {
	if len(days) == 0 {
		return nil
	}

	for _, d := range days {
		if d.Region == "" {
			return fmt.Errorf("%w: empty region in archive batch", domain.ErrInvalidArgument)
		}
		if d.Doy < 1 || d.Doy > daysPerYear {
			return fmt.Errorf("%w: day of year %d outside 1..%d", domain.ErrInvalidArgument, d.Doy, daysPerYear)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_means (region, year, doy, tas)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region, year, doy) DO UPDATE SET tas = EXCLUDED.tas
	`)
	if err != nil {
		return fmt.Errorf("prepare archive upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.ExecContext(ctx, d.Region, d.Year, d.Doy, d.Tas); err != nil {
			return fmt.Errorf("upsert daily mean for %s %d day %d: %w", d.Region, d.Year, d.Doy, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}

	s.logger.Debug("archive batch written", "rows", len(days))

	return nil
}
