// Command import-products bulk-loads catalog exports into the database.
//
// Each input is a gzip-compressed CSV with the columns
// name,description,price,quantity. Exports from different sources overlap, so
// rows are deduplicated by name across all files before insertion; the first
// occurrence wins. Dedup uses a bloom filter, so a false positive can skip a
// legitimate row; the insert is idempotent and re-running the import with a
// corrected file heals it.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-management/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	insertBatch   = 500
)

const insertProductSQL = `INSERT INTO products (name, description, price, quantity)
	SELECT $1, $2, $3, $4
	WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1 AND NOT deleted)`

// productRow is one parsed catalog line.
type productRow struct {
	name        string
	description string
	price       decimal.Decimal
	quantity    int
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog export files")
	flag.StringVar(&pattern, "pattern", "products*.csv.gz", "glob pattern for export files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL); err != nil {
		slog.Error("product import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("product import completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no export files matching %s in %s", pattern, dataDir)
	}

	slog.Info("parsing export files", slog.Int("files", len(files)))

	parsed, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse export files")
	}

	rows := dedupe(parsed)
	slog.Info("rows after dedup", slog.Int("count", len(rows)))

	if len(rows) == 0 {
		slog.Info("nothing to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeProducts(ctx, pool, rows)
}

// parseFiles reads every export concurrently, one goroutine per file,
// preserving per-file row order in the result.
func parseFiles(ctx context.Context, files []string) ([][]productRow, error) {
	parsed := make([][]productRow, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			rows, err := parseFile(ctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", f)
			}
			slog.Info("parsed file", slog.String("path", f), slog.Int("rows", len(rows)))
			parsed[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// parseFile streams one gzip-compressed CSV export.
func parseFile(ctx context.Context, path string) ([]productRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = 4

	var (
		rows []productRow
		line int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read record")
		}
		line++

		row, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseRecord(record []string) (productRow, error) {
	name := record[0]
	if name == "" {
		return productRow{}, errors.New("empty name")
	}

	price, err := decimal.NewFromString(record[2])
	if err != nil || price.IsNegative() {
		return productRow{}, fmt.Errorf("invalid price %q", record[2])
	}

	quantity, err := strconv.Atoi(record[3])
	if err != nil || quantity < 0 {
		return productRow{}, fmt.Errorf("invalid quantity %q", record[3])
	}

	return productRow{
		name:        name,
		description: record[1],
		price:       price,
		quantity:    quantity,
	}, nil
}

// dedupe merges the per-file row sets, keeping the first occurrence of each
// product name. Files are merged in argument order, rows in file order.
func dedupe(parsed [][]productRow) []productRow {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	var out []productRow
	for _, rows := range parsed {
		for _, row := range rows {
			if seen.TestString(row.name) {
				continue
			}
			seen.AddString(row.name)
			out = append(out, row)
		}
	}
	return out
}

// writeProducts inserts the rows in batches.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, rows []productRow) error {
	slog.Info("writing products to database", slog.Int("count", len(rows)))

	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))

		batch := &pgx.Batch{}
		for _, row := range rows[start:end] {
			batch.Queue(insertProductSQL, row.name, row.description, row.price, row.quantity)
		}

		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "insert batch at row %d", start)
		}

		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(rows)))
	}

	return nil
}
