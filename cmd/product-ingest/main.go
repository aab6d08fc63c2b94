// Command product-ingest bulk-loads a product catalog from gzipped
// JSONL exports. Files are parsed concurrently; rows are copied into
// PostgreSQL in batches.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/storage/postgres"
)

const (
	batchSize     = 1000
	progressEvery = 50_000
)

// row is one parsed catalog line ready for insertion.
type row struct {
	name        string
	description string
	image       string
	price       decimal.Decimal
	stock       int
	seller      string
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	_ = godotenv.Load()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no input files: pass one or more .jsonl.gz paths")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("product ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("product ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	rows := make(chan row, batchSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return insertRows(ctx, pool, rows)
	})

	parsers, parseCtx := errgroup.WithContext(ctx)
	for _, f := range files {
		parsers.Go(parseFile(parseCtx, f, rows))
	}

	parseErr := parsers.Wait()
	close(rows)
	if err := g.Wait(); err != nil {
		return err
	}
	return parseErr
}

// parseFile streams one gzipped JSONL file and sends parsed rows
// downstream.
func parseFile(ctx context.Context, path string, rows chan<- row) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			r, err := parseLine(line)
			if err != nil {
				return errors.Wrapf(err, "parse line %d of %s", count+1, path)
			}

			select {
			case rows <- r:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.String("file", path), slog.Uint64("rows", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("parse complete", slog.String("file", path), slog.Uint64("rows", count))
		return nil
	}
}

func parseLine(line []byte) (row, error) {
	var r row
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			r.name = v
			return err
		case "description":
			v, err := d.Str()
			r.description = v
			return err
		case "image":
			v, err := d.Str()
			r.image = v
			return err
		case "price":
			n, err := d.Num()
			if err != nil {
				return err
			}
			p, err := decimal.NewFromString(n.String())
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			r.price = p
			return nil
		case "stock":
			v, err := d.Int()
			r.stock = v
			return err
		case "seller":
			v, err := d.Str()
			r.seller = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return row{}, err
	}

	if r.name == "" {
		return row{}, errors.New("missing name")
	}
	if r.seller == "" {
		return row{}, errors.New("missing seller")
	}
	if !r.price.IsPositive() {
		return row{}, errors.Errorf("invalid price %s", r.price)
	}
	if r.stock < 0 {
		return row{}, errors.Errorf("invalid stock %d", r.stock)
	}
	return r, nil
}

// insertRows batches parsed rows into COPY operations.
func insertRows(ctx context.Context, pool *pgxpool.Pool, rows <-chan row) error {
	batch := make([]row, 0, batchSize)
	var total int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := copyBatch(ctx, pool, batch); err != nil {
			return err
		}
		total += int64(len(batch))
		slog.Info("insert progress", slog.Int64("rows", total))
		batch = batch[:0]
		return nil
	}

	for r := range rows {
		batch = append(batch, r)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func copyBatch(ctx context.Context, pool *pgxpool.Pool, batch []row) error {
	now := time.Now().UTC()
	_, err := pool.CopyFrom(ctx,
		pgx.Identifier{"products"},
		[]string{"id", "name", "description", "image", "price", "stock", "owner", "active", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			r := batch[i]
			return []any{
				uuid.New().String(),
				r.name,
				r.description,
				r.image,
				r.price,
				r.stock,
				r.seller,
				true,
				now,
				now,
			}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "copy products")
	}
	return nil
}
