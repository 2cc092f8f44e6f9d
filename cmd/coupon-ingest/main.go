// Command coupon-ingest loads promo codes from large gzip-compressed code
// dumps into the coupons table. A code is accepted only when it appears in at
// least two of the three input files; membership across files is tested with
// bloom filters so the dumps never have to fit in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/repository"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10

	validityWindow = 365 * 24 * time.Hour
)

const upsertCouponSQL = `INSERT INTO coupons
	(id, code, discount_type, discount_value, min_cart_value, valid_from, valid_to, active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	ON CONFLICT (code) DO UPDATE SET
		discount_type = EXCLUDED.discount_type, discount_value = EXCLUDED.discount_value,
		min_cart_value = EXCLUDED.min_cart_value, valid_from = EXCLUDED.valid_from,
		valid_to = EXCLUDED.valid_to, active = TRUE`

// codeRule describes the discount rule to apply for a known coupon code.
type codeRule struct {
	discountType string
	value        string
	minCartValue string
}

var codeRules = map[string]codeRule{
	"FIFTYOFF": {discountType: "percentage", value: "50", minCartValue: "0"},
	"SIXTYOFF": {discountType: "percentage", value: "60", minCartValue: "0"},
	"GNULINUX": {discountType: "percentage", value: "15", minCartValue: "0"},
	"HAPPYHRS": {discountType: "percentage", value: "18", minCartValue: "0"},
	"OVER9000": {discountType: "flat", value: "9", minCartValue: "0"},
	"BIGSAVER": {discountType: "flat", value: "25", minCartValue: "100"},
}

var defaultRule = codeRule{
	discountType: "percentage",
	value:        "10",
	minCartValue: "0",
}

func main() {
	dataDir := flag.String("data-dir", "data", "directory holding couponbaseN.gz dumps")
	databaseURL := flag.String("database-url", "", "PostgreSQL URL (falls back to DATABASE_URL)")
	flag.Parse()

	url := *databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, *dataDir, url); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("couponbase%d.gz", i+1))
		if _, err := os.Stat(files[i]); err != nil {
			return errors.Wrapf(err, "check file %s", files[i])
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))
	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: selecting codes present in 2+ files")
	codes, err := selectCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "select codes")
	}

	slog.Info("codes selected", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeCoupons(ctx, pool, codes)
}

func codeLenOK(code string) bool {
	return len(code) >= minCodeLen && len(code) <= maxCodeLen
}

// buildFilters streams every dump once and fills one bloom filter per file.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

			var seen uint64
			err := forEachLine(ctx, path, func(code string) {
				if !codeLenOK(code) {
					return
				}
				filter.AddString(code)
				if seen++; seen%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("codes", seen))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "fill filter for file %d", i+1)
			}

			slog.Info("pass 1 file done", slog.Int("file", i+1), slog.Uint64("total_codes", seen))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// selectCodes streams every dump a second time, testing each code against the
// OTHER files' filters. Per file it records a presence bitmask; after merging,
// codes whose mask has two or more bits set survive.
func selectCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	masks := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			bit := uint(1) << uint(i)

			var seen uint64
			err := forEachLine(ctx, path, func(code string) {
				if !codeLenOK(code) {
					return
				}
				if seen++; seen%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.Int("file", i+1), slog.Uint64("codes", seen))
				}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						found[code] |= bit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}

			slog.Info("pass 2 file done",
				slog.Int("file", i+1),
				slog.Uint64("total_codes", seen),
				slog.Int("candidates", len(found)),
			)
			masks[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, m := range masks {
		for code, mask := range m {
			merged[code] |= mask
		}
	}

	var codes []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// forEachLine streams a gzip-compressed file line by line.
func forEachLine(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// writeCoupons upserts the surviving codes. Known codes get their configured
// rule; everything else becomes a generic 10% coupon valid for a year.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)))

	now := time.Now().UTC()

	for i, code := range codes {
		rule, ok := codeRules[code]
		if !ok {
			rule = defaultRule
		}

		value, err := decimal.NewFromString(rule.value)
		if err != nil {
			return errors.Wrapf(err, "parse discount value for code %s", code)
		}
		minCart, err := decimal.NewFromString(rule.minCartValue)
		if err != nil {
			return errors.Wrapf(err, "parse min cart value for code %s", code)
		}

		if _, err := pool.Exec(ctx, upsertCouponSQL,
			uuid.NewString(), code, rule.discountType, value, minCart,
			now, now.Add(validityWindow),
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
