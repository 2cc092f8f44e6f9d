// Command seed-db populates a database with a demo catalog, a few coupons,
// and an admin (staff) account. Used for local runs and the integration suite.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/storefront/internal/repository"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, description, price, stock, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			price = EXCLUDED.price, stock = EXCLUDED.stock, image = EXCLUDED.image`

	upsertCouponSQL = `INSERT INTO coupons
		(id, code, discount_type, discount_value, min_cart_value, valid_from, valid_to, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type, discount_value = EXCLUDED.discount_value,
			min_cart_value = EXCLUDED.min_cart_value, valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to, active = EXCLUDED.active`

	upsertUserSQL = `INSERT INTO users (id, username, email, password_hash, is_staff)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE SET
			email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
			is_staff = EXCLUDED.is_staff`
)

type seedProduct struct {
	id, name, description, image string
	price                        string
	stock                        int
}

var seedProducts = []seedProduct{
	{id: "p-espresso", name: "Espresso Machine", description: "Compact 15-bar espresso machine", price: "189.99", stock: 12, image: "products/espresso.jpg"},
	{id: "p-grinder", name: "Burr Grinder", description: "Conical burr grinder, 40 settings", price: "74.50", stock: 25, image: "products/grinder.jpg"},
	{id: "p-kettle", name: "Gooseneck Kettle", description: "1L pour-over kettle with thermometer", price: "39.00", stock: 40, image: "products/kettle.jpg"},
	{id: "p-scale", name: "Coffee Scale", description: "0.1g precision scale with timer", price: "24.95", stock: 60, image: "products/scale.jpg"},
	{id: "p-beans", name: "House Blend Beans 1kg", description: "Medium roast, chocolate notes", price: "18.00", stock: 200, image: "products/beans.jpg"},
	{id: "p-mug", name: "Ceramic Mug", description: "350ml double-walled mug", price: "12.00", stock: 150, image: "products/mug.jpg"},
	{id: "p-dripper", name: "V60 Dripper", description: "Size 02 ceramic dripper", price: "21.50", stock: 8, image: "products/dripper.jpg"},
	{id: "p-filters", name: "Paper Filters x100", description: "Size 02 bleached filters", price: "6.40", stock: 300, image: "products/filters.jpg"},
	{id: "p-tamper", name: "Calibrated Tamper", description: "58mm spring-calibrated tamper", price: "32.00", stock: 1, image: "products/tamper.jpg"},
}

func main() {
	var (
		databaseURL   string
		adminUser     string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminUser, "admin-user", "admin", "username for the seeded staff account")
	flag.StringVar(&adminPassword, "admin-password", "", "password for the seeded staff account (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("STORE_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or STORE_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminUser, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminUser, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAdmin(ctx, pool, adminUser, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting products", slog.Int("count", len(seedProducts)))

	for _, p := range seedProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price of %s", p.id)
		}
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.id, p.name, p.description, price, p.stock, p.image,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}

		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding coupons")

	now := time.Now().UTC()
	year := 365 * 24 * time.Hour

	coupons := []struct {
		id, code, discountType string
		value, minCart         decimal.Decimal
		validFrom, validTo     time.Time
		active                 bool
	}{
		{
			id: "c-save20", code: "SAVE20", discountType: "flat",
			value: decimal.NewFromInt(20), minCart: decimal.NewFromInt(50),
			validFrom: now.Add(-year), validTo: now.Add(year), active: true,
		},
		{
			id: "c-tenoff", code: "TENOFF", discountType: "percentage",
			value: decimal.NewFromInt(10), minCart: decimal.Zero,
			validFrom: now.Add(-year), validTo: now.Add(year), active: true,
		},
		{
			id: "c-bygone", code: "BYGONE", discountType: "percentage",
			value: decimal.NewFromInt(50), minCart: decimal.Zero,
			validFrom: now.Add(-2 * year), validTo: now.Add(-year), active: true,
		},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.id, c.code, c.discountType, c.value, c.minCart, c.validFrom, c.validTo, c.active,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("type", c.discountType))
	}

	return nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, username, password string) error {
	slog.Info("seeding staff account", slog.String("username", username))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	if _, err := pool.Exec(ctx, upsertUserSQL,
		"u-admin", username, username+"@example.com", string(hash), true,
	); err != nil {
		return errors.Wrap(err, "upsert staff account")
	}

	return nil
}
