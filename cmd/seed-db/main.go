package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/auth"
	"github.com/xenking/storefront-api/internal/domain/identity"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/storage/postgres"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Seller      string          `json:"seller"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		tokenSecret  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&tokenSecret, "token-secret", "", "HMAC secret for demo tokens (or STORE_TOKEN_SECRET env)")
	flag.Parse()

	_ = godotenv.Load()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if tokenSecret == "" {
		tokenSecret = os.Getenv("STORE_TOKEN_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, tokenSecret); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, tokenSecret string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	sellers, err := seedProducts(ctx, product.NewService(postgres.NewProductRepository(pool)), productsFile)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}

	if tokenSecret != "" {
		printDemoTokens(tokenSecret, sellers)
	}
	return nil
}

func seedProducts(ctx context.Context, catalog *product.Service, productsFile string) ([]string, error) {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	seen := make(map[string]bool)
	var sellers []string
	for _, p := range products {
		created, err := catalog.Create(ctx, p.Seller, product.Input{
			Name:        p.Name,
			Description: p.Description,
			Image:       p.Image,
			Price:       p.Price,
			Stock:       p.Stock,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "create product %q", p.Name)
		}
		slog.Info("seeded product",
			slog.String("id", created.ID),
			slog.String("name", created.Name),
			slog.String("seller", created.Owner),
		)
		if !seen[p.Seller] {
			seen[p.Seller] = true
			sellers = append(sellers, p.Seller)
		}
	}
	return sellers, nil
}

// printDemoTokens issues short-lived bearer tokens so the seeded catalog
// can be exercised with curl right away.
func printDemoTokens(secret string, sellers []string) {
	v := auth.NewVerifier([]byte(secret))

	for _, seller := range sellers {
		token, err := v.Issue(identity.Identity{Subject: seller, Role: identity.RoleSeller}, 24*time.Hour)
		if err != nil {
			slog.Error("issue seller token", slog.String("seller", seller), slog.String("error", err.Error()))
			continue
		}
		slog.Info("seller token", slog.String("seller", seller), slog.String("token", token))
	}

	token, err := v.Issue(identity.Identity{Subject: "demo-customer", Role: identity.RoleCustomer}, 24*time.Hour)
	if err != nil {
		slog.Error("issue customer token", slog.String("error", err.Error()))
		return
	}
	slog.Info("customer token", slog.String("customer", "demo-customer"), slog.String("token", token))
}
