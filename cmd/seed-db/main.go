// Command seed-db loads initial users and products into the database.
// Users are stored with bcrypt password hashes; existing rows are left
// untouched so the command is safe to re-run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/auth"
	"github.com/xenking/order-management/internal/repository"
)

type userJSON struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

const (
	insertUserSQL = `INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING`

	insertProductSQL = `INSERT INTO products (name, description, price, quantity)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1 AND NOT deleted)`
)

func main() {
	var (
		databaseURL  string
		usersFile    string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&usersFile, "users-file", "db/seed/users.json", "path to users JSON file")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
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

	if err := run(ctx, databaseURL, usersFile, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, usersFile, productsFile string) error {
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

	if err := seedUsers(ctx, pool, usersFile); err != nil {
		return errors.Wrap(err, "seed users")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, usersFile string) error {
	slog.Info("reading users file", slog.String("path", usersFile))

	data, err := os.ReadFile(usersFile)
	if err != nil {
		return errors.Wrap(err, "read users file")
	}

	var users []userJSON
	if err := json.Unmarshal(data, &users); err != nil {
		return errors.Wrap(err, "parse users JSON")
	}

	slog.Info("inserting users", slog.Int("count", len(users)))

	for _, u := range users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return errors.Wrapf(err, "hash password for %s", u.Username)
		}

		if _, err := pool.Exec(ctx, insertUserSQL, u.Username, hash, u.Role); err != nil {
			return errors.Wrapf(err, "insert user %s", u.Username)
		}

		slog.Info("inserted user", slog.String("username", u.Username), slog.String("role", u.Role))
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("inserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, insertProductSQL,
			p.Name, p.Description, p.Price, p.Quantity,
		); err != nil {
			return errors.Wrapf(err, "insert product %s", p.Name)
		}

		slog.Info("inserted product", slog.String("name", p.Name))
	}

	return nil
}
