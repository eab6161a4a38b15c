package db

import (
	"context"
	"database/sql"
	"embed"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"payment-webhook-service/internal/config"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// GetConnStr injects the privileged credential into the configured store URL.
func GetConnStr(cfg config.Database) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", errors.Wrap(err, "parse database url")
	}
	u.User = url.UserPassword(cfg.User, cfg.Password)
	return u.String(), nil
}

func RunMigrations(connStr string) error {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return errors.Wrap(err, "open migration connection")
	}
	defer db.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return errors.Wrap(goose.Up(db, "migrations"), "apply migrations")
}

func GetPool(connStr string, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, errors.Wrap(err, "parse pool config")
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	return dbpool, nil
}
