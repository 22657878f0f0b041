package infra_pg_init

import (
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/humanbelnik/soundbyte/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

func EstablishConn(cfg config.Postgres) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres connect %s:%s/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	slog.Info("postgres connected", "host", cfg.Host, "db", cfg.DBName)
	return db, nil
}

func MustEstablishConn(cfg config.Postgres) *sqlx.DB {
	db, err := EstablishConn(cfg)
	if err != nil {
		log.Fatal(err)
	}
	return db
}
