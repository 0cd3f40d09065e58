package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// OpenPostgres connects to the catalog database described by dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*CatalogStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	store, err := newCatalogStore(ctx, db, dialectPostgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
