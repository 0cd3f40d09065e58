// Package storage persists catalog records in a SQL database.
//
// One table holds typed columns for the known fields and a JSON column for the
// sparse attributes copied from the catalog payload. SQLite is the default
// backend; PostgreSQL is available for shared deployments.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reelscout/backend/internal/domain"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

const schema = `
CREATE TABLE IF NOT EXISTS movies (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    attributes TEXT NOT NULL DEFAULT '{}',
    critics_score INTEGER,
    audience_score INTEGER,
    critics_consensus TEXT,
    score INTEGER
)`

// CatalogStore implements domain.CatalogRepository over database/sql.
type CatalogStore struct {
	db      *sql.DB
	dialect dialect
}

var _ domain.CatalogRepository = (*CatalogStore)(nil)

func newCatalogStore(ctx context.Context, db *sql.DB, d dialect) (*CatalogStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create movies table: %w", err)
	}
	return &CatalogStore{db: db, dialect: d}, nil
}

// Close closes the underlying database connection.
func (s *CatalogStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *CatalogStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetByID loads the record for id, or returns domain.ErrMovieNotFound.
func (s *CatalogStore) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
        SELECT id, title, attributes, critics_score, audience_score, critics_consensus, score
        FROM movies WHERE id = ?`), id)

	var (
		m         domain.Movie
		attrs     string
		critics   sql.NullInt64
		audience  sql.NullInt64
		consensus sql.NullString
		score     sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.Title, &attrs, &critics, &audience, &consensus, &score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie %s: %w", id, err)
	}

	m.Attributes = domain.NewAttributes()
	if attrs == "" {
		attrs = "{}"
	}
	if err := json.Unmarshal([]byte(attrs), m.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes of movie %s: %w", id, err)
	}
	m.CriticsScore = intPtr(critics)
	m.AudienceScore = intPtr(audience)
	if consensus.Valid {
		c := consensus.String
		m.CriticsConsensus = &c
	}
	m.Score = intPtr(score)
	return &m, nil
}

// Put inserts or replaces the record.
func (s *CatalogStore) Put(ctx context.Context, movie *domain.Movie) error {
	if movie == nil || movie.ID == "" {
		return fmt.Errorf("%w: movie id required", domain.ErrInvalidRequest)
	}

	attrs := []byte("{}")
	if movie.Attributes != nil {
		encoded, err := json.Marshal(movie.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes of movie %s: %w", movie.ID, err)
		}
		attrs = encoded
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
        INSERT INTO movies (id, title, attributes, critics_score, audience_score, critics_consensus, score)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            title = excluded.title,
            attributes = excluded.attributes,
            critics_score = excluded.critics_score,
            audience_score = excluded.audience_score,
            critics_consensus = excluded.critics_consensus,
            score = excluded.score`),
		movie.ID,
		movie.Title,
		string(attrs),
		nullableInt(movie.CriticsScore),
		nullableInt(movie.AudienceScore),
		nullableString(movie.CriticsConsensus),
		nullableInt(movie.Score),
	)
	if err != nil {
		return fmt.Errorf("put movie %s: %w", movie.ID, err)
	}
	return nil
}

// DeleteByID removes the record; deleting an absent id is not an error.
func (s *CatalogStore) DeleteByID(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM movies WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete movie %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *CatalogStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
