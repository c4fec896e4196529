// Package store persists the externally visible state of the package
// index — name, raw field strings, and feature values — in PostgreSQL.
// The search engine itself is a live in-memory structure; on startup the
// stored packages are replayed into it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine"
	"github.com/mfeineis/elm-advanced-package-search/pkg/config"
	apperrors "github.com/mfeineis/elm-advanced-package-search/pkg/errors"
)

// Package is one documentation entry as served and persisted.
type Package struct {
	Name        string    `json:"name"`
	Synopsis    string    `json:"synopsis"`
	Description string    `json:"description"`
	Stars       float64   `json:"stars"`
	Downloads   float64   `json:"downloads"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FieldValues maps the package onto the engine's field ordinals by field
// name. Schema fields with no corresponding column index as empty.
func (p Package) FieldValues(s *engine.Schema) []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		switch f.Name {
		case "name":
			out[i] = p.Name
		case "synopsis":
			out[i] = p.Synopsis
		case "description":
			out[i] = p.Description
		}
	}
	return out
}

// FeatureValues maps the package onto the engine's feature ordinals by
// feature name. Unknown features index as zero.
func (p Package) FeatureValues(s *engine.Schema) []float32 {
	out := make([]float32, len(s.Features))
	for i, f := range s.Features {
		switch f.Name {
		case "stars":
			out[i] = float32(p.Stars)
		case "downloads":
			out[i] = float32(p.Downloads)
		}
	}
	return out
}

// Store reads and writes package records over its own connection pool.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to PostgreSQL and verifies the connection with a ping.
func Open(cfg config.PostgresConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "package-store"),
	}, nil
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the packages table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS packages (
			name        TEXT PRIMARY KEY,
			synopsis    TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			stars       DOUBLE PRECISION NOT NULL DEFAULT 0,
			downloads   DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("creating packages table: %w", err)
	}
	return nil
}

// Save upserts a package record.
func (s *Store) Save(ctx context.Context, p Package) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (name, synopsis, description, stars, downloads, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (name) DO UPDATE SET
			synopsis = EXCLUDED.synopsis,
			description = EXCLUDED.description,
			stars = EXCLUDED.stars,
			downloads = EXCLUDED.downloads,
			updated_at = NOW()`,
		p.Name, p.Synopsis, p.Description, p.Stars, p.Downloads,
	)
	if err != nil {
		return fmt.Errorf("saving package %s: %w", p.Name, err)
	}
	return nil
}

// Delete removes a package record. It reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("deleting package %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting package %s: %w", name, err)
	}
	return n > 0, nil
}

// Get fetches a single package by name.
func (s *Store) Get(ctx context.Context, name string) (Package, error) {
	var p Package
	err := s.db.QueryRowContext(ctx, `
		SELECT name, synopsis, description, stars, downloads, updated_at
		FROM packages WHERE name = $1`, name,
	).Scan(&p.Name, &p.Synopsis, &p.Description, &p.Stars, &p.Downloads, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return Package{}, apperrors.ErrPackageNotFound
	}
	if err != nil {
		return Package{}, fmt.Errorf("fetching package %s: %w", name, err)
	}
	return p, nil
}

// List returns a page of packages ordered by name, plus the total count.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Package, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting packages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, synopsis, description, stars, downloads, updated_at
		FROM packages ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing packages: %w", err)
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.Name, &p.Synopsis, &p.Description, &p.Stars, &p.Downloads, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning package row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listing packages: %w", err)
	}
	return out, total, nil
}

// Replay streams every stored package into fn, used to rebuild the
// in-memory index at startup.
func (s *Store) Replay(ctx context.Context, fn func(Package) error) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, synopsis, description, stars, downloads, updated_at
		FROM packages ORDER BY name`)
	if err != nil {
		return 0, fmt.Errorf("reading packages for replay: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.Name, &p.Synopsis, &p.Description, &p.Stars, &p.Downloads, &p.UpdatedAt); err != nil {
			return n, fmt.Errorf("scanning package row: %w", err)
		}
		if err := fn(p); err != nil {
			return n, fmt.Errorf("replaying package %s: %w", p.Name, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("reading packages for replay: %w", err)
	}
	s.logger.Info("package replay complete", "packages", n)
	return n, nil
}
