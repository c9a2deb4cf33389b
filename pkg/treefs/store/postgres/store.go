// Package postgres is the primary Closure Store backend, grounded on the
// teacher's pgx-based metadata store (pool construction, StoreError
// mapping, pgx.Tx transaction handling) but built over the closure-table
// schema of SPEC_FULL.md §6.2 rather than the teacher's flat
// parent_child_map table.
package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yamafs/treefs/internal/logger"
	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/store"
)

// Config configures the Postgres Closure Store.
type Config struct {
	DSN      string
	MaxConns int32
}

// Store is the Postgres-backed Closure Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New opens a connection pool against cfg.DSN. It does not create the
// schema; see Schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, logger: logger.With("component", "closure_store_postgres")}, nil
}

var _ store.Store = (*Store)(nil)

// mapPgError translates a pgx/pgconn error into the *treefs.Error
// taxonomy, grounded on the teacher's error-mapping convention.
func mapPgError(err error, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return treefs.NewNotFoundError(path)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return treefs.NewAlreadyExistsError(path)
		case "23503": // foreign_key_violation
			return treefs.NewNotFoundError(path)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			// The Tree Engine does not retry (SPEC_FULL.md §7): a
			// transient conflict surfaces as a conflict to the caller.
			return treefs.NewAlreadyExistsError(path)
		}
	}
	return treefs.NewIOError(err.Error())
}

func (s *Store) GetFile(ctx context.Context, id treefs.FileID) (*treefs.File, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, type, owner_id, own_name, created_at FROM files WHERE id = $1`, id)

	var f treefs.File
	var ownName *string
	var createdAt time.Time
	if err := row.Scan(&f.ID, &f.Type, &f.OwnerID, &ownName, &createdAt); err != nil {
		return nil, mapPgError(err, id.String())
	}
	if ownName != nil {
		f.OwnName = *ownName
	}
	f.CreatedAt = createdAt
	return &f, nil
}

func (s *Store) Ancestors(ctx context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error) {
	return s.queryEdges(ctx,
		`SELECT ancestor_id, descendant_id, descendant_path, descendant_depth
		 FROM file_ancestors_file_descendants WHERE descendant_id = $1`, id)
}

func (s *Store) Descendants(ctx context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error) {
	return s.queryEdges(ctx,
		`SELECT ancestor_id, descendant_id, descendant_path, descendant_depth
		 FROM file_ancestors_file_descendants WHERE ancestor_id = $1`, id)
}

func (s *Store) queryEdges(ctx context.Context, sql string, id treefs.FileID) ([]treefs.ClosureEdge, error) {
	rows, err := s.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, mapPgError(err, id.String())
	}
	defer rows.Close()

	var out []treefs.ClosureEdge
	for rows.Next() {
		var e treefs.ClosureEdge
		if err := rows.Scan(&e.AncestorID, &e.DescendantID, &e.DescendantPath, &e.DescendantDepth); err != nil {
			return nil, mapPgError(err, id.String())
		}
		out = append(out, e)
	}
	return out, mapPgError(rows.Err(), id.String())
}

func (s *Store) Child(ctx context.Context, parent treefs.FileID, name string) (treefs.ClosureEdge, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT ancestor_id, descendant_id, descendant_path, descendant_depth
		 FROM file_ancestors_file_descendants
		 WHERE ancestor_id = $1 AND descendant_path = $2 AND descendant_depth = 1`, parent, name)

	var e treefs.ClosureEdge
	if err := row.Scan(&e.AncestorID, &e.DescendantID, &e.DescendantPath, &e.DescendantDepth); err != nil {
		return treefs.ClosureEdge{}, mapPgError(err, name)
	}
	return e, nil
}

func (s *Store) Parent(ctx context.Context, id treefs.FileID) (treefs.ClosureEdge, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT ancestor_id, descendant_id, descendant_path, descendant_depth
		 FROM file_ancestors_file_descendants
		 WHERE descendant_id = $1 AND descendant_depth = 1`, id)

	var e treefs.ClosureEdge
	if err := row.Scan(&e.AncestorID, &e.DescendantID, &e.DescendantPath, &e.DescendantDepth); err != nil {
		return treefs.ClosureEdge{}, mapPgError(err, id.String())
	}
	return e, nil
}

func (s *Store) SharesOn(ctx context.Context, id treefs.FileID) ([]treefs.FileShare, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT file_id, user_id, kind, created_by, created_at FROM file_shares WHERE file_id = $1`, id)
	if err != nil {
		return nil, mapPgError(err, id.String())
	}
	defer rows.Close()

	var out []treefs.FileShare
	for rows.Next() {
		var sh treefs.FileShare
		if err := rows.Scan(&sh.FileID, &sh.UserID, &sh.Kind, &sh.CreatedBy, &sh.CreatedAt); err != nil {
			return nil, mapPgError(err, id.String())
		}
		out = append(out, sh)
	}
	return out, mapPgError(rows.Err(), id.String())
}

func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
