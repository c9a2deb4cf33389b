package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yamafs/treefs/internal/logger"
	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/store"
)

// transaction wraps an open pgx.Tx for the transaction-handoff pattern:
// Begin* opens the transaction and runs the mutating statement inside it,
// then hands the still-open transaction to the caller, who explicitly
// commits or rolls it back once any accompanying blob I/O has settled.
type transaction struct {
	tx pgx.Tx
}

func (t *transaction) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return mapPgError(err, "")
	}
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return mapPgError(err, "")
	}
	return nil
}

// BeginAdd inserts the new file row and its full ancestor closure (the
// self edge plus one edge per ancestor of parent) in a single compound
// statement.
func (s *Store) BeginAdd(ctx context.Context, parent treefs.FileID, name string, typ treefs.FileType, owner treefs.UserID) (treefs.FileID, store.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return treefs.Nil, nil, mapPgError(err, name)
	}

	id := treefs.NewFileID()
	const stmt = `
WITH new_file AS (
	INSERT INTO files (id, type, owner_id, own_name)
	VALUES ($1, $2, $3, $4)
	RETURNING id
),
self_edge AS (
	INSERT INTO file_ancestors_file_descendants (ancestor_id, descendant_id, descendant_path, descendant_depth)
	SELECT id, id, '.', 0 FROM new_file
)
INSERT INTO file_ancestors_file_descendants (ancestor_id, descendant_id, descendant_path, descendant_depth)
SELECT fd.ancestor_id, nf.id,
       CASE WHEN fd.descendant_path = '.' THEN $4 ELSE fd.descendant_path || '/' || $4 END,
       fd.descendant_depth + 1
FROM file_ancestors_file_descendants fd, new_file nf
WHERE fd.descendant_id = $5`

	if _, err := tx.Exec(ctx, stmt, id, typ, owner, name, parent); err != nil {
		_ = tx.Rollback(ctx)
		return treefs.Nil, nil, mapPgError(err, name)
	}

	return id, &transaction{tx: tx}, nil
}

// BeginMove rewrites every closure edge whose descendant lies in id's
// subtree to reflect reparenting under newParent as newName, in a single
// compound statement, joining paths with "."-elision (the same four cases
// as the badger and memory backends). The
// cycle check (newParent must not be id or a descendant of id) runs first
// as a guard query within the same transaction.
func (s *Store) BeginMove(ctx context.Context, id, newParent treefs.FileID, newName string) (store.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err, newName)
	}

	var isDescendant bool
	const guard = `SELECT EXISTS(
		SELECT 1 FROM file_ancestors_file_descendants
		WHERE ancestor_id = $1 AND descendant_id = $2)`
	if err := tx.QueryRow(ctx, guard, id, newParent).Scan(&isDescendant); err != nil {
		_ = tx.Rollback(ctx)
		return nil, mapPgError(err, newName)
	}
	if isDescendant {
		_ = tx.Rollback(ctx)
		return nil, treefs.NewInvalidMoveError("destination is inside the moved subtree", newName)
	}

	const stmt = `
WITH old_parent AS (
	SELECT ancestor_id FROM file_ancestors_file_descendants
	WHERE descendant_id = $1 AND descendant_depth = 1
),
detach AS (
	DELETE FROM file_ancestors_file_descendants fd
	USING file_ancestors_file_descendants moved
	WHERE moved.ancestor_id = $1
	  AND fd.descendant_id = moved.descendant_id
	  AND fd.ancestor_id NOT IN (SELECT descendant_id FROM file_ancestors_file_descendants WHERE ancestor_id = $1)
),
reattach AS (
	INSERT INTO file_ancestors_file_descendants (ancestor_id, descendant_id, descendant_path, descendant_depth)
	SELECT na.ancestor_id, moved.descendant_id,
	       CASE
	           WHEN na.descendant_path = '.' AND moved.descendant_path = '.' THEN $3
	           WHEN na.descendant_path = '.' THEN $3 || '/' || moved.descendant_path
	           WHEN moved.descendant_path = '.' THEN na.descendant_path || '/' || $3
	           ELSE na.descendant_path || '/' || $3 || '/' || moved.descendant_path
	       END,
	       na.descendant_depth + 1 + moved.descendant_depth
	FROM file_ancestors_file_descendants na
	JOIN file_ancestors_file_descendants moved ON moved.ancestor_id = $1
	WHERE na.descendant_id = $2
	ON CONFLICT (ancestor_id, descendant_id) DO UPDATE
	   SET descendant_path = EXCLUDED.descendant_path, descendant_depth = EXCLUDED.descendant_depth
)
UPDATE files SET own_name = $3 WHERE id = $1`

	if _, err := tx.Exec(ctx, stmt, id, newParent, newName); err != nil {
		_ = tx.Rollback(ctx)
		return nil, mapPgError(err, newName)
	}

	return &transaction{tx: tx}, nil
}

// BeginRemove cascade-deletes id and every descendant transitively
// rooted at it in one statement: the CTE selects id's full descendant
// set (which includes id itself via its self edge) from the closure
// table, and the DELETE ... WHERE id IN (...) RETURNING both performs
// the cascade and reports which files were removed, for blob cleanup.
// The REFERENCES ... ON DELETE CASCADE on file_ancestors_file_descendants
// and file_shares then drops every edge and share mentioning a removed
// id as part of deleting its files row; no descendant of a removed id
// can lie outside the selected set, since the closure is transitive.
func (s *Store) BeginRemove(ctx context.Context, id treefs.FileID) ([]treefs.File, store.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, mapPgError(err, id.String())
	}

	const stmt = `
WITH removed AS (
	SELECT descendant_id AS id FROM file_ancestors_file_descendants WHERE ancestor_id = $1
)
DELETE FROM files
WHERE id IN (SELECT id FROM removed)
RETURNING id, type, owner_id, own_name, created_at`

	rows, err := tx.Query(ctx, stmt, id)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, nil, mapPgError(err, id.String())
	}

	var removed []treefs.File
	for rows.Next() {
		var f treefs.File
		var ownName *string
		if err := rows.Scan(&f.ID, &f.Type, &f.OwnerID, &ownName, &f.CreatedAt); err != nil {
			rows.Close()
			_ = tx.Rollback(ctx)
			return nil, nil, mapPgError(err, id.String())
		}
		if ownName != nil {
			f.OwnName = *ownName
		}
		removed = append(removed, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		_ = tx.Rollback(ctx)
		return nil, nil, mapPgError(err, id.String())
	}
	rows.Close()

	if len(removed) == 0 {
		_ = tx.Rollback(ctx)
		return nil, nil, treefs.NewNotFoundError(id.String())
	}

	return removed, &transaction{tx: tx}, nil
}

// BeginShare inserts a file share grant as a new row: repeat shares to
// the same (file_id, user_id) accumulate rather than overwrite, since
// idempotence across different created_by values is not guaranteed.
func (s *Store) BeginShare(ctx context.Context, share treefs.FileShare) (store.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err, share.FileID.String())
	}

	const stmt = `
INSERT INTO file_shares (id, file_id, user_id, kind, created_by)
VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, stmt, uuid.New(), share.FileID, share.UserID, share.Kind, share.CreatedBy); err != nil {
		_ = tx.Rollback(ctx)
		return nil, mapPgError(err, share.FileID.String())
	}

	logger.Debug("share transaction opened", "file_id", share.FileID.String(), "user_id", share.UserID.String())
	return &transaction{tx: tx}, nil
}
