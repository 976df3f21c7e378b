// Package store persists resolved entities and their references in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/phobologic/refscan/internal/model"
)

// Store is a SQLite database holding one snapshot per repository.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY,
	repo TEXT NOT NULL,
	kind TEXT NOT NULL,
	file_path TEXT NOT NULL,
	name TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	line INTEGER NOT NULL,
	source_code TEXT NOT NULL,
	docstring TEXT NOT NULL,
	parent_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_repo ON entities(repo);
CREATE INDEX IF NOT EXISTS idx_entities_qualified ON entities(qualified_name);

CREATE TABLE IF NOT EXISTS refs (
	entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY (entity_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_refs_file ON refs(file);
`

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save replaces the stored snapshot of idx.Repository with idx's entities,
// in a single transaction.
func (s *Store) Save(ctx context.Context, idx *model.Index) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM entities WHERE repo = ?", idx.Repository); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}

	entStmt, err := tx.PrepareContext(ctx, `INSERT INTO entities
		(repo, kind, file_path, name, qualified_name, line, source_code, docstring, parent_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer entStmt.Close()

	refStmt, err := tx.PrepareContext(ctx, `INSERT INTO refs
		(entity_id, seq, kind, file, line, col, text)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing reference insert: %w", err)
	}
	defer refStmt.Close()

	for i := range idx.Entities {
		e := &idx.Entities[i]
		res, err := entStmt.ExecContext(ctx,
			idx.Repository, string(e.Kind), e.Path, e.Name, e.QualifiedName(),
			e.Line, e.Source, e.Docstring, e.ParentName)
		if err != nil {
			return fmt.Errorf("inserting entity %s: %w", e.QualifiedName(), err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("entity id: %w", err)
		}
		for seq, r := range e.References {
			if _, err := refStmt.ExecContext(ctx, id, seq, string(r.Kind), r.File, r.Line, r.Column, r.Text); err != nil {
				return fmt.Errorf("inserting reference to %s: %w", e.QualifiedName(), err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Entities returns the stored entities of repo with their references, in
// insertion order.
func (s *Store) Entities(ctx context.Context, repo string) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, file_path, name, line, source_code, docstring, parent_name
		FROM entities WHERE repo = ? ORDER BY id`, repo)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var (
		entities []model.Entity
		ids      []int64
	)
	for rows.Next() {
		var (
			id   int64
			kind string
			e    = model.Entity{Repository: repo}
		)
		if err := rows.Scan(&id, &kind, &e.Path, &e.Name, &e.Line, &e.Source, &e.Docstring, &e.ParentName); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e.Kind = model.EntityKind(kind)
		entities = append(entities, e)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		refs, err := s.references(ctx, id)
		if err != nil {
			return nil, err
		}
		entities[i].References = refs
	}
	return entities, nil
}

// ReferencesTo returns the references of every stored entity with the given
// qualified name.
func (s *Store) ReferencesTo(ctx context.Context, qualifiedName string) ([]model.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.kind, r.file, r.line, r.col, r.text
		FROM refs r JOIN entities e ON e.id = r.entity_id
		WHERE e.qualified_name = ? ORDER BY e.id, r.seq`, qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

func (s *Store) references(ctx context.Context, entityID int64) ([]model.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, file, line, col, text
		FROM refs WHERE entity_id = ? ORDER BY seq`, entityID)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

func scanReferences(rows *sql.Rows) ([]model.Reference, error) {
	var refs []model.Reference
	for rows.Next() {
		var (
			r    model.Reference
			kind string
		)
		if err := rows.Scan(&kind, &r.File, &r.Line, &r.Column, &r.Text); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		r.Kind = model.ReferenceKind(kind)
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
