/*
Package sqlitegraph is the local code-graph backend: a SQLite database of
code entities and their relations, built by the indexer and queried through
the graph.Service interface.
*/
package sqlitegraph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"brdgen/internal/brd"
	"brdgen/internal/graph"
)

// scanCap bounds how many rows a regex search will examine before giving up.
// Pattern matching happens Go-side because SQLite has no regexp by default.
const scanCap = 5000

// Store is a SQLite-backed graph.Service plus the write surface the indexer
// uses to populate it.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the graph database at dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create graph directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open graph database: %w", err)
	}
	// One writer at a time; the indexer is the only writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle, applying the schema. Used by
// tests with in-memory databases.
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	label          TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	start_line     INTEGER NOT NULL DEFAULT 0,
	end_line       INTEGER NOT NULL DEFAULT 0,
	signature      TEXT NOT NULL DEFAULT '',
	UNIQUE(qualified_name, file_path)
);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
CREATE INDEX IF NOT EXISTS idx_entities_label ON entities(label);
CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_path);

CREATE TABLE IF NOT EXISTS relations (
	from_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	to_id   INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	kind    TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id, kind)
);
CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply graph schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// === Write surface (indexer) ===

// Entity is the write-side row shape.
type Entity struct {
	Name          string
	QualifiedName string
	Label         string
	FilePath      string
	StartLine     int
	EndLine       int
	Signature     string
}

// UpsertEntity inserts or refreshes an entity keyed on
// (qualified_name, file_path) and returns its row ID.
func (s *Store) UpsertEntity(ctx context.Context, e Entity) (int64, error) {
	const q = `
INSERT INTO entities (name, qualified_name, label, file_path, start_line, end_line, signature)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(qualified_name, file_path) DO UPDATE SET
	name = excluded.name,
	label = excluded.label,
	start_line = excluded.start_line,
	end_line = excluded.end_line,
	signature = excluded.signature
RETURNING id`
	var id int64
	if err := s.db.QueryRowContext(ctx, q,
		e.Name, e.QualifiedName, e.Label, e.FilePath, e.StartLine, e.EndLine, e.Signature,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert entity %s: %w", e.QualifiedName, err)
	}
	return id, nil
}

// AddRelation records a typed edge between two entities. Duplicate edges are
// ignored.
func (s *Store) AddRelation(ctx context.Context, fromID, toID int64, kind string) error {
	const q = `INSERT OR IGNORE INTO relations (from_id, to_id, kind) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, fromID, toID, kind); err != nil {
		return fmt.Errorf("add relation: %w", err)
	}
	return nil
}

// DeleteByFile removes all entities (and their relations) sourced from one
// file, ahead of re-indexing it.
func (s *Store) DeleteByFile(ctx context.Context, filePath string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM relations WHERE from_id IN (SELECT id FROM entities WHERE file_path = ?)
		    OR to_id IN (SELECT id FROM entities WHERE file_path = ?)`,
		filePath, filePath); err != nil {
		return fmt.Errorf("delete relations for %s: %w", filePath, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("delete entities for %s: %w", filePath, err)
	}
	return nil
}

// Clear wipes the whole graph.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM relations`); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}
	return nil
}

// EntityCount reports how many entities the graph holds.
func (s *Store) EntityCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n)
	return n, err
}

// === graph.Service ===

// FindEntities returns entities whose name or qualified name contains the
// given substring, case-insensitive.
func (s *Store) FindEntities(ctx context.Context, nameContains string, limit int) ([]graph.Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(nameContains) + "%"
	const q = `
SELECT name, qualified_name, label, file_path, start_line, end_line
FROM entities
WHERE name LIKE ? ESCAPE '\' COLLATE NOCASE
   OR qualified_name LIKE ? ESCAPE '\' COLLATE NOCASE
ORDER BY length(name), name
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("find entities %q: %w", nameContains, err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntities(rows)
}

// SearchEntities matches a case-insensitive regular expression against
// entity names. Rows are filtered Go-side, bounded by scanCap.
func (s *Store) SearchEntities(ctx context.Context, pattern string, limit int) ([]graph.Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	const q = `
SELECT name, qualified_name, label, file_path, start_line, end_line
FROM entities ORDER BY id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, scanCap)
	if err != nil {
		return nil, fmt.Errorf("search entities %q: %w", pattern, err)
	}
	defer func() { _ = rows.Close() }()

	var out []graph.Entity
	for rows.Next() {
		var e graph.Entity
		if err := rows.Scan(&e.Name, &e.QualifiedName, &e.Label, &e.FilePath, &e.StartLine, &e.EndLine); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if re.MatchString(e.Name) || re.MatchString(e.QualifiedName) {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, rows.Err()
}

// Components lists module-level entities in discovery order. Dependencies and
// dependents are left to Neighbors so listing stays cheap.
func (s *Store) Components(ctx context.Context, limit int) ([]brd.Component, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT name, label, file_path FROM entities
WHERE label IN ('module', 'package') ORDER BY id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []brd.Component
	for rows.Next() {
		var c brd.Component
		if err := rows.Scan(&c.Name, &c.Kind, &c.Path); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Neighbors returns names this entity depends on and names depending on it,
// across all relation kinds.
func (s *Store) Neighbors(ctx context.Context, name string, limit int) ([]string, []string, error) {
	if limit <= 0 {
		limit = 20
	}
	deps, err := s.neighborNames(ctx, name, true, limit)
	if err != nil {
		return nil, nil, err
	}
	dependents, err := s.neighborNames(ctx, name, false, limit)
	if err != nil {
		return nil, nil, err
	}
	return deps, dependents, nil
}

func (s *Store) neighborNames(ctx context.Context, name string, outgoing bool, limit int) ([]string, error) {
	q := `
SELECT DISTINCT e2.name FROM entities e1
JOIN relations r ON r.from_id = e1.id
JOIN entities e2 ON e2.id = r.to_id
WHERE e1.name = ? LIMIT ?`
	if !outgoing {
		q = `
SELECT DISTINCT e2.name FROM entities e1
JOIN relations r ON r.to_id = e1.id
JOIN entities e2 ON e2.id = r.from_id
WHERE e1.name = ? LIMIT ?`
	}
	rows, err := s.db.QueryContext(ctx, q, name, limit)
	if err != nil {
		return nil, fmt.Errorf("neighbors of %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Schema reports the distinct labels and relation kinds present in the graph.
func (s *Store) Schema(ctx context.Context) (brd.SchemaInfo, error) {
	var info brd.SchemaInfo
	labels, err := s.distinct(ctx, `SELECT DISTINCT label FROM entities ORDER BY label`)
	if err != nil {
		return info, fmt.Errorf("graph schema labels: %w", err)
	}
	kinds, err := s.distinct(ctx, `SELECT DISTINCT kind FROM relations ORDER BY kind`)
	if err != nil {
		return info, fmt.Errorf("graph schema relation kinds: %w", err)
	}
	info.NodeLabels = labels
	info.RelationshipTypes = kinds
	return info, nil
}

// FeatureNames returns function/method/class names matching any term,
// deduplicated, for similar-feature discovery.
func (s *Store) FeatureNames(ctx context.Context, terms []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	seen := make(map[string]bool)
	var out []string
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		const q = `
SELECT DISTINCT name FROM entities
WHERE label IN ('function', 'method', 'class', 'interface')
  AND name LIKE ? ESCAPE '\' COLLATE NOCASE
LIMIT ?`
		rows, err := s.db.QueryContext(ctx, q, "%"+escapeLike(term)+"%", limit)
		if err != nil {
			return nil, fmt.Errorf("feature names %q: %w", term, err)
		}
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				_ = rows.Close()
				return nil, err
			}
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
		if len(out) >= limit {
			return out[:limit], nil
		}
	}
	return out, nil
}

func (s *Store) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanEntities(rows *sql.Rows) ([]graph.Entity, error) {
	var out []graph.Entity
	for rows.Next() {
		var e graph.Entity
		if err := rows.Scan(&e.Name, &e.QualifiedName, &e.Label, &e.FilePath, &e.StartLine, &e.EndLine); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
