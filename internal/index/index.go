// Package index maintains the SQLite search index: FTS5 tables over
// decisions, patterns, and session transfers, an access log driving
// reinforcement boosts, optional embedding vectors, and a mirrored copy
// of the knowledge graph for query-time expansion.
//
// The index is a derived artifact. The JSONL/YAML/JSON stores remain the
// source of truth; build is an idempotent rebuild and queries against a
// stale index are tolerated.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/lorehq/lore/internal/paths"
)

// Index wraps the search database.
type Index struct {
	db   *sql.DB
	root *paths.Root
}

const schema = `
CREATE TABLE IF NOT EXISTS access_log (
	record_type TEXT NOT NULL,
	record_id   TEXT NOT NULL,
	accessed_at TEXT NOT NULL,
	PRIMARY KEY (record_type, record_id, accessed_at)
);

CREATE TABLE IF NOT EXISTS embeddings (
	record_type  TEXT NOT NULL,
	record_id    TEXT NOT NULL,
	content_text TEXT NOT NULL,
	embedding    BLOB NOT NULL,
	dim          INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (record_type, record_id)
);

CREATE TABLE IF NOT EXISTS graph_nodes (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       TEXT,
	created_at TEXT
);

CREATE TABLE IF NOT EXISTS graph_edges (
	from_id  TEXT NOT NULL,
	to_id    TEXT NOT NULL,
	relation TEXT NOT NULL,
	weight   REAL NOT NULL DEFAULT 1.0
);
CREATE INDEX IF NOT EXISTS idx_graph_edges_from ON graph_edges(from_id);
CREATE INDEX IF NOT EXISTS idx_graph_edges_to ON graph_edges(to_id);
`

// ftsTables are dropped and recreated on every build.
var ftsTables = []string{"decisions_fts", "patterns_fts", "transfers_fts"}

const ftsSchemaTemplate = `
CREATE VIRTUAL TABLE %s USING fts5(
	id UNINDEXED,
	content,
	project UNINDEXED,
	created_at UNINDEXED,
	importance UNINDEXED
)`

// Open opens (creating if needed) the search database at the data root.
func Open(root *paths.Root) (*Index, error) {
	db, err := sql.Open("sqlite3", "file:"+root.SearchDB())
	if err != nil {
		return nil, fmt.Errorf("opening search db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing search schema: %w", err)
	}
	return &Index{db: db, root: root}, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// HasFTS reports whether the FTS tables exist, i.e. build has run at
// least once.
func (ix *Index) HasFTS() bool {
	var name string
	err := ix.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='decisions_fts'`).Scan(&name)
	return err == nil
}
