package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lorehq/lore/internal/embed"
	"github.com/lorehq/lore/internal/types"
)

// BuildInput carries the store contents a rebuild ingests. Nil slices
// are allowed; the corresponding tables simply end up empty.
type BuildInput struct {
	Decisions    []*types.Decision
	Patterns     []*types.Pattern
	AntiPatterns []*types.AntiPattern
	Sessions     []*types.Session
	Graph        *GraphInput
}

// GraphInput mirrors the graph document for ingestion.
type GraphInput struct {
	Nodes map[string]*types.Node
	Edges []*types.Edge
}

// BuildResult summarizes one rebuild.
type BuildResult struct {
	Decisions  int `json:"decisions"`
	Patterns   int `json:"patterns"`
	Transfers  int `json:"transfers"`
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Embeddings int `json:"embeddings"`
}

// Build rebuilds the index from store contents: FTS tables are dropped
// and recreated inside one transaction, so an interrupted build leaves
// the previous index intact. Embedding backfill runs after the
// transaction and is best-effort.
func (ix *Index) Build(ctx context.Context, in BuildInput, embedder embed.Embedder) (*BuildResult, error) {
	res := &BuildResult{}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting build transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range ftsTables {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return nil, fmt.Errorf("dropping %s: %w", table, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(ftsSchemaTemplate, table)); err != nil {
			return nil, fmt.Errorf("creating %s: %w", table, err)
		}
	}

	for _, d := range in.Decisions {
		importance := 3.0
		if d.LessonLearned != "" {
			importance = 4.0
		}
		if err := insertFTS(tx, "decisions_fts", d.ID, d.SearchableText(), d.Project(), d.Timestamp, importance); err != nil {
			return nil, err
		}
		res.Decisions++
	}

	for _, p := range in.Patterns {
		importance := math.Round(p.Confidence * 5)
		if err := insertFTS(tx, "patterns_fts", p.ID, p.SearchableText(), string(p.Category), p.CreatedAt, importance); err != nil {
			return nil, err
		}
		res.Patterns++
	}
	for _, ap := range in.AntiPatterns {
		content := "ANTI: " + ap.Name + "\n" + ap.Symptom + "\n" + ap.Risk + "\n" + ap.Fix
		if err := insertFTS(tx, "patterns_fts", ap.ID, content, "", ap.CreatedAt, 2.5); err != nil {
			return nil, err
		}
		res.Patterns++
	}

	for _, sess := range in.Sessions {
		if sess.Compressed {
			continue
		}
		content := sess.Summary
		if sess.Handoff != nil {
			content += "\n" + sess.Handoff.Message
			for _, step := range sess.Handoff.NextSteps {
				content += "\n" + step
			}
		}
		if content == "" {
			continue
		}
		if err := insertFTS(tx, "transfers_fts", sess.ID, content, "", sess.StartedAt, 3.0); err != nil {
			return nil, err
		}
		res.Transfers++
	}

	if in.Graph != nil {
		if _, err := tx.Exec("DELETE FROM graph_nodes"); err != nil {
			return nil, fmt.Errorf("clearing graph nodes: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM graph_edges"); err != nil {
			return nil, fmt.Errorf("clearing graph edges: %w", err)
		}
		for id, n := range in.Graph.Nodes {
			data, _ := json.Marshal(n.Data)
			if _, err := tx.Exec(
				`INSERT INTO graph_nodes (id, type, name, data, created_at) VALUES (?, ?, ?, ?, ?)`,
				id, string(n.Type), n.Name, string(data), n.CreatedAt.Format(time.RFC3339)); err != nil {
				return nil, fmt.Errorf("inserting graph node: %w", err)
			}
			res.Nodes++
		}
		for _, e := range in.Graph.Edges {
			if e.Status != types.EdgeActive {
				continue
			}
			if err := insertEdge(tx, e.From, e.To, e.Relation, e.Weight); err != nil {
				return nil, err
			}
			res.Edges++
			// Bidirectional edges are materialized both ways so query-time
			// BFS stays a single forward scan.
			if e.Bidirectional {
				if err := insertEdge(tx, e.To, e.From, e.Relation, e.Weight); err != nil {
					return nil, err
				}
				res.Edges++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing build: %w", err)
	}

	if embedder != nil && embedder.Available(ctx) {
		n, err := ix.backfillEmbeddings(ctx, in, embedder)
		if err == nil {
			res.Embeddings = n
		}
	}
	return res, nil
}

func insertFTS(tx *sql.Tx, table, id, content, project string, ts time.Time, importance float64) error {
	_, err := tx.Exec(
		fmt.Sprintf(`INSERT INTO %s (id, content, project, created_at, importance) VALUES (?, ?, ?, ?, ?)`, table),
		id, content, project, ts.Format(time.RFC3339), importance)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

func insertEdge(tx *sql.Tx, from, to string, relation types.Relation, weight float64) error {
	_, err := tx.Exec(
		`INSERT INTO graph_edges (from_id, to_id, relation, weight) VALUES (?, ?, ?, ?)`,
		from, to, string(relation), weight)
	if err != nil {
		return fmt.Errorf("inserting graph edge: %w", err)
	}
	return nil
}

// backfillEmbeddings computes vectors for indexed records that lack one.
// Each call is bounded by the embedder's own timeout; the first failure
// stops the pass since the provider is likely down.
func (ix *Index) backfillEmbeddings(ctx context.Context, in BuildInput, embedder embed.Embedder) (int, error) {
	type record struct {
		typ, id, text string
	}
	var records []record
	for _, d := range in.Decisions {
		records = append(records, record{"decision", d.ID, d.SearchableText()})
	}
	for _, p := range in.Patterns {
		records = append(records, record{"pattern", p.ID, p.SearchableText()})
	}

	count := 0
	for _, r := range records {
		var exists int
		err := ix.db.QueryRowContext(ctx,
			`SELECT 1 FROM embeddings WHERE record_type = ? AND record_id = ?`, r.typ, r.id).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return count, err
		}
		vec, err := embedder.Embed(ctx, r.text)
		if err != nil {
			return count, err
		}
		if _, err := ix.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO embeddings (record_type, record_id, content_text, embedding, dim, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.typ, r.id, r.text, encodeVector(vec), len(vec), time.Now().UTC().Format(time.RFC3339)); err != nil {
			return count, fmt.Errorf("storing embedding: %w", err)
		}
		count++
	}
	return count, nil
}

// encodeVector packs float32s little-endian for BLOB storage.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a BLOB back into float32s.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
