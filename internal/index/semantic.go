package index

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lorehq/lore/internal/embed"
)

// Semantic embeds the query and ranks every stored vector by cosine
// similarity. The scan is O(n), which is fine at journal scale; vectors
// whose dimension differs from the query's simply score zero.
func (ix *Index) Semantic(ctx context.Context, embedder embed.Embedder, query string, limit int) ([]Result, error) {
	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx,
		`SELECT record_type, record_id, content_text, embedding, created_at FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("reading embeddings: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var blob []byte
		var createdAt string
		if err := rows.Scan(&r.Type, &r.ID, &r.Content, &blob, &createdAt); err != nil {
			return nil, err
		}
		r.Timestamp, _ = time.Parse(time.RFC3339, createdAt)
		r.Score = embed.Cosine(queryVec, decodeVector(blob))
		if r.Score > 0 {
			results = append(results, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	ix.logAccess(ctx, results)
	return results, nil
}
