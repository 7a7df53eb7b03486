package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Result is one scored hit from any query mode.
type Result struct {
	Type      string    `json:"type"` // decision | pattern | transfer | node
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Project   string    `json:"project,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// Title returns the first line of the content, capped for display.
func (r Result) Title(max int) string {
	title := r.Content
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if len(title) > max {
		title = title[:max]
	}
	return title
}

// Compact renders the fixed-width line used by auto-injection:
// [type] id | title | project | date | score.
func (r Result) Compact() string {
	return fmt.Sprintf("[%s] %s | %s | %s | %s | %.2f",
		r.Type, r.ID, r.Title(40), r.Project, r.Timestamp.Format("2006-01-02"), r.Score)
}

// The ranking factors compose multiplicatively onto the BM25 base. Order
// and weights are part of the public contract; each factor is its own
// function so tuning stays visible in tests.

// TemporalDecay halves relevance roughly every month of record age.
func TemporalDecay(daysSince float64) float64 {
	if daysSince < 0 {
		daysSince = 0
	}
	return 1 / (1 + daysSince/30)
}

// FreqBoost rewards records that keep showing up in results.
func FreqBoost(accessCount int) float64 {
	return 1 + math.Log(1+float64(accessCount))*0.15
}

// ImportanceBoost scales by the record's stored importance (0-5 range).
func ImportanceBoost(importance float64) float64 {
	return 1 + importance/5*0.2
}

// AccessRecencyBoost gives a small nudge to recently-retrieved records.
func AccessRecencyBoost(daysSinceAccess float64) float64 {
	if daysSinceAccess < 0 {
		daysSinceAccess = 0
	}
	return 1 + 0.1*math.Exp(-daysSinceAccess/30)
}

// ProjectBoost favors records from the query's own project.
func ProjectBoost(recordProject, queryProject string) float64 {
	if queryProject != "" && recordProject == queryProject {
		return 1.5
	}
	return 1.0
}

type accessStats struct {
	count      int
	lastAccess time.Time
}

func (ix *Index) loadAccessStats(ctx context.Context) (map[string]accessStats, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT record_id, COUNT(*), MAX(accessed_at) FROM access_log GROUP BY record_id`)
	if err != nil {
		return nil, fmt.Errorf("reading access log: %w", err)
	}
	defer rows.Close()
	stats := make(map[string]accessStats)
	for rows.Next() {
		var id, last string
		var count int
		if err := rows.Scan(&id, &count, &last); err != nil {
			return nil, err
		}
		t, _ := time.Parse(time.RFC3339, last)
		stats[id] = accessStats{count: count, lastAccess: t}
	}
	return stats, rows.Err()
}

// ftsQuery turns free text into a safe FTS5 match expression: each token
// quoted, OR-joined so partial matches still rank.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " OR ")
}

var ftsTypeNames = map[string]string{
	"decisions_fts": "decision",
	"patterns_fts":  "pattern",
	"transfers_fts": "transfer",
}

// Lexical runs a BM25 query across all FTS tables, applies the boost
// chain, logs accesses for the returned IDs, and returns the top limit
// results by final score.
func (ix *Index) Lexical(ctx context.Context, query, project string, limit int) ([]Result, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	stats, err := ix.loadAccessStats(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	var results []Result
	for table, typ := range ftsTypeNames {
		rows, err := ix.db.QueryContext(ctx, fmt.Sprintf(
			`SELECT id, content, project, created_at, importance, bm25(%s)
			 FROM %s WHERE %s MATCH ?`, table, table, table), match)
		if err != nil {
			// Missing FTS tables mean build has not run; callers rebuild.
			return nil, fmt.Errorf("querying %s: %w", table, err)
		}
		for rows.Next() {
			var r Result
			var createdAt string
			var importance, rank float64
			if err := rows.Scan(&r.ID, &r.Content, &r.Project, &createdAt, &importance, &rank); err != nil {
				rows.Close()
				return nil, err
			}
			r.Type = typ
			r.Timestamp, _ = time.Parse(time.RFC3339, createdAt)

			st := stats[r.ID]
			base := -rank // bm25() is negative; better matches are more negative
			daysSince := now.Sub(r.Timestamp).Hours() / 24
			daysSinceAccess := math.Inf(1)
			if !st.lastAccess.IsZero() {
				daysSinceAccess = now.Sub(st.lastAccess).Hours() / 24
			}
			r.Score = base *
				TemporalDecay(daysSince) *
				FreqBoost(st.count) *
				ImportanceBoost(importance) *
				AccessRecencyBoost(daysSinceAccess) *
				ProjectBoost(r.Project, project)
			results = append(results, r)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
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

// logAccess appends the returned IDs to the access log. Best effort: a
// failed insert never fails the query.
func (ix *Index) logAccess(ctx context.Context, results []Result) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range results {
		// OR IGNORE: re-access within the same second is one access.
		_, _ = ix.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO access_log (record_type, record_id, accessed_at) VALUES (?, ?, ?)`,
			r.Type, r.ID, now)
	}
}
