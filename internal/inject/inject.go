// Package inject is the hook-callable auto-context path: given a working
// directory and a prompt, it retrieves a compact index of relevant
// memory within a byte budget and a hard wall-clock deadline. Every
// failure is silent; a hook must never block or break the caller.
package inject

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/extract"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/search"
	"github.com/lorehq/lore/internal/validation"
)

const (
	header  = "--- relevant memory ---"
	trailer = "--- end memory ---"
)

// maxKeywords bounds how much of the prompt feeds the query.
const maxKeywords = 8

// Compose runs the injection pipeline and returns the block to emit, or
// "" when nothing relevant was found or anything went wrong. The caller
// prints the result as-is and always exits 0.
func Compose(root *paths.Root, eng *search.Engine, workDir, prompt string) string {
	deadline := config.GetDuration("inject.deadline")
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	project := DeriveProject(root, workDir)
	keywords := extract.Keywords(prompt, maxKeywords)
	if len(keywords) == 0 {
		return ""
	}
	query := strings.Join(keywords, " ")

	results, err := eng.Search(ctx, query, search.Options{
		Mode:    search.ModeHybrid,
		Project: project,
	})
	if err != nil || len(results) == 0 {
		return ""
	}

	budget := config.GetInt("inject.budget-bytes")
	var sb strings.Builder
	sb.WriteString(header + "\n")
	for _, r := range results {
		line := r.Compact() + "\n"
		if sb.Len()+len(line)+len(trailer)+1 > budget {
			break
		}
		sb.WriteString(line)
	}
	sb.WriteString(trailer + "\n")
	if strings.Count(sb.String(), "\n") <= 2 {
		return "" // header and trailer alone are not worth emitting
	}
	return sb.String()
}

// DeriveProject maps a working directory to a project tag: registry
// lookup first, then the workspace directory name, then none.
func DeriveProject(root *paths.Root, workDir string) string {
	if workDir == "" {
		return ""
	}
	if name := validation.LookupProject(root, workDir); name != "" {
		return name
	}
	base := filepath.Base(workDir)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.ToLower(base)
}
