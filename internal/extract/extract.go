// Package extract pulls entities and keywords out of free decision text.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

var entityPatterns = []*regexp.Regexp{
	regexp.MustCompile("`([^`]+)`"),                      // backtick-quoted terms
	regexp.MustCompile(`\b[\w./-]+\.[A-Za-z]{1,5}\b`),    // filenames (foo/bar.go, nginx.conf)
	regexp.MustCompile(`\b\w+\(\)`),                      // call-style tokens (parse())
	regexp.MustCompile(`\b[A-Z][A-Za-z0-9]{2,}\b`),       // capitalized words, >= 3 chars
}

// Entities extracts the entity list stored on a decision: filenames,
// name()-style tokens, backtick-quoted terms, and capitalized words of at
// least three characters. Order of first appearance, deduplicated.
func Entities(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, pat := range entityPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			val := m[0]
			if len(m) > 1 && m[1] != "" {
				val = m[1]
			}
			val = strings.Trim(val, "`")
			if len(val) < 3 {
				continue
			}
			key := strings.ToLower(val)
			if !seen[key] {
				seen[key] = true
				out = append(out, val)
			}
		}
	}
	return out
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "for": true,
	"from": true, "has": true, "have": true, "how": true, "i": true,
	"in": true, "is": true, "it": true, "me": true, "my": true, "not": true,
	"of": true, "on": true, "or": true, "our": true, "please": true,
	"should": true, "that": true, "the": true, "this": true, "to": true,
	"use": true, "we": true, "what": true, "when": true, "where": true,
	"which": true, "why": true, "will": true, "with": true, "would": true,
	"you": true, "your": true,
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// Keywords returns the stopword-filtered lowercase keywords of text,
// most frequent first, capped at limit.
func Keywords(text string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}

// WordSet returns the lowercased alphanumeric word set of text, the input
// to Jaccard similarity.
func WordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		set[w] = true
	}
	return set
}

// Jaccard computes |A∩B| / |A∪B| over two word sets. Two empty sets are
// identical by convention.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
