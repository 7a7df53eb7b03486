package utils

import "strings"

// Levenshtein computes the edit distance between two strings,
// case-insensitively.
func Levenshtein(s1, s2 string) int {
	s1 = strings.ToLower(s1)
	s2 = strings.ToLower(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			min := prev[j] + 1 // deletion
			if ins := curr[j-1] + 1; ins < min {
				min = ins
			}
			if sub := prev[j-1] + cost; sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// FuzzyWordMatch reports whether any word of text is within maxDist edits
// of the query word.
func FuzzyWordMatch(text, query string, maxDist int) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if Levenshtein(word, query) <= maxDist {
			return true
		}
	}
	return false
}
