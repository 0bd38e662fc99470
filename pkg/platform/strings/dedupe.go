// Package strings provides list helpers for free-text values such as
// specialties.
package strings

import (
	"strings"
)

// DedupeFold trims each value, collapses interior runs of whitespace, drops
// blanks and removes case-insensitive duplicates. The first spelling seen
// wins and order is preserved.
//
//	DedupeFold([]string{" Clínica  geral", "clínica geral", "", "TCC"})
//	// []string{"Clínica geral", "TCC"}
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		cleaned := strings.Join(strings.Fields(v), " ")
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, cleaned)
	}

	return result
}

// SplitList splits a delimited string and applies DedupeFold. An empty input
// yields an empty, non-nil slice.
func SplitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return DedupeFold(strings.Split(s, sep))
}

// JoinList is the inverse of SplitList for values that do not contain sep.
func JoinList(values []string, sep string) string {
	return strings.Join(values, sep)
}
