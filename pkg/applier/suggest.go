package applier

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	maxSuggestions   = 3
	suggestionCutoff = 0.4
)

// closeMatches returns up to three candidates similar to word, best first.
func closeMatches(word string, candidates []string) []string {
	type scored struct {
		name  string
		score float64
	}
	target := strings.Split(word, "")
	var matches []scored
	for _, c := range candidates {
		m := difflib.NewMatcher(strings.Split(c, ""), target)
		if m.RealQuickRatio() < suggestionCutoff || m.QuickRatio() < suggestionCutoff {
			continue
		}
		if r := m.Ratio(); r >= suggestionCutoff {
			matches = append(matches, scored{name: c, score: r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}
