package selector

import (
	"sort"

	"github.com/entl/histsearch/internal/storage"
	"github.com/sahilm/fuzzy"
)

// candidate is a record with its rendered display line.
type candidate struct {
	rec  storage.Record
	line string
}

// match is a candidate accepted by the current query.
type match struct {
	index int // into the candidate list
	score int
	// positions are byte offsets into the candidate's display line.
	positions []int
}

// source exposes the highlight range of each candidate to the fuzzy matcher,
// so the date column never matches.
type source []candidate

func (s source) String(i int) string {
	c := s[i]
	return c.line[c.rec.Highlight.Start:c.rec.Highlight.End]
}

func (s source) Len() int {
	return len(s)
}

// findMatches matches query against cands, whose first element has index
// offset in the full candidate list. The result is ordered.
func findMatches(query string, cands []candidate, offset int, noSort bool) []match {
	if query == "" {
		out := make([]match, len(cands))
		for i := range cands {
			out[i] = match{index: offset + i}
		}
		return out
	}

	found := fuzzy.FindFrom(query, source(cands))
	out := make([]match, len(found))
	for i, f := range found {
		start := cands[f.Index].rec.Highlight.Start
		positions := make([]int, len(f.MatchedIndexes))
		for j, p := range f.MatchedIndexes {
			positions[j] = start + p
		}
		out[i] = match{index: offset + f.Index, score: f.Score, positions: positions}
	}

	sort.Slice(out, func(i, j int) bool { return matchLess(out[i], out[j], noSort) })
	return out
}

// matchLess orders by score, best first, and then by history order. With
// noSort only history order counts.
func matchLess(a, b match, noSort bool) bool {
	if !noSort && a.score != b.score {
		return a.score > b.score
	}
	return a.index < b.index
}

// mergeMatches merges two ordered match lists.
func mergeMatches(a, b []match, noSort bool) []match {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}

	out := make([]match, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if matchLess(b[j], a[i], noSort) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
