// Package namematch resolves freeform player names against a roster of known names.
package namematch

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/okian/handrecon/internal/domain/types"
)

const (
	// DefaultThreshold is the minimum similarity a candidate needs to be returned.
	DefaultThreshold = 70
	// DefaultTopN is the number of alternatives returned for review.
	DefaultTopN = 3

	partialBoost   = 20
	partialCeiling = 95
	boostBelow     = 80
	highSimilarity = 90
	medSimilarity  = 80
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// MatchResult is a scored candidate.
type MatchResult struct {
	Name           string           `json:"name"`
	Similarity     int              `json:"similarity"`
	IsPartialMatch bool             `json:"isPartialMatch"`
	Confidence     types.Confidence `json:"confidence"`
}

// Normalize lowercases, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = nonAlnum.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity returns the 0..100 edit-distance similarity of two already normalized names.
func Similarity(a, b string) int {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 100
	}
	d := levenshtein(a, b)
	return int(math.Round(float64(maxLen-d) / float64(maxLen) * 100))
}

// partialMatch reports whether any whitespace token of one name is a token of the other.
func partialMatch(a, b string) bool {
	tb := strings.Fields(b)
	for _, x := range strings.Fields(a) {
		for _, y := range tb {
			if x == y {
				return true
			}
		}
	}
	return false
}

func classify(similarity int, partial bool) types.Confidence {
	switch {
	case similarity >= highSimilarity || partial:
		return types.ConfidenceHigh
	case similarity >= medSimilarity:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// Score compares target against a single candidate.
func Score(target, candidate string) MatchResult {
	nt, nc := Normalize(target), Normalize(candidate)
	if nt == nc {
		return MatchResult{Name: candidate, Similarity: 100, Confidence: types.ConfidenceHigh}
	}

	sim := Similarity(nt, nc)
	partial := partialMatch(nt, nc)
	if partial && sim < boostBelow {
		sim = min(sim+partialBoost, partialCeiling)
	}
	return MatchResult{
		Name:           candidate,
		Similarity:     sim,
		IsPartialMatch: partial,
		Confidence:     classify(sim, partial),
	}
}

// FindBestMatch returns the highest scoring candidate at or above threshold.
// Ties keep the earliest candidate.
func FindBestMatch(target string, candidates []string, threshold int) (MatchResult, bool) {
	var (
		best  MatchResult
		found bool
	)
	for _, c := range candidates {
		r := Score(target, c)
		if r.Similarity < threshold {
			continue
		}
		if !found || r.Similarity > best.Similarity {
			best, found = r, true
		}
	}
	return best, found
}

// FindTopMatches returns up to topN candidates at or above threshold, best first.
func FindTopMatches(target string, candidates []string, topN, threshold int) []MatchResult {
	out := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		if r := Score(target, c); r.Similarity >= threshold {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if topN >= 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
