package usecase

import (
	"math"

	"github.com/reelscout/backend/internal/domain"
)

// DefaultMatchThreshold is the largest normalized edit distance (exclusive)
// at which a rating candidate is accepted.
const DefaultMatchThreshold = 0.2

// TitleMatcher pairs a catalog title with a ratings search hit.
//
// The first candidate under the threshold wins, even when a later one would be
// closer. Comparison is case-sensitive.
type TitleMatcher struct {
	threshold float64
}

// NewTitleMatcher creates a matcher; a threshold outside (0,1] falls back to the default.
func NewTitleMatcher(threshold float64) *TitleMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &TitleMatcher{threshold: threshold}
}

// Threshold returns the acceptance threshold in use.
func (m *TitleMatcher) Threshold() float64 {
	return m.threshold
}

// Match returns the first candidate whose title is close enough to target.
func (m *TitleMatcher) Match(target string, candidates []domain.RatingCandidate) (*domain.RatingCandidate, bool) {
	normalized := NormalizeTitle(target)
	if normalized == "" {
		return nil, false
	}
	for i := range candidates {
		if normalizedDistance(normalized, NormalizeTitle(candidates[i].Title)) < m.threshold {
			c := candidates[i]
			return &c, true
		}
	}
	return nil, false
}

// Distance is the edit distance between the normalized titles divided by the
// length of the normalized target. An empty target is infinitely far from everything.
func (m *TitleMatcher) Distance(target, candidate string) float64 {
	return normalizedDistance(NormalizeTitle(target), NormalizeTitle(candidate))
}

func normalizedDistance(target, candidate string) float64 {
	n := len([]rune(target))
	if n == 0 {
		return math.Inf(1)
	}
	return float64(levenshteinDistance(target, candidate)) / float64(n)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
