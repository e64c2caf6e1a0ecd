// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fuzzy implements the tiered comparison cascade used to re-anchor
// expected titles inside noisy body text. Each tier is an independent
// strategy; the cascade returns the first success together with the
// confidence the tier carries.
package fuzzy

import (
	"strings"

	"boletim-scan/internal/textnorm"
)

// Tier identifies which cascade stage produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierTight
	TierLetters
	TierContainment
	TierNgram
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierTight:
		return "tight"
	case TierLetters:
		return "letters"
	case TierContainment:
		return "containment"
	case TierNgram:
		return "ngram"
	default:
		return "none"
	}
}

// Thresholds holds the cascade tunables. Zero values are never used
// directly; call DefaultThresholds and override from configuration.
type Thresholds struct {
	// LettersMinRatio is min(len(shorter)/len(longer)) for the
	// containment tier.
	LettersMinRatio float64
	// NgramSize is the character n-gram length.
	NgramSize int
	// NgramJaccardMin is the acceptance floor for the n-gram tier.
	NgramJaccardMin float64
	// MinLenForNgrams gates the n-gram tier to reasonably long strings.
	MinLenForNgrams int
}

// DefaultThresholds returns the tunables the reference corpus was built
// around.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LettersMinRatio: 0.80,
		NgramSize:       3,
		NgramJaccardMin: 0.60,
		MinLenForNgrams: 20,
	}
}

// Match is a successful cascade outcome.
type Match struct {
	Tier       Tier
	Confidence float64
}

// Forms caches the canonical comparison forms of a string so repeated
// matching passes do not renormalize.
type Forms struct {
	Norm    string // NormalizeTitle, casefolded
	Tight   string // Norm with spaces removed
	Letters string // letters-only skeleton
}

// MakeForms precomputes the comparison forms for s.
func MakeForms(s string) Forms {
	n := textnorm.NormalizeTitle(s)
	return Forms{
		Norm:    strings.ToLower(n),
		Tight:   strings.ToLower(textnorm.Tighten(n)),
		Letters: textnorm.LettersOnly(n),
	}
}

// Matcher runs the comparison cascade with a fixed set of thresholds.
type Matcher struct {
	t Thresholds
}

// NewMatcher builds a Matcher; zero-valued thresholds fall back to defaults.
func NewMatcher(t Thresholds) *Matcher {
	d := DefaultThresholds()
	if t.LettersMinRatio == 0 {
		t.LettersMinRatio = d.LettersMinRatio
	}
	if t.NgramSize == 0 {
		t.NgramSize = d.NgramSize
	}
	if t.NgramJaccardMin == 0 {
		t.NgramJaccardMin = d.NgramJaccardMin
	}
	if t.MinLenForNgrams == 0 {
		t.MinLenForNgrams = d.MinLenForNgrams
	}
	return &Matcher{t: t}
}

// Thresholds returns the tunables this matcher runs with.
func (m *Matcher) Thresholds() Thresholds { return m.t }

// strategy is one cascade stage over precomputed forms.
type strategy struct {
	tier Tier
	run  func(m *Matcher, a, b Forms) (float64, bool)
}

// The cascade is ordered by decreasing strictness; confidence is monotone
// non-increasing down the tiers.
var cascade = []strategy{
	{TierExact, func(_ *Matcher, a, b Forms) (float64, bool) {
		if a.Norm != "" && a.Norm == b.Norm {
			return 1.0, true
		}
		return 0, false
	}},
	{TierTight, func(_ *Matcher, a, b Forms) (float64, bool) {
		if a.Tight != "" && a.Tight == b.Tight {
			return 0.95, true
		}
		return 0, false
	}},
	{TierLetters, func(_ *Matcher, a, b Forms) (float64, bool) {
		if a.Letters != "" && a.Letters == b.Letters {
			return 0.90, true
		}
		return 0, false
	}},
	{TierContainment, func(m *Matcher, a, b Forms) (float64, bool) {
		score, ok := containmentScore(a.Letters, b.Letters, m.t.LettersMinRatio)
		if !ok {
			return 0, false
		}
		return 0.8 * score, true
	}},
	{TierNgram, func(m *Matcher, a, b Forms) (float64, bool) {
		if len(a.Letters) < m.t.MinLenForNgrams || len(b.Letters) < m.t.MinLenForNgrams {
			return 0, false
		}
		j := ngramJaccard(a.Letters, b.Letters, m.t.NgramSize)
		if j >= m.t.NgramJaccardMin {
			return j, true
		}
		return 0, false
	}},
}

// Compare runs the full cascade over two raw strings.
func (m *Matcher) Compare(a, b string) (Match, bool) {
	return m.CompareForms(MakeForms(a), MakeForms(b))
}

// CompareForms runs the cascade over precomputed forms.
func (m *Matcher) CompareForms(a, b Forms) (Match, bool) {
	for _, s := range cascade {
		if conf, ok := s.run(m, a, b); ok {
			return Match{Tier: s.tier, Confidence: conf}, true
		}
	}
	return Match{}, false
}

// CompareTier runs a single cascade tier over precomputed forms. The
// segmentation engine uses this to sweep all candidates tier by tier so a
// strong match for one title is never stolen by a weaker one.
func (m *Matcher) CompareTier(tier Tier, a, b Forms) (float64, bool) {
	for _, s := range cascade {
		if s.tier == tier {
			return s.run(m, a, b)
		}
	}
	return 0, false
}

func containmentScore(a, b string, minRatio float64) (float64, bool) {
	if a == "" || b == "" {
		return 0, false
	}
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return 0, false
	}
	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	score := float64(shorter) / float64(longer)
	if score < minRatio {
		return 0, false
	}
	return score, true
}

func ngramJaccard(a, b string, n int) float64 {
	return textnorm.Jaccard(textnorm.CharNgrams(a, n), textnorm.CharNgrams(b, n))
}

// NgramScore exposes the raw n-gram similarity for callers that apply their
// own floor (sub-segmentation runs it per header line).
func (m *Matcher) NgramScore(a, b Forms) float64 {
	if len(a.Letters) < m.t.MinLenForNgrams || len(b.Letters) < m.t.MinLenForNgrams {
		return 0
	}
	return ngramJaccard(a.Letters, b.Letters, m.t.NgramSize)
}

// IsCloseMatch is the looser boolean predicate used for anchor alignment in
// the hierarchical variant: letters-only equality, else a long common
// prefix, else containment with a modest length ratio.
func IsCloseMatch(a, b string) bool {
	la := textnorm.LettersOnly(a)
	lb := textnorm.LettersOnly(b)
	if la == "" || lb == "" {
		return false
	}
	if la == lb {
		return true
	}
	shorter, longer := len(la), len(lb)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if prefixLen(la, lb) >= int(0.85*float64(longer)+0.5) {
		return true
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return float64(shorter)/float64(longer) >= 0.60
	}
	return false
}

func prefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
