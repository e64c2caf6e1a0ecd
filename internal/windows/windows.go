// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package windows partitions a bulletin body into contiguous regions, one
// per matched organization anchor. Windows tile the whole body with no gaps
// and no overlaps; when nothing anchors, a single "(global)" window covers
// everything.
package windows

import (
	"regexp"
	"strings"

	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
)

// GlobalName names the fallback window used when no anchor survives.
const GlobalName = "(global)"

// Window is one contiguous body region attributed to an organization.
type Window struct {
	Name  string
	Start int
	End   int
}

// IsGlobal reports whether w is the whole-body fallback window.
func (w Window) IsGlobal() bool { return w.Name == GlobalName }

// Quality gates for anchor candidates. Tiny spans (roman numerals, stray
// initials) must never become window anchors.
const (
	minAnchorLetters = 8
	minAnchorTokens  = 2
	minSubstrLen     = 10
	maxCoalesce      = 3
)

// lightGapRe matches the text allowed strictly between two spans being
// coalesced into one anchor: whitespace, bullets, light punctuation.
var lightGapRe = regexp.MustCompile(`^[\s\x{2022}\-\x{2013},.;:]*$`)

// Collect scans the body span stream for organization-like spans matching a
// payload-known name and turns the survivors into windows. Each candidate is
// first tried with up to three immediately-following organization spans
// concatenated onto it (classifier output sometimes splits a long header);
// the longest extension whose key is valid wins, then the bare span, then
// nothing.
func Collect(spans []span.Span, bodyText string, allowedOrgs []string) []Window {
	allowed := makeAllowedSet(allowedOrgs)

	var candidates []span.Span
	for _, s := range spans {
		if s.Label.IsOrgLike() {
			candidates = append(candidates, s)
		}
	}
	span.SortByStart(candidates)

	type anchor struct {
		start int
		text  string
	}
	var anchors []anchor
	used := make([]bool, len(candidates))

	for i := 0; i < len(candidates); i++ {
		if used[i] {
			continue
		}
		base := candidates[i]
		if !passesGates(base.Text) {
			continue
		}

		// Bounded lookahead: extend with following spans while the gap
		// between them is empty or light punctuation, keeping the longest
		// extension whose combined key is valid.
		bestLen := -1
		joined := base.Text
		prevEnd := base.End
		if allowed.accepts(joined) {
			bestLen = 0
		}
		for k := 1; k <= maxCoalesce && i+k < len(candidates); k++ {
			next := candidates[i+k]
			if !next.Label.IsOrgLike() {
				break
			}
			gap := ""
			if prevEnd <= next.Start && next.Start <= len(bodyText) {
				gap = bodyText[prevEnd:next.Start]
			}
			if !lightGapRe.MatchString(gap) {
				break
			}
			joined = joined + " " + next.Text
			prevEnd = next.End
			if allowed.accepts(joined) {
				bestLen = k
			}
		}

		if bestLen < 0 {
			continue
		}
		text := base.Text
		if bestLen > 0 {
			parts := []string{base.Text}
			for k := 1; k <= bestLen; k++ {
				parts = append(parts, candidates[i+k].Text)
				used[i+k] = true
			}
			text = strings.Join(parts, " ")
		}
		anchors = append(anchors, anchor{start: base.Start, text: text})
	}

	if len(anchors) == 0 {
		return []Window{{Name: GlobalName, Start: 0, End: len(bodyText)}}
	}

	out := make([]Window, 0, len(anchors))
	for i, a := range anchors {
		end := len(bodyText)
		if i+1 < len(anchors) {
			end = anchors[i+1].start
		}
		out = append(out, Window{Name: a.text, Start: a.start, End: end})
	}
	// First window starts at its anchor; the tiling invariant needs the
	// leading region covered too.
	if out[0].Start > 0 {
		out[0].Start = 0
	}
	return out
}

func passesGates(text string) bool {
	normed := textnorm.NormalizeTitle(text)
	letters := 0
	for _, r := range normed {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			letters++
		}
	}
	if letters < minAnchorLetters {
		return false
	}
	return len(strings.Fields(normed)) >= minAnchorTokens
}

// allowedSet matches candidate anchors against the payload's organization
// names on their tight (space-free, casefolded) forms, with containment in
// either direction accepted.
type allowedSet struct {
	tight []string
}

func makeAllowedSet(orgs []string) allowedSet {
	var set allowedSet
	for _, o := range orgs {
		t := tightForm(o)
		if t != "" {
			set.tight = append(set.tight, t)
		}
	}
	return set
}

func (a allowedSet) accepts(candidate string) bool {
	ct := tightForm(candidate)
	if ct == "" {
		return false
	}
	for _, at := range a.tight {
		if ct == at || strings.Contains(at, ct) || strings.Contains(ct, at) {
			return true
		}
	}
	return false
}

func tightForm(s string) string {
	return strings.ToLower(textnorm.Tighten(textnorm.NormalizeTitle(s)))
}

// MatchOrg picks the window an organization name belongs to. Strict or
// long-enough substring matching wins outright; otherwise the best
// token-set Jaccard window is taken, anchored only when the score is
// positive. The returned index is always usable; anchored tells the caller
// whether to trust it.
func MatchOrg(orgName string, wins []Window) (index int, anchored bool) {
	if len(wins) == 0 {
		return -1, false
	}
	if len(wins) == 1 && wins[0].IsGlobal() {
		return 0, true
	}

	at := tightForm(orgName)
	for i, w := range wins {
		bt := tightForm(w.Name)
		if at == bt {
			return i, true
		}
		if (len(at) >= minSubstrLen && strings.Contains(bt, at)) ||
			(len(bt) >= minSubstrLen && strings.Contains(at, bt)) {
			return i, true
		}
	}

	best := -1
	bestScore := -1.0
	a := textnorm.TokenSet(orgName)
	for i, w := range wins {
		score := textnorm.Jaccard(a, textnorm.TokenSet(w.Name))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best, bestScore > 0
}
