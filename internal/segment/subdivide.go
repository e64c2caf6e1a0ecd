// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"boletim-scan/internal/fuzzy"
	"boletim-scan/internal/result"
	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
)

// headerBlock is a maximal run of consecutive document-name spans inside a
// re-parsed segment; any intervening non-header span closes the run.
type headerBlock struct {
	start  int
	end    int
	titles []string
}

func collectHeaderBlocks(spans []span.Span) []headerBlock {
	span.SortByStart(spans)

	var blocks []headerBlock
	var current []span.Span
	flush := func() {
		if len(current) == 0 {
			return
		}
		hb := headerBlock{start: current[0].Start, end: current[len(current)-1].End}
		for _, h := range current {
			hb.titles = append(hb.titles, textnorm.NormalizeTitle(h.Text))
		}
		blocks = append(blocks, hb)
		current = nil
	}

	for _, s := range spans {
		if s.Label == span.LabelDocName {
			current = append(current, s)
			continue
		}
		flush()
	}
	flush()
	return blocks
}

// pickCanonical chooses the allowed title a header block stands for. The
// block's lines are first matched joined together (OCR often splits one
// title over several header spans), then line by line; each attempt walks
// the full cascade, with the n-gram tier scored best-of over all allowed
// titles rather than first-hit.
func pickCanonical(blockTitles []string, allowed []string, m *fuzzy.Matcher) (string, bool) {
	if len(allowed) == 0 {
		return "", false
	}

	allowedForms := make([]fuzzy.Forms, len(allowed))
	for i, t := range allowed {
		allowedForms[i] = fuzzy.MakeForms(textnorm.OCRClean(t))
	}

	joined := ""
	for i, t := range blockTitles {
		if i > 0 {
			joined += "\n"
		}
		joined += t
	}

	if title, ok := matchAgainstAllowed(fuzzy.MakeForms(textnorm.OCRClean(joined)), allowed, allowedForms, m); ok {
		return title, true
	}

	for _, line := range blockTitles {
		if title, ok := matchAgainstAllowed(fuzzy.MakeForms(textnorm.OCRClean(line)), allowed, allowedForms, m); ok {
			return title, true
		}
	}
	return "", false
}

func matchAgainstAllowed(candidate fuzzy.Forms, allowed []string, allowedForms []fuzzy.Forms, m *fuzzy.Matcher) (string, bool) {
	for _, tier := range []fuzzy.Tier{fuzzy.TierExact, fuzzy.TierTight, fuzzy.TierLetters, fuzzy.TierContainment} {
		for i, af := range allowedForms {
			if _, ok := m.CompareTier(tier, candidate, af); ok {
				return allowed[i], true
			}
		}
	}

	best := -1
	bestScore := 0.0
	for i, af := range allowedForms {
		score := m.NgramScore(candidate, af)
		if score >= m.Thresholds().NgramJaccardMin && score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best >= 0 {
		return allowed[best], true
	}
	return "", false
}

// Subdivide splits a document segment into sub-documents at its approved
// child headers. Blocks with no canonical match are dropped; when nothing is
// approved but headers exist, the segment survives as one unlabeled
// catch-all whose body starts after the first header block.
func Subdivide(segText string, allowed []string, reparse ReparseFunc, m *fuzzy.Matcher) []result.SubSlice {
	spans := reparse(segText)
	blocks := collectHeaderBlocks(spans)

	type approvedBlock struct {
		headerBlock
		canonical string
	}
	var approved []approvedBlock
	for _, hb := range blocks {
		if canon, ok := pickCanonical(hb.titles, allowed, m); ok {
			approved = append(approved, approvedBlock{headerBlock: hb, canonical: canon})
		}
	}

	if len(approved) == 0 {
		var headers []string
		bodyStart := 0
		title := ""
		if len(blocks) > 0 {
			headers = blocks[0].titles
			bodyStart = blocks[0].end
			if len(headers) > 0 {
				title = headers[0]
			}
		}
		return []result.SubSlice{{
			Title:   title,
			Headers: headers,
			Body:    segText[bodyStart:],
			Start:   bodyStart,
			End:     len(segText),
		}}
	}

	subs := make([]result.SubSlice, 0, len(approved))
	for i, ab := range approved {
		bodyStart := ab.end
		bodyEnd := len(segText)
		if i+1 < len(approved) {
			bodyEnd = approved[i+1].start
		}
		subs = append(subs, result.SubSlice{
			Title:   ab.canonical,
			Headers: ab.titles,
			Body:    segText[bodyStart:bodyEnd],
			Start:   bodyStart,
			End:     bodyEnd,
		})
	}
	return subs
}
