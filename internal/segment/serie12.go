// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"regexp"
	"strings"

	"boletim-scan/internal/fuzzy"
	"boletim-scan/internal/payload"
	"boletim-scan/internal/result"
	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
)

const maxMerge = 3

// anchorGapRe matches the text allowed strictly between two spans being
// merged into one anchor: whitespace, bullets, light punctuation.
var anchorGapRe = regexp.MustCompile(`^[\s\x{2022}\-\x{2013},.;:]*$`)

// coalescedAnchors merges each run of up to maxMerge adjacent spans into one
// anchor when the combined key is expected, keeping the longest valid merge.
// A lone span survives only when its own key is expected.
func coalescedAnchors(spans []span.Span, text string, validKeys map[string]struct{}) []span.Span {
	span.SortByStart(spans)

	var anchors []span.Span
	i := 0
	for i < len(spans) {
		bestJ := -1
		endChar := spans[i].End
		concatenated := spans[i].Text

		for j := i; j < len(spans) && j < i+maxMerge; j++ {
			if j > i {
				gap := ""
				if endChar <= spans[j].Start && spans[j].Start <= len(text) {
					gap = text[endChar:spans[j].Start]
				}
				if !anchorGapRe.MatchString(gap) {
					break
				}
				concatenated = concatenated + " " + spans[j].Text
			}
			if _, ok := validKeys[textnorm.OrgKey(concatenated)]; ok {
				bestJ = j
			}
			endChar = spans[j].End
		}

		if bestJ >= 0 {
			merged := span.Span{
				Label: spans[i].Label,
				Text:  text[spans[i].Start:spans[bestJ].End],
				Start: spans[i].Start,
				End:   spans[bestJ].End,
			}
			anchors = append(anchors, merged)
			i = bestJ + 1
			continue
		}
		if _, ok := validKeys[textnorm.OrgKey(spans[i].Text)]; ok {
			anchors = append(anchors, spans[i])
		}
		i++
	}
	return anchors
}

// block is one organization region of the body: its anchor plus the text
// range running to the next anchor's start.
type block struct {
	anchor span.Span
	start  int
	end    int
}

func buildBlocks(spans []span.Span, text string, validKeys map[string]struct{}) []block {
	anchors := coalescedAnchors(spans, text, validKeys)
	blocks := make([]block, 0, len(anchors))
	for i, a := range anchors {
		end := len(text)
		if i+1 < len(anchors) {
			end = anchors[i+1].Start
		}
		blocks = append(blocks, block{anchor: a, start: a.Start, end: end})
	}
	return blocks
}

func orgLikeSpans(spans []span.Span) []span.Span {
	var out []span.Span
	for _, s := range spans {
		if s.Label.IsOrgLike() {
			out = append(out, s)
		}
	}
	return out
}

func junkSpans(spans []span.Span) []span.Span {
	var out []span.Span
	for _, s := range spans {
		if s.Label == span.LabelJunk {
			out = append(out, s)
		}
	}
	return out
}

// closeMatchRescue is the last anchor-alignment pass: organizations still
// missing after exact and junk keying scan the body org headers with a
// forward-only cursor, anchoring at the first unclaimed header the loose
// close-match predicate accepts. The cursor never moves backwards, so a
// header serves at most one organization. Rescued blocks run to the nearest
// later anchor, rescued or already known.
func closeMatchRescue(lookup map[string]block, wanted []string, orgSpans []span.Span, textLen int) {
	if len(wanted) == 0 || len(orgSpans) == 0 {
		return
	}
	span.SortByStart(orgSpans)

	claimed := make(map[int]struct{}, len(lookup))
	var bounds []int
	for _, b := range lookup {
		claimed[b.anchor.Start] = struct{}{}
		bounds = append(bounds, b.start)
	}

	type hit struct {
		key string
		sp  span.Span
	}
	var hits []hit
	cursor := 0
	for _, org := range wanted {
		for cursor < len(orgSpans) {
			s := orgSpans[cursor]
			cursor++
			if _, taken := claimed[s.Start]; taken {
				continue
			}
			if fuzzy.IsCloseMatch(org, s.Text) {
				hits = append(hits, hit{key: textnorm.OrgKey(org), sp: s})
				break
			}
		}
	}

	for i, h := range hits {
		end := textLen
		if i+1 < len(hits) {
			end = hits[i+1].sp.Start
		}
		for _, b := range bounds {
			if b > h.sp.Start && b < end {
				end = b
			}
		}
		lookup[h.key] = block{anchor: h.sp, start: h.sp.Start, end: end}
	}
}

// unresolvedOrgs returns, in payload order and without duplicates, the raw
// organization names whose keys have no block yet.
func unresolvedOrgs(lookup map[string]block, orgs []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, org := range orgs {
		key := textnorm.OrgKey(org)
		if _, ok := lookup[key]; ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, org)
	}
	return out
}

// sliceDocsInBlock anchors one organization's expected documents to
// document-name headers inside its block. Headers are consumed left to
// right, never reused; a document that finds no header past the cursor is
// reported missing with empty text. Progressive fallbacks follow the same
// order at every call: zero headers with exactly one expected document takes
// the whole block, then whatever headers match, then whole-block again for a
// single document, then every header present.
func sliceDocsInBlock(bodyText string, bodySpans []span.Span, bstart, bend int, expected []string) ([]result.DocSlice, result.Status) {
	headers := span.Within(bodySpans, bstart, bend, span.LabelDocName)

	cleanTitle := func(raw string) string {
		return strings.TrimSpace(textnorm.StripBold(raw))
	}
	emptySlices := func(docs []string, status result.Status) []result.DocSlice {
		out := make([]result.DocSlice, 0, len(docs))
		for _, d := range docs {
			out = append(out, result.DocSlice{Title: cleanTitle(d), Status: status})
		}
		return out
	}

	if len(headers) == 0 && len(expected) == 1 {
		return []result.DocSlice{{
			Title:      cleanTitle(expected[0]),
			Text:       bodyText[bstart:bend],
			Status:     result.StatusOK,
			Confidence: 1.0,
		}}, result.StatusOK
	}

	expectedNorms := make([]string, len(expected))
	nameSet := make(map[string]struct{})
	for i, d := range expected {
		expectedNorms[i] = textnorm.NormalizeDocTitle(d)
		nameSet[expectedNorms[i]] = struct{}{}
	}

	sliceEnd := func(startChar int) int {
		for _, h := range headers {
			if h.Start > startChar {
				if _, ok := nameSet[textnorm.NormalizeDocTitle(h.Text)]; ok {
					return h.Start
				}
			}
		}
		return bend
	}

	var matched []result.DocSlice
	var unmatched []string
	cursor := 0
	for i, raw := range expected {
		norm := expectedNorms[i]
		for cursor < len(headers) && textnorm.NormalizeDocTitle(headers[cursor].Text) != norm {
			cursor++
		}
		if cursor < len(headers) {
			h := headers[cursor]
			matched = append(matched, result.DocSlice{
				Title:      cleanTitle(raw),
				Text:       bodyText[h.Start:sliceEnd(h.Start)],
				Status:     result.StatusOK,
				Confidence: 1.0,
			})
			cursor++
		} else {
			unmatched = append(unmatched, raw)
		}
	}

	if len(matched) == 0 && len(headers) > 0 {
		var matchingHeaders []span.Span
		for _, h := range headers {
			if _, ok := nameSet[textnorm.NormalizeDocTitle(h.Text)]; ok {
				matchingHeaders = append(matchingHeaders, h)
			}
		}
		switch {
		case len(matchingHeaders) > 0:
			matchedNorms := make(map[string]struct{})
			for _, h := range matchingHeaders {
				matched = append(matched, result.DocSlice{
					Title:      cleanTitle(h.Text),
					Text:       bodyText[h.Start:sliceEnd(h.Start)],
					Status:     result.StatusOK,
					Confidence: 1.0,
				})
				matchedNorms[textnorm.NormalizeDocTitle(h.Text)] = struct{}{}
			}
			unmatched = nil
			for i, d := range expected {
				if _, ok := matchedNorms[expectedNorms[i]]; !ok {
					unmatched = append(unmatched, d)
				}
			}
		case len(expected) == 1:
			matched = []result.DocSlice{{
				Title:      cleanTitle(expected[0]),
				Text:       bodyText[bstart:bend],
				Status:     result.StatusOK,
				Confidence: 1.0,
			}}
			unmatched = nil
		default:
			for _, h := range headers {
				matched = append(matched, result.DocSlice{
					Title:      cleanTitle(h.Text),
					Text:       bodyText[h.Start:sliceEnd(h.Start)],
					Status:     result.StatusOK,
					Confidence: 1.0,
				})
			}
			unmatched = append([]string(nil), expected...)
		}
	}

	var status result.Status
	switch {
	case len(expected) == 0:
		status = result.StatusOK
	case len(matched) > 0 && len(unmatched) > 0:
		status = result.StatusPartial
	case len(matched) == 0:
		status = result.StatusDocMissing
	default:
		status = result.StatusOK
	}

	if len(unmatched) > 0 {
		missing := result.StatusDocMissing
		matched = append(matched, emptySlices(unmatched, missing)...)
	}
	return matched, status
}

// SegmentHierarchical is the Series I/II engine. The flat payload shape
// slices each organization block by its expected document headers; the
// hierarchical shape cuts every occurrence of each sub-organization header
// inside its parent block and pairs the cuts, in order, with the expected
// documents. Junk-labeled spans serve as a rescue pass for anchors the
// primary labels missed; organizations still unkeyed after that fall back to
// loose close-matching against the body org headers, consumed left to right.
func SegmentHierarchical(bodyText string, bodySpans []span.Span, p *payload.Payload) []result.OrgResult {
	switch p.Kind {
	case payload.KindHierarchical:
		return segmentHier(bodyText, bodySpans, p.Hier)
	default:
		return segmentFlat(bodyText, bodySpans, p.Flat)
	}
}

func segmentFlat(bodyText string, bodySpans []span.Span, items []payload.FlatItem) []result.OrgResult {
	validKeys := make(map[string]struct{})
	for _, it := range items {
		validKeys[textnorm.OrgKey(it.Org)] = struct{}{}
	}

	lookup := make(map[string]block)
	for _, b := range buildBlocks(orgLikeSpans(bodySpans), bodyText, validKeys) {
		key := textnorm.OrgKey(b.anchor.Text)
		if _, dup := lookup[key]; !dup {
			lookup[key] = b
		}
	}

	// Rescue pass: fill the remaining keys from junk-labeled spans only.
	missing := make(map[string]struct{})
	for k := range validKeys {
		if _, ok := lookup[k]; !ok {
			missing[k] = struct{}{}
		}
	}
	if len(missing) > 0 {
		for _, b := range buildBlocks(junkSpans(bodySpans), bodyText, missing) {
			key := textnorm.OrgKey(b.anchor.Text)
			if _, want := missing[key]; want {
				if _, dup := lookup[key]; !dup {
					lookup[key] = b
				}
			}
		}
	}

	orgNames := make([]string, len(items))
	for i, it := range items {
		orgNames[i] = it.Org
	}
	closeMatchRescue(lookup, unresolvedOrgs(lookup, orgNames), orgLikeSpans(bodySpans), len(bodyText))

	var results []result.OrgResult
	for _, it := range items {
		orgClean := strings.TrimSpace(textnorm.StripBold(it.Org))
		b, found := lookup[textnorm.OrgKey(it.Org)]
		if !found {
			results = append(results, result.OrgResult{
				Org:    orgClean,
				Status: result.StatusOrgMissing,
				Docs:   []result.DocSlice{},
			})
			continue
		}
		docs, status := sliceDocsInBlock(bodyText, bodySpans, b.start, b.end, it.Docs)
		results = append(results, result.OrgResult{
			Org:       orgClean,
			Status:    status,
			BlockText: bodyText[b.start:b.end],
			Docs:      docs,
		})
	}
	return results
}

func segmentHier(bodyText string, bodySpans []span.Span, items []payload.HierItem) []result.OrgResult {
	topKeys := make(map[string]struct{})
	for _, it := range items {
		topKeys[textnorm.OrgKey(it.TopOrg)] = struct{}{}
	}

	topLookup := make(map[string]block)
	for _, b := range buildBlocks(orgLikeSpans(bodySpans), bodyText, topKeys) {
		key := textnorm.OrgKey(b.anchor.Text)
		if _, dup := topLookup[key]; !dup {
			topLookup[key] = b
		}
	}
	missingTop := make(map[string]struct{})
	for k := range topKeys {
		if _, ok := topLookup[k]; !ok {
			missingTop[k] = struct{}{}
		}
	}
	if len(missingTop) > 0 {
		for _, b := range buildBlocks(junkSpans(bodySpans), bodyText, missingTop) {
			key := textnorm.OrgKey(b.anchor.Text)
			if _, want := missingTop[key]; want {
				if _, dup := topLookup[key]; !dup {
					topLookup[key] = b
				}
			}
		}
	}

	topNames := make([]string, len(items))
	for i, it := range items {
		topNames[i] = it.TopOrg
	}
	closeMatchRescue(topLookup, unresolvedOrgs(topLookup, topNames), orgLikeSpans(bodySpans), len(bodyText))

	var results []result.OrgResult
	for _, it := range items {
		topClean := strings.TrimSpace(textnorm.StripBold(it.TopOrg))

		b, found := topLookup[textnorm.OrgKey(it.TopOrg)]
		if !found {
			for _, sub := range it.SubOrgs {
				results = append(results, result.OrgResult{
					Org:    topClean,
					SubOrg: strings.TrimSpace(textnorm.StripBold(sub.Org)),
					Status: result.StatusOrgMissing,
					Docs:   []result.DocSlice{},
				})
			}
			continue
		}

		subKeys := make(map[string]struct{})
		for _, sub := range it.SubOrgs {
			subKeys[textnorm.OrgKey(sub.Org)] = struct{}{}
		}

		inBlock := span.Within(bodySpans, b.start, b.end)
		anchors := coalescedAnchors(orgLikeSpans(inBlock), bodyText, subKeys)
		if len(anchors) == 0 && len(subKeys) > 0 {
			anchors = coalescedAnchors(junkSpans(inBlock), bodyText, subKeys)
		}
		span.SortByStart(anchors)

		endByAnchor := make(map[int]int, len(anchors))
		for i, a := range anchors {
			if i+1 < len(anchors) {
				endByAnchor[a.Start] = anchors[i+1].Start
			} else {
				endByAnchor[a.Start] = b.end
			}
		}
		anchorsByKey := make(map[string][]span.Span)
		for _, a := range anchors {
			key := textnorm.OrgKey(a.Text)
			anchorsByKey[key] = append(anchorsByKey[key], a)
		}

		for _, sub := range it.SubOrgs {
			subClean := strings.TrimSpace(textnorm.StripBold(sub.Org))
			occurs := anchorsByKey[textnorm.OrgKey(sub.Org)]
			if len(occurs) == 0 {
				results = append(results, result.OrgResult{
					Org:    topClean,
					SubOrg: subClean,
					Status: result.StatusOrgMissing,
					Docs:   []result.DocSlice{},
				})
				continue
			}

			// Occurrences pair with expected documents purely by order.
			// Deliberately simple: mismatched counts degrade to partial
			// rather than attempting any content matching.
			var slices []result.DocSlice
			for _, occ := range occurs {
				slices = append(slices, result.DocSlice{
					Title:      strings.TrimSpace(textnorm.StripBold(occ.Text)),
					Text:       bodyText[occ.Start:endByAnchor[occ.Start]],
					Status:     result.StatusOK,
					Confidence: 1.0,
				})
			}
			matchedCount := len(slices)
			if len(sub.Docs) < matchedCount {
				matchedCount = len(sub.Docs)
			}
			docs := make([]result.DocSlice, 0, len(slices))
			for i := 0; i < matchedCount; i++ {
				docs = append(docs, result.DocSlice{
					Title:      strings.TrimSpace(textnorm.StripBold(sub.Docs[i])),
					Text:       slices[i].Text,
					Status:     result.StatusOK,
					Confidence: 1.0,
				})
			}
			docs = append(docs, slices[matchedCount:]...)

			status := result.StatusPartial
			if len(slices) == len(sub.Docs) && len(sub.Docs) == matchedCount {
				status = result.StatusOK
			}

			results = append(results, result.OrgResult{
				Org:       topClean,
				SubOrg:    subClean,
				Status:    status,
				BlockText: bodyText[occurs[0].Start:endByAnchor[occurs[len(occurs)-1].Start]],
				Docs:      docs,
			})
		}
	}
	return results
}
