// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package segment turns a bulletin body plus its expected payload into
// per-organization document slices. Two variants exist: the windowed-header
// engine (Serie III) anchors document titles inside organization windows,
// the hierarchical-anchor engine (Series I and II) slices organization
// blocks by document-name headers.
package segment

import (
	"sort"
	"strings"

	"boletim-scan/internal/fuzzy"
	"boletim-scan/internal/payload"
	"boletim-scan/internal/result"
	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
	"boletim-scan/internal/windows"
)

// ReparseFunc re-classifies a text slice into spans. Sub-segmentation uses
// it to scan segment text for child headers without coupling this package
// to any particular classifier.
type ReparseFunc func(text string) []span.Span

// Options carries the segmentation tunables and collaborators.
type Options struct {
	Matcher   *fuzzy.Matcher
	Reparse   ReparseFunc
	Subdivide bool
}

func (o *Options) matcher() *fuzzy.Matcher {
	if o.Matcher != nil {
		return o.Matcher
	}
	return fuzzy.NewMatcher(fuzzy.Thresholds{})
}

// anchor is a claimed body header for one payload item.
type anchor struct {
	start       int
	end         int
	windowIndex int // -1 when outside every window
	confidence  float64
}

// claims tracks which body spans are already owned by an earlier payload
// item. It is created per run and threaded through the passes; a span serves
// at most one item.
type claims map[[2]int]struct{}

func (c claims) has(s span.Span) bool {
	_, ok := c[[2]int{s.Start, s.End}]
	return ok
}

func (c claims) take(s span.Span) {
	c[[2]int{s.Start, s.End}] = struct{}{}
}

// matchDocHeaders anchors every titled payload item to an unclaimed
// document-name span, in four decreasing-confidence passes over the whole
// item list. Sweeping pass by pass, not item by item, keeps a strong match
// for one title from being stolen by a weaker earlier item. The returned
// slice is index-aligned with items; nil means unanchored.
func matchDocHeaders(bodySpans []span.Span, items []payload.WindowedItem, wins []windows.Window, m *fuzzy.Matcher) []*anchor {
	type bodyTitle struct {
		sp    span.Span
		forms fuzzy.Forms
	}
	var bodies []bodyTitle
	for _, s := range bodySpans {
		if s.Label != span.LabelDocName {
			continue
		}
		if textnorm.NormalizeTitle(s.Text) == "" {
			continue
		}
		bodies = append(bodies, bodyTitle{sp: s, forms: fuzzy.MakeForms(s.Text)})
	}

	type payloadTitle struct {
		index int
		forms fuzzy.Forms
	}
	var titles []payloadTitle
	for i, it := range items {
		if textnorm.NormalizeTitle(it.DocName) == "" {
			continue
		}
		titles = append(titles, payloadTitle{index: i, forms: fuzzy.MakeForms(it.DocName)})
	}

	anchors := make([]*anchor, len(items))
	owned := make(claims)

	claim := func(idx int, sp span.Span, confidence float64) {
		owned.take(sp)
		anchors[idx] = &anchor{
			start:       sp.Start,
			end:         sp.End,
			windowIndex: locateWindow(sp.Start, wins),
			confidence:  confidence,
		}
	}

	for _, tier := range []fuzzy.Tier{fuzzy.TierExact, fuzzy.TierTight, fuzzy.TierLetters} {
		for _, pt := range titles {
			if anchors[pt.index] != nil {
				continue
			}
			for _, bt := range bodies {
				if owned.has(bt.sp) {
					continue
				}
				if conf, ok := m.CompareTier(tier, pt.forms, bt.forms); ok {
					claim(pt.index, bt.sp, conf)
					break
				}
			}
		}
	}

	// Containment pass runs longest titles first so a long noisy title is
	// not swallowed by a shorter one sharing its skeleton.
	order := make([]payloadTitle, len(titles))
	copy(order, titles)
	sort.SliceStable(order, func(i, j int) bool {
		return len(order[i].forms.Letters) > len(order[j].forms.Letters)
	})
	for _, pt := range order {
		if anchors[pt.index] != nil || pt.forms.Letters == "" {
			continue
		}
		var best *bodyTitle
		bestConf := 0.0
		for i := range bodies {
			bt := &bodies[i]
			if owned.has(bt.sp) {
				continue
			}
			if conf, ok := m.CompareTier(fuzzy.TierContainment, pt.forms, bt.forms); ok && conf > bestConf {
				bestConf = conf
				best = bt
			}
		}
		if best != nil {
			claim(pt.index, best.sp, bestConf)
		}
	}

	return anchors
}

func locateWindow(pos int, wins []windows.Window) int {
	for i, w := range wins {
		if w.Start <= pos && pos < w.End {
			return i
		}
	}
	return -1
}

// nextBoundsPerWindow maps each anchored start offset to the next anchored
// start within the same window, or the window end for the last one.
func nextBoundsPerWindow(anchors []*anchor, wins []windows.Window) map[int]map[int]int {
	startsByWin := make(map[int][]int)
	for _, a := range anchors {
		if a == nil || a.windowIndex < 0 {
			continue
		}
		startsByWin[a.windowIndex] = append(startsByWin[a.windowIndex], a.start)
	}

	bounds := make(map[int]map[int]int)
	for winIdx, starts := range startsByWin {
		sort.Ints(starts)
		starts = dedupInts(starts)
		m := make(map[int]int, len(starts))
		for i, st := range starts {
			if i+1 < len(starts) {
				m[st] = starts[i+1]
			} else {
				m[st] = wins[winIdx].End
			}
		}
		bounds[winIdx] = m
	}
	return bounds
}

func dedupInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// SegmentWindowed is the Serie III engine: anchor titled items to document
// headers inside organization windows, slice from each header's end to the
// next anchored header (or window end), and subdivide each segment by its
// payload-approved child titles. Untitled items take their whole window as
// one children segment.
func SegmentWindowed(bodyText string, bodySpans []span.Span, p *payload.Payload, opts Options) []result.OrgResult {
	m := opts.matcher()

	ids, names := p.OrgMap()
	wins := windows.Collect(bodySpans, bodyText, p.AllowedOrgNames())
	anchors := matchDocHeaders(bodySpans, p.Windowed, wins, m)
	bounds := nextBoundsPerWindow(anchors, wins)
	itemsByOrg := p.ItemsByOrg()

	var results []result.OrgResult
	for _, orgID := range ids {
		orgName := names[orgID]

		winIdx, anchored := windows.MatchOrg(orgName, wins)
		winStatus := result.StatusOrgUnanchored
		if anchored {
			winStatus = result.StatusOrgAnchored
		}

		items := append([]payload.WindowedItem(nil), itemsByOrg[orgID]...)
		// Items without a paragraph id sort last, everything else by id.
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].ParagraphID, items[j].ParagraphID
			if (a < 0) != (b < 0) {
				return b < 0
			}
			return a < b
		})

		orgResult := result.OrgResult{Org: orgName, Status: winStatus, Docs: []result.DocSlice{}}

		for _, item := range items {
			idx := indexOfItem(p.Windowed, item)
			title := textnorm.NormalizeTitle(item.DocName)
			var a *anchor
			if idx >= 0 {
				a = anchors[idx]
			}

			// Untitled item: the whole best-scoring window is its segment,
			// even when the org never anchored; the org-level status already
			// records how trustworthy the window choice is.
			if a == nil && title == "" && winIdx >= 0 {
				w := wins[winIdx]
				segText := bodyText[w.Start:w.End]
				ds := result.DocSlice{
					Title:      "(Empty)",
					Text:       segText,
					Status:     result.StatusChildrenSegment,
					Confidence: 0.5,
				}
				subdivideInto(&ds, segText, item, opts, m)
				orgResult.Docs = append(orgResult.Docs, ds)
				continue
			}

			if a == nil {
				orgResult.Docs = append(orgResult.Docs, result.DocSlice{
					Title:      title,
					Status:     result.StatusDocTypeUnanchored,
					Confidence: 0,
				})
				continue
			}

			end := len(bodyText)
			if a.windowIndex >= 0 {
				if b, ok := bounds[a.windowIndex][a.start]; ok {
					end = b
				} else {
					end = wins[a.windowIndex].End
				}
			}
			// Content starts after the header span; the segment never
			// includes its own title line.
			segText := bodyText[a.end:end]

			ds := result.DocSlice{
				Title:      title,
				Text:       segText,
				Status:     result.StatusDocTypeSegment,
				Confidence: a.confidence,
			}
			subdivideInto(&ds, segText, item, opts, m)
			orgResult.Docs = append(orgResult.Docs, ds)
		}

		results = append(results, orgResult)
	}
	return results
}

func indexOfItem(items []payload.WindowedItem, it payload.WindowedItem) int {
	for i := range items {
		if items[i].ParagraphID == it.ParagraphID && items[i].DocName == it.DocName {
			return i
		}
	}
	return -1
}

func subdivideInto(ds *result.DocSlice, segText string, item payload.WindowedItem, opts Options, m *fuzzy.Matcher) {
	if !opts.Subdivide || opts.Reparse == nil || strings.TrimSpace(segText) == "" {
		return
	}
	ds.Subs = Subdivide(segText, item.AllowedChildTitles(), opts.Reparse, m)
}
