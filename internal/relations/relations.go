// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package relations derives organization/document relations from a summary's
// classified spans. Extraction is deterministic and label-driven: entity
// order and offsets decide everything, sentence structure is never used.
package relations

import (
	"regexp"
	"strings"

	"boletim-scan/internal/payload"
	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
)

// Kind is the closed set of relation kinds, derived from the head and tail
// labels of a linked pair.
type Kind int

const (
	KindOrgDoc Kind = iota // org → document name
	KindOrgStar            // org → starred org
	KindStarOrg            // starred org → sub-org
	KindStarDoc            // starred org → document name
	KindDocBody            // document name → content line
	KindOrgBody            // org → content line (Serie III fallback only)
)

func (k Kind) String() string {
	switch k {
	case KindOrgDoc:
		return "org->doc_name"
	case KindOrgStar:
		return "org->org*"
	case KindStarOrg:
		return "org*->org"
	case KindStarDoc:
		return "org*->doc_name"
	case KindDocBody:
		return "doc_name->body"
	default:
		return "org->body"
	}
}

// Entity is a classified span tagged with the summary paragraph it belongs
// to. ParagraphID is -1 for spans seen before the first paragraph opener.
type Entity struct {
	span.Span
	ParagraphID int
}

// Relation links two entities of one paragraph, left to right.
type Relation struct {
	Head        Entity
	Tail        Entity
	Kind        Kind
	ParagraphID int
	Evidence    string
}

// Extract runs the common (Series I, II, IV) paragraph grouping and pairing
// over the summary spans. A starred org always opens a paragraph and a star
// block; a plain org opens a paragraph only outside a star block.
func Extract(spans []span.Span, text string) []Relation {
	entities := collectCommon(spans)

	var out []Relation
	for _, seq := range groupByParagraph(entities) {
		starBlock := len(seq) > 0 && seq[0].Label == span.LabelOrgStarred
		out = append(out, extractParagraph(text, seq, starBlock)...)
	}
	return out
}

func collectCommon(spans []span.Span) []Entity {
	var collected []Entity
	pid := -1
	inStarBlock := false

	for _, s := range spans {
		switch s.Label {
		case span.LabelOrgStarred:
			pid++
			inStarBlock = true
		case span.LabelOrg:
			if !inStarBlock {
				pid++
			}
		case span.LabelDocName, span.LabelDocText, span.LabelParagraph:
			// attach to current paragraph
		default:
			continue
		}
		collected = append(collected, Entity{Span: s, ParagraphID: pid})
	}
	return collected
}

func pairKind(head, tail span.Label) (Kind, bool) {
	switch {
	case head == span.LabelOrg && tail == span.LabelDocName:
		return KindOrgDoc, true
	case head == span.LabelOrg && tail == span.LabelOrgStarred:
		return KindOrgStar, true
	case head == span.LabelOrgStarred && tail == span.LabelOrg:
		return KindStarOrg, true
	case head == span.LabelOrgStarred && tail == span.LabelDocName:
		return KindStarDoc, true
	case head == span.LabelDocName && tail.IsContent():
		return KindDocBody, true
	}
	return 0, false
}

func extractParagraph(text string, seq []Entity, starBlock bool) []Relation {
	var out []Relation

	if starBlock && len(seq) > 0 && seq[0].Label == span.LabelOrgStarred {
		star := seq[0]
		pid := star.ParagraphID

		for _, e := range seq[1:] {
			if e.Label == span.LabelOrg {
				out = append(out, Relation{
					Head: star, Tail: e, Kind: KindStarOrg,
					ParagraphID: pid,
					Evidence:    evidence(text, star.Span, e.Span),
				})
			}
		}

		// Each sub-org owns the entities up to the next org of either kind.
		for i := 1; i < len(seq); i++ {
			if seq[i].Label != span.LabelOrg {
				continue
			}
			end := len(seq)
			for k := i + 1; k < len(seq); k++ {
				if seq[k].Label.IsOrgLike() {
					end = k
					break
				}
			}
			out = append(out, extractBlock(text, seq[i:end])...)
		}

		return pruneStarDocs(out)
	}

	out = extractBlock(text, seq)
	return pruneStarDocs(out)
}

// pruneStarDocs removes ORG*→DOC_NAME relations whose document already hangs
// off a sub-org; keeping both would double-count the document.
func pruneStarDocs(rels []Relation) []Relation {
	hasSubOrg := false
	for _, r := range rels {
		if r.Kind == KindStarOrg {
			hasSubOrg = true
			break
		}
	}
	if !hasSubOrg {
		return rels
	}
	owned := make(map[string]struct{})
	for _, r := range rels {
		if r.Kind == KindOrgDoc {
			owned[r.Tail.Text] = struct{}{}
		}
	}
	out := rels[:0]
	for _, r := range rels {
		if r.Kind == KindStarDoc {
			if _, ok := owned[r.Tail.Text]; ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// extractBlock does the standard left-to-right pairing inside one block.
// A head links at most once per tail label, except document names (an org
// announces many documents) and sub-orgs under a star.
func extractBlock(text string, seq []Entity) []Relation {
	var out []Relation
	linked := make(map[int]map[span.Label]struct{})

	for i, head := range seq {
		switch head.Label {
		case span.LabelOrg, span.LabelOrgStarred, span.LabelDocName:
		default:
			continue
		}
		already := linked[head.Start]
		if already == nil {
			already = make(map[span.Label]struct{})
			linked[head.Start] = already
		}

		for j := i + 1; j < len(seq); j++ {
			tail := seq[j]
			kind, ok := pairKind(head.Label, tail.Label)
			if !ok {
				continue
			}

			allowMulti := (head.Label == span.LabelOrgStarred && tail.Label == span.LabelOrg) ||
				tail.Label == span.LabelDocName
			if !allowMulti {
				if _, dup := already[tail.Label]; dup {
					continue
				}
			}

			out = append(out, Relation{
				Head: head, Tail: tail, Kind: kind,
				ParagraphID: head.ParagraphID,
				Evidence:    evidence(text, head.Span, tail.Span),
			})
			if !allowMulti {
				already[tail.Label] = struct{}{}
			}
		}
	}
	return out
}

func evidence(text string, head, tail span.Span) string {
	if head.End < 0 || tail.Start > len(text) || head.End > tail.Start {
		return ""
	}
	return strings.TrimSpace(text[head.End:tail.Start])
}

// ExtractSerieIII runs the Serie III grouping: every document name opens a
// paragraph and the most recent org is propagated into it. Content lines
// attach to the current paragraph.
func ExtractSerieIII(spans []span.Span, text string) []Relation {
	entities := collectSerieIII(spans)

	var out []Relation
	for _, seq := range groupByParagraph(entities) {
		out = append(out, extractSerieIIIParagraph(text, seq)...)
	}
	return out
}

func collectSerieIII(spans []span.Span) []Entity {
	var collected []Entity
	pid := -1
	started := false
	var lastOrg *span.Span

	for i, s := range spans {
		switch {
		case s.Label.IsOrgLike():
			lastOrg = &spans[i]
			if !started {
				pid++
				started = true
			}
			collected = append(collected, Entity{Span: s, ParagraphID: pid})

		case s.Label == span.LabelDocName:
			pid++
			started = true
			if lastOrg != nil {
				collected = append(collected, Entity{Span: *lastOrg, ParagraphID: pid})
			}
			collected = append(collected, Entity{Span: s, ParagraphID: pid})

		case s.Label.IsContent():
			collected = append(collected, Entity{Span: s, ParagraphID: pid})
		}
	}
	return collected
}

// extractSerieIIIParagraph pairs one Serie III paragraph. Without a document
// name only the FIRST org links to the bodies, so children are never
// multiplied by the org count.
func extractSerieIIIParagraph(text string, seq []Entity) []Relation {
	var out []Relation

	hasDocName := false
	for _, e := range seq {
		if e.Label == span.LabelDocName {
			hasDocName = true
			break
		}
	}

	if !hasDocName {
		var org *Entity
		for i := range seq {
			if seq[i].Label.IsOrgLike() {
				org = &seq[i]
				break
			}
		}
		if org == nil {
			return nil
		}
		for _, e := range seq {
			if !e.Label.IsContent() {
				continue
			}
			out = append(out, Relation{
				Head: *org, Tail: e, Kind: KindOrgBody,
				ParagraphID: org.ParagraphID,
				Evidence:    evidence(text, org.Span, e.Span),
			})
		}
		return out
	}

	for i, head := range seq {
		switch head.Label {
		case span.LabelOrg, span.LabelOrgStarred, span.LabelDocName:
		default:
			continue
		}
		for j := i + 1; j < len(seq); j++ {
			tail := seq[j]
			var kind Kind
			switch {
			case head.Label == span.LabelOrg && tail.Label == span.LabelDocName:
				kind = KindOrgDoc
			case head.Label == span.LabelOrgStarred && tail.Label == span.LabelDocName:
				kind = KindStarDoc
			case head.Label == span.LabelDocName && tail.Label.IsContent():
				kind = KindDocBody
			default:
				continue
			}
			out = append(out, Relation{
				Head: head, Tail: tail, Kind: kind,
				ParagraphID: head.ParagraphID,
				Evidence:    evidence(text, head.Span, tail.Span),
			})
		}
	}
	return out
}

// groupByParagraph buckets relations' entities by paragraph id, preserving
// first-seen order of paragraphs and entity order inside each.
func groupByParagraph(entities []Entity) [][]Entity {
	index := make(map[int]int)
	var groups [][]Entity
	for _, e := range entities {
		i, ok := index[e.ParagraphID]
		if !ok {
			i = len(groups)
			index[e.ParagraphID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

// normKey normalizes text for export-time dedup keys only; display always
// uses the original text.
func normKey(s string) string {
	s = textnorm.CollapseSpaces(s)
	s = hyphenSpaceRe.ReplaceAllString(s, "-")
	s = commaSpaceRe.ReplaceAllString(s, ", ")
	return strings.ToUpper(s)
}

var (
	hyphenSpaceRe = regexp.MustCompile(`\s*-\s*`)
	commaSpaceRe  = regexp.MustCompile(`\s*,\s*`)
)

// ExportItems folds common-extractor relations into the expected payload.
// Paragraphs containing ORG*→ORG links become hierarchical items; plain
// paragraphs become flat items. The payload kind is hierarchical as soon as
// any star paragraph exists.
func ExportItems(rels []Relation) *payload.Payload {
	groups, pids := groupRelations(rels)

	anyStar := false
	for _, g := range groups {
		for _, r := range g {
			if r.Kind == KindStarOrg {
				anyStar = true
			}
		}
	}

	p := &payload.Payload{}
	if anyStar {
		p.Kind = payload.KindHierarchical
	} else {
		p.Kind = payload.KindFlat
	}

	for gi, g := range groups {
		pid := pids[gi]

		var starLinks []Relation
		for _, r := range g {
			if r.Kind == KindStarOrg {
				starLinks = append(starLinks, r)
			}
		}

		if len(starLinks) > 0 {
			item := payload.HierItem{ParagraphID: pid, TopOrg: starLinks[0].Head.Text}

			var subOrder []string
			subText := make(map[string]string)
			for _, r := range starLinks {
				key := normKey(r.Tail.Text)
				if _, ok := subText[key]; !ok {
					subText[key] = r.Tail.Text
					subOrder = append(subOrder, key)
				}
			}

			docsByOrg := make(map[string][]string)
			seenDocs := make(map[string]map[string]struct{})
			for _, r := range g {
				if r.Kind != KindOrgDoc || r.Head.Label != span.LabelOrg {
					continue
				}
				orgKey := normKey(r.Head.Text)
				docKey := normKey(r.Tail.Text)
				if seenDocs[orgKey] == nil {
					seenDocs[orgKey] = make(map[string]struct{})
				}
				if _, dup := seenDocs[orgKey][docKey]; dup {
					continue
				}
				seenDocs[orgKey][docKey] = struct{}{}
				docsByOrg[orgKey] = append(docsByOrg[orgKey], r.Tail.Text)
			}

			for _, key := range subOrder {
				item.SubOrgs = append(item.SubOrgs, payload.SubOrg{
					Org:  subText[key],
					Docs: docsByOrg[key],
				})
			}
			p.Hier = append(p.Hier, item)
			continue
		}

		var orgDoc []Relation
		for _, r := range g {
			if r.Kind == KindOrgDoc && r.Head.Label == span.LabelOrg {
				orgDoc = append(orgDoc, r)
			}
		}
		if len(orgDoc) == 0 {
			continue
		}
		primary := orgDoc[0].Head
		primaryKey := normKey(primary.Text)

		var docs []string
		seen := make(map[string]struct{})
		for _, r := range orgDoc {
			if normKey(r.Head.Text) != primaryKey {
				continue
			}
			key := normKey(r.Tail.Text)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			docs = append(docs, r.Tail.Text)
		}

		if anyStar {
			p.Hier = append(p.Hier, payload.HierItem{
				ParagraphID: pid,
				TopOrg:      primary.Text,
				SubOrgs:     []payload.SubOrg{{Org: primary.Text, Docs: docs}},
			})
		} else {
			p.Flat = append(p.Flat, payload.FlatItem{
				ParagraphID: pid,
				Org:         primary.Text,
				Docs:        docs,
			})
		}
	}
	return p
}

var (
	// Legal references like "n.º 6/2025", "N.º12", "No. 3/2024", "nº 12".
	legalRefRe = regexp.MustCompile(`(?i)\bn\s*(?:[.\x{00BA}\x{00B0}o]\s*){0,2}\d+(?:\s*/\s*\d+)?\b`)
	// Leading list prefixes like "3 4 - " or "(3) (4) — ".
	listPrefixRe = regexp.MustCompile(`^\s*(?:\(?\d+\)?(?:\s+\(?\d+\)?){0,3})\s*[-\x{2013}\x{2014}]\s*`)
	// Whole numeric tokens like "89", "(7)", "4/2025", "3.14". Applied per
	// token so ordinal markers ("22.º") survive naturally.
	numTokenRe = regexp.MustCompile(`^\(?\d+(?:[.,]\d+)?(?:/\d+)?\)?$`)
)

// CleanChildText normalizes one summary content line: leading list prefixes
// go, dot leaders become a period, dash runs collapse, and standalone
// numeric tokens are dropped. Lines left with no letters and no legal
// reference are discarded entirely (empty return).
func CleanChildText(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}

	t = listPrefixRe.ReplaceAllString(t, "")

	if legalRefRe.MatchString(t) {
		t = textnorm.DotLeadersToPeriod(t)
		t = textnorm.CollapseDashRuns(t)
		return textnorm.CollapseSpaces(t)
	}

	t = textnorm.DotLeadersToPeriod(t)
	t = textnorm.CollapseDashRuns(t)

	fields := strings.Fields(t)
	kept := fields[:0]
	for _, f := range fields {
		if numTokenRe.MatchString(f) {
			continue
		}
		kept = append(kept, f)
	}
	t = strings.Join(kept, " ")

	if t == "" {
		return ""
	}
	if !textnorm.HasLetters(t) && !legalRefRe.MatchString(t) {
		return ""
	}
	return t
}

// ExportSerieIII folds Serie III relations into the windowed payload: a
// document-wide org table with ids, plus one item per paragraph carrying its
// org ids, document name (possibly absent) and cleaned children.
func ExportSerieIII(rels []Relation) *payload.Payload {
	groups, pids := groupRelations(rels)

	p := &payload.Payload{Kind: payload.KindWindowed}

	type orgKey struct {
		text  string
		label span.Label
	}
	orgIDs := make(map[orgKey]int)
	getOrgID := func(text string, label span.Label) int {
		k := orgKey{text, label}
		if id, ok := orgIDs[k]; ok {
			return id
		}
		id := len(orgIDs) + 1
		orgIDs[k] = id
		p.Orgs = append(p.Orgs, payload.Org{ID: id, Text: text, Lbl: label})
		return id
	}

	for gi, g := range groups {
		pid := pids[gi]

		var ids []int
		seenLocal := make(map[int]struct{})
		for _, r := range g {
			if !r.Head.Label.IsOrgLike() {
				continue
			}
			switch r.Kind {
			case KindOrgDoc, KindStarDoc, KindOrgBody:
			default:
				continue
			}
			id := getOrgID(r.Head.Text, r.Head.Label)
			if _, dup := seenLocal[id]; dup {
				continue
			}
			seenLocal[id] = struct{}{}
			ids = append(ids, id)
		}

		var docName string
		hasDoc := false
		for _, r := range g {
			if r.Kind == KindOrgDoc || r.Kind == KindStarDoc {
				docName = r.Tail.Text
				hasDoc = true
				break
			}
		}
		if !hasDoc {
			for _, r := range g {
				if r.Head.Label == span.LabelDocName {
					docName = r.Head.Text
					hasDoc = true
					break
				}
			}
		}

		wantKind := KindDocBody
		if !hasDoc {
			wantKind = KindOrgBody
		}
		var children []payload.Child
		for _, r := range g {
			if r.Kind != wantKind {
				continue
			}
			cleaned := CleanChildText(r.Tail.Text)
			if cleaned == "" {
				continue
			}
			children = append(children, payload.Child{Text: cleaned, Lbl: r.Tail.Label})
		}

		p.Windowed = append(p.Windowed, payload.WindowedItem{
			ParagraphID: pid,
			OrgIDs:      ids,
			DocName:     docName,
			Children:    children,
		})
	}
	return p
}

func groupRelations(rels []Relation) ([][]Relation, []int) {
	index := make(map[int]int)
	var groups [][]Relation
	var pids []int
	for _, r := range rels {
		i, ok := index[r.ParagraphID]
		if !ok {
			i = len(groups)
			index[r.ParagraphID] = i
			groups = append(groups, nil)
			pids = append(pids, r.ParagraphID)
		}
		groups[i] = append(groups[i], r)
	}
	return groups, pids
}
