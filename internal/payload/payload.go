// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package payload models the expected organization/document hierarchy
// derived from a bulletin summary. The shape is decided exactly once, at
// parse time, into a tagged union; downstream code switches on Kind instead
// of probing maps.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
)

// ErrInvalidPayload marks a payload whose shape cannot be understood.
// Processing is not attempted at all in that case (§ error taxonomy 3).
var ErrInvalidPayload = errors.New("invalid_payload")

// Kind tags the payload union.
type Kind int

const (
	// KindFlat: items each carry one organization plus its document names.
	KindFlat Kind = iota
	// KindHierarchical: items carry a starred top organization with
	// sub-organizations, each holding document names.
	KindHierarchical
	// KindWindowed: Serie III shape — a shared organization table plus
	// titled items referencing it by id, with child content lines.
	KindWindowed
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindHierarchical:
		return "hierarchical"
	default:
		return "windowed"
	}
}

// Org is an entry in the Serie III organization table.
type Org struct {
	ID   int        `json:"id"`
	Text string     `json:"text"`
	Lbl  span.Label `json:"label"`
}

// Child is a content line attached to a titled item.
type Child struct {
	Text string     `json:"child"`
	Lbl  span.Label `json:"label"`
}

// WindowedItem is one Serie III summary item.
type WindowedItem struct {
	ParagraphID     int      `json:"paragraph_id"`
	OrgIDs          []int    `json:"org_ids"`
	DocName         string   `json:"doc_name"`
	Children        []Child  `json:"children"`
	AllowedChildren []string `json:"allowed_children,omitempty"`
}

// FlatItem pairs one organization with its expected documents.
type FlatItem struct {
	ParagraphID int      `json:"paragraph_id"`
	Org         string   `json:"org"`
	Docs        []string `json:"docs"`
}

// SubOrg is a nested organization under a starred top organization.
type SubOrg struct {
	Org  string   `json:"org"`
	Docs []string `json:"docs"`
}

// HierItem is a starred-organization block with its sub-organizations.
type HierItem struct {
	ParagraphID int      `json:"paragraph_id"`
	TopOrg      string   `json:"top_org"`
	SubOrgs     []SubOrg `json:"sub_orgs"`
}

// Payload is the tagged union. Exactly one of the item slices is populated,
// matching Kind; Orgs is only meaningful for KindWindowed.
type Payload struct {
	Kind     Kind
	Orgs     []Org
	Windowed []WindowedItem
	Flat     []FlatItem
	Hier     []HierItem
}

// OrgMap returns the Serie III id→name table in ascending id order. An
// empty table yields the sentinel entry the segmenter expects.
func (p *Payload) OrgMap() ([]int, map[int]string) {
	names := make(map[int]string)
	for _, o := range p.Orgs {
		names[o.ID] = strings.TrimSpace(o.Text)
	}
	if len(names) == 0 {
		names[-1] = "(Sem organização)"
	}
	ids := make([]int, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, names
}

// ItemsByOrg groups windowed items under each referenced organization id.
func (p *Payload) ItemsByOrg() map[int][]WindowedItem {
	grouped := make(map[int][]WindowedItem)
	for _, it := range p.Windowed {
		for _, oid := range it.OrgIDs {
			grouped[oid] = append(grouped[oid], it)
		}
	}
	return grouped
}

// AllowedOrgNames returns every organization name the payload knows about,
// in a stable order, for the window builder.
func (p *Payload) AllowedOrgNames() []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := textnorm.OrgKey(s)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	switch p.Kind {
	case KindWindowed:
		for _, o := range p.Orgs {
			add(o.Text)
		}
	case KindFlat:
		for _, it := range p.Flat {
			add(it.Org)
		}
	case KindHierarchical:
		for _, it := range p.Hier {
			add(it.TopOrg)
			for _, s := range it.SubOrgs {
				add(s.Org)
			}
		}
	}
	return out
}

// AllowedChildTitles collects the child titles sub-segmentation may approve
// for one windowed item: the explicit allow-list plus the item's own child
// lines, deduplicated on a tight key.
func (it WindowedItem) AllowedChildTitles() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(raw string) {
		t := textnorm.NormalizeTitle(raw)
		if t == "" {
			return
		}
		key := strings.ToLower(textnorm.Tighten(t))
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	for _, t := range it.AllowedChildren {
		add(t)
	}
	for _, ch := range it.Children {
		add(textnorm.CollapseSpaces(ch.Text))
	}
	return out
}

// wire structures for shape detection

type wireDoc struct {
	Text string `json:"text"`
}

type wireOrg struct {
	Text string `json:"text"`
}

type wireItem struct {
	ParagraphID     *int      `json:"paragraph_id"`
	Org             *wireOrg  `json:"org"`
	Docs            []wireDoc `json:"docs"`
	TopOrg          *wireOrg  `json:"top_org"`
	SubOrgs         []struct {
		Org  wireOrg   `json:"org"`
		Docs []wireDoc `json:"docs"`
	} `json:"sub_orgs"`
	OrgIDs          []int     `json:"org_ids"`
	DocName         *wireDoc  `json:"doc_name"`
	Children        []Child   `json:"children"`
	AllowedChildren []string  `json:"allowed_children"`
}

type wirePayload struct {
	Orgs  []Org      `json:"orgs"`
	Items []wireItem `json:"items"`
}

// Parse decodes a JSON payload and decides its shape once. Any shape that
// fits none of the three schemas is ErrInvalidPayload.
func Parse(data []byte) (*Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return fromWire(w)
}

func fromWire(w wirePayload) (*Payload, error) {
	hierarchical := false
	windowed := len(w.Orgs) > 0
	for _, it := range w.Items {
		if it.TopOrg != nil {
			hierarchical = true
		}
		if len(it.OrgIDs) > 0 || it.DocName != nil || len(it.Children) > 0 {
			windowed = true
		}
	}

	p := &Payload{Orgs: w.Orgs}
	switch {
	case hierarchical:
		p.Kind = KindHierarchical
		for _, it := range w.Items {
			if it.TopOrg == nil {
				// A flat item inside a hierarchical payload still maps: treat
				// its single org as a top org with one anonymous sub-block.
				if it.Org == nil {
					return nil, fmt.Errorf("%w: item without top_org or org", ErrInvalidPayload)
				}
				p.Hier = append(p.Hier, HierItem{
					ParagraphID: pid(it.ParagraphID),
					TopOrg:      it.Org.Text,
					SubOrgs:     []SubOrg{{Org: it.Org.Text, Docs: docTexts(it.Docs)}},
				})
				continue
			}
			h := HierItem{ParagraphID: pid(it.ParagraphID), TopOrg: it.TopOrg.Text}
			for _, s := range it.SubOrgs {
				h.SubOrgs = append(h.SubOrgs, SubOrg{Org: s.Org.Text, Docs: docTexts(s.Docs)})
			}
			p.Hier = append(p.Hier, h)
		}
	case windowed:
		p.Kind = KindWindowed
		for _, it := range w.Items {
			item := WindowedItem{
				ParagraphID:     pid(it.ParagraphID),
				OrgIDs:          it.OrgIDs,
				Children:        it.Children,
				AllowedChildren: it.AllowedChildren,
			}
			if it.DocName != nil {
				item.DocName = it.DocName.Text
			}
			p.Windowed = append(p.Windowed, item)
		}
	default:
		p.Kind = KindFlat
		for _, it := range w.Items {
			if it.Org == nil {
				return nil, fmt.Errorf("%w: flat item without org", ErrInvalidPayload)
			}
			p.Flat = append(p.Flat, FlatItem{
				ParagraphID: pid(it.ParagraphID),
				Org:         it.Org.Text,
				Docs:        docTexts(it.Docs),
			})
		}
	}
	return p, nil
}

func pid(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func docTexts(docs []wireDoc) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Text)
	}
	return out
}
