// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package result holds the record types emitted by segmentation and the
// assembler that flattens them into the external output shape. Records are
// append-only during a run and never mutated after emission.
package result

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the closed set of per-record outcomes. Exactly one applies per
// record and it is always derived by the algorithms, never hand-set.
type Status int

const (
	StatusOK Status = iota
	StatusPartial
	StatusDocMissing
	StatusOrgMissing
	StatusDocTypeSegment
	StatusDocTypeUnanchored
	StatusChildrenSegment
	StatusOrgUnanchored
	StatusOrgAnchored
)

var statusNames = map[Status]string{
	StatusOK:                "ok",
	StatusPartial:           "partial",
	StatusDocMissing:        "doc_missing",
	StatusOrgMissing:        "org_missing",
	StatusDocTypeSegment:    "doc_type_segment",
	StatusDocTypeUnanchored: "doc_type_unanchored",
	StatusChildrenSegment:   "children_segment",
	StatusOrgUnanchored:     "org_unanchored",
	StatusOrgAnchored:       "org_anchored",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalJSON writes the snake_case wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// SubSlice is one sub-document produced by sub-segmentation. Offsets are
// relative to the parent slice's text.
type SubSlice struct {
	Title   string   `json:"title"`
	Headers []string `json:"headers"`
	Body    string   `json:"body"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
}

// DocSlice is one segmented document under an organization.
type DocSlice struct {
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	Status     Status     `json:"status"`
	Confidence float64    `json:"confidence"`
	Subs       []SubSlice `json:"subs,omitempty"`
}

// OrgResult groups the document slices of one organization (or one
// sub-organization occurrence in the hierarchical variant).
type OrgResult struct {
	Org       string     `json:"org"`
	SubOrg    string     `json:"sub_org,omitempty"`
	Status    Status     `json:"status"`
	BlockText string     `json:"-"`
	Docs      []DocSlice `json:"docs"`
}

// Document is the external per-document shape. Title and SubOrg are nil for
// the anonymous Series IV chunks.
type Document struct {
	Title  *string `json:"title"`
	SubOrg *string `json:"sub_org"`
	Text   string  `json:"text"`
}

// Item is the external per-organization shape, the sole consumed artifact.
type Item struct {
	Org    *string    `json:"org"`
	SubOrg *string    `json:"sub_org,omitempty"`
	Docs   []Document `json:"docs"`
}

func strPtr(s string) *string { return &s }

func oneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// FlattenWindowed reduces Serie III org results to the external shape. Only
// titled sub-slices survive; each document's text is recomposed as
// organization, title, blank line, body (title alone when the body is empty).
func FlattenWindowed(results []OrgResult) []Item {
	out := make([]Item, 0, len(results))
	for _, r := range results {
		org := oneLine(r.Org)
		item := Item{Org: strPtr(org), Docs: []Document{}}
		for _, d := range r.Docs {
			for _, sub := range d.Subs {
				title := sub.Title
				if title == "" {
					continue
				}
				text := title
				if sub.Body != "" {
					text = org + "\n" + title + "\n\n" + sub.Body
				}
				item.Docs = append(item.Docs, Document{Title: strPtr(title), Text: text})
			}
		}
		out = append(out, item)
	}
	return out
}

// FlattenHierarchical reduces Serie I/II org results to the external shape.
// The sub-organization line is interposed between organization and title
// when present.
func FlattenHierarchical(results []OrgResult) []Item {
	out := make([]Item, 0, len(results))
	for _, r := range results {
		org := oneLine(r.Org)
		item := Item{Org: strPtr(org), Docs: []Document{}}
		var subPtr *string
		if r.SubOrg != "" {
			subPtr = strPtr(r.SubOrg)
			item.SubOrg = subPtr
		}
		for _, d := range r.Docs {
			var b strings.Builder
			b.WriteString(org)
			b.WriteString("\n")
			if r.SubOrg != "" {
				b.WriteString(r.SubOrg)
				b.WriteString("\n")
			}
			b.WriteString(d.Title)
			b.WriteString("\n\n")
			b.WriteString(d.Text)
			item.Docs = append(item.Docs, Document{
				Title:  strPtr(d.Title),
				SubOrg: subPtr,
				Text:   b.String(),
			})
		}
		out = append(out, item)
	}
	return out
}

// FlattenChunks wraps anonymous Series IV chunks as a single item with no
// organization.
func FlattenChunks(chunks []string) []Item {
	docs := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, Document{Text: c})
	}
	return []Item{{Docs: docs}}
}
