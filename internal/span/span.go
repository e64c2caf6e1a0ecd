// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package span

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Label identifies the kind of a classified text span. The set is closed:
// the classifier contract guarantees exactly one of these per span, and all
// consumers switch exhaustively over it.
type Label int

const (
	LabelUnknown Label = iota
	LabelSumario
	LabelOrg
	LabelOrgStarred
	LabelDocName
	LabelDocText
	LabelParagraph
	LabelSignature
	LabelJunk
)

var labelNames = map[Label]string{
	LabelSumario:    "Sumario",
	LabelOrg:        "OrgLabel",
	LabelOrgStarred: "OrgStarredLabel",
	LabelDocName:    "DocNameLabel",
	LabelDocText:    "DocText",
	LabelParagraph:  "Paragraph",
	LabelSignature:  "Signature",
	LabelJunk:       "Junk",
}

var labelValues = func() map[string]Label {
	m := make(map[string]Label, len(labelNames))
	for l, n := range labelNames {
		m[n] = l
	}
	return m
}()

func (l Label) String() string {
	if n, ok := labelNames[l]; ok {
		return n
	}
	return "Unknown"
}

// ParseLabel converts the wire name of a label into its enum value.
func ParseLabel(s string) (Label, error) {
	if l, ok := labelValues[s]; ok {
		return l, nil
	}
	return LabelUnknown, fmt.Errorf("unknown span label %q", s)
}

// IsOrgLike reports whether the label names an issuing organization,
// starred or not.
func (l Label) IsOrgLike() bool {
	return l == LabelOrg || l == LabelOrgStarred
}

// IsContent reports whether the label carries document body text.
func (l Label) IsContent() bool {
	return l == LabelDocText || l == LabelParagraph
}

// MarshalJSON writes the label's wire name.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON reads the label's wire name.
func (l *Label) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseLabel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Span is the atomic unit received from the span classifier: a labeled
// substring of the bulletin with character offsets into the original text.
// Start < End always holds; spans in one stream are sorted by Start but
// are not guaranteed disjoint.
type Span struct {
	Label Label  `json:"label"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Valid reports whether the span honors the classifier contract.
func (s Span) Valid() bool {
	return s.Start < s.End
}

// Validate checks the classifier contract for a whole stream: each span has
// Start < End and the stream is sorted ascending by Start. A violation is a
// caller bug, so this fails fast instead of degrading.
func Validate(spans []Span) error {
	prev := -1
	for i, s := range spans {
		if !s.Valid() {
			return fmt.Errorf("span %d: start %d >= end %d", i, s.Start, s.End)
		}
		if s.Start < prev {
			return fmt.Errorf("span %d: stream not sorted by start (%d after %d)", i, s.Start, prev)
		}
		prev = s.Start
	}
	return nil
}

// FromJSON decodes a classified span stream and validates the contract.
func FromJSON(r io.Reader) ([]Span, error) {
	var spans []Span
	if err := json.NewDecoder(r).Decode(&spans); err != nil {
		return nil, fmt.Errorf("decoding span stream: %w", err)
	}
	if err := Validate(spans); err != nil {
		return nil, fmt.Errorf("span stream contract violation: %w", err)
	}
	return spans, nil
}

// Filter returns the spans whose label is in the given set, preserving order.
func Filter(spans []Span, labels ...Label) []Span {
	var out []Span
	for _, s := range spans {
		for _, l := range labels {
			if s.Label == l {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Within returns the spans starting inside [start, end), optionally filtered
// by label, preserving order.
func Within(spans []Span, start, end int, labels ...Label) []Span {
	var out []Span
	for _, s := range spans {
		if s.Start < start || s.Start >= end {
			continue
		}
		if len(labels) == 0 {
			out = append(out, s)
			continue
		}
		for _, l := range labels {
			if s.Label == l {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Rebase shifts the offsets of spans inside [start, end) so they are relative
// to start, dropping spans outside the range. Used to turn an absolute stream
// into one scoped to a summary or body slice.
func Rebase(spans []Span, start, end int) []Span {
	var out []Span
	for _, s := range spans {
		if s.Start < start || s.Start >= end {
			continue
		}
		r := s
		r.Start -= start
		r.End -= start
		if r.End > end-start {
			r.End = end - start
		}
		out = append(out, r)
	}
	return out
}

// SortByStart sorts a span slice ascending by start offset in place. The
// classifier emits sorted streams, but derived slices may need re-sorting.
func SortByStart(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
}
