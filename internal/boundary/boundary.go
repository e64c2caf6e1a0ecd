// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package boundary locates the split between a bulletin's summary region and
// its body. The rule: take the last "Sumário" heading, remember the first
// organization announced after it, and cut where that organization repeats.
// Every outcome is data — a reason code plus two text slices — never an error.
package boundary

import (
	"strings"

	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
)

// Reason explains a degraded split. ReasonNone means the split succeeded.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoSumario
	ReasonNoOrgAfterSumario
	ReasonNoRepeatMatch
)

func (r Reason) String() string {
	switch r {
	case ReasonNoSumario:
		return "no_sumario"
	case ReasonNoOrgAfterSumario:
		return "no_org_after_sumario"
	case ReasonNoRepeatMatch:
		return "no_repeat_match"
	default:
		return ""
	}
}

// Split is the boundary detection outcome. When HasSummary is false the
// whole text is body. BodyStart is the absolute offset where the body
// begins; SummaryStart is the offset right after the heading.
type Split struct {
	Summary      string
	Body         string
	SummaryStart int
	BodyStart    int
	HasSummary   bool
	Reason       Reason

	// Diagnostic fields mirroring what was matched.
	FirstOrg    string
	BoundaryOrg string
}

// Detect runs the split rule over a classified span stream and its text.
// Pure function: identical inputs always produce the identical triple.
func Detect(spans []span.Span, text string) Split {
	out := Split{Body: text}

	// The LAST heading wins; stray "Sumário" strings earlier in the text
	// must not move the boundary.
	var heading *span.Span
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].Label == span.LabelSumario {
			heading = &spans[i]
			break
		}
	}
	if heading == nil {
		out.Reason = ReasonNoSumario
		return out
	}

	out.HasSummary = true
	out.SummaryStart = heading.End

	var orgsAfter []span.Span
	for _, s := range spans {
		if s.Start >= heading.End && s.Label.IsOrgLike() {
			orgsAfter = append(orgsAfter, s)
		}
	}
	if len(orgsAfter) == 0 {
		out.Reason = ReasonNoOrgAfterSumario
		out.Summary = text[heading.End:]
		out.Body = ""
		out.BodyStart = len(text)
		return out
	}

	first := orgsAfter[0]
	key := textnorm.LettersOnly(first.Text)
	out.FirstOrg = first.Text

	boundary := findRepeat(orgsAfter[1:], key)
	if boundary == nil {
		// Junk spans sometimes swallow the repeated header; scan them with
		// the same two passes before giving up.
		junkAfter := make([]span.Span, 0)
		for _, s := range spans {
			if s.Start >= heading.End && s.Label == span.LabelJunk {
				junkAfter = append(junkAfter, s)
			}
		}
		boundary = findRepeat(junkAfter, key)
	}

	if boundary == nil {
		out.Reason = ReasonNoRepeatMatch
		out.Summary = text[heading.End:]
		out.Body = ""
		out.BodyStart = len(text)
		return out
	}

	out.BoundaryOrg = boundary.Text
	out.BodyStart = boundary.Start
	out.Summary = text[heading.End:boundary.Start]
	out.Body = text[boundary.Start:]
	return out
}

// findRepeat scans candidates for the first whose letters-only text equals
// the key; failing that, the first whose letters-only text is a strict
// substring of the key.
func findRepeat(candidates []span.Span, key string) *span.Span {
	for i, c := range candidates {
		if textnorm.LettersOnly(c.Text) == key {
			return &candidates[i]
		}
	}
	for i, c := range candidates {
		cur := textnorm.LettersOnly(c.Text)
		if cur != "" && len(cur) < len(key) && strings.Contains(key, cur) {
			return &candidates[i]
		}
	}
	return nil
}
