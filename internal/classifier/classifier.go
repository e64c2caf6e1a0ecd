// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package classifier produces the labeled span stream the engine consumes
// from bulletin text carrying markdown-style bold markers. Rules are
// line-based: ALL-CAPS runs are organizations, bold mixed-case lines are
// document names, signature closings and junk lines get their own labels,
// everything else is content.
package classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"boletim-scan/internal/span"
)

var (
	sumarioRe   = regexp.MustCompile(`(?i)^#*\s*\**\s*sum[a\x{00E1}]rio\s*\**\s*$`)
	junkRe      = regexp.MustCompile(`^[\d\s\-\x{2013}\x{2014}.,;:\x{00B7}\x{2022}*'"` + "`" + `\x{00B4}+=()\[\]{}/\\<>~^_|]{1,20}$`)
	signatureRe = regexp.MustCompile(`(?i)^\**\s*\(?[oa]s?\s+(presidente|secret[a\x{00E1}]ri[oa]|diretor|director|chefe|coordenador|vogal|reitor|provedor|tesoureir[oa])`)
	boldLineRe  = regexp.MustCompile(`^\s*\*\*(.+)\*\*\s*$`)
)

type line struct {
	start   int // offset of first non-space rune
	end     int // offset past last non-space rune
	content string
}

func splitLines(text string) []line {
	var out []line
	pos := 0
	for pos <= len(text) {
		nl := strings.IndexByte(text[pos:], '\n')
		raw := ""
		lineEnd := len(text)
		if nl >= 0 {
			raw = text[pos : pos+nl]
			lineEnd = pos + nl
		} else {
			raw = text[pos:]
		}
		trimmed := strings.TrimSpace(raw)
		leading := strings.Index(raw, trimmed)
		if trimmed == "" {
			out = append(out, line{start: pos, end: pos, content: ""})
		} else {
			out = append(out, line{
				start:   pos + leading,
				end:     pos + leading + len(trimmed),
				content: trimmed,
			})
		}
		if nl < 0 {
			break
		}
		pos = lineEnd + 1
	}
	return out
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// orgEligible marks an ALL-CAPS heading line: letters present, none of
// them lowercase.
func orgEligible(s string) bool {
	return hasLetter(s) && !hasLower(s)
}

func isJunk(s string) bool {
	if s == "" || strings.Contains(s, "|") || hasLetter(s) {
		return false
	}
	return junkRe.MatchString(s)
}

// docNameEligible marks a bold line that names a document: bold markers
// plus at least one lowercase letter (organizations are ALL-CAPS).
func docNameEligible(s string) bool {
	return boldLineRe.MatchString(s) && hasLower(s)
}

func endsWithStop(s string) bool {
	t := strings.TrimRight(strings.TrimSuffix(strings.TrimSpace(s), "**"), " ")
	if t == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(t)
	return strings.ContainsRune(".:;?!…", last)
}

// Classify scans bulletin text into a sorted, labeled span stream honoring
// the classifier contract (start < end, ascending starts).
func Classify(text string) []span.Span {
	lines := splitLines(text)
	var spans []span.Span

	// Org-run state: consecutive eligible lines with the same starredness
	// merge into one span; blank lines keep a run open.
	runLabel := span.LabelUnknown
	runStart, runEnd := -1, -1

	flushRun := func() {
		if runLabel != span.LabelUnknown && runEnd > runStart {
			spans = append(spans, span.Span{
				Label: runLabel,
				Text:  text[runStart:runEnd],
				Start: runStart,
				End:   runEnd,
			})
		}
		runLabel = span.LabelUnknown
		runStart, runEnd = -1, -1
	}

	emit := func(l line, label span.Label) {
		flushRun()
		spans = append(spans, span.Span{Label: label, Text: text[l.start:l.end], Start: l.start, End: l.end})
	}

	for _, l := range lines {
		s := l.content
		switch {
		case s == "":
			// blank lines keep an org run open
		case sumarioRe.MatchString(s):
			emit(l, span.LabelSumario)
		case isJunk(s):
			emit(l, span.LabelJunk)
		case orgEligible(stripBoldMarkers(s)):
			// A literal star on the heading (not the bold markers) flags a
			// top-level organization with nested sub-organizations.
			label := span.LabelOrg
			if strings.Contains(stripBoldMarkers(s), "*") {
				label = span.LabelOrgStarred
			}
			if runLabel == span.LabelUnknown {
				runLabel = label
				runStart, runEnd = l.start, l.end
			} else if label == runLabel {
				runEnd = l.end
			} else {
				flushRun()
				runLabel = label
				runStart, runEnd = l.start, l.end
			}
		case signatureRe.MatchString(s):
			emit(l, span.LabelSignature)
		case docNameEligible(s):
			emit(l, span.LabelDocName)
		default:
			emit(l, span.LabelDocText)
		}
	}
	flushRun()

	spans = mergeDocNames(text, spans)
	span.SortByStart(spans)
	return spans
}

func stripBoldMarkers(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// mergeDocNames joins adjacent document-name spans separated by whitespace
// only, the way split bold titles arrive from PDF extraction. A name ending
// in a colon or sentence stop never absorbs its successor.
func mergeDocNames(text string, spans []span.Span) []span.Span {
	var out []span.Span
	for _, s := range spans {
		if s.Label == span.LabelDocName && len(out) > 0 {
			prev := &out[len(out)-1]
			if prev.Label == span.LabelDocName &&
				strings.TrimSpace(text[prev.End:s.Start]) == "" &&
				!endsWithStop(prev.Text) {
				prev.End = s.End
				prev.Text = text[prev.Start:prev.End]
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
