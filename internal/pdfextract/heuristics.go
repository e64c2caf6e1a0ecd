// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdfextract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tableAlignRe  = regexp.MustCompile(`[-:]{3,}`)
	boldOnlyRe    = regexp.MustCompile(`^\s*\*\*(.+)\*\*\s*$`)
	gluedBeforeRe = regexp.MustCompile(`([\p{L}\p{N}])\*\*`)
	gluedAfterRe  = regexp.MustCompile(`\*\*([\p{L}\p{N}])`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
)

// isTableRow reports whether a markdown line belongs to a table. Bold-run
// merging must never cross table rows.
func isTableRow(line string) bool {
	l := strings.TrimSpace(line)
	if l == "" || !strings.Contains(l, "|") {
		return false
	}
	c := strings.Count(l, "|")
	starts := strings.HasPrefix(l, "|")
	rowLike := starts && (strings.HasSuffix(l, "|") || c >= 3)
	alignLike := starts && tableAlignRe.MatchString(l)
	return rowLike || alignLike
}

// isAllCapsText reports whether every letter in the text is uppercase.
// Non-letters are ignored. At least two letters are required so that
// single-initial lines do not qualify.
func isAllCapsText(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters >= 2
}

// fixGluedBoldBoundaries inserts missing spaces where words touch a bold
// marker, as in "DOS**Humanos**".
func fixGluedBoldBoundaries(line string) string {
	line = gluedBeforeRe.ReplaceAllString(line, "${1} **")
	line = gluedAfterRe.ReplaceAllString(line, "** ${1}")
	return line
}

// consolidateInlineBold collapses all bold spans on one line into a single
// bold block: "**SECRETARIA** DOS**Humanos**" becomes
// "**SECRETARIA DOS Humanos**". Table rows and lines without bold markers
// pass through untouched.
func consolidateInlineBold(line string) string {
	if isTableRow(line) || !strings.Contains(line, "**") {
		return line
	}

	stripped := strings.TrimSpace(line)
	if strings.HasPrefix(stripped, "**") && strings.HasSuffix(stripped, "**") &&
		strings.Count(stripped, "**") == 2 {
		return line
	}

	fixed := fixGluedBoldBoundaries(line)
	content := strings.ReplaceAll(fixed, "**", "")
	content = strings.TrimSpace(multiSpaceRe.ReplaceAllString(content, " "))
	if content == "" {
		return line
	}
	return "**" + content + "**"
}

// CleanInlineBold applies inline bold consolidation to every line of a
// markdown document.
func CleanInlineBold(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = consolidateInlineBold(line)
	}
	return strings.Join(lines, "\n")
}

// MergeBoldRuns merges consecutive bold-only lines into one multi-line bold
// block, skipping tables. With allCapsOnly set, only ALL-CAPS bold lines
// accumulate; this keeps split organization headings together without
// swallowing adjacent bold document titles.
func MergeBoldRuns(md string, allCapsOnly bool) string {
	var out []string
	var buf []string
	inTable := false

	flush := func() {
		if len(buf) > 0 {
			out = append(out, "**"+strings.Join(buf, "\n")+"**")
			buf = nil
		}
	}

	for _, line := range strings.Split(md, "\n") {
		if isTableRow(line) {
			flush()
			inTable = true
			out = append(out, line)
			continue
		}
		if inTable {
			inTable = false
		}

		if m := boldOnlyRe.FindStringSubmatch(line); m != nil && (!allCapsOnly || isAllCapsText(m[1])) {
			buf = append(buf, m[1])
		} else {
			flush()
			out = append(out, line)
		}
	}

	flush()
	return strings.Join(out, "\n")
}
