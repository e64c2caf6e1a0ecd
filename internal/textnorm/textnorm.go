// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package textnorm provides the pure normalization helpers used by every
// matching component: accent stripping, whitespace collapsing, OCR-artifact
// cleanup and the canonical comparison forms derived from them.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	dotLeaderRe   = regexp.MustCompile(`[.\x{2022}\x{2026}\x{00B7}]{3,}`)
	hyphenWrapRe  = regexp.MustCompile(`-\s*\r?\n\s*`)
	interletterRe = regexp.MustCompile(`(?i)\b(?:[a-z\x{00C0}-\x{00FF}]\s+){2,}[a-z\x{00C0}-\x{00FF}]\b`)
	spaceRunRe    = regexp.MustCompile(`\s+`)
	dashRunRe     = regexp.MustCompile(`[-\x{2013}\x{2014}]{2,}`)
)

// stripMn removes combining marks after NFD decomposition.
var stripMn = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeTitle canonicalizes a header for display and first-tier matching:
// trim, strip one layer of surrounding bold markers, collapse internal
// whitespace, drop one trailing colon.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "**") && strings.HasSuffix(s, "**") && len(s) >= 4 {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	s = CollapseSpaces(s)
	if strings.HasSuffix(s, ":") {
		s = strings.TrimRight(strings.TrimSuffix(s, ":"), " ")
	}
	return s
}

// Tighten removes all spaces from an already-normalized string.
func Tighten(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// LettersOnly reduces a string to its bare alphanumeric skeleton: NFD
// decomposition, combining marks dropped, lowercased, everything outside
// [a-z0-9] removed. Idempotent and case-invariant.
func LettersOnly(s string) string {
	decomposed, _, err := transform.String(stripMn, s)
	if err != nil {
		decomposed = s
	}
	decomposed = strings.ToLower(decomposed)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripAccents removes combining marks but keeps everything else intact.
func StripAccents(s string) string {
	out, _, err := transform.String(stripMn, s)
	if err != nil {
		return s
	}
	return out
}

// OCRClean repairs common PDF-extraction artifacts: hyphen-broken line
// wraps, dot/bullet leader runs, interletter spacing, digit-for-letter
// confusions inside words, and exotic Unicode spaces (NFKC plus
// non-breaking-space folding).
func OCRClean(s string) string {
	s = hyphenWrapRe.ReplaceAllString(s, "")
	s = dotLeaderRe.ReplaceAllString(s, "")
	s = interletterRe.ReplaceAllStringFunc(s, func(m string) string {
		return spaceRunRe.ReplaceAllString(m, "")
	})
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = repairConfusables(s)
	return CollapseSpaces(s)
}

// confusables maps the digits OCR engines commonly misread for letters to
// their lowercase and uppercase replacements.
var confusables = map[rune][2]rune{
	'0': {'o', 'O'},
	'1': {'l', 'I'},
	'5': {'s', 'S'},
}

// repairConfusables replaces a confusable digit with its letter form when it
// sits between two letters ("ESTATUT0S" -> "ESTATUTOS"). Digits in numbers
// and dates never have letters on both sides, so they are left alone.
func repairConfusables(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		rep, ok := confusables[r]
		if !ok || i == 0 || i+1 >= len(runes) {
			continue
		}
		if !unicode.IsLetter(runes[i-1]) || !unicode.IsLetter(runes[i+1]) {
			continue
		}
		if unicode.IsUpper(runes[i-1]) && unicode.IsUpper(runes[i+1]) {
			runes[i] = rep[1]
		} else {
			runes[i] = rep[0]
		}
	}
	return string(runes)
}

// CharNgrams returns the set of all length-n substrings of s. Strings
// shorter than n yield a singleton set holding s itself; the empty string
// yields an empty set.
func CharNgrams(s string, n int) map[string]struct{} {
	out := make(map[string]struct{})
	if s == "" {
		return out
	}
	if len(s) < n {
		out[s] = struct{}{}
		return out
	}
	for i := 0; i+n <= len(s); i++ {
		out[s[i:i+n]] = struct{}{}
	}
	return out
}

// CollapseSpaces folds every whitespace run into a single space and trims.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}

// CollapseDashRuns folds runs of dashes (including en/em dashes) to one "-".
func CollapseDashRuns(s string) string {
	return dashRunRe.ReplaceAllString(s, "-")
}

// DotLeadersToPeriod turns leader runs into a single period instead of
// deleting them; summary child text keeps sentence structure this way.
func DotLeadersToPeriod(s string) string {
	return dotLeaderRe.ReplaceAllString(s, ".")
}

// StripBold removes every bold marker, not just a surrounding pair.
func StripBold(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// JoinSpacedCaps joins artificial spacing inside ALL-CAPS words produced by
// PDF extraction, e.g. "D IREÇÃO" -> "DIREÇÃO". Every space between two
// uppercase letters is removed, so word boundaries inside ALL-CAPS phrases
// collapse too; keyed comparisons strip spaces anyway.
func JoinSpacedCaps(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' && i > 0 && i+1 < len(runes) && isCap(runes[i-1]) && isCap(runes[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isCap(r rune) bool {
	return unicode.IsUpper(r)
}

// NormalizeText is the general-purpose body normalization: bold markers out,
// whitespace collapsed, spaced caps rejoined.
func NormalizeText(s string) string {
	return JoinSpacedCaps(CollapseSpaces(StripBold(s)))
}

// OrgKey aggressively normalizes an organization name for keying: bold and
// accents stripped, "&" folded to "E", every non-alphanumeric removed,
// uppercased. Display always uses the original text.
func OrgKey(s string) string {
	s = StripBold(s)
	s = StripAccents(s)
	s = strings.ReplaceAll(s, "&", "E")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

var (
	docNumTokRe = regexp.MustCompile(`(?i)\bn\s*[.\-]?\s*[\x{00BA}\x{00B0}o]?\s*`)
	preDigitRe  = regexp.MustCompile(`([^\d\s])(\d)`)
	slashNumRe  = regexp.MustCompile(`\s*/\s*`)
	digitRe     = regexp.MustCompile(`\d`)
)

// NormalizeDocTitle canonicalizes document headers for matching: the
// Portuguese numbering token ("n.º", "nº", "no.") before a digit is removed,
// exactly one space is kept before the number, and slashes lose surrounding
// spaces ("586 / 2003" -> "586/2003").
func NormalizeDocTitle(s string) string {
	s = NormalizeText(s)
	s = removeNumberingToken(s)
	s = preDigitRe.ReplaceAllString(s, "$1 $2")
	s = CollapseSpaces(s)
	s = slashNumRe.ReplaceAllString(s, "/")
	return strings.TrimSpace(s)
}

// removeNumberingToken drops "n.º"-style tokens only when a digit follows.
func removeNumberingToken(s string) string {
	locs := docNumTokRe.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		rest := s[loc[1]:]
		if len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
			b.WriteString(s[last:loc[0]])
			last = loc[1]
		}
	}
	b.WriteString(s[last:])
	return b.String()
}

// TokenSet lowercases and splits on whitespace, returning the word set.
func TokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(s)) {
		out[t] = struct{}{}
	}
	return out
}

// Jaccard computes set similarity; two empty sets score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// HasLetters reports whether any alphabetic rune is present.
func HasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// HasDigits reports whether any decimal digit is present.
func HasDigits(s string) bool {
	return digitRe.MatchString(s)
}
