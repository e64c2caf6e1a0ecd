// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"strings"

	"boletim-scan/internal/span"
	"boletim-scan/internal/textnorm"
)

// SplitBySignature is the Series IV splitter: no fuzzy matching, just a cut
// at the end of every signature span, each signature staying with the chunk
// it closes. Chunks without a single letter are dropped. With no signatures
// at all the whole body is one chunk, subject to the same letter check.
func SplitBySignature(bodyText string, bodySpans []span.Span) []string {
	sigs := span.Filter(bodySpans, span.LabelSignature)
	span.SortByStart(sigs)

	keep := func(chunks []string, raw string) []string {
		c := strings.TrimSpace(raw)
		if c == "" || !textnorm.HasLetters(c) {
			return chunks
		}
		return append(chunks, c)
	}

	if len(sigs) == 0 {
		return keep(nil, bodyText)
	}

	var chunks []string
	last := 0
	for _, s := range sigs {
		end := s.End
		if end > len(bodyText) {
			end = len(bodyText)
		}
		if end <= last {
			continue
		}
		chunks = keep(chunks, bodyText[last:end])
		last = end
	}
	return keep(chunks, bodyText[last:])
}
