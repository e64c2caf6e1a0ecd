// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdfextract turns bulletin PDFs into markdown-style text with bold
// markers, the input shape the classifier expects. Bold runs are detected
// from font names and consolidated so that organization headings split
// across PDF rows arrive as single spans.
package pdfextract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Content represents the extracted markdown content of one PDF document
type Content struct {
	Filename  string
	Markdown  string
	PageCount int
	WordCount int
	CharCount int
	LineCount int
}

// Options controls PDF extraction
type Options struct {
	// CropTopRatio drops the top fraction of each page, where the running
	// header lives. 0 disables cropping.
	CropTopRatio float64
	// SkipLastPage drops the final page, which carries only the imprint.
	SkipLastPage bool
	// MergeAnyBold additionally merges runs of any bold-only lines, not
	// just ALL-CAPS ones. Used for Series III bulletins.
	MergeAnyBold bool
}

// DefaultOptions returns the extraction defaults used for bulletins
func DefaultOptions() Options {
	return Options{CropTopRatio: 0.10, SkipLastPage: true}
}

// ExtractMarkdown extracts markdown text from a PDF document
func ExtractMarkdown(filePath string, opts Options) (*Content, error) {
	content := &Content{
		Filename: filepath.Base(filePath),
	}

	// Structural validation up front gives a clear error instead of a
	// partial extraction further down.
	if err := api.ValidateFile(filePath, nil); err != nil {
		return nil, fmt.Errorf("invalid PDF %s: %w", content.Filename, err)
	}
	pageCount, err := api.PageCountFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error counting pages in %s: %w", content.Filename, err)
	}
	content.PageCount = pageCount

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if opts.SkipLastPage && total > 1 {
		total--
	}

	type pageResult struct {
		pageNum int
		text    string
		err     error
	}

	resultChan := make(chan pageResult, total)
	for i := 1; i <= total; i++ {
		go func(pageNum int) {
			p := r.Page(pageNum)
			if p.V.IsNull() {
				resultChan <- pageResult{pageNum: pageNum, err: fmt.Errorf("null page")}
				return
			}
			text, err := extractPageMarkdown(p, opts.CropTopRatio)
			resultChan <- pageResult{pageNum: pageNum, text: text, err: err}
		}(i)
	}

	pageTexts := make(map[int]string)
	for i := 0; i < total; i++ {
		result := <-resultChan
		if result.err != nil {
			continue
		}
		pageTexts[result.pageNum] = result.text
	}

	var parts []string
	for i := 1; i <= total; i++ {
		if text, exists := pageTexts[i]; exists && strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	md := strings.Join(parts, "\n\n---\n\n")
	md = CleanInlineBold(md)
	md = MergeBoldRuns(md, true)
	if opts.MergeAnyBold {
		md = MergeBoldRuns(md, false)
	}

	content.Markdown = md
	content.WordCount = len(strings.Fields(md))
	content.CharCount = len(md)
	content.LineCount = strings.Count(md, "\n") + 1
	return content, nil
}

// extractPageMarkdown renders one page as markdown lines with bold markers
func extractPageMarkdown(p pdf.Page, cropTopRatio float64) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		// Fallback loses bold information but keeps the text
		return p.GetPlainText(nil)
	}

	sortedRows := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sortedRows = append(sortedRows, row)
		}
	}
	if len(sortedRows) == 0 {
		return "", nil
	}

	// PDF Y grows upward, so reading order is descending Y
	sort.Slice(sortedRows, func(i, j int) bool {
		return averageY(sortedRows[i].Content) > averageY(sortedRows[j].Content)
	})

	// Crop the running header: drop rows in the top fraction of the page's
	// own content span.
	if cropTopRatio > 0 {
		maxY := averageY(sortedRows[0].Content)
		minY := averageY(sortedRows[len(sortedRows)-1].Content)
		cutoff := maxY - (maxY-minY)*cropTopRatio
		kept := sortedRows[:0]
		for _, row := range sortedRows {
			if averageY(row.Content) <= cutoff {
				kept = append(kept, row)
			}
		}
		sortedRows = kept
	}

	var buf bytes.Buffer
	for _, row := range sortedRows {
		rowText := reconstructRowMarkdown(row.Content)
		if strings.TrimSpace(rowText) != "" {
			buf.WriteString(rowText)
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

func averageY(textElements []pdf.Text) float64 {
	if len(textElements) == 0 {
		return 0
	}
	var totalY float64
	for _, element := range textElements {
		totalY += element.Y
	}
	return totalY / float64(len(textElements))
}

// isBoldFont detects bold text from the embedded font name
func isBoldFont(fontName string) bool {
	n := strings.ToLower(fontName)
	return strings.Contains(n, "bold") || strings.Contains(n, "black") || strings.Contains(n, "heavy")
}

// reconstructRowMarkdown rebuilds one row left to right, inserting spaces at
// coordinate gaps and wrapping maximal bold runs in ** markers.
func reconstructRowMarkdown(textElements []pdf.Text) string {
	if len(textElements) == 0 {
		return ""
	}

	sortedElements := make([]pdf.Text, len(textElements))
	copy(sortedElements, textElements)
	sort.Slice(sortedElements, func(i, j int) bool {
		return sortedElements[i].X < sortedElements[j].X
	})

	type run struct {
		text string
		bold bool
	}
	var runs []run

	for i, element := range sortedElements {
		bold := isBoldFont(element.Font)
		piece := element.S

		// Space before the next element when the coordinate gap is wider
		// than 20% of the font size.
		space := ""
		if i < len(sortedElements)-1 {
			next := sortedElements[i+1]
			gap := next.X - (element.X + element.W)
			fontSize := element.FontSize
			if fontSize <= 0 {
				fontSize = 12
			}
			if gap > fontSize*0.2 {
				space = " "
			}
		}

		if len(runs) > 0 && runs[len(runs)-1].bold == bold {
			runs[len(runs)-1].text += piece + space
		} else {
			runs = append(runs, run{text: piece + space, bold: bold})
		}
	}

	var buf bytes.Buffer
	for _, r := range runs {
		t := strings.TrimRight(r.text, " ")
		trailing := r.text[len(t):]
		if r.bold && strings.TrimSpace(t) != "" {
			buf.WriteString("**" + t + "**")
		} else {
			buf.WriteString(t)
		}
		buf.WriteString(trailing)
	}
	return strings.TrimRight(buf.String(), " ")
}
