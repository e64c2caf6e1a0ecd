// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"boletim-scan/internal/engine"
	"boletim-scan/internal/formatters"
	"boletim-scan/internal/result"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"white":  color.New(color.FgWhite, color.Bold),
			"dim":    color.New(color.Faint),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(resp *engine.Response, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	var builder strings.Builder

	f.appendSummary(&builder, resp)
	f.appendItems(&builder, resp)

	if options.Verbose && len(resp.Results) > 0 {
		f.appendDetail(&builder, resp.Results)
	}

	return builder.String(), nil
}

func (f *Formatter) appendSummary(builder *strings.Builder, resp *engine.Response) {
	title := fmt.Sprintf("Bulletin reconstruction (Series %s)", resp.Series)
	builder.WriteString(f.colors["white"].Sprint(title) + "\n")
	builder.WriteString(strings.Repeat("=", len(title)) + "\n")

	s := resp.Summary
	hasSummary := "no"
	if s.HasSummary {
		hasSummary = "yes"
	}
	builder.WriteString(fmt.Sprintf("Spans: %d | Summary section: %s", s.SpanCount, hasSummary))
	if s.BoundaryReason != "" {
		builder.WriteString(fmt.Sprintf(" (%s)", s.BoundaryReason))
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Payload items: %d | Organizations: %d | Documents: %d\n\n",
		s.PayloadItems, s.OrgResults, s.Documents))
}

func (f *Formatter) appendItems(builder *strings.Builder, resp *engine.Response) {
	if len(resp.Items) == 0 {
		builder.WriteString("No documents recovered.\n")
		return
	}

	for _, it := range resp.Items {
		org := "(Sem organização)"
		if it.Org != nil {
			org = *it.Org
		}
		builder.WriteString(f.colors["cyan"].Sprint(org) + "\n")
		if it.SubOrg != nil {
			builder.WriteString("  " + f.colors["dim"].Sprint(*it.SubOrg) + "\n")
		}
		if len(it.Docs) == 0 {
			builder.WriteString("  " + f.colors["dim"].Sprint("(no documents)") + "\n")
		}
		for _, d := range it.Docs {
			title := "(untitled)"
			if d.Title != nil {
				title = *d.Title
			}
			builder.WriteString(fmt.Sprintf("  - %s %s\n", title,
				f.colors["dim"].Sprintf("[%d chars]", len(d.Text))))
		}
		builder.WriteString("\n")
	}
}

func (f *Formatter) appendDetail(builder *strings.Builder, results []result.OrgResult) {
	builder.WriteString(f.colors["white"].Sprint("Segmentation detail") + "\n")
	builder.WriteString(strings.Repeat("-", len("Segmentation detail")) + "\n")

	for _, r := range results {
		name := r.Org
		if r.SubOrg != "" {
			name += " / " + r.SubOrg
		}
		builder.WriteString(fmt.Sprintf("%s %s\n", name, f.statusColor(r.Status).Sprintf("[%s]", r.Status)))
		for _, d := range r.Docs {
			builder.WriteString(fmt.Sprintf("  %s %s %s\n",
				d.Title,
				f.statusColor(d.Status).Sprintf("[%s]", d.Status),
				f.colors["dim"].Sprintf("conf=%.2f subs=%d", d.Confidence, len(d.Subs))))
		}
	}
}

// statusColor maps record statuses to severity colors: fully anchored
// outcomes are green, degraded ones yellow, missing ones red.
func (f *Formatter) statusColor(s result.Status) *color.Color {
	switch s {
	case result.StatusOK, result.StatusDocTypeSegment, result.StatusOrgAnchored:
		return f.colors["green"]
	case result.StatusDocMissing, result.StatusOrgMissing:
		return f.colors["red"]
	default:
		return f.colors["yellow"]
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
