// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package shared holds the wire structures the json and yaml formatters
// both render, so the two outputs stay structurally identical.
package shared

import (
	"boletim-scan/internal/engine"
	"boletim-scan/internal/formatters"
)

// Report is the machine-readable envelope for one reconstruction run
type Report struct {
	Series  string      `json:"series" yaml:"series"`
	Summary SummaryInfo `json:"summary" yaml:"summary"`
	Items   []Item      `json:"items" yaml:"items"`
	Detail  []OrgDetail `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// SummaryInfo mirrors the engine's per-run metric block
type SummaryInfo struct {
	SpanCount      int    `json:"span_count" yaml:"span_count"`
	HasSummary     bool   `json:"has_summary" yaml:"has_summary"`
	BoundaryReason string `json:"boundary_reason,omitempty" yaml:"boundary_reason,omitempty"`
	PayloadItems   int    `json:"payload_items" yaml:"payload_items"`
	OrgResults     int    `json:"org_results" yaml:"org_results"`
	Documents      int    `json:"documents" yaml:"documents"`
}

// Item is one organization with its recovered documents
type Item struct {
	Org    *string `json:"org" yaml:"org"`
	SubOrg *string `json:"sub_org,omitempty" yaml:"sub_org,omitempty"`
	Docs   []Doc   `json:"docs" yaml:"docs"`
}

// Doc is one recovered document
type Doc struct {
	Title  *string `json:"title" yaml:"title"`
	SubOrg *string `json:"sub_org,omitempty" yaml:"sub_org,omitempty"`
	Text   string  `json:"text" yaml:"text"`
}

// OrgDetail is the verbose-only segmentation detail for one organization
type OrgDetail struct {
	Org    string      `json:"org" yaml:"org"`
	SubOrg string      `json:"sub_org,omitempty" yaml:"sub_org,omitempty"`
	Status string      `json:"status" yaml:"status"`
	Docs   []DocDetail `json:"docs" yaml:"docs"`
}

// DocDetail summarizes one segmented document slice
type DocDetail struct {
	Title      string  `json:"title" yaml:"title"`
	Status     string  `json:"status" yaml:"status"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Chars      int     `json:"chars" yaml:"chars"`
	Subs       int     `json:"subs,omitempty" yaml:"subs,omitempty"`
}

// BuildReport converts a response into the common wire envelope. The
// segmentation detail is included only in verbose mode.
func BuildReport(resp *engine.Response, options formatters.FormatterOptions) Report {
	report := Report{
		Series: resp.Series.String(),
		Summary: SummaryInfo{
			SpanCount:      resp.Summary.SpanCount,
			HasSummary:     resp.Summary.HasSummary,
			BoundaryReason: resp.Summary.BoundaryReason,
			PayloadItems:   resp.Summary.PayloadItems,
			OrgResults:     resp.Summary.OrgResults,
			Documents:      resp.Summary.Documents,
		},
		Items: []Item{},
	}

	for _, it := range resp.Items {
		item := Item{Org: it.Org, SubOrg: it.SubOrg, Docs: []Doc{}}
		for _, d := range it.Docs {
			item.Docs = append(item.Docs, Doc{Title: d.Title, SubOrg: d.SubOrg, Text: d.Text})
		}
		report.Items = append(report.Items, item)
	}

	if options.Verbose {
		for _, r := range resp.Results {
			detail := OrgDetail{
				Org:    r.Org,
				SubOrg: r.SubOrg,
				Status: r.Status.String(),
			}
			for _, d := range r.Docs {
				detail.Docs = append(detail.Docs, DocDetail{
					Title:      d.Title,
					Status:     d.Status.String(),
					Confidence: d.Confidence,
					Chars:      len(d.Text),
					Subs:       len(d.Subs),
				})
			}
			report.Detail = append(report.Detail, detail)
		}
	}

	return report
}
