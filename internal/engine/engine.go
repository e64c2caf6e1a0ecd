// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package engine orchestrates a full reconstruction run: boundary detection,
// relation extraction over the summary, window building and segmentation
// over the body, and final flattening. The core is single-threaded and
// synchronous per bulletin; callers parallelize at document granularity.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"boletim-scan/internal/boundary"
	"boletim-scan/internal/fuzzy"
	"boletim-scan/internal/observability"
	"boletim-scan/internal/payload"
	"boletim-scan/internal/relations"
	"boletim-scan/internal/result"
	"boletim-scan/internal/segment"
	"boletim-scan/internal/span"
)

// Series identifies the bulletin's structural format.
type Series int

const (
	SeriesI Series = iota + 1
	SeriesII
	SeriesIII
	SeriesIV
)

func (s Series) String() string {
	switch s {
	case SeriesI:
		return "I"
	case SeriesII:
		return "II"
	case SeriesIII:
		return "III"
	case SeriesIV:
		return "IV"
	default:
		return fmt.Sprintf("Series(%d)", int(s))
	}
}

// MarshalJSON writes the roman-numeral form.
func (s Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseSeries accepts both roman and arabic forms.
func ParseSeries(s string) (Series, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "I", "1":
		return SeriesI, nil
	case "II", "2":
		return SeriesII, nil
	case "III", "3":
		return SeriesIII, nil
	case "IV", "4":
		return SeriesIV, nil
	}
	return 0, fmt.Errorf("unknown series %q (want I, II, III or IV)", s)
}

// Request is one bulletin to process. Payload, when non-nil, replaces the
// payload the engine would otherwise extract from the summary; this is how
// a manually curated table of contents is fed in.
type Request struct {
	Series  Series
	Text    string
	Spans   []span.Span
	Payload *payload.Payload
}

// Response carries everything a run produced. Items is the externally
// consumed artifact; the rest is diagnostic.
type Response struct {
	Series   Series             `json:"series"`
	Boundary boundary.Split     `json:"-"`
	Payload  *payload.Payload   `json:"-"`
	Results  []result.OrgResult `json:"results,omitempty"`
	Items    []result.Item      `json:"items"`
	Summary  Summary            `json:"summary"`
}

// Summary is the per-run metric block.
type Summary struct {
	SpanCount      int    `json:"span_count"`
	HasSummary     bool   `json:"has_summary"`
	BoundaryReason string `json:"boundary_reason,omitempty"`
	PayloadItems   int    `json:"payload_items"`
	OrgResults     int    `json:"org_results"`
	Documents      int    `json:"documents"`
}

// Engine holds the collaborators shared across runs. Safe for concurrent
// use: all per-run state lives in the run itself.
type Engine struct {
	matcher   *fuzzy.Matcher
	observer  *observability.StandardObserver
	reparse   segment.ReparseFunc
	subdivide bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatcher overrides the fuzzy matcher thresholds.
func WithMatcher(m *fuzzy.Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithObserver attaches an observer for per-stage timings.
func WithObserver(o *observability.StandardObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithReparse provides the classifier callback sub-segmentation needs to
// re-scan segment text. Without it Serie III segments are not subdivided.
func WithReparse(fn segment.ReparseFunc) Option {
	return func(e *Engine) { e.reparse = fn; e.subdivide = fn != nil }
}

// New builds an engine with default thresholds and no observer.
func New(opts ...Option) *Engine {
	e := &Engine{matcher: fuzzy.NewMatcher(fuzzy.Thresholds{})}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) timing(operation string) func(bool, map[string]interface{}) {
	if e.observer == nil {
		return func(bool, map[string]interface{}) {}
	}
	return e.observer.StartTiming("engine", operation, "")
}

// Process runs the full pipeline for one bulletin. Span contract violations
// and malformed payloads are the only errors; "no match anywhere" outcomes
// are data with degraded statuses.
func (e *Engine) Process(req Request) (*Response, error) {
	if err := span.Validate(req.Spans); err != nil {
		return nil, fmt.Errorf("span stream contract violation: %w", err)
	}

	resp := &Response{Series: req.Series, Summary: Summary{SpanCount: len(req.Spans)}}

	if req.Series == SeriesIV {
		return e.processSignatures(req, resp)
	}

	done := e.timing("boundary_detect")
	split := boundary.Detect(req.Spans, req.Text)
	done(true, map[string]interface{}{"reason": split.Reason.String()})
	resp.Boundary = split
	resp.Summary.HasSummary = split.HasSummary
	resp.Summary.BoundaryReason = split.Reason.String()

	p := req.Payload
	if p == nil {
		summarySpans := span.Rebase(req.Spans, split.SummaryStart, split.BodyStart)
		done := e.timing("relation_extract")
		if req.Series == SeriesIII {
			rels := relations.ExtractSerieIII(summarySpans, split.Summary)
			p = relations.ExportSerieIII(rels)
		} else {
			rels := relations.Extract(summarySpans, split.Summary)
			p = relations.ExportItems(rels)
		}
		done(true, map[string]interface{}{"items": payloadItemCount(p)})
	}
	resp.Payload = p
	resp.Summary.PayloadItems = payloadItemCount(p)

	bodySpans := span.Rebase(req.Spans, split.BodyStart, len(req.Text))

	done = e.timing("segment")
	switch req.Series {
	case SeriesIII:
		if p.Kind != payload.KindWindowed {
			done(false, nil)
			return nil, fmt.Errorf("%w: series III needs a windowed payload, got %s", payload.ErrInvalidPayload, p.Kind)
		}
		resp.Results = segment.SegmentWindowed(split.Body, bodySpans, p, segment.Options{
			Matcher:   e.matcher,
			Reparse:   e.reparse,
			Subdivide: e.subdivide,
		})
		resp.Items = result.FlattenWindowed(resp.Results)
	default:
		if p.Kind == payload.KindWindowed {
			done(false, nil)
			return nil, fmt.Errorf("%w: series %s cannot use a windowed payload", payload.ErrInvalidPayload, req.Series)
		}
		resp.Results = segment.SegmentHierarchical(split.Body, bodySpans, p)
		resp.Items = result.FlattenHierarchical(resp.Results)
	}
	done(true, map[string]interface{}{"org_results": len(resp.Results)})

	resp.Summary.OrgResults = len(resp.Results)
	resp.Summary.Documents = countDocuments(resp.Items)
	return resp, nil
}

func (e *Engine) processSignatures(req Request, resp *Response) (*Response, error) {
	done := e.timing("signature_split")
	chunks := segment.SplitBySignature(req.Text, req.Spans)
	done(true, map[string]interface{}{"chunks": len(chunks)})

	resp.Items = result.FlattenChunks(chunks)
	resp.Summary.Documents = countDocuments(resp.Items)
	return resp, nil
}

func payloadItemCount(p *payload.Payload) int {
	switch p.Kind {
	case payload.KindWindowed:
		return len(p.Windowed)
	case payload.KindHierarchical:
		return len(p.Hier)
	default:
		return len(p.Flat)
	}
}

func countDocuments(items []result.Item) int {
	n := 0
	for _, it := range items {
		n += len(it.Docs)
	}
	return n
}
