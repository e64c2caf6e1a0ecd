// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package span

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spans   []Span
		wantErr bool
	}{
		{
			name:    "empty stream",
			spans:   nil,
			wantErr: false,
		},
		{
			name: "sorted valid stream",
			spans: []Span{
				{Label: LabelOrg, Start: 0, End: 10},
				{Label: LabelDocName, Start: 11, End: 20},
				{Label: LabelDocText, Start: 11, End: 30},
			},
			wantErr: false,
		},
		{
			name: "empty span rejected",
			spans: []Span{
				{Label: LabelOrg, Start: 5, End: 5},
			},
			wantErr: true,
		},
		{
			name: "inverted span rejected",
			spans: []Span{
				{Label: LabelOrg, Start: 10, End: 3},
			},
			wantErr: true,
		},
		{
			name: "unsorted stream rejected",
			spans: []Span{
				{Label: LabelOrg, Start: 10, End: 20},
				{Label: LabelDocName, Start: 0, End: 5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spans)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLabelRoundTrip(t *testing.T) {
	labels := []Label{
		LabelSumario, LabelOrg, LabelOrgStarred, LabelDocName,
		LabelDocText, LabelParagraph, LabelSignature, LabelJunk,
	}
	for _, l := range labels {
		got, err := ParseLabel(l.String())
		if err != nil {
			t.Fatalf("ParseLabel(%q): %v", l.String(), err)
		}
		if got != l {
			t.Errorf("ParseLabel(%q) = %v, want %v", l.String(), got, l)
		}
	}

	if _, err := ParseLabel("NotALabel"); err == nil {
		t.Error("expected error for unknown label name")
	}
}

func TestLabelPredicates(t *testing.T) {
	if !LabelOrg.IsOrgLike() || !LabelOrgStarred.IsOrgLike() {
		t.Error("org labels should be org-like")
	}
	if LabelDocName.IsOrgLike() {
		t.Error("DocName should not be org-like")
	}
	if !LabelDocText.IsContent() || !LabelParagraph.IsContent() {
		t.Error("content labels should be content")
	}
	if LabelSignature.IsContent() {
		t.Error("Signature should not be content")
	}
}

func TestFromJSON(t *testing.T) {
	data := `[
		{"label": "OrgLabel", "text": "SECRETARIA", "start": 0, "end": 10},
		{"label": "DocNameLabel", "text": "Aviso", "start": 11, "end": 16}
	]`
	spans, err := FromJSON(strings.NewReader(data))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Label != LabelOrg || spans[1].Label != LabelDocName {
		t.Errorf("labels decoded wrong: %v, %v", spans[0].Label, spans[1].Label)
	}

	if _, err := FromJSON(strings.NewReader(`[{"label": "OrgLabel", "start": 5, "end": 2}]`)); err == nil {
		t.Error("expected contract violation for inverted span")
	}
}

func TestFilterAndWithin(t *testing.T) {
	spans := []Span{
		{Label: LabelOrg, Start: 0, End: 10},
		{Label: LabelDocName, Start: 12, End: 20},
		{Label: LabelOrg, Start: 25, End: 40},
		{Label: LabelDocText, Start: 41, End: 60},
	}

	orgs := Filter(spans, LabelOrg)
	if len(orgs) != 2 {
		t.Errorf("Filter(org) = %d spans, want 2", len(orgs))
	}

	both := Filter(spans, LabelOrg, LabelDocName)
	if len(both) != 3 {
		t.Errorf("Filter(org, docname) = %d spans, want 3", len(both))
	}

	in := Within(spans, 10, 30)
	if len(in) != 2 {
		t.Errorf("Within(10,30) = %d spans, want 2", len(in))
	}
	in = Within(spans, 10, 30, LabelOrg)
	if len(in) != 1 || in[0].Start != 25 {
		t.Errorf("Within(10,30,org) = %v, want single span at 25", in)
	}
}

func TestRebase(t *testing.T) {
	spans := []Span{
		{Label: LabelOrg, Start: 0, End: 10},
		{Label: LabelDocName, Start: 20, End: 30},
		{Label: LabelDocText, Start: 35, End: 80},
	}

	out := Rebase(spans, 15, 50)
	if len(out) != 2 {
		t.Fatalf("got %d spans, want 2", len(out))
	}
	if out[0].Start != 5 || out[0].End != 15 {
		t.Errorf("first rebased span = [%d,%d), want [5,15)", out[0].Start, out[0].End)
	}
	// Span running past the range end is clamped
	if out[1].Start != 20 || out[1].End != 35 {
		t.Errorf("second rebased span = [%d,%d), want [20,35)", out[1].Start, out[1].End)
	}
}

func TestSortByStartStable(t *testing.T) {
	spans := []Span{
		{Label: LabelDocText, Start: 30, End: 40},
		{Label: LabelOrg, Start: 5, End: 10},
		{Label: LabelDocName, Start: 5, End: 8},
	}
	SortByStart(spans)
	if spans[0].Label != LabelOrg || spans[1].Label != LabelDocName {
		t.Errorf("stable sort violated: %v", spans)
	}
	if spans[2].Start != 30 {
		t.Errorf("sort order wrong: %v", spans)
	}
}
