// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"strings"
	"testing"

	"boletim-scan/internal/payload"
	"boletim-scan/internal/result"
	"boletim-scan/internal/span"
)

// buildBody assembles a body text and matching span stream from labeled
// fragments separated by newlines. Fragments with LabelUnknown contribute
// text only.
func buildBody(parts []struct {
	label span.Label
	text  string
}) (string, []span.Span) {
	var b strings.Builder
	var spans []span.Span
	for _, p := range parts {
		start := b.Len()
		b.WriteString(p.text)
		if p.label != span.LabelUnknown {
			spans = append(spans, span.Span{Label: p.label, Text: p.text, Start: start, End: b.Len()})
		}
		b.WriteString("\n")
	}
	return b.String(), spans
}

func TestSegmentFlat_Basic(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL DO FUNCHAL"},
		{span.LabelDocName, "Aviso n.º 1"},
		{span.LabelUnknown, "Texto do primeiro aviso."},
		{span.LabelDocName, "Aviso n.º 2"},
		{span.LabelUnknown, "Texto do segundo aviso."},
		{span.LabelOrg, "SECRETARIA REGIONAL DE TURISMO"},
		{span.LabelDocName, "Despacho n.º 3"},
		{span.LabelUnknown, "Texto do despacho."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{
			{Org: "CÂMARA MUNICIPAL DO FUNCHAL", Docs: []string{"Aviso n.º 1", "Aviso n.º 2"}},
			{Org: "SECRETARIA REGIONAL DE TURISMO", Docs: []string{"Despacho n.º 3"}},
		},
	}

	results := SegmentHierarchical(body, spans, p)
	if len(results) != 2 {
		t.Fatalf("got %d org results, want 2", len(results))
	}
	for i, r := range results {
		if r.Status != result.StatusOK {
			t.Errorf("result %d status = %v, want ok", i, r.Status)
		}
	}

	docs := results[0].Docs
	if len(docs) != 2 {
		t.Fatalf("câmara has %d docs, want 2: %+v", len(docs), docs)
	}
	if !strings.Contains(docs[0].Text, "Texto do primeiro aviso") || strings.Contains(docs[0].Text, "segundo") {
		t.Errorf("first doc text wrong: %q", docs[0].Text)
	}
	// The last doc of a block runs to the next organization anchor
	if !strings.Contains(docs[1].Text, "Texto do segundo aviso") || strings.Contains(docs[1].Text, "SECRETARIA") {
		t.Errorf("second doc text wrong: %q", docs[1].Text)
	}
	if docs[0].Confidence != 1.0 {
		t.Errorf("confidence = %v", docs[0].Confidence)
	}
}

func TestSegmentFlat_OrgMissing(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL"},
		{span.LabelUnknown, "Texto."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{{Org: "JUNTA DE FREGUESIA", Docs: []string{"Aviso 1"}}},
	}

	results := SegmentHierarchical(body, spans, p)
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Status != result.StatusOrgMissing {
		t.Errorf("status = %v, want org_missing", results[0].Status)
	}
	if results[0].Docs == nil || len(results[0].Docs) != 0 {
		t.Errorf("missing org should carry an empty doc list, got %+v", results[0].Docs)
	}
}

func TestSegmentFlat_PartialAndMissingDocs(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL"},
		{span.LabelDocName, "Aviso n.º 1"},
		{span.LabelUnknown, "Texto do aviso."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{
			{Org: "CÂMARA MUNICIPAL", Docs: []string{"Aviso n.º 1", "Aviso n.º 2"}},
		},
	}

	results := SegmentHierarchical(body, spans, p)
	r := results[0]
	if r.Status != result.StatusPartial {
		t.Fatalf("status = %v, want partial", r.Status)
	}
	if len(r.Docs) != 2 {
		t.Fatalf("got %d docs, want 2 (found plus missing)", len(r.Docs))
	}
	if r.Docs[0].Status != result.StatusOK {
		t.Errorf("found doc status = %v", r.Docs[0].Status)
	}
	missing := r.Docs[1]
	if missing.Status != result.StatusDocMissing || missing.Text != "" {
		t.Errorf("missing doc = %+v, want empty text with doc_missing", missing)
	}
}

func TestSegmentFlat_SingleDocTakesWholeBlock(t *testing.T) {
	// No document headers but exactly one expected document: the whole block
	// is the document.
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CARTÓRIO NOTARIAL"},
		{span.LabelUnknown, "Corpo inteiro do único documento."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{{Org: "CARTÓRIO NOTARIAL", Docs: []string{"Habilitação"}}},
	}

	r := SegmentHierarchical(body, spans, p)[0]
	if r.Status != result.StatusOK {
		t.Fatalf("status = %v", r.Status)
	}
	if len(r.Docs) != 1 || !strings.Contains(r.Docs[0].Text, "Corpo inteiro") {
		t.Errorf("docs = %+v", r.Docs)
	}
}

func TestSegmentFlat_CoalescedAnchor(t *testing.T) {
	// The classifier split the header over two adjacent spans; only the
	// merged key matches the payload organization.
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL"},
		{span.LabelOrg, "DO FUNCHAL"},
		{span.LabelUnknown, "Texto."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{{Org: "Câmara Municipal do Funchal", Docs: []string{"Aviso 1"}}},
	}

	r := SegmentHierarchical(body, spans, p)[0]
	if r.Status == result.StatusOrgMissing {
		t.Fatal("split header should coalesce into the expected anchor")
	}
	if !strings.HasPrefix(r.BlockText, "CÂMARA MUNICIPAL") {
		t.Errorf("block text = %q", r.BlockText)
	}
}

func TestSegmentFlat_JunkRescue(t *testing.T) {
	// The anchor was classified as junk; the rescue pass still finds it.
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelJunk, "CÂMARA MUNICIPAL"},
		{span.LabelUnknown, "Texto do documento."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{{Org: "CÂMARA MUNICIPAL", Docs: []string{"Aviso 1"}}},
	}

	r := SegmentHierarchical(body, spans, p)[0]
	if r.Status == result.StatusOrgMissing {
		t.Fatalf("junk-labeled anchor should be rescued, got %+v", r)
	}
}

func TestSegmentFlat_CloseMatchRescue(t *testing.T) {
	// The body header carries a suffix the summary never had, so exact and
	// junk keying both miss; the forward close-match pass still anchors it.
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL DO FUNCHAL E PORTO SANTO"},
		{span.LabelDocName, "Aviso n.º 1"},
		{span.LabelUnknown, "Texto do aviso."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{{Org: "CÂMARA MUNICIPAL DO FUNCHAL", Docs: []string{"Aviso n.º 1"}}},
	}

	r := SegmentHierarchical(body, spans, p)[0]
	if r.Status != result.StatusOK {
		t.Fatalf("status = %v, want ok after close-match rescue: %+v", r.Status, r)
	}
	if len(r.Docs) != 1 || !strings.Contains(r.Docs[0].Text, "Texto do aviso") {
		t.Errorf("docs = %+v", r.Docs)
	}
	if r.Org != "CÂMARA MUNICIPAL DO FUNCHAL" {
		t.Errorf("org = %q, display keeps the expected name", r.Org)
	}
}

func TestSegmentFlat_CloseMatchConsumesHeadersOnce(t *testing.T) {
	// One body header, two expected orgs that both loosely match it: the
	// cursor moves forward only, so the second org stays missing.
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL DO FUNCHAL E PORTO SANTO"},
		{span.LabelUnknown, "Texto."},
	})
	p := &payload.Payload{
		Kind: payload.KindFlat,
		Flat: []payload.FlatItem{
			{Org: "CÂMARA MUNICIPAL DO FUNCHAL", Docs: []string{"Aviso 1"}},
			{Org: "CÂMARA MUNICIPAL DO FUNCHAL E PORTO", Docs: []string{"Aviso 2"}},
		},
	}

	results := SegmentHierarchical(body, spans, p)
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Status == result.StatusOrgMissing {
		t.Errorf("first org should claim the header: %+v", results[0])
	}
	if results[1].Status != result.StatusOrgMissing {
		t.Errorf("second org must not reuse the claimed header, got %v", results[1].Status)
	}
}

func TestSegmentHier_CloseMatchTopOrg(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "SECRETARIA REGIONAL DE EDUCAÇÃO E CULTURA"},
		{span.LabelOrg, "DIREÇÃO REGIONAL A"},
		{span.LabelUnknown, "Corpo do aviso."},
	})
	p := &payload.Payload{
		Kind: payload.KindHierarchical,
		Hier: []payload.HierItem{{
			TopOrg: "SECRETARIA REGIONAL DE EDUCAÇÃO",
			SubOrgs: []payload.SubOrg{
				{Org: "DIREÇÃO REGIONAL A", Docs: []string{"Aviso n.º 1"}},
			},
		}},
	}

	r := SegmentHierarchical(body, spans, p)[0]
	if r.Status != result.StatusOK {
		t.Fatalf("status = %v, want ok with a close-matched top org: %+v", r.Status, r)
	}
	if !strings.Contains(r.Docs[0].Text, "Corpo do aviso") {
		t.Errorf("docs = %+v", r.Docs)
	}
}

func TestSegmentHier_SubOrgs(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "GOVERNO REGIONAL"},
		{span.LabelOrg, "DIREÇÃO REGIONAL A"},
		{span.LabelUnknown, "Corpo do aviso um."},
		{span.LabelOrg, "DIREÇÃO REGIONAL B"},
		{span.LabelUnknown, "Corpo do aviso dois."},
	})
	p := &payload.Payload{
		Kind: payload.KindHierarchical,
		Hier: []payload.HierItem{{
			TopOrg: "GOVERNO REGIONAL",
			SubOrgs: []payload.SubOrg{
				{Org: "DIREÇÃO REGIONAL A", Docs: []string{"Aviso n.º 1"}},
				{Org: "DIREÇÃO REGIONAL B", Docs: []string{"Aviso n.º 2"}},
			},
		}},
	}

	results := SegmentHierarchical(body, spans, p)
	if len(results) != 2 {
		t.Fatalf("got %d results, want one per sub-org", len(results))
	}
	for i, r := range results {
		if r.Org != "GOVERNO REGIONAL" {
			t.Errorf("result %d org = %q", i, r.Org)
		}
		if r.Status != result.StatusOK {
			t.Errorf("result %d status = %v", i, r.Status)
		}
		if len(r.Docs) != 1 {
			t.Fatalf("result %d has %d docs", i, len(r.Docs))
		}
	}
	if results[0].SubOrg != "DIREÇÃO REGIONAL A" || !strings.Contains(results[0].Docs[0].Text, "aviso um") {
		t.Errorf("first sub wrong: %+v", results[0])
	}
	// The expected document title replaces the anchor text
	if results[0].Docs[0].Title != "Aviso n.º 1" {
		t.Errorf("title = %q", results[0].Docs[0].Title)
	}
	if strings.Contains(results[0].Docs[0].Text, "DIREÇÃO REGIONAL B") {
		t.Errorf("first sub slice leaked into the second: %q", results[0].Docs[0].Text)
	}
}

func TestSegmentHier_SubOrgMissing(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "GOVERNO REGIONAL"},
		{span.LabelOrg, "DIREÇÃO REGIONAL A"},
		{span.LabelUnknown, "Corpo."},
	})
	p := &payload.Payload{
		Kind: payload.KindHierarchical,
		Hier: []payload.HierItem{{
			TopOrg: "GOVERNO REGIONAL",
			SubOrgs: []payload.SubOrg{
				{Org: "DIREÇÃO REGIONAL A", Docs: []string{"Aviso 1"}},
				{Org: "DIREÇÃO INEXISTENTE", Docs: []string{"Aviso 2"}},
			},
		}},
	}

	results := SegmentHierarchical(body, spans, p)
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[1].Status != result.StatusOrgMissing {
		t.Errorf("absent sub status = %v, want org_missing", results[1].Status)
	}
}

func TestSegmentHier_CountMismatchIsPartial(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "GOVERNO REGIONAL"},
		{span.LabelOrg, "DIREÇÃO REGIONAL A"},
		{span.LabelUnknown, "Uma só ocorrência."},
	})
	p := &payload.Payload{
		Kind: payload.KindHierarchical,
		Hier: []payload.HierItem{{
			TopOrg: "GOVERNO REGIONAL",
			SubOrgs: []payload.SubOrg{
				{Org: "DIREÇÃO REGIONAL A", Docs: []string{"Aviso 1", "Aviso 2"}},
			},
		}},
	}

	r := SegmentHierarchical(body, spans, p)[0]
	if r.Status != result.StatusPartial {
		t.Errorf("status = %v, want partial on occurrence/doc mismatch", r.Status)
	}
	if len(r.Docs) != 1 {
		t.Errorf("got %d docs, want 1 (one occurrence)", len(r.Docs))
	}
}

func TestSegmentHier_TopMissing(t *testing.T) {
	body, spans := buildBody([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "OUTRO GOVERNO"},
		{span.LabelUnknown, "Corpo."},
	})
	p := &payload.Payload{
		Kind: payload.KindHierarchical,
		Hier: []payload.HierItem{{
			TopOrg: "GOVERNO REGIONAL",
			SubOrgs: []payload.SubOrg{
				{Org: "DIREÇÃO A", Docs: nil},
				{Org: "DIREÇÃO B", Docs: nil},
			},
		}},
	}

	results := SegmentHierarchical(body, spans, p)
	if len(results) != 2 {
		t.Fatalf("got %d results, want one org_missing per sub", len(results))
	}
	for _, r := range results {
		if r.Status != result.StatusOrgMissing {
			t.Errorf("status = %v", r.Status)
		}
	}
}
