// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package relations

import (
	"strings"
	"testing"

	"boletim-scan/internal/payload"
	"boletim-scan/internal/span"
)

// buildText assembles a summary text and matching span stream from labeled
// fragments separated by newlines.
func buildText(parts []struct {
	label span.Label
	text  string
}) (string, []span.Span) {
	var b strings.Builder
	var spans []span.Span
	for _, p := range parts {
		start := b.Len()
		b.WriteString(p.text)
		spans = append(spans, span.Span{Label: p.label, Text: p.text, Start: start, End: b.Len()})
		b.WriteString("\n")
	}
	return b.String(), spans
}

func ent(label span.Label, text string) Entity {
	return Entity{Span: span.Span{Label: label, Text: text}}
}

func countKind(rels []Relation, k Kind) int {
	n := 0
	for _, r := range rels {
		if r.Kind == k {
			n++
		}
	}
	return n
}

func TestExtract_FlatParagraphs(t *testing.T) {
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL DO FUNCHAL"},
		{span.LabelDocName, "Aviso n.º 1"},
		{span.LabelDocName, "Aviso n.º 2"},
		{span.LabelOrg, "SECRETARIA REGIONAL DE TURISMO"},
		{span.LabelDocName, "Despacho 3"},
	})

	rels := Extract(spans, text)
	if got := countKind(rels, KindOrgDoc); got != 3 {
		t.Fatalf("got %d org->doc relations, want 3: %+v", got, rels)
	}
	// An org announces many documents, so both avisos hang off the câmara
	if rels[0].Head.Text != "CÂMARA MUNICIPAL DO FUNCHAL" || rels[0].Tail.Text != "Aviso n.º 1" {
		t.Errorf("first relation wrong: %+v", rels[0])
	}
	if rels[1].Tail.Text != "Aviso n.º 2" || rels[1].ParagraphID != 0 {
		t.Errorf("second relation wrong: %+v", rels[1])
	}
	if rels[2].Head.Text != "SECRETARIA REGIONAL DE TURISMO" || rels[2].ParagraphID != 1 {
		t.Errorf("second paragraph relation wrong: %+v", rels[2])
	}
}

func TestExtract_DocBodyLinksOnce(t *testing.T) {
	// A document name links to content once per label; repeated content lines
	// do not multiply the relation.
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL"},
		{span.LabelDocName, "Aviso n.º 1"},
		{span.LabelDocText, "linha um"},
		{span.LabelDocText, "linha dois"},
	})

	rels := Extract(spans, text)
	if got := countKind(rels, KindDocBody); got != 1 {
		t.Errorf("got %d doc->body relations, want 1: %+v", got, rels)
	}
	for _, r := range rels {
		if r.Kind == KindDocBody && r.Tail.Text != "linha um" {
			t.Errorf("doc should link its first content line, got %q", r.Tail.Text)
		}
	}
}

func TestExtract_StarBlock(t *testing.T) {
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrgStarred, "VICE-PRESIDÊNCIA DO GOVERNO"},
		{span.LabelOrg, "DIREÇÃO REGIONAL DO ORÇAMENTO"},
		{span.LabelDocName, "Aviso n.º 5"},
		{span.LabelOrg, "DIREÇÃO REGIONAL DA ADMINISTRAÇÃO"},
		{span.LabelDocName, "Despacho n.º 9"},
	})

	rels := Extract(spans, text)
	if got := countKind(rels, KindStarOrg); got != 2 {
		t.Fatalf("got %d org*->org relations, want 2: %+v", got, rels)
	}
	if got := countKind(rels, KindOrgDoc); got != 2 {
		t.Fatalf("got %d org->doc relations, want 2: %+v", got, rels)
	}
	// Each sub-org owns only the documents up to the next org
	for _, r := range rels {
		if r.Kind != KindOrgDoc {
			continue
		}
		switch r.Head.Text {
		case "DIREÇÃO REGIONAL DO ORÇAMENTO":
			if r.Tail.Text != "Aviso n.º 5" {
				t.Errorf("orçamento owns %q", r.Tail.Text)
			}
		case "DIREÇÃO REGIONAL DA ADMINISTRAÇÃO":
			if r.Tail.Text != "Despacho n.º 9" {
				t.Errorf("administração owns %q", r.Tail.Text)
			}
		}
		if r.ParagraphID != 0 {
			t.Errorf("star block should be one paragraph, got pid %d", r.ParagraphID)
		}
	}
}

func TestExtract_Evidence(t *testing.T) {
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CÂMARA MUNICIPAL"},
		{span.LabelDocName, "Aviso n.º 1"},
	})

	rels := Extract(spans, text)
	if len(rels) != 1 {
		t.Fatalf("got %d relations", len(rels))
	}
	if rels[0].Evidence != "" {
		t.Errorf("adjacent spans should carry empty evidence, got %q", rels[0].Evidence)
	}
}

func TestExtractSerieIII_OrgPropagation(t *testing.T) {
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CONSERVATÓRIA DO REGISTO COMERCIAL"},
		{span.LabelDocName, "**CONTASTE, LDA.**"},
		{span.LabelDocText, "Contrato de sociedade"},
		{span.LabelDocName, "**OUTRA EMPRESA, LDA.**"},
		{span.LabelDocText, "Alteração do pacto"},
	})

	rels := ExtractSerieIII(spans, text)
	if got := countKind(rels, KindOrgDoc); got != 2 {
		t.Fatalf("got %d org->doc relations, want 2: %+v", got, rels)
	}
	if got := countKind(rels, KindDocBody); got != 2 {
		t.Fatalf("got %d doc->body relations, want 2: %+v", got, rels)
	}
	// The single org is carried into both document paragraphs
	for _, r := range rels {
		if r.Kind == KindOrgDoc && r.Head.Text != "CONSERVATÓRIA DO REGISTO COMERCIAL" {
			t.Errorf("org not propagated: %+v", r)
		}
	}
	pids := make(map[int]struct{})
	for _, r := range rels {
		pids[r.ParagraphID] = struct{}{}
	}
	if len(pids) != 2 {
		t.Errorf("want 2 paragraphs, got pids %v", pids)
	}
}

func TestExtractSerieIII_OrgBodyFallback(t *testing.T) {
	// No document name: only the first org links to the bodies.
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CARTÓRIO NOTARIAL DO FUNCHAL"},
		{span.LabelOrg, "SEGUNDO CARTÓRIO"},
		{span.LabelDocText, "Habilitação de herdeiros"},
		{span.LabelDocText, "Procuração"},
	})

	rels := ExtractSerieIII(spans, text)
	if got := countKind(rels, KindOrgBody); got != 2 {
		t.Fatalf("got %d org->body relations, want 2: %+v", got, rels)
	}
	for _, r := range rels {
		if r.Head.Text != "CARTÓRIO NOTARIAL DO FUNCHAL" {
			t.Errorf("only the first org should link bodies, got %q", r.Head.Text)
		}
	}
}

func TestExportItems_Flat(t *testing.T) {
	rels := []Relation{
		{Head: ent(span.LabelOrg, "CÂMARA MUNICIPAL"), Tail: ent(span.LabelDocName, "Aviso n.º 1"), Kind: KindOrgDoc, ParagraphID: 0},
		{Head: ent(span.LabelOrg, "CÂMARA MUNICIPAL"), Tail: ent(span.LabelDocName, "Aviso  n.º 1"), Kind: KindOrgDoc, ParagraphID: 0},
		{Head: ent(span.LabelOrg, "SECRETARIA REGIONAL"), Tail: ent(span.LabelDocName, "Despacho 3"), Kind: KindOrgDoc, ParagraphID: 1},
	}

	p := ExportItems(rels)
	if p.Kind != payload.KindFlat {
		t.Fatalf("kind = %v, want flat", p.Kind)
	}
	if len(p.Flat) != 2 {
		t.Fatalf("got %d flat items, want 2: %+v", len(p.Flat), p.Flat)
	}
	// Duplicate documents collapse on the normalized key; the first display
	// text wins.
	if len(p.Flat[0].Docs) != 1 || p.Flat[0].Docs[0] != "Aviso n.º 1" {
		t.Errorf("dedup wrong: %+v", p.Flat[0].Docs)
	}
	if p.Flat[1].ParagraphID != 1 {
		t.Errorf("paragraph id not preserved: %+v", p.Flat[1])
	}
}

func TestExportItems_Hierarchical(t *testing.T) {
	rels := []Relation{
		{Head: ent(span.LabelOrgStarred, "VICE-PRESIDÊNCIA DO GOVERNO"), Tail: ent(span.LabelOrg, "DIREÇÃO REGIONAL DO ORÇAMENTO"), Kind: KindStarOrg, ParagraphID: 0},
		{Head: ent(span.LabelOrg, "DIREÇÃO REGIONAL DO ORÇAMENTO"), Tail: ent(span.LabelDocName, "Aviso n.º 5"), Kind: KindOrgDoc, ParagraphID: 0},
		{Head: ent(span.LabelOrg, "CÂMARA MUNICIPAL"), Tail: ent(span.LabelDocName, "Edital 2"), Kind: KindOrgDoc, ParagraphID: 1},
	}

	p := ExportItems(rels)
	if p.Kind != payload.KindHierarchical {
		t.Fatalf("kind = %v, want hierarchical", p.Kind)
	}
	if len(p.Hier) != 2 {
		t.Fatalf("got %d hier items, want 2", len(p.Hier))
	}
	star := p.Hier[0]
	if star.TopOrg != "VICE-PRESIDÊNCIA DO GOVERNO" || len(star.SubOrgs) != 1 {
		t.Fatalf("star item wrong: %+v", star)
	}
	if star.SubOrgs[0].Org != "DIREÇÃO REGIONAL DO ORÇAMENTO" || len(star.SubOrgs[0].Docs) != 1 {
		t.Errorf("sub-org wrong: %+v", star.SubOrgs[0])
	}
	// The plain paragraph is promoted to a single-sub hierarchy
	plain := p.Hier[1]
	if plain.TopOrg != "CÂMARA MUNICIPAL" || len(plain.SubOrgs) != 1 || plain.SubOrgs[0].Org != "CÂMARA MUNICIPAL" {
		t.Errorf("promoted item wrong: %+v", plain)
	}
}

func TestExportSerieIII(t *testing.T) {
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CONSERVATÓRIA DO REGISTO COMERCIAL"},
		{span.LabelDocName, "**CONTASTE, LDA.**"},
		{span.LabelDocText, "1 2 - Contrato de sociedade"},
		{span.LabelDocName, "**OUTRA, LDA.**"},
		{span.LabelDocText, "89"},
	})

	p := ExportSerieIII(ExtractSerieIII(spans, text))
	if p.Kind != payload.KindWindowed {
		t.Fatalf("kind = %v, want windowed", p.Kind)
	}
	// The shared org appears once in the table
	if len(p.Orgs) != 1 || p.Orgs[0].Text != "CONSERVATÓRIA DO REGISTO COMERCIAL" {
		t.Fatalf("org table wrong: %+v", p.Orgs)
	}
	if len(p.Windowed) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(p.Windowed), p.Windowed)
	}

	first := p.Windowed[0]
	if first.DocName != "**CONTASTE, LDA.**" {
		t.Errorf("doc name = %q", first.DocName)
	}
	if len(first.OrgIDs) != 1 || first.OrgIDs[0] != p.Orgs[0].ID {
		t.Errorf("org ids = %v", first.OrgIDs)
	}
	if len(first.Children) != 1 || first.Children[0].Text != "Contrato de sociedade" {
		t.Errorf("children = %+v (list prefix should be stripped)", first.Children)
	}

	// The all-numeric child is discarded entirely
	if len(p.Windowed[1].Children) != 0 {
		t.Errorf("numeric child should be dropped: %+v", p.Windowed[1].Children)
	}
}

func TestExportSerieIII_NoDocName(t *testing.T) {
	text, spans := buildText([]struct {
		label span.Label
		text  string
	}{
		{span.LabelOrg, "CARTÓRIO NOTARIAL DO FUNCHAL"},
		{span.LabelDocText, "Habilitação de herdeiros"},
	})

	p := ExportSerieIII(ExtractSerieIII(spans, text))
	if len(p.Windowed) != 1 {
		t.Fatalf("got %d items: %+v", len(p.Windowed), p.Windowed)
	}
	it := p.Windowed[0]
	if it.DocName != "" {
		t.Errorf("doc name should be absent, got %q", it.DocName)
	}
	if len(it.Children) != 1 || it.Children[0].Text != "Habilitação de herdeiros" {
		t.Errorf("children = %+v", it.Children)
	}
}

func TestCleanChildText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Contrato de sociedade", "Contrato de sociedade"},
		{"list prefix", "3 4 - Alteração do pacto", "Alteração do pacto"},
		{"legal ref survives", "Aviso n.º 6/2025 .....", "Aviso n.º 6/2025 ."},
		{"numeric token dropped", "Contrato 89", "Contrato"},
		{"ordinal survives", "Artigo 22.º alterado", "Artigo 22.º alterado"},
		{"pure number discarded", "89", ""},
		{"dashes only discarded", "- - -", ""},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanChildText(tt.in); got != tt.want {
				t.Errorf("CleanChildText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	pairs := map[Kind]string{
		KindOrgDoc:  "org->doc_name",
		KindStarOrg: "org*->org",
		KindDocBody: "doc_name->body",
		KindOrgBody: "org->body",
	}
	for k, want := range pairs {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
