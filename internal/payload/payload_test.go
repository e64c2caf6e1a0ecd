// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"errors"
	"testing"

	"boletim-scan/internal/span"
)

func TestParse_FlatShape(t *testing.T) {
	data := []byte(`{
		"items": [
			{"paragraph_id": 0, "org": {"text": "CÂMARA MUNICIPAL"}, "docs": [{"text": "Aviso n.º 1"}, {"text": "Aviso n.º 2"}]},
			{"org": {"text": "SECRETARIA REGIONAL"}, "docs": [{"text": "Despacho 3"}]}
		]
	}`)

	p, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Kind != KindFlat {
		t.Fatalf("kind = %v, want flat", p.Kind)
	}
	if len(p.Flat) != 2 {
		t.Fatalf("got %d flat items, want 2", len(p.Flat))
	}
	if p.Flat[0].Org != "CÂMARA MUNICIPAL" || len(p.Flat[0].Docs) != 2 {
		t.Errorf("first item wrong: %+v", p.Flat[0])
	}
	// Missing paragraph_id becomes the -1 sentinel
	if p.Flat[1].ParagraphID != -1 {
		t.Errorf("missing paragraph_id = %d, want -1", p.Flat[1].ParagraphID)
	}
}

func TestParse_HierarchicalShape(t *testing.T) {
	data := []byte(`{
		"items": [
			{
				"paragraph_id": 1,
				"top_org": {"text": "VICE-PRESIDÊNCIA DO GOVERNO"},
				"sub_orgs": [
					{"org": {"text": "DIREÇÃO REGIONAL DO ORÇAMENTO"}, "docs": [{"text": "Aviso n.º 5"}]}
				]
			},
			{"org": {"text": "CÂMARA MUNICIPAL"}, "docs": [{"text": "Edital 2"}]}
		]
	}`)

	p, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Kind != KindHierarchical {
		t.Fatalf("kind = %v, want hierarchical", p.Kind)
	}
	if len(p.Hier) != 2 {
		t.Fatalf("got %d hier items, want 2", len(p.Hier))
	}
	// The flat item is promoted to a single-sub hierarchy
	promoted := p.Hier[1]
	if promoted.TopOrg != "CÂMARA MUNICIPAL" || len(promoted.SubOrgs) != 1 {
		t.Errorf("promoted item wrong: %+v", promoted)
	}
	if promoted.SubOrgs[0].Org != "CÂMARA MUNICIPAL" || promoted.SubOrgs[0].Docs[0] != "Edital 2" {
		t.Errorf("promoted sub wrong: %+v", promoted.SubOrgs[0])
	}
}

func TestParse_WindowedShape(t *testing.T) {
	data := []byte(`{
		"orgs": [
			{"id": 0, "text": "CONSERVATÓRIA DO REGISTO COMERCIAL", "label": "OrgLabel"}
		],
		"items": [
			{
				"paragraph_id": 0,
				"org_ids": [0],
				"doc_name": {"text": "**CONTASTE, LDA.**"},
				"children": [{"child": "Contrato de sociedade", "label": "DocText"}],
				"allowed_children": ["Contrato de sociedade"]
			}
		]
	}`)

	p, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Kind != KindWindowed {
		t.Fatalf("kind = %v, want windowed", p.Kind)
	}
	if len(p.Orgs) != 1 || len(p.Windowed) != 1 {
		t.Fatalf("orgs=%d items=%d", len(p.Orgs), len(p.Windowed))
	}
	it := p.Windowed[0]
	if it.DocName != "**CONTASTE, LDA.**" || len(it.Children) != 1 {
		t.Errorf("windowed item wrong: %+v", it)
	}
	if it.Children[0].Lbl != span.LabelDocText {
		t.Errorf("child label = %v", it.Children[0].Lbl)
	}
}

func TestParse_InvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"flat item without org", `{"items": [{"docs": [{"text": "Aviso"}]}]}`},
		{"hier item without any org", `{"items": [{"top_org": {"text": "A"}}, {"docs": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("err = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestOrgMap(t *testing.T) {
	p := &Payload{
		Kind: KindWindowed,
		Orgs: []Org{
			{ID: 2, Text: "  SEGUNDA  "},
			{ID: 0, Text: "PRIMEIRA"},
		},
	}
	ids, names := p.OrgMap()
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 2 {
		t.Errorf("ids = %v", ids)
	}
	if names[2] != "SEGUNDA" {
		t.Errorf("whitespace not trimmed: %q", names[2])
	}

	empty := &Payload{Kind: KindWindowed}
	ids, names = empty.OrgMap()
	if len(ids) != 1 || ids[0] != -1 || names[-1] != "(Sem organização)" {
		t.Errorf("empty table sentinel wrong: %v %v", ids, names)
	}
}

func TestItemsByOrg(t *testing.T) {
	p := &Payload{
		Kind: KindWindowed,
		Windowed: []WindowedItem{
			{ParagraphID: 0, OrgIDs: []int{0}, DocName: "A"},
			{ParagraphID: 1, OrgIDs: []int{0, 1}, DocName: "B"},
		},
	}
	grouped := p.ItemsByOrg()
	if len(grouped[0]) != 2 || len(grouped[1]) != 1 {
		t.Errorf("grouping wrong: %v", grouped)
	}
}

func TestAllowedOrgNames_Dedup(t *testing.T) {
	p := &Payload{
		Kind: KindFlat,
		Flat: []FlatItem{
			{Org: "Câmara Municipal"},
			{Org: "CAMARA MUNICIPAL"},
			{Org: "Secretaria Regional"},
			{Org: "  "},
		},
	}
	names := p.AllowedOrgNames()
	if len(names) != 2 {
		t.Fatalf("names = %v, want 2 entries", names)
	}
	if names[0] != "Câmara Municipal" {
		t.Errorf("first occurrence should win: %v", names)
	}
}

func TestAllowedOrgNames_Hierarchical(t *testing.T) {
	p := &Payload{
		Kind: KindHierarchical,
		Hier: []HierItem{
			{TopOrg: "GOVERNO REGIONAL", SubOrgs: []SubOrg{{Org: "DIREÇÃO A"}, {Org: "DIREÇÃO B"}}},
		},
	}
	names := p.AllowedOrgNames()
	if len(names) != 3 {
		t.Errorf("names = %v, want top org plus two subs", names)
	}
}

func TestAllowedChildTitles(t *testing.T) {
	it := WindowedItem{
		AllowedChildren: []string{"Contrato de sociedade:", "  "},
		Children: []Child{
			{Text: "Contrato  de sociedade", Lbl: span.LabelDocText},
			{Text: "Alteração do pacto", Lbl: span.LabelDocText},
		},
	}
	titles := it.AllowedChildTitles()
	if len(titles) != 2 {
		t.Fatalf("titles = %v, want 2 (dedup on tight key)", titles)
	}
	if titles[0] != "Contrato de sociedade" {
		t.Errorf("first title = %q (trailing colon should be stripped)", titles[0])
	}
	if titles[1] != "Alteração do pacto" {
		t.Errorf("second title = %q", titles[1])
	}
}
