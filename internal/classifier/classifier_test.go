// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifier

import (
	"strings"
	"testing"

	"boletim-scan/internal/span"
)

func labelsOf(spans []span.Span) []span.Label {
	out := make([]span.Label, len(spans))
	for i, s := range spans {
		out[i] = s.Label
	}
	return out
}

func TestClassify_Labels(t *testing.T) {
	text := strings.Join([]string{
		"Sumário",
		"CÂMARA MUNICIPAL DO FUNCHAL",
		"**Aviso n.º 12/2024**",
		"Texto corrido do aviso.",
		"O Presidente, João Silva",
		"- - -",
	}, "\n")

	spans := Classify(text)
	want := []span.Label{
		span.LabelSumario,
		span.LabelOrg,
		span.LabelDocName,
		span.LabelDocText,
		span.LabelSignature,
		span.LabelJunk,
	}
	got := labelsOf(spans)
	if len(got) != len(want) {
		t.Fatalf("got %d spans %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d label = %v, want %v (%q)", i, got[i], want[i], spans[i].Text)
		}
	}
	if err := span.Validate(spans); err != nil {
		t.Errorf("output violates the span contract: %v", err)
	}
}

func TestClassify_OrgRunMerging(t *testing.T) {
	// Consecutive ALL-CAPS lines merge into one organization span; a blank
	// line keeps the run open.
	text := "SECRETARIA REGIONAL\n\nDE EDUCAÇÃO\nTexto normal.\n"

	spans := Classify(text)
	if len(spans) != 2 {
		t.Fatalf("got %d spans: %+v", len(spans), spans)
	}
	org := spans[0]
	if org.Label != span.LabelOrg {
		t.Fatalf("label = %v", org.Label)
	}
	if !strings.HasPrefix(org.Text, "SECRETARIA") || !strings.HasSuffix(org.Text, "EDUCAÇÃO") {
		t.Errorf("merged run text = %q", org.Text)
	}
}

func TestClassify_StarredOrg(t *testing.T) {
	text := "VICE-PRESIDÊNCIA DO GOVERNO *\nDIREÇÃO REGIONAL DO ORÇAMENTO\n"

	spans := Classify(text)
	if len(spans) != 2 {
		t.Fatalf("got %d spans: %+v", len(spans), spans)
	}
	// The label change splits the run
	if spans[0].Label != span.LabelOrgStarred {
		t.Errorf("starred heading label = %v", spans[0].Label)
	}
	if spans[1].Label != span.LabelOrg {
		t.Errorf("plain heading label = %v", spans[1].Label)
	}
}

func TestClassify_MergesSplitDocNames(t *testing.T) {
	text := "**Aviso n.º 3 da Câmara**\n**relativo ao trânsito**\nCorpo.\n"

	spans := Classify(text)
	if len(spans) != 2 {
		t.Fatalf("got %d spans: %+v", len(spans), spans)
	}
	name := spans[0]
	if name.Label != span.LabelDocName {
		t.Fatalf("label = %v", name.Label)
	}
	if !strings.Contains(name.Text, "trânsito") {
		t.Errorf("split title should merge, got %q", name.Text)
	}
}

func TestClassify_StopBlocksDocNameMerge(t *testing.T) {
	// A title closed by punctuation never absorbs the next one.
	text := "**Contaste, Lda.**\n**Contrato de sociedade**\n"

	spans := Classify(text)
	if len(spans) != 2 {
		t.Fatalf("titles should stay separate, got %+v", spans)
	}
	if spans[0].Text != "**Contaste, Lda.**" || spans[1].Text != "**Contrato de sociedade**" {
		t.Errorf("spans = %+v", spans)
	}
}

func TestClassify_SumarioVariants(t *testing.T) {
	for _, in := range []string{"Sumário", "SUMARIO", "**Sumário**", "# Sumário"} {
		spans := Classify(in + "\n")
		if len(spans) != 1 || spans[0].Label != span.LabelSumario {
			t.Errorf("Classify(%q) = %+v, want one sumario span", in, spans)
		}
	}
}

func TestClassify_BoldCapsIsOrg(t *testing.T) {
	// Bold markers alone do not make a document name; an ALL-CAPS bold line
	// is still an organization heading.
	spans := Classify("**CONSERVATÓRIA DO REGISTO COMERCIAL**\n")
	if len(spans) != 1 || spans[0].Label != span.LabelOrg {
		t.Errorf("spans = %+v, want one org span", spans)
	}
}

func TestClassify_Empty(t *testing.T) {
	if spans := Classify(""); len(spans) != 0 {
		t.Errorf("empty text should yield no spans, got %+v", spans)
	}
}
