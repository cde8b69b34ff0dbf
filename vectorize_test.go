package main

import (
	"math"
	"reflect"
	"testing"
)

func ticketWithText(title, desc string) TicketRecord {
	return TicketRecord{Title: title, Description: desc, Product: "IDT"}
}

func TestBuildTFIDFVectorsUnitNorm(t *testing.T) {
	tickets := []TicketRecord{
		ticketWithText("GSTR filing delay", "GSTR-2B reconciliation mismatch for vendor invoices"),
		ticketWithText("TDS certificate", "Need TDS certificate download in bulk"),
		ticketWithText("Login trouble", "Password reset email never arrives"),
	}
	vectors := buildTFIDFVectors(tickets, clusterStopWords)
	if len(vectors) != len(tickets) {
		t.Fatalf("expected %d vectors, got %d", len(tickets), len(vectors))
	}
	for i, vec := range vectors {
		var sum float64
		for _, v := range vec {
			sum += v * v
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Fatalf("vector %d not unit norm: sum of squares = %v", i, sum)
		}
	}
}

func TestBuildTFIDFVectorsEmptyDocumentStaysZero(t *testing.T) {
	tickets := []TicketRecord{
		ticketWithText("", "the and for"),
		ticketWithText("GSTR filing", "reconciliation pending"),
	}
	vectors := buildTFIDFVectors(tickets, clusterStopWords)
	if len(vectors[0]) != 0 {
		t.Fatalf("all-stop-word document should produce an empty vector, got %v", vectors[0])
	}
	if cosineSparse(vectors[0], vectors[1]) != 0 {
		t.Fatalf("empty vector must have zero similarity to everything")
	}
}

func TestBuildTFIDFVectorsFormsBigrams(t *testing.T) {
	tickets := []TicketRecord{
		ticketWithText("", "vendor invoice mismatch"),
		ticketWithText("", "payment gateway timeout"),
	}
	vectors := buildTFIDFVectors(tickets, clusterStopWords)
	for _, feat := range []string{"vendor", "invoice", "mismatch", "vendor__invoice", "invoice__mismatch"} {
		if _, ok := vectors[0][feat]; !ok {
			t.Fatalf("expected feature %q in vector, have %v", feat, vectors[0])
		}
	}
	if _, ok := vectors[0]["mismatch__payment"]; ok {
		t.Fatalf("bigrams must not cross document boundaries")
	}
}

func TestBuildTFIDFVectorsDeterministic(t *testing.T) {
	tickets := []TicketRecord{
		ticketWithText("Bulk upload", "Bulk invoice upload fails with timeout"),
		ticketWithText("Upload errors", "Invoice upload timeout during bulk import"),
		ticketWithText("Dashboard", "Compliance dashboard missing filters"),
	}
	first := buildTFIDFVectors(tickets, clusterStopWords)
	second := buildTFIDFVectors(tickets, clusterStopWords)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated runs over the same input must produce identical vectors")
	}
}

func TestCosineSparseIdenticalTexts(t *testing.T) {
	tickets := []TicketRecord{
		ticketWithText("", "vendor invoice mismatch reconciliation"),
		ticketWithText("", "vendor invoice mismatch reconciliation"),
	}
	vectors := buildTFIDFVectors(tickets, clusterStopWords)
	if sim := cosineSparse(vectors[0], vectors[1]); math.Abs(sim-1.0) > 1e-9 {
		t.Fatalf("identical texts should have cosine 1, got %v", sim)
	}
}

func TestCosineDense(t *testing.T) {
	if sim := cosineDense([]float64{1, 0}, []float64{0, 1}); sim != 0 {
		t.Fatalf("orthogonal vectors should score 0, got %v", sim)
	}
	if sim := cosineDense([]float64{2, 0}, []float64{5, 0}); math.Abs(sim-1.0) > 1e-9 {
		t.Fatalf("parallel vectors should score 1, got %v", sim)
	}
	if sim := cosineDense(nil, []float64{1}); sim != 0 {
		t.Fatalf("empty vector should score 0, got %v", sim)
	}
}

func TestVectorBasisPrefersDescriptionWithTitle(t *testing.T) {
	tk := ticketWithText("Short title", "Long description body")
	if got := vectorBasis(tk); got != "Long description body Short title" {
		t.Fatalf("vectorBasis = %q", got)
	}
	empty := ticketWithText("", "")
	if got := vectorBasis(empty); got != "" {
		t.Fatalf("empty ticket basis = %q", got)
	}
}
