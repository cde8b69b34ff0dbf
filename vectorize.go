package main

import (
	"math"
	"strings"
)

type sparseVec map[string]float64

// termVector builds a count-based, L2-normalised word vector. Used for
// the label/description helpers where corpus-wide IDF would add noise.
func termVector(text string, stop map[string]bool) sparseVec {
	counts, _ := countTokens(tokenize(text, stop))
	vec := make(sparseVec, len(counts))
	var norm float64
	for tok, c := range counts {
		v := float64(c)
		vec[tok] = v
		norm += v * v
	}
	normalizeSparse(vec, norm)
	return vec
}

// vectorBasis is the text a ticket's TF-IDF vector is built from.
// Description is the primary signal; title fills in when the
// description is short or missing.
func vectorBasis(t TicketRecord) string {
	desc := cleanText(t.Description)
	title := cleanText(t.Title)
	basis := strings.TrimSpace(truncateText(desc, 600) + " " + title)
	if basis == "" {
		return title
	}
	return basis
}

// buildTFIDFVectors builds one L2-normalised sparse TF-IDF vector per
// ticket over unigrams plus adjacent bigrams. Bigrams are joined from
// the already-filtered unigram list, so stop-word pairs never form,
// and compound concepts ("tds__certificate", "gstr__reconciliation")
// become single high-IDF features shared between tickets that describe
// the same requirement with different surrounding words.
func buildTFIDFVectors(tickets []TicketRecord, stop map[string]bool) []sparseVec {
	tokenized := make([][]string, len(tickets))
	for i, t := range tickets {
		uni := tokenize(vectorBasis(t), stop)
		toks := make([]string, 0, len(uni)*2)
		toks = append(toks, uni...)
		for k := 0; k+1 < len(uni); k++ {
			toks = append(toks, uni[k]+"__"+uni[k+1])
		}
		tokenized[i] = toks
	}

	n := len(tokenized)
	df := make(map[string]int)
	for _, toks := range tokenized {
		seen := make(map[string]bool, len(toks))
		for _, tok := range toks {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	vectors := make([]sparseVec, n)
	for i, toks := range tokenized {
		tf, _ := countTokens(toks)
		total := len(toks)
		if total == 0 {
			total = 1
		}
		vec := make(sparseVec, len(tf))
		var norm float64
		for tok, count := range tf {
			tfScore := float64(count) / float64(total)
			// Smoothed IDF: ln((N+1)/(df+1)) + 1 — strictly positive
			// even for terms present in every document.
			idfScore := math.Log(float64(n+1)/float64(df[tok]+1)) + 1.0
			w := tfScore * idfScore
			vec[tok] = w
			norm += w * w
		}
		normalizeSparse(vec, norm)
		vectors[i] = vec
	}
	return vectors
}

func normalizeSparse(vec sparseVec, sumSquares float64) {
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}
	for tok, v := range vec {
		vec[tok] = v / norm
	}
}

// cosineSparse assumes both vectors are already L2-normalised, so the
// dot product is the cosine.
func cosineSparse(a, b sparseVec) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for tok, va := range a {
		if vb, ok := b[tok]; ok {
			dot += va * vb
		}
	}
	return dot
}

func cosineDense(a, b []float64) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
	}
	for _, x := range a {
		na += x * x
	}
	for _, y := range b {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
