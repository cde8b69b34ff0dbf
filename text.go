package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Clustering-side stop words. Retrieval uses a wider set: documentation
// pages share far more boilerplate vocabulary with ticket labels than
// tickets share with each other.
var clusterStopWords = map[string]bool{
	// Generic English filler with near-zero discriminating power.
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"from": true, "this": true, "please": true, "kindly": true,
	"are": true, "was": true, "were": true, "have": true, "has": true, "had": true,
	// Words that appear in virtually every support ticket.
	"issue": true, "request": true, "need": true, "unable": true,
	"not": true, "error": true, "getting": true, "facing": true,
	"using": true, "user": true,
	// Layout words from ticket templates.
	"table": true, "below": true, "above": true, "following": true,
}

var retrievalStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"from": true, "this": true, "please": true, "kindly": true,
	"issue": true, "request": true, "need": true, "unable": true, "not": true,
	"are": true, "was": true, "were": true, "have": true, "has": true, "had": true,
	"module": true, "data": true, "table": true, "gstr": true,
	"into": true, "your": true, "their": true, "what": true, "when": true,
	"where": true, "how": true, "via": true, "support": true, "feature": true,
}

var wordRegex = regexp.MustCompile(`[a-zA-Z0-9]{3,}`)
var spaceRegex = regexp.MustCompile(`\s+`)
var numberRegex = regexp.MustCompile(`[^0-9.\-]`)

func cleanText(s string) string {
	return spaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// tokenize lowercases, extracts alphanumeric runs of length >= 3 and
// drops stop words. The same token rules feed both TF-IDF vectors and
// evidence scoring, so cluster labels and chunks tokenize identically.
func tokenize(s string, stop map[string]bool) []string {
	words := wordRegex.FindAllString(strings.ToLower(cleanText(s)), -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !stop[w] {
			out = append(out, w)
		}
	}
	return out
}

// parseNumber extracts a float from currency-formatted text like
// "₹1,20,000.50". Anything unparseable is 0, never an error: malformed
// ARR cells must not abort a run.
func parseNumber(s string) float64 {
	s = numberRegex.ReplaceAllString(cleanText(s), "")
	if s == "" || s == "-" || s == "." || s == "-." {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// topCounts returns the keys of a counter in descending count order,
// ties broken by first insertion via the order slice.
func topCounts(counts map[string]int, order []string, k int) []string {
	seen := make(map[string]bool, len(order))
	var keys []string
	for _, key := range order {
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	// Stable selection sort by count; key lists here are small.
	for i := 0; i < len(keys); i++ {
		best := i
		for j := i + 1; j < len(keys); j++ {
			if counts[keys[j]] > counts[keys[best]] {
				best = j
			}
		}
		if best != i {
			picked := keys[best]
			copy(keys[i+1:best+1], keys[i:best])
			keys[i] = picked
		}
	}
	if k > 0 && len(keys) > k {
		keys = keys[:k]
	}
	return keys
}

func countTokens(tokens []string) (map[string]int, []string) {
	counts := make(map[string]int, len(tokens))
	var order []string
	for _, tok := range tokens {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	return counts, order
}

type stopWordFile struct {
	StopWords []string `yaml:"stop_words"`
}

// LoadExtraStopWords merges domain stop words from a YAML file into a
// copy of the base set. The file is optional configuration, so a
// missing path at call time is an error only to the caller that
// configured it.
func LoadExtraStopWords(path string, base map[string]bool) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stop word file: %w", err)
	}
	var parsed stopWordFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing stop word file %s: %w", path, err)
	}
	merged := make(map[string]bool, len(base)+len(parsed.StopWords))
	for w := range base {
		merged[w] = true
	}
	for _, w := range parsed.StopWords {
		w = strings.ToLower(cleanText(w))
		if w != "" {
			merged[w] = true
		}
	}
	return merged, nil
}

// truncateText caps s at limit bytes without splitting a rune; ticket
// text carries ₹ and Devanagari, so a blind byte slice would leak
// invalid UTF-8 into the output files.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
