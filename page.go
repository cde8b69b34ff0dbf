package main

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

type pageSection struct {
	Title  string
	Anchor string
	Text   string
}

func isSkippableTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript":
		return true
	}
	return false
}

func isHeadingTag(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func isBlockTag(tag string) bool {
	switch tag {
	case "p", "div", "br", "li":
		return true
	}
	return false
}

// htmlToText flattens a page to whitespace-normalised plain text,
// skipping script/style/noscript and breaking at block boundaries.
func htmlToText(raw string) string {
	var parts []string
	skipDepth := 0
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return cleanText(strings.Join(parts, ""))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if isSkippableTag(tag) && tt == html.StartTagToken {
				skipDepth++
			}
			if isBlockTag(tag) || isHeadingTag(tag) {
				parts = append(parts, "\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if isSkippableTag(tag) && skipDepth > 0 {
				skipDepth--
			}
			if isBlockTag(tag) || isHeadingTag(tag) {
				parts = append(parts, "\n")
			}
		case html.TextToken:
			if skipDepth == 0 {
				parts = append(parts, string(z.Text()))
			}
		}
	}
}

// parseSections splits a page at heading boundaries. Heading text and
// its id attribute become the section title and anchor; content before
// the first heading gets the default title "Document". A page with no
// usable markup degrades to one section holding the flattened text.
func parseSections(raw string) []pageSection {
	var sections []pageSection
	var current *pageSection
	var textParts []string
	var headingParts []string
	headingID := ""
	inHeading := false
	skipDepth := 0

	flush := func() {
		if current == nil {
			return
		}
		current.Text = cleanText(strings.Join(textParts, ""))
		if current.Title != "" || current.Text != "" {
			sections = append(sections, *current)
		}
		current = nil
		textParts = nil
	}

	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if isSkippableTag(tag) && tt == html.StartTagToken {
				skipDepth++
				continue
			}
			if skipDepth > 0 {
				continue
			}
			if isHeadingTag(tag) {
				flush()
				inHeading = true
				headingParts = nil
				headingID = ""
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "id" {
						headingID = cleanText(string(val))
					}
				}
				continue
			}
			if current != nil && isBlockTag(tag) {
				textParts = append(textParts, "\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if isSkippableTag(tag) {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			if isHeadingTag(tag) && inHeading {
				current = &pageSection{Title: cleanText(strings.Join(headingParts, "")), Anchor: headingID}
				inHeading = false
				headingParts = nil
				headingID = ""
				continue
			}
			if current != nil && isBlockTag(tag) {
				textParts = append(textParts, "\n")
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := string(z.Text())
			if inHeading {
				headingParts = append(headingParts, text)
				continue
			}
			if current == nil {
				current = &pageSection{Title: "Document"}
			}
			textParts = append(textParts, text)
		}
	}
	flush()

	if len(sections) == 0 {
		return []pageSection{{Title: "Document", Text: cleanText(raw)}}
	}
	return sections
}

// extractLinks returns normalised, deduplicated absolute URLs from
// every anchor href on the page.
func extractLinks(raw, baseURL string) []string {
	var out []string
	seen := make(map[string]bool)
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "a" {
			continue
		}
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if string(key) != "href" {
				continue
			}
			u := normalizeDocURL(baseURL, cleanText(string(val)))
			if u != "" && !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
}

// normalizeDocURL resolves href against base and strips fragment,
// query and trailing slash so the same page never queues twice.
func normalizeDocURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	if abs.Host == "" {
		return ""
	}
	abs.Fragment = ""
	abs.RawQuery = ""
	return strings.TrimRight(abs.String(), "/")
}

// linkAllowed keeps the crawl inside the seed's documentation site:
// same host, and either under the seed's path or matching the
// configured allowed-path substring.
func linkAllowed(seedURL, candidateURL, allowedPath string) bool {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return false
	}
	cand, err := url.Parse(candidateURL)
	if err != nil {
		return false
	}
	if cand.Host == "" || seed.Host != cand.Host {
		return false
	}
	seedPath := strings.TrimRight(seed.Path, "/")
	candPath := strings.TrimRight(cand.Path, "/")
	if seedPath != "" && strings.HasPrefix(candPath, seedPath) {
		return true
	}
	return allowedPath != "" && strings.Contains(candPath, allowedPath)
}

func sectionLink(pageURL, anchor string) string {
	if a := cleanText(anchor); a != "" {
		return pageURL + "#" + a
	}
	return pageURL
}

// chunkSection splits section text into overlapping fixed-size chunks.
// Pieces shorter than minLen after trimming are noise and dropped.
func chunkSection(text string, size, overlap, minLen int) []string {
	var chunks []string
	n := len(text)
	i := 0
	for i < n {
		end := i + size
		if end > n {
			end = n
		}
		piece := cleanText(text[i:end])
		if len(piece) > minLen {
			chunks = append(chunks, piece)
		}
		if end == n {
			break
		}
		next := end - overlap
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return chunks
}
