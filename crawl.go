package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
)

const crawlerUserAgent = "roadmap-detector/1.0"

type fetchedPage struct {
	URL  string
	HTML string
	Text string
}

// Crawler fetches documentation pages breadth-first inside a seed's
// site scope, consulting the page cache before the network.
type Crawler struct {
	client       *http.Client
	cache        PageCache
	maxPages     int
	allowedPath  string
	forceRefresh bool
}

func NewCrawler(client *http.Client, cache PageCache, maxPages int, allowedPath string, forceRefresh bool) *Crawler {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Crawler{
		client:       client,
		cache:        cache,
		maxPages:     maxPages,
		allowedPath:  allowedPath,
		forceRefresh: forceRefresh,
	}
}

// CrawlResult tracks per-seed counters; fetch failures accumulate as
// warnings instead of stopping the crawl.
type CrawlResult struct {
	PagesFetched int
	CacheHits    int
	Errors       []string
}

func (c *Crawler) fetchPage(url string) (fetchedPage, bool, error) {
	if !c.forceRefresh {
		if page, ok, err := c.cache.Get(url); err != nil {
			log.Printf("crawl cache read error url=%s err=%v", url, err)
		} else if ok {
			return fetchedPage{URL: page.URL, HTML: page.HTML, Text: page.Text}, true, nil
		}
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fetchedPage{}, false, err
	}
	req.Header.Set("User-Agent", crawlerUserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return fetchedPage{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fetchedPage{}, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchedPage{}, false, err
	}

	page := fetchedPage{URL: url, HTML: string(body), Text: htmlToText(string(body))}
	if err := c.cache.Put(url, cachedPage{URL: url, HTML: page.HTML, Text: page.Text}); err != nil {
		log.Printf("crawl cache write error url=%s err=%v", url, err)
	}
	return page, false, nil
}

// CrawlSeed walks the seed's documentation site in strict breadth-first
// insertion order, bounded by the page cap. Links leaving the seed's
// host/path scope are never queued.
func (c *Crawler) CrawlSeed(seedURL string) ([]fetchedPage, CrawlResult) {
	seed := normalizeDocURL(seedURL, "")
	if seed == "" {
		seed = seedURL
	}

	queue := []string{seed}
	queued := map[string]bool{seed: true}
	seen := make(map[string]bool)
	var pages []fetchedPage
	var result CrawlResult

	for len(queue) > 0 && len(pages) < c.maxPages {
		url := queue[0]
		queue = queue[1:]
		if seen[url] {
			continue
		}
		seen[url] = true

		page, hit, err := c.fetchPage(url)
		if err != nil {
			log.Printf("crawl fetch failed url=%s err=%v", url, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", url, err))
			continue
		}
		if hit {
			result.CacheHits++
		} else {
			result.PagesFetched++
		}
		pages = append(pages, page)

		for _, link := range extractLinks(page.HTML, url) {
			if seen[link] || queued[link] {
				continue
			}
			if linkAllowed(seedURL, link, c.allowedPath) {
				queued[link] = true
				queue = append(queue, link)
			}
		}
	}
	return pages, result
}

// BuildCorpus crawls every seed and splits each page into
// heading-anchored sections and overlapping chunks. A partly
// unreachable corpus is a smaller corpus, never an error.
func BuildCorpus(c *Crawler, seeds []DocSeed, chunkSize, chunkOverlap, chunkMinLen int) ([]DocumentChunk, CrawlResult) {
	var corpus []DocumentChunk
	var total CrawlResult
	for _, seed := range seeds {
		pages, result := c.CrawlSeed(seed.URL)
		total.PagesFetched += result.PagesFetched
		total.CacheHits += result.CacheHits
		total.Errors = append(total.Errors, result.Errors...)

		for pIdx, page := range pages {
			sections := parseSections(page.HTML)
			for sIdx, sec := range sections {
				chunks := chunkSection(sec.Text, chunkSize, chunkOverlap, chunkMinLen)
				for cIdx, chunk := range chunks {
					corpus = append(corpus, DocumentChunk{
						DocID:         seed.DocID,
						DocTitle:      seed.Title,
						URL:           page.URL,
						SectionTitle:  sectionTitleOrDefault(sec.Title),
						SectionAnchor: cleanText(sec.Anchor),
						SectionLink:   sectionLink(page.URL, sec.Anchor),
						PublishedDate: seed.PublishedDate,
						ChunkID:       fmt.Sprintf("%d:%d:%d", pIdx, sIdx, cIdx),
						Text:          chunk,
					})
				}
			}
		}
		log.Printf("crawl seed done doc_id=%s pages=%d fetched=%d cache_hits=%d errors=%d",
			seed.DocID, len(pages), result.PagesFetched, result.CacheHits, len(result.Errors))
	}
	return corpus, total
}

func sectionTitleOrDefault(title string) string {
	if t := cleanText(title); t != "" {
		return t
	}
	return "Section"
}
