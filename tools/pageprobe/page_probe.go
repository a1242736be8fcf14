package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/buscalogo/capture-agent/internal/analyzer"
	"github.com/buscalogo/capture-agent/internal/capture"
)

// Standalone probe: fetch one page and print what the extractor would store
// for it. Useful for tuning the link classifier against a live site.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <url>\n", os.Args[0])
		os.Exit(1)
	}
	pageURL := os.Args[1]

	body, err := fetchPage(pageURL)
	if err != nil {
		log.Fatalf("Error fetching page: %v", err)
	}

	extractor := analyzer.NewHTMLExtractor()
	extract, err := extractor.Extract(pageURL, body)
	if err != nil {
		log.Fatalf("Error extracting page: %v", err)
	}

	fmt.Printf("Title: %s\n", extract.Title)
	fmt.Printf("Headings: %d, Paragraphs: %d, Lists: %d\n",
		len(extract.Headings), len(extract.Paragraphs), len(extract.Lists))

	fmt.Println("\n--- Links ---")
	for _, link := range extract.Links {
		fmt.Printf("[%-8s] %.2f  %s  (%s)\n", link.Type, link.Relevance, link.URL, link.Text)
	}

	fmt.Println("\n--- Crawl candidates ---")
	hostname := ""
	if parsed, err := url.Parse(pageURL); err == nil {
		hostname = parsed.Hostname()
	}
	for _, candidate := range capture.CrawlCandidates(extract.Links, pageURL, 0) {
		normalized, err := capture.NormalizeURL(candidate.URL, hostname)
		if err != nil {
			continue
		}
		fmt.Printf("%.2f  %s\n", candidate.Relevance, normalized)
	}

	fmt.Println("\n--- Search terms ---")
	fmt.Println(extract.Terms)
}

func fetchPage(pageURL string) (string, error) {
	resp, err := http.Get(pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
