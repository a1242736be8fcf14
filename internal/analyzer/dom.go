package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/buscalogo/capture-agent/internal/models"
)

// DocumentAnalyzer fetches a live page and extracts a PageExtract from its
// parsed document. It is the agent's variant for pages the user asked to
// capture, and the only variant that runs the content-analysis heuristics.
type DocumentAnalyzer struct {
	userAgent string
	timeout   time.Duration
}

func NewDocumentAnalyzer(userAgent string, timeout time.Duration) *DocumentAnalyzer {
	return &DocumentAnalyzer{
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (a *DocumentAnalyzer) Analyze(ctx context.Context, pageURL string) (*models.PageExtract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	collector := colly.NewCollector(
		colly.UserAgent(a.userAgent),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(a.timeout)

	var extract *models.PageExtract
	var visitErr error

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		extract = a.extractDocument(e.DOM, pageURL, parsed.Hostname())
	})

	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	collector.Wait()

	if visitErr != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, visitErr)
	}
	if extract == nil {
		return nil, fmt.Errorf("no document extracted from %s", pageURL)
	}

	return extract, nil
}

func (a *DocumentAnalyzer) extractDocument(doc *goquery.Selection, pageURL, hostname string) *models.PageExtract {
	extract := &models.PageExtract{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Meta:  map[string]string{},
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok {
			name, _ = s.Attr("property")
		}
		content, _ := s.Attr("content")
		if name != "" && content != "" {
			extract.Meta[name] = content
		}
	})

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		level := 1
		switch goquery.NodeName(s) {
		case "h2":
			level = 2
		case "h3":
			level = 3
		}
		extract.Headings = append(extract.Headings, models.Heading{Level: level, Text: text})
	})

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > minParagraphLength {
			extract.Paragraphs = append(extract.Paragraphs, text)
		}
	})

	doc.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		var items []string
		s.Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := strings.TrimSpace(li.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			extract.Lists = append(extract.Lists, models.List{
				Type:  goquery.NodeName(s),
				Items: items,
			})
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		title, _ := s.Attr("title")
		rel, _ := s.Attr("rel")
		text := strings.TrimSpace(s.Text())

		if link := buildLink(href, text, title, rel, hostname); link != nil {
			extract.Links = append(extract.Links, *link)
		}
	})

	sort.SliceStable(extract.Links, func(i, j int) bool {
		return extract.Links[i].Relevance > extract.Links[j].Relevance
	})
	if len(extract.Links) > maxLinksPerPage {
		extract.Links = extract.Links[:maxLinksPerPage]
	}

	extract.Terms = generateTerms(extract.Title, extract.Meta, extract.Headings, extract.Paragraphs, extract.Lists)

	bodyText := strings.TrimSpace(doc.Find("body").Text())
	extract.Analysis = analyzeContent(documentView{
		url:      pageURL,
		title:    extract.Title,
		headings: extract.Headings,
		bodyText: bodyText,
		structure: models.ContentStructure{
			HasTableOfContents:   doc.Find(`.toc, .table-of-contents, [class*="toc"]`).Length() > 0,
			HasRelatedArticles:   doc.Find(`.related, .related-articles, [class*="related"]`).Length() > 0,
			HasComments:          doc.Find(`.comments, .comment-section, [class*="comment"]`).Length() > 0,
			HasSocialSharing:     doc.Find(`.social-share, .share-buttons, [class*="share"]`).Length() > 0,
			EstimatedReadingTime: estimatedReadingTime(bodyText),
		},
	})

	return extract
}
