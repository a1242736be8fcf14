package analyzer

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/buscalogo/capture-agent/internal/models"
)

// HTMLExtractor builds a PageExtract from HTML the caller already fetched.
// This is the queue-side variant: it never touches the network and produces
// no content analysis.
type HTMLExtractor struct{}

func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

func (e *HTMLExtractor) Extract(pageURL string, content string) (*models.PageExtract, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML from %s: %w", pageURL, err)
	}

	extract := &models.PageExtract{Meta: map[string]string{}}
	hostname := parsed.Hostname()

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if extract.Title == "" {
					extract.Title = strings.TrimSpace(nodeText(n))
				}
			case "meta":
				name := attr(n, "name")
				if name == "" {
					name = attr(n, "property")
				}
				if content := attr(n, "content"); name != "" && content != "" {
					extract.Meta[name] = content
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if text := strings.TrimSpace(nodeText(n)); text != "" {
					extract.Headings = append(extract.Headings, models.Heading{
						Level: int(n.Data[1] - '0'),
						Text:  text,
					})
				}
				return
			case "p":
				if text := strings.TrimSpace(nodeText(n)); len(text) > minParagraphLength {
					extract.Paragraphs = append(extract.Paragraphs, text)
				}
				return
			case "ul", "ol":
				if items := listItems(n); len(items) > 0 {
					extract.Lists = append(extract.Lists, models.List{Type: n.Data, Items: items})
				}
				return
			case "a":
				href := attr(n, "href")
				text := strings.TrimSpace(nodeText(n))
				if link := buildLink(href, text, attr(n, "title"), attr(n, "rel"), hostname); link != nil {
					extract.Links = append(extract.Links, *link)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	sort.SliceStable(extract.Links, func(i, j int) bool {
		return extract.Links[i].Relevance > extract.Links[j].Relevance
	})
	if len(extract.Links) > maxLinksPerPage {
		extract.Links = extract.Links[:maxLinksPerPage]
	}

	extract.Terms = generateTerms(extract.Title, extract.Meta, extract.Headings, extract.Paragraphs, extract.Lists)

	return extract, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func listItems(n *html.Node) []string {
	var items []string
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				items = append(items, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return items
}
