package capture

import (
	"strings"

	"github.com/buscalogo/capture-agent/internal/analyzer"
	"github.com/buscalogo/capture-agent/internal/models"
)

// crawlRelevanceFloor is the minimum relevance for a link to be worth
// fetching in the background.
const crawlRelevanceFloor = 0.3

// CrawlCandidates selects the links on an analyzed page worth queuing for
// background capture. A link qualifies when it is classified as an article or
// its anchor text carries an article keyword, its relevance clears the floor,
// its URL has no fragment, and it does not point back at the page being
// analyzed. maxPerPage of 0 means unbounded.
func CrawlCandidates(links []models.DiscoveredLink, currentPageURL string, maxPerPage int) []models.DiscoveredLink {
	var candidates []models.DiscoveredLink

	for _, link := range links {
		isArticle := link.Type == models.LinkArticle
		if !isArticle && !analyzer.IsRelevantArticleText(link.Text) {
			continue
		}
		if link.Relevance <= crawlRelevanceFloor {
			continue
		}
		if strings.Contains(link.URL, "#") {
			continue
		}
		if link.URL == currentPageURL {
			continue
		}

		candidates = append(candidates, link)
		if maxPerPage > 0 && len(candidates) == maxPerPage {
			break
		}
	}

	return candidates
}
