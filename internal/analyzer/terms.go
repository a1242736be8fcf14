package analyzer

import (
	"regexp"
	"strings"

	"github.com/buscalogo/capture-agent/internal/models"
)

// Portuguese stop words excluded from generated search terms.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"para", "com", "uma", "por", "mais", "como", "mas", "foi", "ele", "se",
		"tem", "à", "seu", "sua", "ou", "ser", "quando", "muito", "há", "nos",
		"já", "está", "eu", "também", "só", "pelo", "pela", "até", "isso", "ela",
		"entre", "era", "depois", "sem", "mesmo", "aos", "ter", "seus", "suas",
		"este", "essa", "aqui", "onde", "porque",
	} {
		stopWords[w] = struct{}{}
	}
}

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	spacePattern   = regexp.MustCompile(`\s+`)
	wordPattern    = regexp.MustCompile(`^[\p{L}]+$`)
)

// generateTerms derives up to maxTermsPerPage deduplicated lowercase search
// tokens from a page's visible text, in first-seen order.
func generateTerms(title string, meta map[string]string, headings []models.Heading, paragraphs []string, lists []models.List) []string {
	parts := []string{title, meta["description"]}
	for _, h := range headings {
		parts = append(parts, h.Text)
	}
	parts = append(parts, paragraphs...)
	for _, list := range lists {
		parts = append(parts, list.Items...)
	}

	text := strings.ToLower(strings.Join(parts, " "))
	text = tagPattern.ReplaceAllString(text, " ")
	text = nonWordPattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))

	seen := make(map[string]struct{})
	var terms []string
	for _, word := range strings.Fields(text) {
		if len([]rune(word)) <= 3 {
			continue
		}
		if _, common := stopWords[word]; common {
			continue
		}
		if !wordPattern.MatchString(word) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
		if len(terms) == maxTermsPerPage {
			break
		}
	}

	return terms
}
