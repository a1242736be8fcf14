package analyzer

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/buscalogo/capture-agent/internal/models"
)

// documentView is the slice of a live document the content heuristics need.
type documentView struct {
	url       string
	title     string
	headings  []models.Heading
	bodyText  string
	structure models.ContentStructure
}

var techTopics = []string{
	"linux", "ubuntu", "debian", "fedora", "arch", "gentoo",
	"programação", "desenvolvimento", "software", "hardware",
	"inteligência artificial", "machine learning", "data science",
	"web development", "mobile", "cloud", "devops", "cybersecurity",
}

var positiveWords = []string{
	"excelente", "ótimo", "bom", "positivo", "sucesso", "melhor",
	"inovador", "revolucionário", "incrível", "fantástico",
}

var negativeWords = []string{
	"ruim", "péssimo", "negativo", "problema", "erro", "falha",
	"crítico", "perigoso", "prejudicial", "terrível",
}

var (
	personPattern = regexp.MustCompile(`\b\p{Lu}\p{Ll}+ \p{Lu}\p{Ll}+\b`)
	orgPattern    = regexp.MustCompile(`\b\p{Lu}\p{Ll}+(?: \p{Lu}\p{Ll}+)*\b`)
	fullNameShape = regexp.MustCompile(`^\p{Lu}\p{Ll}+ \p{Lu}\p{Ll}+$`)
)

func analyzeContent(view documentView) *models.ContentAnalysis {
	return &models.ContentAnalysis{
		URL:              view.url,
		ContentType:      detectContentType(view),
		Topics:           extractTopics(view),
		Entities:         extractEntities(view.bodyText),
		Sentiment:        analyzeSentiment(view.bodyText),
		ReadingLevel:     readingLevel(view.bodyText),
		ContentStructure: view.structure,
		AnalyzedAt:       time.Now(),
	}
}

func detectContentType(view documentView) string {
	url := strings.ToLower(view.url)
	title := strings.ToLower(view.title)

	var headingText strings.Builder
	for _, h := range view.headings {
		headingText.WriteString(strings.ToLower(h.Text))
		headingText.WriteString(" ")
	}
	headings := headingText.String()

	switch {
	case strings.Contains(url, "/noticias/") || strings.Contains(url, "/news/") ||
		strings.Contains(title, "notícia") || strings.Contains(title, "news") ||
		strings.Contains(headings, "notícia") || strings.Contains(headings, "news"):
		return "news"
	case strings.Contains(url, "/artigo/") || strings.Contains(url, "/blog/") || strings.Contains(url, "/post/") ||
		strings.Contains(title, "artigo") || strings.Contains(title, "blog") || strings.Contains(title, "post"):
		return "article"
	case strings.Contains(url, "/produto/") || strings.Contains(url, "/product/") ||
		strings.Contains(headings, "preço") || strings.Contains(headings, "comprar"):
		return "product"
	case strings.Contains(url, "/categoria/") || strings.Contains(url, "/category/") ||
		strings.Contains(headings, "categoria"):
		return "category"
	case strings.Contains(url, "/sobre/") || strings.Contains(url, "/about/") ||
		strings.Contains(url, "/contato/") || strings.Contains(url, "/contact/"):
		return "institutional"
	}

	return "general"
}

func extractTopics(view documentView) []string {
	seen := make(map[string]struct{})
	var topics []string

	add := func(topic string) {
		if _, dup := seen[topic]; dup {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}

	bodyLower := strings.ToLower(view.bodyText)
	for _, topic := range techTopics {
		if strings.Contains(bodyLower, topic) {
			add(topic)
		}
	}

	count := 0
	for _, h := range view.headings {
		text := strings.TrimSpace(h.Text)
		if len(text) > 5 && len(text) < 100 {
			add(text)
			count++
			if count == 10 {
				break
			}
		}
	}

	return topics
}

func extractEntities(bodyText string) map[string][]string {
	entities := map[string][]string{
		"people":        {},
		"organizations": {},
		"locations":     {},
		"products":      {},
	}

	if people := personPattern.FindAllString(bodyText, 10); people != nil {
		entities["people"] = people
	}

	var orgs []string
	for _, org := range orgPattern.FindAllString(bodyText, -1) {
		// Two-word proper names belong to the people bucket.
		if fullNameShape.MatchString(org) {
			continue
		}
		if len(org) > 3 && len(org) < 50 {
			orgs = append(orgs, org)
			if len(orgs) == 10 {
				break
			}
		}
	}
	if orgs != nil {
		entities["organizations"] = orgs
	}

	return entities
}

func analyzeSentiment(bodyText string) string {
	text := strings.ToLower(bodyText)

	count := func(words []string) int {
		total := 0
		for _, w := range words {
			total += strings.Count(text, w)
		}
		return total
	}

	positive := count(positiveWords)
	negative := count(negativeWords)

	switch {
	case positive > negative:
		return "positive"
	case negative > positive:
		return "negative"
	default:
		return "neutral"
	}
}

func readingLevel(bodyText string) string {
	sentences := len(regexp.MustCompile(`[.!?]+`).Split(bodyText, -1))
	words := len(strings.Fields(bodyText))
	if sentences == 0 {
		return "basic"
	}

	avg := float64(words) / float64(sentences)
	switch {
	case avg < 10:
		return "basic"
	case avg < 20:
		return "intermediate"
	default:
		return "advanced"
	}
}

// estimatedReadingTime assumes 200 words per minute.
func estimatedReadingTime(bodyText string) int {
	words := len(strings.Fields(bodyText))
	return int(math.Ceil(float64(words) / 200))
}
