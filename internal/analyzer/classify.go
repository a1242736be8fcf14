package analyzer

import (
	"regexp"
	"strings"

	"github.com/buscalogo/capture-agent/internal/models"
)

// The keyword tables below are shared by both analyzer variants and by the
// crawl-candidate filter. The corpus is Brazilian Portuguese tech news, so the
// signals are Portuguese phrases.

// articleTextKeywords mark anchor text that very likely leads to an article.
var articleTextKeywords = []string{
	"leia mais", "ler mais", "continue lendo", "saiba mais",
	"lançado", "lançada", "disponível", "chegou", "novo", "nova",
	"como instalar", "como fazer", "tutorial", "dica", "guia",
	"review", "análise", "teste", "comparativo", "configurar",
	"atualização", "correção", "melhoria", "feature", "funcionalidade",
	"instalar", "personalizar", "otimizar", "resolver",
	"problema", "solução", "alternativa", "recomendação", "opinião",
}

var categoryTextKeywords = []string{
	"categoria", "tag", "seção", "rubrica", "distro", "distribuição",
}

var authorTextKeywords = []string{
	"por", "autor", "escrito por", "redator",
}

var dateTextKeywords = []string{
	"data", "publicado", "atualizado",
	"janeiro", "fevereiro", "março", "setembro",
}

// relevanceKeywords nudge a link's relevance score upward.
var relevanceKeywords = []string{
	"linux", "ubuntu", "debian", "fedora", "arch", "gentoo",
	"gnome", "kde", "plasma", "desktop", "sistema",
	"instalar", "configurar", "tutorial", "dica", "guia",
	"lançado", "disponível", "novo", "atualização",
}

var (
	datePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)

	navigationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^#`),
		regexp.MustCompile(`^javascript:`),
		regexp.MustCompile(`^mailto:`),
		regexp.MustCompile(`^tel:`),
		regexp.MustCompile(`(?i)^(home|início|sobre|contato|login|cadastro|menu|navegação)$`),
		regexp.MustCompile(`(?i)^(próxima|anterior|voltar|avançar|primeira|última)$`),
		regexp.MustCompile(`(?i)^(gerar link|facebook|x|pinterest|e-mail|outros aplicativos)$`),
		regexp.MustCompile(`(?i)^(postagens|arquivos|doação|inscreva-se|grupos)$`),
	}
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// IsRelevantArticleText reports whether anchor text signals an article even
// when the link was not classified as one.
func IsRelevantArticleText(text string) bool {
	if len(text) < 10 {
		return false
	}
	return containsAny(strings.ToLower(text), articleTextKeywords)
}

// isInternalNavigation filters anchors, script/mail/tel schemes and common
// site chrome before classification.
func isInternalNavigation(href, text string) bool {
	textLower := strings.ToLower(text)
	for _, pattern := range navigationPatterns {
		if pattern.MatchString(href) || pattern.MatchString(textLower) {
			return true
		}
	}
	return false
}

// classifyLink assigns one of the DiscoveredLink types based on anchor text
// and the link target.
func classifyLink(href, text, pageHostname string) string {
	hrefLower := strings.ToLower(href)
	textLower := strings.ToLower(text)

	switch {
	case containsAny(textLower, articleTextKeywords):
		return models.LinkArticle
	case containsAny(textLower, categoryTextKeywords):
		return models.LinkCategory
	case containsAny(textLower, authorTextKeywords):
		return models.LinkAuthor
	case containsAny(textLower, dateTextKeywords) || datePattern.MatchString(text):
		return models.LinkDate
	case strings.HasPrefix(hrefLower, "http") && !strings.Contains(hrefLower, pageHostname):
		return models.LinkExternal
	case strings.HasPrefix(hrefLower, "/") || strings.HasPrefix(hrefLower, "./") || strings.Contains(hrefLower, pageHostname):
		return models.LinkInternal
	}

	return models.LinkGeneral
}

// linkRelevance scores a link in [0,1] from its anchor text, type and rel
// attribute.
func linkRelevance(href, text, rel, pageHostname string) float64 {
	relevance := 0.5

	if len(text) > 20 {
		relevance += 0.2
	}
	if len(text) > 50 {
		relevance += 0.1
	}

	switch classifyLink(href, text, pageHostname) {
	case models.LinkArticle:
		relevance += 0.4
	case models.LinkCategory, models.LinkAuthor:
		relevance += 0.2
	}

	textLower := strings.ToLower(text)
	for _, kw := range relevanceKeywords {
		if strings.Contains(textLower, kw) {
			relevance += 0.1
		}
	}

	if strings.Contains(rel, "nofollow") {
		relevance -= 0.1
	}
	if len(text) < 5 {
		relevance -= 0.2
	}

	if relevance < 0 {
		return 0
	}
	if relevance > 1 {
		return 1
	}
	return relevance
}

// buildLink classifies and scores one raw anchor. Returns nil for navigation
// chrome and links below the relevance floor.
func buildLink(href, text, title, rel, pageHostname string) *models.DiscoveredLink {
	if href == "" || text == "" {
		return nil
	}
	if isInternalNavigation(href, text) {
		return nil
	}

	link := &models.DiscoveredLink{
		URL:       href,
		Text:      text,
		Title:     title,
		Rel:       rel,
		Type:      classifyLink(href, text, pageHostname),
		Relevance: linkRelevance(href, text, rel, pageHostname),
	}

	if link.Relevance <= minLinkRelevance {
		return nil
	}

	return link
}
