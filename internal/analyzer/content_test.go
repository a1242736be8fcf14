package analyzer

import (
	"strings"
	"testing"

	"github.com/buscalogo/capture-agent/internal/models"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		view documentView
		want string
	}{
		{"news url", documentView{url: "https://example.com/noticias/item"}, "news"},
		{"news title", documentView{url: "https://example.com/x", title: "Notícia do dia"}, "news"},
		{"blog url", documentView{url: "https://example.com/blog/item"}, "article"},
		{"product heading", documentView{
			url:      "https://example.com/x",
			headings: []models.Heading{{Level: 2, Text: "Preço e onde comprar"}},
		}, "product"},
		{"category url", documentView{url: "https://example.com/categoria/linux"}, "category"},
		{"institutional url", documentView{url: "https://example.com/sobre/equipe"}, "institutional"},
		{"fallback", documentView{url: "https://example.com/qualquer"}, "general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectContentType(tt.view); got != tt.want {
				t.Errorf("detectContentType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"um resultado excelente e um lançamento incrível", "positive"},
		{"o problema causou uma falha crítica", "negative"},
		{"texto descritivo sem carga emocional", "neutral"},
		{"um resultado excelente apesar do problema", "neutral"},
	}

	for _, tt := range tests {
		if got := analyzeSentiment(tt.text); got != tt.want {
			t.Errorf("analyzeSentiment(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestReadingLevel(t *testing.T) {
	short := "Frase curta. Outra frase curta."
	if got := readingLevel(short); got != "basic" {
		t.Errorf("readingLevel(short) = %q, want basic", got)
	}

	long := strings.Repeat("palavra ", 45) + "."
	if got := readingLevel(long); got != "advanced" {
		t.Errorf("readingLevel(long) = %q, want advanced", got)
	}
}

func TestEstimatedReadingTime(t *testing.T) {
	if got := estimatedReadingTime(strings.Repeat("palavra ", 100)); got != 1 {
		t.Errorf("100 words = %d min, want 1", got)
	}
	if got := estimatedReadingTime(strings.Repeat("palavra ", 450)); got != 3 {
		t.Errorf("450 words = %d min, want 3", got)
	}
}

func TestExtractTopics(t *testing.T) {
	view := documentView{
		bodyText: "O Ubuntu é uma distribuição Linux voltada para desktop e cloud.",
		headings: []models.Heading{
			{Level: 2, Text: "Instalação passo a passo"},
			{Level: 2, Text: "ok"},
		},
	}

	topics := extractTopics(view)
	got := make(map[string]bool, len(topics))
	for _, topic := range topics {
		got[topic] = true
	}

	for _, want := range []string{"ubuntu", "linux", "cloud", "Instalação passo a passo"} {
		if !got[want] {
			t.Errorf("topic %q missing from %v", want, topics)
		}
	}
	if got["ok"] {
		t.Errorf("short heading leaked into topics: %v", topics)
	}
}

func TestExtractEntitiesFindsNames(t *testing.T) {
	entities := extractEntities("Linus Torvalds anunciou a novidade em parceria com a Canonical.")

	foundPerson := false
	for _, person := range entities["people"] {
		if person == "Linus Torvalds" {
			foundPerson = true
		}
	}
	if !foundPerson {
		t.Errorf("people = %v, want Linus Torvalds", entities["people"])
	}

	if len(entities["organizations"]) == 0 {
		t.Errorf("organizations empty, want at least Canonical")
	}
}

func TestExtractEntitiesKeepsPeopleOutOfOrganizations(t *testing.T) {
	entities := extractEntities("Linus Torvalds anunciou a novidade em parceria com a Canonical.")

	foundOrg := false
	for _, org := range entities["organizations"] {
		if org == "Linus Torvalds" {
			t.Errorf("person listed under organizations: %v", entities["organizations"])
		}
		if org == "Canonical" {
			foundOrg = true
		}
	}
	if !foundOrg {
		t.Errorf("organizations = %v, want Canonical", entities["organizations"])
	}
}
