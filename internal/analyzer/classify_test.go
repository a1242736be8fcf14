package analyzer

import (
	"testing"

	"github.com/buscalogo/capture-agent/internal/models"
)

func TestClassifyLink(t *testing.T) {
	tests := []struct {
		name     string
		href     string
		text     string
		hostname string
		want     string
	}{
		{"article keyword", "/post/1", "Leia mais sobre o assunto", "example.com", models.LinkArticle},
		{"release keyword", "/post/2", "Ubuntu 24.04 lançado oficialmente", "example.com", models.LinkArticle},
		{"category keyword", "/tag/linux", "Categoria Linux", "example.com", models.LinkCategory},
		{"author keyword", "/quem/joao", "Escrito por João", "example.com", models.LinkAuthor},
		{"date keyword", "/arquivo", "Publicado em 2024", "example.com", models.LinkDate},
		{"date pattern", "/arquivo", "12/03/2024", "example.com", models.LinkDate},
		{"external host", "https://outro.com/page", "qualquer texto", "example.com", models.LinkExternal},
		{"internal path", "/secao/item", "qualquer texto", "example.com", models.LinkInternal},
		{"general", "item.html", "qualquer texto", "example.com", models.LinkGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyLink(tt.href, tt.text, tt.hostname); got != tt.want {
				t.Errorf("classifyLink(%q, %q) = %q, want %q", tt.href, tt.text, got, tt.want)
			}
		})
	}
}

func TestLinkRelevanceBounds(t *testing.T) {
	// Article type, long text, several relevance keywords: clamps at 1.
	high := linkRelevance("/post", "Tutorial completo: como instalar o Ubuntu Linux com o desktop GNOME", "", "example.com")
	if high != 1 {
		t.Errorf("stacked relevance = %v, want clamped 1", high)
	}

	// Short nofollow text stays low but never below 0.
	low := linkRelevance("/x", "ok", "nofollow", "example.com")
	if low < 0 || low > 0.3 {
		t.Errorf("low-signal relevance = %v, want within [0, 0.3]", low)
	}
}

func TestLinkRelevanceRewardsArticleSignals(t *testing.T) {
	article := linkRelevance("/post", "Leia mais sobre a nova atualização", "", "example.com")
	plain := linkRelevance("/post", "texto corriqueiro de ancora", "", "example.com")
	if article <= plain {
		t.Errorf("article relevance %v not above plain relevance %v", article, plain)
	}
}

func TestIsRelevantArticleText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Saiba mais sobre o lançamento", true},
		{"dica", false},                       // keyword but under 10 chars
		{"texto longo sem palavra boa", false}, // long but no keyword
		{"", false},
	}

	for _, tt := range tests {
		if got := IsRelevantArticleText(tt.text); got != tt.want {
			t.Errorf("IsRelevantArticleText(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestBuildLinkFiltersNavigation(t *testing.T) {
	for _, nav := range []struct{ href, text string }{
		{"#comentarios", "Ver comentários sobre a notícia"},
		{"javascript:void(0)", "Abrir painel com mais detalhes"},
		{"mailto:contato@example.com", "Fale conosco por e-mail agora"},
		{"/home", "Home"},
	} {
		if link := buildLink(nav.href, nav.text, "", "", "example.com"); link != nil {
			t.Errorf("buildLink(%q, %q) = %+v, want nil", nav.href, nav.text, link)
		}
	}

	if link := buildLink("/post", "", "", "", "example.com"); link != nil {
		t.Error("buildLink with empty text should be nil")
	}

	link := buildLink("/post/ubuntu", "Ubuntu 24.04 lançado com novidades", "titulo", "", "example.com")
	if link == nil {
		t.Fatal("buildLink dropped a high-relevance article link")
	}
	if link.Type != models.LinkArticle {
		t.Errorf("link type = %q, want %q", link.Type, models.LinkArticle)
	}
	if link.Relevance <= minLinkRelevance {
		t.Errorf("link relevance = %v, want above %v", link.Relevance, minLinkRelevance)
	}
}

func TestGenerateTerms(t *testing.T) {
	terms := generateTerms(
		"Ubuntu 24.04 lançado para desktops",
		map[string]string{"description": "distribuição Linux para desktops"},
		[]models.Heading{{Level: 2, Text: "Novidades da versão"}},
		[]string{"O sistema chega com melhorias."},
		nil,
	)

	want := map[string]bool{
		"ubuntu": true, "lançado": true, "desktops": true,
		"distribuição": true, "linux": true, "novidades": true,
		"versão": true, "sistema": true, "chega": true, "melhorias": true,
	}

	got := make(map[string]bool, len(terms))
	for _, term := range terms {
		got[term] = true
	}

	for term := range want {
		if !got[term] {
			t.Errorf("expected term %q missing from %v", term, terms)
		}
	}

	for _, term := range terms {
		if len([]rune(term)) <= 3 {
			t.Errorf("short token %q should have been dropped", term)
		}
		if _, stop := stopWords[term]; stop {
			t.Errorf("stop word %q should have been dropped", term)
		}
	}

	// "24.04" must not survive: digits are not words.
	if got["24"] || got["2404"] || got["24.04"] {
		t.Errorf("numeric tokens leaked into terms: %v", terms)
	}
}

func TestGenerateTermsDedupsAndCaps(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 30; i++ {
		paragraphs = append(paragraphs, "palavra repetida constantemente")
	}
	terms := generateTerms("", nil, nil, paragraphs, nil)
	if len(terms) != 3 {
		t.Errorf("got %d terms, want 3 deduplicated", len(terms))
	}

	// 60 distinct words cap at maxTermsPerPage.
	long := ""
	for i := 0; i < 60; i++ {
		long += " palavra" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	terms = generateTerms("", nil, nil, []string{long}, nil)
	if len(terms) != maxTermsPerPage {
		t.Errorf("got %d terms, want cap of %d", len(terms), maxTermsPerPage)
	}
}
