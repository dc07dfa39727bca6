package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

func TestRetrieveScopesSearchToSource(t *testing.T) {
	store := &fakeVectorStore{
		search: func(filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
			return []domain.RetrievedChunk{{Source: filter.Source, Article: 1, Text: "Art. 1"}}, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{}, store, nil, 0, 0)

	hits, err := r.Retrieve(context.Background(), "quanti cfu servono", "informatica/triennale.pdf", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if len(store.filters) != 1 || store.filters[0].Source != "informatica/triennale.pdf" {
		t.Fatalf("expected every search filtered by source, got %#v", store.filters)
	}
}

func TestRetrieveRejectsEmptySource(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeVectorStore{}, nil, 0, 0)
	if _, err := r.Retrieve(context.Background(), "domanda", "  ", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRetrieveExpandsAndFusesResults(t *testing.T) {
	store := &fakeVectorStore{}
	calls := 0
	store.search = func(domain.SearchFilter) ([]domain.RetrievedChunk, error) {
		calls++
		if calls == 1 {
			return []domain.RetrievedChunk{
				{Source: "doc.pdf", Article: 1, Text: "base hit"},
				{Source: "doc.pdf", Article: 2, Text: "shared hit"},
			}, nil
		}
		return []domain.RetrievedChunk{
			{Source: "doc.pdf", Article: 2, Text: "shared hit"},
			{Source: "doc.pdf", Article: 3, Text: "expansion hit"},
		}, nil
	}
	llm := &fakeLLM{generate: func(domain.Prompt) (string, error) {
		return "1. riformulazione uno\n2. riformulazione due", nil
	}}

	r := NewRetriever(&fakeEmbedder{}, store, llm, 2, 60)
	hits, err := r.Retrieve(context.Background(), "domanda", "doc.pdf", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 1 base + 2 expanded searches, got %d", calls)
	}
	if len(hits) != 3 {
		t.Fatalf("expected fused dedup of 3 distinct chunks, got %d: %#v", len(hits), hits)
	}
	// The chunk present in every list wins the fusion.
	if hits[0].Text != "shared hit" {
		t.Fatalf("expected shared chunk ranked first, got %q", hits[0].Text)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("expected descending scores, got %#v", hits)
		}
	}
}

func TestRetrieveFallsBackWhenExpansionFails(t *testing.T) {
	store := &fakeVectorStore{
		search: func(domain.SearchFilter) ([]domain.RetrievedChunk, error) {
			return []domain.RetrievedChunk{{Source: "doc.pdf", Article: 1, Text: "hit"}}, nil
		},
	}
	llm := &fakeLLM{generate: func(domain.Prompt) (string, error) {
		return "", errors.New("model unavailable")
	}}

	r := NewRetriever(&fakeEmbedder{}, store, llm, 3, 60)
	hits, err := r.Retrieve(context.Background(), "domanda", "doc.pdf", 5)
	if err != nil {
		t.Fatalf("expected single-query fallback, got error: %v", err)
	}
	if len(hits) != 1 || len(store.filters) != 1 {
		t.Fatalf("expected exactly one search, got %d hits / %d searches", len(hits), len(store.filters))
	}
}

func TestRetrieveSkipsFailingExpandedSearches(t *testing.T) {
	store := &fakeVectorStore{}
	calls := 0
	store.search = func(domain.SearchFilter) ([]domain.RetrievedChunk, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("vector db hiccup")
		}
		return []domain.RetrievedChunk{{Source: "doc.pdf", Article: 1, Text: "hit"}}, nil
	}
	llm := &fakeLLM{generate: func(domain.Prompt) (string, error) {
		return "1. altra forma", nil
	}}

	r := NewRetriever(&fakeEmbedder{}, store, llm, 1, 60)
	hits, err := r.Retrieve(context.Background(), "domanda", "doc.pdf", 5)
	if err != nil {
		t.Fatalf("expected base result to stand, got %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "hit" {
		t.Fatalf("unexpected hits: %#v", hits)
	}
}

func TestRetrieveEmptyIndexYieldsEmptyResult(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeVectorStore{}, nil, 0, 0)
	hits, err := r.Retrieve(context.Background(), "domanda", "doc.pdf", 5)
	if err != nil {
		t.Fatalf("empty index must not be an error, got %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %#v", hits)
	}
}

func TestStripListMarker(t *testing.T) {
	for in, want := range map[string]string{
		"1. Quanti crediti servono?": "Quanti crediti servono?",
		"2) Seconda domanda":         "Seconda domanda",
		"- puntata":                  "puntata",
		"  testo semplice  ":         "testo semplice",
	} {
		if got := stripListMarker(in); got != want {
			t.Fatalf("stripListMarker(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParaphrasesSkipEchoedQuery(t *testing.T) {
	llm := &fakeLLM{generate: func(domain.Prompt) (string, error) {
		return "Domanda originale\n1. Versione diversa", nil
	}}
	r := NewRetriever(&fakeEmbedder{}, &fakeVectorStore{}, llm, 3, 60)

	got := r.paraphrases(context.Background(), "Domanda originale")
	if len(got) != 1 || !strings.Contains(got[0], "Versione diversa") {
		t.Fatalf("expected the echoed query filtered out, got %#v", got)
	}
}
