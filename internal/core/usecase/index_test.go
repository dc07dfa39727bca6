package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/infrastructure/chunking"
)

func indexedTestDoc() *domain.RegulationDocument {
	return &domain.RegulationDocument{
		ID:          "doc-1",
		Faculty:     "Scienze",
		ProgramType: "triennale",
		Course:      "Informatica",
		Filename:    "regolamento.pdf",
		StoragePath: "scienze/triennale/informatica/regolamento.pdf",
		Status:      domain.StatusUploaded,
	}
}

func newIndexUseCase(catalog *fakeCatalog, extractor *fakeExtractor, vectors *fakeVectorStore, dataset *fakeDataset) *IndexCorpusUseCase {
	segmenter := NewSegmenter(chunking.NewSplitter(2000, 200), "art", DropUntagged)
	return NewIndexCorpusUseCase(catalog, extractor, segmenter, &fakeEmbedder{}, vectors, dataset)
}

func TestIndexByIDHappyPath(t *testing.T) {
	doc := indexedTestDoc()
	catalog := newFakeCatalog(doc)
	extractor := &fakeExtractor{text: "Art. 1 Finalità del corso.\nArt. 2 Requisiti di accesso."}
	vectors := &fakeVectorStore{}
	dataset := &fakeDataset{}

	uc := newIndexUseCase(catalog, extractor, vectors, dataset)
	if err := uc.IndexByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{string(domain.StatusSegmenting), string(domain.StatusIndexed)}
	if !reflect.DeepEqual(catalog.statusUpdates, want) {
		t.Fatalf("unexpected status transitions: %#v", catalog.statusUpdates)
	}
	if len(vectors.indexed) != 2 {
		t.Fatalf("expected 2 chunks indexed, got %d", len(vectors.indexed))
	}
	for _, chunk := range vectors.indexed {
		if chunk.Source != doc.StoragePath {
			t.Fatalf("expected chunks tagged with source, got %#v", chunk)
		}
	}
	if got := dataset.corpus[doc.StoragePath]; len(got) != 2 {
		t.Fatalf("expected dataset snapshot, got %#v", dataset.corpus)
	}
}

func TestIndexByIDMarksFailureOnExtractError(t *testing.T) {
	doc := indexedTestDoc()
	catalog := newFakeCatalog(doc)
	extractor := &fakeExtractor{err: errors.New("corrupted pdf")}

	uc := newIndexUseCase(catalog, extractor, &fakeVectorStore{}, &fakeDataset{})
	if err := uc.IndexByID(context.Background(), doc.ID); err == nil {
		t.Fatal("expected error")
	}

	stored, _ := catalog.GetByID(context.Background(), doc.ID)
	if stored.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %q", stored.Status)
	}
	if stored.Error == "" {
		t.Fatal("expected failure reason recorded")
	}
}

func TestIndexByIDEmptyCorpusIsNotAFailure(t *testing.T) {
	doc := indexedTestDoc()
	catalog := newFakeCatalog(doc)
	extractor := &fakeExtractor{text: "Documento senza alcun articolo."}
	vectors := &fakeVectorStore{}

	uc := newIndexUseCase(catalog, extractor, vectors, &fakeDataset{})
	if err := uc.IndexByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("empty corpus must not fail indexing, got %v", err)
	}
	if len(vectors.indexed) != 0 {
		t.Fatalf("expected nothing indexed, got %#v", vectors.indexed)
	}
	stored, _ := catalog.GetByID(context.Background(), doc.ID)
	if stored.Status != domain.StatusIndexed {
		t.Fatalf("expected indexed status, got %q", stored.Status)
	}
}

func TestIndexByIDUnknownDocument(t *testing.T) {
	uc := newIndexUseCase(newFakeCatalog(), &fakeExtractor{}, &fakeVectorStore{}, &fakeDataset{})
	if err := uc.IndexByID(context.Background(), "missing"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
