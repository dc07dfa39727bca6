package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

func testSession() *domain.Session {
	return &domain.Session{
		ID:          "session-1",
		Faculty:     "Informatica",
		ProgramType: "triennale",
		Course:      "Informatica",
		Source:      "informatica/triennale/informatica/reg.pdf",
	}
}

func singleHitStore() *fakeVectorStore {
	return &fakeVectorStore{
		search: func(filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
			return []domain.RetrievedChunk{{Source: filter.Source, Article: 7, Text: "Art. 7 La prova finale."}}, nil
		},
	}
}

func newAnswerUseCase(llm *fakeLLM, store *fakeSessionStore, vectors *fakeVectorStore) *AnswerUseCase {
	retriever := NewRetriever(&fakeEmbedder{}, vectors, nil, 0, 0)
	return NewAnswerUseCase(retriever, NewQueryClassifier(llm), llm, store, 5, 12)
}

func TestAnswerSimpleQuestion(t *testing.T) {
	llm := &fakeLLM{generate: func(p domain.Prompt) (string, error) {
		if strings.Contains(p.System, "classificare") {
			return "semplice", nil
		}
		if !strings.Contains(p.System, "Art. 7 La prova finale.") {
			t.Fatalf("expected retrieved context in system prompt, got %q", p.System)
		}
		return "La prova finale è disciplinata dall'Art. 7.", nil
	}}
	store := newFakeSessionStore()
	session := testSession()
	store.sessions[session.ID] = session

	uc := newAnswerUseCase(llm, store, singleHitStore())
	answer, err := uc.Answer(context.Background(), session, "Come funziona la prova finale?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != "La prova finale è disciplinata dall'Art. 7." {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Article != 7 {
		t.Fatalf("expected source citation, got %#v", answer.Sources)
	}

	turns := store.turns[session.ID]
	if len(turns) != 2 {
		t.Fatalf("expected question and answer persisted, got %#v", turns)
	}
	if turns[0].Role != domain.RoleHuman || turns[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected turn roles: %#v", turns)
	}
}

func TestAnswerCompositeQuestionJoinsSubAnswers(t *testing.T) {
	llm := &fakeLLM{}
	llm.generate = func(p domain.Prompt) (string, error) {
		switch {
		case strings.Contains(p.System, "classificare"):
			return "composta", nil
		case strings.Contains(p.System, "elenco numerato"):
			return "1. Quanti crediti servono?\n2. Come si sceglie il relatore?", nil
		case p.Input == "Quanti crediti servono?":
			return "Servono 180 crediti.", nil
		case p.Input == "Come si sceglie il relatore?":
			// The second sub-answer must see the first exchange.
			if len(p.History) == 0 || p.History[len(p.History)-1].Content != "Servono 180 crediti." {
				t.Fatalf("expected shared history across sub-questions, got %#v", p.History)
			}
			return "Il relatore si sceglie tra i docenti del corso.", nil
		}
		return "", errors.New("unexpected prompt: " + p.Input)
	}

	store := newFakeSessionStore()
	session := testSession()
	store.sessions[session.ID] = session

	uc := newAnswerUseCase(llm, store, singleHitStore())
	answer, err := uc.Answer(context.Background(), session, "Crediti e relatore?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Servono 180 crediti.\nIl relatore si sceglie tra i docenti del corso."
	if answer.Text != want {
		t.Fatalf("expected sub-answers joined by newline, got %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("expected sources from both retrievals, got %#v", answer.Sources)
	}

	// Each sub-question is persisted as its own exchange, in answer order.
	turns := store.turns[session.ID]
	if len(turns) != 4 {
		t.Fatalf("expected one persisted pair per sub-question, got %#v", turns)
	}
	wantTurns := []domain.Turn{
		{Role: domain.RoleHuman, Content: "Quanti crediti servono?"},
		{Role: domain.RoleAssistant, Content: "Servono 180 crediti."},
		{Role: domain.RoleHuman, Content: "Come si sceglie il relatore?"},
		{Role: domain.RoleAssistant, Content: "Il relatore si sceglie tra i docenti del corso."},
	}
	for i, want := range wantTurns {
		if turns[i].Role != want.Role || turns[i].Content != want.Content {
			t.Fatalf("unexpected transcript turn %d: got %#v, want %#v", i, turns[i], want)
		}
	}
}

func TestAnswerClassificationFailureDegradesToSimple(t *testing.T) {
	llm := &fakeLLM{generate: func(p domain.Prompt) (string, error) {
		if strings.Contains(p.System, "classificare") {
			return "", errors.New("model busy")
		}
		return "Risposta diretta.", nil
	}}
	store := newFakeSessionStore()
	session := testSession()
	store.sessions[session.ID] = session

	uc := newAnswerUseCase(llm, store, singleHitStore())
	answer, err := uc.Answer(context.Background(), session, "Domanda qualsiasi?")
	if err != nil {
		t.Fatalf("expected simple path fallback, got %v", err)
	}
	if answer.Text != "Risposta diretta." {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}
}

func TestAnswerSynthesisFailureLeavesTranscriptUntouched(t *testing.T) {
	llm := &fakeLLM{generate: func(p domain.Prompt) (string, error) {
		if strings.Contains(p.System, "classificare") {
			return "semplice", nil
		}
		return "", errors.New("generation failed")
	}}
	store := newFakeSessionStore()
	session := testSession()
	store.sessions[session.ID] = session

	uc := newAnswerUseCase(llm, store, singleHitStore())
	_, err := uc.Answer(context.Background(), session, "Domanda?")
	if !domain.IsKind(err, domain.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if len(store.turns[session.ID]) != 0 {
		t.Fatalf("failed synthesis must not persist turns, got %#v", store.turns[session.ID])
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	store := newFakeSessionStore()
	uc := newAnswerUseCase(&fakeLLM{}, store, singleHitStore())
	_, err := uc.Answer(context.Background(), testSession(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswerWindowsHistorySentToModel(t *testing.T) {
	var sawHistory int
	llm := &fakeLLM{generate: func(p domain.Prompt) (string, error) {
		if strings.Contains(p.System, "classificare") {
			return "semplice", nil
		}
		sawHistory = len(p.History)
		return "ok", nil
	}}
	store := newFakeSessionStore()
	session := testSession()
	store.sessions[session.ID] = session
	for i := 0; i < 10; i++ {
		_ = store.AppendTurn(context.Background(), session.ID, domain.RoleHuman, "q")
		_ = store.AppendTurn(context.Background(), session.ID, domain.RoleAssistant, "a")
	}

	retriever := NewRetriever(&fakeEmbedder{}, singleHitStore(), nil, 0, 0)
	uc := NewAnswerUseCase(retriever, NewQueryClassifier(llm), llm, store, 5, 4)
	if _, err := uc.Answer(context.Background(), session, "Domanda?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawHistory != 4 {
		t.Fatalf("expected history windowed to 4 turns, got %d", sawHistory)
	}
}
