package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/core/ports"
)

const answerSystemPrompt = "Sei un chatbot che aiuta gli studenti a capire i regolamenti. " +
	"Devi rispondere brevemente in base a questi documenti rilevanti:\n\n%s"

// AnswerUseCase synthesizes one grounded answer per question. Composite
// questions are decomposed and answered sequentially over a shared history;
// the transcript gains one human/assistant pair per sub-question, persisted
// only after the whole answer succeeded.
type AnswerUseCase struct {
	retriever     *Retriever
	classifier    *QueryClassifier
	llm           ports.LanguageModel
	sessions      ports.SessionStore
	topK          int
	historyWindow int
}

func NewAnswerUseCase(
	retriever *Retriever,
	classifier *QueryClassifier,
	llm ports.LanguageModel,
	sessions ports.SessionStore,
	topK, historyWindow int,
) *AnswerUseCase {
	if topK <= 0 {
		topK = defaultTopK
	}
	if historyWindow <= 0 {
		historyWindow = 12
	}
	return &AnswerUseCase{
		retriever:     retriever,
		classifier:    classifier,
		llm:           llm,
		sessions:      sessions,
		topK:          topK,
		historyWindow: historyWindow,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, session *domain.Session, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is empty"))
	}
	if session == nil || session.Source == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("session has no selected regulation"))
	}

	history, err := uc.sessions.ListRecentTurns(ctx, session.ID, uc.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}

	answer, exchanges, err := uc.synthesize(ctx, session, history, question)
	if err != nil {
		return nil, err
	}

	for _, turn := range exchanges {
		if err := uc.sessions.AppendTurn(ctx, session.ID, turn.Role, turn.Content); err != nil {
			return nil, fmt.Errorf("append transcript turn: %w", err)
		}
	}
	return answer, nil
}

// synthesize returns the answer plus the transcript turns to persist, one
// human/assistant pair per answered sub-question.
func (uc *AnswerUseCase) synthesize(ctx context.Context, session *domain.Session, history []domain.Turn, question string) (*domain.Answer, []domain.Turn, error) {
	questions := []string{question}
	if uc.isComposite(ctx, question) {
		subs, err := uc.classifier.Decompose(ctx, question)
		if err != nil {
			slog.Warn("decompose_failed", "session_id", session.ID, "error", err)
		} else {
			questions = subs
		}
	}

	parts := make([]string, 0, len(questions))
	exchanges := make([]domain.Turn, 0, 2*len(questions))
	var sources []domain.RetrievedChunk
	for _, sub := range questions {
		hits, err := uc.retriever.Retrieve(ctx, sub, session.Source, uc.topK)
		if err != nil {
			return nil, nil, domain.WrapError(domain.ErrSynthesis, "retrieve context", err)
		}
		sources = append(sources, hits...)

		response, err := uc.llm.Generate(ctx, domain.Prompt{
			System:  fmt.Sprintf(answerSystemPrompt, renderContext(hits)),
			History: history,
			Input:   sub,
		})
		if err != nil {
			return nil, nil, domain.WrapError(domain.ErrSynthesis, "generate answer", err)
		}
		response = strings.TrimSpace(response)
		parts = append(parts, response)

		// Later sub-questions see the earlier exchange, and the transcript
		// records each exchange in the same order.
		pair := []domain.Turn{
			{Role: domain.RoleHuman, Content: sub},
			{Role: domain.RoleAssistant, Content: response},
		}
		history = append(history, pair...)
		exchanges = append(exchanges, pair...)
	}

	return &domain.Answer{
		Text:      strings.Join(parts, "\n"),
		Sources:   sources,
		Composite: len(questions) > 1,
	}, exchanges, nil
}

// isComposite degrades to the simple path on any classification problem.
func (uc *AnswerUseCase) isComposite(ctx context.Context, question string) bool {
	if uc.classifier == nil {
		return false
	}
	composite, err := uc.classifier.IsComposite(ctx, question)
	if err != nil {
		slog.Warn("classification_failed", "error", err)
		return false
	}
	return composite
}

// renderContext formats the retrieved chunks for the synthesis prompt.
func renderContext(hits []domain.RetrievedChunk) string {
	if len(hits) == 0 {
		return "(nessun documento rilevante trovato)"
	}
	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Art. %d] %s", hit.Article, hit.Text)
	}
	return b.String()
}
