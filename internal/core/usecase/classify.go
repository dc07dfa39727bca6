package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/core/ports"
)

const classifySystemPrompt = "Devi classificare la domanda dell'utente. " +
	"Rispondi esattamente 'composta' se la domanda contiene più richieste distinte " +
	"che vanno trattate separatamente, altrimenti rispondi esattamente 'semplice'. " +
	"Non aggiungere altro testo."

const decomposeSystemPrompt = "La domanda dell'utente è composta da più richieste. " +
	"Riscrivila come un elenco numerato di domande autonome, una per riga, " +
	"nella forma '1. <domanda>' e '2. <domanda>'. Non aggiungere altro testo."

// QueryClassifier decides whether a question carries multiple independent
// requests and, when it does, breaks it into standalone sub-questions.
type QueryClassifier struct {
	llm ports.LanguageModel
}

func NewQueryClassifier(llm ports.LanguageModel) *QueryClassifier {
	return &QueryClassifier{llm: llm}
}

// IsComposite reports whether the question should be decomposed. The model
// answers a closed set of labels; anything outside that set counts as simple
// so a confused model never blocks the direct answer path.
func (c *QueryClassifier) IsComposite(ctx context.Context, question string) (bool, error) {
	response, err := c.llm.Generate(ctx, domain.Prompt{
		System: classifySystemPrompt,
		Input:  question,
	})
	if err != nil {
		return false, fmt.Errorf("classify question: %w", err)
	}

	label := strings.ToLower(strings.TrimSpace(response))
	switch label {
	case "composta":
		return true, nil
	case "semplice":
		return false, nil
	}

	// Models occasionally wrap the label in a sentence.
	composite := strings.Contains(label, "composta")
	simple := strings.Contains(label, "semplice")
	if composite && !simple {
		return true, nil
	}
	if composite && simple {
		slog.Warn("ambiguous_classification", "label", label)
	}
	return false, nil
}

// Decompose rewrites a composite question into standalone sub-questions,
// keeping only the numbered lines of the model output. An output with no
// usable lines yields the original question unchanged.
func (c *QueryClassifier) Decompose(ctx context.Context, question string) ([]string, error) {
	response, err := c.llm.Generate(ctx, domain.Prompt{
		System: decomposeSystemPrompt,
		Input:  question,
	})
	if err != nil {
		return nil, fmt.Errorf("decompose question: %w", err)
	}

	var subs []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !isNumberedLine(line) {
			continue
		}
		sub := stripListMarker(line)
		if sub != "" {
			subs = append(subs, sub)
		}
	}

	if len(subs) == 0 {
		return []string{question}, nil
	}
	return subs, nil
}

func isNumberedLine(line string) bool {
	return line[0] >= '1' && line[0] <= '9'
}
