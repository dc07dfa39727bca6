package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/core/ports"
)

// UntaggedPolicy decides what happens to chunks with no extractable article
// number. The choice belongs to the caller, not the segmenter.
type UntaggedPolicy int

const (
	DropUntagged UntaggedPolicy = iota
	KeepUntagged
)

var (
	articleStartPattern = regexp.MustCompile(`Art\.\s*\d+`)
	firstNumberPattern  = regexp.MustCompile(`\d+`)
)

// Segmenter splits regulation text into article-aligned chunks: one chunk per
// "Art. <n>" heading, front matter removed, oversized articles re-split with
// bounded overlap, line breaks stripped.
type Segmenter struct {
	splitter ports.Splitter
	keyword  string
	policy   UntaggedPolicy
}

func NewSegmenter(splitter ports.Splitter, keyword string, policy UntaggedPolicy) *Segmenter {
	if strings.TrimSpace(keyword) == "" {
		keyword = "art"
	}
	return &Segmenter{
		splitter: splitter,
		keyword:  keyword,
		policy:   policy,
	}
}

// Segment produces the chunk sequence for one source document, preserving
// article order. A document without a single "Art." heading yields zero
// chunks and no error. The second return value reports every chunk that had
// no extractable article number; with DropUntagged those chunks are omitted
// from the sequence, with KeepUntagged they stay, tagged with article 0.
func (s *Segmenter) Segment(rawText, source string) ([]domain.Chunk, []error) {
	articles := splitArticles(rawText)
	articles = dropFrontMatter(articles, s.keyword)

	pieces := make([]string, 0, len(articles))
	for _, article := range articles {
		if s.splitter == nil {
			pieces = append(pieces, article)
			continue
		}
		pieces = append(pieces, s.splitter.Split(article)...)
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	var issues []error
	for _, piece := range pieces {
		text := normalizeWhitespace(piece)
		if text == "" {
			continue
		}
		article, ok := extractArticleNumber(text)
		if !ok {
			issues = append(issues, domain.WrapError(
				domain.ErrNoArticleNumber,
				"tag chunk",
				&untaggedChunkError{source: source, preview: preview(text)},
			))
			if s.policy == DropUntagged {
				continue
			}
		}
		chunks = append(chunks, domain.Chunk{
			Text:    text,
			Source:  source,
			Article: article,
		})
	}
	return chunks, issues
}

// splitArticles slices the text at every "Art. <n>" heading; each candidate
// runs up to the next heading or the end of text. Text before the first
// heading is front matter and never becomes a chunk.
func splitArticles(text string) []string {
	starts := articleStartPattern.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return nil
	}

	out := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		candidate := strings.TrimSpace(text[start[0]:end])
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

// dropFrontMatter removes the table of contents that regulation PDFs carry
// before the body: it discards everything before the second occurrence of
// "<keyword> 1" (case-insensitive, optional dot between), retrying with "2"
// for documents whose first article is numbered from 2. When neither numeral
// occurs twice the chunks are kept as they are.
func dropFrontMatter(chunks []string, keyword string) []string {
	for _, numeral := range []string{"1", "2"} {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\s*\.?\s*` + numeral + `\b`)
		occurrences := 0
		for i, chunk := range chunks {
			if !pattern.MatchString(chunk) {
				continue
			}
			occurrences++
			if occurrences == 2 {
				return chunks[i:]
			}
		}
	}
	return chunks
}

// normalizeWhitespace strips line breaks so retrieval is not sensitive to the
// original PDF line wrapping.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", "")
	return strings.TrimSpace(text)
}

func extractArticleNumber(text string) (int, bool) {
	raw := firstNumberPattern.FindString(text)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

type untaggedChunkError struct {
	source  string
	preview string
}

func (e *untaggedChunkError) Error() string {
	return "source " + e.source + ": chunk " + strconv.Quote(e.preview)
}

func preview(text string) string {
	const max = 40
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
