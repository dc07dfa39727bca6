package chunking

import "strings"

// Splitter breaks oversized text on the strongest boundary it can find:
// paragraph, line, sentence, then word, falling back to fixed rune windows.
// The last Overlap runes of each chunk are carried into the next one, so no
// output chunk exceeds ChunkSize+Overlap runes.
type Splitter struct {
	ChunkSize int
	Overlap   int

	separators []string
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		separators: []string{"\n\n", "\n", ". ", " "},
	}
}

func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.withOverlap(s.split(text, s.separators))
}

// split returns trimmed pieces of at most ChunkSize runes, in input order.
func (s *Splitter) split(text string, seps []string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len([]rune(trimmed)) <= s.ChunkSize {
		return []string{trimmed}
	}

	sep := ""
	rest := seps
	for i, candidate := range seps {
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return s.window(trimmed)
	}

	parts := strings.SplitAfter(text, sep)
	out := make([]string, 0, len(parts))
	var current strings.Builder
	currentLen := 0

	flush := func() {
		piece := strings.TrimSpace(current.String())
		if piece != "" {
			out = append(out, piece)
		}
		current.Reset()
		currentLen = 0
	}

	for _, part := range parts {
		partLen := len([]rune(part))
		if partLen > s.ChunkSize {
			flush()
			out = append(out, s.split(part, rest)...)
			continue
		}
		if currentLen+partLen > s.ChunkSize {
			flush()
		}
		current.WriteString(part)
		currentLen += partLen
	}
	flush()
	return out
}

// window slices text into plain ChunkSize rune windows. Overlap is applied
// once, at the end of Split, never here.
func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); start += s.ChunkSize {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

func (s *Splitter) withOverlap(pieces []string) []string {
	if s.Overlap <= 0 || len(pieces) < 2 {
		return pieces
	}
	out := make([]string, len(pieces))
	out[0] = pieces[0]
	for i := 1; i < len(pieces); i++ {
		out[i] = runeTail(pieces[i-1], s.Overlap) + pieces[i]
	}
	return out
}

func runeTail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
