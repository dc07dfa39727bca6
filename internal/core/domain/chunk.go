package domain

// Chunk is a bounded unit of regulation text. Article is the number of the
// article the chunk starts with (0 when no number could be extracted).
// Chunks are immutable once produced by segmentation.
type Chunk struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	Article int    `json:"article"`
}

type SearchFilter struct {
	Source string
}

type RetrievedChunk struct {
	Source  string  `json:"source"`
	Article int     `json:"article"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Answer is one synthesized reply. Composite marks answers assembled from
// decomposed sub-questions.
type Answer struct {
	Text      string           `json:"text"`
	Sources   []RetrievedChunk `json:"sources"`
	Composite bool             `json:"composite"`
}
