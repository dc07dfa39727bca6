package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

// Dataset snapshots the segmenter output as a single JSON file keyed by
// source. Each chunk is a [text, metadata] pair with the article number kept
// as a string in the metadata, which keeps the file loadable by the tooling
// that predates this service.
type Dataset struct {
	path string
}

func NewDataset(path string) (*Dataset, error) {
	if path == "" {
		path = "./data/dataset.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}
	return &Dataset{path: path}, nil
}

type chunkMetadata struct {
	Source string `json:"source"`
	Page   string `json:"page"`
}

type chunkEntry struct {
	Text string
	Meta chunkMetadata
}

func (e chunkEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Text, e.Meta})
}

func (e *chunkEntry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.Text); err != nil {
		return fmt.Errorf("chunk text: %w", err)
	}
	if len(pair[1]) == 0 {
		return nil
	}
	if err := json.Unmarshal(pair[1], &e.Meta); err != nil {
		return fmt.Errorf("chunk metadata: %w", err)
	}
	return nil
}

func (d *Dataset) Save(_ context.Context, corpus map[string][]domain.Chunk) error {
	encoded := make(map[string][]chunkEntry, len(corpus))
	for source, chunks := range corpus {
		entries := make([]chunkEntry, 0, len(chunks))
		for _, chunk := range chunks {
			entries = append(entries, chunkEntry{
				Text: chunk.Text,
				Meta: chunkMetadata{
					Source: chunk.Source,
					Page:   strconv.Itoa(chunk.Article),
				},
			})
		}
		encoded[source] = entries
	}

	data, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

// Load returns an empty corpus when the dataset file does not exist yet.
func (d *Dataset) Load(_ context.Context) (map[string][]domain.Chunk, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]domain.Chunk{}, nil
		}
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var encoded map[string][]chunkEntry
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("unmarshal dataset: %w", err)
	}

	corpus := make(map[string][]domain.Chunk, len(encoded))
	for source, entries := range encoded {
		chunks := make([]domain.Chunk, 0, len(entries))
		for _, entry := range entries {
			article, _ := strconv.Atoi(entry.Meta.Page)
			chunkSource := entry.Meta.Source
			if chunkSource == "" {
				chunkSource = source
			}
			chunks = append(chunks, domain.Chunk{
				Text:    entry.Text,
				Source:  chunkSource,
				Article: article,
			})
		}
		corpus[source] = chunks
	}
	return corpus, nil
}
