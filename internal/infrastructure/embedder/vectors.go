// Package embedder holds the precomputed candidate vector tables.
package embedder

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aopmap/kemapper/internal/core/scoring"
)

// LoadVectorTable reads precomputed candidate embeddings from a JSON file
// of shape {"title": {"WP1234": [...]}, "text": {...}}. The table is loaded
// once at startup and treated as read-only shared state afterwards.
// An empty path yields an empty table; missing candidates are encoded on
// demand instead.
func LoadVectorTable(path string) (scoring.VectorTable, error) {
	if path == "" {
		return scoring.VectorTable{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return scoring.VectorTable{}, fmt.Errorf("read vector table: %w", err)
	}

	var decoded struct {
		Title map[string][]float32 `json:"title"`
		Text  map[string][]float32 `json:"text"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return scoring.VectorTable{}, fmt.Errorf("parse vector table: %w", err)
	}

	return scoring.VectorTable{Title: decoded.Title, Text: decoded.Text}, nil
}
