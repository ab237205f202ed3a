package app

import (
	"strings"

	"docqa/internal/ai"
)

// ModelEntry is one selectable generation model. Generator is nil when the
// model is listed but could not be configured.
type ModelEntry struct {
	Key             string
	Name            string
	Description     string
	Provider        string
	MaxContextChars int
	Generator       ai.Generator
}

type ModelInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
	Default     bool   `json:"default"`
	Available   bool   `json:"available"`
}

// ModelCatalog resolves model keys. The first entry is the default.
type ModelCatalog struct {
	entries []ModelEntry
}

func NewModelCatalog(entries ...ModelEntry) *ModelCatalog {
	return &ModelCatalog{entries: entries}
}

// Resolve returns the entry for key, or the default entry when key is empty.
// An empty catalog resolves to an entry without a generator.
func (c *ModelCatalog) Resolve(key string) (ModelEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		if len(c.entries) == 0 {
			return ModelEntry{Key: "rule-based", Name: "rule-based", MaxContextChars: defaultMaxContextChars}, nil
		}
		return c.entries[0], nil
	}
	for _, e := range c.entries {
		if e.Key == key {
			return e, nil
		}
	}
	return ModelEntry{}, ErrUnknownModel
}

func (c *ModelCatalog) List() []ModelInfo {
	out := make([]ModelInfo, 0, len(c.entries))
	for i, e := range c.entries {
		out = append(out, ModelInfo{
			Key:         e.Key,
			Name:        e.Name,
			Description: e.Description,
			Provider:    e.Provider,
			Default:     i == 0,
			Available:   e.Generator != nil,
		})
	}
	return out
}
