package rag

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50

	StrategyWindow   = "window"
	StrategySentence = "sentence"
)

// Chunker splits extracted document text into retrieval units. Sizes are
// measured in characters (runes).
type Chunker struct {
	Size     int
	Overlap  int
	Strategy string
}

func NewChunker(size, overlap int, strategy string) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if strategy != StrategySentence {
		strategy = StrategyWindow
	}
	return &Chunker{Size: size, Overlap: overlap, Strategy: strategy}
}

func (c *Chunker) Split(text string) []string {
	if c.Strategy == StrategySentence {
		return SplitSentences(text, c.Size)
	}
	return SplitWindow(text, c.Size, c.Overlap)
}

// SplitWindow slides a window of size runes over text. A window that does not
// reach the end is cut after the last period inside it, or failing that at
// the last space, and the next window starts overlap runes before the cut.
func SplitWindow(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	if len(runes) <= size {
		if chunk := strings.TrimSpace(text); chunk != "" {
			return []string{chunk}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func cutPoint(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if runes[i] == '.' {
			return i + 1
		}
	}
	for i := end - 1; i > start; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return end
}

// SplitSentences packs whole sentences into chunks of at most maxSize runes.
// A sentence longer than maxSize becomes a chunk of its own.
func SplitSentences(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	parts := strings.Split(CleanText(text), ". ")
	var (
		chunks  []string
		current strings.Builder
	)
	for i, sentence := range parts {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if i < len(parts)-1 {
			sentence += "."
		}

		if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(sentence) > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// CleanText collapses whitespace runs to single spaces.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
