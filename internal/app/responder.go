package app

import (
	"fmt"
	"strings"

	"docqa/internal/ai"
	"docqa/internal/rag"
)

const (
	emptyModelAnswer = "I understand your question, but I'm having trouble generating a response right now. Could you please rephrase your question?"

	greetingAnswer = "Hello! I'm your document assistant. Upload PDFs, text files, CSVs, images or web pages and ask me questions about them."
	helpAnswer     = "I can answer questions about the documents you upload (PDF, text, CSV, images and web pages), " +
		"search the web for current information, and keep track of our conversation. Upload a document and ask me anything about it."
	thanksAnswer    = "You're welcome! Let me know if there's anything else you'd like to know about your documents."
	noContextAnswer = "I couldn't find information about that in your documents. Try uploading a document that covers this topic, " +
		"or ask for the latest information to search the web."

	fallbackContextChars = 500
)

var (
	greetingWords = []string{"hello", "hi", "hey", "greetings", "good morning", "good afternoon", "good evening"}
	helpWords     = []string{"help", "what can you do", "how do you work", "capabilities"}
	thanksWords   = []string{"thanks", "thank you", "thx", "appreciate"}
)

// RuleBasedAnswer answers without a language model. It is used whenever the
// selected model is missing or fails.
func RuleBasedAnswer(question string, retrieved rag.RetrievedContext, web *ai.WebResult) string {
	q := strings.ToLower(strings.TrimSpace(question))

	switch {
	case isShort(q) && matchesAny(q, greetingWords):
		return greetingAnswer
	case matchesAny(q, helpWords) && retrieved.Context == "":
		return helpAnswer
	case isShort(q) && matchesAny(q, thanksWords):
		return thanksAnswer
	}

	if web != nil && strings.TrimSpace(web.Answer) != "" {
		var b strings.Builder
		b.WriteString("**Latest Information:**\n\n")
		b.WriteString(strings.TrimSpace(web.Answer))
		if len(web.Sources) > 0 {
			b.WriteString("\n\n**Sources:**\n")
			for i, src := range web.Sources {
				fmt.Fprintf(&b, "%d. %s\n", i+1, src)
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if retrieved.Context != "" {
		var b strings.Builder
		b.WriteString("Based on your documents:\n\n")
		b.WriteString(truncate(retrieved.Context, fallbackContextChars))
		if len(retrieved.Sources) > 0 {
			names := make([]string, 0, len(retrieved.Sources))
			for _, s := range retrieved.Sources {
				names = append(names, s.String())
			}
			b.WriteString("\n\nSources: ")
			b.WriteString(strings.Join(names, ", "))
		}
		return b.String()
	}

	return noContextAnswer
}

func isShort(q string) bool {
	return len(strings.Fields(q)) <= 4
}

func matchesAny(q string, phrases []string) bool {
	words := wordSet(q)
	for _, p := range phrases {
		if strings.Contains(p, " ") {
			if strings.Contains(q, p) {
				return true
			}
			continue
		}
		if words[p] {
			return true
		}
	}
	return false
}

func wordSet(q string) map[string]bool {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
