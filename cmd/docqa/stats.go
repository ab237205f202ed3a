package main

import (
	"fmt"
	"io"
	"time"

	"docqa/internal/app"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	st, err := deps.Documents.Stats(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	fmt.Fprintf(deps.Stdout, "Database:       %s\n", st.DatabaseType)
	fmt.Fprintf(deps.Stdout, "Documents:      %d\n", st.UniqueDocuments)
	fmt.Fprintf(deps.Stdout, "Chunks:         %d\n", st.TotalChunks)
	fmt.Fprintf(deps.Stdout, "Conversations:  %d\n", st.TotalConversations)
	fmt.Fprintf(deps.Stdout, "Last upload:    %s\n", formatTime(st.LastDocumentUpload))
	fmt.Fprintf(deps.Stdout, "Last question:  %s\n", formatTime(st.LastConversation))
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	convs, err := deps.Assistant.History(deps.Ctx, c.Session, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	if len(convs) == 0 {
		fmt.Fprintf(deps.Stdout, "No conversations for session %q\n", c.Session)
		return nil
	}
	for _, conv := range convs {
		fmt.Fprintf(deps.Stdout, "[%s] %s\n", conv.CreatedAt.Local().Format("2006-01-02 15:04"), conv.Model)
		fmt.Fprintf(deps.Stdout, "Q: %s\nA: %s\n\n", conv.UserMessage, conv.AssistantResponse)
	}
	return nil
}

// Run executes the check command. It fails when a required stage is broken.
func (c *CheckCmd) Run(deps *Dependencies) error {
	report := deps.Checker.Check(deps.Ctx)

	printCheck(deps.Stdout, "Database", report.Database)
	printCheck(deps.Stdout, "Embeddings", report.Embeddings)
	printCheck(deps.Stdout, "Retrieval", report.Retrieval)
	printCheck(deps.Stdout, "Model", report.Model)
	printCheck(deps.Stdout, "Web search", report.WebSearch)

	if !report.OK() {
		return fmt.Errorf("system check failed")
	}
	fmt.Fprintln(deps.Stdout, "\nAll required checks passed")
	return nil
}

func printCheck(w io.Writer, name string, r app.CheckResult) {
	mark := "ok  "
	if !r.OK {
		mark = "FAIL"
	}
	fmt.Fprintf(w, "[%s] %-11s %s\n", mark, name, r.Message)
}
