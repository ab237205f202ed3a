package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"docqa/internal/app"
)

// Run executes the ask command. The answer is streamed to stdout as it is
// generated and followed by its sources.
func (c *AskCmd) Run(deps *Dependencies) error {
	session := c.Session
	if session == "" {
		session = uuid.NewString()
		fmt.Fprintf(deps.Stderr, "Session: %s (pass --session to continue this conversation)\n", session)
	}

	input := app.AskInput{
		SessionID: session,
		Question:  c.Question,
		Model:     c.Model,
		WebSearch: webMode(c.Web),
		TopK:      c.TopK,
	}

	res, err := deps.Assistant.StreamAsk(deps.Ctx, input, func(chunk string) error {
		_, err := io.WriteString(deps.Stdout, chunk)
		return err
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "\nerror: %v\n", err)
		return err
	}
	fmt.Fprintln(deps.Stdout)

	printSources(deps.Stdout, res)
	if res.UsedFallback {
		fmt.Fprintln(deps.Stderr, "Note: no language model answered, showing a rule-based answer")
	}
	return nil
}

func webMode(mode string) *bool {
	switch mode {
	case "on":
		on := true
		return &on
	case "off":
		off := false
		return &off
	default:
		return nil
	}
}

func printSources(w io.Writer, res *app.AskResult) {
	if len(res.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, s := range res.Sources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if len(res.WebSources) > 0 {
		fmt.Fprintln(w, "\nWeb sources:")
		for _, s := range res.WebSources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// Run executes the models command.
func (c *ModelsCmd) Run(deps *Dependencies) error {
	models := deps.Assistant.Models()
	if len(models) == 0 {
		fmt.Fprintln(deps.Stdout, "No models configured. Answers are rule-based.")
		return nil
	}

	for _, m := range models {
		status := ""
		if m.Default {
			status = " (default)"
		}
		if !m.Available {
			status += " [unavailable]"
		}
		fmt.Fprintf(deps.Stdout, "%s\t%s%s\n", m.Key, m.Name, status)
		if m.Description != "" {
			fmt.Fprintf(deps.Stdout, "\t%s\n", m.Description)
		}
	}
	return nil
}
