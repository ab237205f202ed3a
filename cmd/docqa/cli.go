package main

import (
	"context"
	"io"

	"docqa/internal/app"
	"docqa/internal/model"
)

// DocumentManager ingests and manages the document store.
type DocumentManager interface {
	IngestFile(ctx context.Context, input app.IngestFileInput) (*app.IngestResult, error)
	IngestURL(ctx context.Context, rawURL string) (*app.IngestResult, error)
	ListDocuments(ctx context.Context) ([]model.DocumentSummary, error)
	DeleteDocument(ctx context.Context, filename string) error
	ClearDocuments(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*app.Stats, error)
}

// Assistant answers questions and reads the conversation log.
type Assistant interface {
	StreamAsk(ctx context.Context, input app.AskInput, onChunk func(chunk string) error) (*app.AskResult, error)
	History(ctx context.Context, sessionID string, limit int) ([]model.Conversation, error)
	Models() []app.ModelInfo
}

type Checker interface {
	Check(ctx context.Context) *app.CheckReport
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Documents DocumentManager
	Assistant Assistant
	Checker   Checker
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Log pipeline details to stderr"`

	Ingest    IngestCmd    `cmd:"" help:"Ingest PDF, text, CSV or image files"`
	IngestURL IngestURLCmd `cmd:"" name:"ingest-url" help:"Ingest the main content of a web page"`
	Ask       AskCmd       `cmd:"" help:"Ask a question about the ingested documents"`
	Docs      DocsCmd      `cmd:"" help:"List ingested documents"`
	Delete    DeleteCmd    `cmd:"" help:"Delete a document and its chunks"`
	Clear     ClearCmd     `cmd:"" help:"Delete every document"`
	Models    ModelsCmd    `cmd:"" help:"List the configured language models"`
	Stats     StatsCmd     `cmd:"" help:"Show document and conversation counts"`
	History   HistoryCmd   `cmd:"" help:"Show the conversation log of a session"`
	Check     CheckCmd     `cmd:"" help:"Run a system check of every pipeline stage"`
}

// IngestCmd is the "ingest" subcommand.
type IngestCmd struct {
	Paths []string `arg:"" name:"file" help:"Files to ingest"`
}

// IngestURLCmd is the "ingest-url" subcommand.
type IngestURLCmd struct {
	URL string `arg:"" help:"Page URL (http or https)"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Question string `arg:"" help:"Question to ask"`
	Session  string `short:"s" env:"DOCQA_SESSION" help:"Session ID for conversation history (new session when empty)"`
	Model    string `short:"m" help:"Model key (default model when empty)"`
	Web      string `enum:"auto,on,off" default:"auto" help:"Web search: auto, on or off"`
	TopK     int    `name:"top-k" short:"k" help:"Number of chunks to retrieve"`
}

// DocsCmd is the "docs" subcommand.
type DocsCmd struct{}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Filename string `arg:"" help:"Document name as shown by 'docqa docs'"`
}

// ClearCmd is the "clear" subcommand.
type ClearCmd struct {
	Yes bool `short:"y" help:"Confirm deletion of every document"`
}

// ModelsCmd is the "models" subcommand.
type ModelsCmd struct{}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct{}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Session string `arg:"" help:"Session ID"`
	Limit   int    `short:"n" default:"20" help:"Maximum number of exchanges"`
}

// CheckCmd is the "check" subcommand.
type CheckCmd struct{}
