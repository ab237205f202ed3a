package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"docqa/internal/bootstrap"
	"docqa/internal/config"
	"docqa/internal/logging"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config replaces the file and environment configuration. Set before
	// calling Run().
	Config *config.Config

	App *bootstrap.App
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.App != nil {
		return m.App.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docqa"),
		kong.Description("Ask questions about your documents."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docqa --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg := m.Config
	if cfg == nil {
		if cfg, err = config.Load(); err != nil {
			fmt.Fprintln(stderr, "Hint: Set CONFIG_FILE to use a different configuration file")
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	level := "warn"
	if cli.Verbose {
		level = "debug"
	}
	logger := logging.New(stderr, level, "text")

	m.App, err = bootstrap.NewWithConfig(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check DATABASE_URL or the sqlite_path setting")
		return fmt.Errorf("failed to start: %w", err)
	}
	defer m.Close()

	deps.Documents = m.App.Documents
	deps.Assistant = m.App.Assistant
	deps.Checker = m.App.Checker

	return kongCtx.Run(deps)
}
