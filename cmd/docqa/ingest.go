package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"docqa/internal/app"
)

// Run executes the ingest command. Every file is attempted; the command fails
// when any of them could not be ingested.
func (c *IngestCmd) Run(deps *Dependencies) error {
	var failed int
	for _, path := range c.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", err)
			failed++
			continue
		}

		res, err := deps.Documents.IngestFile(deps.Ctx, app.IngestFileInput{
			Filename: filepath.Base(path),
			Data:     data,
		})
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s: %v\n", path, err)
			failed++
			continue
		}
		printIngestResult(deps.Stdout, res)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be ingested", failed, len(c.Paths))
	}
	return nil
}

// Run executes the ingest-url command.
func (c *IngestURLCmd) Run(deps *Dependencies) error {
	res, err := deps.Documents.IngestURL(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s: %v\n", c.URL, err)
		return err
	}
	printIngestResult(deps.Stdout, res)
	return nil
}

func printIngestResult(w io.Writer, res *app.IngestResult) {
	verb := "Ingested"
	if res.Replaced {
		verb = "Replaced"
	}
	fmt.Fprintf(w, "%s %q: %d chunks, %d characters (%s, %s)\n",
		verb, res.Filename, res.Chunks, res.Characters, res.SourceType, res.EmbeddingModel)
}
