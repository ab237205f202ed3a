package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"docqa/internal/app"
)

// Run executes the docs command.
func (c *DocsCmd) Run(deps *Dependencies) error {
	docs, err := deps.Documents.ListDocuments(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	if len(docs) == 0 {
		fmt.Fprintln(deps.Stdout, "No documents. Use 'docqa ingest' to add some.")
		return nil
	}

	tw := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tCHUNKS\tADDED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Filename, d.SourceType, d.Chunks, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if err := deps.Documents.DeleteDocument(deps.Ctx, c.Filename); err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			fmt.Fprintf(deps.Stderr, "error: document %q not found. Use 'docqa docs' to see stored documents.\n", c.Filename)
			return err
		}
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted document %q\n", c.Filename)
	return nil
}

// Run executes the clear command.
func (c *ClearCmd) Run(deps *Dependencies) error {
	if !c.Yes {
		fmt.Fprintf(deps.Stderr, "error: use --yes to confirm deletion of every document\n")
		return fmt.Errorf("%w: use --yes to confirm deletion", app.ErrInvalidInput)
	}

	n, err := deps.Documents.ClearDocuments(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted %d chunks\n", n)
	return nil
}
