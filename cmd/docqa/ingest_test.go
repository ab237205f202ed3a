package main_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	main "docqa/cmd/docqa"
)

func TestIngestCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("ingests every file", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newDeps(t)
		cmd := &main.IngestCmd{Paths: []string{
			writeFile(t, "warranty.txt", warrantyText),
			writeFile(t, "prices.csv", "item,price\nlamp,20\n"),
		}}

		require.NoError(t, cmd.Run(deps))
		assert.Contains(t, stdout.String(), `Ingested "warranty.txt"`)
		assert.Contains(t, stdout.String(), `Ingested "prices.csv"`)
		assert.Empty(t, stderr.String())
	})

	t.Run("continues after a failing file", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newDeps(t)
		cmd := &main.IngestCmd{Paths: []string{
			writeFile(t, "tool.exe", "binary"),
			filepath.Join(t.TempDir(), "missing.txt"),
			writeFile(t, "warranty.txt", warrantyText),
		}}

		err := cmd.Run(deps)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 of 3")
		assert.Contains(t, stderr.String(), "unsupported file type")
		assert.Contains(t, stdout.String(), `Ingested "warranty.txt"`)
	})

	t.Run("reports duplicates and replacements", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newDeps(t)
		first := writeFile(t, "notes.txt", "Version one of the release notes.")
		require.NoError(t, (&main.IngestCmd{Paths: []string{first}}).Run(deps))

		require.Error(t, (&main.IngestCmd{Paths: []string{first}}).Run(deps))
		assert.Contains(t, stderr.String(), "already ingested")

		second := writeFile(t, "notes.txt", "Version two of the release notes, rewritten.")
		require.NoError(t, (&main.IngestCmd{Paths: []string{second}}).Run(deps))
		assert.Contains(t, stdout.String(), `Replaced "notes.txt"`)
	})
}

func TestIngestURLCmd_Run(t *testing.T) {
	t.Parallel()

	deps, _, stderr := newDeps(t)
	cmd := &main.IngestURLCmd{URL: "ftp://example.com/file"}

	require.Error(t, cmd.Run(deps))
	assert.Contains(t, stderr.String(), "invalid input")
}
