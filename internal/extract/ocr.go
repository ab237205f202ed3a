package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OCR shells out to the tesseract CLI, reading the image from stdin.
type OCR struct {
	path string
}

func NewOCR(path string) *OCR {
	if path == "" {
		path = "tesseract"
	}
	return &OCR{path: path}
}

func (o *OCR) Available() bool {
	_, err := exec.LookPath(o.path)
	return err == nil
}

func (o *OCR) Text(ctx context.Context, data []byte) (string, error) {
	cmd := exec.CommandContext(ctx, o.path, "stdin", "stdout")
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
