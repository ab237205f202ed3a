// Package extract turns uploaded files and web pages into plain text for
// chunking.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyDocument   = errors.New("no text could be extracted")
	ErrFileTooLarge    = errors.New("file too large")
)

const (
	SourcePDF   = "pdf"
	SourceText  = "txt"
	SourceCSV   = "csv"
	SourceImage = "image"
	SourceURL   = "url"
)

// Document is the extracted text of one upload or page.
type Document struct {
	Name       string
	Text       string
	SourceType string
}

// ImageLabeler describes an image with short labels when it carries no text.
type ImageLabeler interface {
	Describe(data []byte) ([]string, error)
}

type Options struct {
	MaxFileBytes  int64
	TesseractPath string
	Labeler       ImageLabeler
	URL           URLOptions
}

// Extractor dispatches on file extension.
type Extractor struct {
	maxBytes int64
	ocr      *OCR
	labeler  ImageLabeler
	web      *WebExtractor
}

func New(opts Options) *Extractor {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 20 << 20
	}
	return &Extractor{
		maxBytes: opts.MaxFileBytes,
		ocr:      NewOCR(opts.TesseractPath),
		labeler:  opts.Labeler,
		web:      NewWebExtractor(opts.URL),
	}
}

// SourceType maps a filename to its source type, or "" when unsupported.
func SourceType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return SourcePDF
	case ".txt", ".md", ".markdown", ".text":
		return SourceText
	case ".csv":
		return SourceCSV
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return SourceImage
	default:
		return ""
	}
}

func (e *Extractor) ExtractFile(ctx context.Context, filename string, data []byte) (*Document, error) {
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), e.maxBytes)
	}

	sourceType := SourceType(filename)
	var (
		text string
		err  error
	)
	switch sourceType {
	case SourcePDF:
		text, err = PDFText(data)
	case SourceText:
		text = PlainText(data)
	case SourceCSV:
		text, err = CSVText(data)
	case SourceImage:
		text, err = e.imageText(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s failed: %w", filename, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	return &Document{Name: filename, Text: text, SourceType: sourceType}, nil
}

func (e *Extractor) ExtractURL(ctx context.Context, rawURL string) (*Document, error) {
	page, err := e.web.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil, ErrEmptyDocument
	}
	return page, nil
}

// imageText runs OCR and falls back to labels from the image classifier.
func (e *Extractor) imageText(ctx context.Context, data []byte) (string, error) {
	var ocrErr error
	if e.ocr.Available() {
		text, err := e.ocr.Text(ctx, data)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		ocrErr = err
	}

	if e.labeler != nil {
		labels, err := e.labeler.Describe(data)
		if err == nil && len(labels) > 0 {
			return "Image content: " + strings.Join(labels, ", "), nil
		}
		if err != nil {
			return "", fmt.Errorf("describe image failed: %w", err)
		}
	}
	if ocrErr != nil {
		return "", ocrErr
	}
	return "", nil
}
