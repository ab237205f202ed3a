package mock

import (
	"context"

	"docqa/internal/app"
	"docqa/internal/extract"
)

var _ app.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of app.Extractor.
type Extractor struct {
	ExtractFileFn func(ctx context.Context, filename string, data []byte) (*extract.Document, error)
	ExtractURLFn  func(ctx context.Context, rawURL string) (*extract.Document, error)
}

func (e *Extractor) ExtractFile(ctx context.Context, filename string, data []byte) (*extract.Document, error) {
	return e.ExtractFileFn(ctx, filename, data)
}

func (e *Extractor) ExtractURL(ctx context.Context, rawURL string) (*extract.Document, error) {
	return e.ExtractURLFn(ctx, rawURL)
}

var _ app.DocumentFilter = (*DocumentFilter)(nil)

// DocumentFilter is a mock implementation of app.DocumentFilter.
type DocumentFilter struct {
	AddFn        func(hash string)
	MayContainFn func(hash string) bool
	ResetFn      func()
}

func (f *DocumentFilter) Add(hash string) {
	f.AddFn(hash)
}

func (f *DocumentFilter) MayContain(hash string) bool {
	return f.MayContainFn(hash)
}

func (f *DocumentFilter) Reset() {
	f.ResetFn()
}
