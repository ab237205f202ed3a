package app

import (
	"errors"

	"docqa/internal/extract"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateDocument = errors.New("document already ingested")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnknownModel      = errors.New("unknown model")

	ErrUnsupportedType = extract.ErrUnsupportedType
	ErrEmptyDocument   = extract.ErrEmptyDocument
	ErrFileTooLarge    = extract.ErrFileTooLarge
)
