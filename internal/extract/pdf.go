package extract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

// PDFText returns the plain text of a PDF. A PDF with no text layer yields
// an empty string.
func PDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
