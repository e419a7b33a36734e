// Package document extracts plain text from study material so it can be
// sent to the tutor as context.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxChars bounds the extracted text.
const DefaultMaxChars = 12000

// ErrUnsupported is returned for file types that cannot be read as text.
var ErrUnsupported = errors.New("unsupported document type")

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".tex": true,
}

// Document is extracted text with its origin.
type Document struct {
	Name      string
	Pages     int
	Text      string
	Truncated bool
}

// Extract reads path and returns its text, cut to maxChars characters
// (DefaultMaxChars when maxChars <= 0).
func Extract(path string, maxChars int) (*Document, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		text  string
		pages int
		err   error
	)
	switch {
	case ext == ".pdf":
		text, pages, err = extractPDF(path)
	case textExtensions[ext]:
		text, err = extractText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, err
	}

	doc := &Document{Name: filepath.Base(path), Pages: pages}
	doc.Text, doc.Truncated = truncate(strings.TrimSpace(text), maxChars)
	return doc, nil
}

func extractPDF(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return readPDF(r)
}

// ExtractPDFBytes reads a PDF held in memory, as received from an upload.
func ExtractPDFBytes(data []byte, maxChars int) (*Document, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	text, pages, err := readPDF(r)
	if err != nil {
		return nil, err
	}
	doc := &Document{Pages: pages}
	doc.Text, doc.Truncated = truncate(strings.TrimSpace(text), maxChars)
	return doc, nil
}

// ExtractTextBytes validates an in-memory text upload.
func ExtractTextBytes(data []byte, maxChars int) (*Document, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: upload is not UTF-8 text", ErrUnsupported)
	}
	doc := &Document{}
	doc.Text, doc.Truncated = truncate(strings.TrimSpace(string(data)), maxChars)
	return doc, nil
}

func readPDF(r *pdf.Reader) (string, int, error) {
	var b strings.Builder
	total := r.NumPage()
	for n := 1; n <= total; n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n", n)
		b.WriteString(text)
	}
	return b.String(), total, nil
}

func extractText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not UTF-8 text", ErrUnsupported, filepath.Base(path))
	}
	return string(data), nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}
