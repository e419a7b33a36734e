package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestExtractText(t *testing.T) {
	p := writeFile(t, "notes.md", []byte("  # Newton\n\nF = ma  \n"))
	doc, err := Extract(p, 0)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", doc.Name)
	assert.Equal(t, "# Newton\n\nF = ma", doc.Text)
	assert.False(t, doc.Truncated)
	assert.Zero(t, doc.Pages)
}

func TestExtractTruncatesByRune(t *testing.T) {
	p := writeFile(t, "bn.txt", []byte(strings.Repeat("অ", 20)))
	doc, err := Extract(p, 5)
	require.NoError(t, err)
	assert.True(t, doc.Truncated)
	assert.Equal(t, strings.Repeat("অ", 5), doc.Text)
}

func TestExtractRejects(t *testing.T) {
	_, err := Extract(writeFile(t, "image.png", []byte{0x89, 'P', 'N', 'G'}), 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Extract(writeFile(t, "bad.txt", []byte{0xff, 0xfe, 0xfd}), 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Extract(filepath.Join(t.TempDir(), "missing.txt"), 0)
	assert.Error(t, err)

	_, err = Extract(writeFile(t, "broken.pdf", []byte("not a pdf")), 0)
	assert.Error(t, err)
}

func TestExtractPDFBytesRejectsGarbage(t *testing.T) {
	_, err := ExtractPDFBytes([]byte("%PDF-garbage"), 0)
	assert.Error(t, err)
}

func TestExtractTextBytes(t *testing.T) {
	doc, err := ExtractTextBytes([]byte(" momentum = mv \n"), 0)
	require.NoError(t, err)
	assert.Equal(t, "momentum = mv", doc.Text)

	_, err = ExtractTextBytes([]byte{0xff}, 0)
	assert.ErrorIs(t, err, ErrUnsupported)
}
