package infrastructure

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"referral-intake/domain"
)

func newTestExtractor(t *testing.T, maxChars int) *DocumentExtractor {
	t.Helper()
	ex, err := NewDocumentExtractor(maxChars, "", zap.NewNop())
	require.NoError(t, err)
	return ex
}

func TestDocumentExtractor_PlainText(t *testing.T) {
	ex := newTestExtractor(t, 100)

	text, err := ex.Extract(context.Background(), domain.ResumeFile{
		Filename: "jane.TXT",
		Data:     []byte("  Jane Doe\nGo engineer  \n"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo engineer", text)
}

func TestDocumentExtractor_Truncates(t *testing.T) {
	ex := newTestExtractor(t, 5)

	text, err := ex.Extract(context.Background(), domain.ResumeFile{
		Filename: "cv.md",
		Data:     []byte("héllo wörld"),
	})

	require.NoError(t, err)
	assert.Equal(t, "héllo", text)
}

func TestDocumentExtractor_Failures(t *testing.T) {
	tests := []struct {
		name string
		file domain.ResumeFile
	}{
		{"unsupported extension", domain.ResumeFile{Filename: "cv.png", Data: []byte{0x89, 'P', 'N', 'G'}}},
		{"no extension", domain.ResumeFile{Filename: "resume", Data: []byte("text")}},
		{"invalid utf8", domain.ResumeFile{Filename: "cv.txt", Data: []byte{0xff, 0xfe, 0xfd}}},
		{"blank text", domain.ResumeFile{Filename: "cv.txt", Data: []byte("   \n")}},
		{"corrupt pdf", domain.ResumeFile{Filename: "cv.pdf", Data: []byte("%PDF-1.4 not really")}},
		{"corrupt docx", domain.ResumeFile{Filename: "cv.docx", Data: []byte("PK not a zip")}},
	}

	ex := newTestExtractor(t, 100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.Extract(context.Background(), tt.file)

			var exErr *domain.ExtractionError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.file.Filename, exErr.Filename)
		})
	}
}

func TestDocumentExtractor_CancelledContext(t *testing.T) {
	ex := newTestExtractor(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Extract(ctx, domain.ResumeFile{Filename: "cv.txt", Data: []byte("hi")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiskResumeStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskResumeStore(dir)
	require.NoError(t, err)

	first, err := store.Save(context.Background(), domain.ResumeFile{Filename: "Jane CV.PDF", Data: []byte("one")})
	require.NoError(t, err)
	second, err := store.Save(context.Background(), domain.ResumeFile{Filename: "Jane CV.PDF", Data: []byte("two")})
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same filename must not collide")
	assert.Equal(t, dir, filepath.Dir(first))
	assert.True(t, strings.HasSuffix(first, ".pdf"))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestDiskResumeStore_WriteFailure(t *testing.T) {
	store, err := NewDiskResumeStore(t.TempDir())
	require.NoError(t, err)
	store.dir = filepath.Join(store.dir, "missing", "nested")

	_, err = store.Save(context.Background(), domain.ResumeFile{Filename: "cv.txt", Data: []byte("x")})

	var sErr *domain.StorageError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "save resume", sErr.Op)
}

// buildDocx assembles the minimal package the docx reader needs.
func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocumentExtractor_Docx(t *testing.T) {
	ex := newTestExtractor(t, 1000)
	data := buildDocx(t,
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Go &amp; Rust engineer</w:t></w:r><w:r><w:t xml:space="preserve"> since 2019</w:t></w:r></w:p>`)

	text, err := ex.Extract(context.Background(), domain.ResumeFile{Filename: "Jane.DOCX", Data: data})

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo & Rust engineer since 2019", text)
}

func TestDocumentExtractor_DocxWithoutText(t *testing.T) {
	ex := newTestExtractor(t, 1000)
	data := buildDocx(t, `<w:p><w:r></w:r></w:p>`)

	_, err := ex.Extract(context.Background(), domain.ResumeFile{Filename: "blank.docx", Data: data})

	var exErr *domain.ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "blank.docx", exErr.Filename)
}
