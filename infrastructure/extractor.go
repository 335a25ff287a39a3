package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"

	"referral-intake/domain"
)

var errUnsupportedFormat = errors.New("unsupported resume format")

// DocumentExtractor pulls plain text out of txt, pdf and docx resumes.
type DocumentExtractor struct {
	maxChars int
	logger   *zap.Logger
}

var _ domain.ResumeExtractor = (*DocumentExtractor)(nil)

// NewDocumentExtractor creates an extractor that truncates output to maxChars.
// A non-empty licenseKey activates unipdf's metered license.
func NewDocumentExtractor(maxChars int, licenseKey string, logger *zap.Logger) (*DocumentExtractor, error) {
	if licenseKey != "" {
		if err := license.SetMeteredKey(licenseKey); err != nil {
			return nil, fmt.Errorf("failed to set unidoc license: %w", err)
		}
	}
	return &DocumentExtractor{maxChars: maxChars, logger: logger.Named("extractor")}, nil
}

// Extract picks a strategy by file extension.
func (e *DocumentExtractor) Extract(ctx context.Context, file domain.ResumeFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.ExtractionError{Filename: file.Filename, Err: err}
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), ".")) {
	case "txt", "md", "text":
		if !utf8.Valid(file.Data) {
			err = errors.New("text file is not valid UTF-8")
		} else {
			text = string(file.Data)
		}
	case "pdf":
		text, err = e.extractTextFromPDF(file.Data)
	case "docx":
		text, err = extractTextFromDocx(file.Data)
	default:
		err = errUnsupportedFormat
	}
	if err != nil {
		return "", &domain.ExtractionError{Filename: file.Filename, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &domain.ExtractionError{Filename: file.Filename, Err: errors.New("no text found")}
	}
	return truncateRunes(text, e.maxChars), nil
}

// extractTextFromPDF extracts text from PDF files using unipdf
func (e *DocumentExtractor) extractTextFromPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			e.logger.Debug("Skipping unreadable PDF page", zap.Int("page", i), zap.Error(err))
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			e.logger.Debug("Failed to create extractor for page", zap.Int("page", i), zap.Error(err))
			continue
		}

		pageText, err := ex.ExtractText()
		if err != nil {
			e.logger.Debug("Failed to extract text from page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if pageText != "" {
			textBuilder.WriteString(pageText)
			textBuilder.WriteString("\n\n")
		}
	}

	result := strings.TrimSpace(textBuilder.String())
	if result == "" {
		return "", fmt.Errorf("no text could be extracted from any page of the PDF")
	}
	return result, nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

func extractTextFromDocx(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = xmlUnescaper.Replace(content)
	return blankLines.ReplaceAllString(content, "\n\n"), nil
}

var xmlUnescaper = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
