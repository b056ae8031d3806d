package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"knowledge-retrieval-platform/models"
)

// Content types accepted by the extraction registry.
const (
	ContentTypeText     = "text/plain"
	ContentTypeMarkdown = "text/markdown"
	ContentTypePDF      = "application/pdf"
	ContentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Extractor turns raw document bytes into plain text. Everything past this
// contract (chunking, indexing, search) is format-agnostic.
type Extractor interface {
	ExtractText(contentType string, raw []byte) (string, error)
}

// DefaultExtractor dispatches on content type. Unknown types and corrupt
// payloads fail with ExtractionError before any chunking happens.
type DefaultExtractor struct{}

func NewExtractor() *DefaultExtractor {
	return &DefaultExtractor{}
}

func (e *DefaultExtractor) ExtractText(contentType string, raw []byte) (string, error) {
	switch normalizeContentType(contentType) {
	case ContentTypeText:
		return extractPlainText(contentType, raw)
	case ContentTypeMarkdown:
		return extractMarkdown(contentType, raw)
	case ContentTypePDF:
		return extractPDF(contentType, raw)
	case ContentTypeXLSX:
		return extractXLSX(contentType, raw)
	default:
		return "", &models.ExtractionError{
			ContentType: contentType,
			Reason:      "unsupported content type",
		}
	}
}

func normalizeContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func extractPlainText(contentType string, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", &models.ExtractionError{
			ContentType: contentType,
			Reason:      "content is not valid UTF-8",
		}
	}
	return string(raw), nil
}

var (
	markdownCodeFence = regexp.MustCompile("(?s)```.*?```")
	markdownSyntax    = regexp.MustCompile(`[#*_>]+|\[([^\]]*)\]\([^)]*\)`)
)

// extractMarkdown keeps the prose and drops fenced code and link targets.
func extractMarkdown(contentType string, raw []byte) (string, error) {
	text, err := extractPlainText(contentType, raw)
	if err != nil {
		return "", err
	}
	text = markdownCodeFence.ReplaceAllString(text, "")
	text = markdownSyntax.ReplaceAllString(text, "$1")
	return text, nil
}

func extractPDF(contentType string, raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", &models.ExtractionError{
			ContentType: contentType,
			Reason:      "failed to open PDF",
			Err:         err,
		}
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}

		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n\n")
		}
		textBuilder.WriteString(text)
	}

	extracted := textBuilder.String()
	if strings.TrimSpace(extracted) == "" {
		return "", &models.ExtractionError{
			ContentType: contentType,
			Reason:      "no text extracted",
		}
	}
	return extracted, nil
}

// extractXLSX flattens each sheet into tab-separated rows, one sheet per
// paragraph block.
func extractXLSX(contentType string, raw []byte) (string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", &models.ExtractionError{
			ContentType: contentType,
			Reason:      "failed to open workbook",
			Err:         err,
		}
	}
	defer file.Close()

	var textBuilder strings.Builder
	for _, sheet := range file.GetSheetList() {
		rows, err := file.GetRows(sheet)
		if err != nil {
			return "", &models.ExtractionError{
				ContentType: contentType,
				Reason:      fmt.Sprintf("failed to read sheet %s", sheet),
				Err:         err,
			}
		}
		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n\n")
		}
		textBuilder.WriteString(sheet)
		for _, row := range rows {
			textBuilder.WriteString("\n")
			textBuilder.WriteString(strings.Join(row, "\t"))
		}
	}

	extracted := textBuilder.String()
	if strings.TrimSpace(extracted) == "" {
		return "", &models.ExtractionError{
			ContentType: contentType,
			Reason:      "workbook contains no text",
		}
	}
	return extracted, nil
}
