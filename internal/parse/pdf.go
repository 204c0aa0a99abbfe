package parse

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFError represents a non-retryable PDF extraction failure.
type PDFError struct {
	Message string
}

func (e *PDFError) Error() string {
	return e.Message
}

// ExtractPDF extracts the plain text of a PDF file, pages joined by blank
// lines. English text and a fixed extraction strategy are assumed.
func ExtractPDF(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(content) < 4 || string(content[:4]) != "%PDF" {
		return "", &PDFError{Message: fmt.Sprintf("%s is not a valid PDF file", path)}
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", &PDFError{Message: fmt.Sprintf("failed to parse PDF %s: %v", path, err)}
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}

	text := cleanExtractedText(strings.TrimSpace(builder.String()))
	if text == "" {
		return "", &PDFError{Message: fmt.Sprintf("PDF %s contains no extractable text", path)}
	}
	return text, nil
}

// cleanExtractedText removes null bytes and stray bracket/quote wrapping
// left over from extraction.
func cleanExtractedText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}
