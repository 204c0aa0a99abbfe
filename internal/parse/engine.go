package parse

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Origin selects the structuring instructions: HTML-origin text keeps its
// existing structure, PDF-origin text is reconstructed more aggressively.
type Origin string

// Document origins.
const (
	OriginHTML Origin = "html"
	OriginPDF  Origin = "pdf"
)

// Engine is the external document-structuring service converting raw text
// to well-formed Markdown.
type Engine interface {
	Structure(ctx context.Context, text string, origin Origin) (string, error)
	Close() error
}

// htmlInstruction tunes the engine for HTML-origin text: preserve the
// existing structure, never invent sections.
const htmlInstruction = "Convert the provided text into accurate and well-structured Markdown format, strictly preserving the original structure. " +
	"Use headers from H1 to H3 only where they naturally occur in the text, and do not create additional headers or modify existing ones. " +
	"Do not split the text into multiple sections or alter the sequence of content. " +
	"Preserve all links, ensuring that they remain correctly formatted and in their original place in the text. " +
	"Maintain bullet points and numbered lists with proper indentation to reflect any nested lists, ensuring list numbers remain in sequence. " +
	"If the text is not a header, ensure that bold and italic text is properly formatted using double **asterisks** for bold and single *asterisks* for italic. " +
	"Detect and correctly format blockquotes using the '>' symbol for any quoted text, but do not reformat text that is already in correct Markdown format. " +
	"If any tables are detected, parse them as a title (bold header) followed by list items, but do not reformat existing Markdown tables. " +
	"Do not enclose fragments of code/Markdown or any other content in triple backticks unless they are explicitly formatted as code blocks in the original text. " +
	"Ensure that the final output is a clean, concise Markdown document that closely reflects the original text's intent and structure, without adding or omitting any content."

// pdfInstruction tunes the engine for PDF-origin text: headings must be
// recovered from typography and broken lines repaired.
const pdfInstruction = "Convert the provided text into accurate and well-structured Markdown format, closely resembling the original PDF structure. " +
	"Use headers from H1 to H3, with H1 for main titles, H2 for sections, and H3 for subsections. " +
	"Detect any bold, large, or all-uppercase text as headers. " +
	"Preserve bullet points and numbered lists with proper indentation to reflect nested lists. " +
	"If it is not a header, ensure that bold and italic text is properly formatted using double **asterisks** for bold and single *asterisks* for italic. " +
	"Detect and correctly format blockquotes using the '>' symbol for any quoted text. " +
	"When processing text, pay attention to line breaks that may incorrectly join or split words, and automatically correct common errors such as wrongly concatenated words or broken lines. " +
	"If code snippets or technical commands are found, enclose them in triple backticks ``` for proper formatting. " +
	"If any tables are detected, parse them as a title (bold header) followed by list items. " +
	"If you see the same header multiple times, merge them into one. " +
	"Do not enclose fragments of code/Markdown or any other content in triple backticks unless they are explicitly formatted as code blocks in the original text. " +
	"The final output should be a clean, concise Markdown document closely reflecting the original text's intent and structure without adding any extra text."

// GeminiEngine implements Engine on the Gemini API.
type GeminiEngine struct {
	client *genai.Client
	model  string
}

// DefaultModel is the structuring model.
const DefaultModel = "gemini-2.5-flash"

// NewGeminiEngine creates a structuring engine. An empty model selects
// DefaultModel.
func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEngine{client: client, model: model}, nil
}

// Structure converts text to Markdown with origin-specific instructions.
func (e *GeminiEngine) Structure(ctx context.Context, text string, origin Origin) (string, error) {
	instruction := htmlInstruction
	if origin == OriginPDF {
		instruction = pdfInstruction
	}

	model := e.client.GenerativeModel(e.model)
	model.SetTemperature(0.1) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx, genai.Text(instruction+"\n\n"+text))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractTextFromResponse(resp)
}

// Close releases resources held by the engine.
func (e *GeminiEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
