// Package analysis turns the provider's chat reply into a structured
// collection critique.
//
// The reply text is expected to embed a JSON object. Extraction is a
// best-effort heuristic: the candidate span runs from the first '{' to the last
// '}' of the text, so unrelated braces in surrounding prose can widen the span
// and make decoding fail. Any failure degrades to an overview-only result.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atinyakov/BagWardrobe/internal/models"
)

// ContentBlock is one typed block of a provider response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Envelope is the subset of the provider's chat-completion response the parser reads.
type Envelope struct {
	Content []ContentBlock `json:"content"`
}

// Parse extracts the analysis from a raw provider response body.
func Parse(raw []byte) (*models.AnalysisResult, error) {
	text, err := FirstText(raw)
	if err != nil {
		return nil, err
	}
	result := ParseText(text)
	return &result, nil
}

// FirstText returns the text of the first text block, or "" when there is none.
func FirstText(raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	for _, block := range env.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// FindJSONSpan returns the substring from the first '{' to the last '}'.
func FindJSONSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseText decodes the JSON object embedded in text. When no object is found or
// it does not decode, including a single field of the wrong type, the whole text
// becomes the overview.
func ParseText(text string) models.AnalysisResult {
	if span, ok := FindJSONSpan(text); ok {
		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(span), &result); err == nil {
			return result
		}
	}
	return Degraded(text)
}

// Degraded builds the overview-only result.
func Degraded(text string) models.AnalysisResult {
	return models.AnalysisResult{
		Overview:        text,
		Gaps:            []string{},
		Outdated:        []string{},
		Recommendations: []models.Recommendation{},
	}
}
