package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Summarizer turns a company's website and recent news into a short prose
// summary for a sales audience.
type Summarizer struct {
	gen Generator
}

// NewSummarizer creates a Summarizer backed by gen.
func NewSummarizer(gen Generator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Model returns the model name recorded alongside each summary.
func (s *Summarizer) Model() string { return s.gen.Model() }

const companyPromptTemplate = `
You are a sales assistant. Summarize the company "%s" using the info below.
Include:
- Official website: %s
- Recent news (headlines + short notes): %s

Return as plain English text ONLY. No markdown, no asterisks, no bullets, no headings.
Keep it concise and useful for an IT sales representative.
`

// CompanyPrompt builds the fixed summarization prompt.
func CompanyPrompt(company, website, newsText string) string {
	return fmt.Sprintf(companyPromptTemplate, company, website, newsText)
}

// SummarizeCompany asks the model for a summary. It never fails: on error the
// returned text describes the error and is stored like any other summary.
func (s *Summarizer) SummarizeCompany(ctx context.Context, company, website, newsText string) string {
	text, err := s.gen.Generate(ctx, CompanyPrompt(company, website, newsText))
	if err != nil {
		slog.Warn("ai: summarize company", "company", company, "model", s.gen.Model(), "err", err)
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	return cleanSummary(text)
}

// cleanSummary drops asterisks the model adds despite instructions.
func cleanSummary(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
}
