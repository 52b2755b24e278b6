package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const maxExtractionInput = 20000

var errExtractionDisabled = apperr.Unavailable("Job extraction is not configured")

// ExtractionService drafts a job posting from a scraped page with an LLM.
// A nil Client means extraction is disabled.
type ExtractionService struct {
	Client llms.Model
	Log    *slog.Logger
}

// NewExtractionService creates a Gemini-backed service. An empty key yields a
// disabled service rather than an error.
func NewExtractionService(ctx context.Context, apiKey string, log *slog.Logger) (*ExtractionService, error) {
	if apiKey == "" {
		return &ExtractionService{Log: log}, nil
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel("gemini-2.5-flash"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &ExtractionService{Client: llm, Log: log}, nil
}

const jobExtractionPrompt = `
You are a job data extraction agent. Analyze the raw HTML or text of a job posting and extract structured data.

### INSTRUCTIONS:
1. Ignore navigation menus, footers, "similar jobs" lists and advertisements.
2. Output valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "title": "Job title (e.g., Senior Backend Engineer)",
    "description": "A clean summary of responsibilities and requirements without HTML tags",
    "skillsets": ["Array", "of", "skills", "e.g., Go, React, AWS"],
    "jobType": "One of Full Time, Part Time, Work From Home, or null",
    "location": "Job location or 'Remote'",
    "salary": "Monthly salary as a whole number if explicitly stated, otherwise null",
    "duration": "Duration in months as a whole number if stated, otherwise null"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not guess.

### RAW CONTENT:
%s
`

// ExtractJob returns a JSON draft suitable for prefilling a job creation form.
func (s *ExtractionService) ExtractJob(ctx context.Context, caller auth.Caller, rawHTML string) (json.RawMessage, error) {
	if caller.UserType != models.UserRecruiter {
		return nil, errRecruitersOnly
	}
	if s.Client == nil {
		return nil, errExtractionDisabled
	}
	if strings.TrimSpace(rawHTML) == "" {
		return nil, apperr.Validation("raw_html is required")
	}
	rawHTML = truncateUTF8(rawHTML, maxExtractionInput)

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, fmt.Sprintf(jobExtractionPrompt, rawHTML))
	if err != nil {
		s.Log.Error("job extraction failed", "error", err)
		return nil, apperr.Unavailable("Job extraction is temporarily unavailable")
	}

	out := stripCodeFence(resp)
	if !json.Valid([]byte(out)) {
		s.Log.Warn("job extraction returned invalid json", "length", len(resp))
		return nil, apperr.Internal("Could not parse extracted job", fmt.Errorf("model returned invalid json"))
	}
	return json.RawMessage(out), nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// stripCodeFence removes a ```json ... ``` wrapper that models add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
