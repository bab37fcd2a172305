package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/loanguard/loanguard/internal/normalizer"
	"github.com/loanguard/loanguard/pkg/xmlutil"
)

// ClaudeOracle extracts loan requirements using the Anthropic API.
type ClaudeOracle struct {
	client      *anthropic.Client
	model       string
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewClaudeOracle creates an oracle backed by the Anthropic API.
func NewClaudeOracle(apiKey, model string, callTimeout time.Duration, logger *slog.Logger) *ClaudeOracle {
	if logger == nil {
		logger = slog.Default()
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeOracle{
		client:      &client,
		model:       model,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// extractionPromptTemplate asks for operational requirements only. Document
// text is injected via an XML tag to prevent prompt injection.
const extractionPromptTemplate = `You are an expert commercial real estate loan analyst. Extract ALL operational requirements from this loan document excerpt that a borrower must comply with: what must be done, when or how often, any numeric thresholds, and how severe a miss would be.

Focus on: financial reporting deliverables, covenant tests (DSCR, LTV, debt yield), insurance, reserve and escrow funding, property management, leasing approvals, capital improvements, environmental obligations, and entity covenants. Skip legal boilerplate that requires no action.

<document>%s</document>

Respond with a single JSON object:
{
  "loan_info": {
    "borrower_name": "string or null",
    "lender_name": "string or null",
    "property_name": "string or null",
    "loan_amount": number or null,
    "origination_date": "YYYY-MM-DD or null",
    "maturity_date": "YYYY-MM-DD or null"
  },
  "requirements": [
    {
      "title": "brief title",
      "category": "one of: financial_reporting, covenant_compliance, insurance, reserve_funding, property_management, leasing, capital_improvements, tax_escrow, environmental, legal_entity, other",
      "description": "what must be done",
      "plain_language_summary": "plain English a property owner would understand",
      "original_text": "verbatim excerpt (abbreviated if long)",
      "document_reference": "Section X.X, Page Y",
      "deadline": {"description": "when due", "frequency": "one of: one_time, monthly, quarterly, annually, custom", "days_after_period_end": number or null, "day_of_month": number or null} or null,
      "threshold": {"metric": "e.g. DSCR", "operator": ">=, <=, >, <, ==", "value": number, "unit": "%%, $, x"} or null,
      "severity": "one of: critical, high, medium, low",
      "cure_period_days": number or null
    }
  ]
}

Extract every requirement you can find. Output only valid JSON.`

// jsonFenceRe strips a markdown code fence the model sometimes wraps
// around its JSON.
var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Extract sends one chunk to the API and parses the candidate list.
func (o *ClaudeOracle) Extract(ctx context.Context, chunk string) (*Result, error) {
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(extractionPromptTemplate, xmlutil.Escape(chunk))

	resp, err := o.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: 8000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You are a precise loan document analyst. Output only valid JSON."},
		},
	})
	if err != nil {
		return nil, classify(err)
	}

	var responseText string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			responseText = resp.Content[i].Text
			break
		}
	}
	if responseText == "" {
		return nil, &OracleError{Transient: true, Err: errors.New("empty response")}
	}

	o.logger.Debug("oracle response", "bytes", len(responseText))

	result, err := parseResult(responseText)
	if err != nil {
		// A garbled response is worth one more attempt.
		return nil, &OracleError{Transient: true, Err: err}
	}
	return result, nil
}

// parseResult decodes the oracle's JSON, tolerating a markdown fence or a
// bare requirements array.
func parseResult(text string) (*Result, error) {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err == nil && result.Candidates != nil {
		return &result, nil
	}

	// Some responses are the bare requirements array without the wrapper.
	var candidates []normalizer.RawCandidate
	if err := json.Unmarshal([]byte(text), &candidates); err == nil {
		return &Result{Candidates: candidates}, nil
	}

	// Last resort: find the outermost object.
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		var result Result
		if err := json.Unmarshal([]byte(text[start:end+1]), &result); err == nil {
			return &result, nil
		}
	}
	return nil, fmt.Errorf("no JSON object in oracle response")
}

// classify maps API and transport failures onto the oracle error taxonomy.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 408 || apierr.StatusCode == 429 || apierr.StatusCode >= 500:
			return &OracleError{Transient: true, Err: err}
		default:
			return &OracleError{Transient: false, Err: err}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &OracleError{Transient: true, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &OracleError{Transient: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &OracleError{Transient: false, Err: err}
}
