// Package nlu turns raw user utterances into a classified intent plus a
// partial parameter set, using a single LLM completion call per turn. The
// LLM is a black box behind the LLMClient interface; its JSON output is
// validated against a fixed schema and any deviation becomes a
// MalformedResponseError rather than untyped data leaking into the dialogue.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator"
	"golang.org/x/time/rate"

	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/metrics"
	"github.com/yadbot/yadbot/types"
)

type Intent string

const (
	IntentCreate Intent = "create"
	IntentView   Intent = "view"
	IntentEdit   Intent = "edit"
	IntentDelete Intent = "delete"
	IntentOther  Intent = "other"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Params is the partial parameter set one turn can contribute. Empty fields
// mean "not mentioned this turn".
type Params struct {
	Task             string
	DatePhrase       string
	TimePhrase       string
	RecurrencePhrase string
	TargetReference  string
}

type Extraction struct {
	Intent             Intent
	Confidence         Confidence
	Params             Params
	NeedsClarification bool
}

// TransientExtractionError marks network/quota/timeout failures that are
// worth one automatic retry.
type TransientExtractionError struct {
	Err error
}

func (e *TransientExtractionError) Error() string {
	return fmt.Sprintf("transient extraction failure: %v", e.Err)
}

func (e *TransientExtractionError) Unwrap() error { return e.Err }

// MalformedResponseError marks an LLM reply that violated the output schema.
// It is never surfaced raw to the user.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed extractor response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// LLMClient is the single external completion call the extractor depends on.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Extractor struct {
	llm      LLMClient
	limiter  *rate.Limiter
	validate *validator.Validate
	log      *slog.Logger
}

func NewExtractor(llm LLMClient, rps float64, log *slog.Logger) *Extractor {
	if rps <= 0 {
		rps = 5
	}
	return &Extractor{
		llm:      llm,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		validate: validator.New(),
		log:      log,
	}
}

// llmResponse is the fixed output schema the LLM must produce.
type llmResponse struct {
	Intent             string `json:"intent" validate:"required,oneof=create view edit delete other"`
	Confidence         string `json:"confidence" validate:"required,oneof=high medium low"`
	Task               string `json:"task"`
	DatePhrase         string `json:"date_phrase"`
	TimePhrase         string `json:"time_phrase"`
	RecurrencePhrase   string `json:"recurrence_phrase"`
	TargetReference    string `json:"target_reference"`
	NeedsClarification bool   `json:"needs_clarification"`
}

// Extract classifies one utterance. Known parameters collected earlier in the
// sub-flow are passed in so the model treats the turn as a correction or a
// completion; the returned params only carry fields this turn mentioned.
func (e *Extractor) Extract(ctx context.Context, utterance string, history []types.Turn, known Params) (Extraction, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return Extraction{}, &TransientExtractionError{Err: err}
	}

	prompt := buildPrompt(utterance, history, known)
	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		metrics.ExtractionFailures.WithLabelValues("transient").Inc()
		return Extraction{}, &TransientExtractionError{Err: err}
	}

	var resp llmResponse
	cleaned := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		e.log.Warn("extractor returned non-JSON output", sl.Err(err))
		metrics.ExtractionFailures.WithLabelValues("malformed").Inc()
		return Extraction{}, &MalformedResponseError{Raw: raw, Err: err}
	}
	if err := e.validate.Struct(&resp); err != nil {
		e.log.Warn("extractor output failed schema validation", sl.Err(err))
		metrics.ExtractionFailures.WithLabelValues("malformed").Inc()
		return Extraction{}, &MalformedResponseError{Raw: raw, Err: err}
	}

	out := Extraction{
		Intent:     Intent(resp.Intent),
		Confidence: Confidence(resp.Confidence),
		Params: Params{
			Task:             strings.TrimSpace(resp.Task),
			DatePhrase:       strings.TrimSpace(resp.DatePhrase),
			TimePhrase:       strings.TrimSpace(resp.TimePhrase),
			RecurrencePhrase: strings.TrimSpace(resp.RecurrencePhrase),
			TargetReference:  strings.TrimSpace(resp.TargetReference),
		},
		NeedsClarification: resp.NeedsClarification,
	}

	// A low-confidence classification never contributes parameters; the
	// engine asks instead of guessing.
	if out.Confidence == ConfidenceLow {
		out.Params = Params{}
		out.NeedsClarification = true
	}
	return out, nil
}

// Merge overlays this turn's params on top of what was already collected,
// overwriting only the fields the turn actually mentioned.
func (p Params) Merge(known Params) Params {
	merged := known
	if p.Task != "" {
		merged.Task = p.Task
	}
	if p.DatePhrase != "" {
		merged.DatePhrase = p.DatePhrase
	}
	if p.TimePhrase != "" {
		merged.TimePhrase = p.TimePhrase
	}
	if p.RecurrencePhrase != "" {
		merged.RecurrencePhrase = p.RecurrencePhrase
	}
	if p.TargetReference != "" {
		merged.TargetReference = p.TargetReference
	}
	return merged
}

// ParseRecurrence maps a free-text recurrence phrase onto the stored rule.
func ParseRecurrence(phrase string) types.Recurrence {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	switch {
	case phrase == "":
		return types.RecurrenceNone
	case strings.Contains(phrase, "daily") || strings.Contains(phrase, "every day") ||
		strings.Contains(phrase, "هر روز") || strings.Contains(phrase, "روزانه"):
		return types.RecurrenceDaily
	case strings.Contains(phrase, "weekly") || strings.Contains(phrase, "every week") ||
		strings.Contains(phrase, "هر هفته") || strings.Contains(phrase, "هفتگی"):
		return types.RecurrenceWeekly
	case strings.Contains(phrase, "monthly") || strings.Contains(phrase, "every month") ||
		strings.Contains(phrase, "هر ماه") || strings.Contains(phrase, "ماهانه"):
		return types.RecurrenceMonthly
	default:
		return types.RecurrenceNone
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
