// Package extract turns free-form borrower messages into structured
// field candidates via the language extraction capability.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/fairlend/advisor/internal/domain"
)

// ConfidenceThreshold is the minimum confidence a candidate must exceed
// to survive into the conversation's extracted data.
const ConfidenceThreshold = 0.7

// VerifiedConfidence is assigned to facts arriving from the verification
// boundary (credit bureau, employment, bank, valuation).
const VerifiedConfidence = 0.9

// Candidate is a tentative structured fact derived from free text. It is
// ephemeral: discarded after the merge that follows each message.
type Candidate struct {
	Field      string  `json:"field"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Extractor produces field candidates from a user message. Extraction
// failure never escapes this boundary; implementations degrade to an
// empty candidate list.
type Extractor interface {
	Extract(ctx context.Context, message string, stage domain.Stage, prior map[string]any) []Candidate
}

// ModelExtractor implements Extractor over a chat model with a structured
// JSON output contract.
type ModelExtractor struct {
	model   model.BaseChatModel
	timeout time.Duration
}

// NewModelExtractor wraps a chat model. timeout bounds each extraction
// call; zero means 15 seconds.
func NewModelExtractor(cm model.BaseChatModel, timeout time.Duration) *ModelExtractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ModelExtractor{model: cm, timeout: timeout}
}

const extractSystemPrompt = `You extract structured loan application data from borrower messages.
Respond with a single JSON object keyed by field name, each value an object
{"value": <extracted value>, "confidence": <0..1>}.
Only use fields from the allowed list. Numbers must be plain JSON numbers.
Do not re-extract fields already known unless the message corrects them.
If the message contains no application data respond with {}.`

// candidateValue is the wire shape of one extracted field.
type candidateValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Extract asks the model for candidates and filters them against the
// schema and the confidence threshold. Any failure degrades to "no new
// data this turn".
func (e *ModelExtractor) Extract(ctx context.Context, message string, stage domain.Stage, prior map[string]any) []Candidate {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	priorJSON, err := sonic.MarshalString(prior)
	if err != nil {
		priorJSON = "{}"
	}

	var b strings.Builder
	b.WriteString("Allowed fields: ")
	b.WriteString(strings.Join(domain.SchemaFields, ", "))
	b.WriteString("\nConversation stage: ")
	b.WriteString(string(stage))
	b.WriteString("\nAlready known: ")
	b.WriteString(priorJSON)
	b.WriteString("\n\nBorrower message: ")
	b.WriteString(message)

	resp, err := e.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(extractSystemPrompt),
		schema.UserMessage(b.String()),
	})
	if err != nil {
		slog.Warn("extraction call failed, continuing without new data", "stage", stage, "error", err)
		return nil
	}

	return ParseCandidates(resp.Content)
}

// ParseCandidates decodes the model's JSON payload and applies the schema
// and confidence filters. Malformed payloads yield an empty list.
func ParseCandidates(raw string) []Candidate {
	payload := stripFences(raw)

	var fields map[string]candidateValue
	if err := sonic.UnmarshalString(payload, &fields); err != nil {
		slog.Warn("extraction returned malformed JSON, discarding", "error", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(fields))
	for name, cv := range fields {
		if !domain.KnownField(name) {
			continue
		}
		if cv.Confidence <= ConfidenceThreshold {
			continue
		}
		if cv.Value == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Field:      name,
			Value:      cv.Value,
			Confidence: cv.Confidence,
		})
	}
	return candidates
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
