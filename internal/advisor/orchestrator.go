package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairlend/advisor/internal/domain"
	"github.com/fairlend/advisor/internal/extract"
	"github.com/fairlend/advisor/internal/session"
	"github.com/fairlend/advisor/internal/shared"
	"github.com/fairlend/advisor/internal/store"
	"github.com/fairlend/advisor/internal/validation"
)

// ErrSessionNotFound is returned for unknown session ids; the caller
// should start a fresh session.
var ErrSessionNotFound = session.ErrNotFound

// ErrPersistence marks a turn that failed because application records
// could not be created. The turn is fatal but the conversation survives;
// the same action is re-planned on the next turn.
var ErrPersistence = errors.New("persistence failure")

// TurnResult is what one processed message yields.
type TurnResult struct {
	SessionID string       `json:"session_id"`
	Reply     string       `json:"reply"`
	Stage     domain.Stage `json:"stage"`
	Actions   []Action     `json:"actions"`
	NextSteps []string     `json:"next_steps"`
}

// StartResult is returned when a session is opened.
type StartResult struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"greeting"`
}

// Orchestrator is the per-session control loop. It owns no conversation
// state itself; everything mutable lives in the session store and is
// accessed under the per-session lock.
type Orchestrator struct {
	sessions       *session.Store
	registry       *validation.Registry
	extractor      extract.Extractor // nil degrades to "no new data"
	replies        ReplyGenerator    // nil degrades to canned replies
	repo           store.Repository
	persistTimeout time.Duration
}

// NewOrchestrator wires the conversational core. extractor and replies
// may be nil when the language capability is unavailable; every turn then
// runs entirely on fallbacks.
func NewOrchestrator(
	sessions *session.Store,
	registry *validation.Registry,
	extractor extract.Extractor,
	replies ReplyGenerator,
	repo store.Repository,
) *Orchestrator {
	return &Orchestrator{
		sessions:       sessions,
		registry:       registry,
		extractor:      extractor,
		replies:        replies,
		repo:           repo,
		persistTimeout: 10 * time.Second,
	}
}

// StartSession opens a conversation for a channel and returns the fixed
// per-channel greeting.
func (o *Orchestrator) StartSession(ctx context.Context, channel domain.Channel) (*StartResult, error) {
	if !domain.ValidChannel(channel) {
		return nil, fmt.Errorf("unknown channel %q", channel)
	}
	conv, err := o.sessions.Create(channel)
	if err != nil {
		return nil, err
	}

	greeting := Greeting(channel)
	res := &StartResult{SessionID: conv.SessionID, Greeting: greeting}
	err = o.sessions.WithSession(conv.SessionID, func(conv *domain.Conversation) error {
		conv.Append(domain.SpeakerAdvisor, greeting)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ProcessMessage runs the full turn protocol for one user message.
// Extraction and generation failures never surface as errors; only an
// unknown session or a persistence failure does.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	var result *TurnResult
	err := o.sessions.WithSession(sessionID, func(conv *domain.Conversation) error {
		conv.Append(domain.SpeakerUser, text)
		prevStage := conv.Stage

		var candidates []extract.Candidate
		if o.extractor != nil {
			candidates = o.extractor.Extract(ctx, text, conv.Stage, conv.Data)
		}
		o.mergeAndValidate(conv, candidates)
		o.resolveStage(conv)

		missing := MissingFields(conv, conv.Stage)
		reply := o.generateReply(ctx, conv, missing)

		actions := PlanActions(conv)
		for _, act := range actions {
			if act.Type != ActionCreateApplication {
				continue
			}
			if err := o.materializeApplication(ctx, conv); err != nil {
				// A missing application reference is load-bearing for
				// later stages, so this turn fails. The stage reverts and
				// the action is re-planned on the next turn.
				conv.Stage = prevStage
				slog.Error("failed to create application records", "session_id", sessionID, "error", err)
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
		}

		conv.Append(domain.SpeakerAdvisor, reply)
		result = &TurnResult{
			SessionID: sessionID,
			Reply:     reply,
			Stage:     conv.Stage,
			Actions:   actions,
			NextSteps: NextSteps(conv.Stage),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyFacts merges verified fact candidates (credit bureau, employment,
// bank, valuation) into the conversation. They bypass the extractor but
// still pass through validation, and the stage is re-resolved.
func (o *Orchestrator) ApplyFacts(ctx context.Context, sessionID string, candidates []extract.Candidate) (domain.Stage, error) {
	var stage domain.Stage
	err := o.sessions.WithSession(sessionID, func(conv *domain.Conversation) error {
		o.mergeAndValidate(conv, candidates)
		o.resolveStage(conv)
		stage = conv.Stage
		return nil
	})
	return stage, err
}

// RecordDocument marks a checklist document as satisfied and re-resolves
// the stage.
func (o *Orchestrator) RecordDocument(ctx context.Context, sessionID, docType string) (domain.Stage, error) {
	known := false
	for _, d := range domain.DocumentChecklist {
		if d == docType {
			known = true
			break
		}
	}
	if !known {
		return "", fmt.Errorf("unknown document type %q", docType)
	}

	var stage domain.Stage
	err := o.sessions.WithSession(sessionID, func(conv *domain.Conversation) error {
		conv.Documents[docType] = true
		o.resolveStage(conv)
		stage = conv.Stage
		return nil
	})
	return stage, err
}

// EndSession removes the session and writes its audit summary.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	conv, err := o.sessions.Delete(sessionID)
	if err != nil {
		return err
	}
	o.SaveSummary(ctx, conv)
	return nil
}

// SaveSummary writes the session-summary audit row. Best effort: summary
// loss is logged, never fatal. Also used as the TTL eviction callback.
func (o *Orchestrator) SaveSummary(ctx context.Context, conv *domain.Conversation) {
	if o.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.persistTimeout)
	defer cancel()

	sum := &domain.SessionSummary{
		SessionID:      conv.SessionID,
		Channel:        conv.Channel,
		FinalStage:     conv.Stage,
		MessageCount:   len(conv.History),
		ApplicationRef: conv.ApplicationRef,
		StartedAt:      conv.CreatedAt,
		EndedAt:        time.Now(),
	}

	// Retry with backoff on SQLite lock conflicts; the TTL sweeper can
	// race with in-flight turns on the same database file.
	delay := 100 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		err := o.repo.SaveSessionSummary(ctx, sum)
		if err == nil {
			return
		}
		if !shared.IsSQLiteConflictError(err) || attempt == 2 {
			slog.Warn("failed to save session summary", "session_id", conv.SessionID, "error", err)
			return
		}
		time.Sleep(delay)
		delay *= 2
	}
}

// mergeAndValidate merges surviving candidates last-write-wins, then
// revalidates every field currently held and drops any that fail. Running
// validation over the whole map, not just the new fields, is what lets
// the resolver regress a stage when old data turns out to be bad.
func (o *Orchestrator) mergeAndValidate(conv *domain.Conversation, candidates []extract.Candidate) {
	for _, cand := range candidates {
		if cand.Confidence <= extract.ConfidenceThreshold {
			continue
		}
		value := cand.Value
		switch {
		case cand.Field == domain.FieldPhone:
			if s, ok := value.(string); ok {
				value = validation.NormalizePhone(s)
			}
		case domain.NumericField(cand.Field):
			// Models sometimes quote numbers ("85,000"). Validation accepts
			// those, so the merge must store the float64 form or every
			// numeric read downstream would come back zero.
			if n, ok := validation.AsNumber(value); ok {
				value = n
			}
		}
		conv.Data[cand.Field] = value
	}

	for field, value := range conv.Data {
		if !o.registry.Validate(field, value) {
			slog.Debug("dropping invalid field", "session_id", conv.SessionID, "field", field)
			delete(conv.Data, field)
		}
	}
}

// resolveStage recomputes the qualification score and the data-driven
// stage.
func (o *Orchestrator) resolveStage(conv *domain.Conversation) {
	conv.QualificationScore = QualificationScore(conv)
	if next := NextStage(conv); next != conv.Stage {
		slog.Info("stage transition",
			"session_id", conv.SessionID, "from", conv.Stage, "to", next)
		conv.Stage = next
	}
}

func (o *Orchestrator) generateReply(ctx context.Context, conv *domain.Conversation, missing []string) string {
	if o.replies == nil {
		return CannedReply(conv.Stage)
	}
	reply, err := o.replies.Reply(ctx, conv, missing)
	if err != nil {
		slog.Warn("reply generation failed, using canned message",
			"session_id", conv.SessionID, "stage", conv.Stage, "error", err)
		return CannedReply(conv.Stage)
	}
	return reply
}

// materializeApplication synchronously creates the borrower, optional
// property and application records, storing the resulting references on
// the conversation. Idempotent per record: references already set are
// not recreated.
func (o *Orchestrator) materializeApplication(ctx context.Context, conv *domain.Conversation) error {
	if o.repo == nil {
		return errors.New("no repository configured")
	}
	ctx, cancel := context.WithTimeout(ctx, o.persistTimeout)
	defer cancel()

	if conv.BorrowerRef == "" {
		id, err := o.repo.CreateBorrower(ctx, &domain.Borrower{
			FirstName: conv.Text(domain.FieldFirstName),
			LastName:  conv.Text(domain.FieldLastName),
			Email:     conv.Text(domain.FieldEmail),
			Phone:     conv.Text(domain.FieldPhone),
		})
		if err != nil {
			return fmt.Errorf("create borrower: %w", err)
		}
		conv.BorrowerRef = id
	}

	if conv.PropertyRef == "" && conv.Has(domain.FieldPropertyType) {
		id, err := o.repo.CreateProperty(ctx, &domain.Property{
			Type:    conv.Text(domain.FieldPropertyType),
			Address: conv.Text(domain.FieldPropertyAddress),
		})
		if err != nil {
			return fmt.Errorf("create property: %w", err)
		}
		conv.PropertyRef = id
	}

	loanAmount, _ := conv.Number(domain.FieldLoanAmount)
	downPayment, _ := conv.Number(domain.FieldDownPayment)
	id, err := o.repo.CreateApplication(ctx, &domain.Application{
		BorrowerID:  conv.BorrowerRef,
		PropertyID:  conv.PropertyRef,
		LoanPurpose: conv.Text(domain.FieldLoanPurpose),
		LoanAmount:  loanAmount,
		DownPayment: downPayment,
	})
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	conv.ApplicationRef = id
	slog.Info("application created",
		"session_id", conv.SessionID,
		"borrower_ref", conv.BorrowerRef,
		"application_ref", conv.ApplicationRef)
	return nil
}

// Sessions exposes the session store for read-side collaborators
// (analytics, API handlers).
func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}
