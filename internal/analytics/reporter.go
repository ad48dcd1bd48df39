// Package analytics computes read-only session metrics from a
// conversation snapshot. Pure: safe to call repeatedly.
package analytics

import (
	"github.com/fairlend/advisor/internal/domain"
)

// Report summarizes one session.
type Report struct {
	SessionID             string   `json:"session_id"`
	DurationMinutes       float64  `json:"duration_minutes"`
	MessageCount          int      `json:"message_count"`
	DataCompleteness      float64  `json:"data_completeness"`
	ConversionProbability float64  `json:"conversion_probability"`
	RecommendedActions    []string `json:"recommended_actions"`
}

// requiredFields is the fixed set completeness is measured against.
var requiredFields = []string{
	domain.FieldFirstName,
	domain.FieldEmail,
	domain.FieldPhone,
	domain.FieldIncome,
	domain.FieldCreditScore,
	domain.FieldPropertyType,
	domain.FieldLoanPurpose,
	domain.FieldDownPayment,
	domain.FieldLoanAmount,
}

// BuildReport computes the metrics for a conversation snapshot.
func BuildReport(conv *domain.Conversation) Report {
	present := 0
	for _, f := range requiredFields {
		if conv.Has(f) {
			present++
		}
	}
	completeness := float64(present) / float64(len(requiredFields))
	messageCount := len(conv.History)

	probability := 0.5
	if completeness > 0.8 {
		probability += 0.3
	}
	if messageCount > 10 {
		probability += 0.1
	}
	if conv.Stage == domain.StageUnderwriting || conv.Stage == domain.StageClosing {
		probability = 0.9
	}

	return Report{
		SessionID:             conv.SessionID,
		DurationMinutes:       conv.LastActiveAt.Sub(conv.CreatedAt).Minutes(),
		MessageCount:          messageCount,
		DataCompleteness:      completeness,
		ConversionProbability: probability,
		RecommendedActions:    recommend(conv, completeness, messageCount),
	}
}

func recommend(conv *domain.Conversation, completeness float64, messageCount int) []string {
	var actions []string
	if completeness < 0.5 {
		actions = append(actions, "Send a simplified-application follow-up email")
	}
	if messageCount > 20 && (conv.Stage == domain.StageGreeting || conv.Stage == domain.StageQualification) {
		actions = append(actions, "Offer a call with a loan officer")
	}
	if conv.Stage == domain.StageDocumentCollection {
		actions = append(actions, "Send a document upload reminder")
	}
	if conv.Stage == domain.StageClosing {
		actions = append(actions, "Confirm the closing appointment")
	}
	return actions
}
