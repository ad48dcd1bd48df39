package advisor

import (
	"github.com/fairlend/advisor/internal/domain"
)

// ActionType names a one-shot instruction for an external executor.
type ActionType string

const (
	ActionCollectDocument   ActionType = "collect_document"
	ActionVerifyData        ActionType = "verify_data"
	ActionCalculateLoan     ActionType = "calculate_loan"
	ActionScheduleCall      ActionType = "schedule_call"
	ActionCreateApplication ActionType = "create_application"
)

// Action is advisory and untracked: the core never waits for its
// execution and re-issuing the same action on a later turn is expected.
type Action struct {
	Type    ActionType     `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// PlanActions computes the side-effect actions for the conversation's
// current state. It is recomputed fresh every turn with no dependency on
// what was emitted before.
func PlanActions(conv *domain.Conversation) []Action {
	var actions []Action

	if conv.Stage == domain.StageDocumentCollection {
		for _, doc := range domain.DocumentChecklist {
			if conv.Documents[doc] {
				continue
			}
			actions = append(actions, Action{
				Type:    ActionCollectDocument,
				Payload: map[string]any{"document_type": doc},
			})
		}
	}

	if conv.Has(domain.FieldSSN) && !conv.Has(domain.FieldCreditScore) {
		actions = append(actions, Action{
			Type:    ActionVerifyData,
			Payload: map[string]any{"type": "credit"},
		})
	}

	if conv.Has(domain.FieldIncome) && conv.Has(domain.FieldCreditScore) {
		income, _ := conv.Number(domain.FieldIncome)
		creditScore, _ := conv.Number(domain.FieldCreditScore)
		downPayment, _ := conv.Number(domain.FieldDownPayment)
		actions = append(actions, Action{
			Type: ActionCalculateLoan,
			Payload: map[string]any{
				"income":       income,
				"credit_score": creditScore,
				"down_payment": downPayment,
			},
		})
	}

	if conv.Stage == domain.StageApplication && conv.ApplicationRef == "" {
		actions = append(actions, Action{Type: ActionCreateApplication})
	}

	if conv.Stage == domain.StageUnderwriting || conv.Stage == domain.StageClosing {
		actions = append(actions, Action{
			Type:    ActionScheduleCall,
			Payload: map[string]any{"reason": "loan_officer_review"},
		})
	}

	return actions
}
