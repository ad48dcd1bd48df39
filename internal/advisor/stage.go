// Package advisor implements the conversational core: stage resolution,
// action planning, reply generation and the per-turn orchestrator.
package advisor

import (
	"github.com/fairlend/advisor/internal/domain"
)

// NextStage computes the stage a conversation belongs in from its data.
// The rules are evaluated top to bottom and the first satisfied one wins;
// that ordering is policy, not accident. Because the result depends only
// on data, a conversation can move backward when previously valid data
// is stripped by validation. That regression is intended self-correction.
func NextStage(conv *domain.Conversation) domain.Stage {
	if !conv.Has(domain.FieldFirstName) || !conv.Has(domain.FieldEmail) || !conv.Has(domain.FieldPhone) {
		return domain.StageGreeting
	}
	if !conv.Has(domain.FieldIncome) || !conv.Has(domain.FieldCreditScore) {
		return domain.StageQualification
	}
	if !conv.Has(domain.FieldPropertyType) || !conv.Has(domain.FieldLoanPurpose) {
		return domain.StageApplication
	}
	if len(conv.Documents) == 0 {
		return domain.StageDocumentCollection
	}
	if conv.QualificationScore > 0.7 {
		return domain.StageUnderwriting
	}
	return domain.StageApplication
}

// stageFields lists the fields a stage is trying to collect, used to
// steer the reply generator toward what is still missing.
var stageFields = map[domain.Stage][]string{
	domain.StageGreeting: {
		domain.FieldFirstName, domain.FieldLastName, domain.FieldEmail, domain.FieldPhone,
	},
	domain.StageQualification: {
		domain.FieldIncome, domain.FieldCreditScore, domain.FieldEmploymentStatus, domain.FieldEmployer,
	},
	domain.StageApplication: {
		domain.FieldPropertyType, domain.FieldPropertyAddress, domain.FieldLoanPurpose,
		domain.FieldLoanAmount, domain.FieldDownPayment, domain.FieldTimeline,
	},
}

// MissingFields returns the fields the given stage still needs from the
// borrower, in the stage's collection order.
func MissingFields(conv *domain.Conversation, stage domain.Stage) []string {
	wanted := stageFields[stage]
	missing := make([]string, 0, len(wanted))
	for _, f := range wanted {
		if !conv.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}
