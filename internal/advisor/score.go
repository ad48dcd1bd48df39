package advisor

import (
	"github.com/fairlend/advisor/internal/domain"
)

// QualificationScore derives the 0..1 readiness score from the current
// extracted data. It is recomputed on every mutation and never stored as
// independent truth, so a regressed stage can never coexist with a stale
// score.
func QualificationScore(conv *domain.Conversation) float64 {
	score := 0.0

	for _, f := range []string{
		domain.FieldIncome,
		domain.FieldCreditScore,
		domain.FieldEmploymentStatus,
		domain.FieldDownPayment,
	} {
		if conv.Has(f) {
			score += 0.15
		}
	}

	if cs, ok := conv.Number(domain.FieldCreditScore); ok {
		switch {
		case cs >= 700:
			score += 0.3
		case cs >= 640:
			score += 0.2
		case cs >= 580:
			score += 0.1
		}
	}

	if income, ok := conv.Number(domain.FieldIncome); ok && income >= 30_000 {
		score += 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}
