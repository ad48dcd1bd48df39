// Package verify models the verification boundary: credit bureau,
// employment, bank and property-valuation services deliver typed fact
// bundles that merge into a conversation as high-confidence candidates,
// bypassing the language extractor but not the validation registry.
package verify

import (
	"fmt"
	"time"

	"github.com/fairlend/advisor/internal/domain"
	"github.com/fairlend/advisor/internal/extract"
)

// Source identifies which external verifier produced a bundle.
type Source string

const (
	SourceCreditBureau      Source = "credit_bureau"
	SourceEmployment        Source = "employment"
	SourceBank              Source = "bank"
	SourcePropertyValuation Source = "property_valuation"
)

// allowedFields restricts what each verifier may assert. A bundle
// claiming fields outside its lane is rejected wholesale.
var allowedFields = map[Source][]string{
	SourceCreditBureau:      {domain.FieldCreditScore},
	SourceEmployment:        {domain.FieldEmploymentStatus, domain.FieldEmployer, domain.FieldIncome},
	SourceBank:              {domain.FieldIncome, domain.FieldDownPayment},
	SourcePropertyValuation: {domain.FieldPropertyType, domain.FieldPropertyAddress},
}

// Fact is one verified field assertion.
type Fact struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Bundle is a set of facts from one verifier.
type Bundle struct {
	Source      Source    `json:"source"`
	Facts       []Fact    `json:"facts"`
	RetrievedAt time.Time `json:"retrieved_at,omitempty"`
}

// Candidates converts the bundle into extraction candidates carrying the
// verified confidence level.
func (b Bundle) Candidates() ([]extract.Candidate, error) {
	allowed, ok := allowedFields[b.Source]
	if !ok {
		return nil, fmt.Errorf("unknown verification source %q", b.Source)
	}
	candidates := make([]extract.Candidate, 0, len(b.Facts))
	for _, f := range b.Facts {
		if !contains(allowed, f.Field) {
			return nil, fmt.Errorf("source %s may not assert field %q", b.Source, f.Field)
		}
		candidates = append(candidates, extract.Candidate{
			Field:      f.Field,
			Value:      f.Value,
			Confidence: extract.VerifiedConfidence,
		})
	}
	return candidates, nil
}

func contains(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
