package verify

import (
	"testing"

	"github.com/fairlend/advisor/internal/domain"
	"github.com/fairlend/advisor/internal/extract"
)

func TestBundleCandidates(t *testing.T) {
	bundle := Bundle{
		Source: SourceEmployment,
		Facts: []Fact{
			{Field: domain.FieldEmploymentStatus, Value: "employed"},
			{Field: domain.FieldEmployer, Value: "Acme Corp"},
			{Field: domain.FieldIncome, Value: 85000.0},
		},
	}

	candidates, err := bundle.Candidates()
	if err != nil {
		t.Fatalf("Candidates() error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Got %d candidates, want 3", len(candidates))
	}
	for _, c := range candidates {
		if c.Confidence != extract.VerifiedConfidence {
			t.Errorf("Candidate %s confidence = %v, want %v", c.Field, c.Confidence, extract.VerifiedConfidence)
		}
	}
	if candidates[0].Field != domain.FieldEmploymentStatus || candidates[0].Value != "employed" {
		t.Errorf("Unexpected first candidate: %+v", candidates[0])
	}
}

// A verifier may only assert fields in its own lane; a bundle that
// reaches outside is rejected wholesale, not partially applied.
func TestBundleCandidates_OutOfLaneField(t *testing.T) {
	bundle := Bundle{
		Source: SourceCreditBureau,
		Facts: []Fact{
			{Field: domain.FieldCreditScore, Value: 720},
			{Field: domain.FieldIncome, Value: 85000.0},
		},
	}
	if _, err := bundle.Candidates(); err == nil {
		t.Error("Expected error for a credit bureau asserting income")
	}
}

func TestBundleCandidates_UnknownSource(t *testing.T) {
	bundle := Bundle{
		Source: Source("palm_reader"),
		Facts:  []Fact{{Field: domain.FieldCreditScore, Value: 720}},
	}
	if _, err := bundle.Candidates(); err == nil {
		t.Error("Expected error for an unknown verification source")
	}
}

func TestBundleCandidates_EmptyBundle(t *testing.T) {
	candidates, err := Bundle{Source: SourceBank}.Candidates()
	if err != nil {
		t.Fatalf("Candidates() error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Got %d candidates, want 0", len(candidates))
	}
}

func TestSourceLanes(t *testing.T) {
	tests := []struct {
		source Source
		field  string
		ok     bool
	}{
		{SourceCreditBureau, domain.FieldCreditScore, true},
		{SourceBank, domain.FieldDownPayment, true},
		{SourceBank, domain.FieldCreditScore, false},
		{SourcePropertyValuation, domain.FieldPropertyAddress, true},
		{SourcePropertyValuation, domain.FieldLoanAmount, false},
	}
	for _, tt := range tests {
		bundle := Bundle{Source: tt.source, Facts: []Fact{{Field: tt.field, Value: "x"}}}
		_, err := bundle.Candidates()
		if (err == nil) != tt.ok {
			t.Errorf("Source %s asserting %s: error = %v, want ok=%v", tt.source, tt.field, err, tt.ok)
		}
	}
}
