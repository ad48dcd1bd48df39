package underwriting

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecide_Deterministic(t *testing.T) {
	snap := Snapshot{CreditScore: 710, AnnualIncome: 120000, LoanAmount: 42000, DownPayment: 18000}

	first, err := Decide(snap)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	firstJSON, _ := json.Marshal(first)

	for i := 0; i < 5; i++ {
		again, err := Decide(snap)
		if err != nil {
			t.Fatalf("Decide() error on run %d: %v", i, err)
		}
		againJSON, _ := json.Marshal(again)
		if string(firstJSON) != string(againJSON) {
			t.Fatalf("Decision changed between runs:\n%s\n%s", firstJSON, againJSON)
		}
	}
}

func TestDecide_CreditScoreBoundary(t *testing.T) {
	// 619 denies with a credit score reason.
	denied, err := Decide(Snapshot{CreditScore: 619, AnnualIncome: 120000, LoanAmount: 48000, DownPayment: 21000})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if denied.Approved {
		t.Error("Expected denial at credit score 619")
	}
	found := false
	for _, reason := range denied.Reasons {
		if strings.Contains(reason, "Credit score") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a credit score reason, got %v", denied.Reasons)
	}

	// 620 with dti 0.40 and ltv 0.70 approves.
	approved, err := Decide(Snapshot{
		CreditScore:  620,
		AnnualIncome: 100000,
		LoanAmount:   40000,
		DownPayment:  40000.0 * 0.3 / 0.7,
	})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if !approved.Approved {
		t.Errorf("Expected approval at credit score 620, reasons: %v", approved.Reasons)
	}
}

func TestDecide_DTIDenial(t *testing.T) {
	// loan/income = 0.5 > 0.43
	d, err := Decide(Snapshot{CreditScore: 740, AnnualIncome: 100000, LoanAmount: 50000, DownPayment: 50000})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if d.Approved {
		t.Error("Expected denial for DTI above 0.43")
	}
}

func TestDecide_LTVDenial(t *testing.T) {
	// ltv = 96/100 > 0.95
	d, err := Decide(Snapshot{CreditScore: 740, AnnualIncome: 400000, LoanAmount: 96000, DownPayment: 4000})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if d.Approved {
		t.Error("Expected denial for LTV above 0.95")
	}
}

func TestDecide_Conditions(t *testing.T) {
	// cs 650 (letter), dti 0.40 (income docs), ltv 0.90 (mortgage insurance)
	d, err := Decide(Snapshot{
		CreditScore:  650,
		AnnualIncome: 225000,
		LoanAmount:   90000,
		DownPayment:  10000,
	})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if !d.Approved {
		t.Fatalf("Expected approval with conditions, reasons: %v", d.Reasons)
	}
	if len(d.Conditions) != 3 {
		t.Errorf("Expected 3 conditions, got %v", d.Conditions)
	}
}

func TestDecide_RateAdjustments(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{
			// 6.5 - 0.5 (cs>=760) - 0.25 (ltv<=0.60) = 5.75
			name: "excellent credit low ltv",
			snap: Snapshot{CreditScore: 760, AnnualIncome: 200000, LoanAmount: 55000, DownPayment: 45000},
			want: 5.75,
		},
		{
			// 6.5 - 0.25 (cs>=700), ltv 0.70 neutral
			name: "good credit mid ltv",
			snap: Snapshot{CreditScore: 700, AnnualIncome: 200000, LoanAmount: 70000, DownPayment: 30000},
			want: 6.25,
		},
		{
			// 6.5 + 0.5 (cs<660) + 0.25 (ltv>0.80) = 7.25
			name: "weak credit high ltv",
			snap: Snapshot{CreditScore: 640, AnnualIncome: 300000, LoanAmount: 90000, DownPayment: 10000},
			want: 7.25,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(tt.snap)
			if err != nil {
				t.Fatalf("Decide() error: %v", err)
			}
			if d.Rate != tt.want {
				t.Errorf("Rate = %v, want %v", d.Rate, tt.want)
			}
		})
	}
}

func TestDecide_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"missing credit score", Snapshot{AnnualIncome: 100000, LoanAmount: 40000, DownPayment: 10000}},
		{"missing income", Snapshot{CreditScore: 700, LoanAmount: 40000, DownPayment: 10000}},
		{"missing loan amount", Snapshot{CreditScore: 700, AnnualIncome: 100000, DownPayment: 10000}},
		{"negative down payment", Snapshot{CreditScore: 700, AnnualIncome: 100000, LoanAmount: 40000, DownPayment: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decide(tt.snap); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
