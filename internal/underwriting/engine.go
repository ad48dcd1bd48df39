// Package underwriting implements the deterministic loan decision
// engine. It is a pure function of the application snapshot: no state,
// no history, safe to recompute any number of times.
package underwriting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput signals a snapshot missing required numeric fields.
// The engine refuses rather than produce a silently wrong decision.
var ErrInvalidInput = errors.New("invalid underwriting input")

// Snapshot is the borrower/application data the decision is a function of.
type Snapshot struct {
	CreditScore  int     `json:"credit_score"`
	AnnualIncome float64 `json:"annual_income"`
	LoanAmount   float64 `json:"loan_amount"`
	DownPayment  float64 `json:"down_payment"`
}

// Decision is the underwriting outcome. Identical snapshots always yield
// identical decisions.
type Decision struct {
	Approved   bool     `json:"approved"`
	Rate       float64  `json:"rate"`
	Conditions []string `json:"conditions"`
	Reasons    []string `json:"reasons"`
}

const (
	minCreditScore = 620
	maxDTI         = 0.43
	maxLTV         = 0.95
	baseRate       = 6.5
)

// Decide runs the underwriting rules against a snapshot.
func Decide(s Snapshot) (Decision, error) {
	if err := validate(s); err != nil {
		return Decision{}, err
	}

	dti := (s.LoanAmount / 12) / (s.AnnualIncome / 12)
	ltv := s.LoanAmount / (s.LoanAmount + s.DownPayment)

	d := Decision{
		Approved:   true,
		Conditions: []string{},
		Reasons:    []string{},
	}

	if s.CreditScore < minCreditScore {
		d.Approved = false
		d.Reasons = append(d.Reasons, fmt.Sprintf("Credit score %d is below the %d minimum", s.CreditScore, minCreditScore))
	}
	if dti > maxDTI {
		d.Approved = false
		d.Reasons = append(d.Reasons, fmt.Sprintf("Debt-to-income ratio %.2f exceeds the %.2f maximum", dti, maxDTI))
	}
	if ltv > maxLTV {
		d.Approved = false
		d.Reasons = append(d.Reasons, fmt.Sprintf("Loan-to-value ratio %.2f exceeds the %.2f maximum", ltv, maxLTV))
	}

	if s.CreditScore >= minCreditScore && s.CreditScore < 680 {
		d.Conditions = append(d.Conditions, "Letter of explanation for credit history required")
	}
	if dti > 0.36 && dti <= maxDTI {
		d.Conditions = append(d.Conditions, "Additional income documentation required")
	}
	if ltv > 0.80 && ltv <= maxLTV {
		d.Conditions = append(d.Conditions, "Private mortgage insurance required")
	}

	d.Rate = rate(s.CreditScore, ltv)
	return d, nil
}

// rate applies the additive, order-independent adjustments to the base
// rate and rounds to two decimals.
func rate(creditScore int, ltv float64) float64 {
	r := decimal.NewFromFloat(baseRate)

	switch {
	case creditScore >= 760:
		r = r.Sub(decimal.NewFromFloat(0.5))
	case creditScore >= 700:
		r = r.Sub(decimal.NewFromFloat(0.25))
	case creditScore < 660:
		r = r.Add(decimal.NewFromFloat(0.5))
	}

	switch {
	case ltv <= 0.60:
		r = r.Sub(decimal.NewFromFloat(0.25))
	case ltv > 0.80:
		r = r.Add(decimal.NewFromFloat(0.25))
	}

	return r.Round(2).InexactFloat64()
}

func validate(s Snapshot) error {
	if s.CreditScore <= 0 {
		return fmt.Errorf("%w: credit score missing", ErrInvalidInput)
	}
	if s.AnnualIncome <= 0 {
		return fmt.Errorf("%w: annual income missing", ErrInvalidInput)
	}
	if s.LoanAmount <= 0 {
		return fmt.Errorf("%w: loan amount missing", ErrInvalidInput)
	}
	if s.DownPayment < 0 {
		return fmt.Errorf("%w: down payment negative", ErrInvalidInput)
	}
	return nil
}
