// Package validation provides the field validation registry. Validators
// are pure predicates; the registry has no side effects.
package validation

import (
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/fairlend/advisor/internal/domain"
)

// Predicate reports whether a candidate value is acceptable for a field.
type Predicate func(value any) bool

// Registry maps field names to validation predicates. Fields without a
// registered predicate pass validation unconditionally: absence of a rule
// is not a rejection.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Predicate
}

// NewRegistry returns a registry preloaded with the built-in rules for
// income, credit score, SSN, email and phone.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]Predicate)}
	r.Register(domain.FieldIncome, ValidIncome)
	r.Register(domain.FieldCreditScore, ValidCreditScore)
	r.Register(domain.FieldSSN, ValidSSN)
	r.Register(domain.FieldEmail, ValidEmail)
	r.Register(domain.FieldPhone, ValidPhone)
	return r
}

// Register installs or replaces the predicate for a field.
func (r *Registry) Register(field string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[field] = p
}

// Validate evaluates the predicate registered for field, if any.
func (r *Registry) Validate(field string, value any) bool {
	r.mu.RLock()
	p, ok := r.rules[field]
	r.mu.RUnlock()
	if !ok {
		return true
	}
	return p(value)
}

var (
	ssnPattern = regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`)
	nonDigits  = regexp.MustCompile(`\D`)
)

// AsNumber coerces JSON-shaped values to float64. Numeric strings are
// accepted because language models frequently quote numbers.
func AsNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", "")), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ValidIncome accepts finite annual incomes in (0, 10,000,000).
func ValidIncome(value any) bool {
	n, ok := AsNumber(value)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return false
	}
	return n > 0 && n < 10_000_000
}

// ValidCreditScore accepts integer scores in [300, 850].
func ValidCreditScore(value any) bool {
	n, ok := AsNumber(value)
	if !ok || n != math.Trunc(n) {
		return false
	}
	return n >= 300 && n <= 850
}

// ValidSSN accepts DDD-DD-DDDD, dashes optional.
func ValidSSN(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return ssnPattern.MatchString(strings.TrimSpace(s))
}

// ValidEmail accepts standard address grammar.
func ValidEmail(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && strings.Contains(addr.Address, "@")
}

// ValidPhone accepts anything that normalizes to exactly ten digits.
func ValidPhone(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return len(NormalizePhone(s)) == 10
}

// NormalizePhone strips every non-digit and drops a leading US country
// code, leaving the ten-digit subscriber number.
func NormalizePhone(s string) string {
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}
