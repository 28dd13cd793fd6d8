package amortization

import (
	"math"

	domain "loan-amortization/internal/domain/amortization"
)

// Limits caps the accepted input. A zero field disables that cap.
type Limits struct {
	MaxPrincipal         float64
	MaxAnnualRatePercent float64
	MaxTermPeriods       int
}

func DefaultLimits() Limits {
	return Limits{
		MaxPrincipal:         1_000_000_000,
		MaxAnnualRatePercent: 1000,
		MaxTermPeriods:       600, // 50 years
	}
}

// Calculator produces fixed-payment amortization schedules. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct{ limits Limits }

func NewCalculator(l Limits) *Calculator { return &Calculator{limits: l} }

func (c *Calculator) Compute(req domain.LoanRequest) (*domain.Result, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	n := req.TermPeriods
	r := (req.AnnualRatePercent / 100) / domain.PeriodsPerYear
	payment := periodicPayment(req.Principal, r, n)
	if !isFinite(payment) {
		return nil, &domain.InvalidInputError{Field: "principal", Reason: "payment is not representable"}
	}

	schedule := make([]domain.Entry, 0, n)
	balance := req.Principal
	totalInterest := 0.0
	for period := 1; period <= n; period++ {
		interest := balance * r
		principal := payment - interest
		if period == n {
			balance = 0
		} else {
			balance = outstanding(payment, r, n-period)
		}
		// accumulated unrounded; only the reported total is rounded
		totalInterest += interest

		schedule = append(schedule, domain.Entry{
			Period:           period,
			Payment:          roundCurrency(payment),
			InterestPortion:  roundCurrency(interest),
			PrincipalPortion: roundCurrency(principal),
			RemainingBalance: roundBalance(balance),
		})
	}

	return &domain.Result{
		Payment:       roundCurrency(payment),
		TotalInterest: roundCurrency(totalInterest),
		Schedule:      schedule,
	}, nil
}

// periodicPayment is the annuity payment P*r*(1+r)^n / ((1+r)^n - 1), written
// as P*r / (1 - (1+r)^-n) so large terms cannot overflow the power.
func periodicPayment(principal, r float64, n int) float64 {
	if r == 0 {
		return principal / float64(n)
	}
	return principal * r / discountComplement(r, n)
}

// outstanding is the balance left with m payments to go: the present value of
// those payments. Subtracting each principal portion from a running balance
// amplifies float error by (1+r) every period; this does not.
func outstanding(payment, r float64, m int) float64 {
	if r == 0 {
		return payment * float64(m)
	}
	return payment * discountComplement(r, m) / r
}

// discountComplement returns 1 - (1+r)^-m without cancellation for small r*m.
func discountComplement(r float64, m int) float64 {
	return -math.Expm1(-float64(m) * math.Log1p(r))
}

func (c *Calculator) validate(req domain.LoanRequest) error {
	switch {
	case !isFinite(req.Principal):
		return &domain.InvalidInputError{Field: "principal", Reason: "must be a finite number"}
	case req.Principal <= 0:
		return &domain.InvalidInputError{Field: "principal", Reason: "must be greater than 0"}
	case c.limits.MaxPrincipal > 0 && req.Principal > c.limits.MaxPrincipal:
		return &domain.InvalidInputError{Field: "principal", Reason: "exceeds the maximum allowed amount"}
	case !isFinite(req.AnnualRatePercent):
		return &domain.InvalidInputError{Field: "annualRatePercent", Reason: "must be a finite number"}
	case req.AnnualRatePercent < 0:
		return &domain.InvalidInputError{Field: "annualRatePercent", Reason: "must not be negative"}
	case c.limits.MaxAnnualRatePercent > 0 && req.AnnualRatePercent > c.limits.MaxAnnualRatePercent:
		return &domain.InvalidInputError{Field: "annualRatePercent", Reason: "exceeds the maximum allowed rate"}
	case req.TermPeriods <= 0:
		return &domain.InvalidInputError{Field: "termPeriods", Reason: "must be greater than 0"}
	case c.limits.MaxTermPeriods > 0 && req.TermPeriods > c.limits.MaxTermPeriods:
		return &domain.InvalidInputError{Field: "termPeriods", Reason: "exceeds the maximum allowed term"}
	}
	return nil
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
