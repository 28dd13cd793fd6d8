package amortization

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel every InvalidInputError matches via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports which field of a LoanRequest was rejected.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// LoanRequest is a fixed-rate, fixed-term, fully amortizing loan.
// TermPeriods counts monthly periods.
type LoanRequest struct {
	Principal         float64
	AnnualRatePercent float64
	TermPeriods       int
}

type Entry struct {
	Period           int
	Payment          float64
	InterestPortion  float64
	PrincipalPortion float64
	RemainingBalance float64
}

type Result struct {
	Payment       float64
	TotalInterest float64
	Schedule      []Entry
}

// PeriodsPerYear converts annual rates into per-period rates.
const PeriodsPerYear = 12
