package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domain "loan-amortization/internal/domain/amortization"
	"loan-amortization/internal/usecase/amortization"
)

type CalculatorHandler struct {
	calc *amortization.Calculator
	log  *zap.Logger
}

func NewCalculatorHandler(calc *amortization.Calculator, log *zap.Logger) *CalculatorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CalculatorHandler{calc: calc, log: log}
}

// Pointers tell a missing field apart from an explicit zero. Range checks
// belong to the calculator.
type calculateReq struct {
	LoanAmount   *float64 `json:"loanAmount"   validate:"required,finite"`
	InterestRate *float64 `json:"interestRate" validate:"required,finite"`
	Duration     *int     `json:"duration"     validate:"required"`
}

// wireField maps LoanRequest field names back to the request body keys.
func wireField(f string) string {
	switch f {
	case "principal":
		return "loanAmount"
	case "annualRatePercent":
		return "interestRate"
	case "termPeriods":
		return "duration"
	}
	return f
}

func (h *CalculatorHandler) Calculate(c echo.Context) error {
	var req calculateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	res, err := h.calc.Compute(domain.LoanRequest{
		Principal:         *req.LoanAmount,
		AnnualRatePercent: *req.InterestRate,
		TermPeriods:       *req.Duration,
	})
	var invalid *domain.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		field := wireField(invalid.Field)
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid " + field + ": " + invalid.Reason,
			Details: []FieldError{{Field: field, Message: invalid.Reason}},
		})
	case err != nil:
		h.log.Error("calculate failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, amortization.ToDTO(res))
}
