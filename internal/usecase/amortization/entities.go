package amortization

import domain "loan-amortization/internal/domain/amortization"

type ScheduleEntryDTO struct {
	Month            int     `json:"month"`
	MonthlyPayment   float64 `json:"monthlyPayment"`
	InterestPortion  float64 `json:"interestPortion"`
	PrincipalPortion float64 `json:"principalPortion"`
	RemainingBalance float64 `json:"remainingBalance"`
}

type ResultDTO struct {
	MonthlyPayment    float64            `json:"monthlyPayment"`
	TotalInterestPaid float64            `json:"totalInterestPaid"`
	RepaymentSchedule []ScheduleEntryDTO `json:"repaymentSchedule"`
}

func ToDTO(res *domain.Result) ResultDTO {
	out := ResultDTO{
		MonthlyPayment:    res.Payment,
		TotalInterestPaid: res.TotalInterest,
		RepaymentSchedule: make([]ScheduleEntryDTO, 0, len(res.Schedule)),
	}
	for _, e := range res.Schedule {
		out.RepaymentSchedule = append(out.RepaymentSchedule, ScheduleEntryDTO{
			Month:            e.Period,
			MonthlyPayment:   e.Payment,
			InterestPortion:  e.InterestPortion,
			PrincipalPortion: e.PrincipalPortion,
			RemainingBalance: e.RemainingBalance,
		})
	}
	return out
}
