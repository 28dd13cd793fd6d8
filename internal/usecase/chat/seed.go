package chat

import (
	"context"
	"fmt"

	"loan-amortization/internal/domain/chat"
	"loan-amortization/internal/domain/uow"
)

// DefaultReplies is the built-in catalog, checked in priority order.
func DefaultReplies() []chat.Reply {
	return []chat.Reply{
		{Keyword: "loan", Priority: 1, Answer: "I can help you plan a loan. Send the loan amount, the annual interest rate and the duration in months to /api/calculate to get your monthly payment and full repayment schedule."},
		{Keyword: "what is", Priority: 2, Answer: "Amortization is paying off a loan through equal periodic payments. Each payment covers that month's interest first, and the rest reduces the principal."},
		{Keyword: "interest", Priority: 3, Answer: "Interest is charged monthly on the remaining balance at one twelfth of the annual rate, so the interest part of each payment shrinks as the balance goes down."},
		{Keyword: "help", Priority: 4, Answer: "Ask me about loans, interest or amortization, or use the calculator with a loan amount, an annual rate and a duration in months."},
	}
}

// Seed upserts the default catalog in a single transaction. Running it again
// only refreshes the stored answers.
func Seed(ctx context.Context, u uow.UnitOfWork) error {
	return u.WithinTx(ctx, func(r uow.Repos) error {
		for _, reply := range DefaultReplies() {
			reply := reply
			if err := r.Replies.Upsert(ctx, &reply); err != nil {
				return fmt.Errorf("seed reply %q: %w", reply.Keyword, err)
			}
		}
		return nil
	})
}
