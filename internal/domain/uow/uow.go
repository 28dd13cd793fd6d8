package uow

import (
	"context"

	"loan-amortization/internal/domain/chat"
)

// Repos bundles the repositories bound to one transaction.
type Repos struct {
	Replies chat.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
