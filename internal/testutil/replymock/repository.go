package replymock

import (
	"context"
	"errors"

	domain "loan-amortization/internal/domain/chat"
)

var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("replymock: method not implemented")

// Repo is a function-backed mock that satisfies chat.Repository.
// List without ListFn fails; Upsert without UpsertFn is a no-op.
type Repo struct {
	ListFn   func(ctx context.Context) ([]domain.Reply, error)
	UpsertFn func(ctx context.Context, r *domain.Reply) error
}

// Static returns a Repo whose List always yields replies.
func Static(replies ...domain.Reply) *Repo {
	return &Repo{ListFn: func(context.Context) ([]domain.Reply, error) { return replies, nil }}
}

func (m *Repo) List(ctx context.Context) ([]domain.Reply, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, errUnimplemented
}

func (m *Repo) Upsert(ctx context.Context, r *domain.Reply) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, r)
	}
	return nil
}
