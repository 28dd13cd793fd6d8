package chat

import "context"

type Repository interface {
	// All replies ordered by ascending priority
	List(ctx context.Context) ([]Reply, error)

	// Insert or update the reply identified by its keyword
	Upsert(ctx context.Context, r *Reply) error
}
