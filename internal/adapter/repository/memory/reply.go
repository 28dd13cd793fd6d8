package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	chatDomain "loan-amortization/internal/domain/chat"
	"loan-amortization/internal/domain/uow"
)

// ReplyRepository keeps the chat catalog in process, for deployments without a database.
type ReplyRepository struct {
	mu     sync.RWMutex
	nextID uint64
	byKey  map[string]chatDomain.Reply
}

func NewReplyRepository() *ReplyRepository {
	return &ReplyRepository{byKey: make(map[string]chatDomain.Reply)}
}

func (r *ReplyRepository) List(_ context.Context) ([]chatDomain.Reply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chatDomain.Reply, 0, len(r.byKey))
	for _, v := range r.byKey {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ReplyRepository) Upsert(_ context.Context, reply *chatDomain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if cur, ok := r.byKey[reply.Keyword]; ok {
		cur.Answer = reply.Answer
		cur.Priority = reply.Priority
		cur.UpdatedAt = now
		r.byKey[reply.Keyword] = cur
		*reply = cur
		return nil
	}
	r.nextID++
	reply.ID = r.nextID
	reply.CreatedAt = now
	reply.UpdatedAt = now
	r.byKey[reply.Keyword] = *reply
	return nil
}

// UoW runs the body against the in-memory repositories. There is no rollback.
type UoW struct{ Replies *ReplyRepository }

func NewUoW(replies *ReplyRepository) *UoW { return &UoW{Replies: replies} }

func (u *UoW) WithinTx(_ context.Context, fn func(r uow.Repos) error) error {
	return fn(uow.Repos{Replies: u.Replies})
}
