package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"loan-amortization/internal/domain/chat"
)

const FallbackAnswer = "I'm not sure about that. Try asking about loans, interest, or type 'help'."

type Usecase struct {
	repo chat.Repository
	log  *zap.Logger
}

func NewUsecase(r chat.Repository, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{repo: r, log: log}
}

type ReplyInput struct {
	Message string `json:"message"`
}

type ReplyDTO struct {
	Response string `json:"response"`
}

// Reply answers with the first catalog entry, by priority, whose keyword
// occurs in the message. Matching is case-insensitive.
func (u *Usecase) Reply(ctx context.Context, in ReplyInput) (*ReplyDTO, error) {
	msg := strings.ToLower(strings.TrimSpace(in.Message))
	if msg == "" {
		return nil, chat.ErrEmptyMessage
	}

	replies, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range replies {
		if r.Keyword != "" && strings.Contains(msg, strings.ToLower(r.Keyword)) {
			u.log.Debug("chat keyword matched", zap.String("keyword", r.Keyword))
			return &ReplyDTO{Response: r.Answer}, nil
		}
	}
	return &ReplyDTO{Response: FallbackAnswer}, nil
}
