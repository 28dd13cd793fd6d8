package mysql

import (
	"context"

	chatDomain "loan-amortization/internal/domain/chat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReplyRepository struct{ db *gorm.DB }

func NewReplyRepository(db *gorm.DB) *ReplyRepository { return &ReplyRepository{db: db} }

func (r *ReplyRepository) List(ctx context.Context) ([]chatDomain.Reply, error) {
	var out []chatDomain.Reply
	res := r.db.WithContext(ctx).Order("priority ASC, id ASC").Find(&out)
	return out, res.Error
}

// Upsert keys on the unique keyword; an existing row gets the new answer and priority.
func (r *ReplyRepository) Upsert(ctx context.Context, reply *chatDomain.Reply) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "priority", "updated_at"}),
	}).Create(reply).Error
}
