package mysql

import (
	"context"

	chatDomain "loan-amortization/internal/domain/chat"
	"loan-amortization/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(uow.Repos{Replies: &ReplyRepository{db: tx}})
	})
}

// Migrate creates or updates the tables owned by this package.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&chatDomain.Reply{})
}
