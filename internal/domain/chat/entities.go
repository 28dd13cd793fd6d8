package chat

import (
	"errors"
	"time"
)

var (
	ErrEmptyMessage = errors.New("message is required")
)

// Table: chat_replies
type Reply struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Lower-case keyword matched by containment against the incoming message
	Keyword string `gorm:"column:keyword;size:64;not null;uniqueIndex:ux_chat_replies_keyword"`
	Answer  string `gorm:"column:answer;type:text;not null"`
	// Lower priority wins when several keywords match
	Priority  int       `gorm:"column:priority;not null;default:0;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Reply) TableName() string { return "chat_replies" }
