package models

import (
	"time"
)

type Dimension string

const (
	DimensionEmotion       Dimension = "emotion"
	DimensionContentFilter Dimension = "content_filter"
)

func (d Dimension) Valid() bool { return d == DimensionEmotion || d == DimensionContentFilter }

// Vote 每个用户对每个目标在每个维度上只保留一票，重复投票覆盖旧票
type Vote struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	UserID     string      `gorm:"size:36;not null;uniqueIndex:idx_vote_key,priority:1" json:"user_id"`
	TargetID   string      `gorm:"size:36;not null;uniqueIndex:idx_vote_key,priority:2;index" json:"target_id"`
	TargetType ContentKind `gorm:"size:16;not null;uniqueIndex:idx_vote_key,priority:3" json:"target_type"`
	Dimension  Dimension   `gorm:"size:32;not null;uniqueIndex:idx_vote_key,priority:4" json:"dimension"`
	Tag        string      `gorm:"size:32;not null" json:"tag"`
	IsUpvote   bool        `gorm:"not null" json:"is_upvote"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"` // 最近一次投票时间
}
