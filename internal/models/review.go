package models

import (
	"time"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

const ReviewReasonAnalysisUnavailable = "analysis_unavailable"

// ReviewItem 等待人工审核的投稿，审核通过前不可见
type ReviewItem struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	Kind       ContentKind  `gorm:"size:16;not null" json:"kind"`
	PostID     string       `gorm:"size:36" json:"post_id,omitempty"`
	ParentID   *string      `gorm:"size:36" json:"parent_id"`
	AuthorID   string       `gorm:"size:36;not null;index" json:"author_id"`
	AuthorName string       `gorm:"size:64;not null" json:"author_name"`
	Title      string       `gorm:"size:200" json:"title,omitempty"`
	Body       string       `gorm:"type:text;not null" json:"body"`
	Reason     string       `gorm:"size:64;not null" json:"reason"`
	Status     ReviewStatus `gorm:"size:16;not null;index" json:"status"`
	ContentID  *string      `gorm:"size:36" json:"content_id,omitempty"` // 通过后生成的内容
	ResolvedBy *string      `gorm:"size:36" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt  time.Time    `gorm:"index" json:"created_at"`
}
