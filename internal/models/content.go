package models

import (
	"time"

	"socialpulse/internal/moderation"
	"socialpulse/internal/sentiment"
	"socialpulse/internal/thread"
)

type ContentKind string

const (
	KindPost    ContentKind = "post"
	KindComment ContentKind = "comment"
)

func (k ContentKind) Valid() bool { return k == KindPost || k == KindComment }

type ContentStatus string

const (
	StatusPublished ContentStatus = "published"
	// StatusDeleted 有回复的评论删除后保留占位
	StatusDeleted ContentStatus = "deleted"
)

const DeletedBody = "[deleted]"

// ContentItem 帖子和评论共用一张表
// 只有通过审核的内容才会写入，被拦截的内容不落库
type ContentItem struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	Kind       ContentKind   `gorm:"size:16;not null;index" json:"kind"`
	PostID     string        `gorm:"size:36;index:idx_content_thread,priority:1" json:"post_id,omitempty"` // 评论所属帖子
	ParentID   *string       `gorm:"size:36;index" json:"parent_id"`                                        // 根评论为空
	Path       string        `gorm:"type:text;index:idx_content_thread,priority:2" json:"-"`                // 物化路径 "a/b/c/"
	Depth      int           `gorm:"not null;default:0" json:"depth"`
	AuthorID   string        `gorm:"size:36;not null;index" json:"author_id"`
	AuthorName string        `gorm:"size:64;not null" json:"author_name"`
	Title      string        `gorm:"size:200" json:"title,omitempty"`
	Body       string        `gorm:"type:text;not null" json:"body"`
	Status     ContentStatus `gorm:"size:16;not null;index" json:"status"`

	Sentiment      *sentiment.Result `gorm:"type:text;serializer:json" json:"sentiment"`
	SentimentScore float64           `gorm:"not null;default:0" json:"sentiment_score"` // 带符号的情绪强度，用于热度
	Moderation     moderation.Result `gorm:"type:text;serializer:json" json:"moderation"`
	Degraded       bool              `gorm:"not null;default:false" json:"degraded"` // 分析服务不可用时按降级策略发布

	CommentCount    int     `gorm:"not null;default:0" json:"comment_count"` // 帖子：全部评论数
	ReplyCount      int     `gorm:"not null;default:0" json:"reply_count"`   // 直接回复数
	VoteCount       int     `gorm:"not null;default:0" json:"vote_count"`
	PopularityScore float64 `gorm:"not null;default:0;index" json:"popularity_score"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_items" }

// TreePath 解析物化路径，损坏的路径返回 nil
func (c *ContentItem) TreePath() thread.Path {
	p, err := thread.ParsePath(c.Path)
	if err != nil {
		return nil
	}
	return p
}

func (c *ContentItem) Node() thread.Node {
	return thread.Node{ID: c.ID, Path: c.TreePath(), CreatedAt: c.CreatedAt, Score: c.PopularityScore}
}

// ThreadPost 帖子本身的 id，评论返回所属帖子
func (c *ContentItem) ThreadPost() string {
	if c.Kind == KindPost {
		return c.ID
	}
	return c.PostID
}
