package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socialpulse/internal/models"
	"socialpulse/internal/thread"
)

// CommentService 维护评论树的存储：物化路径、回复数和帖子评论数
type CommentService struct {
	db       *gorm.DB
	maxDepth int
	policy   thread.DepthPolicy
	log      *zap.Logger
}

func NewCommentService(conn *gorm.DB, maxDepth int, policy thread.DepthPolicy, log *zap.Logger) *CommentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{db: conn, maxDepth: maxDepth, policy: policy, log: log}
}

// Placement 新评论在树中的位置
type Placement struct {
	ParentID *string
	Path     thread.Path
	Depth    int
}

// Attach 在事务 tx 内为评论 id 计算位置，并更新父评论和帖子的计数
// 必须和评论本身的写入在同一个事务里
func (s *CommentService) Attach(tx *gorm.DB, postID string, parentID *string, id string) (*Placement, error) {
	var post models.ContentItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND kind = ? AND status = ?", postID, models.KindPost, models.StatusPublished).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock post: %w", err)
	}

	place := &Placement{Path: thread.Path{id}}
	if parentID != nil {
		var parent models.ContentItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND kind = ? AND post_id = ?", *parentID, models.KindComment, postID).
			First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("parent comment %s: %w", *parentID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("lock parent: %w", err)
		}

		node := parent.Node()
		path, depth, err := thread.Attach(&node, id, s.maxDepth)
		if errors.Is(err, thread.ErrDepthExceeded) && s.policy == thread.DepthClamp {
			anc := thread.Clamp(node.Path, s.maxDepth)
			path, depth, err = anc.Append(id), anc.Depth()+1, nil
			s.log.Info("reply re-parented to deepest allowed ancestor",
				zap.String("comment_id", id),
				zap.String("requested_parent", parent.ID),
				zap.String("parent", anc.Last()),
				zap.Int("depth", depth),
			)
		}
		if err != nil {
			return nil, err
		}
		place.Path = path
		place.Depth = depth

		// max depth 为 0 时 clamp 会把回复变成根评论
		if anc := path.Parent(); anc != nil {
			effective := anc.Last()
			place.ParentID = &effective
			if err := tx.Model(&models.ContentItem{}).Where("id = ?", effective).
				UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1)).Error; err != nil {
				return nil, fmt.Errorf("increment reply count: %w", err)
			}
		}
	}

	if err := tx.Model(&models.ContentItem{}).Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error; err != nil {
		return nil, fmt.Errorf("increment comment count: %w", err)
	}
	return place, nil
}

// CheckPlacement 只读检查评论能否挂到指定位置，用于分析前尽早失败
// 写入时 Attach 会在锁内再检查一次
func (s *CommentService) CheckPlacement(ctx context.Context, postID string, parentID *string) error {
	var post models.ContentItem
	err := s.db.WithContext(ctx).Select("id").
		Where("id = ? AND kind = ? AND status = ?", postID, models.KindPost, models.StatusPublished).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil || parentID == nil {
		return err
	}

	var parent models.ContentItem
	err = s.db.WithContext(ctx).
		Where("id = ? AND kind = ? AND post_id = ?", *parentID, models.KindComment, postID).
		First(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("parent comment %s: %w", *parentID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if s.policy == thread.DepthClamp {
		return nil
	}
	node := parent.Node()
	_, _, err = thread.Attach(&node, "", s.maxDepth)
	return err
}

// ListThread 返回帖子下的全部评论，父评论在前
// 兄弟之间按 order 排列：oldest 按时间先后，popular 按热度
func (s *CommentService) ListThread(ctx context.Context, postID string, order thread.Order) ([]models.ContentItem, error) {
	var post models.ContentItem
	err := s.db.WithContext(ctx).Select("id").
		Where("id = ? AND kind = ?", postID, models.KindPost).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var comments []models.ContentItem
	if err := s.db.WithContext(ctx).
		Where("post_id = ? AND kind = ? AND status IN ?", postID, models.KindComment,
			[]models.ContentStatus{models.StatusPublished, models.StatusDeleted}).
		Order("path ASC, created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}

	// 路径字符串的字典序不等于时间序，按节点重新排序
	thread.SortBy(comments, func(c models.ContentItem) thread.Node { return c.Node() }, order)
	return comments, nil
}

// Delete 删除评论。有回复的评论只替换内容保留占位，否则直接删除并回退计数
func (s *CommentService) Delete(ctx context.Context, id string, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.ContentItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND kind = ?", id, models.KindComment).First(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("comment %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if user == nil || (comment.AuthorID != user.ID && !user.IsAdmin()) {
			return ErrForbidden
		}
		if comment.Status == models.StatusDeleted {
			return nil
		}

		if comment.ReplyCount > 0 {
			return tx.Model(&comment).Updates(map[string]any{
				"body":   models.DeletedBody,
				"status": models.StatusDeleted,
			}).Error
		}

		if err := tx.Delete(&comment).Error; err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if err := tx.Where("target_id = ?", comment.ID).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("delete comment votes: %w", err)
		}
		if comment.ParentID != nil {
			if err := tx.Model(&models.ContentItem{}).Where("id = ? AND reply_count > 0", *comment.ParentID).
				UpdateColumn("reply_count", gorm.Expr("reply_count - ?", 1)).Error; err != nil {
				return fmt.Errorf("decrement reply count: %w", err)
			}
		}
		if err := tx.Model(&models.ContentItem{}).Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - ?", 1)).Error; err != nil {
			return fmt.Errorf("decrement comment count: %w", err)
		}
		return nil
	})
}
