package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socialpulse/internal/metrics"
	"socialpulse/internal/models"
	"socialpulse/internal/moderation"
	"socialpulse/internal/sentiment"
)

// 除毒性类别外，用户还可以标记的内容问题
var extraFilterTags = []string{"profanity", "spam", "harassment"}

// VoteInput 一次投票请求
type VoteInput struct {
	UserID     string             `json:"-"`
	TargetID   string             `json:"target_id" binding:"required"`
	TargetType models.ContentKind `json:"target_type" binding:"required"`
	Dimension  models.Dimension   `json:"dimension" binding:"required"`
	Tag        string             `json:"tag" binding:"required"`
	IsUpvote   bool               `json:"is_upvote"`
}

// TagVoteCount 某个标签的票数
type TagVoteCount struct {
	Tag            string  `json:"tag"`
	Upvotes        int64   `json:"upvotes"`
	Downvotes      int64   `json:"downvotes"`
	Total          int64   `json:"total_votes"`
	AgreementRatio float64 `json:"agreement_ratio"` // upvotes / total
	DisplayCount   string  `json:"display_count"`
}

func NewTagVoteCount(tag string, up, down int64) TagVoteCount {
	total := up + down
	ratio := 0.0
	if total > 0 {
		ratio = float64(up) / float64(total)
	}
	return TagVoteCount{
		Tag:            tag,
		Upvotes:        up,
		Downvotes:      down,
		Total:          total,
		AgreementRatio: ratio,
		DisplayCount:   FormatCount(total),
	}
}

// VoteSummary 由当前有效票实时聚合，不单独存储
type VoteSummary struct {
	TargetID           string             `json:"target_id"`
	TargetType         models.ContentKind `json:"target_type"`
	EmotionVotes       []TagVoteCount     `json:"emotion_votes"`
	ContentFilterVotes []TagVoteCount     `json:"content_filter_votes"`
	Net                int64              `json:"net"`
	TotalEngagement    int64              `json:"total_engagement"`
}

// FormatCount 缩写显示票数：1000 -> 1k, 1115 -> 1.1k, 1045560 -> 1.04M
// 小数部分截断，不向上取整
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		m := float64(n) / 1_000_000
		switch {
		case m >= 100:
			return strconv.FormatInt(int64(math.Round(m)), 10) + "M"
		case m >= 10:
			return trimDecimal(m, 1) + "M"
		default:
			return trimDecimal(m, 2) + "M"
		}
	case n >= 1_000:
		k := float64(n) / 1_000
		if k >= 100 {
			r := int64(math.Round(k))
			if r >= 1000 {
				return "1M"
			}
			return strconv.FormatInt(r, 10) + "k"
		}
		return trimDecimal(k, 1) + "k"
	}
	return strconv.FormatInt(n, 10)
}

func trimDecimal(v float64, places int) string {
	p := math.Pow(10, float64(places))
	s := strconv.FormatFloat(math.Floor(v*p+1e-9)/p, 'f', places, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ValidTag 检查标签是否属于该维度的词表
func ValidTag(dim models.Dimension, tag string) bool {
	switch dim {
	case models.DimensionEmotion:
		_, ok := sentiment.ParseEmotion(tag)
		return ok
	case models.DimensionContentFilter:
		if _, ok := moderation.ParseCategory(tag); ok {
			return true
		}
		for _, t := range extraFilterTags {
			if t == tag {
				return true
			}
		}
	}
	return false
}

// VoteLedger 每个 (用户, 目标, 维度) 只保留一票，后写覆盖先写
type VoteLedger struct {
	db    *gorm.DB
	clock clockwork.Clock
	log   *zap.Logger
}

func NewVoteLedger(conn *gorm.DB, clock clockwork.Clock, log *zap.Logger) *VoteLedger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VoteLedger{db: conn, clock: clock, log: log}
}

func (in *VoteInput) normalize() error {
	in.Tag = strings.ToLower(strings.TrimSpace(in.Tag))
	if in.UserID == "" {
		return fmt.Errorf("%w: user is required", ErrValidation)
	}
	if in.TargetID == "" {
		return fmt.Errorf("%w: target is required", ErrValidation)
	}
	if !in.TargetType.Valid() {
		return fmt.Errorf("%w: unknown target type %q", ErrValidation, in.TargetType)
	}
	if !in.Dimension.Valid() {
		return fmt.Errorf("%w: unknown dimension %q", ErrValidation, in.Dimension)
	}
	if in.Dimension == models.DimensionEmotion {
		// 别名统一成标准情绪名
		if e, ok := sentiment.ParseEmotion(in.Tag); ok {
			in.Tag = string(e)
		}
	}
	if !ValidTag(in.Dimension, in.Tag) {
		return fmt.Errorf("%w: tag %q not allowed for %s", ErrValidation, in.Tag, in.Dimension)
	}
	return nil
}

// Cast 写入或覆盖一票，并在同一事务内重算目标的 vote_count
func (l *VoteLedger) Cast(ctx context.Context, in VoteInput) (*models.Vote, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	now := l.clock.Now()
	vote := &models.Vote{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		TargetID:   in.TargetID,
		TargetType: in.TargetType,
		Dimension:  in.Dimension,
		Tag:        in.Tag,
		IsUpvote:   in.IsUpvote,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.ContentItem
		err := tx.Select("id").Where("id = ? AND kind = ? AND status = ?", in.TargetID, in.TargetType, models.StatusPublished).
			First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %s: %w", in.TargetType, in.TargetID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "target_id"}, {Name: "target_type"}, {Name: "dimension"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"tag", "is_upvote", "updated_at"}),
		}).Create(vote).Error; err != nil {
			return fmt.Errorf("upsert vote: %w", err)
		}

		var count int64
		if err := tx.Model(&models.Vote{}).
			Where("target_id = ? AND target_type = ?", in.TargetID, in.TargetType).
			Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.ContentItem{}).Where("id = ?", in.TargetID).
			UpdateColumn("vote_count", count).Error
	})
	if err != nil {
		return nil, err
	}

	// 冲突更新时 vote.ID 不是库里的 id，重新读取
	var stored models.Vote
	if err := l.db.WithContext(ctx).Where(
		"user_id = ? AND target_id = ? AND target_type = ? AND dimension = ?",
		in.UserID, in.TargetID, in.TargetType, in.Dimension,
	).First(&stored).Error; err != nil {
		return nil, err
	}

	metrics.VotesCast.WithLabelValues(string(in.Dimension)).Inc()
	l.log.Debug("vote cast",
		zap.String("user_id", in.UserID),
		zap.String("target_id", in.TargetID),
		zap.String("dimension", string(in.Dimension)),
		zap.String("tag", in.Tag),
		zap.Bool("upvote", in.IsUpvote),
	)
	return &stored, nil
}

// Retract 撤回用户在某个维度上的票
func (l *VoteLedger) Retract(ctx context.Context, userID, targetID string, targetType models.ContentKind, dim models.Dimension) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND target_id = ? AND target_type = ? AND dimension = ?",
			userID, targetID, targetType, dim).Delete(&models.Vote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("vote: %w", ErrNotFound)
		}
		var count int64
		if err := tx.Model(&models.Vote{}).
			Where("target_id = ? AND target_type = ?", targetID, targetType).
			Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.ContentItem{}).Where("id = ?", targetID).
			UpdateColumn("vote_count", count).Error
	})
}

type tagRow struct {
	Dimension models.Dimension
	Tag       string
	Upvotes   int64
	Downvotes int64
}

// Summary 按维度和标签聚合当前所有有效票
func (l *VoteLedger) Summary(ctx context.Context, targetID string, targetType models.ContentKind) (*VoteSummary, error) {
	var rows []tagRow
	if err := l.db.WithContext(ctx).Model(&models.Vote{}).
		Select("dimension, tag, "+
			"SUM(CASE WHEN is_upvote THEN 1 ELSE 0 END) AS upvotes, "+
			"SUM(CASE WHEN is_upvote THEN 0 ELSE 1 END) AS downvotes").
		Where("target_id = ? AND target_type = ?", targetID, targetType).
		Group("dimension, tag").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate votes: %w", err)
	}

	sum := &VoteSummary{
		TargetID:           targetID,
		TargetType:         targetType,
		EmotionVotes:       []TagVoteCount{},
		ContentFilterVotes: []TagVoteCount{},
	}
	for _, r := range rows {
		tc := NewTagVoteCount(r.Tag, r.Upvotes, r.Downvotes)
		switch r.Dimension {
		case models.DimensionEmotion:
			sum.EmotionVotes = append(sum.EmotionVotes, tc)
		case models.DimensionContentFilter:
			sum.ContentFilterVotes = append(sum.ContentFilterVotes, tc)
		default:
			continue
		}
		sum.Net += r.Upvotes - r.Downvotes
		sum.TotalEngagement += tc.Total
	}
	sortTagCounts(sum.EmotionVotes)
	sortTagCounts(sum.ContentFilterVotes)
	return sum, nil
}

// 票数多的在前，相同按标签名
func sortTagCounts(list []TagVoteCount) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Total != list[j].Total {
			return list[i].Total > list[j].Total
		}
		return list[i].Tag < list[j].Tag
	})
}

// CastAndSummarize 投票后返回最新的汇总
func (l *VoteLedger) CastAndSummarize(ctx context.Context, in VoteInput) (*VoteSummary, error) {
	if _, err := l.Cast(ctx, in); err != nil {
		return nil, err
	}
	return l.Summary(ctx, in.TargetID, in.TargetType)
}
