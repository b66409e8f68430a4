package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socialpulse/internal/analysis"
	"socialpulse/internal/metrics"
	"socialpulse/internal/models"
	"socialpulse/internal/moderation"
	"socialpulse/internal/sentiment"
	"socialpulse/internal/utils"
)

const (
	MaxCommentLength = 2000
	MaxPostLength    = 20000
	MaxTitleLength   = 200
)

// FailureMode 分析服务不可用时的处理方式，由部署配置决定
type FailureMode string

const (
	FailOpen      FailureMode = "fail_open"
	FailClosed    FailureMode = "fail_closed"
	RequireReview FailureMode = "require_review"
)

func ParseFailureMode(s string) (FailureMode, error) {
	switch FailureMode(s) {
	case FailOpen, FailClosed, RequireReview:
		return FailureMode(s), nil
	}
	return "", fmt.Errorf("unknown failure mode %q", s)
}

// State 一次投稿的处理状态
type State int

const (
	StateReceived State = iota
	StateAnalyzing
	StateBlocked
	StatePublished
)

var stateNames = [...]string{"received", "analyzing", "blocked", "published"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) Terminal() bool { return s == StateBlocked || s == StatePublished }

var ErrInvalidTransition = errors.New("invalid submission state transition")

// submission 跟踪单次投稿，保证最多一次终态转换
type submission struct {
	id    string
	state State
}

func (s *submission) advance(to State) error {
	switch {
	case s.state == StateReceived && to == StateAnalyzing,
		s.state == StateAnalyzing && to.Terminal():
		s.state = to
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}

// Submission 一次发帖或评论请求，PostID 为空表示发帖
type Submission struct {
	Author   *models.User
	PostID   string
	ParentID *string
	Title    string
	Body     string
}

func (s Submission) Kind() models.ContentKind {
	if s.PostID == "" {
		return models.KindPost
	}
	return models.KindComment
}

// SubmissionRejected 审核拦截，Explanation 不含原始分数，可以直接展示给用户
type SubmissionRejected struct {
	Explanation moderation.Explanation
	Tags        []moderation.Category
	Scores      map[moderation.Category]float64
}

func (e *SubmissionRejected) Error() string {
	return "submission blocked: " + e.Explanation.Reason
}

// SubmissionFailed 分析服务不可用导致的失败，不是审核决定
type SubmissionFailed struct {
	Reason string
	Err    error
}

func (e *SubmissionFailed) Error() string {
	if e.Err == nil {
		return "submission failed: " + e.Reason
	}
	return fmt.Sprintf("submission failed: %s: %v", e.Reason, e.Err)
}

func (e *SubmissionFailed) Unwrap() error { return e.Err }

// PendingReview 投稿已进入人工审核队列
type PendingReview struct {
	ReviewID string
}

func (e *PendingReview) Error() string {
	return "submission queued for manual review (" + e.ReviewID + ")"
}

// Pipeline 投稿处理：校验、分析、审核、情绪分类、落库
type Pipeline struct {
	db         *gorm.DB
	analyzer   analysis.Analyzer
	moderation *moderation.Engine
	sentiment  *sentiment.Engine
	comments   *CommentService
	ranking    *RankingService

	mode  FailureMode
	clock clockwork.Clock
	log   *zap.Logger
}

type PipelineOption func(*Pipeline)

func WithFailureMode(m FailureMode) PipelineOption {
	return func(p *Pipeline) { p.mode = m }
}

func WithPipelineClock(c clockwork.Clock) PipelineOption {
	return func(p *Pipeline) { p.clock = c }
}

func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline ranking 可以为 nil，此时不触发热度更新
func NewPipeline(
	conn *gorm.DB,
	analyzer analysis.Analyzer,
	mod *moderation.Engine,
	sent *sentiment.Engine,
	comments *CommentService,
	ranking *RankingService,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		db:         conn,
		analyzer:   analyzer,
		moderation: mod,
		sentiment:  sent,
		comments:   comments,
		ranking:    ranking,
		mode:       FailOpen,
		clock:      clockwork.NewRealClock(),
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) Mode() FailureMode { return p.mode }

func newContentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (p *Pipeline) validate(in *Submission) error {
	if in.Author == nil {
		return fmt.Errorf("%w: login required", ErrForbidden)
	}
	if !in.Author.CanPost() {
		return fmt.Errorf("%w: account is muted", ErrForbidden)
	}

	in.Body = strings.TrimSpace(in.Body)
	in.Title = strings.TrimSpace(in.Title)
	if in.Body == "" {
		return fmt.Errorf("%w: content is empty", ErrValidation)
	}

	limit := MaxPostLength
	if in.Kind() == models.KindComment {
		limit = MaxCommentLength
		in.Title = ""
	} else {
		if in.ParentID != nil {
			return fmt.Errorf("%w: a post cannot have a parent", ErrValidation)
		}
		if in.Title == "" {
			return fmt.Errorf("%w: title is required", ErrValidation)
		}
		if utf8.RuneCountInString(in.Title) > MaxTitleLength {
			return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
		}
	}
	if utf8.RuneCountInString(in.Body) > limit {
		return fmt.Errorf("%w: content exceeds %d characters", ErrValidation, limit)
	}
	return nil
}

// Submit 处理一次投稿
//
// 审核拦截返回 *SubmissionRejected；分析服务不可用时按 FailureMode 处理，
// 可能返回 *SubmissionFailed 或 *PendingReview。评论超过最大深度返回 thread.ErrDepthExceeded。
func (p *Pipeline) Submit(ctx context.Context, in Submission) (*models.ContentItem, error) {
	if err := p.validate(&in); err != nil {
		return nil, err
	}
	if in.Kind() == models.KindComment {
		if err := p.comments.CheckPlacement(ctx, in.PostID, in.ParentID); err != nil {
			return nil, err
		}
	}

	sub := &submission{id: newContentID()}
	log := p.log.With(zap.String("submission", sub.id), zap.String("kind", string(in.Kind())))
	p.advance(sub, StateAnalyzing, log)

	text := utils.PlainText(in.Body)
	res, err := p.analyzer.Analyze(ctx, text)

	// 请求取消后仍要落到终态
	persistCtx := context.WithoutCancel(ctx)

	if err != nil {
		return p.analysisFailed(persistCtx, sub, in, err, log)
	}

	mod := p.moderation.Decide(res.Moderation.Categories())
	if mod.Blocked {
		p.advance(sub, StateBlocked, log)
		metrics.PipelineOutcomes.WithLabelValues("blocked").Inc()
		log.Info("submission blocked", zap.Strings("tags", tagNames(mod.Tags)))
		return nil, &SubmissionRejected{
			Explanation: p.moderation.Explain(mod),
			Tags:        mod.Tags,
			Scores:      mod.Scores,
		}
	}

	// 情绪失败不影响发布，退回文本模式匹配
	var sent sentiment.Result
	if res.SentimentErr != nil {
		log.Warn("sentiment unavailable, using pattern fallback", zap.Error(res.SentimentErr))
		sent = p.sentiment.Fallback(text)
	} else {
		sent = p.sentiment.Classify(res.Emotions, res.Primary)
	}

	item := p.newItem(sub.id, in)
	item.Sentiment = &sent
	item.SentimentScore = sent.Score()
	item.Moderation = mod

	if err := p.publish(persistCtx, item, in.ParentID); err != nil {
		p.advance(sub, StateBlocked, log)
		metrics.PipelineOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}
	p.advance(sub, StatePublished, log)
	metrics.PipelineOutcomes.WithLabelValues("published").Inc()
	log.Info("submission published",
		zap.String("emotion", string(sent.Primary)),
		zap.Strings("tags", tagNames(mod.Tags)),
		zap.Bool("cached", res.Cached),
	)
	return item, nil
}

func (p *Pipeline) analysisFailed(ctx context.Context, sub *submission, in Submission, cause error, log *zap.Logger) (*models.ContentItem, error) {
	log.Warn("analysis unavailable", zap.String("mode", string(p.mode)), zap.Error(cause))

	switch p.mode {
	case FailClosed:
		p.advance(sub, StateBlocked, log)
		metrics.PipelineOutcomes.WithLabelValues("failed").Inc()
		return nil, &SubmissionFailed{Reason: "analysis unavailable", Err: cause}

	case RequireReview:
		review := &models.ReviewItem{
			ID:         sub.id,
			Kind:       in.Kind(),
			PostID:     in.PostID,
			ParentID:   in.ParentID,
			AuthorID:   in.Author.ID,
			AuthorName: in.Author.Username,
			Title:      in.Title,
			Body:       in.Body,
			Reason:     models.ReviewReasonAnalysisUnavailable,
			Status:     models.ReviewPending,
			CreatedAt:  p.clock.Now(),
		}
		if err := p.db.WithContext(ctx).Create(review).Error; err != nil {
			p.advance(sub, StateBlocked, log)
			metrics.PipelineOutcomes.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("queue review: %w", err)
		}
		p.advance(sub, StateBlocked, log)
		metrics.PipelineOutcomes.WithLabelValues("pending_review").Inc()
		return nil, &PendingReview{ReviewID: review.ID}
	}

	// FailOpen：中性情绪，空审核结果
	neutral := p.sentiment.Classify(nil, "")
	item := p.newItem(sub.id, in)
	item.Sentiment = &neutral
	item.SentimentScore = neutral.Score()
	item.Moderation = p.moderation.Unavailable()
	item.Degraded = true

	if err := p.publish(ctx, item, in.ParentID); err != nil {
		p.advance(sub, StateBlocked, log)
		metrics.PipelineOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}
	p.advance(sub, StatePublished, log)
	metrics.PipelineOutcomes.WithLabelValues("degraded").Inc()
	log.Warn("submission published without analysis", zap.String("id", item.ID))
	return item, nil
}

func (p *Pipeline) advance(sub *submission, to State, log *zap.Logger) {
	if err := sub.advance(to); err != nil {
		log.Error("submission state", zap.Error(err))
	}
}

func (p *Pipeline) newItem(id string, in Submission) *models.ContentItem {
	now := p.clock.Now()
	return &models.ContentItem{
		ID:         id,
		Kind:       in.Kind(),
		PostID:     in.PostID,
		AuthorID:   in.Author.ID,
		AuthorName: in.Author.Username,
		Title:      in.Title,
		Body:       in.Body,
		Status:     models.StatusPublished,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (p *Pipeline) publish(ctx context.Context, item *models.ContentItem, parentID *string) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return p.persist(tx, item, parentID)
	})
	if err != nil {
		return err
	}
	p.scheduleRanking(item)
	return nil
}

// persist 在事务内写入内容，评论同时挂到评论树上
func (p *Pipeline) persist(tx *gorm.DB, item *models.ContentItem, parentID *string) error {
	if item.Kind == models.KindComment {
		place, err := p.comments.Attach(tx, item.PostID, parentID, item.ID)
		if err != nil {
			return err
		}
		item.ParentID = place.ParentID
		item.Path = place.Path.String()
		item.Depth = place.Depth
	}
	if err := tx.Create(item).Error; err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

// scheduleRanking 回复会改变帖子和父评论的热度
func (p *Pipeline) scheduleRanking(item *models.ContentItem) {
	if p.ranking == nil {
		return
	}
	p.ranking.ScheduleUpdate(item.ThreadPost())
	if item.ParentID != nil {
		p.ranking.ScheduleUpdate(*item.ParentID)
	}
}

// ListReviews 按创建时间列出审核队列
func (p *Pipeline) ListReviews(ctx context.Context, status models.ReviewStatus, page, pageSize int) ([]models.ReviewItem, error) {
	if page < 1 {
		page = 1
	}
	var items []models.ReviewItem
	err := p.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error
	return items, err
}

func lockPendingReview(tx *gorm.DB, id string) (*models.ReviewItem, error) {
	var review models.ReviewItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if review.Status != models.ReviewPending {
		return nil, fmt.Errorf("%w: review %s already %s", ErrValidation, id, review.Status)
	}
	return &review, nil
}

// ApproveReview 审核通过后按正常路径发布，情绪为中性兜底
func (p *Pipeline) ApproveReview(ctx context.Context, id string, moderator *models.User) (*models.ContentItem, error) {
	if moderator == nil || !moderator.IsAdmin() {
		return nil, ErrForbidden
	}

	var item *models.ContentItem
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review, err := lockPendingReview(tx, id)
		if err != nil {
			return err
		}

		neutral := p.sentiment.Classify(nil, "")
		now := p.clock.Now()
		item = &models.ContentItem{
			ID:             review.ID,
			Kind:           review.Kind,
			PostID:         review.PostID,
			AuthorID:       review.AuthorID,
			AuthorName:     review.AuthorName,
			Title:          review.Title,
			Body:           review.Body,
			Status:         models.StatusPublished,
			Sentiment:      &neutral,
			SentimentScore: neutral.Score(),
			Moderation:     p.moderation.Unavailable(),
			Degraded:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := p.persist(tx, item, review.ParentID); err != nil {
			return err
		}

		return tx.Model(review).Updates(map[string]any{
			"status":      models.ReviewApproved,
			"content_id":  item.ID,
			"resolved_by": moderator.ID,
			"resolved_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	p.scheduleRanking(item)
	metrics.PipelineOutcomes.WithLabelValues("approved").Inc()
	p.log.Info("review approved", zap.String("review", id), zap.String("moderator", moderator.ID))
	return item, nil
}

// RejectReview 审核不通过，内容不会发布
func (p *Pipeline) RejectReview(ctx context.Context, id string, moderator *models.User) error {
	if moderator == nil || !moderator.IsAdmin() {
		return ErrForbidden
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review, err := lockPendingReview(tx, id)
		if err != nil {
			return err
		}
		return tx.Model(review).Updates(map[string]any{
			"status":      models.ReviewRejected,
			"resolved_by": moderator.ID,
			"resolved_at": p.clock.Now(),
		}).Error
	})
	if err != nil {
		return err
	}
	metrics.PipelineOutcomes.WithLabelValues("rejected").Inc()
	p.log.Info("review rejected", zap.String("review", id), zap.String("moderator", moderator.ID))
	return nil
}

func tagNames(tags []moderation.Category) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
