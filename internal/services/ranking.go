package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialpulse/internal/metrics"
	"socialpulse/internal/models"
	"socialpulse/internal/utils"
)

const (
	rankingBatchSize = 50
	rankingInterval  = 500 * time.Millisecond
	hotWindow        = 7 * 24 * time.Hour
	hotTopN          = 30
)

// RankingOptions 排名服务的可选参数
type RankingOptions struct {
	QueueSize   int    // 默认 1000
	RefreshSpec string // cron 表达式，为空不启动定时刷新
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

// RankingService 异步重算帖子和评论的 popularity_score
type RankingService struct {
	db    *gorm.DB
	cfg   utils.PopularityConfig
	clock clockwork.Clock
	log   *zap.Logger

	queue   chan string // 待更新的内容 ID 队列
	pending map[string]bool
	mu      sync.Mutex

	refreshSpec string
	cron        *cron.Cron
	stop        chan struct{}
	done        chan struct{}
	started     atomic.Bool
	startOnce   sync.Once
	stopOnce    sync.Once
}

func NewRankingService(conn *gorm.DB, cfg utils.PopularityConfig, opts RankingOptions) *RankingService {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &RankingService{
		db:          conn,
		cfg:         cfg,
		clock:       opts.Clock,
		log:         opts.Logger,
		queue:       make(chan string, opts.QueueSize), // 缓冲队列，防止阻塞
		pending:     make(map[string]bool),
		refreshSpec: opts.RefreshSpec,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start 启动后台 worker 和定时刷新
func (s *RankingService) Start() error {
	var err error
	s.startOnce.Do(func() {
		if s.refreshSpec != "" {
			s.cron = cron.New()
			if _, err = s.cron.AddFunc(s.refreshSpec, s.refreshJob); err != nil {
				err = fmt.Errorf("ranking refresh schedule %q: %w", s.refreshSpec, err)
				return
			}
			s.cron.Start()
		}
		s.started.Store(true)
		go s.worker()
	})
	return err
}

func (s *RankingService) refreshJob() {
	if _, err := s.RefreshHot(context.Background()); err != nil {
		s.log.Warn("popularity refresh failed", zap.Error(err))
	}
}

// Stop 停止 worker，队列中剩余的更新会先处理完
func (s *RankingService) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		close(s.stop)
	})
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		s.log.Warn("ranking worker did not stop in time")
	}
}

// ScheduleUpdate 将内容加入更新队列（异步）
// 已在队列中的内容不会重复加入
func (s *RankingService) ScheduleUpdate(id string) {
	s.mu.Lock()
	if s.pending[id] {
		s.mu.Unlock()
		return
	}
	s.pending[id] = true
	s.mu.Unlock()

	select {
	case s.queue <- id:
	default:
		// 队列满了，移除 pending 标记
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.log.Warn("ranking queue full, skipping update", zap.String("id", id))
	}
}

func (s *RankingService) worker() {
	defer close(s.done)

	// 收集一批请求后统一处理
	batch := make([]string, 0, rankingBatchSize)
	ticker := s.clock.NewTicker(rankingInterval)
	defer ticker.Stop()

	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= rankingBatchSize {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.Chan():
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-s.stop:
			for {
				select {
				case id := <-s.queue:
					batch = append(batch, id)
				default:
					s.processBatch(batch)
					return
				}
			}
		}
	}
}

func (s *RankingService) processBatch(ids []string) {
	for _, id := range ids {
		if err := s.UpdateNow(context.Background(), id); err != nil {
			s.log.Warn("popularity update failed", zap.String("id", id), zap.Error(err))
		}

		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
}

// UpdateNow 同步重算单条内容的热度
// 帖子按全部评论数计算互动，评论按直接回复数
func (s *RankingService) UpdateNow(ctx context.Context, id string) error {
	var item models.ContentItem
	err := s.db.WithContext(ctx).
		Select("id", "kind", "created_at", "comment_count", "reply_count", "sentiment_score").
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	engagement := item.CommentCount
	if item.Kind == models.KindComment {
		engagement = item.ReplyCount
	}
	score := utils.PopularityScore(s.cfg, item.CreatedAt, engagement, item.SentimentScore, s.clock.Now())
	if err := s.db.WithContext(ctx).Model(&models.ContentItem{}).Where("id = ?", id).
		UpdateColumn("popularity_score", score).Error; err != nil {
		return fmt.Errorf("save popularity: %w", err)
	}
	metrics.PopularityUpdates.Inc()
	return nil
}

// RefreshHot 重算最近 7 天的帖子和评论，以及热度最高的 30 篇帖子，返回处理数量
func (s *RankingService) RefreshHot(ctx context.Context) (int, error) {
	var recent []models.ContentItem
	if err := s.db.WithContext(ctx).Select("id").
		Where("status = ? AND created_at >= ?", models.StatusPublished, s.clock.Now().Add(-hotWindow)).
		Find(&recent).Error; err != nil {
		return 0, fmt.Errorf("select recent content: %w", err)
	}

	var top []models.ContentItem
	if err := s.db.WithContext(ctx).Select("id").
		Where("kind = ? AND status = ?", models.KindPost, models.StatusPublished).
		Order("popularity_score DESC").Limit(hotTopN).
		Find(&top).Error; err != nil {
		return 0, fmt.Errorf("select top posts: %w", err)
	}

	processed := make(map[string]bool)
	for _, p := range append(recent, top...) {
		if processed[p.ID] {
			continue
		}
		processed[p.ID] = true
		if err := s.UpdateNow(ctx, p.ID); err != nil {
			s.log.Warn("popularity refresh failed", zap.String("id", p.ID), zap.Error(err))
		}
	}

	s.log.Info("popularity refresh done", zap.Int("items", len(processed)))
	return len(processed), nil
}

// Top 按热度分页列出帖子
func (s *RankingService) Top(ctx context.Context, page, pageSize int) ([]models.ContentItem, error) {
	return s.list(ctx, "popularity_score DESC, created_at DESC", page, pageSize)
}

// Latest 按发布时间分页列出帖子
func (s *RankingService) Latest(ctx context.Context, page, pageSize int) ([]models.ContentItem, error) {
	return s.list(ctx, "created_at DESC", page, pageSize)
}

func (s *RankingService) list(ctx context.Context, order string, page, pageSize int) ([]models.ContentItem, error) {
	if page < 1 {
		page = 1
	}
	var posts []models.ContentItem
	err := s.db.WithContext(ctx).
		Where("kind = ? AND status = ?", models.KindPost, models.StatusPublished).
		Order(order).
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	return posts, err
}
