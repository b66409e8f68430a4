package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"socialpulse/internal/analysis"
	"socialpulse/internal/db/dbtest"
	"socialpulse/internal/models"
	"socialpulse/internal/moderation"
	"socialpulse/internal/sentiment"
	"socialpulse/internal/thread"
	"socialpulse/internal/utils"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls atomic.Int32
	texts []string
	fn    func(ctx context.Context, text string) (*analysis.Result, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) (*analysis.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.fn(ctx, text)
}

func returns(res *analysis.Result, err error) func(context.Context, string) (*analysis.Result, error) {
	return func(context.Context, string) (*analysis.Result, error) { return res, err }
}

func cleanResult() *analysis.Result {
	return &analysis.Result{
		Emotions:   analysis.EmotionScores{"neutral": 0.7, "joy": 0.2},
		Primary:    "neutral",
		Moderation: analysis.ModerationScores{"toxicity": 0.05, "identity_attack": 0.01},
	}
}

type fixtureConfig struct {
	maxDepth int
	policy   thread.DepthPolicy
	mode     FailureMode
}

type fixture struct {
	db       *gorm.DB
	clock    *clockwork.FakeClock
	analyzer *fakeAnalyzer
	comments *CommentService
	ranking  *RankingService
	pipeline *Pipeline
	author   *models.User
	admin    *models.User
}

func newFixture(t *testing.T, cfg fixtureConfig) *fixture {
	t.Helper()
	if cfg.maxDepth == 0 {
		cfg.maxDepth = thread.DefaultMaxDepth
	}
	if cfg.policy == "" {
		cfg.policy = thread.DepthReject
	}
	if cfg.mode == "" {
		cfg.mode = FailOpen
	}

	log := zaptest.NewLogger(t)
	conn := dbtest.New(t)
	clock := clockwork.NewFakeClockAt(t0)
	an := &fakeAnalyzer{fn: returns(cleanResult(), nil)}
	comments := NewCommentService(conn, cfg.maxDepth, cfg.policy, log)
	ranking := NewRankingService(conn, utils.DefaultPopularityConfig, RankingOptions{Clock: clock, Logger: log})
	p := NewPipeline(conn, an,
		moderation.NewEngine(moderation.DefaultThresholds()),
		sentiment.NewEngine(sentiment.DefaultThresholds()),
		comments, ranking,
		WithFailureMode(cfg.mode),
		WithPipelineClock(clock),
		WithPipelineLogger(log),
	)

	return &fixture{
		db:       conn,
		clock:    clock,
		analyzer: an,
		comments: comments,
		ranking:  ranking,
		pipeline: p,
		author:   createUser(t, conn, "alice", models.RoleUser),
		admin:    createUser(t, conn, "root", models.RoleAdmin),
	}
}

func createUser(t *testing.T, conn *gorm.DB, name, role string) *models.User {
	t.Helper()
	u := &models.User{ID: newContentID(), Username: name, Role: role}
	require.NoError(t, conn.Create(u).Error)
	return u
}

func (f *fixture) post(t *testing.T, title string) *models.ContentItem {
	t.Helper()
	item, err := f.pipeline.Submit(context.Background(), Submission{Author: f.author, Title: title, Body: "body of " + title})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return item
}

func (f *fixture) reply(t *testing.T, postID string, parent *models.ContentItem, body string) *models.ContentItem {
	t.Helper()
	in := Submission{Author: f.author, PostID: postID, Body: body}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	item, err := f.pipeline.Submit(context.Background(), in)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return item
}

func (f *fixture) load(t *testing.T, id string) *models.ContentItem {
	t.Helper()
	var item models.ContentItem
	require.NoError(t, f.db.First(&item, "id = ?", id).Error)
	return &item
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
