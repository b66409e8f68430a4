package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socialpulse/internal/analysis"
	"socialpulse/internal/config"
	"socialpulse/internal/db"
	"socialpulse/internal/logging"
	"socialpulse/internal/middleware"
	"socialpulse/internal/moderation"
	"socialpulse/internal/router"
	"socialpulse/internal/sentiment"
	"socialpulse/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	clock := clockwork.NewRealClock()

	// Initialize Database
	conn, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}

	cache, err := newAnalysisCache(cfg.Analysis, clock, log)
	if err != nil {
		return err
	}
	client := analysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.Policy,
		analysis.WithCache(cache),
		analysis.WithLogger(log),
		analysis.WithBreaker(cfg.Analysis.Breaker),
	)

	// 分析服务不可用时仍然启动，按降级策略处理提交
	healthCtx, cancel := context.WithTimeout(context.Background(), cfg.Analysis.Policy.Timeout)
	if err := client.Health(healthCtx); err != nil {
		log.Warn("analysis backend not healthy at startup", zap.String("url", cfg.Analysis.BaseURL), zap.Error(err))
	}
	cancel()

	mod := moderation.NewEngine(cfg.Moderation)
	sent := sentiment.NewEngine(cfg.Sentiment)
	comments := services.NewCommentService(conn, cfg.Pipeline.MaxDepth, cfg.Pipeline.DepthPolicy, log)

	// 初始化异步排名服务
	ranking := services.NewRankingService(conn, cfg.Ranking.Popularity, services.RankingOptions{
		QueueSize:   cfg.Ranking.QueueSize,
		RefreshSpec: cfg.Ranking.RefreshSpec,
		Clock:       clock,
		Logger:      log,
	})
	if err := ranking.Start(); err != nil {
		return err
	}
	defer ranking.Stop()

	votes := services.NewVoteLedger(conn, clock, log)
	pipeline := services.NewPipeline(conn, client, mod, sent, comments, ranking,
		services.WithFailureMode(cfg.Pipeline.FailureMode),
		services.WithPipelineClock(clock),
		services.WithPipelineLogger(log),
	)

	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("socialpulse_session", store))
	r.Use(middleware.LoadUser(conn, log))

	if err := router.RegisterRoutes(r, router.Deps{
		DB:         conn,
		Pipeline:   pipeline,
		Comments:   comments,
		Votes:      votes,
		Ranking:    ranking,
		Moderation: mod,
		Clock:      clock,
		Logger:     log,
	}); err != nil {
		return err
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("failure_mode", string(pipeline.Mode())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(ctx)
}

// newAnalysisCache 配置了 Redis 时多实例共享缓存，否则用进程内 LRU
func newAnalysisCache(cfg config.AnalysisConfig, clock clockwork.Clock, log *zap.Logger) (analysis.Cache, error) {
	if cfg.RedisURL == "" {
		return analysis.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL, clock)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Info("using redis analysis cache", zap.String("addr", opts.Addr))
	return analysis.NewRedisCache(redis.NewClient(opts), cfg.CacheTTL), nil
}
