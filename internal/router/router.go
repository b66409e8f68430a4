package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialpulse/internal/handlers"
	"socialpulse/internal/middleware"
	"socialpulse/internal/moderation"
	"socialpulse/internal/services"
)

// Deps 路由需要的服务
type Deps struct {
	DB         *gorm.DB
	Pipeline   *services.Pipeline
	Comments   *services.CommentService
	Votes      *services.VoteLedger
	Ranking    *services.RankingService
	Moderation *moderation.Engine
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

// RegisterRoutes 注册全部路由，handler 构造失败时返回错误
func RegisterRoutes(r *gin.Engine, d Deps) error {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	// Handlers
	storyHandler, err := handlers.NewStoryHandler(d.DB, d.Pipeline, d.Comments, d.Ranking, d.Moderation, d.Clock, d.Logger)
	if err != nil {
		return err
	}
	voteHandler := handlers.NewVoteHandler(d.Votes, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.Pipeline, storyHandler, d.Logger)

	r.GET("/healthz", healthz(d.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.GET("/posts", storyHandler.ListPosts)         // 帖子列表 ?sort=top|new
	api.GET("/posts/:id", storyHandler.Detail)        // 帖子详情
	api.GET("/posts/:id/thread", storyHandler.Thread) // 帖子和评论树
	api.GET("/votes/:type/:id", voteHandler.Summary)  // 投票汇总

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", storyHandler.Create)                        // 发帖
		authorized.POST("/posts/:id/comments", storyHandler.CreateComment)    // 发表评论
		authorized.DELETE("/comments/:id", storyHandler.DeleteComment)        // 删除评论
		authorized.POST("/votes", voteHandler.Vote)                           // 投票
		authorized.DELETE("/votes/:type/:id/:dimension", voteHandler.Retract) // 撤回投票
	}

	// 审核路由 (Review Routes)
	reviews := api.Group("/reviews")
	reviews.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		reviews.GET("", adminHandler.ListReviews)                // 审核队列
		reviews.POST("/:id/approve", adminHandler.ApproveReview) // 通过
		reviews.POST("/:id/reject", adminHandler.RejectReview)   // 拒绝
	}
	return nil
}

func healthz(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := conn.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
