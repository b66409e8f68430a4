package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialpulse/internal/models"
	"socialpulse/internal/moderation"
	"socialpulse/internal/services"
	"socialpulse/internal/thread"
	"socialpulse/internal/utils"
)

type StoryHandler struct {
	db         *gorm.DB
	pipeline   *services.Pipeline
	comments   *services.CommentService
	ranking    *services.RankingService
	moderation *moderation.Engine
	topCache   *utils.TTLCache[[]models.ContentItem]
	log        *zap.Logger
}

func NewStoryHandler(
	conn *gorm.DB,
	pipeline *services.Pipeline,
	comments *services.CommentService,
	ranking *services.RankingService,
	mod *moderation.Engine,
	clock clockwork.Clock,
	log *zap.Logger,
) (*StoryHandler, error) {
	// 热门列表缓存 1 分钟
	cache, err := utils.NewTTLCache[[]models.ContentItem](64, time.Minute, clock)
	if err != nil {
		return nil, fmt.Errorf("story cache: %w", err)
	}
	return &StoryHandler{
		db:         conn,
		pipeline:   pipeline,
		comments:   comments,
		ranking:    ranking,
		moderation: mod,
		topCache:   cache,
		log:        log,
	}, nil
}

type moderationView struct {
	Tags        []moderation.Category  `json:"toxicity_tags"`
	Explanation moderation.Explanation `json:"explanation"`
	ReviewedAt  time.Time              `json:"reviewed_at"`
}

// contentView 对外展示的内容，审核部分不含原始分数
type contentView struct {
	*models.ContentItem
	HTML       template.HTML  `json:"html"`
	Moderation moderationView `json:"moderation"`
}

func (h *StoryHandler) view(item *models.ContentItem) contentView {
	v := contentView{
		ContentItem: item,
		Moderation: moderationView{
			Tags:        item.Moderation.Tags,
			Explanation: h.moderation.Explain(item.Moderation),
			ReviewedAt:  item.Moderation.ReviewedAt,
		},
	}
	if v.Moderation.Tags == nil {
		v.Moderation.Tags = []moderation.Category{}
	}
	if item.Status == models.StatusPublished {
		v.HTML = utils.RenderMarkdown(item.Body)
	}
	return v
}

func (h *StoryHandler) views(items []models.ContentItem) []contentView {
	out := make([]contentView, len(items))
	for i := range items {
		out[i] = h.view(&items[i])
	}
	return out
}

// ListPosts GET /api/posts?sort=top|new&page=
func (h *StoryHandler) ListPosts(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"))
	sort := c.DefaultQuery("sort", "top")

	var (
		posts []models.ContentItem
		err   error
	)
	switch sort {
	case "top":
		cacheKey := fmt.Sprintf("story:top:page:%d", page)
		if cached, ok := h.topCache.Get(cacheKey); ok {
			posts = cached
			break
		}
		posts, err = h.ranking.Top(c.Request.Context(), page, perPage)
		if err == nil {
			h.topCache.Set(cacheKey, posts)
		}
	case "new":
		posts, err = h.ranking.Latest(c.Request.Context(), page, perPage)
	default:
		badRequest(c, fmt.Errorf("unknown sort %q", sort))
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": h.views(posts),
		"sort":  sort,
		"page":  page,
	})
}

func (h *StoryHandler) loadPost(c *gin.Context, id string) (*models.ContentItem, bool) {
	var post models.ContentItem
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND kind = ? AND status = ?", id, models.KindPost, models.StatusPublished).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return nil, false
	}
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return &post, true
}

// Detail GET /api/posts/:id
func (h *StoryHandler) Detail(c *gin.Context) {
	post, ok := h.loadPost(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": h.view(post)})
}

// Thread GET /api/posts/:id/thread?sort=oldest|popular
func (h *StoryHandler) Thread(c *gin.Context) {
	order, err := thread.ParseOrder(c.Query("sort"))
	if err != nil {
		badRequest(c, err)
		return
	}
	post, ok := h.loadPost(c, c.Param("id"))
	if !ok {
		return
	}
	comments, err := h.comments.ListThread(c.Request.Context(), post.ID, order)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"post":     h.view(post),
		"comments": h.views(comments),
		"sort":     order,
	})
}

type createPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Create POST /api/posts
func (h *StoryHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.pipeline.Submit(c.Request.Context(), services.Submission{
		Author: currentUser(c),
		Title:  req.Title,
		Body:   req.Body,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": h.view(item)})
}

type createCommentRequest struct {
	Body     string  `json:"body"`
	ParentID *string `json:"parent_id"`
}

// CreateComment POST /api/posts/:id/comments
func (h *StoryHandler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	item, err := h.pipeline.Submit(c.Request.Context(), services.Submission{
		Author:   currentUser(c),
		PostID:   c.Param("id"),
		ParentID: req.ParentID,
		Body:     req.Body,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": h.view(item)})
}

// DeleteComment DELETE /api/comments/:id
func (h *StoryHandler) DeleteComment(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
