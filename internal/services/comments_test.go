package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse/internal/models"
	"socialpulse/internal/thread"
)

func ids(items []models.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Body
	}
	return out
}

func TestListThreadOrdering(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	post := f.post(t, "ordering")

	a := f.reply(t, post.ID, nil, "a")
	b := f.reply(t, post.ID, nil, "b")
	f.reply(t, post.ID, a, "a.1")
	f.reply(t, post.ID, b, "b.1")
	a2 := f.reply(t, post.ID, a, "a.2")
	f.reply(t, post.ID, a2, "a.2.1")

	list, err := f.comments.ListThread(context.Background(), post.ID, thread.OrderOldest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "a.2", "a.2.1", "b", "b.1"}, ids(list))

	// 父评论总在后代之前
	seen := map[string]bool{}
	for _, c := range list {
		if c.ParentID != nil {
			assert.True(t, seen[*c.ParentID], "%s listed before its parent", c.Body)
		}
		p := c.TreePath()
		assert.Equal(t, c.Depth, p.Depth())
		assert.Equal(t, c.ID, p.Last())
		seen[c.ID] = true
	}
}

func TestListThreadSiblingsByTimeNotID(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	post := f.post(t, "siblings")

	// 直接写入，id 的字典序和时间顺序相反
	early := models.ContentItem{ID: "zzz", Kind: models.KindComment, PostID: post.ID, Path: "zzz/", AuthorID: f.author.ID, AuthorName: "alice", Body: "early", Status: models.StatusPublished, CreatedAt: t0}
	late := models.ContentItem{ID: "aaa", Kind: models.KindComment, PostID: post.ID, Path: "aaa/", AuthorID: f.author.ID, AuthorName: "alice", Body: "late", Status: models.StatusPublished, CreatedAt: t0.Add(time.Minute)}
	lateChild := models.ContentItem{ID: "bbb", Kind: models.KindComment, PostID: post.ID, ParentID: &late.ID, Path: "aaa/bbb/", Depth: 1, AuthorID: f.author.ID, AuthorName: "alice", Body: "late.1", Status: models.StatusPublished, CreatedAt: t0.Add(2 * time.Minute)}
	require.NoError(t, f.db.Create(&[]models.ContentItem{late, lateChild, early}).Error)

	list, err := f.comments.ListThread(context.Background(), post.ID, thread.OrderOldest)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late", "late.1"}, ids(list))
}

func TestListThreadUnknownPost(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	_, err := f.comments.ListThread(context.Background(), "missing", thread.OrderOldest)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCommentWithRepliesIsSoft(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	post := f.post(t, "soft")
	parent := f.reply(t, post.ID, nil, "parent")
	f.reply(t, post.ID, parent, "child")

	require.NoError(t, f.comments.Delete(context.Background(), parent.ID, f.author))

	stored := f.load(t, parent.ID)
	assert.Equal(t, models.StatusDeleted, stored.Status)
	assert.Equal(t, models.DeletedBody, stored.Body)
	assert.Equal(t, 2, f.load(t, post.ID).CommentCount)

	list, err := f.comments.ListThread(context.Background(), post.ID, thread.OrderOldest)
	require.NoError(t, err)
	assert.Equal(t, []string{models.DeletedBody, "child"}, ids(list), "placeholder keeps the thread shape")
}

func TestDeleteLeafCommentIsHard(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	post := f.post(t, "hard")
	parent := f.reply(t, post.ID, nil, "parent")
	child := f.reply(t, post.ID, parent, "child")

	require.NoError(t, f.comments.Delete(context.Background(), child.ID, f.author))

	var n int64
	f.db.Model(&models.ContentItem{}).Where("id = ?", child.ID).Count(&n)
	assert.Zero(t, n)
	assert.Equal(t, 0, f.load(t, parent.ID).ReplyCount)
	assert.Equal(t, 1, f.load(t, post.ID).CommentCount)
}

func TestDeleteCommentPermissions(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	post := f.post(t, "perm")
	c := f.reply(t, post.ID, nil, "mine")
	other := createUser(t, f.db, "bob", models.RoleUser)

	assert.ErrorIs(t, f.comments.Delete(context.Background(), c.ID, other), ErrForbidden)
	assert.ErrorIs(t, f.comments.Delete(context.Background(), c.ID, nil), ErrForbidden)
	assert.ErrorIs(t, f.comments.Delete(context.Background(), "missing", f.admin), ErrNotFound)
	assert.NoError(t, f.comments.Delete(context.Background(), c.ID, f.admin))
}

func TestCheckPlacement(t *testing.T) {
	f := newFixture(t, fixtureConfig{maxDepth: 1})
	post := f.post(t, "place")
	root := f.reply(t, post.ID, nil, "root")
	child := f.reply(t, post.ID, root, "child")

	assert.NoError(t, f.comments.CheckPlacement(context.Background(), post.ID, nil))
	assert.NoError(t, f.comments.CheckPlacement(context.Background(), post.ID, &root.ID))
	assert.ErrorIs(t, f.comments.CheckPlacement(context.Background(), post.ID, &child.ID), thread.ErrDepthExceeded)
	assert.ErrorIs(t, f.comments.CheckPlacement(context.Background(), "nope", nil), ErrNotFound)

	other := f.post(t, "other")
	assert.ErrorIs(t, f.comments.CheckPlacement(context.Background(), other.ID, &root.ID), ErrNotFound, "parent must belong to the post")
}

func TestListThreadPopularOrder(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	post := f.post(t, "p")
	quiet := f.reply(t, post.ID, nil, "quiet")
	busy := f.reply(t, post.ID, nil, "busy")
	f.reply(t, post.ID, quiet, "quiet reply")
	for i := 0; i < 3; i++ {
		f.reply(t, post.ID, busy, "busy reply")
	}
	f.clock.Advance(time.Hour)
	ctx := context.Background()
	require.NoError(t, f.ranking.UpdateNow(ctx, quiet.ID))
	require.NoError(t, f.ranking.UpdateNow(ctx, busy.ID))

	oldest, err := f.comments.ListThread(ctx, post.ID, thread.OrderOldest)
	require.NoError(t, err)
	assert.Equal(t, []string{"quiet", "quiet reply", "busy", "busy reply", "busy reply", "busy reply"}, ids(oldest))

	popular, err := f.comments.ListThread(ctx, post.ID, thread.OrderPopular)
	require.NoError(t, err)
	assert.Equal(t, []string{"busy", "busy reply", "busy reply", "busy reply", "quiet", "quiet reply"}, ids(popular))
	for i, c := range popular {
		if c.ParentID == nil {
			continue
		}
		parentAt := -1
		for j := 0; j < i; j++ {
			if popular[j].ID == *c.ParentID {
				parentAt = j
			}
		}
		assert.GreaterOrEqual(t, parentAt, 0, "parent listed before %s", c.ID)
	}
}
