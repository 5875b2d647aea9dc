package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"github.com/tendant/localized-content/pkg/localizedcontent/repo/memory"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newPost(t *testing.T, repo *memory.Repository, title string, offset time.Duration) *lc.Post {
	t.Helper()
	post := &lc.Post{Title: title, CreatedAt: base.Add(offset)}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return post
}

func newCategory(t *testing.T, repo *memory.Repository, name string, parent *lc.Category) *lc.Category {
	t.Helper()
	c := &lc.Category{Name: name, CreatedAt: base}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, repo.CreateCategory(context.Background(), c))
	return c
}

func TestPostCRUD(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	post := newPost(t, repo, "First", 0)
	assert.Equal(t, int64(1), post.ID)

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
	assert.NotNil(t, got.Categories)
	assert.NotNil(t, got.Images)

	got.Title = "Changed"
	got.Video = "v.mp4"
	require.NoError(t, repo.UpdatePost(ctx, got))

	again, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", again.Title)
	assert.Equal(t, "v.mp4", again.Video)

	again.Title = "Local only"
	reread, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", reread.Title, "returned posts are copies")

	require.NoError(t, repo.DeletePost(ctx, post.ID))
	_, err = repo.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, lc.ErrPostNotFound)
	assert.ErrorIs(t, repo.DeletePost(ctx, post.ID), lc.ErrPostNotFound)
	assert.ErrorIs(t, repo.UpdatePost(ctx, &lc.Post{ID: 99}), lc.ErrPostNotFound)
}

func TestListPostsFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	root := newCategory(t, repo, "root", nil)
	leaf := newCategory(t, repo, "leaf", root)

	a := newPost(t, repo, "Alpha", 3*time.Second)
	b := newPost(t, repo, "Beta", time.Second)
	c := newPost(t, repo, "Gamma", 2*time.Second)
	c.IsFeatured = true
	c.Audio = "a.mp3"
	require.NoError(t, repo.UpdatePost(ctx, c))
	require.NoError(t, repo.SetPostCategories(ctx, a.ID, []int64{leaf.ID}))
	require.NoError(t, repo.SetPostCategories(ctx, b.ID, []int64{root.ID}))

	ids := func(filter lc.PostFilter) []int64 {
		posts, _, err := repo.ListPosts(ctx, filter)
		require.NoError(t, err)
		out := make([]int64, len(posts))
		for i, p := range posts {
			out[i] = p.ID
		}
		return out
	}

	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, ids(lc.PostFilter{Order: lc.OrderOldest}))
	assert.Equal(t, []int64{a.ID, c.ID, b.ID}, ids(lc.PostFilter{Order: lc.OrderNewest}))
	assert.Equal(t, []int64{b.ID, a.ID}, ids(lc.PostFilter{CategoryID: &root.ID, Order: lc.OrderOldest}))
	assert.Equal(t, []int64{a.ID}, ids(lc.PostFilter{CategoryID: &leaf.ID}))

	featured := true
	assert.Equal(t, []int64{c.ID}, ids(lc.PostFilter{Featured: &featured}))
	assert.Equal(t, []int64{c.ID}, ids(lc.PostFilter{HasMedia: lc.MediaAudio}))
	assert.Equal(t, []int64{a.ID}, ids(lc.PostFilter{Title: "ALPH"}))

	require.NoError(t, repo.CreateTranslation(ctx, &lc.TranslationEntry{
		Module: lc.ModulePost, ModuleID: b.ID, Language: lc.LanguageArabic, Key: lc.KeyTitle, Value: "بيتا",
	}))
	assert.Equal(t, []int64{b.ID}, ids(lc.PostFilter{Title: "بيتا"}))

	posts, total, err := repo.ListPosts(ctx, lc.PostFilter{Page: 2, Limit: 2, Order: lc.OrderOldest})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, posts, 1)
	assert.Equal(t, a.ID, posts[0].ID)
	assert.Equal(t, "leaf", posts[0].Categories[0].Name)
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	parent := newCategory(t, repo, "parent", nil)
	newCategory(t, repo, "child-a", parent)
	newCategory(t, repo, "child-b", parent)

	missing := int64(50)
	err := repo.CreateCategory(ctx, &lc.Category{Name: "orphan", ParentID: &missing})
	assert.ErrorIs(t, err, lc.ErrCategoryNotFound)

	got, err := repo.GetCategory(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 2)
	assert.Equal(t, "child-a", got.Children[0].Name)

	_, err = repo.GetCategory(ctx, missing)
	assert.ErrorIs(t, err, lc.ErrCategoryNotFound)

	post := newPost(t, repo, "p", 0)
	assert.ErrorIs(t, repo.SetPostCategories(ctx, post.ID, []int64{parent.ID, missing}), lc.ErrCategoryNotFound)
	require.NoError(t, repo.SetPostCategories(ctx, post.ID, []int64{parent.ID, parent.ID}))
	ids, err := repo.GetPostCategoryIDs(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{parent.ID}, ids)

	_, err = repo.GetPostCategoryIDs(ctx, 999)
	assert.ErrorIs(t, err, lc.ErrPostNotFound)
}

func TestTranslations(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	key := lc.TranslationKey{Module: lc.ModulePost, ModuleID: 1, Language: lc.LanguageArabic, Key: lc.KeyTitle}

	_, err := repo.FindTranslation(ctx, key)
	assert.ErrorIs(t, err, lc.ErrTranslationNotFound)

	entry := &lc.TranslationEntry{Module: key.Module, ModuleID: key.ModuleID, Language: key.Language, Key: key.Key, Value: "v1"}
	require.NoError(t, repo.CreateTranslation(ctx, entry))
	assert.NotZero(t, entry.ID)

	dup := *entry
	assert.ErrorIs(t, repo.CreateTranslation(ctx, &dup), lc.ErrTranslationExists)

	updated, err := repo.UpdateTranslation(ctx, entry.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Value)

	found, err := repo.FindTranslation(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v2", found.Value)

	require.NoError(t, repo.DeleteTranslation(ctx, entry.ID))
	_, err = repo.FindTranslation(ctx, key)
	assert.ErrorIs(t, err, lc.ErrTranslationNotFound)
	assert.ErrorIs(t, repo.DeleteTranslation(ctx, entry.ID), lc.ErrTranslationNotFound)
	_, err = repo.UpdateTranslation(ctx, entry.ID, "x")
	assert.ErrorIs(t, err, lc.ErrTranslationNotFound)
}

func TestMediaAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	post := newPost(t, repo, "p", 0)

	for _, url := range []string{"1.png", "2.png"} {
		require.NoError(t, repo.CreateMedia(ctx, &lc.MediaAttachment{Module: lc.ModulePost, ModuleID: post.ID, URL: url, CreatedAt: base}))
	}
	media, err := repo.ListMedia(ctx, lc.ModulePost, post.ID)
	require.NoError(t, err)
	require.Len(t, media, 2)
	assert.Equal(t, "1.png", media[0].URL)

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, 2)

	require.NoError(t, repo.DeleteMedia(ctx, media[0].ID))
	assert.ErrorIs(t, repo.DeleteMedia(ctx, media[0].ID), lc.ErrMediaNotFound)

	require.NoError(t, repo.AddHistory(ctx, &lc.HistoryEntry{UserID: 1, PostID: post.ID, CreatedAt: base}))
	require.NoError(t, repo.AddHistory(ctx, &lc.HistoryEntry{UserID: 1, PostID: post.ID, CreatedAt: base.Add(time.Minute)}))
	entries, total, err := repo.ListHistory(ctx, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 1)
	assert.Equal(t, base.Add(time.Minute), entries[0].CreatedAt)

	require.NoError(t, repo.DeletePost(ctx, post.ID))
	_, total, err = repo.ListHistory(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestToggleFavorite(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	added, err := repo.ToggleFavorite(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, added)
	_, err = repo.ToggleFavorite(ctx, 1, 5)
	require.NoError(t, err)

	favorites, err := repo.ListFavorites(ctx, 1)
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	assert.Equal(t, int64(5), favorites[0].PostID)

	added, err = repo.ToggleFavorite(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, added)

	favorites, err = repo.ListFavorites(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, favorites, 1)
}
