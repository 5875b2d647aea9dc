package localizedcontent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

func TestToggleFavoriteIsSelfInverting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	post := f.createPost(t, "Favorite me")

	added, err := f.svc.ToggleFavorite(ctx, 5, post.ID)
	require.NoError(t, err)
	assert.True(t, added)

	ids, err := f.svc.FavoritePostIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{post.ID}, ids)

	added, err = f.svc.ToggleFavorite(ctx, 5, post.ID)
	require.NoError(t, err)
	assert.False(t, added)

	ids, err = f.svc.FavoritePostIDs(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestToggleFavoriteUnknownPost(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ToggleFavorite(context.Background(), 1, 42)
	assert.ErrorIs(t, err, lc.ErrPostNotFound)

	ids, err := f.svc.FavoritePostIDs(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFavoritesArePerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	post := f.createPost(t, "Shared")

	_, err := f.svc.ToggleFavorite(ctx, 1, post.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleFavorite(ctx, 2, post.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleFavorite(ctx, 1, post.ID)
	require.NoError(t, err)

	one, err := f.svc.FavoritePostIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, one)

	two, err := f.svc.FavoritePostIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{post.ID}, two)
}

func TestListFavoritesNewestPostFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	older := f.createPost(t, "Older", func(r *lc.CreatePostRequest) {
		r.Translations.Set(lc.LanguageArabic, lc.KeyTitle, "أقدم")
	})
	newer := f.createPost(t, "Newer")
	removed := f.createPost(t, "Removed")

	for _, id := range []int64{older.ID, newer.ID, removed.ID} {
		_, err := f.svc.ToggleFavorite(ctx, 9, id)
		require.NoError(t, err)
	}
	_, err := f.svc.RemovePost(ctx, removed.ID)
	require.NoError(t, err)

	posts, err := f.svc.ListFavorites(ctx, 9, lc.LanguageArabic)
	require.NoError(t, err)
	assert.Equal(t, []int64{newer.ID, older.ID}, postIDs(posts))
	assert.Equal(t, "أقدم", posts[1].Title)
	assert.Equal(t, "Older", posts[1].Value("title_en"))
}
