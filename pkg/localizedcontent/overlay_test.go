package localizedcontent_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"github.com/tendant/localized-content/pkg/localizedcontent/repo/memory"
)

func seedTranslation(t *testing.T, store lc.TranslationStore, postID int64, lang lc.Language, key, value string) {
	t.Helper()
	require.NoError(t, store.CreateTranslation(context.Background(), &lc.TranslationEntry{
		Module: lc.ModulePost, ModuleID: postID, Language: lang, Key: key, Value: value,
	}))
}

func TestOverlayPreferred(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	overlay := lc.NewOverlay(repo, 0)
	post := &lc.Post{ID: 7, Title: "Hello", Description: "Base description"}

	t.Run("miss keeps base fields", func(t *testing.T) {
		out, err := overlay.Preferred(ctx, post, lc.LanguageArabic)
		require.NoError(t, err)
		assert.Equal(t, "Hello", out.Title)
		assert.Equal(t, "Base description", out.Description)
	})

	seedTranslation(t, repo, 7, lc.LanguageArabic, lc.KeyTitle, "مرحبا")

	t.Run("hit replaces only the translated field", func(t *testing.T) {
		out, err := overlay.Preferred(ctx, post, lc.LanguageArabic)
		require.NoError(t, err)
		assert.Equal(t, "مرحبا", out.Title)
		assert.Equal(t, "Base description", out.Description)
		assert.Equal(t, "Hello", post.Title, "input must not be mutated")
	})

	t.Run("other language is untouched", func(t *testing.T) {
		out, err := overlay.Preferred(ctx, post, lc.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, "Hello", out.Title)
	})
}

func TestOverlayFullFallsBackPerSlot(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	overlay := lc.NewOverlay(repo, 0)
	post := &lc.Post{ID: 3, Title: "Title", Description: "Desc"}

	seedTranslation(t, repo, 3, lc.LanguageArabic, lc.KeyTitle, "عنوان")
	seedTranslation(t, repo, 3, lc.LanguageEnglish, lc.KeyDescription, "English desc")

	full, err := overlay.Full(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"title_en":       "Title",
		"title_ar":       "عنوان",
		"description_en": "English desc",
		"description_ar": "Desc",
	}, full)
}

func TestOverlayIsReadOnlyAndIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seedTranslation(t, repo, 1, lc.LanguageArabic, lc.KeyDescription, "وصف")

	store := &countingTranslations{TranslationStore: repo}
	overlay := lc.NewOverlay(store, 0)
	post := &lc.Post{ID: 1, Title: "T", Description: "D"}

	first, err := overlay.Localize(ctx, post, lc.LanguageArabic)
	require.NoError(t, err)
	second, err := overlay.Localize(ctx, post, lc.LanguageArabic)
	require.NoError(t, err)

	assert.Equal(t, first.Translations, second.Translations)
	assert.Equal(t, first.Post, second.Post)
	assert.Zero(t, store.writes)
	assert.Positive(t, store.finds)
}

func TestOverlayLocalizeKeepsProjectionFromBase(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	overlay := lc.NewOverlay(repo, 0)
	post := &lc.Post{ID: 9, Title: "Base", Description: "Base text"}
	seedTranslation(t, repo, 9, lc.LanguageArabic, lc.KeyTitle, "عربي")

	localized, err := overlay.Localize(ctx, post, lc.LanguageArabic)
	require.NoError(t, err)
	assert.Equal(t, "عربي", localized.Title)
	assert.Equal(t, "Base", localized.Value("title_en"))
	assert.Equal(t, "عربي", localized.Value("title_ar"))

	body, err := json.Marshal(localized)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "عربي", decoded["title"])
	assert.Equal(t, "Base", decoded["title_en"])
	assert.Equal(t, "Base text", decoded["description_ar"])
}

func TestOverlayInvalidLanguageUsesDefault(t *testing.T) {
	repo := memory.New()
	overlay := lc.NewOverlay(repo, 0)
	seedTranslation(t, repo, 2, lc.LanguageEnglish, lc.KeyTitle, "English")

	localized, err := overlay.Localize(context.Background(), &lc.Post{ID: 2, Title: "Base"}, lc.Language(99))
	require.NoError(t, err)
	assert.Equal(t, "English", localized.Title)
}

func TestOverlayLocalizeBatchKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	overlay := lc.NewOverlay(repo, 3)

	var posts []*lc.Post
	for i := int64(1); i <= 25; i++ {
		posts = append(posts, &lc.Post{ID: i, Title: "post"})
		if i%2 == 0 {
			seedTranslation(t, repo, i, lc.LanguageArabic, lc.KeyTitle, "ar")
		}
	}

	out, err := overlay.LocalizeBatch(ctx, posts, lc.LanguageArabic)
	require.NoError(t, err)
	require.Len(t, out, len(posts))
	for i, lp := range out {
		assert.Equal(t, posts[i].ID, lp.ID)
		if lp.ID%2 == 0 {
			assert.Equal(t, "ar", lp.Title)
		} else {
			assert.Equal(t, "post", lp.Title)
		}
	}
}

func TestOverlayStoreFailureIsStoreError(t *testing.T) {
	overlay := lc.NewOverlay(&flakyTranslations{TranslationStore: memory.New(), failLookup: true}, 0)

	_, err := overlay.Localize(context.Background(), &lc.Post{ID: 1}, lc.LanguageEnglish)
	require.Error(t, err)
	var storeErr *lc.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, errBoom)
}
