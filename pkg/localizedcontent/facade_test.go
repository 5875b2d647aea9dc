package localizedcontent_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

func postIDs(posts []*lc.LocalizedPost) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestListPostsPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	var created []int64
	for i := 0; i < 12; i++ {
		created = append(created, f.createPost(t, fmt.Sprintf("Post %d", i)).ID)
	}

	page, err := f.svc.ListPosts(ctx, lc.ListPostsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, created[:10], postIDs(page.Data), "oldest first")

	page, err = f.svc.ListPosts(ctx, lc.ListPostsRequest{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, created[10:], postIDs(page.Data))

	page, err = f.svc.ListPosts(ctx, lc.ListPostsRequest{Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 12, page.Total)

	page, err = f.svc.ListPosts(ctx, lc.ListPostsRequest{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1000, page.Limit)
	assert.Len(t, page.Data, 12)
}

func TestListPostsCategorySubtree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	root := f.createCategory(t, "Root", nil)
	child := f.createCategory(t, "Child", root)
	grandchild := f.createCategory(t, "Grandchild", child)
	other := f.createCategory(t, "Other", nil)

	inRoot := f.createPost(t, "root", func(r *lc.CreatePostRequest) { r.CategoryIDs = []int64{root.ID} })
	inGrandchild := f.createPost(t, "deep", func(r *lc.CreatePostRequest) { r.CategoryIDs = []int64{grandchild.ID} })
	f.createPost(t, "other", func(r *lc.CreatePostRequest) { r.CategoryIDs = []int64{other.ID} })
	f.createPost(t, "uncategorized")

	page, err := f.svc.ListPosts(ctx, lc.ListPostsRequest{CategoryID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{inRoot.ID, inGrandchild.ID}, postIDs(page.Data))
	assert.Equal(t, 2, page.Total)

	page, err = f.svc.ListPosts(ctx, lc.ListPostsRequest{CategoryID: &child.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{inGrandchild.ID}, postIDs(page.Data))

	byCategory, err := f.svc.PostsByCategory(ctx, root.ID, lc.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, 1000, byCategory.Limit)
	assert.Len(t, byCategory.Data, 2)

	missing := int64(4040)
	_, err = f.svc.ListPosts(ctx, lc.ListPostsRequest{CategoryID: &missing})
	assert.ErrorIs(t, err, lc.ErrCategoryNotFound)
	_, err = f.svc.PostsByCategory(ctx, missing, lc.LanguageEnglish)
	assert.ErrorIs(t, err, lc.ErrCategoryNotFound)
}

func TestListPostsTitleFilterMatchesAnyLanguage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sunrise := f.createPost(t, "Morning Sunrise")
	arabic := f.createPost(t, "Evening", func(r *lc.CreatePostRequest) {
		r.Translations.Set(lc.LanguageArabic, lc.KeyTitle, "شروق الشمس")
	})
	f.createPost(t, "Unrelated")

	page, err := f.svc.ListPosts(ctx, lc.ListPostsRequest{Title: "sunrise"})
	require.NoError(t, err)
	assert.Equal(t, []int64{sunrise.ID}, postIDs(page.Data))

	page, err = f.svc.ListPosts(ctx, lc.ListPostsRequest{Title: "شروق", Language: lc.LanguageArabic})
	require.NoError(t, err)
	require.Equal(t, []int64{arabic.ID}, postIDs(page.Data))
	assert.Equal(t, "شروق الشمس", page.Data[0].Title)
}

func TestListPostsLocalizesEveryItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createPost(t, "One", func(r *lc.CreatePostRequest) {
		r.Translations.Set(lc.LanguageArabic, lc.KeyTitle, "واحد")
	})
	f.createPost(t, "Two")

	page, err := f.svc.ListPosts(ctx, lc.ListPostsRequest{Language: lc.LanguageArabic})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "واحد", page.Data[0].Title)
	assert.Equal(t, "One", page.Data[0].Value("title_en"))
	assert.Equal(t, "Two", page.Data[1].Title, "missing translation falls back to base")
	assert.Equal(t, "Two", page.Data[1].Value("title_ar"))
}

func TestFeaturedPostsNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	var featured []int64
	for i := 0; i < 12; i++ {
		p := f.createPost(t, fmt.Sprintf("Featured %d", i), func(r *lc.CreatePostRequest) { r.IsFeatured = true })
		featured = append(featured, p.ID)
	}
	f.createPost(t, "Plain")

	posts, err := f.svc.FeaturedPosts(ctx, lc.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, posts, 10)
	assert.Equal(t, featured[11], posts[0].ID)
	assert.Equal(t, featured[2], posts[9].ID)
}

func TestScreenWiseGroupsByMedia(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	cat := f.createCategory(t, "Cat", nil)

	video := f.createPost(t, "Video", func(r *lc.CreatePostRequest) {
		r.MediaURLs = map[lc.MediaKind]string{lc.MediaVideo: "v.mp4"}
		r.CategoryIDs = []int64{cat.ID}
	})
	both := f.createPost(t, "Both", func(r *lc.CreatePostRequest) {
		r.MediaURLs = map[lc.MediaKind]string{lc.MediaAudio: "a.mp3", lc.MediaPDF: "d.pdf"}
	})
	f.createPost(t, "Nothing")

	groups, err := f.svc.ScreenWise(ctx, lc.ScreenWiseRequest{})
	require.NoError(t, err)
	assert.Equal(t, []int64{video.ID}, postIDs(groups.Videos))
	assert.Equal(t, []int64{both.ID}, postIDs(groups.Audios))
	assert.Empty(t, groups.Images)
	assert.Equal(t, []int64{both.ID}, postIDs(groups.PDFs))

	groups, err = f.svc.ScreenWise(ctx, lc.ScreenWiseRequest{CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{video.ID}, postIDs(groups.Videos))
	assert.Empty(t, groups.Audios)

	groups, err = f.svc.ScreenWise(ctx, lc.ScreenWiseRequest{Title: "bo"})
	require.NoError(t, err)
	assert.Empty(t, groups.Videos)
	assert.Len(t, groups.PDFs, 1)
}

func TestGetPostNotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.GetPost(context.Background(), 1, lc.LanguageEnglish)
	assert.ErrorIs(t, err, lc.ErrPostNotFound)
}

func TestGetTranslationInvalidLanguageUsesDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	post := f.createPost(t, "Title")

	entry, err := f.svc.GetTranslation(ctx, post.ID, lc.Language(42), lc.KeyTitle)
	require.NoError(t, err)
	assert.Equal(t, lc.LanguageEnglish, entry.Language)
	assert.Equal(t, "Title", entry.Value)
}

func TestPostHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	first := f.createPost(t, "First")
	second := f.createPost(t, "Second", func(r *lc.CreatePostRequest) {
		r.Translations.Set(lc.LanguageArabic, lc.KeyTitle, "الثاني")
	})

	require.NoError(t, f.svc.RecordView(ctx, 1, first.ID))
	require.NoError(t, f.svc.RecordView(ctx, 1, second.ID))
	require.NoError(t, f.svc.RecordView(ctx, 2, first.ID))
	assert.ErrorIs(t, f.svc.RecordView(ctx, 1, 999), lc.ErrPostNotFound)

	page, err := f.svc.PostHistory(ctx, 1, 0, 0, lc.LanguageArabic)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []int64{second.ID, first.ID}, postIDs(page.Data))
	assert.Equal(t, "الثاني", page.Data[0].Title)

	page, err = f.svc.PostHistory(ctx, 1, 2, 1, lc.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, postIDs(page.Data))

	page, err = f.svc.PostHistory(ctx, 3, 1, 10, lc.LanguageEnglish)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Zero(t, page.Total)
}
