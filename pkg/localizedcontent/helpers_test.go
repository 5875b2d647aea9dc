package localizedcontent_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"github.com/tendant/localized-content/pkg/localizedcontent/repo/memory"
	memorystorage "github.com/tendant/localized-content/pkg/localizedcontent/storage/memory"
)

var errBoom = errors.New("boom")

type fixture struct {
	svc   lc.Service
	repo  *memory.Repository
	files *memorystorage.Backend
}

// newFixture builds a service over in-memory stores. A non-nil wrapper is
// placed in front of the repository's translation store.
func newFixture(t *testing.T, wrapper *flakyTranslations, opts ...lc.Option) *fixture {
	t.Helper()
	repo := memory.New()
	files := memorystorage.New("/uploads")
	var translations lc.TranslationStore = repo
	if wrapper != nil {
		wrapper.TranslationStore = repo
		translations = wrapper
	}

	options := append([]lc.Option{
		lc.WithRepository(repo),
		lc.WithTranslationStore(translations),
		lc.WithFavoriteStore(repo),
		lc.WithFileStore(files),
		lc.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		lc.WithClock(tickingClock()),
	}, opts...)

	svc, err := lc.New(options...)
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, files: files}
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func (f *fixture) createPost(t *testing.T, title string, mutate ...func(*lc.CreatePostRequest)) *lc.Post {
	t.Helper()
	req := lc.CreatePostRequest{
		Translations: lc.Translations{}.Set(lc.LanguageEnglish, lc.KeyTitle, title),
	}
	for _, m := range mutate {
		m(&req)
	}
	post, err := f.svc.CreatePost(context.Background(), req)
	require.NoError(t, err)
	return post
}

func (f *fixture) createCategory(t *testing.T, name string, parent *lc.Category) *lc.Category {
	t.Helper()
	req := lc.CreateCategoryRequest{Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	category, err := f.svc.CreateCategory(context.Background(), req)
	require.NoError(t, err)
	return category
}

func (f *fixture) translationCount(t *testing.T, postID int64) int {
	t.Helper()
	count := 0
	for _, lang := range lc.SupportedLanguages() {
		for _, key := range lc.TranslatableKeys() {
			_, err := f.repo.FindTranslation(context.Background(), lc.TranslationKey{
				Module: lc.ModulePost, ModuleID: postID, Language: lang, Key: key,
			})
			if err == nil {
				count++
			}
		}
	}
	return count
}

func textFile(name, content string) *lc.File {
	return &lc.File{
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Reader:      strings.NewReader(content),
	}
}

// flakyTranslations fails creates for one (language, key) pair and can fail
// every update or lookup.
type flakyTranslations struct {
	lc.TranslationStore
	failLang   lc.Language
	failKey    string
	failUpdate bool
	failLookup bool
}

func (s *flakyTranslations) FindTranslation(ctx context.Context, key lc.TranslationKey) (*lc.TranslationEntry, error) {
	if s.failLookup {
		return nil, errBoom
	}
	return s.TranslationStore.FindTranslation(ctx, key)
}

func (s *flakyTranslations) CreateTranslation(ctx context.Context, entry *lc.TranslationEntry) error {
	if entry.Language == s.failLang && entry.Key == s.failKey {
		return errBoom
	}
	return s.TranslationStore.CreateTranslation(ctx, entry)
}

func (s *flakyTranslations) UpdateTranslation(ctx context.Context, id int64, value string) (*lc.TranslationEntry, error) {
	if s.failUpdate {
		return nil, errBoom
	}
	return s.TranslationStore.UpdateTranslation(ctx, id, value)
}

// stickyPosts fails every base post delete.
type stickyPosts struct {
	lc.Repository
}

func (stickyPosts) DeletePost(context.Context, int64) error {
	return errBoom
}

// countingTranslations counts lookups so tests can assert reads never write.
type countingTranslations struct {
	lc.TranslationStore
	mu     sync.Mutex
	finds  int
	writes int
}

func (s *countingTranslations) FindTranslation(ctx context.Context, key lc.TranslationKey) (*lc.TranslationEntry, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()
	return s.TranslationStore.FindTranslation(ctx, key)
}

func (s *countingTranslations) CreateTranslation(ctx context.Context, entry *lc.TranslationEntry) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.TranslationStore.CreateTranslation(ctx, entry)
}
