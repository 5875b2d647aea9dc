package localizedcontent

import (
	"context"
	"errors"
)

const (
	defaultPage        = 1
	defaultLimit       = 10
	featuredLimit      = 10
	categoryPostsLimit = 1000
	maxPageLimit       = 1000
)

// GetPost returns one localized post.
func (s *service) GetPost(ctx context.Context, id int64, lang Language) (*LocalizedPost, error) {
	post, err := s.repository.GetPost(ctx, id)
	if err != nil {
		return nil, &PostError{PostID: id, Op: "get", Err: storeErr("get post", err)}
	}
	return s.overlay.Localize(ctx, post, lang)
}

// ListPosts returns one page of posts. A category filter includes posts of
// every descendant category; a title filter matches the title in any
// language.
func (s *service) ListPosts(ctx context.Context, req ListPostsRequest) (*PostPage, error) {
	page, limit := normalizePage(req.Page, req.Limit)
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	posts, total, err := s.repository.ListPosts(ctx, PostFilter{
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Page:       page,
		Limit:      limit,
		Order:      OrderOldest,
	})
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return s.page(ctx, posts, total, page, limit, req.Language)
}

// FeaturedPosts returns the newest featured posts.
func (s *service) FeaturedPosts(ctx context.Context, lang Language) ([]*LocalizedPost, error) {
	featured := true
	posts, _, err := s.repository.ListPosts(ctx, PostFilter{
		Featured: &featured,
		Page:     1,
		Limit:    featuredLimit,
		Order:    OrderNewest,
	})
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return s.overlay.LocalizeBatch(ctx, posts, lang)
}

// ScreenWise returns every matching post grouped by the media slot it
// carries. A post with several slots appears in several groups.
func (s *service) ScreenWise(ctx context.Context, req ScreenWiseRequest) (*ScreenWise, error) {
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	groups := make(map[MediaKind][]*LocalizedPost, len(MediaKinds()))
	for _, kind := range MediaKinds() {
		posts, _, err := s.repository.ListPosts(ctx, PostFilter{
			CategoryID: req.CategoryID,
			Title:      req.Title,
			HasMedia:   kind,
			Order:      OrderOldest,
		})
		if err != nil {
			return nil, storeErr("list posts", err)
		}
		localized, err := s.overlay.LocalizeBatch(ctx, posts, req.Language)
		if err != nil {
			return nil, err
		}
		groups[kind] = localized
	}

	return &ScreenWise{
		Videos: groups[MediaVideo],
		Audios: groups[MediaAudio],
		Images: groups[MediaImage],
		PDFs:   groups[MediaPDF],
	}, nil
}

// PostsByCategory returns the posts of a category and its descendants.
func (s *service) PostsByCategory(ctx context.Context, categoryID int64, lang Language) (*PostPage, error) {
	return s.ListPosts(ctx, ListPostsRequest{
		Page:       1,
		Limit:      categoryPostsLimit,
		CategoryID: &categoryID,
		Language:   lang,
	})
}

// GetTranslation returns the stored translation row for one post field.
func (s *service) GetTranslation(ctx context.Context, postID int64, lang Language, key string) (*TranslationEntry, error) {
	if !lang.IsValid() {
		lang = DefaultLanguage
	}
	entry, err := s.translations.FindTranslation(ctx, TranslationKey{
		Module:   ModulePost,
		ModuleID: postID,
		Language: lang,
		Key:      key,
	})
	if err != nil {
		return nil, storeErr("find translation", err)
	}
	return entry, nil
}

// GetCategory returns a category with its direct children.
func (s *service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	category, err := s.repository.GetCategory(ctx, id)
	if err != nil {
		return nil, storeErr("get category", err)
	}
	return category, nil
}

// RecordView appends a history entry for the user.
func (s *service) RecordView(ctx context.Context, userID, postID int64) error {
	if _, err := s.repository.GetPost(ctx, postID); err != nil {
		return &PostError{PostID: postID, Op: "record_view", Err: storeErr("get post", err)}
	}
	entry := &HistoryEntry{UserID: userID, PostID: postID, CreatedAt: s.now()}
	if err := s.repository.AddHistory(ctx, entry); err != nil {
		return storeErr("add history", err)
	}
	return nil
}

// PostHistory returns the posts a user viewed, most recent view first.
// Entries whose post was deleted are skipped but still count towards Total.
func (s *service) PostHistory(ctx context.Context, userID int64, page, limit int, lang Language) (*PostPage, error) {
	page, limit = normalizePage(page, limit)
	entries, total, err := s.repository.ListHistory(ctx, userID, page, limit)
	if err != nil {
		return nil, storeErr("list history", err)
	}

	posts := make([]*Post, 0, len(entries))
	for _, entry := range entries {
		post, err := s.repository.GetPost(ctx, entry.PostID)
		if errors.Is(err, ErrPostNotFound) {
			continue
		}
		if err != nil {
			return nil, storeErr("get post", err)
		}
		posts = append(posts, post)
	}
	return s.page(ctx, posts, total, page, limit, lang)
}

func (s *service) ensureCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := s.repository.GetCategory(ctx, *id); err != nil {
		return storeErr("get category", err)
	}
	return nil
}

func (s *service) page(ctx context.Context, posts []*Post, total, page, limit int, lang Language) (*PostPage, error) {
	data, err := s.overlay.LocalizeBatch(ctx, posts, lang)
	if err != nil {
		return nil, err
	}
	return &PostPage{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
