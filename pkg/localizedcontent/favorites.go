package localizedcontent

import (
	"cmp"
	"context"
	"errors"
	"slices"
)

// ToggleFavorite adds the post to the user's favorites when absent and
// removes it when present. It reports whether the post is now a favorite.
func (s *service) ToggleFavorite(ctx context.Context, userID, postID int64) (bool, error) {
	if _, err := s.repository.GetPost(ctx, postID); err != nil {
		return false, &PostError{PostID: postID, Op: "toggle_favorite", Err: storeErr("get post", err)}
	}

	added, err := s.favorites.ToggleFavorite(ctx, userID, postID)
	if err != nil {
		return false, &PostError{PostID: postID, Op: "toggle_favorite", Err: storeErr("toggle favorite", err)}
	}

	s.logger.Info("Favorite toggled", "user_id", userID, "post_id", postID, "added", added)
	return added, nil
}

// ListFavorites returns the user's favorite posts, newest post first.
// Favorites whose post no longer exists are skipped.
func (s *service) ListFavorites(ctx context.Context, userID int64, lang Language) ([]*LocalizedPost, error) {
	favorites, err := s.favorites.ListFavorites(ctx, userID)
	if err != nil {
		return nil, storeErr("list favorites", err)
	}

	posts := make([]*Post, 0, len(favorites))
	for _, f := range favorites {
		post, err := s.repository.GetPost(ctx, f.PostID)
		if errors.Is(err, ErrPostNotFound) {
			continue
		}
		if err != nil {
			return nil, storeErr("get post", err)
		}
		posts = append(posts, post)
	}

	slices.SortStableFunc(posts, newestFirst)
	return s.overlay.LocalizeBatch(ctx, posts, lang)
}

// FavoritePostIDs returns the ids of the user's favorite posts.
func (s *service) FavoritePostIDs(ctx context.Context, userID int64) ([]int64, error) {
	favorites, err := s.favorites.ListFavorites(ctx, userID)
	if err != nil {
		return nil, storeErr("list favorites", err)
	}
	ids := make([]int64, len(favorites))
	for i, f := range favorites {
		ids[i] = f.PostID
	}
	return ids, nil
}

func newestFirst(a, b *Post) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}
