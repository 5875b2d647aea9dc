package localizedcontent

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

const defaultOverlayConcurrency = 8

// Overlay localizes posts from a TranslationStore. It never writes to the
// store and never mutates the posts it is given.
type Overlay struct {
	store       TranslationStore
	concurrency int
}

// NewOverlay returns an Overlay reading from store. concurrency bounds the
// number of posts localized at once by LocalizeBatch; values below 1 use
// the default.
func NewOverlay(store TranslationStore, concurrency int) *Overlay {
	if concurrency < 1 {
		concurrency = defaultOverlayConcurrency
	}
	return &Overlay{store: store, concurrency: concurrency}
}

// lookup returns the translated value and whether one exists. A missing row
// is the defined fallback, not an error.
func (o *Overlay) lookup(ctx context.Context, postID int64, lang Language, key string) (string, bool, error) {
	entry, err := o.store.FindTranslation(ctx, TranslationKey{
		Module:   ModulePost,
		ModuleID: postID,
		Language: lang,
		Key:      key,
	})
	if errors.Is(err, ErrTranslationNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("find translation", err)
	}
	return entry.Value, true, nil
}

// Preferred returns a copy of post with every translatable field replaced by
// its translation in lang, where one exists.
func (o *Overlay) Preferred(ctx context.Context, post *Post, lang Language) (*Post, error) {
	out := post.Clone()
	for _, key := range translatableKeys {
		value, ok, err := o.lookup(ctx, post.ID, lang, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out.SetField(key, value)
		}
	}
	return out, nil
}

// Full returns the "<key>_<tag>" projection of post for every supported
// language. Each slot falls back to the base field of post independently.
func (o *Overlay) Full(ctx context.Context, post *Post) (map[string]string, error) {
	projection := make(map[string]string, len(supportedLanguages)*len(translatableKeys))
	for _, lang := range supportedLanguages {
		for _, key := range translatableKeys {
			value, ok, err := o.lookup(ctx, post.ID, lang, key)
			if err != nil {
				return nil, err
			}
			if !ok {
				value = post.Field(key)
			}
			projection[SuffixedField(key, lang)] = value
		}
	}
	return projection, nil
}

// Localize applies Preferred and then Full. The projection is computed from
// the base post so the preferred values never leak into other languages.
func (o *Overlay) Localize(ctx context.Context, post *Post, lang Language) (*LocalizedPost, error) {
	if !lang.IsValid() {
		lang = DefaultLanguage
	}
	preferred, err := o.Preferred(ctx, post, lang)
	if err != nil {
		return nil, err
	}
	projection, err := o.Full(ctx, post)
	if err != nil {
		return nil, err
	}
	return &LocalizedPost{Post: preferred, Translations: projection}, nil
}

// LocalizeBatch localizes posts concurrently. The result has the same order
// as posts regardless of which lookups finish first.
func (o *Overlay) LocalizeBatch(ctx context.Context, posts []*Post, lang Language) ([]*LocalizedPost, error) {
	out := make([]*LocalizedPost, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, post := range posts {
		g.Go(func() error {
			localized, err := o.Localize(gctx, post, lang)
			if err != nil {
				return err
			}
			out[i] = localized
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
