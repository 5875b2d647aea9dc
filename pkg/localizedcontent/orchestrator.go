package localizedcontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Write operations

// CreatePost persists the base post, then its translations, category links
// and gallery. Failing to persist the base post aborts with nothing written.
// A failure in a later step returns the re-fetched post together with a
// *PartialWriteError; completed steps are kept unless the service was built
// with WithCompensateOnFailure.
func (s *service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	title := req.Translations.Get(DefaultLanguage, KeyTitle)
	if title == nil || strings.TrimSpace(*title) == "" {
		return nil, &ValidationError{Field: KeyTitle, Reason: "is required"}
	}
	if !req.Files.empty() && s.files == nil {
		return nil, ErrNoFileStore
	}

	post := &Post{
		Title:      *title,
		URL:        req.URL,
		Date:       req.Date,
		Time:       req.Time,
		IsFeatured: req.IsFeatured,
		CreatedAt:  s.now(),
	}
	if description := req.Translations.Get(DefaultLanguage, KeyDescription); description != nil {
		post.Description = *description
	}
	for kind, url := range req.MediaURLs {
		if kind.IsValid() && req.Files.Slots[kind] == nil {
			post.SetMediaURL(kind, url)
		}
	}

	work := newUnitOfWork("create", s.logger)

	// Slot files go first so the base row carries their references.
	if _, err := s.storeSlotFiles(ctx, work, post, req.Files.Slots); err != nil {
		s.abort(ctx, work)
		return nil, &PostError{Op: "create", Err: err}
	}

	if err := s.repository.CreatePost(ctx, post); err != nil {
		s.abort(ctx, work)
		return nil, &PostError{Op: "create", Err: storeErr("create post", err)}
	}
	postID := post.ID
	work.postID = postID
	work.record("post", func(ctx context.Context) error {
		return s.repository.DeletePost(ctx, postID)
	})

	if perr := s.writeTranslations(ctx, work, postID, req.Translations, false); perr != nil {
		return s.partial(ctx, perr)
	}

	if len(req.CategoryIDs) > 0 {
		if perr := s.replaceCategories(ctx, work, postID, req.CategoryIDs); perr != nil {
			return s.partial(ctx, perr)
		}
	}

	if perr := s.attachGallery(ctx, work, postID, req.Files.Gallery); perr != nil {
		return s.partial(ctx, perr)
	}

	created, err := s.repository.GetPost(ctx, postID)
	if err != nil {
		return nil, &PostError{PostID: postID, Op: "create", Err: storeErr("get post", err)}
	}

	s.logger.Info("Post created", "post_id", postID)
	return created, nil
}

// UpdatePost applies a patch. Translations are upserted, category ids
// replace the previous set when supplied, slot files replace the previous
// reference and gallery files are added.
func (s *service) UpdatePost(ctx context.Context, req UpdatePostRequest) (*UpdatePostResult, error) {
	current, err := s.repository.GetPost(ctx, req.ID)
	if err != nil {
		return nil, &PostError{PostID: req.ID, Op: "update", Err: storeErr("get post", err)}
	}
	if title := req.Translations.Get(DefaultLanguage, KeyTitle); title != nil && strings.TrimSpace(*title) == "" {
		return nil, &ValidationError{Field: KeyTitle, Reason: "must not be empty"}
	}
	if !req.Files.empty() && s.files == nil {
		return nil, ErrNoFileStore
	}

	previous := current.Clone()
	updated := current.Clone()
	var orphaned []string

	if req.URL != nil {
		updated.URL = *req.URL
	}
	if req.Date != nil {
		updated.Date = *req.Date
	}
	if req.Time != nil {
		updated.Time = *req.Time
	}
	if req.IsFeatured != nil {
		updated.IsFeatured = *req.IsFeatured
	}
	for _, key := range translatableKeys {
		if value := req.Translations.Get(DefaultLanguage, key); value != nil {
			updated.SetField(key, *value)
		}
	}
	for kind, url := range req.MediaURLs {
		if !kind.IsValid() || req.Files.Slots[kind] != nil {
			continue
		}
		if old := updated.MediaURL(kind); old != "" && old != url {
			orphaned = append(orphaned, old)
		}
		updated.SetMediaURL(kind, url)
	}

	work := newUnitOfWork("update", s.logger)
	work.postID = req.ID

	replaced, err := s.storeSlotFiles(ctx, work, updated, req.Files.Slots)
	if err != nil {
		s.abort(ctx, work)
		return nil, &PostError{PostID: req.ID, Op: "update", Err: err}
	}
	orphaned = append(orphaned, replaced...)

	if err := s.repository.UpdatePost(ctx, updated); err != nil {
		s.abort(ctx, work)
		return nil, &PostError{PostID: req.ID, Op: "update", Err: storeErr("update post", err)}
	}
	work.record("post", func(ctx context.Context) error {
		return s.repository.UpdatePost(ctx, previous)
	})

	if perr := s.writeTranslations(ctx, work, req.ID, req.Translations, true); perr != nil {
		return s.partialUpdate(ctx, perr, orphaned)
	}

	if req.CategoryIDs != nil {
		if perr := s.replaceCategories(ctx, work, req.ID, req.CategoryIDs); perr != nil {
			return s.partialUpdate(ctx, perr, orphaned)
		}
	}

	if perr := s.attachGallery(ctx, work, req.ID, req.Files.Gallery); perr != nil {
		return s.partialUpdate(ctx, perr, orphaned)
	}

	refreshed, err := s.repository.GetPost(ctx, req.ID)
	if err != nil {
		return nil, &PostError{PostID: req.ID, Op: "update", Err: storeErr("get post", err)}
	}

	s.logger.Info("Post updated", "post_id", req.ID, "orphaned_files", len(orphaned))
	return &UpdatePostResult{Post: refreshed, OrphanedFiles: orphaned}, nil
}

// RemovePost deletes the base post, every translation of it and every media
// row attached to it. All three are attempted even when one fails; the
// failures are joined into one error. When the base post is already gone the
// translations and media left behind by an earlier incomplete removal are
// still swept; ErrPostNotFound is returned only when nothing was left.
func (s *service) RemovePost(ctx context.Context, id int64) (*RemovePostResult, error) {
	post, err := s.repository.GetPost(ctx, id)
	baseGone := errors.Is(err, ErrPostNotFound)
	if err != nil && !baseGone {
		return nil, &PostError{PostID: id, Op: "delete", Err: storeErr("get post", err)}
	}

	result := &RemovePostResult{}
	var errs []error
	swept := 0

	if !baseGone {
		if err := s.repository.DeletePost(ctx, id); err != nil {
			errs = append(errs, storeErr("delete post", err))
		} else {
			// Slot files are only orphaned once the row referencing them is gone.
			for _, kind := range MediaKinds() {
				if url := post.MediaURL(kind); url != "" {
					result.OrphanedFiles = append(result.OrphanedFiles, url)
				}
			}
		}
	}

	for _, lang := range supportedLanguages {
		for _, key := range translatableKeys {
			entry, err := s.translations.FindTranslation(ctx, TranslationKey{
				Module:   ModulePost,
				ModuleID: id,
				Language: lang,
				Key:      key,
			})
			if errors.Is(err, ErrTranslationNotFound) {
				continue
			}
			if err != nil {
				errs = append(errs, storeErr("find translation", err))
				continue
			}
			if err := s.translations.DeleteTranslation(ctx, entry.ID); err != nil {
				errs = append(errs, storeErr("delete translation", err))
				continue
			}
			swept++
		}
	}

	media, err := s.repository.ListMedia(ctx, ModulePost, id)
	if err != nil {
		errs = append(errs, storeErr("list media", err))
	}
	for _, m := range media {
		if err := s.repository.DeleteMedia(ctx, m.ID); err != nil {
			errs = append(errs, storeErr("delete media", err))
			continue
		}
		swept++
		result.OrphanedFiles = append(result.OrphanedFiles, m.URL)
	}

	if len(errs) > 0 {
		s.logger.Error("Post removal incomplete", "post_id", id, "error", errors.Join(errs...))
		return result, &PostError{PostID: id, Op: "delete", Err: errors.Join(errs...)}
	}

	if baseGone {
		if swept == 0 {
			return nil, &PostError{PostID: id, Op: "delete", Err: ErrPostNotFound}
		}
		s.logger.Info("Post leftovers removed", "post_id", id, "rows", swept)
		return result, nil
	}

	s.logger.Info("Post deleted", "post_id", id)
	return result, nil
}

// MarkFeatured sets or clears the featured flag of a post.
func (s *service) MarkFeatured(ctx context.Context, id int64, featured bool) error {
	post, err := s.repository.GetPost(ctx, id)
	if err != nil {
		return &PostError{PostID: id, Op: "mark_featured", Err: storeErr("get post", err)}
	}
	post.IsFeatured = featured
	if err := s.repository.UpdatePost(ctx, post); err != nil {
		return &PostError{PostID: id, Op: "mark_featured", Err: storeErr("update post", err)}
	}
	return nil
}

// CreateCategory creates a category, optionally under an existing parent.
func (s *service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	if req.ParentID != nil {
		if _, err := s.repository.GetCategory(ctx, *req.ParentID); err != nil {
			return nil, storeErr("get category", err)
		}
	}
	category := &Category{
		Name:      strings.TrimSpace(req.Name),
		ParentID:  req.ParentID,
		CreatedAt: s.now(),
	}
	if err := s.repository.CreateCategory(ctx, category); err != nil {
		return nil, storeErr("create category", err)
	}
	return category, nil
}

// Write steps

func (s *service) writeTranslations(ctx context.Context, work *unitOfWork, postID int64, t Translations, upsert bool) *PartialWriteError {
	for _, lang := range supportedLanguages {
		for _, key := range translatableKeys {
			value := t.Get(lang, key)
			if value == nil {
				continue
			}
			step := "translation " + SuffixedField(key, lang)
			var err error
			if upsert {
				err = s.upsertTranslation(ctx, work, step, postID, lang, key, *value)
			} else {
				err = s.createTranslation(ctx, work, step, postID, lang, key, *value)
			}
			if err != nil {
				return work.fail(step, err)
			}
		}
	}
	return nil
}

func (s *service) createTranslation(ctx context.Context, work *unitOfWork, step string, postID int64, lang Language, key, value string) error {
	entry := &TranslationEntry{
		Module:   ModulePost,
		ModuleID: postID,
		Language: lang,
		Key:      key,
		Value:    value,
	}
	if err := s.translations.CreateTranslation(ctx, entry); err != nil {
		return storeErr("create translation", err)
	}
	id := entry.ID
	work.record(step, func(ctx context.Context) error {
		return s.translations.DeleteTranslation(ctx, id)
	})
	return nil
}

// upsertTranslation updates the row for the key in place, or creates it.
func (s *service) upsertTranslation(ctx context.Context, work *unitOfWork, step string, postID int64, lang Language, key, value string) error {
	lookup := TranslationKey{Module: ModulePost, ModuleID: postID, Language: lang, Key: key}
	existing, err := s.translations.FindTranslation(ctx, lookup)
	if errors.Is(err, ErrTranslationNotFound) {
		err = s.createTranslation(ctx, work, step, postID, lang, key, value)
		if !errors.Is(err, ErrTranslationExists) {
			return err
		}
		// A concurrent writer created the row between lookup and insert.
		existing, err = s.translations.FindTranslation(ctx, lookup)
	}
	if err != nil {
		return storeErr("find translation", err)
	}
	if existing.Value == value {
		return nil
	}

	previous := existing.Value
	id := existing.ID
	if _, err := s.translations.UpdateTranslation(ctx, id, value); err != nil {
		return storeErr("update translation", err)
	}
	work.record(step, func(ctx context.Context) error {
		_, err := s.translations.UpdateTranslation(ctx, id, previous)
		return err
	})
	return nil
}

// resolveCategories keeps the ids that name an existing category, in input
// order and without duplicates.
func (s *service) resolveCategories(ctx context.Context, ids []int64) ([]int64, error) {
	resolved := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.repository.GetCategory(ctx, id); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				s.logger.Warn("Dropping unknown category", "category_id", id)
				continue
			}
			return nil, storeErr("get category", err)
		}
		resolved = append(resolved, id)
	}
	return resolved, nil
}

func (s *service) replaceCategories(ctx context.Context, work *unitOfWork, postID int64, ids []int64) *PartialWriteError {
	const step = "categories"
	previous, err := s.repository.GetPostCategoryIDs(ctx, postID)
	if err != nil {
		return work.fail(step, storeErr("get post categories", err))
	}
	resolved, err := s.resolveCategories(ctx, ids)
	if err != nil {
		return work.fail(step, err)
	}
	if err := s.repository.SetPostCategories(ctx, postID, resolved); err != nil {
		return work.fail(step, storeErr("set post categories", err))
	}
	work.record(step, func(ctx context.Context) error {
		return s.repository.SetPostCategories(ctx, postID, previous)
	})
	return nil
}

// storeSlotFiles saves the uploaded slot files and points post at them. It
// returns the references that were replaced.
func (s *service) storeSlotFiles(ctx context.Context, work *unitOfWork, post *Post, slots map[MediaKind]*File) ([]string, error) {
	var replaced []string
	for _, kind := range MediaKinds() {
		file := slots[kind]
		if file == nil {
			continue
		}
		url, err := s.saveFile(ctx, kind, file)
		if err != nil {
			return replaced, err
		}
		work.record("file "+string(kind), func(ctx context.Context) error {
			return s.files.Delete(ctx, url)
		})
		if old := post.MediaURL(kind); old != "" && old != url {
			replaced = append(replaced, old)
		}
		post.SetMediaURL(kind, url)
	}
	return replaced, nil
}

// attachGallery stores each gallery file and its media row in turn. Images
// attached before a failure stay attached.
func (s *service) attachGallery(ctx context.Context, work *unitOfWork, postID int64, files []*File) *PartialWriteError {
	for i, file := range files {
		if file == nil {
			continue
		}
		step := fmt.Sprintf("gallery %d", i)
		url, err := s.saveFile(ctx, MediaImage, file)
		if err != nil {
			return work.fail(step, err)
		}

		media := &MediaAttachment{
			Module:    ModulePost,
			ModuleID:  postID,
			URL:       url,
			CreatedAt: s.now(),
		}
		if err := s.repository.CreateMedia(ctx, media); err != nil {
			// Without its row the stored file is unreachable.
			if derr := s.files.Delete(ctx, url); derr != nil {
				s.logger.Warn("Failed to delete unattached file", "url", url, "error", derr)
			}
			return work.fail(step, storeErr("create media", err))
		}

		mediaID := media.ID
		work.record(step, func(ctx context.Context) error {
			return errors.Join(s.repository.DeleteMedia(ctx, mediaID), s.files.Delete(ctx, url))
		})
	}
	return nil
}

func (s *service) saveFile(ctx context.Context, kind MediaKind, file *File) (string, error) {
	key := ObjectKey(kind, file.Name)
	url, err := s.files.Save(ctx, key, file.Reader, file.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUploadFailed, file.Name, err)
	}
	return url, nil
}

// abort undoes the steps taken before the base record could be written.
func (s *service) abort(ctx context.Context, work *unitOfWork) {
	if err := work.compensate(ctx); err != nil {
		s.logger.Warn("Failed to clean up after aborted write", "op", work.op, "error", err)
	}
}

func (s *service) partial(ctx context.Context, perr *PartialWriteError) (*Post, error) {
	if s.compensateOnFailure {
		if err := perr.Compensate(ctx); err != nil {
			return nil, errors.Join(perr, err)
		}
		return nil, perr
	}
	post, err := s.repository.GetPost(ctx, perr.PostID)
	if err != nil {
		return nil, perr
	}
	return post, perr
}

func (s *service) partialUpdate(ctx context.Context, perr *PartialWriteError, orphaned []string) (*UpdatePostResult, error) {
	post, err := s.partial(ctx, perr)
	if post == nil {
		return nil, err
	}
	return &UpdatePostResult{Post: post, OrphanedFiles: orphaned}, err
}
