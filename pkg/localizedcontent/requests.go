package localizedcontent

import "io"

// Request/Response DTOs

// Translations holds per-language values for translatable keys. A nil value
// means "not supplied" and writes nothing; an empty string is written.
type Translations map[Language]map[string]*string

// Text returns a pointer to s, for building Translations literals.
func Text(s string) *string {
	return &s
}

// Set records value for (lang, key) and returns t for chaining.
func (t Translations) Set(lang Language, key, value string) Translations {
	if t[lang] == nil {
		t[lang] = make(map[string]*string)
	}
	t[lang][key] = Text(value)
	return t
}

// Get returns the supplied value for (lang, key) or nil.
func (t Translations) Get(lang Language, key string) *string {
	if t == nil || t[lang] == nil {
		return nil
	}
	return t[lang][key]
}

// File is one uploaded file. The caller owns Reader and closes it after the
// service call returns.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Uploads carries the single-file slots and the gallery of a write request.
type Uploads struct {
	Slots   map[MediaKind]*File
	Gallery []*File
}

func (u Uploads) empty() bool {
	for _, f := range u.Slots {
		if f != nil {
			return false
		}
	}
	return len(u.Gallery) == 0
}

// CreatePostRequest contains parameters for creating a post. The title in
// DefaultLanguage is required.
type CreatePostRequest struct {
	Translations Translations
	URL          string
	Date         string
	Time         string
	// MediaURLs holds references for slots supplied without an upload
	MediaURLs   map[MediaKind]string
	IsFeatured  bool
	CategoryIDs []int64
	Files       Uploads
}

// UpdatePostRequest contains parameters for updating a post. Nil fields are
// left unchanged. A nil CategoryIDs leaves the associations untouched; a
// non-nil empty slice clears them.
type UpdatePostRequest struct {
	ID           int64
	Translations Translations
	URL          *string
	Date         *string
	Time         *string
	MediaURLs    map[MediaKind]string
	IsFeatured   *bool
	CategoryIDs  []int64
	Files        Uploads
}

// UpdatePostResult is returned by UpdatePost. OrphanedFiles lists references
// that were replaced and are now unused; reclaiming them is up to the file
// storage owner.
type UpdatePostResult struct {
	Post          *Post
	OrphanedFiles []string
}

// RemovePostResult is returned by RemovePost with every file reference the
// deleted post held.
type RemovePostResult struct {
	OrphanedFiles []string
}

// CreateCategoryRequest contains parameters for creating a category
type CreateCategoryRequest struct {
	Name     string
	ParentID *int64
}

// ListPostsRequest contains parameters for the paginated post listing
type ListPostsRequest struct {
	Page       int
	Limit      int
	CategoryID *int64
	Title      string
	Language   Language
}

// ScreenWiseRequest contains parameters for the per-media-kind grouping
type ScreenWiseRequest struct {
	CategoryID *int64
	Title      string
	Language   Language
}

// PostPage is one page of localized posts.
type PostPage struct {
	Data  []*LocalizedPost `json:"data"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ScreenWise groups localized posts by the media slot they carry.
type ScreenWise struct {
	Videos []*LocalizedPost `json:"videos"`
	Audios []*LocalizedPost `json:"audios"`
	Images []*LocalizedPost `json:"images"`
	PDFs   []*LocalizedPost `json:"pdfs"`
}
