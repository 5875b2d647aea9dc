package localizedcontent

import (
	"encoding/json"
	"time"
)

// ModulePost is the module tag translation and media rows use to point at posts.
const ModulePost = "post"

// Translatable field keys.
const (
	KeyTitle       = "title"
	KeyDescription = "description"
)

var translatableKeys = []string{KeyTitle, KeyDescription}

// TranslatableKeys returns the post fields that can be overridden per language.
func TranslatableKeys() []string {
	return append([]string(nil), translatableKeys...)
}

// MediaKind names one of the single-file slots on a post.
type MediaKind string

// Media slot constants.
const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaImage MediaKind = "image"
	MediaPDF   MediaKind = "pdf"
)

// MediaKinds returns every single-file slot in display order.
func MediaKinds() []MediaKind {
	return []MediaKind{MediaVideo, MediaAudio, MediaImage, MediaPDF}
}

// IsValid reports whether k names a known slot.
func (k MediaKind) IsValid() bool {
	switch k {
	case MediaVideo, MediaAudio, MediaImage, MediaPDF:
		return true
	}
	return false
}

// Category is a node in the category tree.
type Category struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	ParentID  *int64     `json:"parent_id"`
	CreatedAt time.Time  `json:"created_at"`
	Children  []Category `json:"children,omitempty"`
}

// Post is the base content record. Title and Description hold the
// default-language values; other languages live in TranslationEntry rows.
type Post struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Video       string            `json:"video"`
	Audio       string            `json:"audio"`
	Image       string            `json:"image"`
	PDF         string            `json:"pdf"`
	IsFeatured  bool              `json:"is_featured"`
	CreatedAt   time.Time         `json:"created_at"`
	Categories  []Category        `json:"categories"`
	Images      []MediaAttachment `json:"images"`
}

// Field returns the value of a translatable field.
func (p *Post) Field(key string) string {
	switch key {
	case KeyTitle:
		return p.Title
	case KeyDescription:
		return p.Description
	}
	return ""
}

// SetField sets a translatable field. Unknown keys are ignored.
func (p *Post) SetField(key, value string) {
	switch key {
	case KeyTitle:
		p.Title = value
	case KeyDescription:
		p.Description = value
	}
}

// MediaURL returns the file reference stored in the given slot.
func (p *Post) MediaURL(kind MediaKind) string {
	switch kind {
	case MediaVideo:
		return p.Video
	case MediaAudio:
		return p.Audio
	case MediaImage:
		return p.Image
	case MediaPDF:
		return p.PDF
	}
	return ""
}

// SetMediaURL replaces the file reference in the given slot.
func (p *Post) SetMediaURL(kind MediaKind, url string) {
	switch kind {
	case MediaVideo:
		p.Video = url
	case MediaAudio:
		p.Audio = url
	case MediaImage:
		p.Image = url
	case MediaPDF:
		p.PDF = url
	}
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	c := *p
	c.Categories = append([]Category(nil), p.Categories...)
	c.Images = append([]MediaAttachment(nil), p.Images...)
	return &c
}

// TranslationKey addresses at most one TranslationEntry.
type TranslationKey struct {
	Module   string
	ModuleID int64
	Language Language
	Key      string
}

// TranslationEntry is a per-language override of one translatable field.
type TranslationEntry struct {
	ID       int64    `json:"id"`
	Module   string   `json:"module"`
	ModuleID int64    `json:"module_id"`
	Language Language `json:"language_id"`
	Key      string   `json:"key"`
	Value    string   `json:"value"`
}

// LookupKey returns the unique key of the entry.
func (e *TranslationEntry) LookupKey() TranslationKey {
	return TranslationKey{Module: e.Module, ModuleID: e.ModuleID, Language: e.Language, Key: e.Key}
}

// MediaAttachment is one gallery file attached to an owning record.
type MediaAttachment struct {
	ID        int64     `json:"id"`
	Module    string    `json:"module"`
	ModuleID  int64     `json:"module_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite marks a post as favorited by a user. A (UserID, PostID) pair
// exists at most once.
type Favorite struct {
	UserID    int64     `json:"user_id"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry records that a user opened a post.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LocalizedPost is a post after the preferred overlay, plus one
// "<key>_<tag>" value per translatable key and supported language.
type LocalizedPost struct {
	*Post
	Translations map[string]string
}

// Value returns either a declared translatable field or a suffixed projection
// such as "title_ar".
func (lp *LocalizedPost) Value(name string) string {
	if v, ok := lp.Translations[name]; ok {
		return v
	}
	return lp.Post.Field(name)
}

// MarshalJSON flattens the suffixed projections next to the post fields.
func (lp LocalizedPost) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(lp.Post)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for name, value := range lp.Translations {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[name] = encoded
	}
	return json.Marshal(fields)
}

// SuffixedField returns the projection name for key in lang, e.g. "title_ar".
func SuffixedField(key string, lang Language) string {
	return key + "_" + lang.Tag()
}
