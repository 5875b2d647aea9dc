package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tendant/localized-content/internal/messages"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// Limits bounds the uploads of a single request. MaxRequestBytes caps the
// whole body and is enforced while it is read; MaxUploadBytes applies to each
// file.
type Limits struct {
	MaxRequestBytes int64
	MaxUploadBytes  int64
	MaxGalleryFiles int
}

// DefaultLimits returns the upload limits used when none are configured
func DefaultLimits() Limits {
	return Limits{MaxRequestBytes: 500000000, MaxUploadBytes: 100000000, MaxGalleryFiles: 100}
}

// bodyLimit is the cap handed to http.MaxBytesReader; 0 means uncapped.
func (l Limits) bodyLimit() int64 {
	switch {
	case l.MaxRequestBytes > 0:
		return l.MaxRequestBytes
	case l.MaxUploadBytes > 0:
		return l.MaxUploadBytes + multipartMemory
	}
	return 0
}

// multipartMemory is how much of a multipart body is buffered before
// spilling to temporary files.
const multipartMemory = 32 << 20

// galleryField is the form field carrying gallery images.
const galleryField = "images"

// limitError is a request that exceeds an upload limit.
type limitError struct {
	messageID string
	limit     int64
}

func (e *limitError) Error() string {
	return fmt.Sprintf("upload limit %d exceeded", e.limit)
}

// fields reads request values regardless of the body encoding.
type fields interface {
	Value(name string) (string, bool)
	Values(name string) ([]string, bool)
}

type formFields url.Values

func (f formFields) Value(name string) (string, bool) {
	values, ok := f[name]
	if !ok || len(values) == 0 {
		return "", ok
	}
	return values[0], true
}

func (f formFields) Values(name string) ([]string, bool) {
	values, ok := f[name]
	return values, ok
}

type jsonFields map[string]any

func (f jsonFields) Value(name string) (string, bool) {
	raw, ok := f[name]
	if !ok {
		return "", false
	}
	return stringify(raw), true
}

func (f jsonFields) Values(name string) ([]string, bool) {
	raw, ok := f[name]
	if !ok {
		return nil, false
	}
	if list, isList := raw.([]any); isList {
		values := make([]string, 0, len(list))
		for _, item := range list {
			values = append(values, stringify(item))
		}
		return values, true
	}
	return []string{stringify(raw)}, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// postInput is a decoded write request.
type postInput struct {
	fields fields
	files  map[string][]*multipart.FileHeader
}

// readPostInput decodes a JSON, urlencoded or multipart body. Reading stops
// with a limitError as soon as the body passes limits.bodyLimit().
func readPostInput(w http.ResponseWriter, r *http.Request, limits Limits) (*postInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	maxBody := limits.bodyLimit()
	if maxBody > 0 {
		if r.ContentLength > maxBody {
			return nil, &limitError{messageID: messages.RequestTooLarge, limit: maxBody}
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	tooLarge := func(err error) error {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &limitError{messageID: messages.RequestTooLarge, limit: maxErr.Limit}
		}
		return nil
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			if limitErr := tooLarge(err); limitErr != nil {
				return nil, limitErr
			}
			return nil, &lc.ValidationError{Field: "body", Reason: "malformed multipart form"}
		}
		return &postInput{fields: formFields(r.MultipartForm.Value), files: r.MultipartForm.File}, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			if limitErr := tooLarge(err); limitErr != nil {
				return nil, limitErr
			}
			return nil, &lc.ValidationError{Field: "body", Reason: "malformed form"}
		}
		return &postInput{fields: formFields(r.PostForm)}, nil

	default:
		body := jsonFields{}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				if limitErr := tooLarge(err); limitErr != nil {
					return nil, limitErr
				}
				return nil, &lc.ValidationError{Field: "body", Reason: "malformed JSON"}
			}
		}
		return &postInput{fields: body}, nil
	}
}

// translations collects "<key>" (or "<key>_en") for the default language and
// "<key>_<tag>" for the others. Absent fields are left nil.
func (in *postInput) translations() lc.Translations {
	t := lc.Translations{}
	for _, key := range lc.TranslatableKeys() {
		for _, lang := range lc.SupportedLanguages() {
			value, ok := in.fields.Value(lc.SuffixedField(key, lang))
			if !ok && lang == lc.DefaultLanguage {
				value, ok = in.fields.Value(key)
			}
			if ok {
				t.Set(lang, key, value)
			}
		}
	}
	return t
}

func (in *postInput) optional(name string) *string {
	value, ok := in.fields.Value(name)
	if !ok {
		return nil
	}
	return &value
}

func (in *postInput) text(name string) string {
	value, _ := in.fields.Value(name)
	return value
}

// featured accepts "1" and "true"; the second result reports presence.
func (in *postInput) featured() (bool, bool) {
	value, ok := in.fields.Value("is_featured")
	if !ok {
		return false, false
	}
	return parseFlag(value), true
}

func parseFlag(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true"
}

// categoryIDs returns nil when the field is absent and a possibly empty
// slice otherwise.
func (in *postInput) categoryIDs() []int64 {
	values, ok := in.fields.Values("category_ids")
	if !ok {
		return nil
	}
	return ParseCategoryIDs(values)
}

// ParseCategoryIDs splits comma separated values into ids. Entries that are
// not positive integers are dropped. The result is never nil.
func ParseCategoryIDs(values []string) []int64 {
	ids := []int64{}
	for _, value := range values {
		value = strings.Trim(strings.TrimSpace(value), "[]")
		for _, part := range strings.Split(value, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}

// mediaURLs returns slot references given as plain fields.
func (in *postInput) mediaURLs() map[lc.MediaKind]string {
	urls := make(map[lc.MediaKind]string)
	for _, kind := range lc.MediaKinds() {
		if value, ok := in.fields.Value(string(kind)); ok && value != "" {
			urls[kind] = value
		}
	}
	return urls
}

// openedFiles tracks the multipart files handed to the service.
type openedFiles []multipart.File

func (o openedFiles) Close() {
	for _, f := range o {
		f.Close()
	}
}

// uploads opens the slot files and the gallery after checking the limits.
// The returned files must be closed once the service call is done.
func (in *postInput) uploads(limits Limits) (lc.Uploads, openedFiles, error) {
	var uploads lc.Uploads
	var opened openedFiles

	if len(in.files) == 0 {
		return uploads, nil, nil
	}

	gallery := in.files[galleryField]
	if limits.MaxGalleryFiles > 0 && len(gallery) > limits.MaxGalleryFiles {
		return uploads, nil, &limitError{messageID: messages.TooManyFiles, limit: int64(limits.MaxGalleryFiles)}
	}

	open := func(header *multipart.FileHeader) (*lc.File, error) {
		if limits.MaxUploadBytes > 0 && header.Size > limits.MaxUploadBytes {
			return nil, &limitError{messageID: messages.FileTooLarge, limit: limits.MaxUploadBytes}
		}
		f, err := header.Open()
		if err != nil {
			return nil, &lc.ValidationError{Field: header.Filename, Reason: "unreadable upload"}
		}
		opened = append(opened, f)
		return &lc.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      f,
		}, nil
	}

	for _, kind := range lc.MediaKinds() {
		headers := in.files[string(kind)]
		if len(headers) == 0 {
			continue
		}
		file, err := open(headers[0])
		if err != nil {
			opened.Close()
			return lc.Uploads{}, nil, err
		}
		if uploads.Slots == nil {
			uploads.Slots = make(map[lc.MediaKind]*lc.File)
		}
		uploads.Slots[kind] = file
	}

	for _, header := range gallery {
		file, err := open(header)
		if err != nil {
			opened.Close()
			return lc.Uploads{}, nil, err
		}
		uploads.Gallery = append(uploads.Gallery, file)
	}

	return uploads, opened, nil
}
