package localizedcontent

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/mozillazg/go-unidecode"
)

// ObjectKey returns the storage key for an uploaded file in the given slot:
// "posts/<kind>s/<uuid>-<name>", with name transliterated to ASCII.
func ObjectKey(kind MediaKind, name string) string {
	return "posts/" + string(kind) + "s/" + uuid.NewString() + "-" + sanitizeFileName(name)
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unidecode.Unidecode(name)

	var b strings.Builder
	dash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return out
}
