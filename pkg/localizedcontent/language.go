package localizedcontent

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Language identifies one of the supported content languages. The numeric
// value is what gets persisted with translation rows.
type Language int

// Supported languages.
const (
	LanguageEnglish Language = 1
	LanguageArabic  Language = 2
)

// DefaultLanguage is the language base post fields are written in and the
// fallback for every overlay.
const DefaultLanguage = LanguageEnglish

var supportedLanguages = []Language{LanguageEnglish, LanguageArabic}

var languageTags = map[Language]language.Tag{
	LanguageEnglish: language.English,
	LanguageArabic:  language.Arabic,
}

// The first tag is the matcher's fallback, so the default language goes first.
var languageMatcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// SupportedLanguages returns every supported language in id order.
func SupportedLanguages() []Language {
	return slices.Clone(supportedLanguages)
}

// IsValid reports whether l is a supported language.
func (l Language) IsValid() bool {
	_, ok := languageTags[l]
	return ok
}

// Tag returns the short language tag used in suffixed field names ("en", "ar").
func (l Language) Tag() string {
	tag, ok := languageTags[l]
	if !ok {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

func (l Language) String() string {
	if !l.IsValid() {
		return "Language(" + strconv.Itoa(int(l)) + ")"
	}
	return l.Tag()
}

// LanguageByTag resolves a short tag such as "ar" to its Language.
func LanguageByTag(tag string) (Language, bool) {
	for _, l := range supportedLanguages {
		if strings.EqualFold(l.Tag(), tag) {
			return l, true
		}
	}
	return 0, false
}

// ParseLanguage maps client input to a supported language. It accepts a
// numeric id ("2"), a tag ("ar", "ar-EG") or an Accept-Language list.
// Empty or unrecognized input yields DefaultLanguage.
func ParseLanguage(raw string) Language {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLanguage
	}

	if id, err := strconv.Atoi(raw); err == nil {
		if l := Language(id); l.IsValid() {
			return l
		}
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}

	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return supportedLanguages[index]
}
