package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

var allIDs = []string{
	PostCreated, PostUpdated, PostDeleted, PostMarked, PostNotFound,
	PostPartiallySaved, PostPartiallyDeleted, CategoryCreated, CategoryNotFound,
	TranslationNotFound, AddedToFavourites, RemovedFromFavourites, FileTooLarge,
	TooManyFiles, RequestTooLarge, InvalidInput, Unauthorized, InternalError,
}

func TestEveryMessageIsTranslated(t *testing.T) {
	catalog, err := New()
	require.NoError(t, err)

	for _, lang := range lc.SupportedLanguages() {
		for _, id := range allIDs {
			msg := catalog.Localize(lang, id, map[string]any{"Limit": 1, "Step": "s", "Reason": "r"})
			assert.NotEqual(t, id, msg, "%s missing in %s", id, lang)
			assert.NotEmpty(t, msg)
		}
	}
}

func TestLocalize(t *testing.T) {
	catalog, err := New()
	require.NoError(t, err)

	en := catalog.Localize(lc.LanguageEnglish, FileTooLarge, map[string]any{"Limit": 1024})
	assert.Contains(t, en, "1024")

	ar := catalog.Localize(lc.LanguageArabic, PostCreated, nil)
	assert.NotEqual(t, catalog.Localize(lc.LanguageEnglish, PostCreated, nil), ar)

	assert.Equal(t, "NoSuchMessage", catalog.Localize(lc.LanguageEnglish, "NoSuchMessage", nil))
	assert.Equal(t,
		catalog.Localize(lc.LanguageEnglish, PostDeleted, nil),
		catalog.Localize(lc.Language(9), PostDeleted, nil),
		"unknown language falls back to English")
}
