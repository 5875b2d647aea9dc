// Package messages renders the outcome messages of the HTTP API in the
// caller's language.
package messages

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// Message IDs
const (
	PostCreated           = "PostCreated"
	PostUpdated           = "PostUpdated"
	PostDeleted           = "PostDeleted"
	PostMarked            = "PostMarked"
	PostNotFound          = "PostNotFound"
	PostPartiallySaved    = "PostPartiallySaved"
	PostPartiallyDeleted  = "PostPartiallyDeleted"
	CategoryCreated       = "CategoryCreated"
	CategoryNotFound      = "CategoryNotFound"
	TranslationNotFound   = "TranslationNotFound"
	AddedToFavourites     = "AddedToFavourites"
	RemovedFromFavourites = "RemovedFromFavourites"
	FileTooLarge          = "FileTooLarge"
	TooManyFiles          = "TooManyFiles"
	RequestTooLarge       = "RequestTooLarge"
	InvalidInput          = "InvalidInput"
	Unauthorized          = "Unauthorized"
	InternalError         = "InternalError"
)

// Catalog holds the message bundle for every supported language.
type Catalog struct {
	bundle *i18n.Bundle
}

// New loads the embedded message files.
func New() (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, lang := range lc.SupportedLanguages() {
		path := fmt.Sprintf("locales/active.%s.toml", lang.Tag())
		if _, err := bundle.LoadMessageFileFS(locales, path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return &Catalog{bundle: bundle}, nil
}

// Localize renders messageID in lang, falling back to English. data fills
// template fields such as {{.Limit}}.
func (c *Catalog) Localize(lang lc.Language, messageID string, data map[string]any) string {
	localizer := i18n.NewLocalizer(c.bundle, lang.Tag(), lc.DefaultLanguage.Tag())

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("Missing message translation", "message_id", messageID, "lang", lang.Tag(), "error", err)
		return messageID
	}
	return msg
}
