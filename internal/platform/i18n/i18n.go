// Package i18n provides locale resolution and message printing for API
// responses. The platform is multilingual: article content carries its own
// language, while this package localizes the API surface itself (error
// messages, labels) per request.
package i18n

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "md_lang"
)

var supported = []language.Tag{
	language.AmericanEnglish,   // en-US (base)
	language.BrazilianPortuguese, // pt-BR
	language.French,            // fr-FR
	language.EuropeanSpanish,   // es-ES
}

var matcher = language.NewMatcher(supported)

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supported))
	copy(tags, supported)
	return tags
}

// Default returns the default language tag.
func Default() language.Tag {
	return supported[0]
}

// ParseTag parses value into a supported tag. The bool reports whether the
// value matched a supported language. The matcher alone is too forgiving
// here: it maps nearly everything onto the default with low confidence,
// so the base language must actually be one we support.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default(), false
	}
	parsed, err := language.Parse(value)
	if err != nil {
		return Default(), false
	}
	base, confidence := parsed.Base()
	if confidence == language.No {
		return Default(), false
	}
	for i, tag := range supported {
		supportedBase, _ := tag.Base()
		if base == supportedBase {
			return supported[i], true
		}
	}
	return Default(), false
}

// MatchTags returns the best supported tag for an ordered preference list.
func MatchTags(preferred []language.Tag) language.Tag {
	if len(preferred) == 0 {
		return Default()
	}
	_, index, confidence := matcher.Match(preferred...)
	if confidence == language.No {
		return Default()
	}
	return supported[index]
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// ResolveTag determines the best language tag for the request.
// Resolution order: lang query param, language cookie, Accept-Language.
// The bool indicates whether the lang query param should be persisted as
// a cookie.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}

	if langValue := strings.TrimSpace(r.URL.Query().Get(LangParam)); langValue != "" {
		if tag, ok := ParseTag(langValue); ok {
			return tag, true
		}
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := ParseTag(cookie.Value); ok {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			return MatchTags(tags), false
		}
	}

	return Default(), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
