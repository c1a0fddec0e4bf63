// Package i18n holds the supported locales, the locale-prefix routing
// policy and the message catalogs.
package i18n

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

const DefaultLocale = "en"

// Locales lists the supported locales, default first.
var Locales = []string{"en", "fr"}

var supportedTags = []language.Tag{language.English, language.French}

func IsSupported(locale string) bool {
	for _, l := range Locales {
		if l == locale {
			return true
		}
	}
	return false
}

type contextKey struct{}

func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, contextKey{}, locale)
}

// FromContext returns the request locale, DefaultLocale when unset.
func FromContext(ctx context.Context) string {
	if l, ok := ctx.Value(contextKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLocale
}

// Prefix is the path prefix of a locale: empty for the default locale.
func Prefix(locale string) string {
	if locale == "" || locale == DefaultLocale {
		return ""
	}
	return "/" + locale
}

// Path localizes an absolute path. The home page of a prefixed locale is
// "/fr", not "/fr/".
func Path(locale, path string) string {
	prefix := Prefix(locale)
	if prefix == "" {
		return path
	}
	if path == "/" || path == "" {
		return prefix
	}
	return prefix + path
}

// splitLocale returns the locale segment of path and the remaining path.
func splitLocale(path string) (string, string, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	seg, rest, _ := strings.Cut(trimmed, "/")
	if !IsSupported(seg) {
		return "", path, false
	}
	return seg, "/" + rest, true
}
