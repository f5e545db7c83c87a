package voicecatalog

import (
	"strings"

	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// localeByPrefix maps a voice id's first character to its derived locale.
// Bundled voice ids follow the "<region><gender>_<name>" convention (e.g.
// "af_bella", "bm_george"); the first character names the region.
var localeByPrefix = map[byte]string{
	'a': "en-us",
	'b': "en-gb",
	'e': "es-es",
	'f': "fr-fr",
	'h': "hi-in",
	'i': "it-it",
	'j': "ja-jp",
	'p': "pt-br",
	'z': "zh-cn",
}

// DefaultAccent is returned by ResolveAccent when neither the voice id's
// prefix nor its derived locale match a known accent family.
var DefaultAccent = types.Accent{ID: "other", Label: "Other / Mixed", Flag: "🌐"}

// accentByPrefix maps a voice id's two-character prefix directly to an
// accent, taking priority over the locale-derived fallback below.
var accentByPrefix = map[string]types.Accent{
	"af": {ID: "en-american", Label: "American English", Flag: "🇺🇸"},
	"am": {ID: "en-american", Label: "American English", Flag: "🇺🇸"},
	"bf": {ID: "en-british", Label: "British English", Flag: "🇬🇧"},
	"bm": {ID: "en-british", Label: "British English", Flag: "🇬🇧"},
}

// accentByLocale is consulted when the two-character prefix has no direct
// entry; it is tried first against the full locale tag, then against the
// base language before falling back to DefaultAccent.
var accentByLocale = map[string]types.Accent{
	"en-us": {ID: "en-american", Label: "American English", Flag: "🇺🇸"},
	"en-gb": {ID: "en-british", Label: "British English", Flag: "🇬🇧"},
	"en":    {ID: "en-american", Label: "American English", Flag: "🇺🇸"},
	"es-es": {ID: "es", Label: "Spanish", Flag: "🇪🇸"},
	"es":    {ID: "es", Label: "Spanish", Flag: "🇪🇸"},
	"fr-fr": {ID: "fr", Label: "French", Flag: "🇫🇷"},
	"fr":    {ID: "fr", Label: "French", Flag: "🇫🇷"},
	"hi-in": {ID: "hi", Label: "Hindi", Flag: "🇮🇳"},
	"hi":    {ID: "hi", Label: "Hindi", Flag: "🇮🇳"},
	"it-it": {ID: "it", Label: "Italian", Flag: "🇮🇹"},
	"it":    {ID: "it", Label: "Italian", Flag: "🇮🇹"},
	"ja-jp": {ID: "ja", Label: "Japanese", Flag: "🇯🇵"},
	"ja":    {ID: "ja", Label: "Japanese", Flag: "🇯🇵"},
	"pt-br": {ID: "pt-br", Label: "Brazilian Portuguese", Flag: "🇧🇷"},
	"pt":    {ID: "pt-br", Label: "Brazilian Portuguese", Flag: "🇧🇷"},
	"zh-cn": {ID: "zh", Label: "Mandarin Chinese", Flag: "🇨🇳"},
	"zh":    {ID: "zh", Label: "Mandarin Chinese", Flag: "🇨🇳"},
}

// DeriveLocale derives a locale tag from the first character of voiceID's
// prefix token (the part before the first underscore). Prefixes that do not
// match a known region return "".
func DeriveLocale(voiceID string) string {
	token := prefixToken(voiceID)
	if token == "" {
		return ""
	}
	if locale, ok := localeByPrefix[token[0]]; ok {
		return locale
	}
	return ""
}

// DeriveGender derives "f", "m", or "" from the second character of
// voiceID's prefix token.
func DeriveGender(voiceID string) string {
	token := prefixToken(voiceID)
	if len(token) < 2 {
		return ""
	}
	switch token[1] {
	case 'f':
		return "f"
	case 'm':
		return "m"
	default:
		return ""
	}
}

// ResolveAccent derives the accent taxonomy entry for voiceID: first by
// exact two-character prefix, then by locale (exact tag, then base
// language), finally falling back to DefaultAccent.
func ResolveAccent(voiceID, locale string) types.Accent {
	token := prefixToken(voiceID)
	if len(token) >= 2 {
		if accent, ok := accentByPrefix[strings.ToLower(token[:2])]; ok {
			return accent
		}
	}
	if locale != "" {
		key := strings.ToLower(locale)
		if accent, ok := accentByLocale[key]; ok {
			return accent
		}
		if base, _, found := strings.Cut(key, "-"); found {
			if accent, ok := accentByLocale[base]; ok {
				return accent
			}
		}
	}
	return DefaultAccent
}

func prefixToken(voiceID string) string {
	token, _, _ := strings.Cut(voiceID, "_")
	return strings.ToLower(token)
}
