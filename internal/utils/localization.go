package contextutils

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Locale represents a language locale (e.g., "ja", "en")
type Locale string

const (
	// LocaleJapanese is the default locale of the admin console and public site
	LocaleJapanese Locale = "ja"
	// LocaleEnglish represents English language
	LocaleEnglish Locale = "en"
)

// DefaultLocale is used when a request carries no usable locale
const DefaultLocale = LocaleJapanese

//go:embed messages.yaml
var embeddedMessages []byte

// Catalog maps error codes to user-facing text per locale
type Catalog struct {
	messages map[ErrorCode]map[Locale]string
}

// LoadCatalog parses a YAML catalog of the form `CODE: {ja: ..., en: ...}`.
// Every code must have text in DefaultLocale.
func LoadCatalog(data []byte) (*Catalog, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, WrapError(err, "failed to parse message catalog")
	}

	c := &Catalog{messages: make(map[ErrorCode]map[Locale]string, len(raw))}
	var missing []string
	for code, texts := range raw {
		byLocale := make(map[Locale]string, len(texts))
		for locale, text := range texts {
			byLocale[Locale(strings.ToLower(locale))] = text
		}
		if byLocale[DefaultLocale] == "" {
			missing = append(missing, code)
		}
		c.messages[ErrorCode(code)] = byLocale
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, WrapErrorf(ErrInvalidFormat, "message catalog has no %s text for %s", DefaultLocale, strings.Join(missing, ", "))
	}
	return c, nil
}

// Message returns the text for code in locale, falling back to DefaultLocale
// and then to the internal error text for unknown codes.
func (c *Catalog) Message(code ErrorCode, locale Locale) string {
	if texts, ok := c.messages[code]; ok {
		if text, ok := texts[locale]; ok {
			return text
		}
		return texts[DefaultLocale]
	}
	if code != ErrorCodeInternalError {
		return c.Message(ErrorCodeInternalError, locale)
	}
	return "internal error"
}

// Locales lists every locale with at least one message, sorted
func (c *Catalog) Locales() []Locale {
	seen := make(map[Locale]struct{})
	for _, texts := range c.messages {
		for locale := range texts {
			seen[locale] = struct{}{}
		}
	}
	out := make([]Locale, 0, len(seen))
	for locale := range seen {
		out = append(out, locale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseLocale takes the language part of a tag or Accept-Language value
// ("ja-JP", "en-US,en;q=0.9"); empty input yields DefaultLocale
func ParseLocale(localeStr string) Locale {
	localeStr = strings.TrimSpace(localeStr)
	if i := strings.IndexAny(localeStr, ",;"); i >= 0 {
		localeStr = localeStr[:i]
	}
	lang, _, _ := strings.Cut(localeStr, "-")
	if lang == "" {
		return DefaultLocale
	}
	return Locale(strings.ToLower(lang))
}

var defaultCatalog = mustLoadCatalog(embeddedMessages)

func mustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(fmt.Sprintf("embedded messages.yaml: %v", err))
	}
	return c
}

// GetLocalizedMessage returns the catalog text for an error code
func GetLocalizedMessage(code ErrorCode, locale Locale) string {
	return defaultCatalog.Message(code, locale)
}
