package translator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SupportedLanguages lists the language codes accepted as source or target.
var SupportedLanguages = []string{"en", "ko", "ja", "zh", "de", "fr", "es", "ru"}

var (
	supportedTags = []language.Tag{
		language.English,
		language.Korean,
		language.Japanese,
		language.Chinese,
		language.German,
		language.French,
		language.Spanish,
		language.Russian,
	}
	languageMatcher = language.NewMatcher(supportedTags)
)

// NormalizeLanguage maps a BCP 47 code such as "ko-KR" or "en-US" onto one of
// SupportedLanguages.
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	matched, index, confidence := languageMatcher.Match(tag)
	if confidence < language.High {
		return "", fmt.Errorf("unsupported language %q", code)
	}
	// The matcher also scores mutually intelligible fallbacks as High
	// ("sw" -> "en"); only a match on the same base language counts.
	want, _ := tag.Base()
	got, _ := matched.Base()
	if want != got {
		return "", fmt.Errorf("unsupported language %q", code)
	}
	return SupportedLanguages[index], nil
}

// IsSupported reports whether code normalizes to a supported language.
func IsSupported(code string) bool {
	_, err := NormalizeLanguage(code)
	return err == nil
}

// LanguageName returns the English name of a language code ("ko" -> "Korean").
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// NativeName returns the language's name in itself ("ko" -> "한국어").
func NativeName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}
