package pdf

import (
	"fmt"
	"os"
	"unicode"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/encoding/charmap"

	"github.com/euel88/law-chatbot/internal/logger"
)

const (
	primaryFamily  = "primary"
	fallbackFamily = "Helvetica"
)

// systemFontPaths are TrueType fonts with Hangul and CJK coverage, tried in
// order when no font is configured.
var systemFontPaths = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansKR-Regular.ttf",
	"/usr/share/fonts/truetype/unfonts-core/UnDotum.ttf",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/Library/Fonts/NanumGothic.ttf",
	"/System/Library/Fonts/Supplemental/AppleGothic.ttf",
	`C:\Windows\Fonts\malgun.ttf`,
	`C:\Windows\Fonts\gulim.ttf`,
}

// fontFace is a TrueType font registered with the output document.
type fontFace struct {
	source string
	data   []byte
	font   *sfnt.Font
}

// loadFontFace loads the font at path, or the first available system font,
// or Go Regular when path is empty and no system font exists.
func loadFontFace(path string) (*fontFace, error) {
	if path != "" {
		return readFontFace(path)
	}
	for _, p := range systemFontPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		face, err := readFontFace(p)
		if err != nil {
			logger.Debug("skipping unusable system font", logger.String("path", p), logger.Err(err))
			continue
		}
		return face, nil
	}
	return parseFontFace("goregular", goregular.TTF)
}

func readFontFace(path string) (*fontFace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return parseFontFace(path, data)
}

func parseFontFace(source string, data []byte) (*fontFace, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", source, err)
	}
	return &fontFace{source: source, data: data, font: f}, nil
}

// covers reports whether the font has a glyph for every non-space rune.
func (f *fontFace) covers(text string) bool {
	if f == nil {
		return false
	}
	var buf sfnt.Buffer
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		idx, err := f.font.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			return false
		}
	}
	return true
}

// encodeFallback converts text to Windows-1252 for the core Helvetica font.
func encodeFallback(text string) (string, bool) {
	enc, err := charmap.Windows1252.NewEncoder().String(text)
	if err != nil {
		return "", false
	}
	return enc, true
}
