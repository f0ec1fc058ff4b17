package pdf

import (
	"strings"
	"unicode"
)

// formulaFontMarkers are lower-case substrings of math and symbol font names
// (TeX Computer Modern, AMS, Euler and generic Symbol/Math families).
var formulaFontMarkers = []string{
	"math", "symbol", "cmex", "cmsy", "cmmi", "cmr",
	"msam", "msbm", "eufm", "eurb", "eusb",
}

// formulaRanges covers Greek, arrows, letterlike symbols and mathematical operators.
var formulaRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0370, Hi: 0x03FF, Stride: 1},
		{Lo: 0x2100, Hi: 0x214F, Stride: 1},
		{Lo: 0x2190, Hi: 0x21FF, Stride: 1},
		{Lo: 0x2200, Hi: 0x22FF, Stride: 1},
	},
}

// IsFormulaFont reports whether the font name looks like a math or symbol font.
// Note "cmr" also matches the Computer Modern text faces.
func IsFormulaFont(fontName string) bool {
	name := strings.ToLower(fontName)
	for _, marker := range formulaFontMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// ContainsFormulaRune reports whether text has a rune in the formula ranges.
func ContainsFormulaRune(text string) bool {
	for _, r := range text {
		if unicode.Is(formulaRanges, r) {
			return true
		}
	}
	return false
}

// IsFormulaRun reports whether a run in fontName showing text is mathematical
// notation. A line is a formula when any of its runs is.
func IsFormulaRun(fontName, text string) bool {
	return IsFormulaFont(fontName) || ContainsFormulaRune(text)
}
