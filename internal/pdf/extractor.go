package pdf

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/euel88/law-chatbot/internal/logger"
)

// Line assembly thresholds, in multiples of the font size.
const (
	baselineTolerance = 0.5
	maxJoinGap        = 1.5
	minOverlap        = -0.5
	spaceGap          = 0.15
	ascentRatio       = 0.8
	descentRatio      = 0.2
	blockGap          = 2.0
)

// lineRun is a piece of a line sharing font, size and colour.
type lineRun struct {
	text   string
	font   string
	size   float64
	color  Color
	x0, x1 float64
}

// textLine is a line in the reading frame of its direction.
type textLine struct {
	runs     []lineRun
	dir      int
	baseline float64
	size     float64
	x0, x1   float64
}

func (l *textLine) text() string {
	var sb strings.Builder
	for _, r := range l.runs {
		sb.WriteString(r.text)
	}
	return sb.String()
}

// ExtractTextBlocks returns one TextBlock per non-empty line, page by page in
// reading order.
func ExtractTextBlocks(doc *Document) ([]TextBlock, error) {
	if doc == nil || doc.isClosed() {
		return nil, NewPDFError(ErrExtractFailed, "document is closed", nil)
	}

	var blocks []TextBlock
	formulas := 0
	for i := 0; i < doc.PageCount(); i++ {
		size := doc.PageSize(i)
		content := doc.content(i)
		for _, line := range orderByDirection(buildLines(content.spans)) {
			block, ok := lineToBlock(line, i, size)
			if !ok {
				continue
			}
			if block.IsFormula {
				formulas++
			}
			blocks = append(blocks, block)
		}
	}

	logger.Info("text extraction complete",
		logger.Int("pages", doc.PageCount()),
		logger.Int("blocks", len(blocks)),
		logger.Int("formulaBlocks", formulas))
	return blocks, nil
}

// buildLines joins spans into lines in content-stream order.
func buildLines(spans []textSpan) []*textLine {
	var lines []*textLine
	var cur *textLine

	for _, s := range spans {
		if cur != nil && joinsLine(cur, s) {
			text := s.text
			gap := s.x0 - cur.x1
			last := cur.runs[len(cur.runs)-1]
			if gap > spaceGap*s.size && !endsWithSpace(last.text) && !startsWithSpace(text) {
				text = " " + text
			}
			if last.font == s.font && math.Abs(last.size-s.size) < 0.01 && last.color == s.color {
				cur.runs[len(cur.runs)-1].text += text
				cur.runs[len(cur.runs)-1].x1 = math.Max(last.x1, s.x1)
			} else {
				cur.runs = append(cur.runs, lineRun{text: text, font: s.font, size: s.size, color: s.color, x0: s.x0, x1: s.x1})
			}
			cur.x1 = math.Max(cur.x1, s.x1)
			cur.size = math.Max(cur.size, s.size)
			continue
		}

		cur = &textLine{
			runs:     []lineRun{{text: s.text, font: s.font, size: s.size, color: s.color, x0: s.x0, x1: s.x1}},
			dir:      s.dir,
			baseline: s.baseline,
			size:     s.size,
			x0:       s.x0,
			x1:       s.x1,
		}
		lines = append(lines, cur)
	}
	return lines
}

func joinsLine(l *textLine, s textSpan) bool {
	if l.dir != s.dir {
		return false
	}
	em := math.Max(l.size, s.size)
	if math.Abs(s.baseline-l.baseline) > baselineTolerance*em {
		return false
	}
	gap := s.x0 - l.x1
	return gap >= minOverlap*em && gap < maxJoinGap*em
}

// textDirections is the order in which differently oriented text is emitted.
var textDirections = []int{0, 90, 270, 180}

// orderByDirection orders each direction's lines separately, upright text
// first.
func orderByDirection(lines []*textLine) []*textLine {
	byDir := make(map[int][]*textLine)
	for _, l := range lines {
		byDir[l.dir] = append(byDir[l.dir], l)
	}
	if len(byDir) == 1 {
		return orderLines(lines)
	}
	ordered := make([]*textLine, 0, len(lines))
	for _, dir := range textDirections {
		ordered = append(ordered, orderLines(byDir[dir])...)
	}
	return ordered
}

// lineBlock is a run of vertically adjacent, horizontally overlapping lines,
// such as a paragraph or one column of one.
type lineBlock struct {
	lines  []*textLine
	top    float64
	x0, x1 float64
}

func (b *lineBlock) last() *textLine { return b.lines[len(b.lines)-1] }

// accepts reports whether l continues b: it starts below b's last line within
// blockGap line heights and shares some horizontal extent with b.
func (b *lineBlock) accepts(l *textLine) bool {
	prev := b.last()
	em := math.Max(prev.size, l.size)
	dy := l.baseline - prev.baseline
	if dy <= baselineTolerance*em || dy > blockGap*em {
		return false
	}
	return math.Min(b.x1, l.x1)-math.Max(b.x0, l.x0) > 0
}

// orderLines groups lines into blocks and returns them block by block: blocks
// top to bottom (left to right when they start on the same row), lines within
// a block top to bottom. Side-by-side columns therefore come out one column
// at a time.
func orderLines(lines []*textLine) []*textLine {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].baseline < lines[j].baseline })
	for start := 0; start < len(lines); {
		end := start + 1
		for end < len(lines) && lines[end].baseline-lines[start].baseline <= baselineTolerance*lines[start].size {
			end++
		}
		row := lines[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].x0 < row[j].x0 })
		start = end
	}

	var blocks []*lineBlock
	for _, l := range lines {
		var target *lineBlock
		for _, b := range blocks {
			if b.accepts(l) {
				target = b
				break
			}
		}
		if target == nil {
			blocks = append(blocks, &lineBlock{
				lines: []*textLine{l},
				top:   l.baseline - ascentRatio*l.size,
				x0:    l.x0,
				x1:    l.x1,
			})
			continue
		}
		target.lines = append(target.lines, l)
		target.x0 = math.Min(target.x0, l.x0)
		target.x1 = math.Max(target.x1, l.x1)
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].top < blocks[j].top })
	for start := 0; start < len(blocks); {
		end := start + 1
		for end < len(blocks) && blocks[end].top-blocks[start].top <= baselineTolerance*blocks[start].lines[0].size {
			end++
		}
		row := blocks[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].x0 < row[j].x0 })
		start = end
	}

	ordered := make([]*textLine, 0, len(lines))
	for _, b := range blocks {
		ordered = append(ordered, b.lines...)
	}
	return ordered
}

func lineToBlock(l *textLine, page int, size PageSize) (TextBlock, bool) {
	text := strings.TrimSpace(l.text())
	if text == "" {
		return TextBlock{}, false
	}

	var bbox Rect
	formula := false
	for i, r := range l.runs {
		runBox := NewRect(r.x0, l.baseline-ascentRatio*r.size, r.x1, l.baseline+descentRatio*r.size)
		if i == 0 {
			bbox = runBox
		} else {
			bbox = bbox.Union(runBox)
		}
		if IsFormulaRun(r.font, r.text) {
			formula = true
		}
	}
	last := l.runs[len(l.runs)-1]
	bbox = readingRectToPage(l.dir, size, bbox)

	return TextBlock{
		Text:      text,
		BBox:      bbox.Clip(size.Width, size.Height),
		PageIndex: page,
		FontName:  last.font,
		FontSize:  last.size,
		IsFormula: formula,
		Color:     last.color,
		Rotation:  l.dir,
	}, true
}

func endsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[len(s)-1]))
}

func startsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[0]))
}
