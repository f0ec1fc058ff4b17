package pdf

import (
	"math"
	"strings"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/euel88/law-chatbot/internal/logger"
)

const (
	// defaultGlyphWidth is used when a simple font has no width for a code, in 1/1000 em.
	defaultGlyphWidth = 500
	// defaultCIDWidth is the /DW default of CIDFonts.
	defaultCIDWidth = 1000
	maxFormDepth    = 8
)

// textSpan is one shown string. x0, x1 and baseline are in the reading frame
// of its direction dir (see toReading): the text advances along x and
// successive lines follow along y.
type textSpan struct {
	text     string
	font     string
	size     float64
	color    Color
	dir      int
	x0, x1   float64
	baseline float64
}

// imagePlacement is where an image XObject was painted on the page.
type imagePlacement struct {
	name string
	bbox Rect
}

// pageContent is the result of interpreting one page's content streams.
type pageContent struct {
	spans  []textSpan
	images []imagePlacement
	faults int
}

// placement returns the first painted rectangle of the named image.
func (c *pageContent) placement(name string) (Rect, bool) {
	for _, p := range c.images {
		if p.name == name {
			return p.bbox, true
		}
	}
	return Rect{}, false
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// multiply returns m x n.
func (m matrix) multiply(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) transform(x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

func translation(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

// pageFrame maps unrotated user space onto the page as displayed: origin at
// the top-left corner, y growing downwards, with /Rotate applied clockwise.
type pageFrame struct {
	llx, lly float64
	w, h     float64
	rotate   int
}

// normalizeRotation reduces r to 0, 90, 180 or 270.
func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return (r + 45) / 90 * 90 % 360
}

// size returns the displayed page size.
func (f pageFrame) size() PageSize {
	if f.rotate%180 != 0 {
		return PageSize{Width: f.h, Height: f.w}
	}
	return PageSize{Width: f.w, Height: f.h}
}

// toPage maps a user-space point to displayed page coordinates.
func (f pageFrame) toPage(x, y float64) (float64, float64) {
	u, v := x-f.llx, y-f.lly
	switch f.rotate {
	case 90:
		return v, u
	case 180:
		return f.w - u, v
	case 270:
		return f.h - v, f.w - u
	default:
		return u, f.h - v
	}
}

// direction maps a user-space vector to displayed page coordinates.
func (f pageFrame) direction(a, b float64) (float64, float64) {
	switch f.rotate {
	case 90:
		return b, a
	case 180:
		return -a, b
	case 270:
		return -b, -a
	default:
		return a, -b
	}
}

// textDirection quantises the page-space vector (dx, dy) to 0 (left to
// right), 90 (downwards), 180 (right to left) or 270 (upwards).
func textDirection(dx, dy float64) int {
	if dx == 0 && dy == 0 {
		return 0
	}
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	return normalizeRotation(int(math.Round(deg)))
}

// toReading maps page coordinates into the frame of text running in
// direction dir, where text advances along +x and the next line is at +y.
func toReading(dir int, size PageSize, x, y float64) (float64, float64) {
	switch dir {
	case 90:
		return y, size.Width - x
	case 180:
		return size.Width - x, size.Height - y
	case 270:
		return size.Height - y, x
	default:
		return x, y
	}
}

// fromReading is the inverse of toReading.
func fromReading(dir int, size PageSize, x, y float64) (float64, float64) {
	switch dir {
	case 90:
		return size.Width - y, x
	case 180:
		return size.Width - x, size.Height - y
	case 270:
		return y, size.Height - x
	default:
		return x, y
	}
}

// readingRectToPage maps a reading-frame rectangle to page coordinates.
func readingRectToPage(dir int, size PageSize, r Rect) Rect {
	x0, y0 := fromReading(dir, size, r.X0, r.Y0)
	x1, y1 := fromReading(dir, size, r.X1, r.Y1)
	return NewRect(x0, y0, x1, y1)
}

type fontState struct {
	name      string
	font      lpdf.Font
	enc       lpdf.TextEncoding
	composite bool
	// cid holds the glyph widths of composite fonts; identity is set when
	// their codes are the CIDs themselves.
	cid       *cidWidths
	identity  bool
}

// graphicsState holds what q/Q saves and restores.
type graphicsState struct {
	ctm       matrix
	fill      Color
	font      *fontState
	fontSize  float64
	charSpace float64
	wordSpace float64
	scale     float64
	leading   float64
	rise      float64
}

type interpreter struct {
	out       *pageContent
	page      int
	frame     pageFrame
	size      PageSize
	resources lpdf.Value
	fonts     map[string]*fontState
	gs        graphicsState
	stack     []graphicsState
	tm, tlm   matrix
	depth     int
}

// interpretPage runs the page's content streams and collects text spans and
// image placements. Parse faults are logged; spans collected before a fault
// are kept.
func interpretPage(p lpdf.Page, index int, frame pageFrame) *pageContent {
	out := &pageContent{}
	if p.V.IsNull() {
		return out
	}

	in := &interpreter{
		out:       out,
		page:      index,
		frame:     frame,
		size:      frame.size(),
		resources: p.Resources(),
		fonts:     make(map[string]*fontState),
		gs:        graphicsState{ctm: identity, scale: 1},
		tm:        identity,
		tlm:       identity,
	}

	contents := p.V.Key("Contents")
	switch contents.Kind() {
	case lpdf.Array:
		for i := 0; i < contents.Len(); i++ {
			in.run(contents.Index(i))
		}
	case lpdf.Stream:
		in.run(contents)
	}
	return out
}

func (in *interpreter) run(strm lpdf.Value) {
	defer func() {
		if r := recover(); r != nil {
			in.out.faults++
			logger.Warn("content stream interpretation stopped early",
				logger.Int("page", in.page+1),
				logger.Int("spans", len(in.out.spans)),
				logger.Any("cause", r))
		}
	}()
	lpdf.Interpret(strm, in.do)
}

func (in *interpreter) do(stk *lpdf.Stack, op string) {
	n := stk.Len()
	args := make([]lpdf.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}
	num := func(i int) float64 {
		if i < len(args) {
			return args[i].Float64()
		}
		return 0
	}

	switch op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if len(in.stack) > 0 {
			in.gs = in.stack[len(in.stack)-1]
			in.stack = in.stack[:len(in.stack)-1]
		}
	case "cm":
		if len(args) == 6 {
			in.gs.ctm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}.multiply(in.gs.ctm)
		}

	case "g":
		in.gs.fill = Gray(num(0))
	case "rg":
		in.gs.fill = Color{R: num(0), G: num(1), B: num(2)}
	case "k":
		in.gs.fill = cmykToRGB(num(0), num(1), num(2), num(3))
	case "cs":
		in.gs.fill = Black
	case "sc", "scn":
		in.setFillComponents(args)

	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		if len(args) == 2 {
			in.gs.font = in.lookupFont(args[0].Name())
			in.gs.fontSize = num(1)
		}
	case "Tc":
		in.gs.charSpace = num(0)
	case "Tw":
		in.gs.wordSpace = num(0)
	case "Tz":
		in.gs.scale = num(0) / 100
	case "TL":
		in.gs.leading = num(0)
	case "Ts":
		in.gs.rise = num(0)
	case "Td":
		in.moveLine(num(0), num(1))
	case "TD":
		in.gs.leading = -num(1)
		in.moveLine(num(0), num(1))
	case "T*":
		in.moveLine(0, -in.gs.leading)
	case "Tm":
		if len(args) == 6 {
			in.tlm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
			in.tm = in.tlm
		}
	case "Tj":
		if len(args) == 1 {
			in.show(args[0].RawString())
		}
	case "'":
		in.moveLine(0, -in.gs.leading)
		if len(args) == 1 {
			in.show(args[0].RawString())
		}
	case "\"":
		if len(args) == 3 {
			in.gs.wordSpace = num(0)
			in.gs.charSpace = num(1)
			in.moveLine(0, -in.gs.leading)
			in.show(args[2].RawString())
		}
	case "TJ":
		if len(args) == 1 && args[0].Kind() == lpdf.Array {
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				el := arr.Index(i)
				if el.Kind() == lpdf.String {
					in.show(el.RawString())
					continue
				}
				adj := -el.Float64() / 1000 * in.gs.fontSize * in.gs.scale
				in.tm = translation(adj, 0).multiply(in.tm)
			}
		}

	case "Do":
		if len(args) == 1 {
			in.paintXObject(args[0].Name())
		}
	}
}

func (in *interpreter) moveLine(tx, ty float64) {
	in.tlm = translation(tx, ty).multiply(in.tlm)
	in.tm = in.tlm
}

func (in *interpreter) setFillComponents(args []lpdf.Value) {
	var comps []float64
	for _, a := range args {
		switch a.Kind() {
		case lpdf.Integer, lpdf.Real:
			comps = append(comps, a.Float64())
		default:
			return
		}
	}
	switch len(comps) {
	case 1:
		in.gs.fill = Gray(comps[0])
	case 3:
		in.gs.fill = Color{R: comps[0], G: comps[1], B: comps[2]}
	case 4:
		in.gs.fill = cmykToRGB(comps[0], comps[1], comps[2], comps[3])
	}
}

func cmykToRGB(c, m, y, k float64) Color {
	return Color{R: (1 - c) * (1 - k), G: (1 - m) * (1 - k), B: (1 - y) * (1 - k)}
}

func (in *interpreter) lookupFont(name string) *fontState {
	if f, ok := in.fonts[name]; ok {
		return f
	}
	font := lpdf.Font{V: in.resources.Key("Font").Key(name)}
	f := &fontState{
		name:      stripSubsetPrefix(font.BaseFont()),
		font:      font,
		enc:       fontEncoder(font),
		composite: font.V.Key("Subtype").Name() == "Type0",
	}
	if f.composite {
		f.cid = loadCIDWidths(font.V.Key("DescendantFonts").Index(0))
		f.identity = identityEncoding(font.V.Key("Encoding").Name())
	}
	if f.name == "" {
		f.name = name
	}
	in.fonts[name] = f
	return f
}

// fontEncoder returns the font's text decoder. Broken ToUnicode maps make
// lpdf panic; those fonts decode as raw bytes.
func fontEncoder(font lpdf.Font) (enc lpdf.TextEncoding) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("font encoding unreadable", logger.String("font", font.BaseFont()), logger.Any("cause", r))
			enc = rawEncoding{}
		}
	}()
	return font.Encoder()
}

type rawEncoding struct{}

func (rawEncoding) Decode(raw string) string { return raw }

// stripSubsetPrefix removes the "ABCDEF+" tag of subset fonts.
func stripSubsetPrefix(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

// show records a shown string and advances the text matrix.
func (in *interpreter) show(raw string) {
	f := in.gs.font
	if f == nil || raw == "" {
		return
	}
	size := in.gs.fontSize
	text := f.enc.Decode(raw)

	var advance float64
	switch {
	case f.composite && f.identity && len(raw)%2 == 0:
		for i := 0; i+1 < len(raw); i += 2 {
			cid := int(raw[i])<<8 | int(raw[i+1])
			advance += f.cid.width(cid)/1000*size + in.gs.charSpace
		}
	case f.composite:
		glyphs := float64(utf8.RuneCountInString(text))
		advance = glyphs * (f.cid.dw/1000*size + in.gs.charSpace)
	default:
		for i := 0; i < len(raw); i++ {
			w := f.font.Width(int(raw[i]))
			if w <= 0 {
				w = defaultGlyphWidth
			}
			advance += w/1000*size + in.gs.charSpace
			if raw[i] == ' ' {
				advance += in.gs.wordSpace
			}
		}
	}
	advance *= in.gs.scale

	toDevice := in.tm.multiply(in.gs.ctm)
	sx, sy := in.frame.toPage(toDevice.transform(0, in.gs.rise))
	ex, ey := in.frame.toPage(toDevice.transform(advance, in.gs.rise))
	dir := textDirection(in.frame.direction(toDevice[0], toDevice[1]))
	effSize := size * math.Hypot(toDevice[2], toDevice[3])

	if effSize > 0 {
		rsx, rsy := toReading(dir, in.size, sx, sy)
		rex, _ := toReading(dir, in.size, ex, ey)
		in.out.spans = append(in.out.spans, textSpan{
			text:     text,
			font:     f.name,
			size:     effSize,
			color:    in.gs.fill,
			dir:      dir,
			x0:       math.Min(rsx, rex),
			x1:       math.Max(rsx, rex),
			baseline: rsy,
		})
	}
	in.tm = translation(advance, 0).multiply(in.tm)
}

func (in *interpreter) paintXObject(name string) {
	xobj := in.resources.Key("XObject").Key(name)
	switch xobj.Key("Subtype").Name() {
	case "Image":
		ctm := in.gs.ctm
		x0, y0 := in.frame.toPage(ctm.transform(0, 0))
		x1, y1 := in.frame.toPage(ctm.transform(1, 1))
		x2, y2 := in.frame.toPage(ctm.transform(0, 1))
		x3, y3 := in.frame.toPage(ctm.transform(1, 0))
		in.out.images = append(in.out.images, imagePlacement{
			name: name,
			bbox: NewRect(
				math.Min(math.Min(x0, x1), math.Min(x2, x3)),
				math.Min(math.Min(y0, y1), math.Min(y2, y3)),
				math.Max(math.Max(x0, x1), math.Max(x2, x3)),
				math.Max(math.Max(y0, y1), math.Max(y2, y3)),
			),
		})

	case "Form":
		if in.depth >= maxFormDepth {
			logger.Debug("form nesting too deep", logger.Int("page", in.page+1), logger.String("xobject", name))
			return
		}
		form := identity
		if m := xobj.Key("Matrix"); m.Kind() == lpdf.Array && m.Len() == 6 {
			for i := range form {
				form[i] = m.Index(i).Float64()
			}
		}

		savedGS, savedStack := in.gs, append([]graphicsState(nil), in.stack...)
		savedRes, savedFonts := in.resources, in.fonts
		savedTM, savedTLM := in.tm, in.tlm

		in.gs.ctm = form.multiply(in.gs.ctm)
		if res := xobj.Key("Resources"); !res.IsNull() {
			in.resources = res
			in.fonts = make(map[string]*fontState)
		}
		in.depth++
		in.run(xobj)
		in.depth--

		in.gs, in.stack = savedGS, savedStack
		in.resources, in.fonts = savedRes, savedFonts
		in.tm, in.tlm = savedTM, savedTLM
	}
}
