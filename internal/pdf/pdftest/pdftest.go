// Package pdftest assembles small PDF documents for tests.
//
// Every page can use three fonts: /F1 is Helvetica with WinAnsiEncoding, /F2
// is CMMI10 whose ToUnicode map turns the codes a, b and + into α, β and +,
// and /F3 is a composite Identity-H font for the runes in CompositeRunes, one
// em wide except the space at a quarter em. Images are JPEG XObjects
// registered on their page under the given name.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sort"
	"strconv"
	"strings"
)

// Image is a JPEG image XObject.
type Image struct {
	Name          string
	Data          []byte
	Width, Height int
}

// Page is one page of a test document. Width and Height are the unrotated
// media box; Rotate is written as /Rotate when non-zero.
type Page struct {
	Width, Height float64
	Rotate        int
	Content       string
	Images        []Image
}

// Letter returns a 612x792 page.
func Letter(content string, images ...Image) Page {
	return Page{Width: 612, Height: 792, Content: content, Images: images}
}

const cmmiToUnicode = `1 begincodespacerange
<00> <FF>
endcodespacerange
3 beginbfchar
<61> <03B1>
<62> <03B2>
<2B> <002B>
endbfchar
`

// CompositeRunes maps the runes /F3 can show to their CIDs.
var CompositeRunes = map[rune]int{' ': 1, '한': 3, '국': 4, '어': 5, '문': 6, '서': 7}

func compositeToUnicode() string {
	var b strings.Builder
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	runes := make([]rune, 0, len(CompositeRunes))
	for r := range CompositeRunes {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return CompositeRunes[runes[i]] < CompositeRunes[runes[j]] })
	fmt.Fprintf(&b, "%d beginbfchar\n", len(runes))
	for _, r := range runes {
		fmt.Fprintf(&b, "<%04X> <%04X>\n", CompositeRunes[r], r)
	}
	b.WriteString("endbfchar\n")
	return b.String()
}

// Build returns the bytes of a PDF containing pages, with a classic xref
// table and an Info dictionary titled "Fixture Document".
func Build(pages ...Page) []byte {
	var objs [][]byte
	reserve := func() int {
		objs = append(objs, nil)
		return len(objs)
	}
	set := func(n int, body string) {
		objs[n-1] = []byte(body)
	}
	setStream := func(n int, dict string, data []byte) {
		var b bytes.Buffer
		fmt.Fprintf(&b, "<< %s /Length %d >>\nstream\n", dict, len(data))
		b.Write(data)
		b.WriteString("\nendstream")
		objs[n-1] = b.Bytes()
	}

	catalog := reserve()
	pagesObj := reserve()
	helvetica := reserve()
	cmmi := reserve()
	descriptor := reserve()
	toUnicode := reserve()
	info := reserve()
	composite := reserve()
	cidFont := reserve()
	cidDescriptor := reserve()
	cidToUnicode := reserve()

	set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj))
	set(helvetica, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	set(cmmi, fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /CMMI10 /FirstChar 32 /LastChar 126 /Widths [%s] /FontDescriptor %d 0 R /ToUnicode %d 0 R >>",
		strings.TrimSpace(strings.Repeat("500 ", 95)), descriptor, toUnicode))
	set(descriptor, "<< /Type /FontDescriptor /FontName /CMMI10 /Flags 4 /FontBBox [0 -250 1000 750] /ItalicAngle 0 /Ascent 750 /Descent -250 /CapHeight 683 /StemV 72 >>")
	setStream(toUnicode, "", []byte(cmmiToUnicode))
	set(composite, fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /MalgunGothic /Encoding /Identity-H /DescendantFonts [%d 0 R] /ToUnicode %d 0 R >>",
		cidFont, cidToUnicode))
	set(cidFont, fmt.Sprintf("<< /Type /Font /Subtype /CIDFontType2 /BaseFont /MalgunGothic /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor %d 0 R /DW 1000 /W [1 [250]] >>",
		cidDescriptor))
	set(cidDescriptor, "<< /Type /FontDescriptor /FontName /MalgunGothic /Flags 4 /FontBBox [0 -200 1000 800] /ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80 >>")
	setStream(cidToUnicode, "", []byte(compositeToUnicode()))
	set(info, "<< /Title (Fixture Document) /Author (pdftrans tests) /Producer (hand assembled) >>")

	var kids []string
	for _, p := range pages {
		pageObj := reserve()
		contentObj := reserve()
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))

		var xobjects []string
		for _, img := range p.Images {
			n := reserve()
			setStream(n, fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", img.Width, img.Height), img.Data)
			xobjects = append(xobjects, fmt.Sprintf("/%s %d 0 R", img.Name, n))
		}
		resources := fmt.Sprintf("/Font << /F1 %d 0 R /F2 %d 0 R /F3 %d 0 R >>", helvetica, cmmi, composite)
		if len(xobjects) > 0 {
			resources += " /XObject << " + strings.Join(xobjects, " ") + " >>"
		}

		rotate := ""
		if p.Rotate != 0 {
			rotate = fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		set(pageObj, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %g %g]%s /Contents %d 0 R /Resources << %s >> >>",
			pagesObj, p.Width, p.Height, rotate, contentObj, resources))
		setStream(contentObj, "", []byte(p.Content))
	}
	set(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n", i+1)
		b.Write(body)
		b.WriteString("\nendobj\n")
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root %d 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, catalog, info, xref)
	return b.Bytes()
}

// JPEG encodes a w x h gradient as a JPEG image.
func JPEG(name string, w, h int) (Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return Image{}, err
	}
	return Image{Name: name, Data: buf.Bytes(), Width: w, Height: h}, nil
}

// CorruptJPEG is a JPEG header followed by garbage.
func CorruptJPEG(name string, w, h int) Image {
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, []byte("this is not jpeg data at all")...)
	return Image{Name: name, Data: data, Width: w, Height: h}
}

// DrawImage returns content placing the named image at (x, y) in PDF space.
func DrawImage(name string, x, y, w, h float64) string {
	return fmt.Sprintf("q %g 0 0 %g %g %g cm /%s Do Q\n", w, h, x, y, name)
}

// TextLine returns content showing s with font at (x, y) in PDF space.
func TextLine(font string, size, x, y float64, s string) string {
	return fmt.Sprintf("BT /%s %g Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", font, size, x, y, s)
}

// CompositeText returns content showing s with /F3 at (x, y). Runes missing
// from CompositeRunes are dropped.
func CompositeText(size, x, y float64, s string) string {
	var hex strings.Builder
	for _, r := range s {
		if cid, ok := CompositeRunes[r]; ok {
			fmt.Fprintf(&hex, "%04X", cid)
		}
	}
	return fmt.Sprintf("BT /F3 %g Tf 1 0 0 1 %g %g Tm <%s> Tj ET\n", size, x, y, hex.String())
}

// ShiftXref adds delta to every in-use offset of the cross-reference table
// written by Build, leaving the objects themselves in place.
func ShiftXref(data []byte, delta int) []byte {
	start := bytes.LastIndex(data, []byte("\nxref\n"))
	end := bytes.LastIndex(data, []byte("trailer"))
	if start < 0 || end < start {
		return data
	}
	lines := strings.Split(string(data[start:end]), "\n")
	for i, l := range lines {
		f := strings.Fields(l)
		if len(f) != 3 || f[2] != "n" {
			continue
		}
		off, err := strconv.Atoi(f[0])
		if err != nil {
			continue
		}
		lines[i] = fmt.Sprintf("%010d %s n ", off+delta, f[1])
	}
	out := append([]byte(nil), data[:start]...)
	out = append(out, strings.Join(lines, "\n")...)
	return append(out, data[end:]...)
}
