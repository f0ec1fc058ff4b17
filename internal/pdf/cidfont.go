package pdf

import lpdf "github.com/ledongthuc/pdf"

// cidRange gives every CID in [first, last] the same width.
type cidRange struct {
	first, last int
	width       float64
}

// cidWidths is the /W and /DW data of a CIDFont, in 1/1000 em.
type cidWidths struct {
	dw     float64
	single map[int]float64
	ranges []cidRange
}

// loadCIDWidths reads the widths of a descendant CIDFont. A missing or
// malformed /W leaves every glyph at /DW.
func loadCIDWidths(font lpdf.Value) *cidWidths {
	cw := &cidWidths{dw: defaultCIDWidth, single: make(map[int]float64)}
	if dw := font.Key("DW"); dw.Kind() == lpdf.Integer || dw.Kind() == lpdf.Real {
		cw.dw = dw.Float64()
	}

	w := font.Key("W")
	if w.Kind() != lpdf.Array {
		return cw
	}
	for i := 0; i < w.Len(); {
		first := w.Index(i)
		if first.Kind() != lpdf.Integer || i+1 >= w.Len() {
			break
		}
		c := int(first.Int64())
		next := w.Index(i + 1)
		if next.Kind() == lpdf.Array {
			for j := 0; j < next.Len(); j++ {
				cw.single[c+j] = next.Index(j).Float64()
			}
			i += 2
			continue
		}
		if i+2 >= w.Len() {
			break
		}
		cw.ranges = append(cw.ranges, cidRange{first: c, last: int(next.Int64()), width: w.Index(i + 2).Float64()})
		i += 3
	}
	return cw
}

func (cw *cidWidths) width(cid int) float64 {
	if w, ok := cw.single[cid]; ok {
		return w
	}
	for _, r := range cw.ranges {
		if cid >= r.first && cid <= r.last {
			return r.width
		}
	}
	return cw.dw
}

// identityEncoding reports whether a composite font's codes are two-byte CIDs.
func identityEncoding(name string) bool {
	return name == "Identity-H" || name == "Identity-V"
}
