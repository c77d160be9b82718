package vt

// handleSGR parses CSI `m` parameters statefully against the current
// style. Unknown parameters are skipped. Ported from the original
// implementation's handle_sgr.
func (b *Buffer) handleSGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	i := 0
	next := func() (int, bool) {
		if i >= len(params) {
			return 0, false
		}
		v := params[i]
		i++
		return v, true
	}

	for i < len(params) {
		p := params[i]
		i++
		switch {
		case p == 0:
			b.style = CellStyle{}
		case p == 1:
			b.style.Bold = true
		case p == 2:
			b.style.Dim = true
		case p == 3:
			b.style.Italic = true
		case p == 4:
			b.style.Underline = true
		case p == 7:
			b.style.Reverse = true
		case p == 22:
			b.style.Bold = false
			b.style.Dim = false
		case p == 23:
			b.style.Italic = false
		case p == 24:
			b.style.Underline = false
		case p == 27:
			b.style.Reverse = false
		case p >= 30 && p <= 37:
			b.style.FG = NamedColor(p - 30)
		case p == 38:
			if mode, ok := next(); ok {
				switch mode {
				case 5:
					if idx, ok := next(); ok {
						b.style.FG = IndexedColor(uint8(idx))
					}
				case 2:
					r, _ := next()
					g, _ := next()
					bl, _ := next()
					b.style.FG = RGBColor(uint8(r), uint8(g), uint8(bl))
				}
			}
		case p == 39:
			b.style.FG = DefaultColor
		case p >= 40 && p <= 47:
			b.style.BG = NamedColor(p - 40)
		case p == 48:
			if mode, ok := next(); ok {
				switch mode {
				case 5:
					if idx, ok := next(); ok {
						b.style.BG = IndexedColor(uint8(idx))
					}
				case 2:
					r, _ := next()
					g, _ := next()
					bl, _ := next()
					b.style.BG = RGBColor(uint8(r), uint8(g), uint8(bl))
				}
			}
		case p == 49:
			b.style.BG = DefaultColor
		case p >= 90 && p <= 97:
			b.style.FG = NamedColor(BrightBlack + (p - 90))
		case p >= 100 && p <= 107:
			b.style.BG = NamedColor(BrightBlack + (p - 100))
		default:
			// unknown parameter: skipped
		}
	}
}
