package vt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/colorprofile"
)

// WriteANSI renders the current screen as truecolor-styled text and writes
// it through a colorprofile.Writer, which downsamples any 24-bit cell color
// to 256-color or 16-color escape sequences when profile isn't truecolor.
// Used only by the "agr dump" debug command — the extractor's frame-hash
// dedup hashes the plain text of StyledLines (characters only, no styles),
// never this.
func (b *Buffer) WriteANSI(w io.Writer, profile colorprofile.Profile) error {
	cw := &colorprofile.Writer{Forward: w, Profile: profile}
	_, err := io.WriteString(cw, b.renderTrueColor())
	return err
}

func (b *Buffer) renderTrueColor() string {
	var sb strings.Builder
	for r := 0; r < b.rows; r++ {
		for _, c := range b.cells[r] {
			writeStyledCell(&sb, c)
		}
		if r < b.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func writeStyledCell(sb *strings.Builder, c Cell) {
	ch := c.Char
	if ch == 0 {
		ch = ' '
	}
	codes := sgrCodes(c.Style)
	if len(codes) == 0 {
		sb.WriteRune(ch)
		return
	}
	sb.WriteString("\x1b[")
	sb.WriteString(strings.Join(codes, ";"))
	sb.WriteByte('m')
	sb.WriteRune(ch)
	sb.WriteString("\x1b[0m")
}

func sgrCodes(s CellStyle) []string {
	var codes []string
	if s.Bold {
		codes = append(codes, "1")
	}
	if s.Dim {
		codes = append(codes, "2")
	}
	if s.Italic {
		codes = append(codes, "3")
	}
	if s.Underline {
		codes = append(codes, "4")
	}
	if s.Reverse {
		codes = append(codes, "7")
	}
	if code := colorSGR(s.FG, false); code != "" {
		codes = append(codes, code)
	}
	if code := colorSGR(s.BG, true); code != "" {
		codes = append(codes, code)
	}
	return codes
}

func colorSGR(c Color, background bool) string {
	base := 38
	if background {
		base = 48
	}
	switch c.Kind {
	case ColorRGB:
		return fmt.Sprintf("%d;2;%d;%d;%d", base, c.R, c.G, c.B)
	case ColorIndexed:
		return fmt.Sprintf("%d;5;%d", base, c.Index)
	case ColorNamed:
		return namedSGR(c.Named, background)
	default:
		return ""
	}
}

func namedSGR(named int, background bool) string {
	offset := 30
	if background {
		offset = 40
	}
	if named >= BrightBlack {
		return fmt.Sprintf("%d", offset+60+(named-BrightBlack))
	}
	return fmt.Sprintf("%d", offset+named)
}
