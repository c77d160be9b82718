// Package vt implements a hand-rolled virtual terminal: enough ANSI/CSI/SGR
// fidelity to render an AI agent's terminal UI into styled text, not a
// general-purpose terminal emulator. The state machine and SGR handling are
// ported from the original recorder's vte-based performer.
package vt

// ColorKind tags which color representation a Color holds.
type ColorKind int

const (
	ColorDefault ColorKind = iota
	ColorNamed
	ColorIndexed
	ColorRGB
)

// Named color indices, matching the standard 8 (30-37/40-47) plus the
// bright 8 (90-97/100-107).
const (
	Black = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
	BrightBlack
	BrightRed
	BrightGreen
	BrightYellow
	BrightBlue
	BrightMagenta
	BrightCyan
	BrightWhite
)

// Color is a tagged variant: default, one of 16 named colors, a 256-palette
// index, or 24-bit RGB.
type Color struct {
	Kind    ColorKind
	Named   int
	Index   uint8
	R, G, B uint8
}

// DefaultColor is the zero-value "use terminal default" color.
var DefaultColor = Color{Kind: ColorDefault}

func NamedColor(n int) Color   { return Color{Kind: ColorNamed, Named: n} }
func IndexedColor(i uint8) Color { return Color{Kind: ColorIndexed, Index: i} }
func RGBColor(r, g, b uint8) Color { return Color{Kind: ColorRGB, R: r, G: g, B: b} }

// CellStyle is the current graphic rendition: colors plus boolean
// attributes. The zero value is "no attributes, default colors".
type CellStyle struct {
	FG, BG                                Color
	Bold, Dim, Italic, Underline, Reverse bool
}

// Cell is one grid position: a character plus the style it was written
// with. Wide characters occupy two cells; the trailing cell holds a space
// placeholder carrying the same style.
type Cell struct {
	Char  rune
	Style CellStyle
}

// DefaultCell is a blank cell with default style, used to clear the grid.
var DefaultCell = Cell{Char: ' '}
