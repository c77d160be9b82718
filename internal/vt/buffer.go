package vt

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Buffer is a fixed-size grid of styled cells, a cursor, a current style,
// and an optional saved-cursor slot. Invariants: cursor stays within
// bounds; scrolling drops the top row and appends a blank bottom row.
type Buffer struct {
	cells  [][]Cell
	cols   int
	rows   int
	curCol int
	curRow int
	style  CellStyle
	saved  *[2]int
	parser *parser
}

// New creates a cols x rows buffer with every cell at its default value.
func New(cols, rows int) *Buffer {
	b := &Buffer{cols: cols, rows: rows}
	b.cells = make([][]Cell, rows)
	for i := range b.cells {
		b.cells[i] = blankRow(cols)
	}
	b.parser = newParser(b)
	return b
}

func blankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = DefaultCell
	}
	return row
}

// Dimensions returns (cols, rows).
func (b *Buffer) Dimensions() (int, int) { return b.cols, b.rows }

// Cursor returns the current (col, row).
func (b *Buffer) Cursor() (int, int) { return b.curCol, b.curRow }

// Row returns a copy of row i's cells.
func (b *Buffer) Row(i int) []Cell {
	if i < 0 || i >= b.rows {
		return nil
	}
	out := make([]Cell, b.cols)
	copy(out, b.cells[i])
	return out
}

// Process advances the emulator with the given byte stream. The resize
// hint, when non-nil, is applied (via Resize) before processing the data —
// mirroring a "resize" cast event being delivered alongside output.
func (b *Buffer) Process(data string, resizeHint *[2]int) {
	if resizeHint != nil {
		b.Resize(resizeHint[0], resizeHint[1])
	}
	b.parser.feed(data)
}

// Resize rebuilds the buffer preserving content by position and clamps the
// cursor into the new bounds.
func (b *Buffer) Resize(cols, rows int) {
	if cols == b.cols && rows == b.rows {
		return
	}
	newCells := make([][]Cell, rows)
	for r := 0; r < rows; r++ {
		newCells[r] = blankRow(cols)
		if r < b.rows {
			n := cols
			if b.cols < n {
				n = b.cols
			}
			copy(newCells[r], b.cells[r][:n])
		}
	}
	b.cells = newCells
	b.cols = cols
	b.rows = rows
	if b.curCol >= cols {
		b.curCol = cols - 1
	}
	if b.curRow >= rows {
		b.curRow = rows - 1
	}
	if b.curCol < 0 {
		b.curCol = 0
	}
	if b.curRow < 0 {
		b.curRow = 0
	}
}

// StyledLines renders the grid as one string per row, trimming trailing
// whitespace and dropping trailing empty rows — matching the original
// Display impl used before hashing for dedup.
func (b *Buffer) StyledLines() []string {
	lines := make([]string, 0, b.rows)
	for r := 0; r < b.rows; r++ {
		var sb strings.Builder
		for _, c := range b.cells[r] {
			ch := c.Char
			if ch == 0 {
				ch = ' '
			}
			sb.WriteRune(ch)
		}
		lines = append(lines, strings.TrimRight(sb.String(), " \t"))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// String renders the current visible screen as newline-joined text.
func (b *Buffer) String() string {
	return strings.Join(b.StyledLines(), "\n")
}

// --- cursor/line operations, ported from terminal/performer.rs ---

func (b *Buffer) lineFeed() {
	if b.curRow+1 < b.rows {
		b.curRow++
		return
	}
	b.cells = append(b.cells[1:], blankRow(b.cols))
}

func (b *Buffer) carriageReturn() { b.curCol = 0 }

func (b *Buffer) backspace() {
	if b.curCol > 0 {
		b.curCol--
	}
}

// putChar writes a character at the cursor with the current style,
// advancing by its display width (0, 1, or 2). A character whose width
// cannot be determined is treated as width 1.
func (b *Buffer) putChar(c rune) {
	width := runewidth.RuneWidth(c)
	if width == 0 {
		return
	}
	if b.curCol+width > b.cols {
		b.lineFeed()
		b.carriageReturn()
	}
	if b.curRow < b.rows && b.curCol < b.cols {
		b.cells[b.curRow][b.curCol] = Cell{Char: c, Style: b.style}
		b.curCol++
		if width == 2 && b.curCol < b.cols {
			b.cells[b.curRow][b.curCol] = Cell{Char: ' ', Style: b.style}
			b.curCol++
		}
	}
}

func (b *Buffer) eraseToEOL() {
	if b.curRow >= b.rows {
		return
	}
	for c := b.curCol; c < b.cols; c++ {
		b.cells[b.curRow][c] = DefaultCell
	}
}

func (b *Buffer) eraseLine() {
	if b.curRow >= b.rows {
		return
	}
	b.cells[b.curRow] = blankRow(b.cols)
}

func (b *Buffer) eraseFromSOL() {
	if b.curRow >= b.rows {
		return
	}
	end := b.curCol
	if end > b.cols-1 {
		end = b.cols - 1
	}
	for c := 0; c <= end; c++ {
		b.cells[b.curRow][c] = DefaultCell
	}
}

func (b *Buffer) eraseFromSOS() {
	for r := 0; r < b.curRow; r++ {
		b.cells[r] = blankRow(b.cols)
	}
	b.eraseFromSOL()
}

func (b *Buffer) eraseToEOS() {
	b.eraseToEOL()
	for r := b.curRow + 1; r < b.rows; r++ {
		b.cells[r] = blankRow(b.cols)
	}
}

func (b *Buffer) clearScreen() {
	for r := 0; r < b.rows; r++ {
		b.cells[r] = blankRow(b.cols)
	}
	b.curRow = 0
	b.curCol = 0
}

func (b *Buffer) deleteChars(n int) {
	if b.curRow >= b.rows {
		return
	}
	row := b.cells[b.curRow]
	for i := b.curCol; i < b.cols; i++ {
		if i+n < b.cols {
			row[i] = row[i+n]
		} else {
			row[i] = DefaultCell
		}
	}
}

func (b *Buffer) insertChars(n int) {
	if b.curRow >= b.rows {
		return
	}
	row := b.cells[b.curRow]
	for i := b.cols - 1; i >= b.curCol+n; i-- {
		row[i] = row[i-n]
	}
	end := b.curCol + n
	if end > b.cols {
		end = b.cols
	}
	for i := b.curCol; i < end; i++ {
		row[i] = DefaultCell
	}
}

func (b *Buffer) deleteLines(n int) {
	for i := 0; i < n; i++ {
		if b.curRow >= b.rows {
			continue
		}
		b.cells = append(b.cells[:b.curRow], b.cells[b.curRow+1:]...)
		b.cells = append(b.cells, blankRow(b.cols))
	}
}

func (b *Buffer) insertLines(n int) {
	for i := 0; i < n; i++ {
		if b.curRow >= b.rows {
			continue
		}
		b.cells = b.cells[:len(b.cells)-1]
		tail := append([][]Cell{blankRow(b.cols)}, b.cells[b.curRow:]...)
		b.cells = append(b.cells[:b.curRow], tail...)
	}
}

func (b *Buffer) eraseChars(n int) {
	if b.curRow >= b.rows {
		return
	}
	for i := 0; i < n; i++ {
		col := b.curCol + i
		if col < b.cols {
			b.cells[b.curRow][col] = DefaultCell
		}
	}
}

func (b *Buffer) saveCursor() {
	b.saved = &[2]int{b.curRow, b.curCol}
}

func (b *Buffer) restoreCursor() {
	if b.saved == nil {
		return
	}
	row, col := b.saved[0], b.saved[1]
	if row >= b.rows {
		row = b.rows - 1
	}
	if col >= b.cols {
		col = b.cols - 1
	}
	b.curRow, b.curCol = row, col
}

// reverseIndex moves the cursor up, scrolling the buffer down (inserting a
// blank row at the top and dropping the bottom row) when already at row 0.
func (b *Buffer) reverseIndex() {
	if b.curRow > 0 {
		b.curRow--
		return
	}
	b.cells = b.cells[:len(b.cells)-1]
	b.cells = append([][]Cell{blankRow(b.cols)}, b.cells...)
}

func clampNonZero(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (b *Buffer) cursorUp(n int)    { b.curRow = max0(b.curRow - clampNonZero(n)) }
func (b *Buffer) cursorDown(n int)  { b.curRow = minInt(b.curRow+clampNonZero(n), b.rows-1) }
func (b *Buffer) cursorFwd(n int)   { b.curCol = minInt(b.curCol+clampNonZero(n), b.cols-1) }
func (b *Buffer) cursorBack(n int)  { b.curCol = max0(b.curCol - clampNonZero(n)) }

func (b *Buffer) cursorPosition(row, col int) {
	if row < 1 {
		row = 1
	}
	if col < 1 {
		col = 1
	}
	b.curRow = minInt(row-1, b.rows-1)
	b.curCol = minInt(col-1, b.cols-1)
}

func (b *Buffer) cursorColAbs(col int) {
	if col < 1 {
		col = 1
	}
	b.curCol = minInt(col-1, b.cols-1)
}

func (b *Buffer) cursorRowAbs(row int) {
	if row < 1 {
		row = 1
	}
	b.curRow = minInt(row-1, b.rows-1)
}

func (b *Buffer) tab() {
	next := (b.curCol/8 + 1) * 8
	b.curCol = minInt(next, b.cols-1)
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
