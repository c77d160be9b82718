package vt

import "testing"

func TestProcessPlainTextAdvancesCursor(t *testing.T) {
	b := New(10, 3)
	b.Process("hi", nil)
	col, row := b.Cursor()
	if col != 2 || row != 0 {
		t.Errorf("cursor = (%d, %d), want (2, 0)", col, row)
	}
	if got := b.String(); got != "hi" {
		t.Errorf("String() = %q, want %q", got, "hi")
	}
}

func TestProcessNewlineMovesToNextRow(t *testing.T) {
	b := New(10, 3)
	b.Process("one\r\ntwo", nil)
	if got := b.String(); got != "one\ntwo" {
		t.Errorf("String() = %q, want %q", got, "one\ntwo")
	}
}

func TestProcessScrollsWhenPastLastRow(t *testing.T) {
	b := New(5, 2)
	b.Process("a\r\nb\r\nc", nil)
	if got := b.String(); got != "b\nc" {
		t.Errorf("String() = %q, want %q (scrolled off the first line)", got, "b\nc")
	}
}

func TestCSICursorPositionMovesCursor(t *testing.T) {
	b := New(10, 5)
	b.Process("\x1b[3;4Hx", nil)
	col, row := b.Cursor()
	// CSI row;col H is 1-indexed, so CSI 3;4H puts the cursor at (row=2,
	// col=3) zero-indexed; writing 'x' then advances col to 4.
	if row != 2 || col != 4 {
		t.Errorf("cursor after CSI 3;4H + write = (%d, %d), want (4, 2)", col, row)
	}
}

func TestCSIEraseScreenClearsContent(t *testing.T) {
	b := New(10, 3)
	b.Process("hello", nil)
	b.Process("\x1b[2J", nil)
	if got := b.String(); got != "" {
		t.Errorf("String() after CSI 2J = %q, want empty", got)
	}
}

func TestSGRBoldSetsCellStyle(t *testing.T) {
	b := New(10, 1)
	b.Process("\x1b[1mx", nil)
	row := b.Row(0)
	if !row[0].Style.Bold {
		t.Error("expected the written cell to carry Bold=true after CSI 1m")
	}
}

func TestResizePreservesContentByPosition(t *testing.T) {
	b := New(5, 2)
	b.Process("ab\r\ncd", nil)
	b.Resize(10, 4)
	cols, rows := b.Dimensions()
	if cols != 10 || rows != 4 {
		t.Fatalf("Dimensions() = (%d, %d), want (10, 4)", cols, rows)
	}
	if got := b.String(); got != "ab\ncd" {
		t.Errorf("String() after resize = %q, want %q", got, "ab\ncd")
	}
}

// TestSGRPinnedColorAndAttributeSequences pins two literal escape sequences:
// "\x1b[31mR\x1b[0mN" must color its first cell red and reset the second to
// default, and "\x1b[1;4;31mX" must set bold, underline, and red together on
// one cell.
func TestSGRPinnedColorAndAttributeSequences(t *testing.T) {
	b := New(10, 1)
	b.Process("\x1b[31mR\x1b[0mN", nil)
	row := b.Row(0)
	if row[0].Style.FG != NamedColor(Red) {
		t.Errorf("row[0].Style.FG = %+v, want NamedColor(Red)", row[0].Style.FG)
	}
	if row[1].Style.FG != DefaultColor {
		t.Errorf("row[1].Style.FG = %+v, want DefaultColor", row[1].Style.FG)
	}

	b2 := New(10, 1)
	b2.Process("\x1b[1;4;31mX", nil)
	row2 := b2.Row(0)
	if !row2[0].Style.Bold || !row2[0].Style.Underline || row2[0].Style.FG != NamedColor(Red) {
		t.Errorf("row2[0].Style = %+v, want Bold=true, Underline=true, FG=NamedColor(Red)", row2[0].Style)
	}
}

func TestWideCharacterOccupiesTwoCells(t *testing.T) {
	b := New(10, 1)
	b.Process("测", nil)
	col, _ := b.Cursor()
	if col != 2 {
		t.Errorf("cursor col after a wide character = %d, want 2", col)
	}
}
