package vt

import "github.com/charmbracelet/x/ansi"

// parser is a byte-stream VT state machine: ground / escape / CSI-entry /
// CSI-param / CSI-intermediate / OSC. Malformed sequences never abort
// emulation — on any unexpected byte the parser resynchronises by
// returning to ground at the next control introducer.
type parser struct {
	buf   *Buffer
	state state

	params       []int
	curParamSet  bool
	curParam     int
	intermediates []byte
}

type state int

const (
	stateGround state = iota
	stateEscape
	stateCSIEntry
	stateCSIParam
	stateCSIIntermediate
	stateOSC
)

// esc/bel are aliased from charmbracelet/x/ansi's C0 control-code table
// rather than hand-rolled literals.
const (
	esc = ansi.ESC
	bel = ansi.BEL
)

func newParser(b *Buffer) *parser {
	return &parser{buf: b, state: stateGround}
}

// feed decodes data as a sequence of runes and drives the state machine.
// Printable multi-byte runes are only meaningful in ground state; every
// other state operates strictly on bytes per the ANSI/CSI grammar.
func (p *parser) feed(data string) {
	for _, r := range data {
		p.step(r)
	}
}

func (p *parser) step(r rune) {
	switch p.state {
	case stateGround:
		p.stepGround(r)
	case stateEscape:
		p.stepEscape(byte(r))
	case stateCSIEntry, stateCSIParam:
		p.stepCSI(byte(r))
	case stateCSIIntermediate:
		p.stepCSIIntermediate(byte(r))
	case stateOSC:
		p.stepOSC(byte(r))
	}
}

func (p *parser) stepGround(r rune) {
	switch r {
	case esc:
		p.state = stateEscape
		return
	case ansi.LF:
		p.buf.lineFeed()
		return
	case ansi.CR:
		p.buf.carriageReturn()
		return
	case ansi.BS:
		p.buf.backspace()
		return
	case ansi.HT:
		p.buf.tab()
		return
	}
	if r < ansi.SP {
		return // other C0 controls: ignored, not printed
	}
	p.buf.putChar(r)
}

func (p *parser) stepEscape(b byte) {
	switch {
	case b == '[':
		p.beginCSI()
	case b == ']':
		p.state = stateOSC
	case b == '7':
		p.buf.saveCursor()
		p.state = stateGround
	case b == '8':
		p.buf.restoreCursor()
		p.state = stateGround
	case b == 'M':
		p.buf.reverseIndex()
		p.state = stateGround
	default:
		// Unknown/unsupported escape: resynchronise silently.
		p.state = stateGround
	}
}

func (p *parser) beginCSI() {
	p.params = p.params[:0]
	p.curParam = 0
	p.curParamSet = false
	p.intermediates = p.intermediates[:0]
	p.state = stateCSIEntry
}

func (p *parser) stepCSI(b byte) {
	switch {
	case b >= '0' && b <= '9':
		p.curParam = p.curParam*10 + int(b-'0')
		p.curParamSet = true
		p.state = stateCSIParam
	case b == ';':
		p.params = append(p.params, p.curParamValue())
		p.curParam = 0
		p.curParamSet = false
		p.state = stateCSIParam
	case b == '?' || b == '<' || b == '>' || b == '=':
		p.intermediates = append(p.intermediates, b)
		p.state = stateCSIIntermediate
	case b >= 0x40 && b <= 0x7e:
		p.finishParam()
		p.dispatchCSI(rune(b))
		p.state = stateGround
	default:
		p.state = stateGround
	}
}

func (p *parser) stepCSIIntermediate(b byte) {
	switch {
	case b >= '0' && b <= '9':
		p.curParam = p.curParam*10 + int(b-'0')
		p.curParamSet = true
	case b == ';':
		p.params = append(p.params, p.curParamValue())
		p.curParam = 0
		p.curParamSet = false
	case b >= 0x40 && b <= 0x7e:
		p.finishParam()
		p.dispatchCSI(rune(b))
		p.state = stateGround
	default:
		p.state = stateGround
	}
}

func (p *parser) curParamValue() int {
	if !p.curParamSet {
		return 0
	}
	return p.curParam
}

func (p *parser) finishParam() {
	if p.curParamSet || len(p.params) == 0 {
		p.params = append(p.params, p.curParamValue())
	}
}

func (p *parser) stepOSC(b byte) {
	if b == bel || b == esc {
		p.state = stateGround
	}
	// OSC payload bytes are discarded — no title/clipboard handling needed
	// to render agent UIs into text.
}

// isPrivateOrMouse reports whether this CSI sequence is a DEC private mode
// (ESC[?...h/l) or SGR mouse report (ESC[<...) — both accepted and ignored.
func (p *parser) isPrivateOrMouse() bool {
	for _, b := range p.intermediates {
		if b == '?' || b == '<' {
			return true
		}
	}
	return false
}

func (p *parser) dispatchCSI(action rune) {
	if p.isPrivateOrMouse() {
		return
	}
	params := p.params
	b := p.buf

	param := func(i int, def int) int {
		if i >= len(params) {
			return def
		}
		return params[i]
	}

	switch action {
	case 'A':
		b.cursorUp(param(0, 1))
	case 'B':
		b.cursorDown(param(0, 1))
	case 'C':
		b.cursorFwd(param(0, 1))
	case 'D':
		b.cursorBack(param(0, 1))
	case 'H', 'f':
		b.cursorPosition(param(0, 1), param(1, 1))
	case 'G':
		b.cursorColAbs(param(0, 1))
	case 'd':
		b.cursorRowAbs(param(0, 1))
	case 'J':
		switch param(0, 0) {
		case 0:
			b.eraseToEOS()
		case 1:
			b.eraseFromSOS()
		case 2, 3:
			b.clearScreen()
		}
	case 'K':
		switch param(0, 0) {
		case 0:
			b.eraseToEOL()
		case 1:
			b.eraseFromSOL()
		case 2:
			b.eraseLine()
		}
	case 'L':
		b.insertLines(clampNonZero(param(0, 1)))
	case 'M':
		b.deleteLines(clampNonZero(param(0, 1)))
	case 'P':
		b.deleteChars(clampNonZero(param(0, 1)))
	case '@':
		b.insertChars(clampNonZero(param(0, 1)))
	case 'X':
		b.eraseChars(clampNonZero(param(0, 1)))
	case 's':
		b.saveCursor()
	case 'u':
		b.restoreCursor()
	case 'm':
		b.handleSGR(params)
	}
}
