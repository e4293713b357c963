package byteutil

// VirtualKey identifies a key using the small subset of Windows virtual-key
// codes the encoder cares about. Values match the Win32 VK_* constants so a
// driver transport that already carries VK codes can pass them through
// unchanged.
type VirtualKey uint16

const (
	VKBack   VirtualKey = 0x08
	VKTab    VirtualKey = 0x09
	VKReturn VirtualKey = 0x0D
	VKEscape VirtualKey = 0x1B
	VKPrior  VirtualKey = 0x21 // Page Up
	VKNext   VirtualKey = 0x22 // Page Down
	VKEnd    VirtualKey = 0x23
	VKHome   VirtualKey = 0x24
	VKLeft   VirtualKey = 0x25
	VKUp     VirtualKey = 0x26
	VKRight  VirtualKey = 0x27
	VKDown   VirtualKey = 0x28
	VKInsert VirtualKey = 0x2D
	VKDelete VirtualKey = 0x2E
	VKF1     VirtualKey = 0x70
	VKF2     VirtualKey = 0x71
	VKF3     VirtualKey = 0x72
	VKF4     VirtualKey = 0x73
)

// ControlKeyState is a bitmask mirroring the driver's dwControlKeyState.
type ControlKeyState uint32

const (
	RightAltPressed  ControlKeyState = 0x0001
	LeftAltPressed   ControlKeyState = 0x0002
	RightCtrlPressed ControlKeyState = 0x0004
	LeftCtrlPressed  ControlKeyState = 0x0008
	ShiftPressed     ControlKeyState = 0x0010
)

func (s ControlKeyState) ctrl() bool {
	return s&(LeftCtrlPressed|RightCtrlPressed) != 0
}

func (s ControlKeyState) alt() bool {
	return s&(LeftAltPressed|RightAltPressed) != 0
}

// KeyEvent is the subset of a console INPUT_RECORD key event the encoder
// needs: whether the key went down, its virtual-key code, the resolved
// unicode character (0 if none), and the modifier mask.
type KeyEvent struct {
	KeyDown         bool
	VirtualKeyCode  VirtualKey
	UnicodeChar     rune
	ControlKeyState ControlKeyState
}

var vkSequences = map[VirtualKey]string{
	VKUp:     "\x1b[A",
	VKDown:   "\x1b[B",
	VKRight:  "\x1b[C",
	VKLeft:   "\x1b[D",
	VKHome:   "\x1b[H",
	VKEnd:    "\x1b[F",
	VKPrior:  "\x1b[5~",
	VKNext:   "\x1b[6~",
	VKDelete: "\x1b[3~",
	VKInsert: "\x1b[2~",
	VKF1:     "\x1bOP",
	VKF2:     "\x1bOQ",
	VKF3:     "\x1bOR",
	VKF4:     "\x1bOS",
}

// EncodeKeyEvent maps a (key-down, virtual-key, unicode, modifier) tuple to
// the byte sequence it should produce on the client's input stream. Key-up
// events always encode to nothing: VT input streams only carry key-down.
func EncodeKeyEvent(ev KeyEvent) []byte {
	if !ev.KeyDown {
		return nil
	}

	// Ctrl+C / Ctrl+D take priority over any VT sequence mapping: they must
	// still produce ETX/EOT so interactive clients see the conventional
	// control characters.
	if ev.ControlKeyState.ctrl() {
		switch ev.VirtualKeyCode {
		case 'C':
			return []byte{0x03}
		case 'D':
			return []byte{0x04}
		}
	}

	if seq, ok := vkSequences[ev.VirtualKeyCode]; ok {
		return []byte(seq)
	}

	switch ev.VirtualKeyCode {
	case VKReturn:
		return []byte{'\r'}
	case VKTab:
		return []byte{'\t'}
	case VKBack:
		return []byte{0x7f}
	case VKEscape:
		return []byte{0x1b}
	}

	if ev.UnicodeChar != 0 {
		encoded := encodeRune(ev.UnicodeChar)
		if len(encoded) == 0 {
			return nil
		}
		if ev.ControlKeyState.alt() {
			return append([]byte{0x1b}, encoded...)
		}
		return encoded
	}

	// Modifier-only combinations we don't have a stable VT mapping for (e.g.
	// Ctrl+Shift+<punctuation>) are dropped rather than guessed at.
	return nil
}

func encodeRune(r rune) []byte {
	if r == 0 {
		return nil
	}
	buf := make([]byte, 4)
	n := encodeRuneInto(buf, r)
	return buf[:n]
}

// encodeRuneInto writes r as UTF-8 into buf (len(buf) >= 4) and returns the
// number of bytes written. Equivalent to utf8.EncodeRune but kept local so
// this file has no dependency beyond what the encoding actually needs.
func encodeRuneInto(buf []byte, r rune) int {
	switch {
	case r < 0x80:
		buf[0] = byte(r)
		return 1
	case r < 0x800:
		buf[0] = 0xC0 | byte(r>>6)
		buf[1] = 0x80 | byte(r&0x3F)
		return 2
	case r < 0x10000:
		buf[0] = 0xE0 | byte(r>>12)
		buf[1] = 0x80 | byte((r>>6)&0x3F)
		buf[2] = 0x80 | byte(r&0x3F)
		return 3
	default:
		buf[0] = 0xF0 | byte(r>>18)
		buf[1] = 0x80 | byte((r>>12)&0x3F)
		buf[2] = 0x80 | byte((r>>6)&0x3F)
		buf[3] = 0x80 | byte(r&0x3F)
		return 4
	}
}

// IsEscSequenceComplete reports whether seq, a byte sequence believed to
// start with ESC, forms a complete escape sequence: CSI sequences
// (ESC [ ... final-byte) end at a byte in 0x40-0x7E; SS3 sequences
// (ESC O x) are always 3 bytes; anything else is complete as soon as the
// byte following ESC is seen.
func IsEscSequenceComplete(seq []byte) bool {
	if len(seq) < 2 {
		return false
	}
	switch seq[1] {
	case '[':
		if len(seq) < 3 {
			return false
		}
		final := seq[len(seq)-1]
		return final >= 0x40 && final <= 0x7E
	case 'O':
		return len(seq) >= 3
	default:
		return true
	}
}
