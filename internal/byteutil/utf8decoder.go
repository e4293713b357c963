// Package byteutil provides the streaming byte-level transforms the host I/O
// bridge needs: a UTF-8 decoder that tolerates chunk boundaries, and a VT
// key-event encoder.
package byteutil

import "unicode/utf8"

// ReplacementRune is emitted in place of any malformed input byte.
const ReplacementRune = utf8.RuneError

// Utf8StreamDecoder decodes a byte stream into runes across repeated
// Append calls, buffering an incomplete trailing multi-byte sequence
// instead of emitting a replacement rune for it too early. Malformed bytes
// are replaced with U+FFFD one byte at a time so decoding always makes
// forward progress.
//
// Not safe for concurrent use; callers serialize access (the host-input
// reader owns one decoder per input stream).
type Utf8StreamDecoder struct {
	pending []byte
}

// NewUtf8StreamDecoder returns a decoder with no buffered state.
func NewUtf8StreamDecoder() *Utf8StreamDecoder {
	return &Utf8StreamDecoder{}
}

// Append decodes as many complete runes as possible from data, appending
// them to dst, and returns the extended slice. Any incomplete trailing
// sequence is retained internally and completed by a later Append call (or
// flushed via Flush at stream end).
func (d *Utf8StreamDecoder) Append(dst []rune, data []byte) []rune {
	buf := data
	if len(d.pending) > 0 {
		buf = append(append([]byte(nil), d.pending...), data...)
		d.pending = nil
	}

	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size <= 1 {
			if size == 0 {
				// Empty input; nothing to do.
				break
			}
			if couldBeIncomplete(buf) {
				d.pending = append(d.pending, buf...)
				buf = nil
				break
			}
			dst = append(dst, ReplacementRune)
			buf = buf[1:]
			continue
		}
		dst = append(dst, r)
		buf = buf[size:]
	}
	return dst
}

// Flush decodes any buffered trailing bytes as malformed (stream ended
// before the sequence completed) and clears internal state.
func (d *Utf8StreamDecoder) Flush(dst []rune) []rune {
	for range d.pending {
		dst = append(dst, ReplacementRune)
	}
	d.pending = nil
	return dst
}

// couldBeIncomplete reports whether buf looks like the start of a multi-byte
// UTF-8 sequence that simply hasn't been fully received yet, as opposed to a
// definitely-malformed byte sequence.
func couldBeIncomplete(buf []byte) bool {
	b0 := buf[0]
	var want int
	switch {
	case b0&0x80 == 0x00:
		return false // ASCII, always complete
	case b0&0xE0 == 0xC0:
		want = 2
	case b0&0xF0 == 0xE0:
		want = 3
	case b0&0xF8 == 0xF0:
		want = 4
	default:
		return false // stray continuation byte or invalid leading byte
	}
	if len(buf) >= want {
		return false // full length present but still invalid -> malformed
	}
	for _, b := range buf[1:] {
		if b&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
