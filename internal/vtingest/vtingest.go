// Package vtingest bridges a client's raw VT output stream into mutations
// on an authoritative screenbuffer.ScreenBuffer. It is the "subset VT
// emulator" spec.md §1 scopes out of full terminal emulation: only enough to
// forward and apply the cell/cursor updates a client program's
// VT-processing-enabled output stream produces.
package vtingest

import (
	"github.com/vito/midterm"

	"github.com/oconsole/condrvhost/internal/screenbuffer"
)

// Writer decodes bytes through a scratch midterm.Terminal and mirrors the
// resulting cell content and cursor position onto a target ScreenBuffer.
// midterm owns no authoritative state here: it is used purely to resolve
// escape sequences, and every visible effect is replayed onto target so
// ScreenBuffer stays the single source of truth (snapshot publishing,
// resize, alternate-buffer handling all continue to operate on it alone).
type Writer struct {
	target *screenbuffer.ScreenBuffer
	term   *midterm.Terminal
	prev   [][]rune
}

// New creates a Writer sized to target's current buffer dimensions.
func New(target *screenbuffer.ScreenBuffer) *Writer {
	size := target.BufferSize()
	return &Writer{
		target: target,
		term:   midterm.NewTerminal(size.H, size.W),
	}
}

// Write feeds p through the scratch terminal and applies whatever cell and
// cursor changes result to the target buffer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.term.Write(p)
	w.sync()
	return n, err
}

// Resize matches the scratch terminal's dimensions to the target buffer's
// current size. Callers resize target first (SetScreenBufferSize), then
// call this so subsequent Write calls decode against the new dimensions.
func (w *Writer) Resize() {
	size := w.target.BufferSize()
	w.term.Resize(size.H, size.W)
	w.prev = nil
}

// sync diffs the scratch terminal's content against the last-seen content
// and writes only the cells that changed, then mirrors the cursor position.
func (w *Writer) sync() {
	rows := w.term.Content
	for y, line := range rows {
		var prevLine []rune
		if y < len(w.prev) {
			prevLine = w.prev[y]
		}
		for x, ch := range line {
			var old rune
			if x < len(prevLine) {
				old = prevLine[x]
			}
			if ch == old {
				continue
			}
			out := ch
			if out == 0 {
				out = ' '
			}
			w.target.WriteCell(x, y, out, w.target.TextAttributes())
		}
	}
	w.prev = cloneRows(rows)

	w.target.SetCursorPosition(screenbuffer.Point{X: w.term.Cursor.X, Y: w.term.Cursor.Y})
}

func cloneRows(rows [][]rune) [][]rune {
	out := make([][]rune, len(rows))
	for i, r := range rows {
		out[i] = append([]rune(nil), r...)
	}
	return out
}
