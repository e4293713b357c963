package vtingest

import (
	"testing"

	"github.com/oconsole/condrvhost/internal/screenbuffer"
)

func mustCreate(t *testing.T, w, h int) *screenbuffer.ScreenBuffer {
	t.Helper()
	sb, err := screenbuffer.Create(screenbuffer.Settings{
		BufferSize:    screenbuffer.Size{W: w, H: h},
		WindowSize:    screenbuffer.Size{W: w, H: h},
		MaxWindowSize: screenbuffer.Size{W: w, H: h},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return sb
}

func TestWriteMirrorsPlainTextAndCursor(t *testing.T) {
	sb := mustCreate(t, 10, 2)
	w := New(sb)

	if _, err := w.Write([]byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	c0, ok := sb.ReadCell(0, 0)
	if !ok || c0.Codepoint != 'h' {
		t.Fatalf("cell (0,0) = %+v, ok=%v, want 'h'", c0, ok)
	}
	c1, ok := sb.ReadCell(1, 0)
	if !ok || c1.Codepoint != 'i' {
		t.Fatalf("cell (1,0) = %+v, ok=%v, want 'i'", c1, ok)
	}
	if got := sb.Cursor(); got != (screenbuffer.Point{X: 2, Y: 0}) {
		t.Fatalf("cursor = %+v, want {2 0}", got)
	}
}

func TestWriteRewritingSameContentStillMovesCursor(t *testing.T) {
	sb := mustCreate(t, 10, 2)
	w := New(sb)

	if _, err := w.Write([]byte("ab")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("\rab")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	c0, ok := sb.ReadCell(0, 0)
	if !ok || c0.Codepoint != 'a' {
		t.Fatalf("cell (0,0) = %+v, ok=%v, want 'a'", c0, ok)
	}
	if got := sb.Cursor(); got != (screenbuffer.Point{X: 2, Y: 0}) {
		t.Fatalf("cursor = %+v, want {2 0}", got)
	}
}

func TestResizeRescansFromScratch(t *testing.T) {
	sb := mustCreate(t, 10, 2)
	w := New(sb)
	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	sb2 := mustCreate(t, 20, 4)
	w2 := New(sb2)
	w2.Resize()
	if _, err := w2.Write([]byte("y")); err != nil {
		t.Fatalf("Write after resize: %v", err)
	}
	c, ok := sb2.ReadCell(0, 0)
	if !ok || c.Codepoint != 'y' {
		t.Fatalf("cell (0,0) = %+v, ok=%v, want 'y'", c, ok)
	}
}
