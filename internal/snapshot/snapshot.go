// Package snapshot implements the publisher spec.md §4.7 describes: after
// each dispatch step it checks whether the active screen buffer changed or
// its revision advanced, and if so builds an immutable ViewportSnapshot and
// swaps it into an atomic slot a renderer can read without ever blocking the
// dispatch thread.
package snapshot

import (
	"sync/atomic"

	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// ViewportSnapshot is the immutable `{viewport_size, text}` value spec.md §3
// lists: a flat, row-major array of the viewport rectangle's code units.
// Cheap to clone (a ViewportSnapshot value is just a slice header and two
// ints) and safe to share across goroutines once published, since nothing
// ever mutates it after construction.
type ViewportSnapshot struct {
	Size screenbuffer.Size
	Text []rune
}

// At returns the code unit at viewport-relative (x, y), or 0 if out of range.
func (s *ViewportSnapshot) At(x, y int) rune {
	if s == nil || x < 0 || x >= s.Size.W || y < 0 || y >= s.Size.H {
		return 0
	}
	return s.Text[y*s.Size.W+x]
}

// Publisher holds the `published_screen` slot plus the `last_buffer` /
// `last_revision` pair used to detect when a new snapshot is needed. It
// tracks a single session's ServerState, reading whatever screen buffer is
// currently active so an alternate-buffer toggle is picked up automatically.
type Publisher struct {
	state *serverstate.ServerState
	wake  func()

	published atomic.Pointer[ViewportSnapshot]

	lastBuffer   *screenbuffer.ScreenBuffer
	lastRevision uint64
}

// NewPublisher creates a Publisher over state that calls wake after every
// new snapshot is swapped in. wake stands in for spec.md's "lightweight wake
// to the attached renderer, an external collaborator"; it may be nil.
func NewPublisher(state *serverstate.ServerState, wake func()) *Publisher {
	return &Publisher{state: state, wake: wake}
}

// Latest returns the most recently published snapshot, or nil if none has
// been published yet. Safe to call concurrently with PublishIfChanged.
func (p *Publisher) Latest() *ViewportSnapshot {
	return p.published.Load()
}

// PublishIfChanged builds and publishes a new snapshot of the active
// buffer's viewport if the active buffer has changed, or its revision has
// advanced, since the last call. It is a no-op otherwise. Implements
// dispatchloop.SnapshotPublisher so a *Publisher can be plugged directly
// into a Loop's Snapshot field.
func (p *Publisher) PublishIfChanged() {
	buf := p.state.ActiveScreenBuffer
	if buf == nil {
		return
	}
	revision := buf.Revision()
	if buf == p.lastBuffer && revision == p.lastRevision {
		return
	}
	p.lastBuffer = buf
	p.lastRevision = revision

	snap := buildSnapshot(buf)
	p.published.Store(snap)
	if p.wake != nil {
		p.wake()
	}
}

// buildSnapshot copies the viewport rectangle's cells into a flat array. It
// allocates a fresh slice every call but holds no lock beyond the copy loop,
// per spec.md §4.7's "allocates but does not lock the buffer beyond the copy
// window".
func buildSnapshot(buf *screenbuffer.ScreenBuffer) *ViewportSnapshot {
	rect := buf.WindowRect()
	size := screenbuffer.Size{W: rect.Width(), H: rect.Height()}
	text := make([]rune, size.W*size.H)

	for row := 0; row < size.H; row++ {
		for col := 0; col < size.W; col++ {
			cell, ok := buf.ReadCell(rect.Left+col, rect.Top+row)
			ch := ' '
			if ok && cell.Codepoint != 0 {
				ch = cell.Codepoint
			}
			text[row*size.W+col] = ch
		}
	}

	return &ViewportSnapshot{Size: size, Text: text}
}
