// Package hostio implements the four host I/O channels spec.md §4.5
// describes: a host-input reader that streams decoded runes into an
// input queue, a host-output writer, and the host-signal wire codec used
// in both directions during a handoff delegation.
package hostio

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/oconsole/condrvhost/internal/byteutil"
	"github.com/oconsole/condrvhost/internal/inputqueue"
)

// Bridge bundles the optional host I/O channels a dispatch handler needs:
// the shared input queue, an output writer for VT/raw bytes, and whether
// this process should answer terminal queries itself (no external
// terminal attached) or forward them.
type Bridge struct {
	Input  *inputqueue.Queue
	Output io.Writer

	vtShouldAnswerQueries atomic.Bool

	queryMu        sync.Mutex
	oscForeground  string
	oscBackground  string
	cursorPosition func() (row, col int)
}

// NewBridge wires a Bridge around an existing input queue and output
// writer. Either may be nil (host input/output channels are both
// optional per spec.md §4.5).
func NewBridge(input *inputqueue.Queue, output io.Writer) *Bridge {
	return &Bridge{Input: input, Output: output}
}

// VTShouldAnswerQueries reports whether this process should answer
// terminal queries itself rather than forwarding them to an attached
// terminal.
func (b *Bridge) VTShouldAnswerQueries() bool { return b.vtShouldAnswerQueries.Load() }

// SetVTShouldAnswerQueries sets the flag above; typically true iff no
// external terminal is connected to Output.
func (b *Bridge) SetVTShouldAnswerQueries(v bool) { b.vtShouldAnswerQueries.Store(v) }

// WriteOutput writes raw bytes to the host output channel, a no-op if
// none is attached. Terminal queries (OSC 10/11 color, device attributes,
// cursor position report) embedded in p are answered per answerQueries
// before anything reaches Output: see spec §4.5's vt_should_answer_queries.
func (b *Bridge) WriteOutput(p []byte) (int, error) {
	forward := b.answerQueries(p)
	if b.Output != nil && len(forward) > 0 {
		if _, err := b.Output.Write(forward); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// WaitForInput returns immediately if input is available or the queue is
// disconnected; otherwise waits on the queue's availability signal
// (optionally racing a process-wide stop channel) up to timeout.
func (b *Bridge) WaitForInput(ctx context.Context, timeout func() <-chan struct{}) bool {
	if b.Input == nil {
		return false
	}
	if b.Input.PendingCount() > 0 || b.Input.Disconnected() {
		return true
	}
	avail := b.Input.Available()
	var timeoutCh <-chan struct{}
	if timeout != nil {
		timeoutCh = timeout()
	}
	select {
	case <-avail:
		return true
	case <-timeoutCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// HostInputReader reads bytes from r, decodes them with a
// byteutil.Utf8StreamDecoder (re-encoding each complete rune back to
// UTF-8 before pushing — the queue is a byte queue, but this guarantees no
// partial multi-byte sequence is ever visible to a consumer), and pushes
// them into q. Terminates on EOF, any read error, or ctx cancellation,
// marking q disconnected on exit either way.
func HostInputReader(ctx context.Context, r io.Reader, q *inputqueue.Queue) error {
	dec := byteutil.NewUtf8StreamDecoder()
	buf := make([]byte, 4096)
	defer q.MarkDisconnected()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			runes := dec.Append(nil, buf[:n])
			out := make([]byte, 0, n)
			for _, rn := range runes {
				out = appendRuneUTF8(out, rn)
			}
			q.Push(out)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func appendRuneUTF8(dst []byte, r rune) []byte {
	var buf [4]byte
	n := encodeRune(buf[:], r)
	return append(dst, buf[:n]...)
}

func encodeRune(buf []byte, r rune) int {
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
