package dispatch

import (
	"github.com/oconsole/condrvhost/internal/byteutil"
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// registerInputConsole wires the input-queue-backed APIs: raw event
// read/write/peek, flush, and line-buffered cooked read. These are the
// handlers that can return ReplyPending when no input is ready yet.
func (t *Table) registerInputConsole() {
	t.register(FuncReadConsoleInput, handleReadConsoleInput)
	t.register(FuncWriteConsoleInput, handleWriteConsoleInput)
	t.register(FuncReadConsole, handleReadConsole)
	t.register(FuncPeekConsoleInput, handlePeekConsoleInput)
	t.register(FuncFlushConsoleInputBuffer, handleFlushConsoleInputBuffer)
}

// ReadConsoleInput input: maxBytes(4). Drains up to maxBytes raw input
// bytes. If none are available yet and the channel is still connected,
// returns ReplyPending so the loop retries once the input queue signals.
func handleReadConsoleInput(_ *serverstate.ServerState, io *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if io == nil || io.Input == nil || len(in) < 4 {
		return invalidParameter(msg)
	}
	maxBytes := int(le32(in[0:4]))
	if maxBytes <= 0 {
		return success(msg, 0, nil)
	}
	buf := make([]byte, maxBytes)
	n := io.Input.Pop(buf)
	if n == 0 && !io.Input.Disconnected() {
		return Outcome{ReplyPending: true}, nil
	}
	return success(msg, uint32(n), buf[:n])
}

// WriteConsoleInput input: keyDown(1) virtualKeyCode(2) unicodeChar(4)
// controlKeyState(4). Encodes the event as VT bytes and loops them back
// into the input queue (mirroring how the console API lets a client
// synthesize input for itself or a child to read).
func handleWriteConsoleInput(_ *serverstate.ServerState, io *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if io == nil || io.Input == nil || len(in) < 11 {
		return invalidParameter(msg)
	}
	ev := byteutil.KeyEvent{
		KeyDown:         in[0] != 0,
		VirtualKeyCode:  byteutil.VirtualKey(uint16(in[1]) | uint16(in[2])<<8),
		UnicodeChar:     rune(le32(in[3:7])),
		ControlKeyState: byteutil.ControlKeyState(le32(in[7:11])),
	}
	encoded := byteutil.EncodeKeyEvent(ev)
	if len(encoded) > 0 {
		io.Input.Push(encoded)
	}
	return success(msg, uint32(len(encoded)), nil)
}

// ReadConsole input: maxBytes(4). Cooked-mode line read: drains whatever
// is buffered; if no newline has been seen yet and more input may still
// arrive, returns ReplyPending rather than returning a partial line.
func handleReadConsole(_ *serverstate.ServerState, io *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if io == nil || io.Input == nil || len(in) < 4 {
		return invalidParameter(msg)
	}
	maxBytes := int(le32(in[0:4]))
	peek := make([]byte, maxBytes)
	n := io.Input.Peek(peek)
	lineEnd := -1
	for i := 0; i < n; i++ {
		if peek[i] == '\n' {
			lineEnd = i
			break
		}
	}
	if lineEnd == -1 {
		if io.Input.Disconnected() {
			out := make([]byte, n)
			io.Input.Pop(out)
			return success(msg, uint32(n), out)
		}
		return Outcome{ReplyPending: true}, nil
	}
	out := make([]byte, lineEnd+1)
	io.Input.Pop(out)
	return success(msg, uint32(len(out)), out)
}

// PeekConsoleInput input: maxBytes(4). Non-consuming look at the queue.
func handlePeekConsoleInput(_ *serverstate.ServerState, io *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if io == nil || io.Input == nil || len(in) < 4 {
		return invalidParameter(msg)
	}
	buf := make([]byte, le32(in[0:4]))
	n := io.Input.Peek(buf)
	return success(msg, uint32(n), buf[:n])
}

// FlushConsoleInputBuffer discards all pending input.
func handleFlushConsoleInputBuffer(_ *serverstate.ServerState, io *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	if io == nil || io.Input == nil {
		return invalidParameter(msg)
	}
	io.Input.Clear()
	return success(msg, 0, nil)
}
