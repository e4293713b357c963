package dispatch

import (
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// registerScreenBufferLayout wires the geometry-and-cursor half of the
// console output API: scroll, resize, window/cursor placement, text
// attribute default, and the aggregate screen-buffer-info query.
func (t *Table) registerScreenBufferLayout() {
	t.register(FuncScrollScreenBuffer, handleScrollScreenBuffer)
	t.register(FuncSetScreenBufferSize, handleSetScreenBufferSize)
	t.register(FuncSetWindowInfo, handleSetWindowInfo)
	t.register(FuncSetCursorPosition, handleSetCursorPosition)
	t.register(FuncGetCursorInfo, handleGetCursorInfo)
	t.register(FuncSetCursorInfo, handleSetCursorInfo)
	t.register(FuncSetTextAttribute, handleSetTextAttribute)
	t.register(FuncGetScreenBufferInfo, handleGetScreenBufferInfo)
}

// ScrollScreenBuffer input: scrollRect(16) clipRect(16) dstOrigin(8)
// fillCh(4) fillAttr(2).
func handleScrollScreenBuffer(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 46 {
		return invalidParameter(msg)
	}
	scrollRect := readRect(in[0:16])
	clipRect := readRect(in[16:32])
	dstOrigin := readPoint(in[32:40])
	fillCh := rune(le32(in[40:44]))
	fillAttr := uint16(in[44]) | uint16(in[45])<<8
	if !sb.ScrollScreenBuffer(scrollRect, clipRect, dstOrigin, fillCh, fillAttr) {
		return invalidParameter(msg)
	}
	return success(msg, 0, nil)
}

// SetScreenBufferSize input: w(4) h(4).
func handleSetScreenBufferSize(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 8 {
		return invalidParameter(msg)
	}
	if err := sb.SetScreenBufferSize(readSize(in[0:8])); err != nil {
		msg.Complete(iopacket.Completion{Status: iopacket.StatusUnsuccessful})
		return Outcome{}, nil
	}
	return success(msg, 0, nil)
}

// SetWindowInfo input: absolute(1) rect(16). absolute!=0 sets the window
// rect directly; otherwise rect is treated as a size and SetWindowSize is
// used instead (rect.Left/Top ignored in that case).
func handleSetWindowInfo(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 17 {
		return invalidParameter(msg)
	}
	r := readRect(in[1:17])
	if in[0] != 0 {
		sb.SetWindowRect(r)
	} else {
		sb.SetWindowSize(screenbuffer.Size{W: r.Width(), H: r.Height()})
	}
	return success(msg, 0, nil)
}

// SetCursorPosition input: x(4) y(4).
func handleSetCursorPosition(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 8 {
		return invalidParameter(msg)
	}
	sb.SetCursorPosition(readPoint(in[0:8]))
	return success(msg, 0, nil)
}

// GetCursorInfo output: size(4) visible(1).
func handleGetCursorInfo(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	if !ok {
		return invalidParameter(msg)
	}
	out := make([]byte, 5)
	put32(out[0:4], uint32(int32(sb.CursorSize())))
	if sb.CursorVisible() {
		out[4] = 1
	}
	return success(msg, 5, out)
}

// SetCursorInfo input: size(4) visible(1).
func handleSetCursorInfo(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 5 {
		return invalidParameter(msg)
	}
	sb.SetCursorSize(int(int32(le32(in[0:4]))))
	sb.SetCursorVisible(in[4] != 0)
	return success(msg, 0, nil)
}

// SetTextAttribute input: attr(2).
func handleSetTextAttribute(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 2 {
		return invalidParameter(msg)
	}
	sb.SetTextAttributes(uint16(in[0]) | uint16(in[1])<<8)
	return success(msg, 0, nil)
}

// GetScreenBufferInfo output: bufferSize(8) cursor(8) windowRect(16)
// attributes(2) maxWindowSize(8). The maxWindowSize slot carries the buffer
// size; the MaxWindowSize the buffer was created with is not reported.
func handleGetScreenBufferInfo(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	if !ok {
		return invalidParameter(msg)
	}
	out := make([]byte, 42)
	putSize(out[0:8], sb.BufferSize())
	putPoint(out[8:16], sb.Cursor())
	putRect(out[16:32], sb.WindowRect())
	attr := sb.TextAttributes()
	out[32], out[33] = byte(attr), byte(attr>>8)
	putSize(out[34:42], sb.BufferSize())
	return success(msg, 42, out)
}
