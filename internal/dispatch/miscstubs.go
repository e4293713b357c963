package dispatch

import (
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// registerMiscStubs wires the remaining single-purpose APIs: cursor/NLS
// mode toggles, menu control, key shortcut reservation, and the read-only
// window/display queries spec.md §4.3 lists as legacy surface with little
// behavior of their own.
func (t *Table) registerMiscStubs() {
	t.register(FuncSetCursorMode, handleSetCursorMode)
	t.register(FuncSetNlsMode, handleSetNlsMode)
	t.register(FuncMenuControl, handleMenuControl)
	t.register(FuncSetKeyShortcuts, handleSetKeyShortcuts)
	t.register(FuncGetConsoleWindow, handleGetConsoleWindow)
	t.register(FuncGetLargestWindowSize, handleGetLargestWindowSize)
	t.register(FuncGetDisplayMode, handleGetDisplayMode)
}

// SetCursorMode input: quickEdit(1) insert(1).
func handleSetCursorMode(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 2 {
		return invalidParameter(msg)
	}
	state.QuickEditMode = in[0] != 0
	state.InsertMode = in[1] != 0
	return success(msg, 0, nil)
}

// SetNlsMode is a legacy no-op retained for API completeness; NLS
// conversion mode has no effect on this implementation's UTF-8-everywhere
// text handling.
func handleSetNlsMode(_ *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	return success(msg, 0, nil)
}

// MenuControl (system-menu close box) is a no-op: there is no Win32 window
// to close here.
func handleMenuControl(_ *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	return success(msg, 0, nil)
}

// SetKeyShortcuts is a no-op: key-combo reservation (e.g. disabling
// Alt+Space) has no effect without a real window to intercept for.
func handleSetKeyShortcuts(_ *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	return success(msg, 0, nil)
}

// GetConsoleWindow is a documented stub: there is no Win32 HWND in this
// implementation, so it always reports the null handle.
func handleGetConsoleWindow(_ *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	out := make([]byte, 8)
	return success(msg, 8, out)
}

// GetLargestWindowSize output: size(8), the buffer size; the MaxWindowSize
// the buffer was created with is not reported.
func handleGetLargestWindowSize(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	if !ok {
		return invalidParameter(msg)
	}
	out := make([]byte, 8)
	putSize(out, sb.BufferSize())
	return success(msg, 8, out)
}

// GetDisplayMode output: windowed(1), always true — this implementation
// has no full-screen display mode.
func handleGetDisplayMode(_ *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	return success(msg, 1, []byte{1})
}
