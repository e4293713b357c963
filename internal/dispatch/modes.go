package dispatch

import (
	"github.com/oconsole/condrvhost/internal/handletable"
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

func (t *Table) registerModesAndCodePages() {
	t.register(FuncGetMode, handleGetMode)
	t.register(FuncSetMode, handleSetMode)
	t.register(FuncGetCodePage, handleGetCodePage)
	t.register(FuncSetCodePage, handleSetCodePage)
}

// GetMode input: objectHandle(8). Output: mode(4), the input or output
// mode word depending on the handle's kind.
func handleGetMode(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 8 {
		return invalidParameter(msg)
	}
	obj, ok := state.Handles.Object(handletable.ObjectHandle(le64(in[0:8])))
	if !ok {
		return invalidParameter(msg)
	}
	var mode uint32
	if obj.Kind == handletable.KindInput {
		mode = state.InputModes
	} else {
		mode = state.OutputModes
	}
	out := make([]byte, 4)
	put32(out, mode)
	return success(msg, 4, out)
}

// SetMode input: objectHandle(8) mode(4).
func handleSetMode(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 12 {
		return invalidParameter(msg)
	}
	obj, ok := state.Handles.Object(handletable.ObjectHandle(le64(in[0:8])))
	if !ok {
		return invalidParameter(msg)
	}
	mode := le32(in[8:12])
	if obj.Kind == handletable.KindInput {
		state.InputModes = mode
	} else {
		state.OutputModes = mode
	}
	return success(msg, 0, nil)
}

// GetCodePage input: kind(1) where 0=input,1=output. Output: codePage(4).
func handleGetCodePage(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 1 {
		return invalidParameter(msg)
	}
	cp := state.OutputCodePage
	if in[0] == 0 {
		cp = state.InputCodePage
	}
	out := make([]byte, 4)
	put32(out, cp)
	return success(msg, 4, out)
}

// SetCodePage input: kind(1) codePage(4).
func handleSetCodePage(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 5 {
		return invalidParameter(msg)
	}
	cp := le32(in[1:5])
	if in[0] == 0 {
		state.InputCodePage = cp
	} else {
		state.OutputCodePage = cp
	}
	return success(msg, 0, nil)
}
