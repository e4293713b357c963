package dispatch

import (
	"github.com/oconsole/condrvhost/internal/handletable"
	"github.com/oconsole/condrvhost/internal/history"
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// registerConnection wires client lifecycle: connect creates a process
// entry plus an input handle and an output handle bound to the main
// screen buffer; disconnect tears both down and, for a single-client
// session, requests loop exit.
func (t *Table) registerConnection() {
	t.register(FuncConnect, handleConnect)
	t.register(FuncDisconnect, handleDisconnect)
	t.register(FuncCreateObject, handleCreateObject)
	t.register(FuncCloseObject, handleCloseObject)
}

// Connect input: pid(4) tid(4) connectSeq(8). Output: processHandle(8)
// inputHandle(8) outputHandle(8).
func handleConnect(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 16 {
		return invalidParameter(msg)
	}
	pid := le32(in[0:4])
	tid := le32(in[4:8])
	seq := le64(in[8:16])

	proc := state.Handles.CreateProcess(pid, tid, seq)
	inputHandle := state.Handles.CreateObject(handletable.KindInput, proc, 0, 0, nil)
	outputHandle := state.Handles.CreateObject(handletable.KindOutput, proc, 0, 0, state.MainScreenBuffer)

	if p, ok := state.Handles.Process(proc); ok {
		p.InputHandle = inputHandle
		p.OutputHandle = outputHandle
	}

	out := make([]byte, 24)
	put64(out[0:8], uint64(proc))
	put64(out[8:16], uint64(inputHandle))
	put64(out[16:24], uint64(outputHandle))
	return success(msg, uint32(len(out)), out)
}

// Disconnect input: processHandle(8). Requests loop exit once no
// processes remain.
func handleDisconnect(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 8 {
		return invalidParameter(msg)
	}
	proc := handletable.ProcessHandle(le64(in[0:8]))
	if p, ok := state.Handles.Process(proc); ok {
		state.Handles.CloseObject(p.InputHandle)
		state.Handles.CloseObject(p.OutputHandle)
	}
	state.History.FreeForProcess(history.ProcessHandle(proc))
	state.Handles.DestroyProcess(proc)

	out, err := success(msg, 0, nil)
	if state.Handles.ProcessCount() == 0 {
		out.RequestExit = true
	}
	return out, err
}

// CreateObject input: kind(1) access(4) share(4). For an output object, a
// fresh screen buffer is allocated with the same dimensions as the main
// buffer (mirroring CreateConsoleScreenBuffer). Output: objectHandle(8).
func handleCreateObject(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 9 {
		return invalidParameter(msg)
	}
	kind := handletable.HandleKind(in[0])
	access := le32(in[1:5])
	share := le32(in[5:9])

	var sb *screenbuffer.ScreenBuffer
	if kind == handletable.KindOutput {
		settings := screenbuffer.Settings{
			BufferSize:       state.MainScreenBuffer.BufferSize(),
			WindowSize:       screenbuffer.Size{W: state.MainScreenBuffer.WindowRect().Width(), H: state.MainScreenBuffer.WindowRect().Height()},
			MaxWindowSize:    state.MainScreenBuffer.BufferSize(),
			TextAttributes:   state.MainScreenBuffer.TextAttributes(),
			CursorSize:       state.MainScreenBuffer.CursorSize(),
			CursorVisible:    state.MainScreenBuffer.CursorVisible(),
			AutowrapEnabled:  state.MainScreenBuffer.AutowrapEnabled(),
			InsertModeActive: state.MainScreenBuffer.InsertModeEnabled(),
		}
		created, err := screenbuffer.Create(settings)
		if err != nil {
			msg.Complete(iopacket.Completion{Status: iopacket.StatusUnsuccessful})
			return Outcome{}, nil
		}
		sb = created
	}

	handle := state.Handles.CreateObject(kind, 0, access, share, sb)
	out := make([]byte, 8)
	put64(out, uint64(handle))
	return success(msg, uint32(len(out)), out)
}

// CloseObject input: objectHandle(8).
func handleCloseObject(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 8 {
		return invalidParameter(msg)
	}
	state.Handles.CloseObject(handletable.ObjectHandle(le64(in[0:8])))
	return success(msg, 0, nil)
}
