package dispatch

import (
	"testing"

	"github.com/oconsole/condrvhost/internal/handletable"
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/inputqueue"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

func newTestState(t *testing.T) *serverstate.ServerState {
	t.Helper()
	st, err := serverstate.New(screenbuffer.Settings{
		BufferSize:    screenbuffer.Size{W: 80, H: 25},
		WindowSize:    screenbuffer.Size{W: 80, H: 25},
		MaxWindowSize: screenbuffer.Size{W: 80, H: 25},
		CursorSize:    25,
		CursorVisible: true,
	}, 4, 50)
	if err != nil {
		t.Fatalf("serverstate.New: %v", err)
	}
	return st
}

func dispatchMsg(t *testing.T, table *Table, state *serverstate.ServerState, io *hostio.Bridge, fn Function, object uint64, input []byte) *iopacket.Message {
	t.Helper()
	msg := iopacket.NewMessage(iopacket.Packet{
		Descriptor: iopacket.Descriptor{Object: object, Function: uint32(fn)},
		Input:      input,
	})
	if _, err := table.Dispatch(state, io, fn, msg); err != nil {
		t.Fatalf("dispatch %v: %v", fn, err)
	}
	return msg
}

func TestConnectCreatesHandlesBoundToMainBuffer(t *testing.T) {
	state := newTestState(t)
	table := NewTable()

	msg := dispatchMsg(t, table, state, nil, FuncConnect, 0, append(append(le32bytes(1), le32bytes(1)...), le64bytes(1)...))
	if msg.ReplyStatus != iopacket.StatusSuccess {
		t.Fatalf("connect status = %v", msg.ReplyStatus)
	}
	if len(msg.ReplyOutput) != 24 {
		t.Fatalf("connect output len = %d, want 24", len(msg.ReplyOutput))
	}
	outputHandle := le64(msg.ReplyOutput[16:24])

	obj, ok := state.Handles.Object(handletable.ObjectHandle(outputHandle))
	if !ok || obj.ScreenBuffer != state.MainScreenBuffer {
		t.Fatalf("output handle does not reference the main screen buffer")
	}
}

func TestDisconnectLastProcessRequestsExit(t *testing.T) {
	state := newTestState(t)
	table := NewTable()

	connectMsg := dispatchMsg(t, table, state, nil, FuncConnect, 0, append(append(le32bytes(1), le32bytes(1)...), le64bytes(1)...))
	procHandle := le64(connectMsg.ReplyOutput[0:8])

	out, err := table.Dispatch(state, nil, FuncDisconnect, iopacket.NewMessage(iopacket.Packet{
		Input: le64bytes(procHandle),
	}))
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if !out.RequestExit {
		t.Fatalf("expected RequestExit after last process disconnects")
	}
	if state.Handles.ProcessCount() != 0 {
		t.Fatalf("process count = %d, want 0", state.Handles.ProcessCount())
	}
}

func TestWriteThenReadOutputCharactersRoundTrip(t *testing.T) {
	state := newTestState(t)
	table := NewTable()

	connectMsg := dispatchMsg(t, table, state, nil, FuncConnect, 0, append(append(le32bytes(1), le32bytes(1)...), le64bytes(1)...))
	outputHandle := le64(connectMsg.ReplyOutput[16:24])

	writeInput := append(append(le32bytes(0), le32bytes(0)...), runesAsLE32("hi")...)
	writeMsg := dispatchMsg(t, table, state, nil, FuncWriteOutputCharacters, outputHandle, writeInput)
	if writeMsg.ReplyInformation != 2 {
		t.Fatalf("wrote %d chars, want 2", writeMsg.ReplyInformation)
	}

	readInput := append(append(le32bytes(0), le32bytes(0)...), le32bytes(2)...)
	readMsg := dispatchMsg(t, table, state, nil, FuncReadOutputCharacters, outputHandle, readInput)
	got := string(runesFromLE32(readMsg.ReplyOutput))
	if got != "hi" {
		t.Fatalf("read back %q, want %q", got, "hi")
	}
}

func TestReadConsoleInputPendsThenSucceeds(t *testing.T) {
	state := newTestState(t)
	table := NewTable()
	bridge := hostio.NewBridge(inputqueue.New(), nil)

	out, _ := table.Dispatch(state, bridge, FuncReadConsoleInput, iopacket.NewMessage(iopacket.Packet{Input: le32bytes(4)}))
	if !out.ReplyPending {
		t.Fatalf("expected ReplyPending with no input queued")
	}

	bridge.Input.Push([]byte("ab"))
	msg2 := dispatchMsg(t, table, state, bridge, FuncReadConsoleInput, 0, le32bytes(4))
	if string(msg2.ReplyOutput) != "ab" {
		t.Fatalf("read console input = %q, want %q", msg2.ReplyOutput, "ab")
	}
}

func TestSetAndGetAlias(t *testing.T) {
	state := newTestState(t)
	table := NewTable()

	setInput := append(append(stringField("cmd.exe"), stringField("ls")...), stringField("dir")...)
	dispatchMsg(t, table, state, nil, FuncSetAlias, 0, setInput)

	getInput := append(stringField("cmd.exe"), stringField("ls")...)
	getMsg := dispatchMsg(t, table, state, nil, FuncGetAlias, 0, getInput)
	target, _, ok := readString(getMsg.ReplyOutput)
	if !ok || target != "dir" {
		t.Fatalf("get alias = %q, ok=%v, want %q", target, ok, "dir")
	}
}

func TestSetAndGetTitle(t *testing.T) {
	state := newTestState(t)
	table := NewTable()

	dispatchMsg(t, table, state, nil, FuncSetTitle, 0, stringField("my shell"))
	msg := dispatchMsg(t, table, state, nil, FuncGetTitle, 0, nil)
	title, _, ok := readString(msg.ReplyOutput)
	if !ok || title != "my shell" {
		t.Fatalf("get title = %q, ok=%v", title, ok)
	}
}

// --- small test-only encoding helpers built on wire.go's primitives ---

func le32bytes(v uint32) []byte {
	b := make([]byte, 4)
	put32(b, v)
	return b
}

func le64bytes(v uint64) []byte {
	b := make([]byte, 8)
	put64(b, v)
	return b
}

func runesAsLE32(s string) []byte {
	var out []byte
	for _, r := range s {
		out = append(out, le32bytes(uint32(r))...)
	}
	return out
}

func runesFromLE32(b []byte) []rune {
	var out []rune
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, rune(le32(b[i:i+4])))
	}
	return out
}

func stringField(s string) []byte { return putString(s) }
