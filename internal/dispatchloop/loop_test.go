package dispatchloop_test

import (
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/oconsole/condrvhost/internal/dispatch"
	"github.com/oconsole/condrvhost/internal/dispatchloop"
	"github.com/oconsole/condrvhost/internal/drivertransport"
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

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// TestRunDispatchesConnectThenExitsOnPipeClose exercises the loop end to
// end over drivertransport.PipePair: a connect request is read and
// dispatched, then closing the request pipe's write end surfaces as
// ErrPipeNotConnected and the loop tears down gracefully.
func TestRunDispatchesConnectThenExitsOnPipeClose(t *testing.T) {
	state := newTestState(t)
	table := dispatch.NewTable()

	reqR, reqW := io.Pipe()
	driver := drivertransport.NewPipePair(reqR, io.Discard)
	loop := &dispatchloop.Loop{Table: table, State: state, Driver: driver}

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	input := append(append(le32(1), le32(1)...), le64(1)...)
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- drivertransport.WritePacket(reqW, iopacket.Descriptor{
			Function:  uint32(dispatch.FuncConnect),
			InputSize: uint32(len(input)),
		}, input, nil)
	}()
	if err := <-writeErr; err != nil {
		t.Fatalf("write connect packet: %v", err)
	}

	// Let the loop dispatch the connect request and re-enter ReadIo before
	// closing the pipe out from under it.
	time.Sleep(20 * time.Millisecond)
	if err := reqW.Close(); err != nil {
		t.Fatalf("close request pipe: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after pipe close")
	}

	if state.Handles.ProcessCount() != 1 {
		t.Fatalf("process count = %d, want 1", state.Handles.ProcessCount())
	}
}

// TestRunStopsWhenDisconnectRequestsExit covers the RequestExit path: a
// connect followed by a disconnect for the same process should request
// loop exit, and StopRequested should be observed without needing the pipe
// to close.
func TestRunStopsWhenDisconnectRequestsExit(t *testing.T) {
	state := newTestState(t)
	table := dispatch.NewTable()

	reqR, reqW := io.Pipe()
	driver := drivertransport.NewPipePair(reqR, io.Discard)
	bridge := hostio.NewBridge(inputqueue.New(), nil)
	loop := &dispatchloop.Loop{Table: table, State: state, Driver: driver, Bridge: bridge}

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	connectInput := append(append(le32(1), le32(1)...), le64(1)...)
	if err := drivertransport.WritePacket(reqW, iopacket.Descriptor{
		Function:  uint32(dispatch.FuncConnect),
		InputSize: uint32(len(connectInput)),
	}, connectInput, nil); err != nil {
		t.Fatalf("write connect packet: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// A fresh handle table's first process allocation is always handle 1.
	disconnectInput := le64(1)
	if err := drivertransport.WritePacket(reqW, iopacket.Descriptor{
		Function:  uint32(dispatch.FuncDisconnect),
		InputSize: uint32(len(disconnectInput)),
	}, disconnectInput, nil); err != nil {
		t.Fatalf("write disconnect packet: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if !state.StopRequested() {
		t.Fatalf("expected StopRequested after last process disconnected")
	}

	reqW.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop was requested and pipe closed")
	}
}
