package serverstate

import (
	"testing"

	"github.com/oconsole/condrvhost/internal/screenbuffer"
)

func TestNewCreatesMatchingMainAndActiveBuffers(t *testing.T) {
	s, err := New(screenbuffer.Settings{BufferSize: screenbuffer.Size{W: 80, H: 25}}, 4, 50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.MainScreenBuffer != s.ActiveScreenBuffer {
		t.Fatal("expected main and active buffers to be the same object initially")
	}
	if s.Handles == nil || s.History == nil || s.Aliases == nil {
		t.Fatal("expected sub-tables initialized")
	}
}

func TestRequestStop(t *testing.T) {
	s, err := New(screenbuffer.Settings{BufferSize: screenbuffer.Size{W: 1, H: 1}}, 1, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.StopRequested() {
		t.Fatal("expected not stopped initially")
	}
	s.RequestStop()
	if !s.StopRequested() {
		t.Fatal("expected stopped after RequestStop")
	}
}
