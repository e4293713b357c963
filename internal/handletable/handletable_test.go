package handletable

import (
	"testing"

	"github.com/oconsole/condrvhost/internal/screenbuffer"
)

func TestCreateDestroyProcess(t *testing.T) {
	tbl := New()
	h := tbl.CreateProcess(1234, 1, 1)
	if _, ok := tbl.Process(h); !ok {
		t.Fatal("expected created process to be found")
	}
	tbl.DestroyProcess(h)
	if _, ok := tbl.Process(h); ok {
		t.Fatal("expected destroyed process to be gone")
	}
}

func TestCreateObjectOutputHasScreenBuffer(t *testing.T) {
	tbl := New()
	proc := tbl.CreateProcess(1, 1, 1)
	sb, err := screenbuffer.Create(screenbuffer.Settings{BufferSize: screenbuffer.Size{W: 80, H: 25}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h := tbl.CreateObject(KindOutput, proc, 0, 0, sb)
	obj, ok := tbl.Object(h)
	if !ok {
		t.Fatal("expected object found")
	}
	if obj.ScreenBuffer != sb {
		t.Fatal("expected screen buffer reference preserved")
	}
	if obj.Kind != KindOutput {
		t.Fatal("expected KindOutput")
	}
}

func TestHandlesAreUnique(t *testing.T) {
	tbl := New()
	p1 := tbl.CreateProcess(1, 1, 1)
	p2 := tbl.CreateProcess(2, 1, 2)
	if p1 == p2 {
		t.Fatal("expected distinct process handles")
	}
	o1 := tbl.CreateObject(KindInput, p1, 0, 0, nil)
	o2 := tbl.CreateObject(KindInput, p1, 0, 0, nil)
	if o1 == o2 {
		t.Fatal("expected distinct object handles")
	}
}

func TestCloseObject(t *testing.T) {
	tbl := New()
	h := tbl.CreateObject(KindInput, 0, 0, 0, nil)
	tbl.CloseObject(h)
	if _, ok := tbl.Object(h); ok {
		t.Fatal("expected closed object gone")
	}
}
