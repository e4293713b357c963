// Package handletable implements the console's opaque process and object
// handle tables: maps keyed by small generated identifiers instead of raw
// pointers, avoiding pointer-graph cycles between processes and the screen
// buffers their output handles reference.
package handletable

import "github.com/oconsole/condrvhost/internal/screenbuffer"

// HandleKind distinguishes an input handle from an output handle.
type HandleKind int

const (
	KindInput HandleKind = iota
	KindOutput
)

// ProcessHandle is an opaque process-table key.
type ProcessHandle uint64

// ObjectHandle is an opaque object-table key.
type ObjectHandle uint64

// Object is one entry in the object table: a handle's kind, the access
// rights and sharing mode it was opened with, the process that owns it,
// and — for output handles — the screen buffer it refers to.
type Object struct {
	Kind          HandleKind
	DesiredAccess uint32
	ShareMode     uint32
	OwningProcess ProcessHandle
	ScreenBuffer  *screenbuffer.ScreenBuffer // non-nil iff Kind == KindOutput
}

// Process is one entry in the process table.
type Process struct {
	PID            uint32
	TID            uint32
	ConnectSeq     uint64
	InputHandle    ObjectHandle
	OutputHandle   ObjectHandle
}

// Table owns the process and object maps for one ServerState. Not safe for
// concurrent use: callers serialize access the same way every other piece
// of session state does, on the single dispatch thread.
type Table struct {
	processes  map[ProcessHandle]*Process
	objects    map[ObjectHandle]*Object
	nextProc   ProcessHandle
	nextObject ObjectHandle
}

// New returns an empty handle table.
func New() *Table {
	return &Table{
		processes: make(map[ProcessHandle]*Process),
		objects:   make(map[ObjectHandle]*Object),
	}
}

// CreateProcess allocates a new process-table entry and returns its handle.
func (t *Table) CreateProcess(pid, tid uint32, connectSeq uint64) ProcessHandle {
	t.nextProc++
	h := t.nextProc
	t.processes[h] = &Process{PID: pid, TID: tid, ConnectSeq: connectSeq}
	return h
}

// DestroyProcess removes a process-table entry. Associated object handles
// are not implicitly destroyed: callers close them explicitly first, the
// same ordering the driver's disconnect sequence uses.
func (t *Table) DestroyProcess(h ProcessHandle) {
	delete(t.processes, h)
}

// Process looks up a process-table entry.
func (t *Table) Process(h ProcessHandle) (*Process, bool) {
	p, ok := t.processes[h]
	return p, ok
}

// CreateObject allocates a new object-table entry and returns its handle.
// For output objects, sb must be non-null per the data-model invariant.
func (t *Table) CreateObject(kind HandleKind, owner ProcessHandle, access, share uint32, sb *screenbuffer.ScreenBuffer) ObjectHandle {
	t.nextObject++
	h := t.nextObject
	t.objects[h] = &Object{
		Kind:          kind,
		DesiredAccess: access,
		ShareMode:     share,
		OwningProcess: owner,
		ScreenBuffer:  sb,
	}
	return h
}

// CloseObject removes an object-table entry.
func (t *Table) CloseObject(h ObjectHandle) {
	delete(t.objects, h)
}

// Object looks up an object-table entry.
func (t *Table) Object(h ObjectHandle) (*Object, bool) {
	o, ok := t.objects[h]
	return o, ok
}

// ProcessCount returns the number of live process-table entries.
func (t *Table) ProcessCount() int { return len(t.processes) }

// ObjectCount returns the number of live object-table entries.
func (t *Table) ObjectCount() int { return len(t.objects) }
