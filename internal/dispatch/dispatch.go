// Package dispatch implements dispatch_message: decoding a driver request
// packet's function code and routing it to the per-API handler that
// mutates ServerState and populates the message's reply slots.
package dispatch

import (
	"errors"

	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// Function identifies a request's API, one value per handler category
// spec.md §4.3 lists. Values are arbitrary stable identifiers (a real
// ConDrv deployment would receive these from the driver; the handoff/
// drivertransport layer is responsible for translating whatever wire
// encoding it uses into these constants).
type Function uint32

const (
	FuncConnect Function = iota + 1
	FuncDisconnect
	FuncCreateObject
	FuncCloseObject
	FuncGetMode
	FuncSetMode
	FuncGetCodePage
	FuncSetCodePage
	FuncReadOutputCharacters
	FuncReadOutputAttributes
	FuncReadOutputAscii
	FuncReadOutputCharInfoRect
	FuncWriteOutputCharacters
	FuncWriteOutputAttributes
	FuncWriteOutputAscii
	FuncWriteOutputCharInfoRect
	FuncFillOutputCharacters
	FuncFillOutputAttributes
	FuncScrollScreenBuffer
	FuncSetScreenBufferSize
	FuncSetWindowInfo
	FuncSetCursorPosition
	FuncGetCursorInfo
	FuncSetCursorInfo
	FuncSetTextAttribute
	FuncGetScreenBufferInfo
	FuncReadConsoleInput
	FuncWriteConsoleInput
	FuncReadConsole
	FuncPeekConsoleInput
	FuncFlushConsoleInputBuffer
	FuncGetAlias
	FuncSetAlias
	FuncExpungeCommandHistory
	FuncSetNumberOfCommands
	FuncGetCommandHistoryLength
	FuncGetCommandHistory
	FuncGetTitle
	FuncSetTitle
	FuncGetFontInfo
	FuncSetFontInfo
	FuncSetCursorMode
	FuncSetNlsMode
	FuncMenuControl
	FuncSetKeyShortcuts
	FuncGetConsoleWindow
	FuncGetLargestWindowSize
	FuncGetCurrentFont
	FuncGetDisplayMode
)

// Outcome is DispatchOutcome from spec.md §4.3.
type Outcome struct {
	ReplyPending bool
	RequestExit bool
}

// ErrDeviceComm is returned for requests dispatch cannot route: a function
// code with no registered handler. Declared descriptor sizes are not checked
// against the buffers here.
var ErrDeviceComm = errors.New("dispatch: device communication error")

// Handler mutates state in response to one message, optionally reading or
// writing the input queue / host output via io, and populates msg's reply
// slots. Returning ReplyPending=true asks the loop to requeue msg for
// retry once more input or state becomes available.
type Handler func(state *serverstate.ServerState, io *hostio.Bridge, msg *iopacket.Message) (Outcome, error)

// Table maps each Function to its handler.
type Table struct {
	handlers map[Function]Handler
}

// NewTable builds the table with every handler category spec.md §4.3
// lists wired to a concrete implementation.
func NewTable() *Table {
	t := &Table{handlers: make(map[Function]Handler)}
	t.registerConnection()
	t.registerModesAndCodePages()
	t.registerScreenBufferIO()
	t.registerScreenBufferLayout()
	t.registerInputConsole()
	t.registerAliasAndHistory()
	t.registerTitleAndFont()
	t.registerMiscStubs()
	return t
}

func (t *Table) register(f Function, h Handler) { t.handlers[f] = h }

// Dispatch implements dispatch_message: looks up msg's function and
// invokes its handler. An unknown function is a device-communication
// error; a handler error is returned as-is for the loop to classify.
func (t *Table) Dispatch(state *serverstate.ServerState, io *hostio.Bridge, fn Function, msg *iopacket.Message) (Outcome, error) {
	h, ok := t.handlers[fn]
	if !ok {
		return Outcome{}, ErrDeviceComm
	}
	return h(state, io, msg)
}
