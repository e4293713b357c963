// Package serverstate defines ServerState, the per-session aggregate every
// dispatch handler mutates: the active and main screen buffers, the
// process/object handle tables, the command history pool, the alias table,
// console modes, code pages, font info, and title.
package serverstate

import (
	"github.com/oconsole/condrvhost/internal/alias"
	"github.com/oconsole/condrvhost/internal/handletable"
	"github.com/oconsole/condrvhost/internal/history"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
)

// FontInfo is the small set of font fields the console API reports back
// through get/set-current-font.
type FontInfo struct {
	Family     uint32
	Size       screenbuffer.Size
	Weight     uint32
	FaceName   string
}

// ServerState is created once per session and destroyed when the dispatch
// loop exits. All mutation happens on the single dispatch thread; there is
// no internal locking here because spec.md's concurrency model makes that
// thread the sole owner.
type ServerState struct {
	// MainScreenBuffer and ActiveScreenBuffer are the same object: our
	// ScreenBuffer toggles main/alternate content in place
	// (SetVTUsingAlternateScreenBuffer) rather than swapping between two
	// separate buffer objects, so there is exactly one pointer to track.
	// Both fields are kept, matching spec.md's data model, so handlers can
	// express "read the main buffer regardless of which is active" versus
	// "read whatever is active" even though today they resolve identically.
	MainScreenBuffer   *screenbuffer.ScreenBuffer
	ActiveScreenBuffer *screenbuffer.ScreenBuffer

	Handles *handletable.Table
	History *history.Pool
	Aliases *alias.Table

	InputCodePage  uint32
	OutputCodePage uint32

	InputModes  uint32
	OutputModes uint32

	Font  FontInfo
	Title string

	MaxHistories       int
	DefaultMaxCommands int

	QuickEditMode bool
	InsertMode    bool

	stopRequested bool
}

// New creates a ServerState with a freshly created main screen buffer as
// both the main and active buffer.
func New(settings screenbuffer.Settings, maxHistories, defaultMaxCommands int) (*ServerState, error) {
	sb, err := screenbuffer.Create(settings)
	if err != nil {
		return nil, err
	}
	return &ServerState{
		MainScreenBuffer:   sb,
		ActiveScreenBuffer: sb,
		Handles:            handletable.New(),
		History:            history.NewPool(),
		Aliases:            alias.NewTable(),
		MaxHistories:       maxHistories,
		DefaultMaxCommands: defaultMaxCommands,
	}, nil
}

// RequestStop marks the session for graceful termination; the dispatch
// loop checks this after servicing pending replies.
func (s *ServerState) RequestStop() { s.stopRequested = true }

// StopRequested reports whether RequestStop has been called.
func (s *ServerState) StopRequested() bool { return s.stopRequested }
