package cmd

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// localTerminalSize reports a local tty's current dimensions, the same way
// overlay.Run sizes itself from term.GetSize instead of a fixed default.
// It only applies when r is the process's own stdin and that stdin is a
// real terminal; a delegated or piped host input leaves cols/rows alone.
func localTerminalSize(r io.Reader) (cols, rows int, ok bool) {
	f, isFile := r.(*os.File)
	if !isFile || !isatty.IsTerminal(f.Fd()) {
		return 0, 0, false
	}
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, 0, false
	}
	return cols, rows, true
}

// attachLocalTerminal puts a local tty into raw mode, mirroring the raw
// mode overlay.Run enters before piping a child's output through it. It is
// a no-op, returning a no-op teardown, for anything that isn't the
// process's own stdin attached to a real terminal — a delegated session
// manages its own peer terminal instead.
//
// TODO: a SIGWINCH-driven live resize, the other half of what overlay.Run's
// WatchResize does, needs a way to route a resize request through
// dispatchloop.Loop rather than mutating ServerState from this goroutine:
// Loop is documented as the only mutator of ServerState once Run starts.
func attachLocalTerminal(r io.Reader) (teardown func()) {
	f, isFile := r.(*os.File)
	if !isFile || !isatty.IsTerminal(f.Fd()) {
		return func() {}
	}
	oldState, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return func() {}
	}
	return func() { term.Restore(int(f.Fd()), oldState) }
}

// defaultAnswerQueries implements session.answer_queries' documented
// runtime default: answer VT queries ourselves iff no real terminal is
// attached to host output to answer them on its own behalf.
func defaultAnswerQueries(w io.Writer) bool {
	f, isFile := w.(*os.File)
	return !(isFile && isatty.IsTerminal(f.Fd()))
}
