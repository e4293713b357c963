package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/oconsole/condrvhost/internal/config"
	"github.com/oconsole/condrvhost/internal/dispatch"
	"github.com/oconsole/condrvhost/internal/dispatchloop"
	"github.com/oconsole/condrvhost/internal/drivertransport"
	"github.com/oconsole/condrvhost/internal/handoff"
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/inputqueue"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
	"github.com/oconsole/condrvhost/internal/snapshot"
	"github.com/oconsole/condrvhost/internal/socketdir"
)

func newServeCmd() *cobra.Command {
	var cols, rows int

	cmd := &cobra.Command{
		Use:   "serve <name>",
		Short: "Host a ConDrv-emulating console session under a named socket",
		Long: `serve binds a session socket (~/.condrvhost/sessions/session.<name>.sock),
accepts a single driver connection on it, and runs the dispatch loop against
a freshly created screen buffer until the driver disconnects or the session
is stopped.

If session.delegation_peer is configured, UI rendering is handed off to that
peer terminal instead of using this process's own stdin/stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args[0], cols, rows)
		},
	}
	cmd.Flags().IntVar(&cols, "cols", 80, "screen buffer width")
	cmd.Flags().IntVar(&rows, "rows", 25, "screen buffer height")
	return cmd
}

func runServe(ctx context.Context, name string, cols, rows int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sockPath := socketdir.Path(socketdir.TypeSession, name)
	label := fmt.Sprintf("session %q", name)
	if err := socketdir.ProbeSocket(sockPath, label); err != nil {
		return err
	}
	if err := os.MkdirAll(socketdir.Dir(), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	ln, err := drivertransport.Listen(sockPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", sockPath, err)
	}
	defer ln.Close()
	defer os.Remove(sockPath)

	log.Printf("serve: %s listening on %s", label, sockPath)
	driver, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer driver.Close()
	log.Printf("serve: %s accepted a driver connection", label)

	hostInput, hostOutput, cols, rows, teardownIO, err := resolveHostIO(cfg, cols, rows)
	if err != nil {
		return err
	}
	defer teardownIO()

	return hostSession(ctx, cfg, driver, hostInput, hostOutput, cols, rows, label)
}

// hostSession builds the screen buffer, host I/O bridge, and dispatch loop
// for one accepted driver connection and runs it to completion. serve,
// handoff-accept, and handoff-init all converge here once they have a
// Driver and a pair of host I/O channels in hand: they differ only in how
// those were obtained.
func hostSession(ctx context.Context, cfg *config.Config, driver drivertransport.Driver, hostInput io.Reader, hostOutput io.Writer, cols, rows int, label string) error {
	state, err := newSessionState(cfg, cols, rows)
	if err != nil {
		return err
	}

	queue := inputqueue.New()
	bridge := hostio.NewBridge(queue, hostOutput)
	answerQueries := defaultAnswerQueries(hostOutput)
	if cfg.Session.AnswerQueries != nil {
		answerQueries = *cfg.Session.AnswerQueries
	}
	bridge.SetVTShouldAnswerQueries(answerQueries)
	bridge.SetColorHints(currentTerminalHints.OscFg, currentTerminalHints.OscBg)
	bridge.SetCursorPosition(func() (row, col int) {
		c := state.ActiveScreenBuffer.Cursor()
		return c.Y + 1, c.X + 1
	})

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	go func() {
		if err := hostio.HostInputReader(inputCtx, hostInput, queue); err != nil {
			log.Printf("%s: host input reader stopped: %v", label, err)
		}
	}()

	loop := &dispatchloop.Loop{
		Table:    dispatch.NewTable(),
		State:    state,
		Driver:   driver,
		Bridge:   bridge,
		Snapshot: snapshot.NewPublisher(state, nil),
	}
	go loop.RunInputMonitor(inputCtx)

	return loop.Run(ctx)
}

// newSessionState builds the screen buffer a fresh session starts from. A
// configured spawn command, when present, names the session in its title
// only: condrvhostd hosts the ConDrv protocol side of a connection, it does
// not spawn and drive a client process through that protocol itself.
func newSessionState(cfg *config.Config, cols, rows int) (*serverstate.ServerState, error) {
	state, err := serverstate.New(screenbuffer.Settings{
		BufferSize:    screenbuffer.Size{W: cols, H: rows},
		WindowSize:    screenbuffer.Size{W: cols, H: rows},
		MaxWindowSize: screenbuffer.Size{W: cols, H: rows},
		CursorSize:    25,
		CursorVisible: true,
	}, 4, 50)
	if err != nil {
		return nil, fmt.Errorf("create screen buffer: %w", err)
	}
	if argv, err := cfg.Session.Argv(); err == nil && len(argv) > 0 {
		state.Title = argv[0]
	}
	return state, nil
}

// resolveHostIO picks the terminal I/O channels to wire into a Bridge: this
// process's own stdin/stdout, unless session.delegation_peer is configured,
// in which case hosting is delegated to that peer via internal/handoff and
// the returned channels are this process's (ConDrv-facing) ends of the
// resulting transport, the pty master.
// When hosting locally against a real terminal, cols/rows are overridden
// from its current size and the terminal is switched into raw mode; the
// returned teardown func restores it (or releases any peer transport that
// was opened instead).
func resolveHostIO(cfg *config.Config, cols, rows int) (hostInput io.Reader, hostOutput io.Writer, outCols, outRows int, teardown func(), err error) {
	if cfg.Session.DelegationPeer == "" {
		if c, r, ok := localTerminalSize(os.Stdin); ok {
			cols, rows = c, r
		}
		return os.Stdin, os.Stdout, cols, rows, attachLocalTerminal(os.Stdin), nil
	}

	initiator := &handoff.Initiator{PeerClassID: cfg.Session.DelegationPeer}
	triple, peer, err := initiator.Establish()
	if err != nil {
		return nil, nil, 0, 0, nil, fmt.Errorf("handoff: delegate to %q: %w", cfg.Session.DelegationPeer, err)
	}

	return triple.HostInput, triple.HostOutput, cols, rows, func() {
		triple.SignalPipe.Close()
		peer.PTY.Close()
		peer.SignalRead.Close()
	}, nil
}
