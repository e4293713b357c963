package cmd

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oconsole/condrvhost/internal/config"
	"github.com/oconsole/condrvhost/internal/drivertransport"
	"github.com/oconsole/condrvhost/internal/handoff"
	"github.com/oconsole/condrvhost/internal/socketdir"
)

func newHandoffAcceptCmd() *cobra.Command {
	var cols, rows int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "handoff-accept <name>",
		Short: "Register a single-use rendezvous and accept one handed-off session",
		Long: `handoff-accept registers the single-use class object spec.md §4.6
describes (a flock-guarded lock file) and binds a rendezvous socket next to
it, then waits for a single peer to connect, send a session descriptor, and
follow it with the initial request packet. Once accepted, the session is
hosted the same way serve hosts one: a fresh screen buffer and dispatch
loop driven by the accepted connection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandoffAccept(cmd.Context(), args[0], cols, rows, timeout)
		},
	}
	cmd.Flags().IntVar(&cols, "cols", 80, "screen buffer width")
	cmd.Flags().IntVar(&rows, "rows", 25, "screen buffer height")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "how long to wait for a peer (0 = infinite)")
	return cmd
}

func runHandoffAccept(ctx context.Context, name string, cols, rows int, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rendezvousPath := socketdir.Path(socketdir.TypeHandoff, name)
	label := fmt.Sprintf("handoff %q", name)

	acceptor := handoff.NewAcceptor(rendezvousPath)
	if err := acceptor.Register(); err != nil {
		return fmt.Errorf("%s: register: %w", label, err)
	}
	defer acceptor.Release()

	if err := socketdir.ProbeSocket(rendezvousPath, label); err != nil {
		return err
	}
	if err := os.MkdirAll(socketdir.Dir(), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	ln, err := net.Listen("unix", rendezvousPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", rendezvousPath, err)
	}
	defer ln.Close()
	defer os.Remove(rendezvousPath)

	log.Printf("%s: waiting for a peer on %s", label, rendezvousPath)

	// incoming is fed by one goroutine running the rendezvous accept below.
	// A handoff has exactly one peer, so it sends at most one PendingSession,
	// and the one-slot buffer lets that send complete even after
	// Acceptor.Accept has stopped reading.
	incoming := make(chan handoff.PendingSession, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		descriptor, err := handoff.ReadSessionDescriptor(conn)
		if err != nil {
			conn.Close()
			return
		}
		incoming <- handoff.PendingSession{
			Descriptor:     descriptor,
			ServerEndpoint: conn,
			Ack:            func() { log.Printf("%s: peer acknowledged", label) },
		}
	}()

	session, err := acceptor.Accept(ctx, incoming, timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	log.Printf("%s: claimed session descriptor %+v", label, session.Descriptor)

	driver := drivertransport.NewConn(session.ServerEndpoint)
	defer driver.Close()

	hostInput, hostOutput, cols, rows, teardownIO, err := resolveHostIO(cfg, cols, rows)
	if err != nil {
		return err
	}
	defer teardownIO()

	return hostSession(ctx, cfg, driver, hostInput, hostOutput, cols, rows, label)
}

func newHandoffInitCmd() *cobra.Command {
	var cols, rows int

	cmd := &cobra.Command{
		Use:   "handoff-init <name> <peer>",
		Short: "Delegate a session's UI to a configured peer terminal",
		Long: `handoff-init resolves the given peer identifier (overriding any
session.delegation_peer in config), establishes a pty-backed transport to
stand in for that peer terminal, and hosts a dispatch loop over it. The
peer-facing pty device name is not logged or printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandoffInit(cmd.Context(), args[0], args[1], cols, rows)
		},
	}
	cmd.Flags().IntVar(&cols, "cols", 80, "screen buffer width")
	cmd.Flags().IntVar(&rows, "rows", 25, "screen buffer height")
	return cmd
}

func runHandoffInit(ctx context.Context, name, peer string, cols, rows int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Session.DelegationPeer = peer

	sockPath := socketdir.Path(socketdir.TypeSession, name)
	label := fmt.Sprintf("session %q delegated to %q", name, peer)
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

	log.Printf("%s: listening on %s", label, sockPath)
	driver, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer driver.Close()

	hostInput, hostOutput, cols, rows, teardownIO, err := resolveHostIO(cfg, cols, rows)
	if err != nil {
		return err
	}
	defer teardownIO()

	return hostSession(ctx, cfg, driver, hostInput, hostOutput, cols, rows, label)
}
