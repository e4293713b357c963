// Package handoff implements the session-delegation protocol spec.md §4.6
// describes: an acceptor side that receives a single portable session
// descriptor over a single-use rendezvous and an initiator side that
// delegates to a configured peer terminal and gets back a transport triple.
//
// Windows models this with duplicated kernel handles and a COM activation
// call (see original_source/src/runtime/terminal_handoff.cpp); this
// package expresses the same lifecycle over plain Go channels and pipes,
// using gofrs/flock for the single-use class-object guarantee and
// creack/pty to stand in for the peer terminal's pipe endpoints.
package handoff

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creack/pty"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/oconsole/condrvhost/internal/iopacket"
)

// SessionDescriptor is the portable handoff descriptor spec.md §4.6 defines.
type SessionDescriptor struct {
	IDLow      uint32
	IDHigh     int32
	Process    uint64
	Object     uint64
	Function   uint32
	InputSize  uint32
	OutputSize uint32
}

// NewSessionDescriptor stamps a fresh id_low/id_high pair from a uuid, the
// same way iopacket.NewMessage stamps a uuid on every in-flight message.
func NewSessionDescriptor(process, object uint64, function, inputSize, outputSize uint32) SessionDescriptor {
	id := uuid.New()
	return SessionDescriptor{
		IDLow:      binary.LittleEndian.Uint32(id[0:4]),
		IDHigh:     int32(binary.LittleEndian.Uint32(id[4:8])),
		Process:    process,
		Object:     object,
		Function:   function,
		InputSize:  inputSize,
		OutputSize: outputSize,
	}
}

// AsPacket turns the descriptor into the first request packet, fed to the
// dispatch loop before it begins its normal ReadIo cycle.
func (d SessionDescriptor) AsPacket(input, output []byte) iopacket.Packet {
	return iopacket.Packet{
		Descriptor: iopacket.Descriptor{
			Identifier: uint64(d.IDLow) | uint64(uint32(d.IDHigh))<<32,
			Process:    d.Process,
			Object:     d.Object,
			Function:   d.Function,
			InputSize:  d.InputSize,
			OutputSize: d.OutputSize,
		},
		Input:  input,
		Output: output,
	}
}

// PendingSession is what an initiator offers an acceptor: the descriptor
// plus the four channels spec.md §4.6 lists, and an Ack callback the
// acceptor invokes once it has captured them, standing in for the
// "signal handoff succeeded" step.
type PendingSession struct {
	Descriptor     SessionDescriptor
	ServerEndpoint io.ReadWriteCloser
	InputAvailable <-chan struct{}
	SignalChannel  io.WriteCloser
	PeerLifetime   <-chan struct{}
	Ack            func()
}

// Session is a claimed handoff, handed back to the acceptor's caller.
type Session struct {
	Descriptor     SessionDescriptor
	ServerEndpoint io.ReadWriteCloser
	InputAvailable <-chan struct{}
	SignalChannel  io.WriteCloser
	PeerLifetime   <-chan struct{}
}

// ErrNoDescriptor is returned when Accept's timeout elapses with no peer
// having connected.
var ErrNoDescriptor = errors.New("handoff: no descriptor received before timeout")

// ErrAlreadyRegistered is returned when an acceptor's class object has
// already been claimed — the single-use guarantee spec.md §4.6 describes.
var ErrAlreadyRegistered = errors.New("handoff: class object already registered")

// Acceptor implements the acceptor lifecycle: a single-use rendezvous a
// peer can hand one session off to, backed by an exclusive non-blocking
// file lock so only one acceptor can ever successfully Register for a
// given path.
type Acceptor struct {
	lock *flock.Flock
}

// NewAcceptor creates an acceptor whose single-use class object is a lock
// file derived from rendezvousPath.
func NewAcceptor(rendezvousPath string) *Acceptor {
	return &Acceptor{lock: flock.New(rendezvousPath + ".handoff-lock")}
}

// Register claims the class object. It must succeed before Accept is
// called; calling it twice, or from a second Acceptor over the same path,
// reports ErrAlreadyRegistered.
func (a *Acceptor) Register() error {
	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("handoff: register: %w", err)
	}
	if !ok {
		return ErrAlreadyRegistered
	}
	return nil
}

// Release gives up the class object, letting a later Acceptor over the
// same path register.
func (a *Acceptor) Release() error {
	return a.lock.Unlock()
}

// Accept waits for a single descriptor to arrive on incoming, or until
// timeout elapses (timeout<=0 waits indefinitely). On success it invokes
// the pending session's Ack callback — "signal handoff succeeded" — before
// returning; Go's channel handoff already gives this process exclusive
// ownership of the endpoints, so there is no separate handle-duplication
// step to perform.
func (a *Acceptor) Accept(ctx context.Context, incoming <-chan PendingSession, timeout time.Duration) (Session, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case pending, ok := <-incoming:
		if !ok {
			return Session{}, ErrNoDescriptor
		}
		if pending.Ack != nil {
			pending.Ack()
		}
		return Session{
			Descriptor:     pending.Descriptor,
			ServerEndpoint: pending.ServerEndpoint,
			InputAvailable: pending.InputAvailable,
			SignalChannel:  pending.SignalChannel,
			PeerLifetime:   pending.PeerLifetime,
		}, nil
	case <-timeoutCh:
		return Session{}, ErrNoDescriptor
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

// ErrNoPeer is returned when no delegation target is configured, or the
// configured target is this process itself — both cases mean "skip
// delegation and continue with the classic in-process path".
var ErrNoPeer = errors.New("handoff: no delegation peer configured")

// Initiator delegates session hosting to a configured peer terminal.
type Initiator struct {
	// PeerClassID identifies the configured delegation target (the
	// registry-resolved CLSID in the Windows original). Empty means no
	// target is configured.
	PeerClassID string
	// SelfClassID is this process's own identity; a peer equal to it means
	// "delegate to myself", which is treated the same as no target.
	SelfClassID string
}

// TransportTriple is what EstablishPtyHandoff hands back in the original:
// this process's (ConDrv-facing) ends of the host-input/output channels,
// i.e. the pty master, plus this process's end of the one-way signal pipe. Closing SignalPipe is the
// out-of-band request to the peer to shut down.
type TransportTriple struct {
	HostInput  io.Reader
	HostOutput io.Writer
	SignalPipe io.WriteCloser
}

// PeerHandle exposes the far end of the simulated PTY pair, used by test
// harnesses (and, in a non-headless build, a real peer terminal process)
// to drive the side EstablishPtyHandoff would otherwise keep for itself.
type PeerHandle struct {
	PTY        io.ReadWriteCloser
	SignalRead io.ReadCloser
}

// Establish resolves the peer, creates a one-way signal pipe and a
// creack/pty-backed pipe pair standing in for the peer terminal's PTY
// endpoints, and returns the ConDrv-facing ends as a TransportTriple plus
// the peer-facing ends as a PeerHandle.
func (i *Initiator) Establish() (TransportTriple, PeerHandle, error) {
	if i.PeerClassID == "" || i.PeerClassID == i.SelfClassID {
		return TransportTriple{}, PeerHandle{}, ErrNoPeer
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return TransportTriple{}, PeerHandle{}, fmt.Errorf("handoff: open pty pair: %w", err)
	}

	signalRead, signalWrite, err := os.Pipe()
	if err != nil {
		ptmx.Close()
		tty.Close()
		return TransportTriple{}, PeerHandle{}, fmt.Errorf("handoff: create signal pipe: %w", err)
	}

	return TransportTriple{
			HostInput:  ptmx,
			HostOutput: ptmx,
			SignalPipe: signalWrite,
		}, PeerHandle{
			PTY:        tty,
			SignalRead: signalRead,
		}, nil
}

// descriptorWireSize is the encoded size of a SessionDescriptor: two
// 32-bit id halves, process and object as 64-bit, then three 32-bit
// fields, matching iopacket.Descriptor's own field widths.
const descriptorWireSize = 4 + 4 + 8 + 8 + 4 + 4 + 4

// WriteSessionDescriptor encodes d and writes it to w. This is how an
// acceptor and initiator running in separate processes exchange the
// descriptor over a plain byte stream (a Unix socket, in this
// reimplementation) standing in for the OS handle-duplication step
// spec.md §4.6 describes; the initiator follows it with the initial
// request packet, written with drivertransport.WritePacket over the same
// connection.
func WriteSessionDescriptor(w io.Writer, d SessionDescriptor) error {
	buf := make([]byte, descriptorWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(d.IDLow))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(d.IDHigh))
	binary.LittleEndian.PutUint64(buf[8:16], d.Process)
	binary.LittleEndian.PutUint64(buf[16:24], d.Object)
	binary.LittleEndian.PutUint32(buf[24:28], d.Function)
	binary.LittleEndian.PutUint32(buf[28:32], d.InputSize)
	binary.LittleEndian.PutUint32(buf[32:36], d.OutputSize)
	_, err := w.Write(buf)
	return err
}

// ReadSessionDescriptor reads the wire encoding WriteSessionDescriptor
// produces.
func ReadSessionDescriptor(r io.Reader) (SessionDescriptor, error) {
	buf := make([]byte, descriptorWireSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return SessionDescriptor{}, err
	}
	return SessionDescriptor{
		IDLow:      binary.LittleEndian.Uint32(buf[0:4]),
		IDHigh:     int32(binary.LittleEndian.Uint32(buf[4:8])),
		Process:    binary.LittleEndian.Uint64(buf[8:16]),
		Object:     binary.LittleEndian.Uint64(buf[16:24]),
		Function:   binary.LittleEndian.Uint32(buf[24:28]),
		InputSize:  binary.LittleEndian.Uint32(buf[28:32]),
		OutputSize: binary.LittleEndian.Uint32(buf[32:36]),
	}, nil
}
