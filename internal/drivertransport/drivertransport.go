// Package drivertransport defines the Driver interface the dispatch loop
// speaks to (spec.md §6's "driver transport" external surface) and a
// byte-pipe-backed implementation usable in place of a real Windows ConDrv
// connection: the serve commands use it over a Unix socket, and the dispatch
// loop's end-to-end tests use it over an io.Pipe.
package drivertransport

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/oconsole/condrvhost/internal/iopacket"
)

// ErrBadCommand is returned for a redundant SetServerInformation call
// during handoff; callers treat it as non-fatal.
var ErrBadCommand = errors.New("drivertransport: bad command")

// ErrPipeNotConnected signals graceful shutdown of the driver channel.
var ErrPipeNotConnected = errors.New("drivertransport: pipe not connected")

// ErrOperationAborted signals a cancelled/aborted ReadIo; retryable in the
// specific contexts spec.md §4.4 describes.
var ErrOperationAborted = errors.New("drivertransport: operation aborted")

// Driver is the contract the dispatch loop needs from a ConDrv connection.
type Driver interface {
	// ReadIo blocks until the next request packet is available, optionally
	// piggybacking reply as the completion for a previously issued packet.
	// Returns ErrPipeNotConnected on graceful peer disconnect and
	// ErrOperationAborted if cancelled (e.g. by a concurrent Cancel call).
	ReadIo(reply *iopacket.Completion) (iopacket.Packet, error)

	// CompleteIo submits a completion directly, used only during teardown
	// when no subsequent ReadIo will carry the reply.
	CompleteIo(identifier uint64, c iopacket.Completion) error

	// SetServerInformation registers the input-availability event the
	// driver signals when host input has arrived. Returns ErrBadCommand if
	// called more than once during a handoff sequence; callers treat that
	// as non-fatal.
	SetServerInformation(inputAvailable <-chan struct{}) error

	// Cancel aborts a blocked ReadIo; used by the input monitor per
	// spec.md §5's cancel-synchronous-IO wake path.
	Cancel()

	// Close tears down the transport.
	Close() error
}

// PipePair is a minimal Driver implementation over a pair of byte streams:
// requests are read as length-prefixed descriptor+buffers from in, and
// completions submitted via CompleteIo are written to out. A reply passed
// to ReadIo is not written anywhere. It runs the dispatch loop without a
// real kernel driver, in tests and (through NewConn) over the Unix socket
// connections the serve and handoff commands accept.
type PipePair struct {
	in  io.Reader
	out io.Writer

	mu       sync.Mutex
	cancelCh chan struct{} // non-nil only while a ReadIo call is blocked waiting on incoming
	closed   bool
	closeCh  chan struct{}

	readerOnce sync.Once
	incoming   chan readResult

	serverInfoSet bool
}

// readResult is one readDescriptor outcome, handed from the background
// reader goroutine to whichever ReadIo call is waiting for it.
type readResult struct {
	packet iopacket.Packet
	err    error
}

// NewPipePair wraps an already-connected pair of byte streams (for
// instance the two ends of a creack/pty-style pipe) as a Driver.
func NewPipePair(in io.Reader, out io.Writer) *PipePair {
	return &PipePair{in: in, out: out, closeCh: make(chan struct{})}
}

// writeDescriptor writes the packed, little-endian encoding of
// iopacket.Descriptor plus the two variable-length buffers that follow it.
func writeDescriptor(w io.Writer, d iopacket.Descriptor, input, output []byte) error {
	hdr := make([]byte, 8+8+8+4+4+4)
	binary.LittleEndian.PutUint64(hdr[0:8], d.Identifier)
	binary.LittleEndian.PutUint64(hdr[8:16], d.Process)
	binary.LittleEndian.PutUint64(hdr[16:24], d.Object)
	binary.LittleEndian.PutUint32(hdr[24:28], d.Function)
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(len(input)))
	binary.LittleEndian.PutUint32(hdr[32:36], uint32(len(output)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(input) > 0 {
		if _, err := w.Write(input); err != nil {
			return err
		}
	}
	if len(output) > 0 {
		if _, err := w.Write(output); err != nil {
			return err
		}
	}
	return nil
}

func readDescriptor(r io.Reader) (iopacket.Packet, error) {
	hdr := make([]byte, 36)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return iopacket.Packet{}, ErrPipeNotConnected
		}
		return iopacket.Packet{}, err
	}
	d := iopacket.Descriptor{
		Identifier: binary.LittleEndian.Uint64(hdr[0:8]),
		Process:    binary.LittleEndian.Uint64(hdr[8:16]),
		Object:     binary.LittleEndian.Uint64(hdr[16:24]),
		Function:   binary.LittleEndian.Uint32(hdr[24:28]),
		InputSize:  binary.LittleEndian.Uint32(hdr[28:32]),
		OutputSize: binary.LittleEndian.Uint32(hdr[32:36]),
	}
	input := make([]byte, d.InputSize)
	if len(input) > 0 {
		if _, err := io.ReadFull(r, input); err != nil {
			return iopacket.Packet{}, err
		}
	}
	output := make([]byte, d.OutputSize)
	if len(output) > 0 {
		if _, err := io.ReadFull(r, output); err != nil {
			return iopacket.Packet{}, err
		}
	}
	return iopacket.Packet{Descriptor: d, Input: input, Output: output}, nil
}

// startReader lazily spins up the single background goroutine that reads
// packets off p.in, handing each to whichever ReadIo call is waiting on
// p.incoming. Running the blocking read on its own goroutine, independent
// of any one ReadIo call, is what lets Cancel interrupt a call that is
// already parked inside a blocking read: Cancel only needs to stop
// *waiting* on the channel, not stop an in-flight io.ReadFull.
func (p *PipePair) startReader() {
	p.readerOnce.Do(func() {
		p.incoming = make(chan readResult)
		go func() {
			for {
				packet, err := readDescriptor(p.in)
				select {
				case p.incoming <- readResult{packet, err}:
				case <-p.closeCh:
					return
				}
				if err != nil {
					return
				}
			}
		}()
	})
}

// ReadIo reads the next request packet. The reply completion, if any, is
// not transmitted: only CompleteIo writes completions to out, and PipePair
// assumes in-order, single-outstanding delivery (a real ConDrv connection
// instead couples reply and read at the kernel boundary).
//
// A packet that arrives after this call has already been cancelled is not
// lost: startReader's goroutine keeps it queued for the next ReadIo call,
// the same way spec.md treats a cancelled read racing a real completion.
func (p *PipePair) ReadIo(reply *iopacket.Completion) (iopacket.Packet, error) {
	p.startReader()

	cancel := make(chan struct{})
	p.mu.Lock()
	p.cancelCh = cancel
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.cancelCh == cancel {
			p.cancelCh = nil
		}
		p.mu.Unlock()
	}()

	select {
	case res := <-p.incoming:
		return res.packet, res.err
	case <-cancel:
		return iopacket.Packet{}, ErrOperationAborted
	}
}

// CompleteIo writes a completion directly to the output stream.
func (p *PipePair) CompleteIo(identifier uint64, c iopacket.Completion) error {
	hdr := make([]byte, 8+4+4+4)
	binary.LittleEndian.PutUint64(hdr[0:8], identifier)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(c.Status))
	binary.LittleEndian.PutUint32(hdr[12:16], c.Information)
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(c.Output)))
	if _, err := p.out.Write(hdr); err != nil {
		return err
	}
	if len(c.Output) > 0 {
		_, err := p.out.Write(c.Output)
		return err
	}
	return nil
}

// SetServerInformation records the input-available channel. A second call
// is reported as ErrBadCommand, matching the redundant-during-handoff
// case spec.md §6 calls non-fatal.
func (p *PipePair) SetServerInformation(inputAvailable <-chan struct{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.serverInfoSet {
		return ErrBadCommand
	}
	p.serverInfoSet = true
	return nil
}

// Cancel aborts the currently blocked ReadIo call, if any, by closing its
// cancel channel; a Cancel with no call currently blocked is a no-op,
// matching spec.md's "in_driver_read_io" gate on when a cancel is
// meaningful at all.
func (p *PipePair) Cancel() {
	p.mu.Lock()
	cancel := p.cancelCh
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	select {
	case <-cancel:
	default:
		close(cancel)
	}
}

// Close releases the underlying streams if they support it.
func (p *PipePair) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.closeCh)

	inCloser, inOK := p.in.(io.Closer)
	outCloser, outOK := p.out.(io.Closer)
	if inOK && outOK && inCloser == outCloser {
		// NewConn wraps a single connection as both ends; close it once.
		return inCloser.Close()
	}

	var err error
	if inOK {
		err = inCloser.Close()
	}
	if outOK {
		if cerr := outCloser.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewConn wraps a single io.ReadWriteCloser, such as the net.Conn a Unix
// socket listener hands back from Accept, as a Driver. This is the
// Unix-socket-pipe backed implementation spec.md §6 describes: the same
// length-prefixed descriptor framing NewPipePair speaks, just with one
// stream instead of two.
func NewConn(conn io.ReadWriteCloser) *PipePair {
	return &PipePair{in: conn, out: conn, closeCh: make(chan struct{})}
}

// WritePacket is a convenience for test harnesses and the handoff
// initiator's peer-facing side: encodes and writes a request packet as
// PipePair's ReadIo expects to read it.
func WritePacket(w io.Writer, d iopacket.Descriptor, input, output []byte) error {
	return writeDescriptor(w, d, input, output)
}

// Listener accepts Unix-socket connections and hands each back as a Driver,
// the serve command's transport source for a ConDrv-emulating session.
type Listener struct {
	ln net.Listener
}

// Listen binds a Unix socket at path. Callers are expected to have already
// probed path with socketdir.ProbeSocket to clear a stale file.
func Listen(path string) (*Listener, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// Accept blocks for the next client connection and wraps it as a Driver.
func (l *Listener) Accept() (Driver, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(conn), nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }
