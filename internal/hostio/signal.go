package hostio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// SignalCode identifies a host-signal packet's payload type, matching the
// wire codes a delegated terminal host and its accepting peer exchange
// out-of-band from the main ConDrv request/reply channel.
type SignalCode uint8

const (
	SignalNotifyApp     SignalCode = 1
	SignalSetForeground SignalCode = 5
	SignalEndTask       SignalCode = 7
)

// Ctrl event flags carried by SignalEndTask, matching the bits a console
// control handler receives.
const (
	CtrlCFlag        uint32 = 0x1
	CtrlBreakFlag    uint32 = 0x2
	CtrlCloseFlag    uint32 = 0x4
	CtrlLogoffFlag   uint32 = 0x10
	CtrlShutdownFlag uint32 = 0x20
)

// NotifyApp payload: sizeInBytes(4) + processId(4), 8 bytes, no padding.
type NotifyApp struct {
	ProcessID uint32
}

// SetForeground payload: sizeInBytes(4) + processHandle(4) + isForeground
// bool-as-u8 padded to a 4-byte boundary by the struct's own alignment, 12
// bytes total. processHandle is an opaque value, not necessarily a pid, on
// both ends of the wire.
type SetForeground struct {
	ProcessHandle uint32
	IsForeground  bool
}

// EndTask payload: sizeInBytes(4) + processId(4) + eventType(4) +
// ctrlFlags(4), 16 bytes, no padding.
type EndTask struct {
	ProcessID uint32
	EventType uint32
	CtrlFlags uint32
}

// knownPayloadSize returns the struct size a reader requires to decode code,
// or 0 for an unrecognized code.
func knownPayloadSize(code SignalCode) int {
	switch code {
	case SignalNotifyApp:
		return 8
	case SignalSetForeground:
		return 12
	case SignalEndTask:
		return 16
	default:
		return 0
	}
}

// EncodeNotifyApp produces the 9-byte wire packet {code, sizeInBytes,
// processId}.
func EncodeNotifyApp(p NotifyApp) []byte {
	buf := make([]byte, 1+8)
	buf[0] = byte(SignalNotifyApp)
	binary.LittleEndian.PutUint32(buf[1:5], 8)
	binary.LittleEndian.PutUint32(buf[5:9], p.ProcessID)
	return buf
}

// EncodeSetForeground produces the 13-byte wire packet {code, sizeInBytes,
// processHandle, isForeground-padded-to-4}.
func EncodeSetForeground(p SetForeground) []byte {
	buf := make([]byte, 1+12)
	buf[0] = byte(SignalSetForeground)
	binary.LittleEndian.PutUint32(buf[1:5], 12)
	binary.LittleEndian.PutUint32(buf[5:9], p.ProcessHandle)
	if p.IsForeground {
		buf[9] = 1
	}
	// buf[10:13] stay zero: trailing struct padding.
	return buf
}

// EncodeEndTask produces the 17-byte wire packet {code, sizeInBytes,
// processId, eventType, ctrlFlags}.
func EncodeEndTask(p EndTask) []byte {
	buf := make([]byte, 1+16)
	buf[0] = byte(SignalEndTask)
	binary.LittleEndian.PutUint32(buf[1:5], 16)
	binary.LittleEndian.PutUint32(buf[5:9], p.ProcessID)
	binary.LittleEndian.PutUint32(buf[9:13], p.EventType)
	binary.LittleEndian.PutUint32(buf[13:17], p.CtrlFlags)
	return buf
}

// ErrProtocolViolation is returned when a host-signal packet declares an
// unknown code, or a sizeInBytes smaller than its code's known struct size.
// The channel is closed on this error.
var ErrProtocolViolation = errors.New("hostio: host-signal protocol violation")

// signalWriter serializes writes to a single out-of-band signal pipe so two
// goroutines issuing signals concurrently never interleave their bytes.
type signalWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSignalWriter(w io.Writer) *signalWriter { return &signalWriter{w: w} }

func (s *signalWriter) write(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(buf)
	return err
}

// SignalSender issues host-signal packets atomically over a shared writer,
// e.g. the signal pipe a handoff initiator opens alongside the main
// request/reply transport.
type SignalSender struct {
	w *signalWriter
}

// NewSignalSender wraps w for signal transmission.
func NewSignalSender(w io.Writer) *SignalSender {
	return &SignalSender{w: newSignalWriter(w)}
}

func (s *SignalSender) NotifyApp(processID uint32) error {
	return s.w.write(EncodeNotifyApp(NotifyApp{ProcessID: processID}))
}

func (s *SignalSender) SetForeground(processHandle uint32, isForeground bool) error {
	return s.w.write(EncodeSetForeground(SetForeground{ProcessHandle: processHandle, IsForeground: isForeground}))
}

func (s *SignalSender) EndTask(processID, eventType, ctrlFlags uint32) error {
	return s.w.write(EncodeEndTask(EndTask{ProcessID: processID, EventType: eventType, CtrlFlags: ctrlFlags}))
}

// SignalTarget receives decoded host-signal callbacks from ReadSignals.
type SignalTarget interface {
	NotifyApp(processID uint32)
	SetForeground(processHandle uint32, isForeground bool)
	EndTask(processID, eventType, ctrlFlags uint32)
	SignalPipeDisconnected()
}

// ReadSignals reads and dispatches host-signal packets from r until EOF or
// error, invoking target's callback for each one and SignalPipeDisconnected
// exactly once on exit (including the ErrProtocolViolation case). Each
// packet's declared sizeInBytes is trusted for framing: bytes beyond the
// known struct size are read and discarded to accommodate a newer sender
// extending a payload, but sizeInBytes smaller than the known size, or an
// unrecognized code, is a protocol violation that closes the channel.
func ReadSignals(r io.Reader, target SignalTarget) error {
	defer target.SignalPipeDisconnected()

	header := make([]byte, 1+4)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		code := SignalCode(header[0])
		declaredSize := binary.LittleEndian.Uint32(header[1:5])
		known := knownPayloadSize(code)
		if known == 0 {
			return fmt.Errorf("%w: unknown code %d", ErrProtocolViolation, code)
		}
		if int(declaredSize) < known {
			return fmt.Errorf("%w: code %d declares sizeInBytes=%d, need %d", ErrProtocolViolation, code, declaredSize, known)
		}

		// header already consumed the leading sizeInBytes field; read the
		// remainder of the known struct, then any extension bytes.
		rest := make([]byte, known-4)
		if _, err := io.ReadFull(r, rest); err != nil {
			return err
		}
		if extra := int(declaredSize) - known; extra > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
				return err
			}
		}

		switch code {
		case SignalNotifyApp:
			target.NotifyApp(binary.LittleEndian.Uint32(rest[0:4]))
		case SignalSetForeground:
			target.SetForeground(binary.LittleEndian.Uint32(rest[0:4]), rest[4] != 0)
		case SignalEndTask:
			target.EndTask(
				binary.LittleEndian.Uint32(rest[0:4]),
				binary.LittleEndian.Uint32(rest[4:8]),
				binary.LittleEndian.Uint32(rest[8:12]),
			)
		}
	}
}
