// Package iopacket defines the wire-adjacent request/reply types the
// dispatch loop and handlers pass around: the packet a ReadIo call
// produces, the in-flight message built from it, and the completion
// record a handler attaches for submission on a later ReadIo.
package iopacket

import "github.com/google/uuid"

// Descriptor is the fixed header of a driver I/O request, named
// `IoPacket` in spec.md §3.
type Descriptor struct {
	Identifier uint64
	Process    uint64
	Object     uint64
	Function   uint32
	InputSize  uint32
	OutputSize uint32
}

// Packet is one request as returned by ReadIo: a Descriptor plus its
// associated input/output buffers.
type Packet struct {
	Descriptor Descriptor
	Input      []byte
	Output     []byte
}

// Status mirrors the small set of outcomes a handler reports back.
type Status int32

const (
	StatusSuccess           Status = 0
	StatusInvalidParameter  Status = 1
	StatusUnsuccessful      Status = 2
	StatusPending           Status = 3
	StatusDeviceNotConnected Status = 4
)

// Completion is attached to the next ReadIo to piggyback as the reply
// slot: a status, an information count (bytes actually transferred, or a
// handler-defined count), and the output buffer the driver should copy
// back.
type Completion struct {
	Status      Status
	Information uint32
	Output      []byte
}

// Message wraps one Packet in flight through dispatch: an identifier
// (stamped on creation, mirroring the teacher's uuid-stamped messages),
// the originating packet, and the reply slots a handler populates.
// One-in-flight-per-worker; may be moved into the dispatch loop's
// pending-reply queue when a handler reports reply-pending.
type Message struct {
	ID     string
	Packet Packet

	ReplyStatus      Status
	ReplyInformation uint32
	ReplyOutput      []byte
}

// NewMessage builds a Message from a freshly read Packet, stamping a
// unique identifier the way message.PrepareMessage stamps a uuid on every
// inter-agent message in the teacher.
func NewMessage(p Packet) *Message {
	return &Message{ID: uuid.NewString(), Packet: p}
}

// Complete populates the reply slots from a Completion.
func (m *Message) Complete(c Completion) {
	m.ReplyStatus = c.Status
	m.ReplyInformation = c.Information
	m.ReplyOutput = c.Output
}

// AsCompletion extracts the current reply slots as a Completion, ready to
// piggyback onto the next ReadIo.
func (m *Message) AsCompletion() Completion {
	return Completion{Status: m.ReplyStatus, Information: m.ReplyInformation, Output: m.ReplyOutput}
}

// ReleaseBuffers drops references to the input/output buffers once a
// completion has been submitted, so a retained *Message doesn't pin
// driver-owned memory.
func (m *Message) ReleaseBuffers() {
	m.Packet.Input = nil
	m.Packet.Output = nil
	m.ReplyOutput = nil
}
