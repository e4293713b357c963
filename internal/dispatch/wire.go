package dispatch

import (
	"encoding/binary"

	"github.com/oconsole/condrvhost/internal/handletable"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// Request/reply payloads are plain little-endian fixed-width fields
// followed by UTF-8 text where a handler needs it — there is no wire
// compatibility constraint on this boundary the way there is on the
// host-signal channel, so this package picks the simplest encoding that
// keeps handlers easy to read rather than mirroring a legacy ABI.

func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func put32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func put64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

func putPoint(dst []byte, p screenbuffer.Point) {
	put32(dst[0:4], uint32(int32(p.X)))
	put32(dst[4:8], uint32(int32(p.Y)))
}

func readPoint(b []byte) screenbuffer.Point {
	return screenbuffer.Point{X: int(int32(le32(b[0:4]))), Y: int(int32(le32(b[4:8])))}
}

func putSize(dst []byte, s screenbuffer.Size) {
	put32(dst[0:4], uint32(int32(s.W)))
	put32(dst[4:8], uint32(int32(s.H)))
}

func readSize(b []byte) screenbuffer.Size {
	return screenbuffer.Size{W: int(int32(le32(b[0:4]))), H: int(int32(le32(b[4:8])))}
}

func putRect(dst []byte, r screenbuffer.Rect) {
	put32(dst[0:4], uint32(int32(r.Left)))
	put32(dst[4:8], uint32(int32(r.Top)))
	put32(dst[8:12], uint32(int32(r.Right)))
	put32(dst[12:16], uint32(int32(r.Bottom)))
}

func readRect(b []byte) screenbuffer.Rect {
	return screenbuffer.Rect{
		Left:   int(int32(le32(b[0:4]))),
		Top:    int(int32(le32(b[4:8]))),
		Right:  int(int32(le32(b[8:12]))),
		Bottom: int(int32(le32(b[12:16]))),
	}
}

// invalidParameter replies to msg with StatusInvalidParameter and no state
// change, the standard DomainInvalid propagation spec.md §7 describes.
func invalidParameter(msg *iopacket.Message) (Outcome, error) {
	msg.Complete(iopacket.Completion{Status: iopacket.StatusInvalidParameter})
	return Outcome{}, nil
}

func success(msg *iopacket.Message, information uint32, output []byte) (Outcome, error) {
	msg.Complete(iopacket.Completion{Status: iopacket.StatusSuccess, Information: information, Output: output})
	return Outcome{}, nil
}

// resolveOutputObject looks up the descriptor's object handle and returns
// its screen buffer, rejecting an unknown handle or a non-output object as
// DomainInvalid.
func resolveOutputObject(state *serverstate.ServerState, msg *iopacket.Message) (*screenbuffer.ScreenBuffer, bool) {
	obj, ok := state.Handles.Object(handletable.ObjectHandle(msg.Packet.Descriptor.Object))
	if !ok || obj.Kind != handletable.KindOutput || obj.ScreenBuffer == nil {
		return nil, false
	}
	return obj.ScreenBuffer, true
}
