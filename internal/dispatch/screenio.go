package dispatch

import (
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// registerScreenBufferIO wires bounded cell-content read/write/fill:
// characters, attributes, ASCII, and bulk char_info rects.
func (t *Table) registerScreenBufferIO() {
	t.register(FuncReadOutputCharacters, handleReadOutputCharacters)
	t.register(FuncReadOutputAttributes, handleReadOutputAttributes)
	t.register(FuncReadOutputAscii, handleReadOutputAscii)
	t.register(FuncReadOutputCharInfoRect, handleReadOutputCharInfoRect)
	t.register(FuncWriteOutputCharacters, handleWriteOutputCharacters)
	t.register(FuncWriteOutputAttributes, handleWriteOutputAttributes)
	t.register(FuncWriteOutputAscii, handleWriteOutputAscii)
	t.register(FuncWriteOutputCharInfoRect, handleWriteOutputCharInfoRect)
	t.register(FuncFillOutputCharacters, handleFillOutputCharacters)
	t.register(FuncFillOutputAttributes, handleFillOutputAttributes)
}

// Read* input: x(4) y(4) count(4). Output: count runes/attrs/bytes.

func handleReadOutputCharacters(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 12 {
		return invalidParameter(msg)
	}
	x, y, count := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8]))), int(int32(le32(in[8:12])))
	runes := sb.ReadOutputCharacters(x, y, count)
	out := make([]byte, 0, len(runes)*4)
	for _, r := range runes {
		b := make([]byte, 4)
		put32(b, uint32(r))
		out = append(out, b...)
	}
	return success(msg, uint32(len(runes)), out)
}

func handleReadOutputAttributes(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 12 {
		return invalidParameter(msg)
	}
	x, y, count := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8]))), int(int32(le32(in[8:12])))
	attrs := sb.ReadOutputAttributes(x, y, count)
	out := make([]byte, len(attrs)*2)
	for i, a := range attrs {
		out[i*2], out[i*2+1] = byte(a), byte(a>>8)
	}
	return success(msg, uint32(len(attrs)), out)
}

func handleReadOutputAscii(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 12 {
		return invalidParameter(msg)
	}
	x, y, count := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8]))), int(int32(le32(in[8:12])))
	out := sb.ReadOutputASCII(x, y, count)
	return success(msg, uint32(len(out)), out)
}

// ReadOutputCharInfoRect input: region(16). Output: records as
// codepoint(4)+attr(2) pairs in row-major order, or empty on failure.
func handleReadOutputCharInfoRect(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 16 {
		return invalidParameter(msg)
	}
	region := readRect(in[0:16])
	records, ok := sb.ReadOutputCharInfoRect(region)
	if !ok {
		return success(msg, 0, nil)
	}
	out := make([]byte, len(records)*6)
	for i, r := range records {
		o := i * 6
		put32(out[o:o+4], uint32(r.Codepoint))
		out[o+4], out[o+5] = byte(r.Attributes), byte(r.Attributes>>8)
	}
	return success(msg, uint32(len(records)), out)
}

// Write* input: x(4) y(4) followed by payload (runes/attrs/ascii).
// Output: count written(4, as Information).

func handleWriteOutputCharacters(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 8 || (len(in)-8)%4 != 0 {
		return invalidParameter(msg)
	}
	x, y := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8])))
	text := make([]rune, (len(in)-8)/4)
	for i := range text {
		text[i] = rune(le32(in[8+i*4 : 12+i*4]))
	}
	n := sb.WriteOutputCharacters(x, y, text)
	return success(msg, uint32(n), nil)
}

func handleWriteOutputAttributes(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 8 || (len(in)-8)%2 != 0 {
		return invalidParameter(msg)
	}
	x, y := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8])))
	attrs := make([]uint16, (len(in)-8)/2)
	for i := range attrs {
		o := 8 + i*2
		attrs[i] = uint16(in[o]) | uint16(in[o+1])<<8
	}
	n := sb.WriteOutputAttributes(x, y, attrs)
	return success(msg, uint32(n), nil)
}

func handleWriteOutputAscii(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 8 {
		return invalidParameter(msg)
	}
	x, y := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8])))
	n := sb.WriteOutputASCII(x, y, in[8:])
	return success(msg, uint32(n), nil)
}

// WriteOutputCharInfoRect input: region(16) followed by records as
// codepoint(4)+attr(2). Output: Information=1 on success, reply status
// invalid-parameter on any domain violation (region size mismatch, etc.).
func handleWriteOutputCharInfoRect(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 16 || (len(in)-16)%6 != 0 {
		return invalidParameter(msg)
	}
	region := readRect(in[0:16])
	recBytes := in[16:]
	records := make([]screenbuffer.CharInfoRecord, len(recBytes)/6)
	for i := range records {
		o := i * 6
		records[i] = screenbuffer.CharInfoRecord{
			Codepoint:  rune(le32(recBytes[o : o+4])),
			Attributes: uint16(recBytes[o+4]) | uint16(recBytes[o+5])<<8,
		}
	}
	if !sb.WriteOutputCharInfoRect(region, records) {
		return invalidParameter(msg)
	}
	return success(msg, 1, nil)
}

// Fill* input: x(4) y(4) count(4) fillCh(4)[chars] or fillAttr(2)[attrs].

func handleFillOutputCharacters(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 16 {
		return invalidParameter(msg)
	}
	x, y, count := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8]))), int(int32(le32(in[8:12])))
	ch := rune(le32(in[12:16]))
	n := sb.FillOutputCharacters(x, y, ch, count)
	return success(msg, uint32(n), nil)
}

func handleFillOutputAttributes(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	sb, ok := resolveOutputObject(state, msg)
	in := msg.Packet.Input
	if !ok || len(in) < 14 {
		return invalidParameter(msg)
	}
	x, y, count := int(int32(le32(in[0:4]))), int(int32(le32(in[4:8]))), int(int32(le32(in[8:12])))
	attr := uint16(in[12]) | uint16(in[13])<<8
	n := sb.FillOutputAttributes(x, y, attr, count)
	return success(msg, uint32(n), nil)
}
