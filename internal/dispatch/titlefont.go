package dispatch

import (
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/screenbuffer"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

func (t *Table) registerTitleAndFont() {
	t.register(FuncGetTitle, handleGetTitle)
	t.register(FuncSetTitle, handleSetTitle)
	t.register(FuncGetFontInfo, handleGetFontInfo)
	t.register(FuncSetFontInfo, handleSetFontInfo)
	t.register(FuncGetCurrentFont, handleGetCurrentFont)
}

// GetTitle output: title (length-prefixed UTF-8).
func handleGetTitle(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	out := putString(state.Title)
	return success(msg, uint32(len(out)), out)
}

// SetTitle input: title (length-prefixed UTF-8).
func handleSetTitle(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	title, _, ok := readString(msg.Packet.Input)
	if !ok {
		return invalidParameter(msg)
	}
	state.Title = title
	return success(msg, 0, nil)
}

// GetFontInfo/GetCurrentFont output: family(4) size(8) weight(4) faceName
// (length-prefixed).
func encodeFontInfo(f serverstate.FontInfo) []byte {
	out := make([]byte, 16)
	put32(out[0:4], f.Family)
	putSize(out[4:12], f.Size)
	put32(out[12:16], f.Weight)
	return append(out, putString(f.FaceName)...)
}

func handleGetFontInfo(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	out := encodeFontInfo(state.Font)
	return success(msg, uint32(len(out)), out)
}

func handleGetCurrentFont(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	out := encodeFontInfo(state.Font)
	return success(msg, uint32(len(out)), out)
}

// SetFontInfo input: family(4) size(8) weight(4) faceName(length-prefixed).
func handleSetFontInfo(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	in := msg.Packet.Input
	if len(in) < 16 {
		return invalidParameter(msg)
	}
	faceName, _, ok := readString(in[16:])
	if !ok {
		return invalidParameter(msg)
	}
	state.Font = serverstate.FontInfo{
		Family:   le32(in[0:4]),
		Size:     screenbuffer.Size{W: int(int32(le32(in[4:8]))), H: int(int32(le32(in[8:12])))},
		Weight:   le32(in[12:16]),
		FaceName: faceName,
	}
	return success(msg, 0, nil)
}
