package dispatch

import (
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// registerAliasAndHistory wires the alias table and per-executable command
// history pool APIs.
func (t *Table) registerAliasAndHistory() {
	t.register(FuncGetAlias, handleGetAlias)
	t.register(FuncSetAlias, handleSetAlias)
	t.register(FuncExpungeCommandHistory, handleExpungeCommandHistory)
	t.register(FuncSetNumberOfCommands, handleSetNumberOfCommands)
	t.register(FuncGetCommandHistoryLength, handleGetCommandHistoryLength)
	t.register(FuncGetCommandHistory, handleGetCommandHistory)
}

// string fields on the wire are length-prefixed UTF-8: len(4) bytes(len).

func readString(b []byte) (string, []byte, bool) {
	if len(b) < 4 {
		return "", nil, false
	}
	n := int(le32(b[0:4]))
	if len(b) < 4+n {
		return "", nil, false
	}
	return string(b[4 : 4+n]), b[4+n:], true
}

func putString(s string) []byte {
	out := make([]byte, 4+len(s))
	put32(out[0:4], uint32(len(s)))
	copy(out[4:], s)
	return out
}

// GetAlias input: exe, source (each length-prefixed). Output: target
// string, empty if not found.
func handleGetAlias(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	exe, rest, ok := readString(msg.Packet.Input)
	if !ok {
		return invalidParameter(msg)
	}
	source, _, ok := readString(rest)
	if !ok {
		return invalidParameter(msg)
	}
	target, _ := state.Aliases.Get(exe, source)
	out := putString(target)
	return success(msg, uint32(len(out)), out)
}

// SetAlias input: exe, source, target (each length-prefixed).
func handleSetAlias(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	exe, rest, ok := readString(msg.Packet.Input)
	if !ok {
		return invalidParameter(msg)
	}
	source, rest, ok := readString(rest)
	if !ok {
		return invalidParameter(msg)
	}
	target, _, ok := readString(rest)
	if !ok {
		return invalidParameter(msg)
	}
	if err := state.Aliases.Set(exe, source, target); err != nil {
		return invalidParameter(msg)
	}
	return success(msg, 0, nil)
}

// ExpungeCommandHistory input: exe (length-prefixed).
func handleExpungeCommandHistory(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	exe, _, ok := readString(msg.Packet.Input)
	if !ok {
		return invalidParameter(msg)
	}
	state.History.ExpungeByExe(exe)
	return success(msg, 0, nil)
}

// SetNumberOfCommands input: exe (length-prefixed) then maxCommands(4).
func handleSetNumberOfCommands(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	exe, rest, ok := readString(msg.Packet.Input)
	if !ok || len(rest) < 4 {
		return invalidParameter(msg)
	}
	state.History.SetNumberOfCommandsByExe(exe, int(int32(le32(rest[0:4]))))
	return success(msg, 0, nil)
}

// GetCommandHistoryLength input: exe (length-prefixed). Output: count(4).
func handleGetCommandHistoryLength(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	exe, _, ok := readString(msg.Packet.Input)
	if !ok {
		return invalidParameter(msg)
	}
	h := state.History.FindByExe(exe)
	count := 0
	if h != nil {
		count = len(h.Commands())
	}
	out := make([]byte, 4)
	put32(out, uint32(count))
	return success(msg, 4, out)
}

// GetCommandHistory input: exe (length-prefixed). Output: each command
// concatenated as length-prefixed strings.
func handleGetCommandHistory(state *serverstate.ServerState, _ *hostio.Bridge, msg *iopacket.Message) (Outcome, error) {
	exe, _, ok := readString(msg.Packet.Input)
	if !ok {
		return invalidParameter(msg)
	}
	h := state.History.FindByExe(exe)
	if h == nil {
		return success(msg, 0, nil)
	}
	var out []byte
	for _, cmd := range h.Commands() {
		out = append(out, putString(cmd)...)
	}
	return success(msg, uint32(len(h.Commands())), out)
}
