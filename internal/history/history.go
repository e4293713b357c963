// Package history implements the console's per-executable command history
// pool: a small LRU-ordered set of command buffers, one per connecting
// process, reused across processes by application name.
package history

import "strings"

// ProcessHandle identifies the process a history entry is currently
// assigned to.
type ProcessHandle uint64

// CommandHistory is one process's (or, once freed, one reusable slot's)
// command buffer.
type CommandHistory struct {
	appName       string
	maxCommands   int
	commands      []string
	processHandle ProcessHandle
	allocated     bool
}

// Allocated reports whether this entry is currently assigned to a process.
func (h *CommandHistory) Allocated() bool { return h.allocated }

// ProcessHandle returns the process this entry is assigned to (meaningless
// if Allocated is false).
func (h *CommandHistory) ProcessHandle() ProcessHandle { return h.processHandle }

// AppName returns the application name this entry is keyed by.
func (h *CommandHistory) AppName() string { return h.appName }

// MaxCommands returns the configured capacity.
func (h *CommandHistory) MaxCommands() int { return h.maxCommands }

// Commands returns the buffered commands, oldest first.
func (h *CommandHistory) Commands() []string { return h.commands }

func (h *CommandHistory) appNameMatches(other string) bool {
	return strings.EqualFold(h.appName, other)
}

func (h *CommandHistory) clearCommands() { h.commands = nil }

// realloc changes capacity. Per the Open Question this spec resolves:
// shrinking truncates the tail (drops the newest commands), matching the
// inbox host's observable behavior rather than dropping the oldest.
func (h *CommandHistory) realloc(maxCommands int) {
	h.maxCommands = maxCommands
	if len(h.commands) > maxCommands {
		if maxCommands < 0 {
			maxCommands = 0
		}
		h.commands = h.commands[:maxCommands]
	}
}

// Add records a line of cooked input. Empty commands are dropped; an
// immediate duplicate of the most-recent entry is always dropped;
// suppressDuplicates additionally removes any earlier equal command before
// appending; the oldest entry is evicted once the buffer is at capacity.
func (h *CommandHistory) Add(command string, suppressDuplicates bool) {
	if h.maxCommands == 0 || command == "" {
		return
	}
	if len(h.commands) > 0 && h.commands[len(h.commands)-1] == command {
		return
	}
	if suppressDuplicates {
		for i, c := range h.commands {
			if c == command {
				h.commands = append(h.commands[:i], h.commands[i+1:]...)
				break
			}
		}
	}
	if len(h.commands) == h.maxCommands {
		h.commands = h.commands[1:]
	}
	h.commands = append(h.commands, command)
}

// Pool is an LRU-ordered list of CommandHistory entries, front is most
// recently used. Shared by ServerState across all connecting processes.
type Pool struct {
	entries []*CommandHistory // index 0 is MRU
}

// NewPool returns an empty history pool.
func NewPool() *Pool {
	return &Pool{}
}

// Count returns the number of entries currently in the pool (allocated or
// not).
func (p *Pool) Count() int { return len(p.entries) }

// ResizeAll applies realloc(maxCommands) to every entry in the pool, used
// when the global default history depth changes.
func (p *Pool) ResizeAll(maxCommands int) {
	for _, e := range p.entries {
		e.realloc(maxCommands)
	}
}

// AllocateForProcess assigns a history buffer to a newly connecting
// process. It reuses an unallocated entry matching appName (case-
// insensitive), moving it to MRU; failing that, allocates a new entry if
// the pool is under maxHistories; failing that, reuses any unallocated
// entry, preferring one with an empty command list, clearing its commands
// and renaming it to appName.
func (p *Pool) AllocateForProcess(appName string, proc ProcessHandle, maxHistories, defaultMaxCommands int) {
	var sameAppCandidate *CommandHistory
	for _, e := range p.entries {
		if e.allocated {
			continue
		}
		if e.appNameMatches(appName) {
			sameAppCandidate = e
			break
		}
	}

	if sameAppCandidate == nil && len(p.entries) < maxHistories {
		h := &CommandHistory{appName: appName}
		h.realloc(defaultMaxCommands)
		h.processHandle = proc
		h.allocated = true
		p.entries = append([]*CommandHistory{h}, p.entries...)
		return
	}

	candidate := sameAppCandidate
	if candidate == nil {
		// Prefer the last unallocated entry with an empty command list;
		// fall back to the last unallocated entry seen at all.
		var lastAny *CommandHistory
		for _, e := range p.entries {
			if e.allocated {
				continue
			}
			lastAny = e
			if len(e.commands) == 0 {
				candidate = e
			}
		}
		if candidate == nil {
			candidate = lastAny
		}
	}
	if candidate == nil {
		return
	}

	if sameAppCandidate == nil {
		candidate.clearCommands()
		candidate.appName = appName
	}
	candidate.processHandle = proc
	candidate.allocated = true
	p.moveToFront(candidate)
}

// FreeForProcess marks the process's entry unallocated without clearing
// its commands, leaving it available for reuse or later lookup by exe name
// via a subsequent process of the same app.
func (p *Pool) FreeForProcess(proc ProcessHandle) {
	if h := p.FindByProcess(proc); h != nil {
		h.allocated = false
		h.processHandle = 0
	}
}

// FindByProcess returns the allocated entry for proc, or nil.
func (p *Pool) FindByProcess(proc ProcessHandle) *CommandHistory {
	for _, e := range p.entries {
		if e.allocated && e.processHandle == proc {
			return e
		}
	}
	return nil
}

// FindByExe returns the allocated entry whose app name matches exeName
// (case-insensitive), or nil.
func (p *Pool) FindByExe(exeName string) *CommandHistory {
	for _, e := range p.entries {
		if e.allocated && e.appNameMatches(exeName) {
			return e
		}
	}
	return nil
}

// ExpungeByExe clears the commands (not the allocation) of the entry
// matching exeName, if any.
func (p *Pool) ExpungeByExe(exeName string) {
	if h := p.FindByExe(exeName); h != nil {
		h.clearCommands()
	}
}

// SetNumberOfCommandsByExe reallocs the entry matching exeName to
// maxCommands and promotes it to MRU.
func (p *Pool) SetNumberOfCommandsByExe(exeName string, maxCommands int) {
	for _, e := range p.entries {
		if e.allocated && e.appNameMatches(exeName) {
			e.realloc(maxCommands)
			p.moveToFront(e)
			return
		}
	}
}

func (p *Pool) moveToFront(target *CommandHistory) {
	for i, e := range p.entries {
		if e == target {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			break
		}
	}
	p.entries = append([]*CommandHistory{target}, p.entries...)
}
