// Package socketdir implements session socket-path conventions and
// single-instance probing, generalizing dcosson-h2/internal/socketdir's
// agent/bridge socket layout to condrvhostd's single "session" kind.
package socketdir

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oconsole/condrvhost/internal/config"
)

// TypeSession is the socket kind a serve command listens on for a
// ConDrv-emulating connection.
const TypeSession = "session"

// TypeHandoff is the socket kind a handoff-accept command listens on for
// an incoming session descriptor, per spec.md §4.6's single-use rendezvous.
const TypeHandoff = "handoff"

// Entry represents a parsed socket file in the socket directory.
type Entry struct {
	Type string // "session"
	Name string // the session name the socket was registered under
	Path string // full path to the .sock file
}

// Format returns the socket filename for a given type and name, e.g.
// "session.main.sock".
func Format(socketType, name string) string {
	return socketType + "." + name + ".sock"
}

// Parse extracts type and name from a socket filename like
// "session.main.sock". Returns false if the filename doesn't match the
// expected format.
func Parse(filename string) (Entry, bool) {
	if !strings.HasSuffix(filename, ".sock") {
		return Entry{}, false
	}
	base := strings.TrimSuffix(filename, ".sock")
	dot := strings.IndexByte(base, '.')
	if dot < 1 {
		return Entry{}, false
	}
	return Entry{
		Type: base[:dot],
		Name: base[dot+1:],
	}, true
}

// Dir returns the socket directory: ~/.condrvhost/sessions/
func Dir() string {
	return filepath.Join(config.ConfigDir(), "sessions")
}

// Path returns the full socket path for a given type and name.
func Path(socketType, name string) string {
	return filepath.Join(Dir(), Format(socketType, name))
}

// Find globs for *.{name}.sock in the default socket directory and returns
// the full path. Returns an error if zero or more than one match.
func Find(name string) (string, error) {
	return FindIn(Dir(), name)
}

// FindIn globs for *.{name}.sock in the given directory.
func FindIn(dir, name string) (string, error) {
	pattern := filepath.Join(dir, "*."+name+".sock")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no socket found for %q", name)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous name %q: %d sockets match", name, len(matches))
	}
}

// List returns all parsed socket entries from the default directory.
func List() ([]Entry, error) {
	return ListIn(Dir())
}

// ListIn returns all parsed socket entries from the given directory.
func ListIn(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	for _, de := range dirEntries {
		entry, ok := Parse(de.Name())
		if !ok {
			continue
		}
		entry.Path = filepath.Join(dir, de.Name())
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListByType returns entries matching a specific type from the default
// directory.
func ListByType(socketType string) ([]Entry, error) {
	return ListByTypeIn(Dir(), socketType)
}

// ListByTypeIn returns entries matching a specific type from the given
// directory.
func ListByTypeIn(dir, socketType string) ([]Entry, error) {
	all, err := ListIn(dir)
	if err != nil {
		return nil, err
	}
	var filtered []Entry
	for _, e := range all {
		if e.Type == socketType {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// ProbeSocket checks whether a socket file at path is held by a live
// listener. If the path doesn't exist, it's available. If it exists but
// nothing answers a connection attempt, the stale file is removed and the
// path is reported available. If a live peer answers, ProbeSocket reports
// an error naming label.
func ProbeSocket(path, label string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%s is already running (socket %s is live)", label, path)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
