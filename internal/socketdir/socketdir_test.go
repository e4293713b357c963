package socketdir

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		socketType, name string
		want             string
	}{
		{"session", "main", "session.main.sock"},
		{"session", "second-window", "session.second-window.sock"},
	}
	for _, tt := range tests {
		got := Format(tt.socketType, tt.name)
		if got != tt.want {
			t.Errorf("Format(%q, %q) = %q, want %q", tt.socketType, tt.name, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		filename string
		wantType string
		wantName string
		wantOK   bool
	}{
		{"session.main.sock", TypeSession, "main", true},
		{"session.second-window.sock", TypeSession, "second-window", true},
		{"notasocket.txt", "", "", false},
		{"noperiod.sock", "", "", false},
		{".sock", "", "", false},
		{"onlyone.sock", "", "", false},
		{"session..sock", TypeSession, "", true}, // degenerate but parseable
	}
	for _, tt := range tests {
		entry, ok := Parse(tt.filename)
		if ok != tt.wantOK {
			t.Errorf("Parse(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if entry.Type != tt.wantType {
			t.Errorf("Parse(%q).Type = %q, want %q", tt.filename, entry.Type, tt.wantType)
		}
		if entry.Name != tt.wantName {
			t.Errorf("Parse(%q).Name = %q, want %q", tt.filename, entry.Name, tt.wantName)
		}
	}
}

func TestPath(t *testing.T) {
	got := Path("session", "main")
	want := filepath.Join(Dir(), "session.main.sock")
	if got != want {
		t.Errorf("Path(session, main) = %q, want %q", got, want)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(filepath.Join(dir, "session.main.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "session.second.sock"), nil, 0o600)

	t.Run("single match", func(t *testing.T) {
		path, err := FindIn(dir, "main")
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(dir, "session.main.sock")
		if path != want {
			t.Errorf("Find(main) = %q, want %q", path, want)
		}
	})

	t.Run("no match", func(t *testing.T) {
		_, err := FindIn(dir, "nonexistent")
		if err == nil {
			t.Fatal("expected error for no match")
		}
	})
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(filepath.Join(dir, "session.main.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "session.second.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "random.txt"), nil, 0o600)      // ignored
	os.WriteFile(filepath.Join(dir, "old-format.sock"), nil, 0o600) // ignored (no type.name format)

	entries, err := ListIn(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	for _, e := range entries {
		if e.Type != TypeSession {
			t.Errorf("unexpected type %q", e.Type)
		}
		if e.Path == "" {
			t.Error("entry has empty Path")
		}
	}
}

func TestListByType(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(filepath.Join(dir, "session.main.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "session.second.sock"), nil, 0o600)

	sessions, err := ListByTypeIn(dir, TypeSession)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}

	others, err := ListByTypeIn(dir, "other")
	if err != nil {
		t.Fatal(err)
	}
	if len(others) != 0 {
		t.Errorf("expected 0 others, got %d", len(others))
	}
}

func TestListIn_EmptyDir(t *testing.T) {
	entries, err := ListIn(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}

func TestListIn_NonexistentDir(t *testing.T) {
	entries, err := ListIn("/nonexistent/path")
	if err != nil {
		t.Fatal(err)
	}
	if entries != nil {
		t.Errorf("expected nil, got %v", entries)
	}
}

func TestDirEndsInSessions(t *testing.T) {
	if !strings.HasSuffix(Dir(), "sessions") {
		t.Errorf("Dir() = %q, expected to end with 'sessions'", Dir())
	}
}

func TestProbeSocketNoFileIsAvailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.main.sock")
	if err := ProbeSocket(path, "session main"); err != nil {
		t.Fatalf("ProbeSocket on nonexistent path: %v", err)
	}
}

func TestProbeSocketStaleFileIsRemoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.main.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := ProbeSocket(path, "session main"); err != nil {
		t.Fatalf("ProbeSocket on stale file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected stale socket file to be removed")
	}
}

func TestProbeSocketLiveListenerIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.main.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	if err := ProbeSocket(path, "session main"); err == nil {
		t.Fatal("expected ProbeSocket to reject a live listener")
	}
}
