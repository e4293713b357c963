package inputqueue

import "testing"

func TestPushPopRoundTrip(t *testing.T) {
	q := New()
	q.Push([]byte("hello"))
	if n := q.PendingCount(); n != 5 {
		t.Fatalf("pending = %d want 5", n)
	}
	buf := make([]byte, 3)
	if n := q.Pop(buf); n != 3 || string(buf) != "hel" {
		t.Fatalf("got n=%d buf=%q", n, buf)
	}
	if n := q.PendingCount(); n != 2 {
		t.Fatalf("pending after partial pop = %d want 2", n)
	}
	rest := make([]byte, 4)
	if n := q.Pop(rest); n != 2 || string(rest[:2]) != "lo" {
		t.Fatalf("got n=%d rest=%q", n, rest[:2])
	}
	if q.PendingCount() != 0 {
		t.Fatal("expected queue drained")
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	q := New()
	q.Push([]byte("abc"))
	buf := make([]byte, 3)
	q.Peek(buf)
	if q.PendingCount() != 3 {
		t.Fatal("peek must not consume")
	}
	q.Pop(buf)
	if q.PendingCount() != 0 {
		t.Fatal("pop must consume")
	}
}

func TestClear(t *testing.T) {
	q := New()
	q.Push([]byte("abc"))
	q.Clear()
	if q.PendingCount() != 0 {
		t.Fatal("expected empty after clear")
	}
}

func TestAvailableSignalsOnPushAndDisconnect(t *testing.T) {
	q := New()
	select {
	case <-q.Available():
		t.Fatal("expected unsignalled on empty connected queue")
	default:
	}

	q.Push([]byte("x"))
	select {
	case <-q.Available():
	default:
		t.Fatal("expected signalled after push")
	}

	buf := make([]byte, 1)
	q.Pop(buf)
	select {
	case <-q.Available():
		t.Fatal("expected unsignalled after full drain")
	default:
	}

	q.MarkDisconnected()
	select {
	case <-q.Available():
	default:
		t.Fatal("expected signalled after disconnect")
	}
	if !q.Disconnected() {
		t.Fatal("expected Disconnected() true")
	}
}
