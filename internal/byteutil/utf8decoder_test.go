package byteutil

import (
	"testing"
	"unicode/utf8"
)

func TestUtf8StreamDecoderWholeInput(t *testing.T) {
	d := NewUtf8StreamDecoder()
	got := d.Append(nil, []byte("héllo, 世界"))
	want := []rune("héllo, 世界")
	if string(got) != string(want) {
		t.Fatalf("got %q want %q", string(got), string(want))
	}
}

func TestUtf8StreamDecoderSplitAcrossChunks(t *testing.T) {
	full := []byte("a世界b")
	for split := 0; split <= len(full); split++ {
		d := NewUtf8StreamDecoder()
		var got []rune
		got = d.Append(got, full[:split])
		got = d.Append(got, full[split:])
		got = d.Flush(got)
		if string(got) != "a世界b" {
			t.Fatalf("split at %d: got %q", split, string(got))
		}
	}
}

func TestUtf8StreamDecoderMalformedByteProgress(t *testing.T) {
	d := NewUtf8StreamDecoder()
	got := d.Append(nil, []byte{'a', 0xFF, 'b'})
	want := []rune{'a', utf8.RuneError, 'b'}
	if string(got) != string(want) {
		t.Fatalf("got %q want %q", string(got), string(want))
	}
}

func TestUtf8StreamDecoderFlushIncompleteTrailing(t *testing.T) {
	d := NewUtf8StreamDecoder()
	// 0xE4 0xB8 is the first two bytes of '世' (0xE4 0xB8 0x96); withhold the
	// third byte and flush instead of completing it.
	got := d.Append(nil, []byte{0xE4, 0xB8})
	if len(got) != 0 {
		t.Fatalf("expected no runes before flush, got %q", string(got))
	}
	got = d.Flush(got)
	if len(got) != 2 || got[0] != utf8.RuneError || got[1] != utf8.RuneError {
		t.Fatalf("expected two replacement runes on flush, got %v", got)
	}
}

func TestUtf8StreamDecoderByteAtATime(t *testing.T) {
	full := []byte("mix:é世z\xffend")
	d := NewUtf8StreamDecoder()
	var got []rune
	for _, b := range full {
		got = d.Append(got, []byte{b})
	}
	got = d.Flush(got)

	oneShot := NewUtf8StreamDecoder()
	want := oneShot.Append(nil, full)
	want = oneShot.Flush(want)

	if string(got) != string(want) {
		t.Fatalf("byte-at-a-time %q != one-shot %q", string(got), string(want))
	}
}
