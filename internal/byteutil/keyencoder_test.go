package byteutil

import "bytes"

import "testing"

func TestEncodeKeyEventControlChars(t *testing.T) {
	cases := []struct {
		name string
		ev   KeyEvent
		want []byte
	}{
		{
			name: "ctrl-c",
			ev:   KeyEvent{KeyDown: true, VirtualKeyCode: 'C', ControlKeyState: LeftCtrlPressed},
			want: []byte{0x03},
		},
		{
			name: "ctrl-d",
			ev:   KeyEvent{KeyDown: true, VirtualKeyCode: 'D', ControlKeyState: RightCtrlPressed},
			want: []byte{0x04},
		},
		{
			name: "up-arrow",
			ev:   KeyEvent{KeyDown: true, VirtualKeyCode: VKUp},
			want: []byte{0x1b, 0x5b, 0x41},
		},
		{
			name: "backspace",
			ev:   KeyEvent{KeyDown: true, VirtualKeyCode: VKBack},
			want: []byte{0x7f},
		},
		{
			name: "alt-x",
			ev:   KeyEvent{KeyDown: true, UnicodeChar: 'x', ControlKeyState: LeftAltPressed},
			want: []byte{0x1b, 'x'},
		},
		{
			name: "key-up-is-empty",
			ev:   KeyEvent{KeyDown: false, VirtualKeyCode: VKUp},
			want: nil,
		},
		{
			name: "f1",
			ev:   KeyEvent{KeyDown: true, VirtualKeyCode: VKF1},
			want: []byte{0x1b, 'O', 'P'},
		},
		{
			name: "return",
			ev:   KeyEvent{KeyDown: true, VirtualKeyCode: VKReturn},
			want: []byte{'\r'},
		},
		{
			name: "plain-char",
			ev:   KeyEvent{KeyDown: true, UnicodeChar: 'q'},
			want: []byte{'q'},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := EncodeKeyEvent(c.ev)
			if !bytes.Equal(got, c.want) {
				t.Fatalf("got %x want %x", got, c.want)
			}
		})
	}
}

func TestIsEscSequenceComplete(t *testing.T) {
	cases := []struct {
		seq  []byte
		want bool
	}{
		{[]byte{0x1b}, false},
		{[]byte{0x1b, '['}, false},
		{[]byte{0x1b, '[', '1'}, false},
		{[]byte{0x1b, '[', 'A'}, true},
		{[]byte{0x1b, 'O'}, false},
		{[]byte{0x1b, 'O', 'P'}, true},
		{[]byte{0x1b, 'x'}, true},
	}
	for _, c := range cases {
		if got := IsEscSequenceComplete(c.seq); got != c.want {
			t.Errorf("IsEscSequenceComplete(%x) = %v, want %v", c.seq, got, c.want)
		}
	}
}
