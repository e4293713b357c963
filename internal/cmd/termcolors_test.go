package cmd

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTerminalHintsRoundTrip(t *testing.T) {
	original := terminalHints{
		OscFg:     "rgb:ffff/ffff/ffff",
		OscBg:     "rgb:2828/2c2c/3434",
		ColorFGBG: "15;0",
		Term:      "xterm-256color",
		ColorTerm: "truecolor",
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var loaded terminalHints
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded != original {
		t.Errorf("loaded = %+v, want %+v", loaded, original)
	}
}

func TestTerminalHintsBackwardCompat(t *testing.T) {
	raw := `{"osc_fg":"rgb:ffff/ffff/ffff","osc_bg":"rgb:0000/0000/0000","colorfgbg":"15;0"}`
	var hints terminalHints
	if err := json.Unmarshal([]byte(raw), &hints); err != nil {
		t.Fatal(err)
	}
	if hints.Term != "" || hints.ColorTerm != "" {
		t.Errorf("expected empty Term/ColorTerm for old cache, got %+v", hints)
	}
	if hints.OscFg != "rgb:ffff/ffff/ffff" {
		t.Errorf("OscFg = %q", hints.OscFg)
	}
}

func TestTerminalHintsOmitEmpty(t *testing.T) {
	hints := terminalHints{ColorFGBG: "15;0"}
	data, err := json.Marshal(hints)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, field := range []string{"osc_fg", "osc_bg", "term", "colorterm"} {
		if strings.Contains(s, field) {
			t.Errorf("empty field %q should be omitted, got: %s", field, s)
		}
	}
}

func TestColorToX11NilIsEmpty(t *testing.T) {
	if got := colorToX11(nil); got != "" {
		t.Errorf("colorToX11(nil) = %q, want empty", got)
	}
}
