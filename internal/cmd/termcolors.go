package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/oconsole/condrvhost/internal/config"
)

// currentTerminalHints holds the result of the PersistentPreRunE detection
// pass, read by hostSession when it wires a Bridge's OSC 10/11 query
// answers (internal/hostio's query responder).
var currentTerminalHints terminalHints

// terminalHints is a cached snapshot of the host terminal's foreground/
// background colors and capability strings, used to seed a serve session's
// OSC 10/11 query answers (internal/hostio's query responder) when it is
// running with no terminal attached to host output and must answer from a
// remembered value instead of an interactive probe.
type terminalHints struct {
	OscFg     string `json:"osc_fg,omitempty"`
	OscBg     string `json:"osc_bg,omitempty"`
	ColorFGBG string `json:"colorfgbg,omitempty"`
	Term      string `json:"term,omitempty"`
	ColorTerm string `json:"colorterm,omitempty"`
}

// detectTerminalHints probes the current process's stdout for OSC 10/11
// colors via termenv when it is a TTY, caching the result to disk so a
// later headless invocation (no TTY, e.g. a backgrounded serve command)
// can still answer queries from the last known values.
func detectTerminalHints() terminalHints {
	var hints terminalHints

	if term.IsTerminal(int(os.Stdout.Fd())) {
		output := termenv.NewOutput(os.Stdout)
		if fg := output.ForegroundColor(); fg != nil {
			hints.OscFg = colorToX11(fg)
		}
		if bg := output.BackgroundColor(); bg != nil {
			hints.OscBg = colorToX11(bg)
		}

		hints.ColorFGBG = os.Getenv("COLORFGBG")
		if hints.ColorFGBG == "" {
			if output.HasDarkBackground() {
				hints.ColorFGBG = "15;0"
			} else {
				hints.ColorFGBG = "0;15"
			}
		}

		hints.Term = os.Getenv("TERM")
		hints.ColorTerm = os.Getenv("COLORTERM")

		_ = persistTerminalHints(hints)
	} else if cached, ok := loadTerminalHints(); ok {
		hints = cached
	}

	return hints
}

// colorToX11 renders a termenv.Color as the rgb:rrrr/gggg/bbbb string
// OSC 10/11 replies use.
func colorToX11(c termenv.Color) string {
	if c == nil {
		return ""
	}
	if rgb, ok := c.(termenv.RGBColor); ok {
		hex := string(rgb)
		if len(hex) == 7 && hex[0] == '#' {
			r, _ := strconv.ParseUint(hex[1:3], 16, 8)
			g, _ := strconv.ParseUint(hex[3:5], 16, 8)
			b, _ := strconv.ParseUint(hex[5:7], 16, 8)
			return fmt.Sprintf("rgb:%04x/%04x/%04x", r*0x101, g*0x101, b*0x101)
		}
	}
	rgb := termenv.ConvertToRGB(c)
	r := uint8(rgb.R*255 + 0.5)
	g := uint8(rgb.G*255 + 0.5)
	b := uint8(rgb.B*255 + 0.5)
	return fmt.Sprintf("rgb:%04x/%04x/%04x", uint16(r)*0x101, uint16(g)*0x101, uint16(b)*0x101)
}

func terminalHintsPath() string {
	return filepath.Join(config.ConfigDir(), "terminal-colors.json")
}

func persistTerminalHints(h terminalHints) error {
	path := terminalHintsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func loadTerminalHints() (terminalHints, bool) {
	data, err := os.ReadFile(terminalHintsPath())
	if err != nil {
		return terminalHints{}, false
	}
	var h terminalHints
	if err := json.Unmarshal(data, &h); err != nil {
		return terminalHints{}, false
	}
	return h, true
}
