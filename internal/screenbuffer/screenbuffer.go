package screenbuffer

// Settings parameterizes Create.
type Settings struct {
	BufferSize       Size
	WindowSize       Size
	MaxWindowSize    Size
	TextAttributes   uint16
	CursorSize       int  // percent, 1-100
	CursorVisible    bool
	Palette          *LegacyPalette // nil uses DefaultLegacyPalette
	AutowrapEnabled  bool
	InsertModeActive bool
}

type alternateBackup struct {
	cells            []Cell
	size             Size
	cursor           Point
	textAttributes   uint16
	palette          LegacyPalette
	savedCursor      *SavedCursor
	verticalMargins  *VerticalMargins
	delayedWrapAt    *Point
	originModeActive bool
}

// ScreenBuffer is the authoritative cell grid plus all VT-level state for a
// single console output. All mutation happens through its methods, which
// are the only place `Revision` advances. ScreenBuffer itself performs no
// locking: callers serialize access (the dispatch loop holds the
// ServerState invariant lock around every mutation).
type ScreenBuffer struct {
	bufferSize    Size
	cursor        Point
	windowRect    Rect
	maxWindowSize Size

	textAttributes        uint16
	defaultTextAttributes uint16
	cursorSize            int
	cursorVisible         bool
	colorTable            LegacyPalette

	savedCursor *SavedCursor

	vtVerticalMargins      *VerticalMargins
	vtDelayedWrapPosition  *Point
	vtAutowrapEnabled      bool
	vtOriginModeEnabled    bool
	vtInsertModeEnabled    bool

	alternate *alternateBackup

	revision uint64
	cells    []Cell
}

// Create allocates a new screen buffer per Settings, clamping window and
// cursor to valid ranges and filling every cell with (space, TextAttributes).
// Returns ErrOutOfMemory if the requested size has no valid allocation (here:
// a negative dimension; no upper bound is checked); a real deployment would
// also fail on genuine allocator exhaustion.
func Create(s Settings) (*ScreenBuffer, error) {
	w, h := s.BufferSize.W, s.BufferSize.H
	if w < 0 || h < 0 {
		return nil, ErrOutOfMemory
	}

	palette := DefaultLegacyPalette()
	if s.Palette != nil {
		palette = *s.Palette
	}

	sb := &ScreenBuffer{
		bufferSize:            Size{W: w, H: h},
		maxWindowSize:         s.MaxWindowSize,
		textAttributes:        s.TextAttributes,
		defaultTextAttributes: s.TextAttributes,
		cursorSize:            s.CursorSize,
		cursorVisible:         s.CursorVisible,
		colorTable:            palette,
		vtAutowrapEnabled:     s.AutowrapEnabled,
		vtInsertModeEnabled:   s.InsertModeActive,
		cells:                 make([]Cell, w*h),
	}
	sb.fillCells(sb.cells, s.TextAttributes)

	winW, winH := s.WindowSize.W, s.WindowSize.H
	if winW <= 0 {
		winW = w
	}
	if winH <= 0 {
		winH = h
	}
	sb.windowRect = Rect{Left: 0, Top: 0, Right: winW - 1, Bottom: winH - 1}.clampedTo(w, h)
	sb.clampCursor()

	return sb, nil
}

func (sb *ScreenBuffer) fillCells(cells []Cell, attr uint16) {
	for i := range cells {
		cells[i] = Cell{Codepoint: ' ', Attributes: attr}
	}
}

// BufferSize returns the current cell-grid dimensions.
func (sb *ScreenBuffer) BufferSize() Size { return sb.bufferSize }

// Cursor returns the current cursor position.
func (sb *ScreenBuffer) Cursor() Point { return sb.cursor }

// WindowRect returns the current viewport rectangle.
func (sb *ScreenBuffer) WindowRect() Rect { return sb.windowRect }

// Revision returns the monotonic mutation counter. Readers compare this
// against a previously observed value to detect changes without locking.
func (sb *ScreenBuffer) Revision() uint64 { return sb.revision }

// TextAttributes returns the attribute word applied to subsequent writes.
func (sb *ScreenBuffer) TextAttributes() uint16 { return sb.textAttributes }

// SetTextAttributes sets the attribute word applied to subsequent writes.
// Does not touch existing cells or the revision counter: it is not itself a
// buffer mutation.
func (sb *ScreenBuffer) SetTextAttributes(attr uint16) { sb.textAttributes = attr }

// CursorVisible reports whether the cursor should currently be rendered.
func (sb *ScreenBuffer) CursorVisible() bool { return sb.cursorVisible }

// SetCursorVisible sets cursor visibility.
func (sb *ScreenBuffer) SetCursorVisible(visible bool) { sb.cursorVisible = visible }

// CursorSize returns the cursor's rendered height as a percentage (1-100).
func (sb *ScreenBuffer) CursorSize() int { return sb.cursorSize }

// SetCursorSize sets the cursor's rendered height percentage.
func (sb *ScreenBuffer) SetCursorSize(percent int) { sb.cursorSize = percent }

// ColorTable returns the 16-entry legacy palette.
func (sb *ScreenBuffer) ColorTable() LegacyPalette { return sb.colorTable }

// SetColorTableEntry sets one legacy palette slot (0-15).
func (sb *ScreenBuffer) SetColorTableEntry(index int, rgb uint32) bool {
	if index < 0 || index >= len(sb.colorTable) {
		return false
	}
	sb.colorTable[index] = rgb
	return true
}

// InAlternateBuffer reports whether the alternate screen is currently active.
func (sb *ScreenBuffer) InAlternateBuffer() bool { return sb.alternate != nil }

// VerticalMargins returns the active VT scroll region, or ok=false if unset
// (meaning the whole buffer height is the scroll region).
func (sb *ScreenBuffer) VerticalMargins() (VerticalMargins, bool) {
	if sb.vtVerticalMargins == nil {
		return VerticalMargins{}, false
	}
	return *sb.vtVerticalMargins, true
}

// SetVerticalMargins installs a VT scroll region; pass ok=false to clear it.
// Invalid ranges (top >= bottom, or outside the buffer) are rejected and the
// existing margins (if any) are left untouched.
func (sb *ScreenBuffer) SetVerticalMargins(m VerticalMargins, ok bool) bool {
	if !ok {
		sb.vtVerticalMargins = nil
		return true
	}
	h := sb.bufferSize.H
	if m.Top < 0 || m.Bottom >= h || m.Top >= m.Bottom {
		return false
	}
	cp := m
	sb.vtVerticalMargins = &cp
	return true
}

// AutowrapEnabled reports the VT autowrap mode flag.
func (sb *ScreenBuffer) AutowrapEnabled() bool { return sb.vtAutowrapEnabled }

// SetAutowrapEnabled sets the VT autowrap mode flag. Disabling clears any
// pending delayed-wrap position, matching DECAWM off semantics.
func (sb *ScreenBuffer) SetAutowrapEnabled(enabled bool) {
	sb.vtAutowrapEnabled = enabled
	if !enabled {
		sb.vtDelayedWrapPosition = nil
	}
}

// OriginModeEnabled reports the VT origin-mode flag (DECOM).
func (sb *ScreenBuffer) OriginModeEnabled() bool { return sb.vtOriginModeEnabled }

// SetOriginModeEnabled sets the VT origin-mode flag.
func (sb *ScreenBuffer) SetOriginModeEnabled(enabled bool) { sb.vtOriginModeEnabled = enabled }

// InsertModeEnabled reports the VT insert-mode flag (IRM).
func (sb *ScreenBuffer) InsertModeEnabled() bool { return sb.vtInsertModeEnabled }

// SetInsertModeEnabled sets the VT insert-mode flag.
func (sb *ScreenBuffer) SetInsertModeEnabled(enabled bool) { sb.vtInsertModeEnabled = enabled }

// DelayedWrapPosition returns the pending delayed end-of-line wrap position,
// if any.
func (sb *ScreenBuffer) DelayedWrapPosition() (Point, bool) {
	if sb.vtDelayedWrapPosition == nil {
		return Point{}, false
	}
	return *sb.vtDelayedWrapPosition, true
}

// SetDelayedWrapPosition stores (or clears, with ok=false) the pending
// delayed-wrap position.
func (sb *ScreenBuffer) SetDelayedWrapPosition(p Point, ok bool) {
	if !ok {
		sb.vtDelayedWrapPosition = nil
		return
	}
	cp := p
	sb.vtDelayedWrapPosition = &cp
}

func (sb *ScreenBuffer) clampCursor() {
	w, h := sb.bufferSize.W, sb.bufferSize.H
	if w <= 0 || h <= 0 {
		sb.cursor = Point{}
		return
	}
	if sb.cursor.X < 0 {
		sb.cursor.X = 0
	}
	if sb.cursor.X >= w {
		sb.cursor.X = w - 1
	}
	if sb.cursor.Y < 0 {
		sb.cursor.Y = 0
	}
	if sb.cursor.Y >= h {
		sb.cursor.Y = h - 1
	}
}

// SetCursorPosition moves the cursor, clamping it into the buffer. Bumps
// the revision counter since cursor position is part of published state.
func (sb *ScreenBuffer) SetCursorPosition(p Point) {
	sb.cursor = p
	sb.clampCursor()
	sb.bumpRevision()
}

func (sb *ScreenBuffer) bumpRevision() {
	sb.revision++
}

func (sb *ScreenBuffer) index(x, y int) (int, bool) {
	w, h := sb.bufferSize.W, sb.bufferSize.H
	if w <= 0 || h <= 0 || x < 0 || x >= w || y < 0 || y >= h {
		return 0, false
	}
	return y*w + x, true
}
