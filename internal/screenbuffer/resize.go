package screenbuffer

// SetScreenBufferSize reallocates the cell grid, preserving the top-left
// min(old,new) sub-rectangle of content (and of the alternate backup, if
// one is present), clamping cursor and window into the new size, dropping
// VT margins that no longer fit, and clearing any delayed-wrap position.
// Returns ErrOutOfMemory (with the prior state left completely intact) if
// the requested size is invalid.
func (sb *ScreenBuffer) SetScreenBufferSize(newSize Size) error {
	if newSize.W <= 0 || newSize.H <= 0 {
		return ErrOutOfMemory
	}

	sb.cells = resizeCells(sb.cells, sb.bufferSize, newSize)
	sb.bufferSize = newSize

	if sb.alternate != nil {
		sb.alternate.cells = resizeCells(sb.alternate.cells, sb.alternate.size, newSize)
		sb.alternate.size = newSize
	}

	sb.clampCursor()
	sb.windowRect = sb.windowRect.clampedTo(newSize.W, newSize.H)

	if sb.vtVerticalMargins != nil {
		m := *sb.vtVerticalMargins
		if m.Top < 0 || m.Bottom >= newSize.H || m.Top >= m.Bottom {
			sb.vtVerticalMargins = nil
		}
	}
	sb.vtDelayedWrapPosition = nil

	sb.bumpRevision()
	return nil
}

// resizeCells allocates a new W*H grid filled with spaces and copies the
// top-left min(old,new) sub-rectangle of src into it.
func resizeCells(src []Cell, old, new Size) []Cell {
	dst := make([]Cell, new.W*new.H)
	for i := range dst {
		dst[i] = Cell{Codepoint: ' '}
	}
	if old.W <= 0 || old.H <= 0 || new.W <= 0 || new.H <= 0 {
		return dst
	}
	copyW := old.W
	if new.W < copyW {
		copyW = new.W
	}
	copyH := old.H
	if new.H < copyH {
		copyH = new.H
	}
	for y := 0; y < copyH; y++ {
		srcBase := y * old.W
		dstBase := y * new.W
		copy(dst[dstBase:dstBase+copyW], src[srcBase:srcBase+copyW])
	}
	return dst
}

// SetWindowRect installs a new viewport rectangle, clamped so it stays
// contained in the buffer.
func (sb *ScreenBuffer) SetWindowRect(r Rect) {
	sb.windowRect = r.clampedTo(sb.bufferSize.W, sb.bufferSize.H)
}

// SetWindowSize resizes the viewport in place (top-left fixed where
// possible), clamped so it stays contained in the buffer.
func (sb *ScreenBuffer) SetWindowSize(size Size) {
	r := Rect{Left: sb.windowRect.Left, Top: sb.windowRect.Top, Right: sb.windowRect.Left + size.W - 1, Bottom: sb.windowRect.Top + size.H - 1}
	sb.windowRect = r.clampedTo(sb.bufferSize.W, sb.bufferSize.H)
}

// SnapWindowToCursor minimally translates the window rect so the cursor
// falls inside it.
func (sb *ScreenBuffer) SnapWindowToCursor() {
	r := sb.windowRect
	c := sb.cursor
	dx, dy := 0, 0
	if c.X < r.Left {
		dx = c.X - r.Left
	} else if c.X > r.Right {
		dx = c.X - r.Right
	}
	if c.Y < r.Top {
		dy = c.Y - r.Top
	} else if c.Y > r.Bottom {
		dy = c.Y - r.Bottom
	}
	sb.windowRect = Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}.clampedTo(sb.bufferSize.W, sb.bufferSize.H)
}
