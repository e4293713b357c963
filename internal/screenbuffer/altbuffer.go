package screenbuffer

// SaveCursorState clamps position into the buffer before storing it along
// with attributes and origin-mode. delayedEOLWrap is only retained if
// clamping position did not change it (matching the driver: a saved wrap
// pending at a position that was itself invalid is discarded).
func (sb *ScreenBuffer) SaveCursorState(position Point, attributes uint16, delayedEOLWrap bool, originModeActive bool) {
	clamped := position
	sb.clampPoint(&clamped)
	keepWrap := delayedEOLWrap && clamped == position

	sb.savedCursor = &SavedCursor{
		Position:         clamped,
		Attributes:       attributes,
		DelayedEOLWrap:   keepWrap,
		OriginModeActive: originModeActive,
	}
}

// RestoreCursorState returns the stored saved-cursor state (clamping
// position once more against the current buffer size) and whether one was
// present.
func (sb *ScreenBuffer) RestoreCursorState() (SavedCursor, bool) {
	if sb.savedCursor == nil {
		return SavedCursor{}, false
	}
	out := *sb.savedCursor
	sb.clampPoint(&out.Position)
	return out, true
}

func (sb *ScreenBuffer) clampPoint(p *Point) {
	w, h := sb.bufferSize.W, sb.bufferSize.H
	if w <= 0 || h <= 0 {
		*p = Point{}
		return
	}
	if p.X < 0 {
		p.X = 0
	}
	if p.X >= w {
		p.X = w - 1
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y >= h {
		p.Y = h - 1
	}
}

// SetVTUsingAlternateScreenBuffer switches between the main and alternate
// screen. Enabling while already in the alternate buffer is a no-op
// success. On enable, the main buffer's cells, cursor, attributes, palette,
// saved cursor, margins, delayed-wrap position, and origin-mode flag are
// snapshotted, then a freshly filled alternate cell grid (same size as the
// current buffer) is installed with the cursor at the origin and margins
// cleared. On disable, everything is restored atomically.
func (sb *ScreenBuffer) SetVTUsingAlternateScreenBuffer(enable bool, fillCh rune, fillAttr uint16) bool {
	if enable {
		if sb.alternate != nil {
			return true
		}
		backup := &alternateBackup{
			cells:            append([]Cell(nil), sb.cells...),
			size:             sb.bufferSize,
			cursor:           sb.cursor,
			textAttributes:   sb.textAttributes,
			palette:          sb.colorTable,
			originModeActive: sb.vtOriginModeEnabled,
		}
		if sb.savedCursor != nil {
			cp := *sb.savedCursor
			backup.savedCursor = &cp
		}
		if sb.vtVerticalMargins != nil {
			cp := *sb.vtVerticalMargins
			backup.verticalMargins = &cp
		}
		if sb.vtDelayedWrapPosition != nil {
			cp := *sb.vtDelayedWrapPosition
			backup.delayedWrapAt = &cp
		}
		sb.alternate = backup

		fresh := make([]Cell, len(sb.cells))
		sb.fillCells(fresh, fillAttr)
		for i := range fresh {
			fresh[i].Codepoint = fillCh
		}
		sb.cells = fresh
		sb.cursor = Point{}
		sb.vtVerticalMargins = nil
		sb.vtDelayedWrapPosition = nil
		sb.bumpRevision()
		return true
	}

	if sb.alternate == nil {
		return true
	}
	backup := sb.alternate
	sb.cells = backup.cells
	sb.bufferSize = backup.size
	sb.cursor = backup.cursor
	sb.textAttributes = backup.textAttributes
	sb.colorTable = backup.palette
	sb.vtOriginModeEnabled = backup.originModeActive
	sb.savedCursor = backup.savedCursor
	sb.vtVerticalMargins = backup.verticalMargins
	sb.vtDelayedWrapPosition = backup.delayedWrapAt
	sb.alternate = nil
	sb.clampCursor()
	sb.bumpRevision()
	return true
}
