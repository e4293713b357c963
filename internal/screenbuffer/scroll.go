package screenbuffer

// ScrollScreenBuffer implements copy-then-fill scrolling: every cell in
// scrollRect that also falls in clipRect is first overwritten with
// (fillCh, fillAttr); the pre-fill contents of scrollRect are then copied to
// dstOrigin, translated by (dstOrigin - scrollRect.TopLeft), dropping any
// destination cell that lands outside the buffer or outside clipRect. An
// inverted scrollRect is a no-op success.
func (sb *ScreenBuffer) ScrollScreenBuffer(scrollRect, clipRect Rect, dstOrigin Point, fillCh rune, fillAttr uint16) bool {
	if scrollRect.Empty() {
		return true
	}
	w, h := sb.bufferSize.W, sb.bufferSize.H
	if w <= 0 || h <= 0 {
		return true
	}

	dx := dstOrigin.X - scrollRect.Left
	dy := dstOrigin.Y - scrollRect.Top

	saved := make(map[Point]Cell, scrollRect.Width()*scrollRect.Height())
	for y := scrollRect.Top; y <= scrollRect.Bottom; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x := scrollRect.Left; x <= scrollRect.Right; x++ {
			if x < 0 || x >= w {
				continue
			}
			saved[Point{X: x, Y: y}] = sb.cells[y*w+x]
		}
	}

	mutated := false
	for y := scrollRect.Top; y <= scrollRect.Bottom; y++ {
		if y < 0 || y >= h || y < clipRect.Top || y > clipRect.Bottom {
			continue
		}
		for x := scrollRect.Left; x <= scrollRect.Right; x++ {
			if x < 0 || x >= w || x < clipRect.Left || x > clipRect.Right {
				continue
			}
			sb.cells[y*w+x] = Cell{Codepoint: fillCh, Attributes: fillAttr}
			mutated = true
		}
	}

	for p, cell := range saved {
		dst := Point{X: p.X + dx, Y: p.Y + dy}
		if dst.X < 0 || dst.X >= w || dst.Y < 0 || dst.Y >= h {
			continue
		}
		if !clipRect.Contains(dst) {
			continue
		}
		sb.cells[dst.Y*w+dst.X] = cell
		mutated = true
	}

	if mutated {
		sb.bumpRevision()
	}
	return true
}
