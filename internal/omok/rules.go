package omok

// Pure rule functions over a board snapshot. Every function that simulates a
// placement reverts it before returning; the engine never leaves side effects.
//
// 렌주 정석 금수(장목/44/33)는 흑에만 적용된다. 백은 5목 이상이면 승리.

// dirs are the four scan axes: horizontal, vertical, both diagonals.
var dirs = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// threeScanWindow bounds the candidate-cell scan of the double-three check.
// A five cannot involve cells further than four steps from the placement;
// one extra step of slack is kept to mirror the reference behaviour.
const threeScanWindow = 5

// runLength counts the contiguous run of color through (x, y) on one axis,
// including the stone at (x, y) itself.
func runLength(b *Board, x, y int, color Cell, dx, dy int) int {
	n := 1
	for cx, cy := x+dx, y+dy; InBounds(cx, cy) && b.Get(cx, cy) == color; cx, cy = cx+dx, cy+dy {
		n++
	}
	for cx, cy := x-dx, y-dy; InBounds(cx, cy) && b.Get(cx, cy) == color; cx, cy = cx-dx, cy-dy {
		n++
	}
	return n
}

// CheckFive reports whether color has any run of five or more anywhere on the
// board. Used for the unrestricted color, which wins with no upper bound.
func CheckFive(b *Board, color Cell) bool {
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if b.Get(x, y) != color {
				continue
			}
			for _, d := range dirs {
				cnt := 1
				for cx, cy := x+d[0], y+d[1]; InBounds(cx, cy) && b.Get(cx, cy) == color; cx, cy = cx+d[0], cy+d[1] {
					cnt++
					if cnt >= 5 {
						return true
					}
				}
			}
		}
	}
	return false
}

// WouldCompleteFive reports whether placing color at (x, y) produces a run of
// five or more on any axis.
func WouldCompleteFive(b *Board, x, y int, color Cell) bool {
	if !InBounds(x, y) {
		return false
	}
	prev := b.Get(x, y)
	b.Set(x, y, color)
	defer b.Set(x, y, prev)
	for _, d := range dirs {
		if runLength(b, x, y, color, d[0], d[1]) >= 5 {
			return true
		}
	}
	return false
}

// HasExactFive reports whether the stone already placed at (x, y) sits in a
// run of exactly five on some axis while no axis run reaches six. This is the
// win condition for the restricted color.
func HasExactFive(b *Board, x, y int, color Cell) bool {
	if !InBounds(x, y) || b.Get(x, y) != color {
		return false
	}
	exact := false
	for _, d := range dirs {
		n := runLength(b, x, y, color, d[0], d[1])
		if n >= 6 {
			return false
		}
		if n == 5 {
			exact = true
		}
	}
	return exact
}

// IsOverline reports whether placing color at (x, y) creates a run of six or
// more on any axis. The placement is simulated and reverted.
func IsOverline(b *Board, x, y int, color Cell) bool {
	if !InBounds(x, y) {
		return false
	}
	prev := b.Get(x, y)
	b.Set(x, y, color)
	defer b.Set(x, y, prev)
	for _, d := range dirs {
		if runLength(b, x, y, color, d[0], d[1]) >= 6 {
			return true
		}
	}
	return false
}

// axisFour reports whether, with a stone of color already at (x, y), the axis
// holds a four through (x, y): a five-cell window containing (x, y) with four
// own stones and one empty cell, whose completion yields exactly five (the
// cells just outside the window hold no own stone). With open set, the cells
// immediately beyond the four-stone span must additionally be empty.
func axisFour(b *Board, x, y int, color Cell, dx, dy int, open bool) bool {
	for k := 0; k < 5; k++ {
		sx, sy := x-k*dx, y-k*dy
		ex, ey := sx+4*dx, sy+4*dy
		if !InBounds(sx, sy) || !InBounds(ex, ey) {
			continue
		}
		own, empties := 0, 0
		lo, hi := -1, -1
		blocked := false
		for i := 0; i < 5; i++ {
			switch b.Get(sx+i*dx, sy+i*dy) {
			case color:
				own++
				if lo < 0 {
					lo = i
				}
				hi = i
			case Empty:
				empties++
			default:
				blocked = true
			}
		}
		if blocked || own != 4 || empties != 1 {
			continue
		}
		// completion must make exactly five, never an overline
		if px, py := sx-dx, sy-dy; InBounds(px, py) && b.Get(px, py) == color {
			continue
		}
		if px, py := ex+dx, ey+dy; InBounds(px, py) && b.Get(px, py) == color {
			continue
		}
		if open {
			px, py := sx+(lo-1)*dx, sy+(lo-1)*dy
			qx, qy := sx+(hi+1)*dx, sy+(hi+1)*dy
			if !InBounds(px, py) || b.Get(px, py) != Empty {
				continue
			}
			if !InBounds(qx, qy) || b.Get(qx, qy) != Empty {
				continue
			}
		}
		return true
	}
	return false
}

// IsForbiddenDoubleFour reports whether placing color at (x, y) creates open
// fours on two or more axes at once (44 금수). Out-of-bounds and occupied
// cells are not adjudicated here; callers check those first.
func IsForbiddenDoubleFour(b *Board, x, y int, color Cell) bool {
	if !InBounds(x, y) || b.Get(x, y) != Empty {
		return false
	}
	b.Set(x, y, color)
	defer b.Set(x, y, Empty)
	axes := 0
	for _, d := range dirs {
		if axisFour(b, x, y, color, d[0], d[1], true) {
			axes++
			if axes >= 2 {
				return true
			}
		}
	}
	return false
}

// IsForbiddenDoubleThree reports whether placing color at (x, y) creates
// realizable open threes on two or more axes at once (33 금수). An axis
// qualifies when some empty cell within the scan window would, if also
// occupied by color, complete an open four through (x, y). Per-axis, a three
// closed on one side never qualifies, regardless of the crossing axis.
//
// Occupied cells report true as a defensive default; this is not an occupancy
// guard and callers must still check occupancy before moving.
func IsForbiddenDoubleThree(b *Board, x, y int, color Cell) bool {
	if !InBounds(x, y) {
		return false
	}
	if b.Get(x, y) != Empty {
		return true
	}
	b.Set(x, y, color)
	defer b.Set(x, y, Empty)
	axes := 0
	for _, d := range dirs {
		if axisOpenThree(b, x, y, color, d[0], d[1]) {
			axes++
			if axes >= 2 {
				return true
			}
		}
	}
	return false
}

// axisOpenThree reports whether, with the candidate stone already placed at
// (x, y), some empty cell on the axis within the scan window turns the line
// into an open four through (x, y).
func axisOpenThree(b *Board, x, y int, color Cell, dx, dy int) bool {
	for t := -threeScanWindow; t <= threeScanWindow; t++ {
		if t == 0 {
			continue
		}
		cx, cy := x+t*dx, y+t*dy
		if !InBounds(cx, cy) || b.Get(cx, cy) != Empty {
			continue
		}
		b.Set(cx, cy, color)
		four := axisFour(b, x, y, color, dx, dy, true)
		b.Set(cx, cy, Empty)
		if four {
			return true
		}
	}
	return false
}
