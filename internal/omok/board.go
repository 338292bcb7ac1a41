package omok

import (
	"fmt"
	"strings"
)

// BoardSize is the edge length of the omok grid.
const BoardSize = 15

// Cell is one board position: empty, black stone, or white stone.
type Cell byte

const (
	Empty Cell = '.'
	Black Cell = 'B'
	White Cell = 'W'
)

// Board is the full grid as a flat row-major array, addressed y*15+x.
type Board [BoardSize * BoardSize]Cell

// NewBoard returns an all-empty board.
func NewBoard() Board {
	var b Board
	for i := range b {
		b[i] = Empty
	}
	return b
}

// InBounds reports whether (x, y) lies on the grid.
func InBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

func idx(x, y int) int { return y*BoardSize + x }

// Get returns the cell at (x, y). Callers must bounds-check first.
func (b *Board) Get(x, y int) Cell { return b[idx(x, y)] }

// Set places val at (x, y). Callers must bounds-check first.
func (b *Board) Set(x, y int, val Cell) { b[idx(x, y)] = val }

// String renders the board as the 225-character wire form ('.', 'B', 'W').
func (b *Board) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteByte(byte(c))
	}
	return sb.String()
}

// Parse rebuilds a board from its 225-character wire form.
func Parse(s string) (Board, error) {
	var b Board
	if len(s) != len(b) {
		return b, fmt.Errorf("board string length %d, want %d", len(s), len(b))
	}
	for i := 0; i < len(s); i++ {
		switch Cell(s[i]) {
		case Empty, Black, White:
			b[i] = Cell(s[i])
		default:
			return b, fmt.Errorf("invalid cell %q at index %d", s[i], i)
		}
	}
	return b, nil
}
