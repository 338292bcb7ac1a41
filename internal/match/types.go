package match

import (
	"errors"
	"time"

	"github.com/SWWS97/Gomoku-Game/internal/omok"
)

// Color identifies a seat.
type Color string

const (
	BlackSeat Color = "black"
	WhiteSeat Color = "white"
)

// Opponent returns the other seat.
func (c Color) Opponent() Color {
	if c == BlackSeat {
		return WhiteSeat
	}
	return BlackSeat
}

// Stone maps a seat to its board cell.
func (c Color) Stone() omok.Cell {
	if c == BlackSeat {
		return omok.Black
	}
	return omok.White
}

const (
	// InitialClockSec is the per-color countdown, 15 minutes.
	InitialClockSec = 900

	defaultTitle = "오목 게임"
	rankedTitle  = "랭크 매칭"
)

// Input errors: reported to the caller only, no mutation, no broadcast.
var (
	ErrMatchFinished   = errors.New("match already finished")
	ErrOutOfBounds     = errors.New("coordinate out of bounds")
	ErrCellOccupied    = errors.New("cell occupied")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrSeatTaken       = errors.New("seat already taken")
	ErrNotAParticipant = errors.New("not a participant")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrNotReady        = errors.New("both players must be ready")
	ErrNoOpponent      = errors.New("no opponent seated")
	ErrAlreadyFinished = errors.New("match already finished")
	ErrNotPractice     = errors.New("opponent seated")
	ErrHasMoves        = errors.New("match already underway")
	ErrNotExpired      = errors.New("clock not expired")
)

// Rule violations: the restricted color only, checked in this order.
var (
	ErrOverline    = errors.New("overline forbidden")
	ErrDoubleFour  = errors.New("double four forbidden")
	ErrDoubleThree = errors.New("double three forbidden")
)

// Terminal events surfaced as errors to the mover whose clock ran out.
var ErrTimedOut = errors.New("clock expired")

// Player is a seated identity.
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Rating   int    `json:"rating"`
}

// Move is one committed placement.
type Move struct {
	Order int   `json:"order"`
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color Color `json:"color"`
}

// Record is the JSON form mirrored to redis after every mutation.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Board        string    `json:"board"`
	Turn         Color     `json:"turn"`
	Winner       Color     `json:"winner,omitempty"`
	Black        *Player   `json:"black,omitempty"`
	White        *Player   `json:"white,omitempty"`
	BlackTime    int       `json:"black_time"`
	WhiteTime    int       `json:"white_time"`
	BlackReady   bool      `json:"black_ready"`
	WhiteReady   bool      `json:"white_ready"`
	Started      bool      `json:"started"`
	RematchBlack bool      `json:"rematch_black"`
	RematchWhite bool      `json:"rematch_white"`
	Ranked       bool      `json:"ranked"`
	MoveCount    int       `json:"move_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastMoveAt   time.Time `json:"last_move_at,omitempty"`
}

// Snapshot is the broadcast view of a session, with clocks projected to the
// inspection instant.
type Snapshot struct {
	Record
	Size int `json:"size"`
	// Recorded is set when termination emitted a history record; practice
	// wins finish the board without one.
	Recorded bool `json:"-"`
}

// HistoryRecord is the immutable row written when a recorded game ends.
type HistoryRecord struct {
	GameID     string
	BlackID    string
	BlackName  string
	WhiteID    string
	WhiteName  string
	Winner     Color
	TotalMoves int
	CreatedAt  time.Time
	FinishedAt time.Time
}

// RatingDeltas accompanies a finished ranked game.
type RatingDeltas struct {
	WinnerID    string `json:"winner_id"`
	WinnerDelta int    `json:"winner_delta"`
	LoserID     string `json:"loser_id"`
	LoserDelta  int    `json:"loser_delta"`
}
