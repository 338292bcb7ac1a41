package match

import (
	"sync"
	"time"

	"github.com/SWWS97/Gomoku-Game/internal/omok"
)

// Session is the authoritative state of one live match. Every mutating method
// runs under the session mutex; state is computed in memory and returned as a
// snapshot for the caller to mirror and broadcast after the lock is released.
type Session struct {
	mu sync.Mutex

	id     string
	title  string
	ranked bool

	board  omok.Board
	turn   Color
	winner Color
	moves  []Move

	black *Player
	white *Player

	blackTime  int
	whiteTime  int
	lastMoveAt time.Time

	blackReady bool
	whiteReady bool
	started    bool

	rematchBlack bool
	rematchWhite bool

	createdAt    time.Time
	recorded     bool
	historyTaken bool

	now func() time.Time
}

// NewSession creates a waiting room owned by the black seat.
func NewSession(id string, owner *Player) *Session {
	s := &Session{
		id:        id,
		title:     defaultTitle,
		black:     owner,
		turn:      BlackSeat,
		board:     omok.NewBoard(),
		blackTime: InitialClockSec,
		whiteTime: InitialClockSec,
		now:       time.Now,
	}
	s.createdAt = s.now()
	return s
}

// NewRankedSession creates a match from a confirmed queue pairing. Both
// players double-confirmed via the accept handshake, so the game begins
// immediately with the clock running.
func NewRankedSession(id string, black, white *Player) *Session {
	s := NewSession(id, black)
	s.title = rankedTitle
	s.ranked = true
	s.white = white
	s.blackReady = true
	s.whiteReady = true
	s.started = true
	s.lastMoveAt = s.now()
	return s
}

func (s *Session) ID() string { return s.id }

// colorOf returns the seat of a user, or "" for outsiders.
func (s *Session) colorOf(userID string) Color {
	if s.black != nil && s.black.ID == userID {
		return BlackSeat
	}
	if s.white != nil && s.white.ID == userID {
		return WhiteSeat
	}
	return ""
}

func (s *Session) playerOf(c Color) *Player {
	if c == BlackSeat {
		return s.black
	}
	return s.white
}

func (s *Session) bothSeated() bool { return s.black != nil && s.white != nil }

// resetRound clears the board, clocks, log, and handshake flags. Seats stay.
func (s *Session) resetRound() {
	s.board = omok.NewBoard()
	s.turn = BlackSeat
	s.winner = ""
	s.moves = nil
	s.blackTime = InitialClockSec
	s.whiteTime = InitialClockSec
	s.lastMoveAt = time.Time{}
	s.blackReady = false
	s.whiteReady = false
	s.started = false
	s.rematchBlack = false
	s.rematchWhite = false
	s.recorded = false
	s.historyTaken = false
}

// debit charges the elapsed wall clock since the last move to the color on
// move. Clocks only run once both colors are seated.
func (s *Session) debit() {
	if s.lastMoveAt.IsZero() || !s.bothSeated() || s.winner != "" {
		return
	}
	elapsed := int(s.now().Sub(s.lastMoveAt).Seconds())
	if elapsed <= 0 {
		return
	}
	if s.turn == BlackSeat {
		s.blackTime = max(0, s.blackTime-elapsed)
	} else {
		s.whiteTime = max(0, s.whiteTime-elapsed)
	}
	s.lastMoveAt = s.now()
}

// finish sets the winner and emits the history marker when both seats are
// occupied. Practice wins finish the board without a record.
func (s *Session) finish(winner Color) {
	s.winner = winner
	s.recorded = s.bothSeated()
}

// SeatOpponent seats a second player and resets for a fresh round.
func (s *Session) SeatOpponent(p *Player) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.white != nil {
		return nil, ErrSeatTaken
	}
	if s.black != nil && s.black.ID == p.ID {
		return nil, ErrSeatTaken
	}
	s.white = p
	s.resetRound()
	return s.snapshot(), nil
}

// MarkReady records a player's pre-game ready flag. No-op once started.
func (s *Session) MarkReady(userID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.colorOf(userID)
	if c == "" {
		return nil, ErrNotAParticipant
	}
	if !s.started {
		if c == BlackSeat {
			s.blackReady = true
		} else {
			s.whiteReady = true
		}
	}
	return s.snapshot(), nil
}

// Start begins the match. Only the room owner (black seat) may start, and
// only after both ready flags are set.
func (s *Session) Start(userID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.black == nil || s.black.ID != userID {
		return nil, ErrNotAuthorized
	}
	if !s.blackReady || !s.whiteReady {
		return nil, ErrNotReady
	}
	if !s.started {
		s.started = true
		s.lastMoveAt = s.now()
	}
	return s.snapshot(), nil
}

// AttemptMove places a stone for the caller. Any failure leaves the board
// untouched; ErrTimedOut is the one failure that also finishes the match, and
// the returned snapshot carries the final state.
func (s *Session) AttemptMove(userID string, x, y int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winner != "" {
		return nil, ErrMatchFinished
	}
	if !omok.InBounds(x, y) {
		return nil, ErrOutOfBounds
	}
	if s.board.Get(x, y) != omok.Empty {
		return nil, ErrCellOccupied
	}

	s.debit()
	if s.bothSeated() {
		onMove := s.turn
		remaining := s.blackTime
		if onMove == WhiteSeat {
			remaining = s.whiteTime
		}
		if remaining <= 0 {
			s.finish(onMove.Opponent())
			return s.snapshot(), ErrTimedOut
		}
	}

	if expected := s.playerOf(s.turn); expected != nil && expected.ID != userID {
		return nil, ErrNotYourTurn
	}

	stone := s.turn.Stone()
	if stone == omok.Black {
		if omok.IsOverline(&s.board, x, y, omok.Black) {
			return nil, ErrOverline
		}
		if omok.IsForbiddenDoubleFour(&s.board, x, y, omok.Black) {
			return nil, ErrDoubleFour
		}
		if omok.IsForbiddenDoubleThree(&s.board, x, y, omok.Black) {
			return nil, ErrDoubleThree
		}
	}

	s.board.Set(x, y, stone)
	s.moves = append(s.moves, Move{Order: len(s.moves) + 1, X: x, Y: y, Color: s.turn})

	// 흑은 정확 5목만 승리 (장목은 위에서 금수 처리), 백은 5목 이상 승리
	won := false
	if stone == omok.Black {
		won = omok.HasExactFive(&s.board, x, y, omok.Black)
	} else {
		won = omok.CheckFive(&s.board, omok.White)
	}
	if won {
		s.finish(s.turn)
	} else {
		s.turn = s.turn.Opponent()
	}
	if s.bothSeated() {
		s.lastMoveAt = s.now()
	}
	return s.snapshot(), nil
}

// Surrender forfeits the game for the calling player.
func (s *Session) Surrender(userID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winner != "" {
		return nil, ErrAlreadyFinished
	}
	if !s.bothSeated() {
		return nil, ErrNoOpponent
	}
	c := s.colorOf(userID)
	if c == "" {
		return nil, ErrNotAParticipant
	}
	s.finish(c.Opponent())
	return s.snapshot(), nil
}

// HandleTimeout resolves a client-reported clock expiry for the color on
// move. The report is validated against the lazily debited clock; a report
// for a clock that has not actually run out is rejected.
func (s *Session) HandleTimeout(c Color) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winner != "" {
		return nil, ErrAlreadyFinished
	}
	if !s.bothSeated() {
		return nil, ErrNoOpponent
	}
	if s.turn != c {
		return nil, ErrNotExpired
	}
	s.debit()
	remaining := s.blackTime
	if c == WhiteSeat {
		remaining = s.whiteTime
	}
	if remaining > 0 {
		return nil, ErrNotExpired
	}
	s.finish(c.Opponent())
	return s.snapshot(), nil
}

// RequestRematch sets the caller's rematch flag; once both are set the seats
// swap colors and a fresh round begins.
func (s *Session) RequestRematch(userID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.colorOf(userID)
	if c == "" {
		return nil, ErrNotAParticipant
	}
	if !s.bothSeated() {
		return nil, ErrNoOpponent
	}
	if c == BlackSeat {
		s.rematchBlack = true
	} else {
		s.rematchWhite = true
	}
	if s.rematchBlack && s.rematchWhite {
		s.black, s.white = s.white, s.black
		s.resetRound()
	}
	return s.snapshot(), nil
}

// DeclineRematch clears both rematch flags, leaving the finished board.
func (s *Session) DeclineRematch(userID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.colorOf(userID) == "" {
		return nil, ErrNotAParticipant
	}
	s.rematchBlack = false
	s.rematchWhite = false
	return s.snapshot(), nil
}

// ResetPractice clears a solo board. Invalid once an opponent is seated.
func (s *Session) ResetPractice() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.white != nil {
		return nil, ErrNotPractice
	}
	s.resetRound()
	return s.snapshot(), nil
}

// VacateWhite empties the white seat of an unstarted room.
func (s *Session) VacateWhite() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.moves) > 0 && s.winner == "" {
		return nil, ErrHasMoves
	}
	s.white = nil
	s.resetRound()
	return s.snapshot(), nil
}

// HasMoves reports whether any stone has been committed this round.
func (s *Session) HasMoves() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.moves) > 0
}

// Finished reports whether a winner has been decided.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner != ""
}

// OwnerID returns the room owner's user id, or "".
func (s *Session) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.black == nil {
		return ""
	}
	return s.black.ID
}

// IsParticipant reports whether the user occupies a seat.
func (s *Session) IsParticipant(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.colorOf(userID) != ""
}

// Snapshot returns the broadcast view with clocks projected to now.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot must be called with the mutex held.
func (s *Session) snapshot() *Snapshot {
	snap := &Snapshot{
		Record: Record{
			ID:           s.id,
			Title:        s.title,
			Board:        s.board.String(),
			Turn:         s.turn,
			Winner:       s.winner,
			Black:        s.black,
			White:        s.white,
			BlackTime:    s.blackTime,
			WhiteTime:    s.whiteTime,
			BlackReady:   s.blackReady,
			WhiteReady:   s.whiteReady,
			Started:      s.started,
			RematchBlack: s.rematchBlack,
			RematchWhite: s.rematchWhite,
			Ranked:       s.ranked,
			MoveCount:    len(s.moves),
			CreatedAt:    s.createdAt,
			LastMoveAt:   s.lastMoveAt,
		},
		Size:     omok.BoardSize,
		Recorded: s.recorded,
	}
	// 표시용 시계 보정: 착수 없이 흐른 시간 반영
	if !s.lastMoveAt.IsZero() && s.winner == "" && s.bothSeated() {
		elapsed := int(s.now().Sub(s.lastMoveAt).Seconds())
		if elapsed > 0 {
			if s.turn == BlackSeat {
				snap.BlackTime = max(0, s.blackTime-elapsed)
			} else {
				snap.WhiteTime = max(0, s.whiteTime-elapsed)
			}
		}
	}
	return snap
}

// ConsumeHistory builds the immutable record for a recorded termination.
// It yields exactly once per round so later snapshots of the same finished
// board never duplicate the record.
func (s *Session) ConsumeHistory() *HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recorded || s.historyTaken || s.black == nil || s.white == nil {
		return nil
	}
	s.historyTaken = true
	return &HistoryRecord{
		GameID:     s.id,
		BlackID:    s.black.ID,
		BlackName:  s.black.Nickname,
		WhiteID:    s.white.ID,
		WhiteName:  s.white.Nickname,
		Winner:     s.winner,
		TotalMoves: len(s.moves),
		CreatedAt:  s.createdAt,
		FinishedAt: s.now(),
	}
}
