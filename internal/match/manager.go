package match

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SWWS97/Gomoku-Game/internal/obslog"
	"github.com/SWWS97/Gomoku-Game/internal/rating"
)

var (
	ErrNotFound         = errors.New("match not found")
	ErrActiveGameExists = errors.New("active game exists")
	ErrServerBusy       = errors.New("too many concurrent games")
)

// Manager owns the live session table. Sessions are authoritative; redis
// mirroring and history/rating persistence are best-effort and never block a
// game from proceeding.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store *Store
	repo  Recorder

	// maxGames caps live sessions; 0 means unlimited.
	maxGames int
}

func NewManager(store *Store, repo Recorder) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		repo:     repo,
	}
}

// SetMaxGames caps the number of live sessions.
func (m *Manager) SetMaxGames(n int) {
	m.mu.Lock()
	m.maxGames = n
	m.mu.Unlock()
}

// CreateRoom opens a waiting room. A player may hold only one unfinished
// game at a time.
func (m *Manager) CreateRoom(ctx context.Context, owner *Player) (*Snapshot, error) {
	m.mu.Lock()
	if m.maxGames > 0 && len(m.sessions) >= m.maxGames {
		m.mu.Unlock()
		return nil, ErrServerBusy
	}
	if m.activeSessionLocked(owner.ID) != nil {
		m.mu.Unlock()
		return nil, ErrActiveGameExists
	}
	id := newMatchID()
	sess := NewSession(id, owner)
	m.sessions[id] = sess
	m.mu.Unlock()

	snap := sess.Snapshot()
	m.mirror(ctx, snap)
	if m.store != nil {
		if err := m.store.AddLobby(ctx, id); err != nil {
			obslog.L().Error("lobby_index_error", zap.String("game_id", id), zap.Error(err))
		}
	}
	obslog.L().Info("match_create",
		zap.String("game_id", id),
		zap.String("owner_id", owner.ID),
	)
	return snap, nil
}

// CreateRanked promotes a confirmed queue pairing into a live match.
// Color assignment has already been decided by the caller's coin flip.
func (m *Manager) CreateRanked(ctx context.Context, black, white *Player) (*Snapshot, error) {
	m.mu.Lock()
	if m.maxGames > 0 && len(m.sessions) >= m.maxGames {
		m.mu.Unlock()
		return nil, ErrServerBusy
	}
	if m.activeSessionLocked(black.ID) != nil || m.activeSessionLocked(white.ID) != nil {
		m.mu.Unlock()
		return nil, ErrActiveGameExists
	}
	id := newMatchID()
	sess := NewRankedSession(id, black, white)
	m.sessions[id] = sess
	m.mu.Unlock()

	snap := sess.Snapshot()
	m.mirror(ctx, snap)
	obslog.L().Info("match_create_ranked",
		zap.String("game_id", id),
		zap.String("black_id", black.ID),
		zap.String("white_id", white.ID),
	)
	return snap, nil
}

// Get returns the live session for an id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// HasActiveGame reports whether the user is seated in any unfinished match.
func (m *Manager) HasActiveGame(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeSessionLocked(userID) != nil
}

func (m *Manager) activeSessionLocked(userID string) *Session {
	for _, sess := range m.sessions {
		if sess.IsParticipant(userID) && !sess.Finished() {
			return sess
		}
	}
	return nil
}

// WaitingRooms lists rooms with an open white seat, newest first.
func (m *Manager) WaitingRooms() []*Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Snapshot
	for _, sess := range m.sessions {
		snap := sess.Snapshot()
		if snap.White == nil && snap.Winner == "" {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Join seats the player in the white seat of a waiting room.
func (m *Manager) Join(ctx context.Context, id string, p *Player) (*Snapshot, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	snap, err := sess.SeatOpponent(p)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		_ = m.store.RemoveLobby(ctx, id)
		_ = m.store.ClearMoves(ctx, id)
	}
	m.mirror(ctx, snap)
	obslog.L().Info("match_join", zap.String("game_id", id), zap.String("user_id", p.ID))
	return snap, nil
}

// Leave handles an explicit exit from an unstarted room: the owner leaving
// deletes the room, a guest leaving vacates the white seat. Once moves exist
// the game must end by surrender instead.
func (m *Manager) Leave(ctx context.Context, id, userID string) (snap *Snapshot, deleted bool, err error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, false, ErrNotFound
	}
	if sess.Finished() {
		return sess.Snapshot(), false, nil
	}
	if sess.HasMoves() {
		return nil, false, ErrHasMoves
	}
	if sess.OwnerID() == userID {
		m.teardown(ctx, id)
		obslog.L().Info("match_delete", zap.String("game_id", id), zap.String("user_id", userID))
		return nil, true, nil
	}
	snap, err = sess.VacateWhite()
	if err != nil {
		return nil, false, err
	}
	if m.store != nil {
		_ = m.store.AddLobby(ctx, id)
	}
	m.mirror(ctx, snap)
	obslog.L().Info("match_leave", zap.String("game_id", id), zap.String("user_id", userID))
	return snap, false, nil
}

// Move runs the full placement pipeline. A clock expiry discovered by the
// attempt still finishes the match: the final snapshot and deltas come back
// alongside ErrTimedOut.
func (m *Manager) Move(ctx context.Context, id, userID string, x, y int) (*Snapshot, *RatingDeltas, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, nil, ErrNotFound
	}
	snap, err := sess.AttemptMove(userID, x, y)
	if err != nil && !errors.Is(err, ErrTimedOut) {
		return nil, nil, err
	}
	if err == nil && snap.MoveCount > 0 && m.store != nil {
		if serr := m.store.AppendMove(ctx, id, Move{Order: snap.MoveCount, X: x, Y: y, Color: moverOf(snap)}); serr != nil {
			obslog.L().Error("move_mirror_error", zap.String("game_id", id), zap.Error(serr))
		}
	}
	m.mirror(ctx, snap)
	deltas := m.finalize(ctx, sess, snap)
	return snap, deltas, err
}

// moverOf recovers the color that just played from the post-move snapshot.
func moverOf(snap *Snapshot) Color {
	if snap.Winner != "" {
		return snap.Winner
	}
	return snap.Turn.Opponent()
}

func (m *Manager) Ready(ctx context.Context, id, userID string) (*Snapshot, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	snap, err := sess.MarkReady(userID)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, snap)
	return snap, nil
}

func (m *Manager) Start(ctx context.Context, id, userID string) (*Snapshot, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	snap, err := sess.Start(userID)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, snap)
	obslog.L().Info("match_start", zap.String("game_id", id))
	return snap, nil
}

func (m *Manager) Surrender(ctx context.Context, id, userID string) (*Snapshot, *RatingDeltas, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, nil, ErrNotFound
	}
	snap, err := sess.Surrender(userID)
	if err != nil {
		return nil, nil, err
	}
	m.mirror(ctx, snap)
	deltas := m.finalize(ctx, sess, snap)
	obslog.L().Info("match_surrender",
		zap.String("game_id", id),
		zap.String("user_id", userID),
		zap.String("winner", string(snap.Winner)),
	)
	return snap, deltas, nil
}

// ReportTimeout resolves a client-reported clock expiry for a color.
func (m *Manager) ReportTimeout(ctx context.Context, id string, c Color) (*Snapshot, *RatingDeltas, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, nil, ErrNotFound
	}
	snap, err := sess.HandleTimeout(c)
	if err != nil {
		return nil, nil, err
	}
	m.mirror(ctx, snap)
	deltas := m.finalize(ctx, sess, snap)
	obslog.L().Info("match_timeout",
		zap.String("game_id", id),
		zap.String("timed_out", string(c)),
	)
	return snap, deltas, nil
}

func (m *Manager) RequestRematch(ctx context.Context, id, userID string) (*Snapshot, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	snap, err := sess.RequestRematch(userID)
	if err != nil {
		return nil, err
	}
	if snap.Winner == "" && snap.MoveCount == 0 && m.store != nil {
		// both sides agreed: fresh round, drop the mirrored move log
		_ = m.store.ClearMoves(ctx, id)
	}
	m.mirror(ctx, snap)
	return snap, nil
}

func (m *Manager) DeclineRematch(ctx context.Context, id, userID string) (*Snapshot, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	snap, err := sess.DeclineRematch(userID)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, snap)
	return snap, nil
}

func (m *Manager) ResetPractice(ctx context.Context, id string) (*Snapshot, error) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	snap, err := sess.ResetPractice()
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		_ = m.store.ClearMoves(ctx, id)
	}
	m.mirror(ctx, snap)
	return snap, nil
}

// HandleDisconnect applies the room policy when a seated player drops:
// before any move, the owner leaving tears the room down and a guest leaving
// vacates the seat; mid-game disconnects are ignored (reconnection is
// expected); after the game finished the room is torn down.
func (m *Manager) HandleDisconnect(ctx context.Context, id, userID string) (snap *Snapshot, deleted bool) {
	sess, ok := m.Get(id)
	if !ok {
		return nil, false
	}
	if !sess.IsParticipant(userID) {
		return nil, false
	}
	if sess.Finished() {
		m.teardown(ctx, id)
		return nil, true
	}
	if sess.HasMoves() {
		return nil, false
	}
	if sess.OwnerID() == userID {
		m.teardown(ctx, id)
		obslog.L().Info("match_delete_on_disconnect", zap.String("game_id", id))
		return nil, true
	}
	vsnap, err := sess.VacateWhite()
	if err != nil {
		return nil, false
	}
	if m.store != nil {
		_ = m.store.AddLobby(ctx, id)
	}
	m.mirror(ctx, vsnap)
	return vsnap, false
}

func (m *Manager) teardown(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			obslog.L().Error("match_teardown_error", zap.String("game_id", id), zap.Error(err))
		}
	}
}

// mirror pushes the snapshot into redis, best-effort.
func (m *Manager) mirror(ctx context.Context, snap *Snapshot) {
	if m.store == nil || snap == nil {
		return
	}
	if err := m.store.SaveRecord(ctx, &snap.Record); err != nil {
		obslog.L().Error("match_mirror_error", zap.String("game_id", snap.ID), zap.Error(err))
	}
}

// finalize persists the history record of a recorded termination and, for
// ranked games, applies the Elo result. Failures are logged, never fatal:
// the in-memory winner determination is the source of truth.
func (m *Manager) finalize(ctx context.Context, sess *Session, snap *Snapshot) *RatingDeltas {
	if snap == nil || snap.Winner == "" || !snap.Recorded {
		return nil
	}
	h := sess.ConsumeHistory()
	if h == nil {
		return nil
	}
	if m.repo != nil {
		if err := m.repo.SaveHistory(ctx, h); err != nil {
			obslog.L().Error("history_persist_error", zap.String("game_id", h.GameID), zap.Error(err))
		}
	}
	obslog.L().Info("match_finish",
		zap.String("game_id", h.GameID),
		zap.String("winner", string(h.Winner)),
		zap.Int("total_moves", h.TotalMoves),
	)
	if !snap.Ranked || m.repo == nil {
		return nil
	}

	winner, loser := snap.Black, snap.White
	if snap.Winner == WhiteSeat {
		winner, loser = snap.White, snap.Black
	}
	winRP, err := m.repo.Rating(ctx, winner.ID)
	if err != nil {
		obslog.L().Error("rating_read_error", zap.String("user_id", winner.ID), zap.Error(err))
		return nil
	}
	loseRP, err := m.repo.Rating(ctx, loser.ID)
	if err != nil {
		obslog.L().Error("rating_read_error", zap.String("user_id", loser.ID), zap.Error(err))
		return nil
	}
	winDelta, loseDelta := rating.Deltas(winRP, loseRP)
	if err := m.repo.ApplyResult(ctx, winner.ID, winRP+winDelta, loser.ID, loseRP+loseDelta); err != nil {
		obslog.L().Error("rating_persist_error", zap.String("game_id", h.GameID), zap.Error(err))
	}
	return &RatingDeltas{
		WinnerID:    winner.ID,
		WinnerDelta: winDelta,
		LoserID:     loser.ID,
		LoserDelta:  loseDelta,
	}
}

// newMatchID follows the timestamp-plus-random-suffix scheme.
func newMatchID() string {
	return fmt.Sprintf("omok-%d-%s", time.Now().UnixNano(), secureRandSuffix(3))
}

// secureRandSuffix returns a hex string of n bytes; falls back to a
// timestamp-based suffix when crypto fails.
func secureRandSuffix(n int) string {
	if n <= 0 {
		n = 3
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err == nil {
		return hex.EncodeToString(b)
	}
	return fmt.Sprintf("%x", time.Now().UnixNano()%1_000_000)
}
