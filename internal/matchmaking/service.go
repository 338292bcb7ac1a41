package matchmaking

import (
	"crypto/rand"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SWWS97/Gomoku-Game/internal/obslog"
)

// Service is the single authority over the queue, the pending-match table,
// and the player→match reverse index. One mutex serializes every check-then-
// act: once a candidate pair is chosen, both entries leave the queue before
// any other caller can see them. Nothing here performs I/O under the lock.
type Service struct {
	mu      sync.Mutex
	queue   map[string]*QueueEntry
	pending map[string]*PendingMatch
	// userMatch maps a player to their single pending match; combined with
	// the queue map it guarantees one queue entry OR one pending match per
	// player, never both.
	userMatch map[string]string

	now func() time.Time
}

func NewService() *Service {
	return &Service{
		queue:     make(map[string]*QueueEntry),
		pending:   make(map[string]*PendingMatch),
		userMatch: make(map[string]string),
		now:       time.Now,
	}
}

// Enqueue inserts a waiting player. A player already queued or already part
// of a pending match is rejected.
func (s *Service) Enqueue(e QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[e.UserID]; ok {
		return ErrAlreadyQueued
	}
	if _, ok := s.userMatch[e.UserID]; ok {
		return ErrAlreadyQueued
	}
	entry := e
	entry.JoinedAt = s.now()
	s.queue[e.UserID] = &entry
	obslog.L().Info("queue_join",
		zap.String("user_id", e.UserID),
		zap.Int("rating", e.Rating),
		zap.Int("queue_size", len(s.queue)),
	)
	return nil
}

// Requeue restores a previously removed entry with its original enqueue
// time preserved (used when an opponent declines).
func (s *Service) Requeue(e QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[e.UserID]; ok {
		return ErrAlreadyQueued
	}
	if _, ok := s.userMatch[e.UserID]; ok {
		return ErrAlreadyQueued
	}
	entry := e
	s.queue[e.UserID] = &entry
	return nil
}

// Dequeue removes a player from the queue. Idempotent.
func (s *Service) Dequeue(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[userID]; !ok {
		return false
	}
	delete(s.queue, userID)
	obslog.L().Info("queue_leave", zap.String("user_id", userID), zap.Int("queue_size", len(s.queue)))
	return true
}

// Entry returns a copy of the player's queue entry.
func (s *Service) Entry(userID string) (QueueEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue[userID]
	if !ok {
		return QueueEntry{}, false
	}
	return *e, true
}

// SecondsInQueue returns how long the player has been waiting.
func (s *Service) SecondsInQueue(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue[userID]
	if !ok {
		return 0
	}
	return int(s.now().Sub(e.JoinedAt).Seconds())
}

// QueueSize returns the number of waiting players.
func (s *Service) QueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// FindCandidate returns a copy of the first mutually compatible opponent,
// oldest-waiting-first. Both windows must contain the other player's rating.
func (s *Service) FindCandidate(userID string) (QueueEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCandidateLocked(userID)
	if c == nil {
		return QueueEntry{}, false
	}
	return *c, true
}

func (s *Service) findCandidateLocked(userID string) *QueueEntry {
	entry, ok := s.queue[userID]
	if !ok {
		return nil
	}
	now := s.now()
	lo, hi := RatingRange(entry.Rating, int(now.Sub(entry.JoinedAt).Seconds()))

	candidates := make([]*QueueEntry, 0, len(s.queue)-1)
	for id, e := range s.queue {
		if id != userID {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].JoinedAt.Before(candidates[j].JoinedAt)
	})

	for _, cand := range candidates {
		if cand.Rating < lo || cand.Rating > hi {
			continue
		}
		clo, chi := RatingRange(cand.Rating, int(now.Sub(cand.JoinedAt).Seconds()))
		if clo <= entry.Rating && entry.Rating <= chi {
			return cand
		}
	}
	return nil
}

// Propose finds a candidate for the player and, in the same critical
// section, removes both entries and creates the pending match. The atomic
// check-then-act is the reason this cannot be FindCandidate followed by a
// separate call.
func (s *Service) Propose(userID string) (*PendingMatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cand := s.findCandidateLocked(userID)
	if cand == nil {
		return nil, false
	}
	me := s.queue[userID]
	delete(s.queue, userID)
	delete(s.queue, cand.UserID)

	m := &PendingMatch{
		MatchID:   uuid.NewString(),
		Player1:   *me,
		Player2:   *cand,
		CreatedAt: s.now(),
	}
	s.pending[m.MatchID] = m
	s.userMatch[me.UserID] = m.MatchID
	s.userMatch[cand.UserID] = m.MatchID
	obslog.L().Info("match_propose",
		zap.String("match_id", m.MatchID),
		zap.String("player1", me.UserID),
		zap.String("player2", cand.UserID),
	)
	mc := *m
	return &mc, true
}

// Accept marks a player's confirmation. A vanished match reads as declined;
// a proposal past its deadline is torn down and reads as timed out.
func (s *Service) Accept(matchID, userID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.pending[matchID]
	if !ok {
		return StatusDeclined
	}
	if s.now().Sub(m.CreatedAt) > AcceptTimeout {
		s.cleanupMatchLocked(matchID)
		return StatusTimeout
	}
	switch userID {
	case m.Player1.UserID:
		m.Player1Accepted = true
	case m.Player2.UserID:
		m.Player2Accepted = true
	}
	if m.Player1Accepted && m.Player2Accepted {
		return StatusConfirmed
	}
	return StatusWaiting
}

// Decline tears the pending match down and returns the opposing entry so
// the caller can requeue that player untouched. The decliner is not
// auto-requeued.
func (s *Service) Decline(matchID, userID string) (Status, *QueueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.pending[matchID]
	if !ok {
		return StatusDeclined, nil
	}
	other := m.Other(userID)
	s.cleanupMatchLocked(matchID)
	obslog.L().Info("match_decline",
		zap.String("match_id", matchID),
		zap.String("declined_by", userID),
	)
	return StatusDeclined, &other
}

// ConfirmAndCleanup removes the bookkeeping of a confirmed proposal and
// returns its final contents. Color assignment and session creation happen
// in the caller.
func (s *Service) ConfirmAndCleanup(matchID string) *PendingMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.pending[matchID]
	if !ok {
		return nil
	}
	mc := *m
	s.cleanupMatchLocked(matchID)
	return &mc
}

// PendingFor returns a copy of the player's pending match, if any.
func (s *Service) PendingFor(userID string) (*PendingMatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.userMatch[userID]
	if !ok {
		return nil, false
	}
	m, ok := s.pending[id]
	if !ok {
		return nil, false
	}
	mc := *m
	return &mc, true
}

// CleanupUser removes a disconnecting player from every table; an open
// proposal is declined on their behalf and the opponent returned for
// requeueing.
func (s *Service) CleanupUser(userID string) *QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queue, userID)
	id, ok := s.userMatch[userID]
	if !ok {
		return nil
	}
	m, ok := s.pending[id]
	if !ok {
		return nil
	}
	other := m.Other(userID)
	s.cleanupMatchLocked(id)
	return &other
}

func (s *Service) cleanupMatchLocked(matchID string) {
	m, ok := s.pending[matchID]
	if !ok {
		return
	}
	delete(s.userMatch, m.Player1.UserID)
	delete(s.userMatch, m.Player2.UserID)
	delete(s.pending, matchID)
}

// AssignColors flips an unweighted coin: true when the first player takes
// black.
func AssignColors() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return time.Now().UnixNano()%2 == 0
	}
	return n.Int64() == 0
}
