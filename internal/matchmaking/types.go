package matchmaking

import (
	"errors"
	"time"
)

// 매칭 설정
const (
	BaseRange         = 50  // 기본 rating 범위
	ExpansionRate     = 25  // 확장 폭 (인터벌당)
	ExpansionInterval = 15  // 확장 간격 (초)
	MaxRange          = 300 // 최대 범위

	// AcceptTimeout is the window both players have to confirm a proposal.
	AcceptTimeout = 10 * time.Second
)

// Status is the outcome of an accept/decline call.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusTimeout   Status = "timeout"
)

var ErrAlreadyQueued = errors.New("already queued or in a pending match")

// QueueEntry is a waiting player with display metadata.
type QueueEntry struct {
	UserID       string    `json:"user_id"`
	Rating       int       `json:"rating"`
	Nickname     string    `json:"nickname"`
	Username     string    `json:"username"`
	TotalGames   int       `json:"total_games"`
	ProfileImage string    `json:"profile_image,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
}

// PendingMatch is a proposed pairing awaiting both confirmations.
type PendingMatch struct {
	MatchID         string
	Player1         QueueEntry
	Player2         QueueEntry
	Player1Accepted bool
	Player2Accepted bool
	CreatedAt       time.Time
}

// Other returns the entry opposing the given user.
func (p *PendingMatch) Other(userID string) QueueEntry {
	if p.Player1.UserID == userID {
		return p.Player2
	}
	return p.Player1
}

// CurrentRange returns the search half-width after a queue wait.
func CurrentRange(secondsInQueue int) int {
	expansions := secondsInQueue / ExpansionInterval
	r := BaseRange + expansions*ExpansionRate
	if r > MaxRange {
		r = MaxRange
	}
	return r
}

// RatingRange returns the inclusive window for a rating after a queue wait.
func RatingRange(rating, secondsInQueue int) (lo, hi int) {
	r := CurrentRange(secondsInQueue)
	return rating - r, rating + r
}
