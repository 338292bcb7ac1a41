package omokdto

import "time"

// Server event type tags.
const (
	EventState           = "state"
	EventPlayerJoined    = "player_joined"
	EventGameFinished    = "game_finished"
	EventGameDeleted     = "game_deleted"
	EventError           = "error"
	EventQueueJoined     = "queue_joined"
	EventQueueUpdate     = "queue_update"
	EventQueueLeft       = "queue_left"
	EventMatchFound      = "match_found"
	EventMatchStatus     = "match_status"
	EventMatchConfirmed  = "match_confirmed"
	EventMatchDeclined   = "match_declined"
	EventMatchTimeout    = "match_timeout"
	EventUsers           = "users"
	EventRoomListChanged = "room_list_changed"
)

// PlayerView is one seated player as shown to clients.
type PlayerView struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Rating   int    `json:"rating"`
	Ready    bool   `json:"ready"`
}

// RatingDeltas accompanies a finished ranked game.
type RatingDeltas struct {
	WinnerID    string `json:"winner_id"`
	WinnerDelta int    `json:"winner_delta"`
	LoserID     string `json:"loser_id"`
	LoserDelta  int    `json:"loser_delta"`
}

// GameState is the full snapshot fanned out to everyone watching a match.
type GameState struct {
	Type         string        `json:"type"`
	GameID       string        `json:"game_id"`
	Title        string        `json:"title"`
	Board        string        `json:"board"`
	Size         int           `json:"size"`
	Turn         string        `json:"turn"`
	Winner       string        `json:"winner,omitempty"`
	BlackPlayer  *PlayerView   `json:"black_player,omitempty"`
	WhitePlayer  *PlayerView   `json:"white_player,omitempty"`
	BlackTime    int           `json:"black_time"`
	WhiteTime    int           `json:"white_time"`
	Started      bool          `json:"started"`
	Ranked       bool          `json:"ranked"`
	RematchBlack bool          `json:"rematch_black"`
	RematchWhite bool          `json:"rematch_white"`
	MoveCount    int           `json:"move_count"`
	Deltas       *RatingDeltas `json:"rating_deltas,omitempty"`
}

// ErrorEvent carries a human-readable rejection to the originating caller.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Event is a minimal tagged payload for events with no extra fields.
type Event struct {
	Type string `json:"type"`
}

type QueueJoinedEvent struct {
	Type      string `json:"type"`
	Rating    int    `json:"rating"`
	QueueSize int    `json:"queue_size"`
}

type QueueUpdateEvent struct {
	Type           string `json:"type"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	CurrentRange   int    `json:"current_range"`
	TierRange      string `json:"tier_range"`
	QueueSize      int    `json:"queue_size"`
}

// OpponentView is the counterpart shown in a match proposal.
type OpponentView struct {
	Nickname     string `json:"nickname"`
	Rating       int    `json:"rating"`
	TotalGames   int    `json:"total_games"`
	ProfileImage string `json:"profile_image,omitempty"`
}

type MatchFoundEvent struct {
	Type          string       `json:"type"`
	MatchID       string       `json:"match_id"`
	Opponent      OpponentView `json:"opponent"`
	AcceptTimeout int          `json:"accept_timeout"`
}

type MatchStatusEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Status  string `json:"status"`
}

type MatchConfirmedEvent struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
}

type MatchDeclinedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type MatchTimeoutEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LobbyUser is one online player in the lobby presence list.
type LobbyUser struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

type UsersEvent struct {
	Type  string      `json:"type"`
	Users []LobbyUser `json:"users"`
}

// RoomView is one waiting room in the lobby listing.
type RoomView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomListEvent struct {
	Type  string     `json:"type"`
	Rooms []RoomView `json:"rooms"`
}
