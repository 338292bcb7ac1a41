package omokdto

// IntentType tags a client request. Each gateway endpoint dispatches over
// these with a single exhaustive switch.
type IntentType string

const (
	// game endpoint
	IntentPlay           IntentType = "play"
	IntentSurrender      IntentType = "surrender"
	IntentReady          IntentType = "ready"
	IntentStart          IntentType = "start"
	IntentRematchRequest IntentType = "rematch_request"
	IntentRematchAccept  IntentType = "rematch_accept"
	IntentRematchDecline IntentType = "rematch_decline"
	IntentResetPractice  IntentType = "reset_practice"
	IntentReportTimeout  IntentType = "report_timeout"

	// matchmaking endpoint
	IntentJoinQueue    IntentType = "join_queue"
	IntentLeaveQueue   IntentType = "leave_queue"
	IntentAcceptMatch  IntentType = "accept_match"
	IntentDeclineMatch IntentType = "decline_match"
)

// Intent is the wire envelope for every client request.
type Intent struct {
	Type    IntentType `json:"type"`
	X       int        `json:"x,omitempty"`
	Y       int        `json:"y,omitempty"`
	Color   string     `json:"color,omitempty"`
	MatchID string     `json:"match_id,omitempty"`
}
