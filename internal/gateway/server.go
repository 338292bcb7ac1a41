package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SWWS97/Gomoku-Game/internal/match"
	"github.com/SWWS97/Gomoku-Game/internal/matchmaking"
	"github.com/SWWS97/Gomoku-Game/internal/obslog"
	"github.com/SWWS97/Gomoku-Game/pkg/omokdto"
)

// Server hosts the websocket endpoints: per-game channels, the ranked
// matchmaking channel, and the lobby presence channel.
type Server struct {
	hub     *Hub
	manager *match.Manager
	queue   *matchmaking.Service
	repo    match.Recorder

	httpSrv *http.Server

	// 로비 접속자 (user_id → nickname)
	presenceMu sync.Mutex
	presence   map[string]string
}

func NewServer(addr string, hub *Hub, manager *match.Manager, queue *matchmaking.Service, repo match.Recorder) *Server {
	s := &Server{
		hub:      hub,
		manager:  manager,
		queue:    queue,
		repo:     repo,
		presence: make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/game/{id}", s.handleGame)
	mux.HandleFunc("/ws/matchmaking", s.handleMatchmaking)
	mux.HandleFunc("/ws/lobby", s.handleLobby)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Hub exposes the fan-out bus so the REST layer can broadcast room events.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) ListenAndServe() error {
	obslog.L().Info("gateway_listen", zap.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// identity pulls the caller's identity from the query string. An empty
// user_id is a spectator: they receive broadcasts but may not act.
func identity(r *http.Request) (userID, nickname string) {
	q := r.URL.Query()
	userID = q.Get("user_id")
	nickname = q.Get("nickname")
	if nickname == "" {
		nickname = userID
	}
	return userID, nickname
}

func gameTopic(id string) string { return "game:" + id }

func queueTopic(user string) string { return "mm:" + user }

const lobbyTopic = "lobby"

// stateEvent projects a session snapshot into its wire form.
func stateEvent(typ string, snap *match.Snapshot, deltas *match.RatingDeltas) *omokdto.GameState {
	ev := &omokdto.GameState{
		Type:         typ,
		GameID:       snap.ID,
		Title:        snap.Title,
		Board:        snap.Board,
		Size:         snap.Size,
		Turn:         string(snap.Turn),
		Winner:       string(snap.Winner),
		BlackTime:    snap.BlackTime,
		WhiteTime:    snap.WhiteTime,
		Started:      snap.Started,
		Ranked:       snap.Ranked,
		RematchBlack: snap.RematchBlack,
		RematchWhite: snap.RematchWhite,
		MoveCount:    snap.MoveCount,
	}
	if snap.Black != nil {
		ev.BlackPlayer = &omokdto.PlayerView{ID: snap.Black.ID, Nickname: snap.Black.Nickname, Rating: snap.Black.Rating, Ready: snap.BlackReady}
	}
	if snap.White != nil {
		ev.WhitePlayer = &omokdto.PlayerView{ID: snap.White.ID, Nickname: snap.White.Nickname, Rating: snap.White.Rating, Ready: snap.WhiteReady}
	}
	if deltas != nil {
		ev.Deltas = &omokdto.RatingDeltas{
			WinnerID:    deltas.WinnerID,
			WinnerDelta: deltas.WinnerDelta,
			LoserID:     deltas.LoserID,
			LoserDelta:  deltas.LoserDelta,
		}
	}
	return ev
}

// errMessage maps sentinel errors to the messages clients display.
func errMessage(err error) string {
	switch {
	case errors.Is(err, match.ErrOutOfBounds):
		return "범위를 벗어난 좌표입니다."
	case errors.Is(err, match.ErrCellOccupied):
		return "이미 돌이 놓인 자리입니다."
	case errors.Is(err, match.ErrNotYourTurn):
		return "당신의 차례가 아닙니다."
	case errors.Is(err, match.ErrOverline):
		return "장목(6목 이상)은 둘 수 없습니다."
	case errors.Is(err, match.ErrDoubleFour):
		return "사사 금수입니다."
	case errors.Is(err, match.ErrDoubleThree):
		return "삼삼 금수입니다."
	case errors.Is(err, match.ErrMatchFinished), errors.Is(err, match.ErrAlreadyFinished):
		return "이미 종료된 게임입니다."
	case errors.Is(err, match.ErrSeatTaken):
		return "자리가 이미 찼습니다."
	case errors.Is(err, match.ErrNotAParticipant):
		return "게임 참가자가 아닙니다."
	case errors.Is(err, match.ErrNotAuthorized):
		return "권한이 없습니다."
	case errors.Is(err, match.ErrNotReady):
		return "모든 플레이어가 준비되어야 합니다."
	case errors.Is(err, match.ErrNoOpponent):
		return "상대가 아직 없습니다."
	case errors.Is(err, match.ErrNotPractice):
		return "연습 모드에서만 가능합니다."
	case errors.Is(err, match.ErrHasMoves):
		return "진행 중인 게임에서는 나갈 수 없습니다. 기권해 주세요."
	case errors.Is(err, match.ErrNotExpired):
		return "시간이 아직 남아 있습니다."
	case errors.Is(err, match.ErrNotFound):
		return "게임을 찾을 수 없습니다."
	case errors.Is(err, match.ErrActiveGameExists):
		return "이미 진행 중인 게임이 있습니다."
	case errors.Is(err, match.ErrServerBusy):
		return "서버가 혼잡합니다. 잠시 후 다시 시도해 주세요."
	case errors.Is(err, matchmaking.ErrAlreadyQueued):
		return "이미 매칭 대기 중입니다."
	default:
		return "요청을 처리할 수 없습니다."
	}
}

func errorEvent(err error) *omokdto.ErrorEvent {
	return &omokdto.ErrorEvent{Type: omokdto.EventError, Message: errMessage(err)}
}
