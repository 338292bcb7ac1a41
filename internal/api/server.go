package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/SWWS97/Gomoku-Game/internal/gateway"
	"github.com/SWWS97/Gomoku-Game/internal/match"
	"github.com/SWWS97/Gomoku-Game/internal/obslog"
	"github.com/SWWS97/Gomoku-Game/internal/rating"
	"github.com/SWWS97/Gomoku-Game/pkg/omokdto"
)

// Server is the JSON API for room management and player records. Realtime
// state travels over the websocket gateway; this surface covers the
// request/response operations around it.
type Server struct {
	manager *match.Manager
	repo    *match.Repository
	hub     *gateway.Hub

	srv  *fasthttp.Server
	addr string
}

func NewServer(addr string, manager *match.Manager, repo *match.Repository, hub *gateway.Hub) *Server {
	s := &Server{
		manager: manager,
		repo:    repo,
		hub:     hub,
		addr:    addr,
	}
	s.srv = &fasthttp.Server{
		Handler:      s.route,
		Name:         "omok-api",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	obslog.L().Info("api_listen", zap.String("addr", s.addr))
	return s.srv.ListenAndServe(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/healthz" && method == fasthttp.MethodGet:
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case path == "/api/rooms" && method == fasthttp.MethodGet:
		s.listRooms(ctx)
	case path == "/api/rooms" && method == fasthttp.MethodPost:
		s.createRoom(ctx)
	case strings.HasPrefix(path, "/api/rooms/") && strings.HasSuffix(path, "/join") && method == fasthttp.MethodPost:
		s.joinRoom(ctx, strings.TrimSuffix(strings.TrimPrefix(path, "/api/rooms/"), "/join"))
	case strings.HasPrefix(path, "/api/rooms/") && strings.HasSuffix(path, "/leave") && method == fasthttp.MethodPost:
		s.leaveRoom(ctx, strings.TrimSuffix(strings.TrimPrefix(path, "/api/rooms/"), "/leave"))
	case path == "/api/history" && method == fasthttp.MethodGet:
		s.history(ctx)
	case path == "/api/profile" && method == fasthttp.MethodGet:
		s.profile(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

type identityRequest struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

func (s *Server) listRooms(ctx *fasthttp.RequestCtx) {
	rooms := make([]omokdto.RoomView, 0)
	for _, snap := range s.manager.WaitingRooms() {
		owner := ""
		if snap.Black != nil {
			owner = snap.Black.Nickname
		}
		rooms = append(rooms, omokdto.RoomView{
			ID:        snap.ID,
			Title:     snap.Title,
			Owner:     owner,
			CreatedAt: snap.CreatedAt,
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) createRoom(ctx *fasthttp.RequestCtx) {
	var req identityRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.UserID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "user_id가 필요합니다.")
		return
	}
	owner := &match.Player{ID: req.UserID, Nickname: req.Nickname, Rating: s.ratingOf(ctx, req.UserID)}
	snap, err := s.manager.CreateRoom(ctx, owner)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	s.notifyLobby()
	writeJSON(ctx, fasthttp.StatusCreated, map[string]any{"game_id": snap.ID})
}

func (s *Server) joinRoom(ctx *fasthttp.RequestCtx, gameID string) {
	var req identityRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.UserID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "user_id가 필요합니다.")
		return
	}
	p := &match.Player{ID: req.UserID, Nickname: req.Nickname, Rating: s.ratingOf(ctx, req.UserID)}
	snap, err := s.manager.Join(ctx, gameID, p)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	if s.hub != nil {
		s.hub.Publish("game:"+gameID, &omokdto.Event{Type: omokdto.EventPlayerJoined})
	}
	s.broadcastGame(gameID, snap)
	s.notifyLobby()
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"game_id": snap.ID})
}

func (s *Server) leaveRoom(ctx *fasthttp.RequestCtx, gameID string) {
	var req identityRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.UserID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "user_id가 필요합니다.")
		return
	}
	snap, deleted, err := s.manager.Leave(ctx, gameID, req.UserID)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	if deleted {
		if s.hub != nil {
			s.hub.Publish("game:"+gameID, &omokdto.Event{Type: omokdto.EventGameDeleted})
		}
	} else if snap != nil {
		s.broadcastGame(gameID, snap)
	}
	s.notifyLobby()
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) history(ctx *fasthttp.RequestCtx) {
	if s.repo == nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, "기록 저장소가 설정되지 않았습니다.")
		return
	}
	userID := string(ctx.QueryArgs().Peek("user_id"))
	if userID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "user_id가 필요합니다.")
		return
	}
	limit := 20
	if raw := string(ctx.QueryArgs().Peek("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	entries, err := s.repo.HistoryFor(ctx, userID, limit)
	if err != nil {
		obslog.L().Error("history_read_error", zap.String("user_id", userID), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "기록을 불러오지 못했습니다.")
		return
	}
	rp, wins, losses, err := s.repo.Stats(ctx, userID)
	if err != nil {
		obslog.L().Error("stats_read_error", zap.String("user_id", userID), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "전적을 불러오지 못했습니다.")
		return
	}
	total := wins + losses
	winRate := 0.0
	if total > 0 {
		winRate = float64(wins) / float64(total) * 100
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"games":    entries,
		"rating":   rp,
		"wins":     wins,
		"losses":   losses,
		"win_rate": winRate,
	})
}

func (s *Server) profile(ctx *fasthttp.RequestCtx) {
	if s.repo == nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, "기록 저장소가 설정되지 않았습니다.")
		return
	}
	userID := string(ctx.QueryArgs().Peek("user_id"))
	if userID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "user_id가 필요합니다.")
		return
	}
	rp, wins, losses, err := s.repo.Stats(ctx, userID)
	if err != nil {
		obslog.L().Error("stats_read_error", zap.String("user_id", userID), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "전적을 불러오지 못했습니다.")
		return
	}
	tier := rating.GetTier(rp)
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"rating": rp,
		"wins":   wins,
		"losses": losses,
		"tier": map[string]string{
			"name":     tier.Name,
			"color":    tier.Color,
			"bg_color": tier.BGColor,
		},
	})
}

// ratingOf looks up the stored rating, falling back to the initial rating
// when persistence is absent or the player is new.
func (s *Server) ratingOf(ctx context.Context, userID string) int {
	if s.repo == nil {
		return rating.Initial
	}
	rp, err := s.repo.Rating(ctx, userID)
	if err != nil {
		return rating.Initial
	}
	return rp
}

func (s *Server) broadcastGame(gameID string, snap *match.Snapshot) {
	if s.hub == nil || snap == nil {
		return
	}
	ev := &omokdto.GameState{
		Type:      omokdto.EventState,
		GameID:    snap.ID,
		Title:     snap.Title,
		Board:     snap.Board,
		Size:      snap.Size,
		Turn:      string(snap.Turn),
		Winner:    string(snap.Winner),
		BlackTime: snap.BlackTime,
		WhiteTime: snap.WhiteTime,
		Started:   snap.Started,
		Ranked:    snap.Ranked,
		MoveCount: snap.MoveCount,
	}
	if snap.Black != nil {
		ev.BlackPlayer = &omokdto.PlayerView{ID: snap.Black.ID, Nickname: snap.Black.Nickname, Rating: snap.Black.Rating, Ready: snap.BlackReady}
	}
	if snap.White != nil {
		ev.WhitePlayer = &omokdto.PlayerView{ID: snap.White.ID, Nickname: snap.White.Nickname, Rating: snap.White.Rating, Ready: snap.WhiteReady}
	}
	s.hub.Publish("game:"+gameID, ev)
}

func (s *Server) notifyLobby() {
	if s.hub != nil {
		s.hub.Publish("lobby", &omokdto.Event{Type: omokdto.EventRoomListChanged})
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		obslog.L().Error("response_encode_error", zap.Error(err))
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeDomainError maps manager errors onto HTTP statuses.
func writeDomainError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, match.ErrNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "게임을 찾을 수 없습니다.")
	case errors.Is(err, match.ErrActiveGameExists):
		writeError(ctx, fasthttp.StatusConflict, "이미 진행 중인 게임이 있습니다.")
	case errors.Is(err, match.ErrSeatTaken):
		writeError(ctx, fasthttp.StatusConflict, "자리가 이미 찼습니다.")
	case errors.Is(err, match.ErrHasMoves):
		writeError(ctx, fasthttp.StatusConflict, "진행 중인 게임에서는 나갈 수 없습니다.")
	case errors.Is(err, match.ErrServerBusy):
		writeError(ctx, fasthttp.StatusTooManyRequests, "서버가 혼잡합니다. 잠시 후 다시 시도해 주세요.")
	default:
		obslog.L().Error("api_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "요청을 처리할 수 없습니다.")
	}
}
