package gateway

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/SWWS97/Gomoku-Game/internal/match"
	"github.com/SWWS97/Gomoku-Game/internal/obslog"
	"github.com/SWWS97/Gomoku-Game/pkg/omokdto"
)

// handleGame runs one websocket attached to one match. Participants act
// through intents; spectators only receive the broadcast stream.
func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	sess, ok := s.manager.Get(gameID)
	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	userID, _ := identity(r)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// 왜: 프론트는 별도 오리진에서 접속한다
		InsecureSkipVerify: true,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.hub.Subscribe(gameTopic(gameID), 32)
	defer sub.Close()

	conn := newWSConn(ws)
	conn.run(ctx, sub)
	defer conn.close()

	obslog.L().Info("game_ws_open", zap.String("game_id", gameID), zap.String("user_id", userID))

	// 접속 직후 현재 상태부터 내려준다
	conn.send(stateEvent(omokdto.EventState, sess.Snapshot(), nil))

	for {
		var in omokdto.Intent
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			break
		}
		s.dispatchGame(ctx, conn, gameID, userID, in)
	}

	conn.stop()
	if userID != "" {
		if _, deleted := s.manager.HandleDisconnect(context.Background(), gameID, userID); deleted {
			s.hub.Publish(gameTopic(gameID), &omokdto.Event{Type: omokdto.EventGameDeleted})
			s.hub.Publish(lobbyTopic, &omokdto.Event{Type: omokdto.EventRoomListChanged})
		} else if live, ok := s.manager.Get(gameID); ok {
			s.hub.Publish(gameTopic(gameID), stateEvent(omokdto.EventState, live.Snapshot(), nil))
			s.hub.Publish(lobbyTopic, &omokdto.Event{Type: omokdto.EventRoomListChanged})
		}
	}
	obslog.L().Info("game_ws_close", zap.String("game_id", gameID), zap.String("user_id", userID))
	ws.Close(websocket.StatusNormalClosure, "")
}

// dispatchGame routes one intent. Every IntentType the game endpoint accepts
// has a case; anything else is rejected outright.
func (s *Server) dispatchGame(ctx context.Context, conn *wsConn, gameID, userID string, in omokdto.Intent) {
	if userID == "" {
		conn.send(&omokdto.ErrorEvent{Type: omokdto.EventError, Message: "관전자는 조작할 수 없습니다."})
		return
	}
	topic := gameTopic(gameID)

	switch in.Type {
	case omokdto.IntentPlay:
		snap, deltas, err := s.manager.Move(ctx, gameID, userID, in.X, in.Y)
		if err != nil && !errors.Is(err, match.ErrTimedOut) {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, deltas)

	case omokdto.IntentSurrender:
		snap, deltas, err := s.manager.Surrender(ctx, gameID, userID)
		if err != nil {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, deltas)

	case omokdto.IntentReady:
		snap, err := s.manager.Ready(ctx, gameID, userID)
		if err != nil {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, nil)

	case omokdto.IntentStart:
		snap, err := s.manager.Start(ctx, gameID, userID)
		if err != nil {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, nil)

	case omokdto.IntentRematchRequest, omokdto.IntentRematchAccept:
		snap, err := s.manager.RequestRematch(ctx, gameID, userID)
		if err != nil {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, nil)

	case omokdto.IntentRematchDecline:
		snap, err := s.manager.DeclineRematch(ctx, gameID, userID)
		if err != nil {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, nil)

	case omokdto.IntentResetPractice:
		sess, ok := s.manager.Get(gameID)
		if !ok {
			conn.send(errorEvent(match.ErrNotFound))
			return
		}
		if sess.OwnerID() != userID {
			conn.send(errorEvent(match.ErrNotAuthorized))
			return
		}
		snap, err := s.manager.ResetPractice(ctx, gameID)
		if err != nil {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, nil)

	case omokdto.IntentReportTimeout:
		c := match.Color(in.Color)
		if c != match.BlackSeat && c != match.WhiteSeat {
			conn.send(&omokdto.ErrorEvent{Type: omokdto.EventError, Message: "잘못된 색 지정입니다."})
			return
		}
		snap, deltas, err := s.manager.ReportTimeout(ctx, gameID, c)
		if err != nil {
			conn.send(errorEvent(err))
			return
		}
		s.broadcastState(topic, snap, deltas)

	case omokdto.IntentJoinQueue, omokdto.IntentLeaveQueue, omokdto.IntentAcceptMatch, omokdto.IntentDeclineMatch:
		conn.send(&omokdto.ErrorEvent{Type: omokdto.EventError, Message: "매칭 요청은 매칭 채널에서만 가능합니다."})

	default:
		conn.send(&omokdto.ErrorEvent{Type: omokdto.EventError, Message: "알 수 없는 요청입니다."})
	}
}

// broadcastState fans the snapshot out, tagging it game_finished once a
// winner exists.
func (s *Server) broadcastState(topic string, snap *match.Snapshot, deltas *match.RatingDeltas) {
	if snap == nil {
		return
	}
	typ := omokdto.EventState
	if snap.Winner != "" {
		typ = omokdto.EventGameFinished
	}
	s.hub.Publish(topic, stateEvent(typ, snap, deltas))
}
