package gateway

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/SWWS97/Gomoku-Game/internal/match"
	"github.com/SWWS97/Gomoku-Game/internal/matchmaking"
	"github.com/SWWS97/Gomoku-Game/internal/obslog"
	"github.com/SWWS97/Gomoku-Game/internal/rating"
	"github.com/SWWS97/Gomoku-Game/pkg/omokdto"
)

// handleMatchmaking runs one websocket on the ranked queue. The connection
// owns a 1Hz poll loop that pushes queue_update frames and fires proposals;
// cross-player notifications travel through each player's own hub topic.
func (s *Server) handleMatchmaking(w http.ResponseWriter, r *http.Request) {
	userID, nickname := identity(r)
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("endpoint", "matchmaking"), zap.Error(err))
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.hub.Subscribe(queueTopic(userID), 32)
	defer sub.Close()

	conn := newWSConn(ws)
	conn.run(ctx, sub)
	defer conn.close()

	conn.wg.Add(1)
	go func() {
		defer conn.wg.Done()
		s.pollQueue(ctx, conn, userID)
	}()

	obslog.L().Info("mm_ws_open", zap.String("user_id", userID))

	for {
		var in omokdto.Intent
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			break
		}
		s.dispatchMatchmaking(ctx, conn, userID, nickname, in)
	}

	cancel()
	conn.stop()
	// 끊긴 사용자 정리: 대기열 제거, 열린 제안은 대리 거절
	if other := s.queue.CleanupUser(userID); other != nil {
		if err := s.queue.Requeue(*other); err == nil {
			s.hub.Publish(queueTopic(other.UserID), &omokdto.MatchDeclinedEvent{
				Type:   omokdto.EventMatchDeclined,
				Reason: "opponent_declined",
			})
		}
	}
	obslog.L().Info("mm_ws_close", zap.String("user_id", userID))
	ws.Close(websocket.StatusNormalClosure, "")
}

// pollQueue ticks once a second for the life of the connection. While the
// player waits it reports elapsed time and the current search window, and
// attempts a proposal; while a proposal is open (or the player is not
// queued) a tick is a no-op.
func (s *Server) pollQueue(ctx context.Context, conn *wsConn, userID string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.stopCh:
			return
		case <-ticker.C:
		}
		if _, ok := s.queue.PendingFor(userID); ok {
			continue
		}
		entry, ok := s.queue.Entry(userID)
		if !ok {
			continue
		}
		secs := s.queue.SecondsInQueue(userID)
		cur := matchmaking.CurrentRange(secs)
		conn.send(&omokdto.QueueUpdateEvent{
			Type:           omokdto.EventQueueUpdate,
			ElapsedSeconds: secs,
			CurrentRange:   cur,
			TierRange:      rating.TierRangeDisplay(entry.Rating, cur),
			QueueSize:      s.queue.QueueSize(),
		})
		if m, ok := s.queue.Propose(userID); ok {
			s.announceProposal(m)
		}
	}
}

// announceProposal sends each side a match_found with the other side's
// profile.
func (s *Server) announceProposal(m *matchmaking.PendingMatch) {
	timeout := int(matchmaking.AcceptTimeout.Seconds())
	s.hub.Publish(queueTopic(m.Player1.UserID), &omokdto.MatchFoundEvent{
		Type:          omokdto.EventMatchFound,
		MatchID:       m.MatchID,
		Opponent:      opponentView(m.Player2),
		AcceptTimeout: timeout,
	})
	s.hub.Publish(queueTopic(m.Player2.UserID), &omokdto.MatchFoundEvent{
		Type:          omokdto.EventMatchFound,
		MatchID:       m.MatchID,
		Opponent:      opponentView(m.Player1),
		AcceptTimeout: timeout,
	})
}

func opponentView(e matchmaking.QueueEntry) omokdto.OpponentView {
	return omokdto.OpponentView{
		Nickname:     e.Nickname,
		Rating:       e.Rating,
		TotalGames:   e.TotalGames,
		ProfileImage: e.ProfileImage,
	}
}

func (s *Server) dispatchMatchmaking(ctx context.Context, conn *wsConn, userID, nickname string, in omokdto.Intent) {
	switch in.Type {
	case omokdto.IntentJoinQueue:
		if s.manager.HasActiveGame(userID) {
			conn.send(errorEvent(match.ErrActiveGameExists))
			return
		}
		rp := rating.Initial
		if s.repo != nil {
			if got, err := s.repo.Rating(ctx, userID); err == nil {
				rp = got
			}
		}
		entry := matchmaking.QueueEntry{UserID: userID, Rating: rp, Nickname: nickname}
		if err := s.queue.Enqueue(entry); err != nil {
			conn.send(errorEvent(err))
			return
		}
		conn.send(&omokdto.QueueJoinedEvent{
			Type:      omokdto.EventQueueJoined,
			Rating:    rp,
			QueueSize: s.queue.QueueSize(),
		})

	case omokdto.IntentLeaveQueue:
		s.queue.Dequeue(userID)
		conn.send(&omokdto.Event{Type: omokdto.EventQueueLeft})

	case omokdto.IntentAcceptMatch:
		pm, _ := s.queue.PendingFor(userID)
		switch s.queue.Accept(in.MatchID, userID) {
		case matchmaking.StatusWaiting:
			conn.send(&omokdto.MatchStatusEvent{
				Type:    omokdto.EventMatchStatus,
				MatchID: in.MatchID,
				Status:  string(matchmaking.StatusWaiting),
			})
		case matchmaking.StatusConfirmed:
			s.confirmMatch(ctx, in.MatchID)
		case matchmaking.StatusTimeout:
			ev := &omokdto.MatchTimeoutEvent{
				Type:    omokdto.EventMatchTimeout,
				Message: "수락 시간이 초과되었습니다.",
			}
			conn.send(ev)
			if pm != nil {
				other := pm.Other(userID)
				s.hub.Publish(queueTopic(other.UserID), ev)
			}
		case matchmaking.StatusDeclined:
			conn.send(&omokdto.MatchDeclinedEvent{
				Type:   omokdto.EventMatchDeclined,
				Reason: "opponent_declined",
			})
		}

	case omokdto.IntentDeclineMatch:
		_, other := s.queue.Decline(in.MatchID, userID)
		conn.send(&omokdto.MatchDeclinedEvent{
			Type:   omokdto.EventMatchDeclined,
			Reason: "self_declined",
		})
		if other != nil {
			// 거절당한 쪽은 기존 대기 시각 그대로 큐로 복귀한다
			if err := s.queue.Requeue(*other); err == nil {
				s.hub.Publish(queueTopic(other.UserID), &omokdto.MatchDeclinedEvent{
					Type:   omokdto.EventMatchDeclined,
					Reason: "opponent_declined",
				})
			}
		}

	case omokdto.IntentPlay, omokdto.IntentSurrender, omokdto.IntentReady, omokdto.IntentStart,
		omokdto.IntentRematchRequest, omokdto.IntentRematchAccept, omokdto.IntentRematchDecline,
		omokdto.IntentResetPractice, omokdto.IntentReportTimeout:
		conn.send(&omokdto.ErrorEvent{Type: omokdto.EventError, Message: "게임 요청은 게임 채널에서만 가능합니다."})

	default:
		conn.send(&omokdto.ErrorEvent{Type: omokdto.EventError, Message: "알 수 없는 요청입니다."})
	}
}

// confirmMatch promotes a fully accepted proposal into a live ranked match
// and tells both players where to go. Colors are decided by a coin flip.
func (s *Server) confirmMatch(ctx context.Context, matchID string) {
	m := s.queue.ConfirmAndCleanup(matchID)
	if m == nil {
		return
	}
	p1 := &match.Player{ID: m.Player1.UserID, Nickname: m.Player1.Nickname, Rating: m.Player1.Rating}
	p2 := &match.Player{ID: m.Player2.UserID, Nickname: m.Player2.Nickname, Rating: m.Player2.Rating}
	black, white := p1, p2
	if !matchmaking.AssignColors() {
		black, white = p2, p1
	}
	snap, err := s.manager.CreateRanked(ctx, black, white)
	if err != nil {
		ev := errorEvent(err)
		s.hub.Publish(queueTopic(p1.ID), ev)
		s.hub.Publish(queueTopic(p2.ID), ev)
		return
	}
	ev := &omokdto.MatchConfirmedEvent{Type: omokdto.EventMatchConfirmed, GameID: snap.ID}
	s.hub.Publish(queueTopic(p1.ID), ev)
	s.hub.Publish(queueTopic(p2.ID), ev)
	obslog.L().Info("match_confirmed",
		zap.String("match_id", matchID),
		zap.String("game_id", snap.ID),
	)
}
