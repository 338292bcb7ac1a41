package gateway

import (
	"context"
	"net/http"
	"sort"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/SWWS97/Gomoku-Game/internal/obslog"
	"github.com/SWWS97/Gomoku-Game/pkg/omokdto"
)

// handleLobby runs one websocket on the lobby channel: a presence roster
// plus change notifications for the waiting-room list. Room mutations come
// in through the REST API; this channel only tells clients to refetch.
func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	userID, nickname := identity(r)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("endpoint", "lobby"), zap.Error(err))
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.hub.Subscribe(lobbyTopic, 32)
	defer sub.Close()

	conn := newWSConn(ws)
	conn.run(ctx, sub)
	defer conn.close()

	if userID != "" {
		s.presenceMu.Lock()
		s.presence[userID] = nickname
		s.presenceMu.Unlock()
		s.hub.Publish(lobbyTopic, s.usersEvent())
	} else {
		conn.send(s.usersEvent())
	}
	conn.send(s.roomListEvent())

	// 입력은 없다: 종료 감지를 위해 읽기만 유지한다
	for {
		var in omokdto.Intent
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			break
		}
	}

	conn.stop()
	if userID != "" {
		s.presenceMu.Lock()
		delete(s.presence, userID)
		s.presenceMu.Unlock()
		s.hub.Publish(lobbyTopic, s.usersEvent())
	}
	ws.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) usersEvent() *omokdto.UsersEvent {
	s.presenceMu.Lock()
	users := make([]omokdto.LobbyUser, 0, len(s.presence))
	for id, nick := range s.presence {
		users = append(users, omokdto.LobbyUser{UserID: id, Nickname: nick})
	}
	s.presenceMu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Nickname < users[j].Nickname })
	return &omokdto.UsersEvent{Type: omokdto.EventUsers, Users: users}
}

func (s *Server) roomListEvent() *omokdto.RoomListEvent {
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
	return &omokdto.RoomListEvent{Type: omokdto.EventRoomListChanged, Rooms: rooms}
}
