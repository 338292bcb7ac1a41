package gateway

import (
	"testing"

	"github.com/SWWS97/Gomoku-Game/internal/match"
	"github.com/SWWS97/Gomoku-Game/pkg/omokdto"
)

func TestStateEventProjection(t *testing.T) {
	snap := &match.Snapshot{Size: 15}
	snap.ID = "omok-1"
	snap.Title = "오목 게임"
	snap.Board = "................"
	snap.Turn = match.BlackSeat
	snap.Winner = match.BlackSeat
	snap.Black = &match.Player{ID: "u1", Nickname: "가", Rating: 1200}
	snap.BlackReady = true
	snap.BlackTime = 870
	snap.WhiteTime = 900
	snap.MoveCount = 9

	deltas := &match.RatingDeltas{WinnerID: "u1", WinnerDelta: 16, LoserID: "u2", LoserDelta: -16}
	ev := stateEvent(omokdto.EventGameFinished, snap, deltas)

	if ev.Type != omokdto.EventGameFinished || ev.GameID != "omok-1" {
		t.Fatalf("header: %+v", ev)
	}
	if ev.Winner != "black" || ev.Turn != "black" {
		t.Fatalf("colors: winner=%q turn=%q", ev.Winner, ev.Turn)
	}
	if ev.BlackPlayer == nil || ev.BlackPlayer.Nickname != "가" || !ev.BlackPlayer.Ready {
		t.Fatalf("black view: %+v", ev.BlackPlayer)
	}
	if ev.WhitePlayer != nil {
		t.Fatalf("empty seat must stay nil")
	}
	if ev.Deltas == nil || ev.Deltas.WinnerDelta != 16 {
		t.Fatalf("deltas: %+v", ev.Deltas)
	}
}

func TestErrMessageCoversSentinels(t *testing.T) {
	cases := []error{
		match.ErrOutOfBounds,
		match.ErrCellOccupied,
		match.ErrNotYourTurn,
		match.ErrOverline,
		match.ErrDoubleFour,
		match.ErrDoubleThree,
		match.ErrHasMoves,
		match.ErrNotFound,
		match.ErrActiveGameExists,
	}
	seen := make(map[string]bool)
	for _, err := range cases {
		msg := errMessage(err)
		if msg == "" || msg == "요청을 처리할 수 없습니다." {
			t.Fatalf("no dedicated message for %v", err)
		}
		if seen[msg] {
			t.Fatalf("duplicate message %q for %v", msg, err)
		}
		seen[msg] = true
	}
}
