package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SWWS97/Gomoku-Game/internal/rating"
)

type fakeRecorder struct {
	mu        sync.Mutex
	histories []*HistoryRecord
	ratings   map[string]int
	wins      map[string]int
	losses    map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		ratings: make(map[string]int),
		wins:    make(map[string]int),
		losses:  make(map[string]int),
	}
}

func (f *fakeRecorder) SaveHistory(_ context.Context, h *HistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, h)
	return nil
}

func (f *fakeRecorder) Rating(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rp, ok := f.ratings[userID]; ok {
		return rp, nil
	}
	return rating.Initial, nil
}

func (f *fakeRecorder) ApplyResult(_ context.Context, winnerID string, winnerRP int, loserID string, loserRP int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings[winnerID] = winnerRP
	f.ratings[loserID] = loserRP
	f.wins[winnerID]++
	f.losses[loserID]++
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeRecorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newFakeRecorder()
	m := NewManager(NewStore(rdb, time.Hour), repo)
	return m, repo, mr
}

func TestCreateRoomAndJoin(t *testing.T) {
	m, _, mr := newTestManager(t)
	ctx := context.Background()
	owner, guest := twoPlayers()

	snap, err := m.CreateRoom(ctx, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := m.CreateRoom(ctx, owner); !errors.Is(err, ErrActiveGameExists) {
		t.Fatalf("duplicate room: %v", err)
	}
	if ok, _ := mr.SIsMember("omok:lobby", snap.ID); !ok {
		t.Fatalf("room missing from lobby index")
	}
	rooms := m.WaitingRooms()
	if len(rooms) != 1 || rooms[0].ID != snap.ID {
		t.Fatalf("waiting rooms = %v", rooms)
	}

	joined, err := m.Join(ctx, snap.ID, guest)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if joined.White == nil || joined.White.ID != guest.ID {
		t.Fatalf("guest not seated")
	}
	if ok, _ := mr.SIsMember("omok:lobby", snap.ID); ok {
		t.Fatalf("joined room still in lobby index")
	}
	if len(m.WaitingRooms()) != 0 {
		t.Fatalf("joined room still listed as waiting")
	}
	if _, err := m.Join(ctx, "nope", guest); !errors.Is(err, ErrNotFound) {
		t.Fatalf("join missing room: %v", err)
	}
}

func TestMoveMirrorsToRedis(t *testing.T) {
	m, _, mr := newTestManager(t)
	ctx := context.Background()
	black, white := twoPlayers()

	snap, err := m.CreateRanked(ctx, black, white)
	if err != nil {
		t.Fatalf("CreateRanked: %v", err)
	}
	if _, _, err := m.Move(ctx, snap.ID, black.ID, 7, 7); err != nil {
		t.Fatalf("Move: %v", err)
	}
	rec, err := m.store.LoadRecord(ctx, snap.ID)
	if err != nil || rec == nil {
		t.Fatalf("LoadRecord: %v rec=%v", err, rec)
	}
	if rec.MoveCount != 1 || rec.Turn != WhiteSeat {
		t.Fatalf("mirrored record: moves=%d turn=%s", rec.MoveCount, rec.Turn)
	}
	moves, err := m.store.Moves(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Moves: %v", err)
	}
	if len(moves) != 1 || moves[0].X != 7 || moves[0].Color != BlackSeat {
		t.Fatalf("mirrored moves = %v", moves)
	}
	_ = mr
}

func TestLeaveSemantics(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	owner, guest := twoPlayers()

	snap, err := m.CreateRoom(ctx, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := m.Join(ctx, snap.ID, guest); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// 백이 나가면 자리만 비운다
	left, deleted, err := m.Leave(ctx, snap.ID, guest.ID)
	if err != nil || deleted {
		t.Fatalf("guest leave: %v deleted=%v", err, deleted)
	}
	if left.White != nil {
		t.Fatalf("white seat not vacated")
	}
	if len(m.WaitingRooms()) != 1 {
		t.Fatalf("vacated room not back in lobby")
	}

	// 수가 두어진 뒤에는 나갈 수 없다
	if _, err := m.Join(ctx, snap.ID, guest); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	sess, _ := m.Get(snap.ID)
	sess.blackReady, sess.whiteReady = true, true
	if _, err := m.Start(ctx, snap.ID, owner.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, _, err := m.Move(ctx, snap.ID, owner.ID, 7, 7); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, _, err := m.Leave(ctx, snap.ID, guest.ID); !errors.Is(err, ErrHasMoves) {
		t.Fatalf("leave mid-game: %v", err)
	}

	// 방장이 나가면 (시작 전 상태를 새로 만들어) 방이 삭제된다
	m2, _, _ := newTestManager(t)
	snap2, err := m2.CreateRoom(ctx, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	_, deleted, err = m2.Leave(ctx, snap2.ID, owner.ID)
	if err != nil || !deleted {
		t.Fatalf("owner leave: %v deleted=%v", err, deleted)
	}
	if _, ok := m2.Get(snap2.ID); ok {
		t.Fatalf("deleted room still resident")
	}
}

func TestRankedFinishPersistsHistoryAndRatings(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()
	black, white := twoPlayers()

	snap, err := m.CreateRanked(ctx, black, white)
	if err != nil {
		t.Fatalf("CreateRanked: %v", err)
	}
	final, deltas, err := m.Surrender(ctx, snap.ID, black.ID)
	if err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	if final.Winner != WhiteSeat {
		t.Fatalf("winner = %q", final.Winner)
	}
	if deltas == nil || deltas.WinnerID != white.ID || deltas.WinnerDelta != 16 || deltas.LoserDelta != -16 {
		t.Fatalf("deltas = %+v", deltas)
	}
	if len(repo.histories) != 1 || repo.histories[0].Winner != WhiteSeat {
		t.Fatalf("histories = %+v", repo.histories)
	}
	if repo.ratings[white.ID] != rating.Initial+16 || repo.ratings[black.ID] != rating.Initial-16 {
		t.Fatalf("ratings = %v", repo.ratings)
	}
	if repo.wins[white.ID] != 1 || repo.losses[black.ID] != 1 {
		t.Fatalf("tallies = %v / %v", repo.wins, repo.losses)
	}

	// 종료 이후의 조회/거절이 기록을 중복 생성하지 않는다
	if _, err := m.DeclineRematch(ctx, snap.ID, white.ID); err != nil {
		t.Fatalf("DeclineRematch: %v", err)
	}
	if len(repo.histories) != 1 {
		t.Fatalf("history duplicated: %d", len(repo.histories))
	}
}

func TestUnrankedFinishRecordsHistoryOnly(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()
	owner, guest := twoPlayers()

	snap, err := m.CreateRoom(ctx, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := m.Join(ctx, snap.ID, guest); err != nil {
		t.Fatalf("Join: %v", err)
	}
	_, deltas, err := m.Surrender(ctx, snap.ID, guest.ID)
	if err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	if deltas != nil {
		t.Fatalf("friendly game produced rating deltas: %+v", deltas)
	}
	if len(repo.histories) != 1 {
		t.Fatalf("histories = %d", len(repo.histories))
	}
	if len(repo.ratings) != 0 {
		t.Fatalf("ratings touched: %v", repo.ratings)
	}
}

func TestHandleDisconnectPolicy(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	owner, guest := twoPlayers()

	// 시작 전 방장 이탈: 방 삭제
	snap, _ := m.CreateRoom(ctx, owner)
	if _, deleted := m.HandleDisconnect(ctx, snap.ID, owner.ID); !deleted {
		t.Fatalf("owner disconnect before start must tear down")
	}

	// 시작 전 백 이탈: 자리만 비움
	snap, _ = m.CreateRoom(ctx, owner)
	if _, err := m.Join(ctx, snap.ID, guest); err != nil {
		t.Fatalf("Join: %v", err)
	}
	vsnap, deleted := m.HandleDisconnect(ctx, snap.ID, guest.ID)
	if deleted || vsnap == nil || vsnap.White != nil {
		t.Fatalf("guest disconnect: deleted=%v snap=%+v", deleted, vsnap)
	}

	// 착수 이후 이탈: 무시 (재접속 대기)
	if _, err := m.Join(ctx, snap.ID, guest); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	sess, _ := m.Get(snap.ID)
	sess.blackReady, sess.whiteReady = true, true
	if _, err := m.Start(ctx, snap.ID, owner.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, _, err := m.Move(ctx, snap.ID, owner.ID, 7, 7); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, deleted := m.HandleDisconnect(ctx, snap.ID, guest.ID); deleted {
		t.Fatalf("mid-game disconnect must be ignored")
	}
	if _, ok := m.Get(snap.ID); !ok {
		t.Fatalf("mid-game room vanished")
	}

	// 종료 후 이탈: 방 정리
	if _, _, err := m.Surrender(ctx, snap.ID, guest.ID); err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	if _, deleted := m.HandleDisconnect(ctx, snap.ID, owner.ID); !deleted {
		t.Fatalf("post-finish disconnect must tear down")
	}
}

func TestConcurrentMovesStaySerial(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	black, white := twoPlayers()
	snap, err := m.CreateRanked(ctx, black, white)
	if err != nil {
		t.Fatalf("CreateRanked: %v", err)
	}

	// 같은 칸을 노리는 동시 착수: 정확히 하나만 성공해야 한다
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = m.Move(ctx, snap.ID, black.ID, 7, 7)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrCellOccupied) && !errors.Is(err, ErrNotYourTurn) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful moves = %d, want 1", ok)
	}
	sess, ok2 := m.Get(snap.ID)
	if !ok2 {
		t.Fatalf("session missing")
	}
	final := sess.Snapshot()
	if final.MoveCount != 1 || final.Turn != WhiteSeat {
		t.Fatalf("final state: moves=%d turn=%s", final.MoveCount, final.Turn)
	}
}
