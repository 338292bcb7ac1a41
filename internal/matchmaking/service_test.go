package matchmaking

import (
	"errors"
	"testing"
	"time"
)

func newTestService(base time.Time) (*Service, *time.Time) {
	clock := base
	s := NewService()
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestCurrentRange(t *testing.T) {
	cases := []struct{ secs, want int }{
		{0, 50},
		{14, 50},
		{15, 75},
		{45, 125},
		{1000, 300},
	}
	for _, c := range cases {
		if got := CurrentRange(c.secs); got != c.want {
			t.Fatalf("CurrentRange(%d) = %d, want %d", c.secs, got, c.want)
		}
	}
}

func TestEnqueueRejectsDuplicates(t *testing.T) {
	s, _ := newTestService(time.Now())
	if err := s.Enqueue(QueueEntry{UserID: "a", Rating: 1000}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.Enqueue(QueueEntry{UserID: "a", Rating: 1000}); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("duplicate enqueue: %v", err)
	}
	if err := s.Enqueue(QueueEntry{UserID: "b", Rating: 1010}); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if _, ok := s.Propose("a"); !ok {
		t.Fatalf("expected proposal")
	}
	// 대기 매치에 묶인 동안에는 재진입 불가
	if err := s.Enqueue(QueueEntry{UserID: "a", Rating: 1000}); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("enqueue while pending: %v", err)
	}
}

func TestWindowExpansion(t *testing.T) {
	base := time.Now()
	s, clock := newTestService(base)
	if err := s.Enqueue(QueueEntry{UserID: "a", Rating: 1000}); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if err := s.Enqueue(QueueEntry{UserID: "b", Rating: 1100}); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}

	// t=0: ±50, 차이 100 → 불발
	if _, ok := s.FindCandidate("a"); ok {
		t.Fatalf("matched at t=0")
	}
	// t=15s: ±75 → 여전히 불발
	*clock = base.Add(15 * time.Second)
	if _, ok := s.FindCandidate("a"); ok {
		t.Fatalf("matched at t=15")
	}
	// t=45s: ±125 → 성사
	*clock = base.Add(45 * time.Second)
	cand, ok := s.FindCandidate("a")
	if !ok || cand.UserID != "b" {
		t.Fatalf("no match at t=45: %+v ok=%v", cand, ok)
	}
}

func TestMutualWindowRequired(t *testing.T) {
	base := time.Now()
	s, clock := newTestService(base)
	// a는 오래 기다려 범위가 넓다 (60초 → ±150)
	if err := s.Enqueue(QueueEntry{UserID: "a", Rating: 1000}); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	*clock = base.Add(60 * time.Second)
	// b는 방금 진입 (±50), 차이 140: a의 범위엔 들지만 b의 범위엔 a가 없다
	if err := s.Enqueue(QueueEntry{UserID: "b", Rating: 1140}); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if _, ok := s.FindCandidate("a"); ok {
		t.Fatalf("one-sided window must not match")
	}
	// b도 충분히 기다리면 성사 (b 60초 → ±150)
	*clock = base.Add(120 * time.Second)
	if _, ok := s.FindCandidate("a"); !ok {
		t.Fatalf("mutual windows must match")
	}
}

func TestOldestWaitingFirst(t *testing.T) {
	base := time.Now()
	s, clock := newTestService(base)
	if err := s.Enqueue(QueueEntry{UserID: "old", Rating: 1010}); err != nil {
		t.Fatalf("enqueue old: %v", err)
	}
	*clock = base.Add(5 * time.Second)
	if err := s.Enqueue(QueueEntry{UserID: "new", Rating: 1010}); err != nil {
		t.Fatalf("enqueue new: %v", err)
	}
	*clock = base.Add(6 * time.Second)
	if err := s.Enqueue(QueueEntry{UserID: "me", Rating: 1000}); err != nil {
		t.Fatalf("enqueue me: %v", err)
	}
	cand, ok := s.FindCandidate("me")
	if !ok || cand.UserID != "old" {
		t.Fatalf("candidate = %+v, want oldest", cand)
	}
}

func TestProposeRemovesBothFromQueue(t *testing.T) {
	s, _ := newTestService(time.Now())
	_ = s.Enqueue(QueueEntry{UserID: "a", Rating: 1000, Nickname: "가"})
	_ = s.Enqueue(QueueEntry{UserID: "b", Rating: 1020, Nickname: "나"})

	m, ok := s.Propose("a")
	if !ok {
		t.Fatalf("no proposal")
	}
	if s.QueueSize() != 0 {
		t.Fatalf("queue size = %d after proposal", s.QueueSize())
	}
	if _, ok := s.Entry("a"); ok {
		t.Fatalf("a still in queue")
	}
	if _, ok := s.Entry("b"); ok {
		t.Fatalf("b still in queue")
	}
	pm, ok := s.PendingFor("b")
	if !ok || pm.MatchID != m.MatchID {
		t.Fatalf("reverse index broken: %+v", pm)
	}
}

func TestAcceptHandshake(t *testing.T) {
	s, _ := newTestService(time.Now())
	_ = s.Enqueue(QueueEntry{UserID: "a", Rating: 1000})
	_ = s.Enqueue(QueueEntry{UserID: "b", Rating: 1020})
	m, _ := s.Propose("a")

	if st := s.Accept(m.MatchID, "a"); st != StatusWaiting {
		t.Fatalf("first accept = %s", st)
	}
	if st := s.Accept(m.MatchID, "b"); st != StatusConfirmed {
		t.Fatalf("second accept = %s", st)
	}
	final := s.ConfirmAndCleanup(m.MatchID)
	if final == nil || !final.Player1Accepted || !final.Player2Accepted {
		t.Fatalf("confirm = %+v", final)
	}
	if _, ok := s.PendingFor("a"); ok {
		t.Fatalf("pending table not cleaned")
	}
	if st := s.Accept(m.MatchID, "a"); st != StatusDeclined {
		t.Fatalf("accept after cleanup = %s", st)
	}
	// 양쪽 모두 다시 큐에 들어갈 수 있어야 한다
	if err := s.Enqueue(QueueEntry{UserID: "a", Rating: 1000}); err != nil {
		t.Fatalf("re-enqueue after confirm: %v", err)
	}
}

func TestAcceptTimeout(t *testing.T) {
	base := time.Now()
	s, clock := newTestService(base)
	_ = s.Enqueue(QueueEntry{UserID: "a", Rating: 1000})
	_ = s.Enqueue(QueueEntry{UserID: "b", Rating: 1020})
	m, _ := s.Propose("a")

	if st := s.Accept(m.MatchID, "a"); st != StatusWaiting {
		t.Fatalf("accept = %s", st)
	}
	// b가 끝내 응답하지 않음: 기한이 지난 accept는 매치를 철거한다
	*clock = base.Add(AcceptTimeout + time.Second)
	if st := s.Accept(m.MatchID, "a"); st != StatusTimeout {
		t.Fatalf("late accept = %s", st)
	}
	if _, ok := s.PendingFor("a"); ok {
		t.Fatalf("timed-out match still pending")
	}
	if _, ok := s.PendingFor("b"); ok {
		t.Fatalf("timed-out match still pending for b")
	}
	if err := s.Enqueue(QueueEntry{UserID: "b", Rating: 1020}); err != nil {
		t.Fatalf("re-enqueue after timeout: %v", err)
	}
}

func TestDeclineReturnsOpponentUntouched(t *testing.T) {
	base := time.Now()
	s, _ := newTestService(base)
	_ = s.Enqueue(QueueEntry{UserID: "a", Rating: 1000})
	_ = s.Enqueue(QueueEntry{UserID: "b", Rating: 1020, Nickname: "나", Username: "b-user", TotalGames: 7})
	m, _ := s.Propose("a")

	st, other := s.Decline(m.MatchID, "a")
	if st != StatusDeclined || other == nil {
		t.Fatalf("decline = %s other=%v", st, other)
	}
	if other.UserID != "b" || other.Rating != 1020 || other.Nickname != "나" || other.TotalGames != 7 {
		t.Fatalf("opponent metadata mutated: %+v", other)
	}
	if _, ok := s.PendingFor("a"); ok {
		t.Fatalf("declined match lingers")
	}
	// 거절당한 쪽은 원래 대기 시각 그대로 복귀한다
	if err := s.Requeue(*other); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	e, ok := s.Entry("b")
	if !ok || !e.JoinedAt.Equal(other.JoinedAt) {
		t.Fatalf("requeue lost the enqueue time")
	}
	// 거절한 쪽은 자동으로 복귀하지 않는다
	if _, ok := s.Entry("a"); ok {
		t.Fatalf("decliner auto-requeued")
	}
}

func TestCleanupUser(t *testing.T) {
	s, _ := newTestService(time.Now())
	_ = s.Enqueue(QueueEntry{UserID: "solo", Rating: 1000})
	if other := s.CleanupUser("solo"); other != nil {
		t.Fatalf("queue-only cleanup returned %v", other)
	}
	if s.QueueSize() != 0 {
		t.Fatalf("queue not cleaned")
	}

	_ = s.Enqueue(QueueEntry{UserID: "a", Rating: 1000})
	_ = s.Enqueue(QueueEntry{UserID: "b", Rating: 1020})
	if _, ok := s.Propose("a"); !ok {
		t.Fatalf("no proposal")
	}
	other := s.CleanupUser("a")
	if other == nil || other.UserID != "b" {
		t.Fatalf("cleanup mid-proposal: %v", other)
	}
	if _, ok := s.PendingFor("b"); ok {
		t.Fatalf("pending survived cleanup")
	}
}
