package omok

import "testing"

func put(t *testing.T, b *Board, coords [][2]int, c Cell) {
	t.Helper()
	for _, xy := range coords {
		if !InBounds(xy[0], xy[1]) {
			t.Fatalf("bad test coord (%d,%d)", xy[0], xy[1])
		}
		b.Set(xy[0], xy[1], c)
	}
}

func TestBoardRoundTrip(t *testing.T) {
	b := NewBoard()
	b.Set(0, 0, Black)
	b.Set(14, 14, White)
	b.Set(7, 7, Black)
	s := b.String()
	if len(s) != 225 {
		t.Fatalf("wire length = %d", len(s))
	}
	got, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != b {
		t.Fatalf("round trip mismatch")
	}
	if _, err := Parse("xyz"); err == nil {
		t.Fatalf("expected error for short string")
	}
	if _, err := Parse(s[:224] + "?"); err == nil {
		t.Fatalf("expected error for invalid cell")
	}
}

func TestExactFiveAndOverline(t *testing.T) {
	b := NewBoard()
	put(t, &b, [][2]int{{0, 0}, {0, 1}, {0, 2}, {0, 3}}, Black)

	if IsOverline(&b, 0, 4, Black) {
		t.Fatalf("fifth stone is not an overline")
	}
	b.Set(0, 4, Black)
	if !HasExactFive(&b, 0, 4, Black) {
		t.Fatalf("expected exact five")
	}
	if !WouldCompleteFive(&b, 0, 4, Black) {
		t.Fatalf("five-or-more should hold too")
	}
	// 장목: 여섯번째 돌
	if !IsOverline(&b, 0, 5, Black) {
		t.Fatalf("sixth stone must be an overline")
	}
	// simulation must not leave the stone behind
	if b.Get(0, 5) != Empty {
		t.Fatalf("IsOverline left a side effect")
	}
	b.Set(0, 5, Black)
	if HasExactFive(&b, 0, 5, Black) {
		t.Fatalf("a six-run is never an exact five")
	}
}

func TestWhiteFiveOrMoreWins(t *testing.T) {
	b := NewBoard()
	put(t, &b, [][2]int{{3, 3}, {3, 4}, {3, 5}, {3, 6}, {3, 7}}, White)
	if !CheckFive(&b, White) {
		t.Fatalf("expected white five")
	}
	if CheckFive(&b, Black) {
		t.Fatalf("black has no five")
	}
	// six in a row still wins for white
	b.Set(3, 8, White)
	if !CheckFive(&b, White) {
		t.Fatalf("white overline still wins")
	}
	if !WouldCompleteFive(&b, 3, 2, White) {
		t.Fatalf("extending the run completes five")
	}
}

func TestDoubleThreeBlackOnly(t *testing.T) {
	b := NewBoard()
	// 가로/세로 모두 BB.B 형태, (7,7)에 두면 양방향 열린3
	put(t, &b, [][2]int{{7, 5}, {7, 6}, {7, 9}}, Black)
	put(t, &b, [][2]int{{5, 7}, {6, 7}, {9, 7}}, Black)

	if !IsForbiddenDoubleThree(&b, 7, 7, Black) {
		t.Fatalf("expected 33 for black")
	}
	if IsForbiddenDoubleThree(&b, 7, 7, White) {
		t.Fatalf("white is never restricted")
	}
	if b.Get(7, 7) != Empty {
		t.Fatalf("check left a side effect")
	}
}

func TestPlusShapeClosedThreeIsNotDoubleThree(t *testing.T) {
	b := NewBoard()
	// one axis open three
	put(t, &b, [][2]int{{4, 5}, {6, 5}}, Black)
	// crossing axis closed by black's own extension
	put(t, &b, [][2]int{{5, 4}, {5, 6}, {5, 7}, {5, 8}}, Black)

	if IsForbiddenDoubleThree(&b, 5, 5, Black) {
		t.Fatalf("closed crossing three must not count toward 33")
	}
}

func TestClearDoubleThree(t *testing.T) {
	b := NewBoard()
	put(t, &b, [][2]int{{8, 6}, {8, 8}}, Black)
	put(t, &b, [][2]int{{6, 7}, {10, 7}}, Black)
	if !IsForbiddenDoubleThree(&b, 8, 7, Black) {
		t.Fatalf("two open threes on crossing axes must be 33")
	}
}

func TestSingleOpenThreeIsNotDoubleThree(t *testing.T) {
	b := NewBoard()
	put(t, &b, [][2]int{{8, 6}, {8, 8}}, Black)
	if IsForbiddenDoubleThree(&b, 8, 7, Black) {
		t.Fatalf("one open three is not 33")
	}
}

func TestDoubleFour(t *testing.T) {
	b := NewBoard()
	put(t, &b, [][2]int{{7, 5}, {7, 6}, {7, 8}}, Black)
	put(t, &b, [][2]int{{5, 7}, {6, 7}, {8, 7}}, Black)

	if !IsForbiddenDoubleFour(&b, 7, 7, Black) {
		t.Fatalf("expected 44 for black")
	}
	if IsForbiddenDoubleFour(&b, 7, 7, White) {
		t.Fatalf("white is never restricted")
	}
}

func TestBrokenDoubleFour(t *testing.T) {
	// BBB.B 모양이 두 축에 동시에 걸리는 배치
	b := NewBoard()
	put(t, &b, [][2]int{{7, 5}, {7, 6}, {7, 9}}, Black)
	put(t, &b, [][2]int{{5, 7}, {6, 7}, {9, 7}}, Black)
	if !IsForbiddenDoubleFour(&b, 7, 7, Black) {
		t.Fatalf("gapped fours on two axes must be 44")
	}
}

func TestSingleFourIsNotDoubleFour(t *testing.T) {
	b := NewBoard()
	put(t, &b, [][2]int{{7, 5}, {7, 6}, {7, 8}}, Black)
	if IsForbiddenDoubleFour(&b, 7, 7, Black) {
		t.Fatalf("one four is not 44")
	}
}

func TestOutOfBoundsAndOccupied(t *testing.T) {
	b := NewBoard()
	if IsForbiddenDoubleThree(&b, -1, 0, Black) {
		t.Fatalf("oob must be false (caller's problem)")
	}
	if IsForbiddenDoubleFour(&b, 20, 20, Black) {
		t.Fatalf("oob must be false (caller's problem)")
	}
	// occupied cell: 33 check answers "not playable" defensively
	b.Set(2, 2, Black)
	if !IsForbiddenDoubleThree(&b, 2, 2, Black) {
		t.Fatalf("occupied cell defaults to forbidden in the 33 check")
	}
}

func TestThreeScanWindowBoundary(t *testing.T) {
	// The qualifying empty cell sits at the far edge of a shared five-window;
	// cells beyond distance four can never participate, so the ±5 scan must
	// still find this one.
	b := NewBoard()
	put(t, &b, [][2]int{{7, 9}, {7, 10}}, Black) // with (7,7): B.BB
	put(t, &b, [][2]int{{5, 7}, {9, 7}}, Black)  // with (7,7): B.B.B
	if !IsForbiddenDoubleThree(&b, 7, 7, Black) {
		t.Fatalf("window scan truncates a realizable three")
	}
}
