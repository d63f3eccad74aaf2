package domain

import (
	"reflect"
	"testing"
)

func ranked(ranks ...int) []RankedItem {
	items := make([]RankedItem, 0, len(ranks))
	for i, r := range ranks {
		id := string(rune('a' + i))
		items = append(items, RankedItem{ID: id, ConnectionID: "c:" + id, Rank: r})
	}
	return items
}

func TestReorderMovingEarlierTakesDestinationRank(t *testing.T) {
	siblings := ranked(10, 20, 30)

	move, ok, err := Reorder(siblings, 2, 0)
	if err != nil || !ok {
		t.Fatalf("expected a move, got ok=%v err=%v", ok, err)
	}
	if move.NewRank != 10 || move.Item.ID != "c" {
		t.Fatalf("expected c to get rank 10, got %+v", move)
	}

	patched := ApplyMove(siblings, move)
	expected := []RankedItem{
		{ID: "c", ConnectionID: "c:c", Rank: 10},
		{ID: "a", ConnectionID: "c:a", Rank: 11},
		{ID: "b", ConnectionID: "c:b", Rank: 21},
	}
	if !reflect.DeepEqual(patched, expected) {
		t.Fatalf("expected %v got %v", expected, patched)
	}
	if siblings[0].Rank != 10 || siblings[2].Rank != 30 {
		t.Fatalf("input must not be modified, got %v", siblings)
	}
}

func TestReorderMovingLaterTakesDestinationRankPlusOne(t *testing.T) {
	siblings := ranked(10, 20, 30)

	move, ok, err := Reorder(siblings, 0, 1)
	if err != nil || !ok {
		t.Fatalf("expected a move, got ok=%v err=%v", ok, err)
	}
	if move.NewRank != 21 {
		t.Fatalf("expected rank 21 got %d", move.NewRank)
	}
}

func TestReorderSameIndexIsNoop(t *testing.T) {
	siblings := ranked(1, 2, 3)
	for i := range siblings {
		_, ok, err := Reorder(siblings, i, i)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if ok {
			t.Fatalf("index %d: expected no-op", i)
		}
	}
}

func TestReorderRejectsOutOfRange(t *testing.T) {
	siblings := ranked(1, 2)
	for _, tc := range [][2]int{{-1, 0}, {0, 2}, {2, 0}, {0, -1}} {
		if _, _, err := Reorder(siblings, tc[0], tc[1]); err == nil {
			t.Fatalf("expected error for %v", tc)
		}
	}
}

func TestApplyMoveKeepsTotalOrder(t *testing.T) {
	for _, ranks := range [][]int{
		{1, 2, 3, 4, 5},
		{10, 20, 30, 40},
		{0, 1, 5, 6, 100, 101},
	} {
		for source := range ranks {
			for dest := range ranks {
				siblings := ranked(ranks...)
				move, ok, err := Reorder(siblings, source, dest)
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				if !ok {
					continue
				}

				patched := ApplyMove(siblings, move)

				for i := 1; i < len(patched); i++ {
					if patched[i-1].Rank >= patched[i].Rank {
						t.Fatalf("ranks %v move %d->%d: not strictly increasing %v", ranks, source, dest, patched)
					}
				}

				intended := make([]string, 0, len(siblings))
				for i, s := range siblings {
					if i != source {
						intended = append(intended, s.ID)
					}
				}
				intended = append(intended[:dest], append([]string{siblings[source].ID}, intended[dest:]...)...)

				got := make([]string, 0, len(patched))
				for _, p := range patched {
					got = append(got, p.ID)
				}
				if !reflect.DeepEqual(got, intended) {
					t.Fatalf("ranks %v move %d->%d: expected order %v got %v", ranks, source, dest, intended, got)
				}
			}
		}
	}
}

func TestApplyMoveUnknownItemLeavesSiblings(t *testing.T) {
	siblings := ranked(1, 2)
	patched := ApplyMove(siblings, Move{Item: RankedItem{ID: "z"}, NewRank: 1})
	if !reflect.DeepEqual(patched, siblings) {
		t.Fatalf("expected unchanged siblings got %v", patched)
	}
}
