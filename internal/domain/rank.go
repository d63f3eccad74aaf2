package domain

import (
	"fmt"
	"sort"
)

// RankedItem is one sibling under a parent, ordered by Rank.
type RankedItem struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connectionId"`
	Rank         int    `json:"rank"`
}

// Move is the single change a reorder sends to the server.
type Move struct {
	Item    RankedItem `json:"item"`
	NewRank int        `json:"newRank"`
}

// Reorder translates moving siblings[source] to position dest into a target rank.
//
// siblings must be in display order. Moving earlier takes the destination's rank
// (insert before); moving later takes the destination's rank + 1 (insert after).
// The server shifts the other siblings. ok is false when source == dest.
func Reorder(siblings []RankedItem, source, dest int) (move Move, ok bool, err error) {
	if source < 0 || source >= len(siblings) {
		return Move{}, false, fmt.Errorf("source index %d out of range [0, %d)", source, len(siblings))
	}
	if dest < 0 || dest >= len(siblings) {
		return Move{}, false, fmt.Errorf("destination index %d out of range [0, %d)", dest, len(siblings))
	}
	if source == dest {
		return Move{}, false, nil
	}

	moved := siblings[source]
	target := siblings[dest]
	newRank := target.Rank
	if dest > source {
		newRank = target.Rank + 1
	}
	return Move{Item: moved, NewRank: newRank}, true, nil
}

// ApplyMove returns the optimistic view of siblings after move.
//
// The moved item takes NewRank and every other sibling ranked at or above NewRank is
// shifted by one. The input is not modified; the result is sorted by rank. If the moved
// item is no longer among siblings, they are returned unchanged.
func ApplyMove(siblings []RankedItem, move Move) []RankedItem {
	patched := make([]RankedItem, 0, len(siblings))
	found := false
	for _, s := range siblings {
		if s.ID == move.Item.ID {
			found = true
			break
		}
	}
	if !found {
		patched = append(patched, siblings...)
		return patched
	}

	for _, s := range siblings {
		switch {
		case s.ID == move.Item.ID:
			s.Rank = move.NewRank
		case s.Rank >= move.NewRank:
			s.Rank++
		}
		patched = append(patched, s)
	}

	sort.SliceStable(patched, func(i, j int) bool {
		return patched[i].Rank < patched[j].Rank
	})
	return patched
}

// SortByRank orders items by rank, ties broken by ID.
func SortByRank(items []RankedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Rank != items[j].Rank {
			return items[i].Rank < items[j].Rank
		}
		return items[i].ID < items[j].ID
	})
}
