package domain

import "github.com/totegamma/taxonomy-sync"

// NodeKind tags a TreeNode as a tree root or as a child reached through a connection.
type NodeKind string

const (
	NodeKindRoot  NodeKind = "root"
	NodeKindChild NodeKind = "child"
)

// ChildConnection is the link a child node hangs from.
type ChildConnection struct {
	ParentID     string `json:"parentId"`
	ConnectionID string `json:"connectionId"`
	Rank         int    `json:"rank"`
	Primary      bool   `json:"primary"`
	RelevanceID  string `json:"relevanceId,omitempty"`
}

// TreeNode is a node in the taxonomy tree. Connection is set iff Kind is NodeKindChild.
type TreeNode struct {
	Kind       NodeKind          `json:"kind"`
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	NodeType   taxonomy.NodeType `json:"nodeType"`
	ContentURI string            `json:"contentUri,omitempty"`
	Path       string            `json:"path,omitempty"`
	Visible    bool              `json:"visible"`
	GrepCodes  []string          `json:"grepCodes,omitempty"`
	Features   NodeFeatures      `json:"features"`
	Connection *ChildConnection  `json:"connection,omitempty"`
}

func (n TreeNode) IsChild() bool {
	return n.Kind == NodeKindChild && n.Connection != nil
}

// Ranked returns the node as a sibling entry. Roots rank zero.
func (n TreeNode) Ranked() RankedItem {
	if !n.IsChild() {
		return RankedItem{ID: n.ID}
	}
	return RankedItem{ID: n.ID, ConnectionID: n.Connection.ConnectionID, Rank: n.Connection.Rank}
}

// RankedSiblings converts children into sorted sibling entries.
func RankedSiblings(children []TreeNode) []RankedItem {
	items := make([]RankedItem, 0, len(children))
	for _, c := range children {
		items = append(items, c.Ranked())
	}
	SortByRank(items)
	return items
}

// PatchRanks writes the ranks of items back onto the matching children, sorted by rank.
func PatchRanks(children []TreeNode, items []RankedItem) []TreeNode {
	rankByID := make(map[string]int, len(items))
	for _, it := range items {
		rankByID[it.ID] = it.Rank
	}

	patched := make([]TreeNode, 0, len(children))
	for _, c := range children {
		if rank, ok := rankByID[c.ID]; ok && c.Connection != nil {
			conn := *c.Connection
			conn.Rank = rank
			c.Connection = &conn
		}
		patched = append(patched, c)
	}

	ranked := RankedSiblings(patched)
	order := make(map[string]int, len(ranked))
	for i, r := range ranked {
		order[r.ID] = i
	}
	sorted := make([]TreeNode, len(patched))
	for _, c := range patched {
		sorted[order[c.ID]] = c
	}
	return sorted
}
