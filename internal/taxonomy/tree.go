package taxonomy

import (
	"sort"
	"strings"

	"github.com/maruel/ksid"
)

// TreeNode is one layer in the reconstructed forest.
type TreeNode struct {
	Layer    *Layer
	Children []*TreeNode
}

// Tree is an in-memory forest rebuilt on demand from a flat list of layers.
//
// The stored shape is flat records with parent pointers; no persistent tree
// structure is kept. A tree is a snapshot: it must be rebuilt against current
// data after any structural mutation.
type Tree struct {
	nodes    map[ksid.ID]*TreeNode
	roots    []*TreeNode
	warnings []DanglingParentWarning
}

// BuildTree reconstructs the forest from a flat layer list.
//
// A layer whose parent reference points at a missing layer is treated as a
// root and reported as a DanglingParentWarning; it is never dropped. Children
// are sorted by name, case-insensitive, recursively.
func BuildTree(layers []*Layer) *Tree {
	t := &Tree{nodes: make(map[ksid.ID]*TreeNode, len(layers))}
	for _, l := range layers {
		t.nodes[l.ID] = &TreeNode{Layer: l}
	}
	for _, l := range layers {
		node := t.nodes[l.ID]
		if l.ParentID.IsZero() {
			t.roots = append(t.roots, node)
			continue
		}
		parent, ok := t.nodes[l.ParentID]
		if !ok {
			t.warnings = append(t.warnings, DanglingParentWarning{LayerID: l.ID, ParentID: l.ParentID})
			t.roots = append(t.roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	sortNodes(t.roots)
	for _, node := range t.nodes {
		sortNodes(node.Children)
	}
	return t
}

func sortNodes(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a := strings.ToLower(nodes[i].Layer.Name)
		b := strings.ToLower(nodes[j].Layer.Name)
		if a != b {
			return a < b
		}
		// Stable tiebreak so display order is deterministic.
		return nodes[i].Layer.ID.Compare(nodes[j].Layer.ID) < 0
	})
}

// Roots returns the top-level nodes in display order.
func (t *Tree) Roots() []*TreeNode {
	return t.roots
}

// Warnings returns the dangling parent references found during construction.
func (t *Tree) Warnings() []DanglingParentWarning {
	return t.warnings
}

// Node returns the node for the given layer id, or nil.
func (t *Tree) Node(id ksid.ID) *TreeNode {
	return t.nodes[id]
}

// DepthOf returns the depth of a layer in its tree, 0 for roots.
// Returns -1 when the layer is not part of the forest.
func (t *Tree) DepthOf(id ksid.ID) int {
	node, ok := t.nodes[id]
	if !ok {
		return -1
	}
	depth := 0
	seen := map[ksid.ID]bool{id: true}
	for {
		parentID := node.Layer.ParentID
		if parentID.IsZero() {
			return depth
		}
		parent, ok := t.nodes[parentID]
		if !ok {
			// Dangling parent, the node acts as a root.
			return depth
		}
		if seen[parentID] {
			// Corrupted data containing a cycle; stop rather than spin.
			return depth
		}
		seen[parentID] = true
		node = parent
		depth++
	}
}

// DescendantsOf returns the ids of every layer below the given one, in
// display order. Returns nil when the layer is not part of the forest.
func (t *Tree) DescendantsOf(id ksid.ID) []ksid.ID {
	node, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var out []ksid.ID
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		for _, child := range n.Children {
			out = append(out, child.Layer.ID)
			walk(child)
		}
	}
	walk(node)
	return out
}

// IsAncestor reports whether a is a strict ancestor of b.
func (t *Tree) IsAncestor(a, b ksid.ID) bool {
	node, ok := t.nodes[b]
	if !ok || a == b {
		return false
	}
	seen := map[ksid.ID]bool{b: true}
	for {
		parentID := node.Layer.ParentID
		if parentID.IsZero() {
			return false
		}
		if parentID == a {
			return true
		}
		parent, ok := t.nodes[parentID]
		if !ok || seen[parentID] {
			return false
		}
		seen[parentID] = true
		node = parent
	}
}
