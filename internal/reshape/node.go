// Package reshape post-processes sparse backend aggregation responses
// into dense nested trees: missing requested keys are zero-filled, stray
// keys are trimmed, and the synthetic aggregate wrapper some requests
// carry is collapsed.
package reshape

// Node is one level of a nested aggregation result: a branch keyed by
// the values of the next group-by dimension, or a leaf holding the
// aggregate. Leaves carry either a scalar (count, sum, uniq) or an item
// list (topK, most frequent first). Depth is driven by the group-by
// list of the originating request.
type Node struct {
	children map[string]*Node
	value    int64
	items    []string
}

// Branch returns an empty branch node.
func Branch() *Node {
	return &Node{children: make(map[string]*Node)}
}

// Scalar returns a leaf holding a scalar aggregate.
func Scalar(v int64) *Node {
	return &Node{value: v}
}

// ItemList returns a leaf holding a ranked item list.
func ItemList(items ...string) *Node {
	return &Node{items: items}
}

// IsBranch reports whether the node has children (an empty branch is
// still a branch).
func (n *Node) IsBranch() bool {
	return n != nil && n.children != nil
}

// Value returns the scalar aggregate, or 0 for branches and item
// leaves.
func (n *Node) Value() int64 {
	if n == nil {
		return 0
	}
	return n.value
}

// Items returns the ranked item list, or nil. A zero-filled leaf yields
// nil, which callers treat as an empty ranking.
func (n *Node) Items() []string {
	if n == nil {
		return nil
	}
	return n.items
}

// Set attaches a child under key, promoting a leaf to a branch if
// needed, and returns the node for chaining.
func (n *Node) Set(key string, child *Node) *Node {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	n.children[key] = child
	return n
}

// Get returns the child under key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil {
		return nil
	}
	return n.children[key]
}

// Children exposes the live child map of a branch; nil for leaves.
func (n *Node) Children() map[string]*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// Len returns the number of children.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.children)
}
