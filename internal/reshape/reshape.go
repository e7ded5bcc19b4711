package reshape

// TimeGroup is the one group dimension trim never filters by key: every
// bucket the backend returned is kept.
const TimeGroup = "time"

// AllowedKeys is the requested key set trim enforces at one level of
// the tree. A flat set keeps matching keys and stops trimming below
// them; a nested set additionally scopes the next level to the
// secondary keys requested for that particular branch.
type AllowedKeys struct {
	keys   map[string]struct{}
	scoped map[string]*AllowedKeys
}

// FlatKeys builds the allowed set for a flat key collection.
func FlatKeys(keys []string) *AllowedKeys {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &AllowedKeys{keys: set}
}

// NestedKeys builds the allowed set for a primary→secondary mapping.
func NestedKeys(keys map[string][]string) *AllowedKeys {
	set := make(map[string]struct{}, len(keys))
	scoped := make(map[string]*AllowedKeys, len(keys))
	for k, secondary := range keys {
		set[k] = struct{}{}
		scoped[k] = FlatKeys(secondary)
	}
	return &AllowedKeys{keys: set, scoped: scoped}
}

func (a *AllowedKeys) contains(key string) bool {
	_, ok := a.keys[key]
	return ok
}

// child returns the allowed set for the branch under key: the scoped
// secondary set for nested keys, nil (no further trimming) for flat
// ones.
func (a *AllowedKeys) child(key string) *AllowedKeys {
	if a.scoped == nil {
		return nil
	}
	return a.scoped[key]
}

// Zerofill inserts a zero-valued entry for every expected key absent
// from the tree, level by level along the group order: a scalar zero at
// the deepest level, an empty branch above it. Levels without an
// expected key list are recursed through untouched. Zerofilling an
// already complete tree is a no-op.
func Zerofill(n *Node, groups []string, expected map[string][]string) {
	if n == nil || len(groups) == 0 {
		return
	}

	group, rest := groups[0], groups[1:]
	for _, key := range expected[group] {
		if n.Get(key) == nil {
			if len(rest) == 0 {
				n.Set(key, Scalar(0))
			} else {
				n.Set(key, Branch())
			}
		}
	}

	if len(rest) > 0 {
		for _, child := range n.children {
			if child.IsBranch() {
				Zerofill(child, rest, expected)
			}
		}
	}
}

// Trim deletes every key not present in the allowed set, level by level
// along the group order. The time dimension is exempt: all returned
// buckets are kept and trimming continues below them with the same
// allowed set. Trim runs after Zerofill so zero-filled keys outside the
// requested set are removed as well.
func Trim(n *Node, groups []string, allowed *AllowedKeys) {
	if n == nil || !n.IsBranch() || len(groups) == 0 || allowed == nil {
		return
	}

	group, rest := groups[0], groups[1:]
	for key, child := range n.children {
		switch {
		case group == TimeGroup:
			Trim(child, rest, allowed)
		case allowed.contains(key):
			Trim(child, rest, allowed.child(key))
		default:
			delete(n.children, key)
		}
	}
}

// Unnest collapses the synthetic wrapper level carrying the aggregate
// under an ordinary column alias: any branch containing the alias key
// is replaced by the value stored there. Branches without the alias are
// recursed into unchanged.
func Unnest(n *Node, alias string) {
	if n == nil || !n.IsBranch() {
		return
	}

	for key, child := range n.children {
		if !child.IsBranch() {
			continue
		}
		if leaf := child.Get(alias); leaf != nil {
			n.children[key] = leaf
		} else {
			Unnest(child, alias)
		}
	}
}
