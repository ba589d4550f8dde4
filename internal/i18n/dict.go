package i18n

import "strings"

// Dict is one node of a translation tree. A node is either a leaf holding a
// translated string or a table of child nodes keyed by path segment.
type Dict struct {
	leaf     string
	children map[string]*Dict
}

// newLeaf returns a leaf node.
func newLeaf(s string) *Dict {
	return &Dict{leaf: s}
}

// buildDict converts a decoded YAML mapping into a Dict tree.
// Values that are neither strings nor nested mappings are dropped.
func buildDict(m map[string]interface{}) *Dict {
	node := &Dict{children: make(map[string]*Dict, len(m))}
	for key, val := range m {
		switch v := val.(type) {
		case string:
			node.children[key] = newLeaf(v)
		case map[string]interface{}:
			node.children[key] = buildDict(v)
		}
	}
	return node
}

// lookup walks the tree one dot-separated segment at a time.
// It reports a hit only when the walk terminates exactly at a leaf.
func (d *Dict) lookup(key string) (string, bool) {
	cur := d
	for _, seg := range strings.Split(key, ".") {
		if cur.children == nil {
			return "", false
		}
		next, ok := cur.children[seg]
		if !ok {
			return "", false
		}
		cur = next
	}
	if cur.children != nil {
		// Path stops at a sub-table, not a translation.
		return "", false
	}
	return cur.leaf, true
}
