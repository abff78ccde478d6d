// Package router implements the radix-tree route lookup of spec.md §4.J:
// '/'-delimited segments, a leading ':' segment is a single-segment
// parameter wildcard, a leading '*' segment is a greedy terminal wildcard,
// and lookup precedence per segment is exact > parameter > wildcard.
//
// Grounded on pkg/bolt_core_ref/router.go's node/child-set shape (simplified
// here: this router maps a path to a destination string, not a handler
// closure, per spec.md's find(path) -> Option<destination> contract) and
// cross-checked against original_source/selenia_http/src/router.rs for the
// exact traversal order.
package router

import "strings"

// node is one segment of the radix tree. Children are keyed by their exact
// segment text; paramChild and wildcardChild hold at most one each, per
// spec.md's precedence rule.
type node struct {
	children     map[string]*node
	paramChild   *node
	paramName    string
	wildcardChild *node
	wildcardName string
	dest         string
	hasDest      bool
}

// Router is a single radix tree rooted at "/". It is safe for concurrent
// lookups once construction (Add calls) is finished; it carries no internal
// locking, matching spec.md's "process-wide immutable" treatment of static
// routing tables (built once at startup from config, not mutated per
// request).
type Router struct {
	root *node
}

// New creates an empty Router.
func New() *Router {
	return &Router{root: &node{}}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Add registers path (which may contain ":param" and "*wildcard" segments)
// with the destination string dest.
func (r *Router) Add(path, dest string) {
	segs := splitPath(path)
	cur := r.root
	for i, seg := range segs {
		switch {
		case strings.HasPrefix(seg, ":"):
			if cur.paramChild == nil {
				cur.paramChild = &node{}
				cur.paramName = seg[1:]
			}
			cur = cur.paramChild
		case strings.HasPrefix(seg, "*"):
			if cur.wildcardChild == nil {
				cur.wildcardChild = &node{}
				cur.wildcardName = seg[1:]
			}
			cur = cur.wildcardChild
			// Wildcard segments are terminal: they consume the remainder of
			// the path, so registering further segments after one is
			// meaningless.
			_ = i
			goto attach
		default:
			if cur.children == nil {
				cur.children = make(map[string]*node)
			}
			child, ok := cur.children[seg]
			if !ok {
				child = &node{}
				cur.children[seg] = child
			}
			cur = child
		}
	}
attach:
	cur.dest = dest
	cur.hasDest = true
}

// Param is one extracted path parameter.
type Param struct {
	Name  string
	Value string
}

// Find looks up path and returns its destination and any extracted
// parameters. ok is false when no route matches.
func (r *Router) Find(path string) (dest string, params []Param, ok bool) {
	segs := splitPath(path)
	cur := r.root
	for i, seg := range segs {
		if cur.children != nil {
			if next, exists := cur.children[seg]; exists {
				cur = next
				continue
			}
		}
		if cur.paramChild != nil {
			params = append(params, Param{Name: cur.paramName, Value: seg})
			cur = cur.paramChild
			continue
		}
		if cur.wildcardChild != nil {
			remainder := strings.Join(segs[i:], "/")
			params = append(params, Param{Name: cur.wildcardName, Value: remainder})
			cur = cur.wildcardChild
			if !cur.hasDest {
				return "", nil, false
			}
			return cur.dest, params, true
		}
		return "", nil, false
	}
	if !cur.hasDest {
		return "", nil, false
	}
	return cur.dest, params, true
}
