// Package analysis reconstructs propagation trees from flat repost records
// and derives per-node statistics and influence rankings from them.
package analysis

import (
	"bytes"
	"encoding/json"
	"sort"

	"weibo-insight-go/internal/weibo"
)

// TreeNode is one user's position in the propagation tree. Children are
// keyed by user name; childOrder keeps insertion order so traversal and
// serialization are deterministic. A user name reappearing at a different
// depth becomes a different node, never a back-reference.
type TreeNode struct {
	UserName string
	UserID   string
	Content  string
	Children map[string]*TreeNode

	childOrder []string

	// SubtreeCount is the number of descendants, filled in by
	// ComputeSubtreeCounts after the tree is built.
	SubtreeCount int
}

func newTreeNode(name, userID, content string) *TreeNode {
	return &TreeNode{
		UserName: name,
		UserID:   userID,
		Content:  content,
		Children: make(map[string]*TreeNode),
	}
}

// child returns the existing child with that name or attaches a new one.
// Same-name records at the same position merge into one node; that is how
// the children mapping is keyed, collisions included.
func (n *TreeNode) child(name, userID, content string) *TreeNode {
	if c, ok := n.Children[name]; ok {
		if c.UserID == "" {
			c.UserID = userID
		}
		if c.Content == "" {
			c.Content = content
		}
		return c
	}
	c := newTreeNode(name, userID, content)
	n.Children[name] = c
	n.childOrder = append(n.childOrder, name)
	return c
}

// OrderedChildren returns the children in insertion order.
func (n *TreeNode) OrderedChildren() []*TreeNode {
	out := make([]*TreeNode, 0, len(n.childOrder))
	for _, name := range n.childOrder {
		out = append(out, n.Children[name])
	}
	return out
}

// MarshalJSON writes children as an object in insertion order, matching
// the stored tree document shape.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"user_name":`)
	writeJSONString(&buf, n.UserName)
	buf.WriteString(`,"user_id":`)
	writeJSONString(&buf, n.UserID)
	buf.WriteString(`,"content":`)
	writeJSONString(&buf, n.Content)
	buf.WriteString(`,"count":`)
	cnt, err := json.Marshal(n.SubtreeCount)
	if err != nil {
		return nil, err
	}
	buf.Write(cnt)
	buf.WriteString(`,"children":{`)
	for i, name := range n.childOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, name)
		buf.WriteByte(':')
		b, err := json.Marshal(n.Children[name])
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// Source describes one top-level post whose reposts were collected.
type Source struct {
	ID         string
	AuthorName string
	AuthorID   string
	Content    string
}

// BuildTree links flat repost records back into the propagation tree.
// Records are grouped by source post; inside one scraped node the chain
// hops run rightmost-first from the source author down to the node's own
// author, so each hop becomes the child of the previous one. A single
// source is the root itself; several sources hang as siblings under a
// synthetic root.
func BuildTree(sources []Source, records []weibo.RepostRecord) *TreeNode {
	roots := make(map[string]*TreeNode, len(sources))
	var root *TreeNode
	if len(sources) == 1 {
		s := sources[0]
		root = newTreeNode(s.AuthorName, s.AuthorID, s.Content)
		roots[s.ID] = root
	} else {
		root = newTreeNode("root", "", "")
		for _, s := range sources {
			roots[s.ID] = root.child(s.AuthorName, s.AuthorID, s.Content)
		}
	}

	// Regroup the flat records into per-scraped-node chains, keeping the
	// original crawl order of the groups.
	type nodeKey struct {
		source  string
		page    int
		nodeSeq int
	}
	groups := make(map[nodeKey][]weibo.RepostRecord)
	var order []nodeKey
	for _, rec := range records {
		k := nodeKey{rec.SourcePostID, rec.PageNumber, rec.NodeSeq}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], rec)
	}

	for _, k := range order {
		base, ok := roots[k.source]
		if !ok {
			// Records for a source nobody declared still get a subtree.
			base = root.child(k.source, "", "")
			roots[k.source] = base
		}
		chain := groups[k]
		sort.SliceStable(chain, func(i, j int) bool {
			return chain[i].ChainIndex > chain[j].ChainIndex
		})
		cur := base
		for _, rec := range chain {
			cur = cur.child(rec.AuthorName, rec.AuthorID, rec.Content)
		}
	}
	return root
}

// ComputeSubtreeCounts fills SubtreeCount for every node: the sum over
// children of 1 + the child's own count. Chains can run hundreds of
// levels deep, so the traversal is an explicit post-order stack, not
// recursion.
func ComputeSubtreeCounts(root *TreeNode) {
	if root == nil {
		return
	}
	type frame struct {
		node    *TreeNode
		visited bool
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if !top.visited {
			top.visited = true
			for _, c := range top.node.OrderedChildren() {
				stack = append(stack, frame{node: c})
			}
			continue
		}
		n := top.node
		stack = stack[:len(stack)-1]
		total := 0
		for _, c := range n.OrderedChildren() {
			total += 1 + c.SubtreeCount
		}
		n.SubtreeCount = total
	}
}

// NameCounts flattens the per-node subtree counts into a by-name lookup
// for joining rank scores back to counts. When the same display name owns
// several nodes the later one overwrites the earlier entry; the stored
// count is then whichever node was visited last. Kept as-is deliberately,
// see DESIGN.md.
func NameCounts(root *TreeNode) map[string]int {
	out := make(map[string]int)
	if root == nil {
		return out
	}
	stack := []*TreeNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out[n.UserName] = n.SubtreeCount
		children := n.OrderedChildren()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}
