package analysis

import "sort"

// RankedNode is one tree node's influence score. Name is the display
// name; nodes keep distinct scores even when names repeat at different
// depths.
type RankedNode struct {
	Name  string  `json:"name" bson:"name"`
	Score float64 `json:"score" bson:"score"`
}

const (
	rankMaxIterations = 100
	rankEpsilon       = 1e-6
)

// LeaderRank scores every tree node by iterative score redistribution. A
// synthetic ground node is wired to and from every node, which keeps the
// walk irreducible without a damping factor. Edges follow the repost
// direction parent->child, weighted by 1 plus the child's own spread so a
// hop that triggered further reposts pulls more of its parent's score.
//
// When the scores settle (or the iteration cap is hit) the ground node's
// score is spread evenly back over the nodes and dropped. Neither the
// ground node nor the root appears in the output; everything else does,
// one entry per tree node, sorted by score descending. The sort is
// stable: ties keep tree insertion order.
func LeaderRank(root *TreeNode) []RankedNode {
	if root == nil {
		return nil
	}

	// Index nodes in depth-first insertion order; index 0 is the root and
	// index len(nodes) is the ground node.
	var nodes []*TreeNode
	stack := []*TreeNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes = append(nodes, n)
		children := n.OrderedChildren()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	n := len(nodes)
	if n <= 1 {
		return []RankedNode{}
	}
	ground := n

	index := make(map[*TreeNode]int, n)
	for i, node := range nodes {
		index[node] = i
	}

	type edge struct {
		to     int
		weight float64
	}
	out := make([][]edge, n+1)
	for i, node := range nodes {
		for _, c := range node.OrderedChildren() {
			out[i] = append(out[i], edge{to: index[c], weight: 1 + float64(c.SubtreeCount)})
		}
	}
	for i := 0; i < n; i++ {
		out[i] = append(out[i], edge{to: ground, weight: 1})
		out[ground] = append(out[ground], edge{to: i, weight: 1})
	}

	scores := make([]float64, n+1)
	for i := 0; i < n; i++ {
		scores[i] = 1
	}

	next := make([]float64, n+1)
	for iter := 0; iter < rankMaxIterations; iter++ {
		for i := range next {
			next[i] = 0
		}
		for from, edges := range out {
			var total float64
			for _, e := range edges {
				total += e.weight
			}
			if total == 0 {
				next[from] += scores[from]
				continue
			}
			for _, e := range edges {
				next[e.to] += scores[from] * e.weight / total
			}
		}
		var delta float64
		for i := range next {
			d := next[i] - scores[i]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		scores, next = next, scores
		if delta < rankEpsilon {
			break
		}
	}

	// Fold the ground node's score back into the real nodes.
	share := scores[ground] / float64(n)
	ranked := make([]RankedNode, 0, n-1)
	for i := 1; i < n; i++ {
		ranked = append(ranked, RankedNode{Name: nodes[i].UserName, Score: scores[i] + share})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
