package analysis

import (
	"sort"
	"strings"

	"weibo-insight-go/internal/weibo"
)

// KeyNode is one influential spreader: rank score joined with the
// subtree repost count under that user's node.
type KeyNode struct {
	Name  string  `json:"name" bson:"name"`
	Count int     `json:"count" bson:"count"`
	Score float64 `json:"score" bson:"score"`
}

// HotComment is one of the most-liked repost comments under a post.
type HotComment struct {
	Content   string `json:"content" bson:"content"`
	UserName  string `json:"user_name" bson:"user_name"`
	UserID    string `json:"user_id" bson:"user_id"`
	LikeCount int    `json:"like_counts" bson:"like_counts"`
}

// emptyRepostText is what the platform inserts for a repost without a
// comment; it carries no signal and is filtered everywhere.
const emptyRepostText = "转发微博"

// KeyNodes joins the rank scores back to the subtree counts. The join key
// is the display name: when names collide across depths the count lookup
// lands on a single entry for all of them, so one node's count can stand
// in for another's. That matches the stored tree's by-name children
// mapping and is kept rather than fixed; see DESIGN.md.
//
// Nodes whose subtree count is 0 spread nothing and are left out.
func KeyNodes(root *TreeNode) []KeyNode {
	ranked := LeaderRank(root)
	counts := NameCounts(root)

	out := make([]KeyNode, 0, len(ranked))
	for _, r := range ranked {
		count, ok := counts[r.Name]
		if !ok || count == 0 {
			continue
		}
		out = append(out, KeyNode{Name: r.Name, Count: count, Score: r.Score})
	}
	return out
}

// HotComments picks the most liked repost comments, empty and boilerplate
// ones skipped. The sort is stable so equal like counts keep crawl order.
func HotComments(records []weibo.RepostRecord, limit int) []HotComment {
	if limit <= 0 {
		limit = 10
	}
	sorted := make([]weibo.RepostRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LikeCount > sorted[j].LikeCount
	})

	out := make([]HotComment, 0, limit)
	for _, rec := range sorted {
		content := strings.TrimSpace(rec.Content)
		if content == "" {
			content = strings.TrimSpace(rec.RawPrefixChain)
		}
		if content == "" || content == emptyRepostText {
			continue
		}
		out = append(out, HotComment{
			Content:   content,
			UserName:  rec.AuthorName,
			UserID:    rec.AuthorID,
			LikeCount: rec.LikeCount,
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}
