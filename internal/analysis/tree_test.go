package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"weibo-insight-go/internal/weibo"
)

func singleSource() []Source {
	return []Source{{ID: "K7okwxcKa", AuthorName: "A", AuthorID: "1", Content: "原帖"}}
}

func rec(source string, page, seq, chainIdx int, name, content string) weibo.RepostRecord {
	return weibo.RepostRecord{
		SourcePostID: source,
		PageNumber:   page,
		NodeSeq:      seq,
		ChainIndex:   chainIdx,
		AuthorName:   name,
		Content:      content,
	}
}

func TestBuildTreeChainOrder(t *testing.T) {
	// One scraped node: D reposted via chain "//@C:...//@B:...", so the
	// rightmost hop B sits closest to the source author A.
	records := []weibo.RepostRecord{
		rec("K7okwxcKa", 1, 0, 0, "D", "终端转发"),
		rec("K7okwxcKa", 1, 0, 1, "C", "中间"),
		rec("K7okwxcKa", 1, 0, 2, "B", "最早"),
	}
	root := BuildTree(singleSource(), records)
	if root.UserName != "A" {
		t.Fatalf("root = %q", root.UserName)
	}
	b, ok := root.Children["B"]
	if !ok {
		t.Fatalf("root children = %v", root.childOrder)
	}
	c, ok := b.Children["C"]
	if !ok {
		t.Fatalf("B children = %v", b.childOrder)
	}
	if _, ok := c.Children["D"]; !ok {
		t.Fatalf("C children = %v", c.childOrder)
	}
}

func TestBuildTreeMergesByName(t *testing.T) {
	// Two scraped nodes repost through the same hop user: one node each.
	records := []weibo.RepostRecord{
		rec("K7okwxcKa", 1, 0, 0, "D", ""),
		rec("K7okwxcKa", 1, 0, 1, "B", ""),
		rec("K7okwxcKa", 1, 1, 0, "E", ""),
		rec("K7okwxcKa", 1, 1, 1, "B", ""),
	}
	root := BuildTree(singleSource(), records)
	if len(root.Children) != 1 {
		t.Fatalf("root has %d children, want just B", len(root.Children))
	}
	b := root.Children["B"]
	if len(b.Children) != 2 {
		t.Fatalf("B has %d children, want D and E", len(b.Children))
	}
}

func TestSubtreeCounts(t *testing.T) {
	// Root A with children B and D, grandchild C under B.
	records := []weibo.RepostRecord{
		rec("K7okwxcKa", 1, 0, 0, "C", ""),
		rec("K7okwxcKa", 1, 0, 1, "B", ""),
		rec("K7okwxcKa", 1, 1, 0, "D", ""),
	}
	root := BuildTree(singleSource(), records)
	ComputeSubtreeCounts(root)

	if root.SubtreeCount != 3 {
		t.Fatalf("count(A) = %d, want 3", root.SubtreeCount)
	}
	b := root.Children["B"]
	if b.SubtreeCount != 1 {
		t.Fatalf("count(B) = %d, want 1", b.SubtreeCount)
	}
	if c := b.Children["C"]; c.SubtreeCount != 0 {
		t.Fatalf("count(C) = %d, want 0 for a leaf", c.SubtreeCount)
	}
	if d := root.Children["D"]; d.SubtreeCount != 0 {
		t.Fatalf("count(D) = %d, want 0 for a leaf", d.SubtreeCount)
	}
}

func TestSubtreeCountsDeepChain(t *testing.T) {
	// A chain several hundred levels deep must not blow the stack.
	const depth = 500
	records := make([]weibo.RepostRecord, 0, depth)
	for i := 0; i < depth; i++ {
		records = append(records, rec("K7okwxcKa", 1, 0, depth-1-i, fmt.Sprintf("u%d", i), ""))
	}
	root := BuildTree(singleSource(), records)
	ComputeSubtreeCounts(root)
	if root.SubtreeCount != depth {
		t.Fatalf("count(root) = %d, want %d", root.SubtreeCount, depth)
	}
}

func TestBuildTreeMultipleSources(t *testing.T) {
	sources := []Source{
		{ID: "p1", AuthorName: "A1"},
		{ID: "p2", AuthorName: "A2"},
	}
	records := []weibo.RepostRecord{
		rec("p1", 1, 0, 0, "B", ""),
		rec("p2", 1, 0, 0, "C", ""),
	}
	root := BuildTree(sources, records)
	if root.UserName != "root" || len(root.Children) != 2 {
		t.Fatalf("synthetic root = %q with %d children", root.UserName, len(root.Children))
	}
	if _, ok := root.Children["A1"].Children["B"]; !ok {
		t.Fatal("B not under A1")
	}
	if _, ok := root.Children["A2"].Children["C"]; !ok {
		t.Fatal("C not under A2")
	}
}

func TestNameCountsCollisionOverwrites(t *testing.T) {
	// The same display name at two depths: the by-name lookup holds only
	// one of the two counts.
	records := []weibo.RepostRecord{
		rec("K7okwxcKa", 1, 0, 0, "X", ""),
		rec("K7okwxcKa", 1, 1, 0, "Y", ""),
		rec("K7okwxcKa", 1, 1, 1, "X", ""),
	}
	root := BuildTree(singleSource(), records)
	ComputeSubtreeCounts(root)
	counts := NameCounts(root)
	if len(counts) != 3 {
		t.Fatalf("counts = %v", counts)
	}
	if _, ok := counts["X"]; !ok {
		t.Fatal("X missing from name counts")
	}
}

func TestTreeMarshalInsertionOrder(t *testing.T) {
	records := []weibo.RepostRecord{
		rec("K7okwxcKa", 1, 0, 0, "Z", ""),
		rec("K7okwxcKa", 1, 1, 0, "M", ""),
		rec("K7okwxcKa", 1, 2, 0, "B", ""),
	}
	root := BuildTree(singleSource(), records)
	b, err := json.Marshal(root)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !(strings.Index(s, `"Z"`) < strings.Index(s, `"M"`) && strings.Index(s, `"M"`) < strings.Index(s, `"B"`)) {
		t.Fatalf("children not in insertion order: %s", s)
	}
}
