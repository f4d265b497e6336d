package weibo

// Post is one microblog entry extracted from a search payload. Counts are
// refreshed on re-scrape; everything else is immutable after creation.
type Post struct {
	ID             string   `json:"weibo_id" bson:"weibo_id"`
	AuthorID       string   `json:"user_id" bson:"user_id"`
	AuthorName     string   `json:"user_name" bson:"user_name"`
	Text           string   `json:"text" bson:"text"`
	CreatedAt      string   `json:"created_at" bson:"created_at"`
	CreateTimeMs   int64    `json:"create_time" bson:"create_time"`
	RepostCount    int      `json:"repost_count" bson:"repost_count"`
	CommentCount   int      `json:"comment_count" bson:"comment_count"`
	LikeCount      int      `json:"like_count" bson:"like_count"`
	HotScore       int      `json:"hot_count" bson:"hot_count"`
	Topics         []string `json:"topics" bson:"topics"`
	MentionedUsers []string `json:"mentioned_users" bson:"mentioned_users"`
	TaskID         string   `json:"tag_task_id" bson:"tag_task_id"`
}

// RepostRecord is one hop in a repost chain. ChainIndex 0 is the author of
// the scraped node itself; 1..K are the quoted hops, rightmost first.
// Records sharing a NodeSeq came from the same scraped markup block.
type RepostRecord struct {
	TaskID         string `json:"tag_comment_task_id" bson:"tag_comment_task_id"`
	TopicTaskID    string `json:"tag_task_id" bson:"tag_task_id"`
	SourcePostID   string `json:"weibo_id" bson:"weibo_id"`
	PageNumber     int    `json:"page" bson:"page"`
	NodeSeq        int    `json:"node_seq" bson:"node_seq"`
	ChainIndex     int    `json:"chain_index" bson:"chain_index"`
	ScrapeTime     int64  `json:"crawl_time" bson:"crawl_time"`
	AuthorName     string `json:"user_name" bson:"user_name"`
	AuthorID       string `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Content        string `json:"content" bson:"content"`
	RawPrefixChain string `json:"pre_content" bson:"pre_content"`
	PageURL        string `json:"page_url,omitempty" bson:"page_url,omitempty"`
	CreatedAt      string `json:"created_at" bson:"created_at"`
	LikeCount      int    `json:"like_counts" bson:"like_counts"`
}

// ChainHop is one decomposed `//@user: comment` segment paired with the
// anchor URL extracted at the same position in the source markup.
type ChainHop struct {
	UserName string
	Content  string
	PageURL  string
}

// PageContext identifies the page a record was extracted from.
type PageContext struct {
	TaskID       string
	TopicTaskID  string
	SourcePostID string
	PageNumber   int
}

// PageResult is the outcome of parsing one repost page. TotalPages is 0
// when the page carries no pagination marker.
type PageResult struct {
	Records    []RepostRecord
	TotalPages int
}
