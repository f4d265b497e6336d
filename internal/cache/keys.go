package cache

import "fmt"

// The two kinds of entries the crawler caches. Keeping the key shapes
// here means a repost page cached by the client and an analysis document
// cached by the API can never collide.

// PageKey names one fetched repost page of one post.
func PageKey(weiboID string, page int) string {
	return fmt.Sprintf("repost:%s:%d", weiboID, page)
}

// DocKey names one rendered analysis document of one task.
func DocKey(doc, taskID string) string {
	return fmt.Sprintf("doc:%s:%s", doc, taskID)
}
