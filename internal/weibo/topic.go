package weibo

import (
	"context"
	"sort"
	"time"

	"weibo-insight-go/internal/crawler"
	"weibo-insight-go/internal/logger"
)

// SearchFetcher hands back one raw search result payload per cursor.
type SearchFetcher interface {
	SearchTweets(ctx context.Context, keyword string, cursor int) (string, error)
}

// TopicOptions tunes the keyword search walk.
type TopicOptions struct {
	MaxPages           int
	FailureStreakLimit int
	EmptyStreakLimit   int
	HotPosts           int
}

func (o TopicOptions) withDefaults() TopicOptions {
	if o.MaxPages <= 0 {
		o.MaxPages = 24
	}
	if o.FailureStreakLimit <= 0 {
		o.FailureStreakLimit = 5
	}
	if o.EmptyStreakLimit <= 0 {
		o.EmptyStreakLimit = 3
	}
	if o.HotPosts <= 0 {
		o.HotPosts = 10
	}
	return o
}

// TopicCrawlResult is everything one keyword search pass produced.
type TopicCrawlResult struct {
	Tag      string
	TaskID   string
	Posts    []Post
	HotPosts []Post
	Reason   string
}

// CollectTopicPosts walks the keyword search cursor by cursor, keeping all
// hits and picking the hottest distinct posts for follow-up repost crawls.
// A failure streak means the keyword yields nothing; a dedicated empty
// streak catches dead sessions early.
func CollectTopicPosts(ctx context.Context, fetch SearchFetcher, tag, taskID string, opts TopicOptions) (TopicCrawlResult, error) {
	opts = opts.withDefaults()
	res := TopicCrawlResult{Tag: tag, TaskID: taskID}
	now := time.Now()

	failStreak, emptyStreak := 0, 0
	for cursor := 1; cursor <= opts.MaxPages; cursor++ {
		if err := ctx.Err(); err != nil {
			res.Reason = "canceled"
			return res, err
		}
		if failStreak >= opts.FailureStreakLimit {
			res.Reason = "failure_streak"
			break
		}
		if emptyStreak >= opts.EmptyStreakLimit {
			logger.Warn("search responses empty in a row, session likely invalid",
				"tag", tag, "streak", emptyStreak)
			res.Reason = "empty_streak"
			break
		}

		body, err := fetch.SearchTweets(ctx, tag, cursor)
		if err != nil {
			logger.Warn("search fetch failed", "tag", tag, "cursor", cursor, "kind", crawler.KindOf(err), "err", err)
			failStreak++
			continue
		}
		posts, err := ParseSearchPage(body, taskID, now)
		if err != nil {
			logger.Warn("search page rejected", "tag", tag, "cursor", cursor, "err", err)
			failStreak++
			continue
		}
		if len(posts) == 0 {
			emptyStreak++
			failStreak++
			continue
		}
		failStreak, emptyStreak = 0, 0
		res.Posts = append(res.Posts, posts...)
	}
	if res.Reason == "" {
		res.Reason = "max_pages"
	}

	res.HotPosts = pickHottest(res.Posts, opts.HotPosts)
	return res, nil
}

// pickHottest sorts by hot score and keeps the first sighting of each
// weibo id, up to limit. The sort is stable so equal scores keep their
// crawl order.
func pickHottest(posts []Post, limit int) []Post {
	ranked := make([]Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].HotScore > ranked[j].HotScore
	})

	seen := make(map[string]bool)
	var out []Post
	for _, p := range ranked {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out
}
