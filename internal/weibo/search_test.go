package weibo

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestParseSearchPageJSON(t *testing.T) {
	body := `{"error_code":0,"data":{"result":[
		{"weibo_id":"K7okwxcKa","user_id":100,"screen_name":"作者甲","text":"#夏日话题# 转发抽奖 @小助手","reposts_count":"3","comments_count":5,"attitudes_count":"1万","created_at":"今天 08:30"},
		{"weibo_id":"","screen_name":"无ID跳过","text":"x"}
	]}}`
	posts, err := ParseSearchPage(body, "task-1", testNow())
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	p := posts[0]
	if p.ID != "K7okwxcKa" || p.AuthorID != "100" || p.AuthorName != "作者甲" {
		t.Fatalf("post = %+v", p)
	}
	if p.HotScore != 3+5+10000 {
		t.Fatalf("hot score = %d", p.HotScore)
	}
	if len(p.Topics) != 1 || p.Topics[0] != "夏日话题" {
		t.Fatalf("topics = %v", p.Topics)
	}
	if len(p.MentionedUsers) != 1 || p.MentionedUsers[0] != "小助手" {
		t.Fatalf("mentions = %v", p.MentionedUsers)
	}
	if p.TaskID != "task-1" {
		t.Fatalf("task id = %q", p.TaskID)
	}
	wantMs := time.Date(2021, 5, 20, 8, 30, 0, 0, time.Local).UnixMilli()
	if p.CreateTimeMs != wantMs {
		t.Fatalf("create time = %d, want %d", p.CreateTimeMs, wantMs)
	}
}

func TestParseSearchPageUpstreamError(t *testing.T) {
	_, err := ParseSearchPage(`{"error_code":2,"error_msg":"请求被拒绝"}`, "t", testNow())
	if err == nil {
		t.Fatal("expected upstream error")
	}
}

func TestParseSearchPageMarkup(t *testing.T) {
	body := `<html><body>
	<div class="card-wrap" mid="4893087867568885">
	  <div class="info"><a href="/u/100200?refer=x" nick-name="测试用户">测试用户</a></div>
	  <p class="txt">今天也要加油 #打工人# </p>
	  <p class="from"><a>05月12日 10:20</a></p>
	  <div class="card-act"><ul>
	    <li><a>转发 12</a></li>
	    <li><a>评论 3</a></li>
	    <li><a>赞 45</a></li>
	  </ul></div>
	</div>
	<div class="card-wrap"><div class="ad">no mid attribute</div></div>
	</body></html>`
	posts, err := ParseSearchPage(body, "t", testNow())
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	p := posts[0]
	if p.ID != "4893087867568885" || p.AuthorID != "100200" || p.AuthorName != "测试用户" {
		t.Fatalf("post = %+v", p)
	}
	if p.RepostCount != 12 || p.CommentCount != 3 || p.LikeCount != 45 || p.HotScore != 60 {
		t.Fatalf("counts = %d/%d/%d", p.RepostCount, p.CommentCount, p.LikeCount)
	}
}

func TestParseSearchPageNoResultCard(t *testing.T) {
	body := `<html><div class="card-no-result s-pt20b40">抱歉，未找到相关结果。</div></html>`
	posts, err := ParseSearchPage(body, "t", testNow())
	if err != nil || len(posts) != 0 {
		t.Fatalf("posts=%v err=%v", posts, err)
	}
}

func TestPickHottest(t *testing.T) {
	posts := []Post{
		{ID: "a", HotScore: 5},
		{ID: "b", HotScore: 50},
		{ID: "a", HotScore: 40}, // re-scrape of a, first sighting wins
		{ID: "c", HotScore: 50},
		{ID: "d", HotScore: 1},
	}
	hot := pickHottest(posts, 3)
	if len(hot) != 3 {
		t.Fatalf("got %d hot posts", len(hot))
	}
	// b and c tie at 50; b crawled first, stable sort keeps it ahead.
	if hot[0].ID != "b" || hot[1].ID != "c" {
		t.Fatalf("hot order = %s,%s", hot[0].ID, hot[1].ID)
	}
	if hot[2].ID != "a" || hot[2].HotScore != 40 {
		t.Fatalf("hot[2] = %+v", hot[2])
	}
}

type fakeSearchFetcher struct {
	pages map[int]string
	calls int
}

func (f *fakeSearchFetcher) SearchTweets(ctx context.Context, keyword string, cursor int) (string, error) {
	f.calls++
	return f.pages[cursor], nil
}

func TestCollectTopicPostsEmptyStreak(t *testing.T) {
	fetch := &fakeSearchFetcher{pages: map[int]string{}}
	res, err := CollectTopicPosts(context.Background(), fetch, "话题", "task-1", TopicOptions{MaxPages: 24})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != "empty_streak" {
		t.Fatalf("reason = %q", res.Reason)
	}
	if fetch.calls != 3 {
		t.Fatalf("fetched %d cursors, want 3", fetch.calls)
	}
}

func TestCollectTopicPosts(t *testing.T) {
	pages := map[int]string{}
	for i := 1; i <= 2; i++ {
		pages[i] = fmt.Sprintf(`{"error_code":0,"data":{"result":[{"weibo_id":"id%d","screen_name":"u","text":"t","reposts_count":%d}]}}`, i, i)
	}
	fetch := &fakeSearchFetcher{pages: pages}
	res, err := CollectTopicPosts(context.Background(), fetch, "话题", "task-1", TopicOptions{MaxPages: 2, HotPosts: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 2 {
		t.Fatalf("posts = %d", len(res.Posts))
	}
	if len(res.HotPosts) != 1 || res.HotPosts[0].ID != "id2" {
		t.Fatalf("hot posts = %+v", res.HotPosts)
	}
}
