package weibo

import (
	"testing"

	"weibo-insight-go/internal/crawler"
)

func TestParseStatusDetail(t *testing.T) {
	body := `{"error_code":0,"data":{"weibo_id":"K7okwxcKa","user_id":2656274875,
		"screen_name":"央视新闻","text":"#热点话题# 正文 @小李",
		"reposts_count":"1.2万","comments_count":314,"attitudes_count":"5万",
		"created_at":"2021-05-20 11:00"}}`

	post, err := ParseStatusDetail(body, "task-1", testNow())
	if err != nil {
		t.Fatalf("ParseStatusDetail: %v", err)
	}
	if post.ID != "K7okwxcKa" || post.AuthorName != "央视新闻" || post.AuthorID != "2656274875" {
		t.Fatalf("identity fields: %+v", post)
	}
	if post.RepostCount != 12000 || post.CommentCount != 314 || post.LikeCount != 50000 {
		t.Fatalf("counts: %+v", post)
	}
	if post.HotScore != 12000+314+50000 {
		t.Fatalf("hot score = %d", post.HotScore)
	}
	if post.TaskID != "task-1" {
		t.Fatalf("task id = %q", post.TaskID)
	}
}

func TestParseStatusDetailErrors(t *testing.T) {
	if _, err := ParseStatusDetail("", "t", testNow()); crawler.KindOf(err) != crawler.ErrorKindParse {
		t.Fatalf("empty body kind = %s", crawler.KindOf(err))
	}
	if _, err := ParseStatusDetail("<html>", "t", testNow()); crawler.KindOf(err) != crawler.ErrorKindParse {
		t.Fatalf("markup body kind = %s", crawler.KindOf(err))
	}
	_, err := ParseStatusDetail(`{"error_code":100,"error_msg":"weibo not found"}`, "t", testNow())
	if crawler.KindOf(err) != crawler.ErrorKindUpstream {
		t.Fatalf("error envelope kind = %s", crawler.KindOf(err))
	}
	if _, err := ParseStatusDetail(`{"error_code":0,"data":{}}`, "t", testNow()); err == nil {
		t.Fatal("missing weibo_id should fail")
	}
}
