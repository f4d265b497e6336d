package weibo

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"weibo-insight-go/internal/crawler"
)

var (
	reTopic   = regexp.MustCompile(`#([^#]+)#`)
	reMention = regexp.MustCompile(`@([^\s@:：，。#]+)`)
)

// payloadPost is one search hit in the JSON API shape.
type payloadPost struct {
	WeiboID        string     `json:"weibo_id"`
	UserID         flexString `json:"user_id"`
	ScreenName     string     `json:"screen_name"`
	UserName       string     `json:"user_name"`
	Text           string     `json:"text"`
	RepostsCount   flexString `json:"reposts_count"`
	CommentsCount  flexString `json:"comments_count"`
	AttitudesCount flexString `json:"attitudes_count"`
	CreatedAt      string     `json:"created_at"`
}

// ParseSearchPage extracts posts from one search result payload. JSON
// envelopes are tried first, then the server-rendered card markup. Same
// failure semantics as the repost parser: only an explicit error envelope
// is an error, everything unreadable is an empty result.
func ParseSearchPage(body, taskID string, now time.Time) ([]Post, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, nil
	}
	if json.Valid([]byte(trimmed)) {
		return parseSearchPayload([]byte(trimmed), taskID, now)
	}
	if payload := ExtractRenderData(trimmed); payload != nil {
		return parseSearchPayload(payload, taskID, now)
	}
	return parseSearchMarkup(trimmed, taskID, now)
}

func parseSearchPayload(payload []byte, taskID string, now time.Time) ([]Post, error) {
	var env apiEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, crawler.NewParseError("weibo", "unexpected search payload", err)
	}
	if env.ErrorCode != nil && *env.ErrorCode != 0 {
		msg := env.ErrorMsg
		if msg == "" {
			msg = "error_code=" + strconv.Itoa(*env.ErrorCode)
		}
		return nil, crawler.NewUpstreamError("weibo", "", msg)
	}
	if len(env.Data.Result) == 0 {
		return nil, nil
	}
	var items []payloadPost
	if err := json.Unmarshal(env.Data.Result, &items); err != nil {
		return nil, nil
	}

	posts := make([]Post, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.WeiboID) == "" {
			continue
		}
		name := item.ScreenName
		if name == "" {
			name = item.UserName
		}
		posts = append(posts, buildPost(
			item.WeiboID,
			string(item.UserID),
			name,
			item.Text,
			CoerceCount(string(item.RepostsCount)),
			CoerceCount(string(item.CommentsCount)),
			CoerceCount(string(item.AttitudesCount)),
			item.CreatedAt,
			taskID,
			now,
		))
	}
	return posts, nil
}

// parseSearchMarkup reads the server-rendered search page: one
// div.card-wrap per hit, identified by its mid attribute. A dedicated
// no-result card means an empty page, not a broken one.
func parseSearchMarkup(body, taskID string, now time.Time) ([]Post, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, crawler.NewParseError("weibo", "search markup not readable", err)
	}
	if doc.Find("div.card-no-result").Length() > 0 {
		return nil, nil
	}

	var posts []Post
	doc.Find("div.card-wrap").Each(func(_ int, sel *goquery.Selection) {
		mid, ok := sel.Attr("mid")
		if !ok || strings.TrimSpace(mid) == "" {
			return
		}
		weiboID := strings.TrimPrefix(strings.TrimPrefix(mid, "M_"), "m_")

		author := sel.Find(`a[href*="/u/"]`).First()
		if author.Length() == 0 {
			return
		}
		authorHref, _ := author.Attr("href")
		userID := ""
		if m := reUserID.FindStringSubmatch(authorHref); m != nil {
			userID = m[1]
		} else {
			parts := strings.Split(strings.Split(authorHref, "?")[0], "/")
			userID = parts[len(parts)-1]
		}
		name := strings.TrimSpace(author.AttrOr("nick-name", ""))
		if name == "" {
			name = strings.TrimSpace(author.Text())
		}

		txt := sel.Find("p.txt").First()
		if txt.Length() == 0 {
			return
		}
		text := strings.TrimSpace(txt.Text())

		reposts, comments, likes := 0, 0, 0
		sel.Find("div.card-act li").Each(func(_ int, li *goquery.Selection) {
			label := strings.TrimSpace(li.Text())
			switch {
			case strings.Contains(label, "转发"):
				reposts = CoerceCount(label)
			case strings.Contains(label, "评论"):
				comments = CoerceCount(label)
			case strings.Contains(label, "赞"):
				likes = CoerceCount(label)
			}
		})
		if likes == 0 {
			likes = CoerceCount(strings.TrimSpace(sel.Find("div.card-act li em").Last().Text()))
		}

		createdAt := strings.TrimSpace(sel.Find("p.from a").First().Text())

		posts = append(posts, buildPost(weiboID, userID, name, text, reposts, comments, likes, createdAt, taskID, now))
	})
	return posts, nil
}

func buildPost(id, userID, name, text string, reposts, comments, likes int, createdRaw, taskID string, now time.Time) Post {
	created, ok := NormalizeTime(createdRaw, now)
	// Search rows without a readable time default to scrape time so the
	// hot ranking still has something to sort on.
	if !ok {
		created = now
	}
	return Post{
		ID:             strings.TrimSpace(id),
		AuthorID:       strings.TrimSpace(userID),
		AuthorName:     strings.TrimSpace(name),
		Text:           strings.TrimSpace(text),
		CreatedAt:      strings.TrimSpace(createdRaw),
		CreateTimeMs:   created.UnixMilli(),
		RepostCount:    reposts,
		CommentCount:   comments,
		LikeCount:      likes,
		HotScore:       reposts + comments + likes,
		Topics:         extractTopics(text),
		MentionedUsers: extractMentions(text),
		TaskID:         taskID,
	}
}

func extractTopics(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range reTopic.FindAllStringSubmatch(text, -1) {
		topic := strings.TrimSpace(m[1])
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		out = append(out, topic)
	}
	return out
}

func extractMentions(text string) []string {
	var out []string
	for _, m := range reMention.FindAllStringSubmatch(text, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			out = append(out, name)
		}
	}
	return out
}
