package weibo

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"weibo-insight-go/internal/crawler"
)

type detailEnvelope struct {
	ErrorCode *int            `json:"error_code"`
	ErrorMsg  string          `json:"error_msg"`
	Data      json.RawMessage `json:"data"`
}

// ParseStatusDetail reads one post's detail payload. Unlike the list
// parsers there is no markup fallback; the detail endpoints only speak
// JSON.
func ParseStatusDetail(body, taskID string, now time.Time) (Post, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Post{}, crawler.NewParseError("weibo", "empty status detail body", nil)
	}
	var env detailEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return Post{}, crawler.NewParseError("weibo", "unexpected status detail payload", err)
	}
	if env.ErrorCode != nil && *env.ErrorCode != 0 {
		msg := env.ErrorMsg
		if msg == "" {
			msg = "error_code=" + strconv.Itoa(*env.ErrorCode)
		}
		return Post{}, crawler.NewUpstreamError("weibo", "", msg)
	}
	var item payloadPost
	if err := json.Unmarshal(env.Data, &item); err != nil {
		return Post{}, crawler.NewParseError("weibo", "unexpected status detail data", err)
	}
	if strings.TrimSpace(item.WeiboID) == "" {
		return Post{}, crawler.NewParseError("weibo", "status detail without weibo_id", nil)
	}
	name := item.ScreenName
	if name == "" {
		name = item.UserName
	}
	return buildPost(
		item.WeiboID, string(item.UserID), name, item.Text,
		CoerceCount(string(item.RepostsCount)),
		CoerceCount(string(item.CommentsCount)),
		CoerceCount(string(item.AttitudesCount)),
		item.CreatedAt, taskID, now), nil
}
