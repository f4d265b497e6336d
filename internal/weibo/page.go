package weibo

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"weibo-insight-go/internal/crawler"
	"weibo-insight-go/internal/logger"
)

// The mobile pagination footer reads "1/37页"; group 1 is the total.
var (
	reTotalPages = regexp.MustCompile(`1/(\d+)页`)
	reUserID     = regexp.MustCompile(`/u/(\d+)`)
	reLikeCount  = regexp.MustCompile(`赞\[(\d+)\]`)
)

// apiEnvelope is the JSON API answer shape. ErrorCode is a pointer so a
// body without the field is told apart from error_code=0.
type apiEnvelope struct {
	ErrorCode *int         `json:"error_code"`
	ErrorMsg  string       `json:"error_msg"`
	Data      envelopeData `json:"data"`
}

type envelopeData struct {
	Result     json.RawMessage `json:"result"`
	TotalPages int             `json:"total_pages"`
}

// payloadRepost covers the field spellings the JSON variants use for one
// repost/comment item.
type payloadRepost struct {
	Content     string     `json:"content"`
	Text        string     `json:"text"`
	UserID      flexString `json:"user_id"`
	ScreenName  string     `json:"screen_name"`
	UserName    string     `json:"user_name"`
	LikeNum     flexString `json:"like_num"`
	LikeCounts  flexString `json:"like_counts"`
	PublishTime string     `json:"publish_time"`
	CreatedAt   string     `json:"created_at"`
}

// flexString accepts a JSON string or number and keeps it as a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// ParseRepostPage extracts repost records from one scraped page body. The
// same body always yields the same records; parsing holds no state.
//
// Payload detection runs in a fixed order: a body that parses as JSON is
// treated as the API envelope; otherwise a $render_data script marker is
// tried; otherwise the body is read as server-rendered markup. An empty or
// unrecognizable body is an empty result, not an error; only an explicit
// error_code != 0 envelope comes back as an error.
func ParseRepostPage(body string, pc PageContext, now time.Time) (PageResult, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return PageResult{}, nil
	}

	if json.Valid([]byte(trimmed)) {
		return parseRepostPayload([]byte(trimmed), pc, now)
	}
	if payload := ExtractRenderData(trimmed); payload != nil {
		return parseRepostPayload(payload, pc, now)
	}
	return parseRepostMarkup(trimmed, pc, now)
}

func parseRepostPayload(payload []byte, pc PageContext, now time.Time) (PageResult, error) {
	var env apiEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return PageResult{}, crawler.NewParseError("weibo", "unexpected json payload", err)
	}
	if env.ErrorCode != nil && *env.ErrorCode != 0 {
		msg := env.ErrorMsg
		if msg == "" {
			msg = "error_code=" + strconv.Itoa(*env.ErrorCode)
		}
		return PageResult{}, crawler.NewUpstreamError("weibo", "", msg)
	}
	if len(env.Data.Result) == 0 {
		return PageResult{}, nil
	}

	var items []payloadRepost
	if err := json.Unmarshal(env.Data.Result, &items); err != nil {
		// A single-object result (status detail) carries no repost rows.
		return PageResult{TotalPages: env.Data.TotalPages}, nil
	}

	res := PageResult{TotalPages: env.Data.TotalPages}
	for i, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			content = strings.TrimSpace(item.Text)
		}
		if content == "" {
			continue
		}
		name := item.ScreenName
		if name == "" {
			name = item.UserName
		}
		createdRaw := item.PublishTime
		if createdRaw == "" {
			createdRaw = item.CreatedAt
		}
		created, ok := NormalizeTime(createdRaw, now)
		likes := CoerceCount(string(item.LikeNum))
		if likes == 0 {
			likes = CoerceCount(string(item.LikeCounts))
		}
		res.Records = append(res.Records, RepostRecord{
			TaskID:         pc.TaskID,
			TopicTaskID:    pc.TopicTaskID,
			SourcePostID:   pc.SourcePostID,
			PageNumber:     pc.PageNumber,
			NodeSeq:        i,
			ChainIndex:     0,
			ScrapeTime:     now.Unix(),
			AuthorName:     strings.TrimSpace(name),
			AuthorID:       strings.TrimSpace(string(item.UserID)),
			Content:        content,
			RawPrefixChain: content,
			CreatedAt:      FormatNormalized(created, ok),
			LikeCount:      likes,
		})
	}
	return res, nil
}

func parseRepostMarkup(body string, pc PageContext, now time.Time) (PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return PageResult{}, crawler.NewParseError("weibo", "markup not readable", err)
	}

	res := PageResult{}
	if m := reTotalPages.FindStringSubmatch(body); m != nil {
		res.TotalPages, _ = strconv.Atoi(m[1])
	}

	seq := 0
	doc.Find("div.c").Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("id"); ok && strings.HasPrefix(id, "M_") {
			return
		}
		author := sel.Find(`a[href*="/u/"]`).First()
		if author.Length() == 0 {
			// Navigation and ad cards have no author link.
			return
		}
		nodeHTML, err := goquery.OuterHtml(sel)
		if err != nil {
			return
		}
		records, ok := extractNodeRecords(nodeHTML, author, pc, now, seq)
		if !ok {
			logger.KeepFragment(logger.Fragment{
				TaskID:   pc.TaskID,
				SourceID: pc.SourcePostID,
				Page:     pc.PageNumber,
				Reason:   "unhandled repost node template",
				Raw:      nodeHTML,
			})
			return
		}
		res.Records = append(res.Records, records...)
		seq++
	})
	return res, nil
}

// extractNodeRecords turns one repost node's markup into the node author's
// record plus one record per quoted chain hop. ok=false means the node did
// not fit the template and should be kept aside for inspection.
func extractNodeRecords(nodeHTML string, author *goquery.Selection, pc PageContext, now time.Time, seq int) ([]RepostRecord, bool) {
	cleaned := CleanRepostHTML(nodeHTML)
	_, preContent, found := strings.Cut(cleaned, ":")
	if !found {
		return nil, false
	}
	preContent = strings.TrimSpace(preContent)

	authorHref, _ := author.Attr("href")
	authorName := strings.TrimSpace(author.Text())
	var authorID string
	if m := reUserID.FindStringSubmatch(authorHref); m != nil {
		authorID = m[1]
	}
	if authorName == "" {
		return nil, false
	}

	// The node's own comment is the first colon-separated piece that is not
	// part of the quote chain; a piece still holding an @ reference is
	// treated as having no own comment.
	content := ""
	for _, piece := range strings.Split(preContent, ":") {
		if strings.Contains(piece, "//@") || strings.Contains(piece, "回复@") {
			continue
		}
		if i := strings.LastIndex(piece, "<"); i >= 0 {
			piece = piece[:i]
		}
		content = piece
		break
	}
	if strings.Contains(content, "@") {
		content = ""
	}

	createdAt := nodeCreatedAt(nodeHTML, now)

	likes := 0
	if m := reLikeCount.FindStringSubmatch(nodeHTML); m != nil {
		likes = CoerceCount(m[1])
	}

	urls := ChainAnchorURLs(nodeHTML)
	chainURLs := urls
	if len(chainURLs) > 0 {
		chainURLs = chainURLs[1:]
	}
	hops, chainErr := DecomposeChain(preContent, chainURLs)
	if chainErr != nil {
		logger.Warn("repost chain only partially decomposed",
			"weibo_id", pc.SourcePostID, "page", pc.PageNumber, "err", chainErr)
	}

	records := make([]RepostRecord, 0, 1+len(hops))
	records = append(records, RepostRecord{
		TaskID:         pc.TaskID,
		TopicTaskID:    pc.TopicTaskID,
		SourcePostID:   pc.SourcePostID,
		PageNumber:     pc.PageNumber,
		NodeSeq:        seq,
		ChainIndex:     0,
		ScrapeTime:     now.Unix(),
		AuthorName:     authorName,
		AuthorID:       authorID,
		Content:        strings.TrimSpace(content),
		RawPrefixChain: preContent,
		PageURL:        authorHref,
		CreatedAt:      createdAt,
		LikeCount:      likes,
	})
	for i, hop := range hops {
		records = append(records, RepostRecord{
			TaskID:         pc.TaskID,
			TopicTaskID:    pc.TopicTaskID,
			SourcePostID:   pc.SourcePostID,
			PageNumber:     pc.PageNumber,
			NodeSeq:        seq,
			ChainIndex:     i + 1,
			ScrapeTime:     now.Unix(),
			AuthorName:     strings.TrimSpace(hop.UserName),
			Content:        strings.TrimSpace(hop.Content),
			RawPrefixChain: preContent,
			PageURL:        hop.PageURL,
		})
	}
	return records, true
}

// nodeCreatedAt reads the publish time out of the node's span.ct, whose
// text interleaves time and client source with   separators.
func nodeCreatedAt(nodeHTML string, now time.Time) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(nodeHTML))
	if err != nil {
		return ""
	}
	ct := doc.Find("span.ct").First()
	if ct.Length() == 0 {
		return ""
	}
	parts := strings.Split(ct.Text(), " ")
	raw := parts[0]
	// "今天 12:33 来自..." splits date from clock; the client
	// source ("来自...") is never part of the time.
	if len(parts) > 1 && strings.Contains(parts[1], ":") && !strings.Contains(parts[1], "来自") {
		raw += " " + parts[1]
	}
	t, ok := NormalizeTime(raw, now)
	return FormatNormalized(t, ok)
}
