package weibo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"weibo-insight-go/internal/cache"
	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/crawler"
)

// Client talks to the mobile site and the search relay. Cookies and the
// user agent are resolved once from config; callers never manage them.
type Client struct {
	httpClient *resty.Client
	baseDomain string
	searchBase string
	pageCache  cache.Cache
	cacheTTL   time.Duration
}

func NewClient() *Client {
	timeoutSec := config.AppConfig.HttpTimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	hc := &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
	rc := resty.NewWithClient(hc)
	rc.SetHeaders(map[string]string{
		"accept":          "text/html,application/json;q=0.9,*/*;q=0.8",
		"accept-language": "zh-CN,zh;q=0.9",
		"user-agent":      config.AppConfig.UserAgent,
	})
	if ck := strings.TrimSpace(config.AppConfig.Cookies); ck != "" {
		rc.SetHeader("cookie", ck)
	}

	retryCount := config.AppConfig.HttpRetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	baseMs := config.AppConfig.HttpRetryBaseDelayMs
	if baseMs <= 0 {
		baseMs = 500
	}
	maxMs := config.AppConfig.HttpRetryMaxDelayMs
	if maxMs <= 0 {
		maxMs = 4000
	}
	rc.SetRetryCount(retryCount)
	rc.SetRetryWaitTime(time.Duration(baseMs) * time.Millisecond)
	rc.SetRetryMaxWaitTime(time.Duration(maxMs) * time.Millisecond)
	rc.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return crawler.ShouldRetryError(err)
		}
		if r == nil {
			return true
		}
		return crawler.ShouldRetryStatus(r.StatusCode())
	})

	return &Client{
		httpClient: rc,
		baseDomain: config.AppConfig.BaseDomain,
		searchBase: config.AppConfig.SearchAPIBase,
	}
}

// WithCache stores fetched repost pages so a restarted task does not
// re-download pages it already saw. A nil cache disables this.
func (c *Client) WithCache(pc cache.Cache, ttl time.Duration) *Client {
	c.pageCache = pc
	c.cacheTTL = ttl
	return c
}

// FetchRepostPage downloads one page of the mobile repost list. A page
// that turns out to be a login wall or captcha interstitial is surfaced as
// a risk-hint error instead of being fed to the parser.
func (c *Client) FetchRepostPage(ctx context.Context, weiboID string, page int) (string, error) {
	weiboID = strings.TrimSpace(weiboID)
	if weiboID == "" {
		return "", fmt.Errorf("empty weibo id")
	}
	if page <= 0 {
		page = 1
	}
	cacheKey := cache.PageKey(weiboID, page)
	if c.pageCache != nil {
		if cached, ok, err := c.pageCache.Get(ctx, cacheKey); err == nil && ok {
			return string(cached), nil
		}
	}
	url := fmt.Sprintf("%s/repost/%s", c.baseDomain, weiboID)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("page", fmt.Sprintf("%d", page)).
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", crawler.NewHTTPStatusError("weibo", url, resp.StatusCode(), resp.String())
	}
	body := resp.String()
	switch hint := crawler.DetectRiskHint(body); hint {
	case "login_wall", "captcha":
		return "", crawler.NewRiskHintError("weibo", url, hint)
	}
	if c.pageCache != nil {
		_ = c.pageCache.Set(ctx, cacheKey, []byte(body), c.cacheTTL)
	}
	return body, nil
}

// SearchTweets queries the search relay for one keyword cursor. The body
// comes back raw; the caller decides whether it is an envelope or markup.
func (c *Client) SearchTweets(ctx context.Context, keyword string, cursor int) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", fmt.Errorf("empty keyword")
	}
	if cursor <= 0 {
		cursor = 1
	}
	url := c.searchBase + "/weibo_curl/api/search_tweets"
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"keyword": keyword,
			"cursor":  fmt.Sprintf("%d", cursor),
			"is_hot":  "1",
		}).
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", crawler.NewHTTPStatusError("weibo", url, resp.StatusCode(), resp.String())
	}
	return resp.String(), nil
}

// StatusDetail fetches one post's detail payload. The PC endpoint renders
// the page in a browser upstream and is slower but survives without a
// mobile cookie; the mobile endpoint is the fallback.
func (c *Client) StatusDetail(ctx context.Context, weiboID string, pc bool) (string, error) {
	weiboID = strings.TrimSpace(weiboID)
	if weiboID == "" {
		return "", fmt.Errorf("empty weibo id")
	}
	endpoint := "/weibo_curl/api/statuses_show"
	if pc {
		endpoint = "/weibo_curl/api/statuses_show_pc"
	}
	url := c.searchBase + endpoint
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("weibo_id", weiboID).
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", crawler.NewHTTPStatusError("weibo", url, resp.StatusCode(), resp.String())
	}
	return resp.String(), nil
}
