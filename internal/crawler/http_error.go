package crawler

import (
	"fmt"
	"strings"
)

// statusKind maps an HTTP status from the scrape target onto the error
// taxonomy the failure streak counts. Weibo answers a banned cookie with
// 403 and throttling with 429; 5xx means the target or the search relay
// itself is struggling.
func statusKind(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorKindForbidden
	case status == 429:
		return ErrorKindRateLimited
	case status == 408 || status == 504:
		return ErrorKindTimeout
	case status >= 500:
		return ErrorKindUpstream
	default:
		return ErrorKindHTTP
	}
}

// NewHTTPStatusError wraps a non-200 response. The body sample is kept
// because weibo's block pages explain themselves in the HTML.
func NewHTTPStatusError(platform, url string, statusCode int, body string) error {
	return Error{
		Kind:     statusKind(statusCode),
		Platform: platform,
		URL:      url,
		Msg:      fmt.Sprintf("http status=%d%s", statusCode, bodyHint(body)),
	}
}

// bodyHint flattens the response body to one short line for the log.
func bodyHint(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	const maxHint = 512
	if len(s) > maxHint {
		s = s[:maxHint]
	}
	if s == "" {
		return ""
	}
	return " body=" + s
}
