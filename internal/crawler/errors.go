package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

type ErrorKind string

const (
	ErrorKindUnknown       ErrorKind = "unknown"
	ErrorKindTransport     ErrorKind = "transport"
	ErrorKindHTTP          ErrorKind = "http"
	ErrorKindForbidden     ErrorKind = "forbidden"
	ErrorKindRateLimited   ErrorKind = "rate_limited"
	ErrorKindParse         ErrorKind = "parse"
	ErrorKindPartialChain  ErrorKind = "partial_chain"
	ErrorKindNormalization ErrorKind = "normalization"
	ErrorKindUpstream      ErrorKind = "upstream"
	ErrorKindRiskHint      ErrorKind = "risk_hint"
	ErrorKindInvalidInput  ErrorKind = "invalid_input"
	ErrorKindCanceled      ErrorKind = "canceled"
	ErrorKindTimeout       ErrorKind = "timeout"
)

type Error struct {
	Kind     ErrorKind
	Platform string
	URL      string
	Msg      string
	Err      error
}

func (e Error) Error() string {
	base := e.Msg
	if base == "" && e.Err != nil {
		base = e.Err.Error()
	}
	if base == "" {
		base = string(e.Kind)
	}
	if e.Platform != "" && e.URL != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Platform, base, e.URL)
	}
	if e.Platform != "" {
		return fmt.Sprintf("%s: %s", e.Platform, base)
	}
	return base
}

func (e Error) Unwrap() error { return e.Err }

func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	var ce Error
	if errors.As(err, &ce) && ce.Kind != "" {
		return ce.Kind
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return ErrorKindTimeout
		}
		return ErrorKindTransport
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status=") {
		switch {
		case strings.Contains(msg, "http status=429"):
			return ErrorKindRateLimited
		case strings.Contains(msg, "http status=401"), strings.Contains(msg, "http status=403"):
			return ErrorKindForbidden
		default:
			return ErrorKindHTTP
		}
	}
	return ErrorKindUnknown
}

// NewUpstreamError wraps an explicit non-zero error envelope from the
// scrape target, e.g. a cookie-invalid response. Distinct from transport
// failures so the failure streak can tell them apart.
func NewUpstreamError(platform, url, msg string) error {
	return Error{
		Kind:     ErrorKindUpstream,
		Platform: platform,
		URL:      url,
		Msg:      msg,
	}
}

func NewParseError(platform, msg string, err error) error {
	return Error{
		Kind:     ErrorKindParse,
		Platform: platform,
		Msg:      msg,
		Err:      err,
	}
}

// NewPartialChainError reports a repost chain whose segment and URL counts
// disagree; the hops that paired up are still salvaged by the caller.
func NewPartialChainError(platform string, segments, urls int) error {
	return Error{
		Kind:     ErrorKindPartialChain,
		Platform: platform,
		Msg:      fmt.Sprintf("repost chain has %d segments but %d urls", segments, urls),
	}
}

func NewRiskHintError(platform, url, hint string) error {
	return Error{
		Kind:     ErrorKindRiskHint,
		Platform: platform,
		URL:      url,
		Msg:      fmt.Sprintf("risk hint detected: %s", hint),
	}
}

func MergeFailureKinds(dst map[string]int, src map[string]int) map[string]int {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]int, len(src))
	}
	for k, v := range src {
		dst[k] += v
	}
	return dst
}
