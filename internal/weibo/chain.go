package weibo

import (
	"strings"

	"weibo-insight-go/internal/crawler"
)

// chainMarker joins the quoted hops inside a flattened repost comment.
const chainMarker = "//@"

// DecomposeChain splits a flattened repost comment into its quoted hops.
// The text's first `//@`-segment is the viewer-visible comment and belongs
// to the caller, not the chain. Each later segment has the shape
// "user:comment" and is split on the FIRST colon only; the comment itself
// may contain colons. URLs pair with segments by position: segment i takes
// urls[i-1].
//
// A scrape that lost anchors yields more segments than URLs. The paired
// prefix is salvaged and returned together with a partial-chain error so
// the caller can log and move on. A segment with no colon cannot be split
// into user and comment; it is skipped but still consumes its URL slot.
func DecomposeChain(flattened string, urls []string) ([]ChainHop, error) {
	segments := strings.Split(flattened, chainMarker)
	if len(segments) < 2 {
		return nil, nil
	}
	chain := segments[1:]

	var err error
	if len(chain) > len(urls) {
		err = crawler.NewPartialChainError("weibo", len(chain), len(urls))
		chain = chain[:len(urls)]
	}

	hops := make([]ChainHop, 0, len(chain))
	for i, seg := range chain {
		name, content, found := strings.Cut(seg, ":")
		if !found {
			continue
		}
		hops = append(hops, ChainHop{
			UserName: name,
			Content:  content,
			PageURL:  urls[i],
		})
	}
	return hops, err
}

// ReassembleChain is the inverse of DecomposeChain for well-formed input;
// joining the hops back reproduces the chain part of the original text.
func ReassembleChain(hops []ChainHop) string {
	var b strings.Builder
	for _, h := range hops {
		b.WriteString(chainMarker)
		b.WriteString(h.UserName)
		b.WriteString(":")
		b.WriteString(h.Content)
	}
	return b.String()
}
