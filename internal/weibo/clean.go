package weibo

import (
	"regexp"
	"strings"
)

// The mobile repost page serves each node as one div.c blob of markup.
// These strip the markup down to the flattened comment text while keeping
// the `//@user:` chain separators intact for the decomposer.
var (
	reKeyword    = regexp.MustCompile(`<span class="kt">|</span>|原图|<!-- 是否进行翻译 -->|<span class="cmt">|\[组图共.+张\]`)
	reEmoji      = regexp.MustCompile(`<img alt="|" src="//h5\.sinaimg(.*?)/>`)
	reWhiteSpace = regexp.MustCompile(`<br />`)
	reDiv        = regexp.MustCompile(`</div>|<div>`)
	reImage      = regexp.MustCompile(`<img(.*?)/>`)
	reAnchor     = regexp.MustCompile(`<a href=(.*?)>|</a>`)
	reAnchorHref = regexp.MustCompile(`<a href="(.*?)">`)
)

// markerCC splits the node body from its action bar (repost/like links).
const markerCC = `<span class="cc">`

// CleanRepostHTML flattens one repost node's markup into plain text.
func CleanRepostHTML(nodeHTML string) string {
	s := nodeHTML
	if i := strings.Index(s, markerCC); i >= 0 {
		s = s[:i]
	}
	s = reEmoji.ReplaceAllString(s, "")
	s = reKeyword.ReplaceAllString(s, "")
	s = reAnchor.ReplaceAllString(s, "")
	s = reDiv.ReplaceAllString(s, "")
	s = reImage.ReplaceAllString(s, "")
	s = reWhiteSpace.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, `<div class="c">`, "")
	s = strings.Trim(s, ":")
	return strings.TrimSpace(s)
}

// ChainAnchorURLs pulls the anchor hrefs out of a node's markup, in source
// order, stopping at the action bar. Index 0 is the node author's own
// profile link; the rest line up positionally with the `//@` segments.
func ChainAnchorURLs(nodeHTML string) []string {
	s := nodeHTML
	if i := strings.Index(s, markerCC); i >= 0 {
		s = s[:i]
	}
	matches := reAnchorHref.FindAllStringSubmatch(s, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[1])
	}
	return urls
}
