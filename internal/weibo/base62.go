package weibo

import (
	"fmt"
	"strings"
)

// Weibo exposes the same status under a decimal mid and a base62 id. The
// codec works on 7-digit decimal groups taken from the right, each encoded
// as up to 4 base62 chars; every group but the leftmost is zero-padded.
const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func MidToBase62(mid string) (string, error) {
	mid = strings.TrimSpace(mid)
	if mid == "" || !isDigits(mid) {
		return "", fmt.Errorf("invalid mid: %q", mid)
	}
	var groups []string
	for mid != "" {
		cut := len(mid) - 7
		if cut < 0 {
			cut = 0
		}
		groups = append([]string{mid[cut:]}, groups...)
		mid = mid[:cut]
	}

	var b strings.Builder
	for i, g := range groups {
		var n uint64
		for _, c := range g {
			n = n*10 + uint64(c-'0')
		}
		enc := encodeBase62(n)
		if i > 0 {
			for len(enc) < 4 {
				enc = "0" + enc
			}
		}
		b.WriteString(enc)
	}
	return b.String(), nil
}

func Base62ToMid(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("empty base62 id")
	}
	var groups []string
	for id != "" {
		cut := len(id) - 4
		if cut < 0 {
			cut = 0
		}
		groups = append([]string{id[cut:]}, groups...)
		id = id[:cut]
	}

	var b strings.Builder
	for i, g := range groups {
		var n uint64
		for _, c := range g {
			idx := strings.IndexRune(base62Alphabet, c)
			if idx < 0 {
				return "", fmt.Errorf("invalid base62 char %q", c)
			}
			n = n*62 + uint64(idx)
		}
		dec := fmt.Sprintf("%d", n)
		if i > 0 {
			for len(dec) < 7 {
				dec = "0" + dec
			}
		}
		b.WriteString(dec)
	}
	return b.String(), nil
}

// EnsureBase62ID accepts either id form and always returns base62.
func EnsureBase62ID(weiboID string) (string, error) {
	weiboID = strings.TrimSpace(weiboID)
	if weiboID == "" {
		return "", fmt.Errorf("empty weibo id")
	}
	if isDigits(weiboID) && len(weiboID) > 8 {
		return MidToBase62(weiboID)
	}
	return weiboID, nil
}

func encodeBase62(n uint64) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{base62Alphabet[n%62]}, digits...)
		n /= 62
	}
	return string(digits)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
