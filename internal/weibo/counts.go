package weibo

import (
	"strconv"
	"strings"
)

// CoerceCount turns a scraped count field into an int. Labels like
// "转发[12]" or "赞 1.2万" are tolerated; anything hopeless becomes 0
// rather than failing the record.
func CoerceCount(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if n, ok := scaledValue(s); ok {
		return n
	}
	// Strip everything but digits and retry.
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// scaledValue resolves the 万 (1e4) and 亿 (1e8) suffixes, including the
// combined "N亿M万" form follower counts use.
func scaledValue(s string) (int, bool) {
	iYi := strings.Index(s, "亿")
	iWan := strings.Index(s, "万")
	switch {
	case iYi >= 0 && iWan >= 0:
		yi, err1 := strconv.ParseFloat(strings.TrimSpace(s[:iYi]), 64)
		wan, err2 := strconv.ParseFloat(strings.TrimSpace(s[iYi+len("亿"):iWan]), 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return int(yi*1e8 + wan*1e4), true
	case iYi >= 0:
		yi, err := strconv.ParseFloat(strings.TrimSpace(s[:iYi]), 64)
		if err != nil {
			return 0, false
		}
		return int(yi * 1e8), true
	case iWan >= 0:
		wan, err := strconv.ParseFloat(strings.TrimSpace(s[:iWan]), 64)
		if err != nil {
			return 0, false
		}
		return int(wan * 1e4), true
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}
}
