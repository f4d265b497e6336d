package weibo

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Weibo serves publish times in a dozen shapes, from "刚刚" through
// "3分钟前" up to full dates and raw unix timestamps. NormalizeTime turns
// any of them into an absolute time relative to now. The pattern checks run
// in a fixed order; ambiguous strings are resolved by whichever pattern
// matches first, and reordering them changes which format wins.
//
// ok=false means "time unknown": the caller keeps the record and leaves the
// field empty instead of failing.
func NormalizeTime(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	switch {
	case strings.Contains(s, "刚刚") || strings.Contains(strings.ToLower(s), "just now"):
		return now, true

	case strings.Contains(s, "秒"):
		n, ok := leadingInt(s[:strings.Index(s, "秒")])
		if !ok {
			return time.Time{}, false
		}
		return now.Add(-time.Duration(n) * time.Second), true

	case strings.Contains(s, "分钟"):
		n, ok := leadingInt(s[:strings.Index(s, "分钟")])
		if !ok {
			return time.Time{}, false
		}
		return now.Add(-time.Duration(n) * time.Minute), true

	case strings.Contains(s, "小时"):
		n, ok := leadingInt(s[:strings.Index(s, "小时")])
		if !ok {
			return time.Time{}, false
		}
		return now.Add(-time.Duration(n) * time.Hour), true

	case strings.Contains(s, "今天"):
		return combineDayTime(now, s[strings.Index(s, "今天")+len("今天"):])

	case strings.Contains(s, "昨天"):
		return combineDayTime(now.AddDate(0, 0, -1), s[strings.Index(s, "昨天")+len("昨天"):])

	case strings.Contains(s, "年") && strings.Contains(s, "月") && strings.Contains(s, "日"):
		return parseCJKDate(s, "")

	case strings.Contains(s, "月") && strings.Contains(s, "日"):
		return parseCJKDate(s, now.Format("2006"))

	case reISODate.MatchString(s):
		return parseDashed(s)

	case strings.Contains(s, "-"):
		// MM-DD with optional time, year assumed current.
		return parseDashed(now.Format("2006") + "-" + s)

	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		// Below the cutoff the number is unix seconds, above it milliseconds.
		if f < 1e10 {
			return time.Unix(int64(f), 0), true
		}
		return time.UnixMilli(int64(f)), true
	}
}

// FormatNormalized renders a normalized time the way records store it. The
// per-day trend aggregation slices the first 10 bytes of this string.
func FormatNormalized(t time.Time, ok bool) string {
	if !ok {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

var reISODate = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}`)

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// combineDayTime glues a known date onto a trailing "HH:MM" fragment.
func combineDayTime(day time.Time, rest string) (time.Time, bool) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", day.Format("2006-01-02")+" "+rest, day.Location())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseCJKDate handles "[YYYY年]MM月DD日[ HH:MM]". Year comes from the
// string itself or from the caller when the form omits it.
func parseCJKDate(s, fallbackYear string) (time.Time, bool) {
	year := fallbackYear
	rest := s
	if i := strings.Index(rest, "年"); i >= 0 {
		year = strings.TrimSpace(rest[:i])
		rest = rest[i+len("年"):]
	}
	mi := strings.Index(rest, "月")
	di := strings.Index(rest, "日")
	if year == "" || mi < 0 || di < 0 || di < mi {
		return time.Time{}, false
	}
	month := strings.TrimSpace(rest[:mi])
	day := strings.TrimSpace(rest[mi+len("月") : di])
	clock := strings.TrimSpace(rest[di+len("日"):])
	dashed := year + "-" + month + "-" + day
	if clock != "" {
		dashed += " " + clock
	}
	return parseDashed(dashed)
}

// parseDashed accepts "YYYY-M-D", optionally followed by "HH:MM[:SS]".
// time.ParseInLocation rejects impossible literals (month 13, day 32), so
// those fall out as unparseable rather than wrapping around.
func parseDashed(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	layouts := []string{
		"2006-1-2 15:04:05",
		"2006-1-2 15:04",
		"2006-1-2",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
