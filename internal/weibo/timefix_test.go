package weibo

import (
	"fmt"
	"testing"
	"time"
)

func TestNormalizeTimeRelative(t *testing.T) {
	now := time.Date(2021, 5, 20, 12, 0, 0, 0, time.Local)

	for _, n := range []int{0, 1, 59, 60, 999} {
		raw := fmt.Sprintf("%d分钟前", n)
		got, ok := NormalizeTime(raw, now)
		if !ok {
			t.Fatalf("NormalizeTime(%q) not ok", raw)
		}
		want := now.Add(-time.Duration(n) * time.Minute)
		if !got.Equal(want) {
			t.Fatalf("NormalizeTime(%q) = %v, want %v", raw, got, want)
		}
	}
	for _, n := range []int{0, 1, 59, 60, 999} {
		raw := fmt.Sprintf("%d小时前", n)
		got, ok := NormalizeTime(raw, now)
		if !ok {
			t.Fatalf("NormalizeTime(%q) not ok", raw)
		}
		want := now.Add(-time.Duration(n) * time.Hour)
		if !got.Equal(want) {
			t.Fatalf("NormalizeTime(%q) = %v, want %v", raw, got, want)
		}
	}

	if got, ok := NormalizeTime("30秒前", now); !ok || !got.Equal(now.Add(-30*time.Second)) {
		t.Fatalf("NormalizeTime(30秒前) = %v ok=%v", got, ok)
	}
	if got, ok := NormalizeTime("刚刚", now); !ok || !got.Equal(now) {
		t.Fatalf("NormalizeTime(刚刚) = %v ok=%v", got, ok)
	}
}

func TestNormalizeTimeAbsolute(t *testing.T) {
	now := time.Date(2021, 5, 20, 12, 0, 0, 0, time.Local)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"今天 08:30", time.Date(2021, 5, 20, 8, 30, 0, 0, time.Local)},
		{"昨天 23:59", time.Date(2021, 5, 19, 23, 59, 0, 0, time.Local)},
		{"2020年03月31日 09:49", time.Date(2020, 3, 31, 9, 49, 0, 0, time.Local)},
		{"01月25日 06:49", time.Date(2021, 1, 25, 6, 49, 0, 0, time.Local)},
		{"01月25日06:49", time.Date(2021, 1, 25, 6, 49, 0, 0, time.Local)},
		{"2021-5-12 10:20:30", time.Date(2021, 5, 12, 10, 20, 30, 0, time.Local)},
		{"2021-05-12", time.Date(2021, 5, 12, 0, 0, 0, 0, time.Local)},
		{"05-12 10:20", time.Date(2021, 5, 12, 10, 20, 0, 0, time.Local)},
		{"1621162456", time.Unix(1621162456, 0)},
		{"1621162456000", time.UnixMilli(1621162456000)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeTime(tt.raw, now)
			if !ok {
				t.Fatalf("NormalizeTime(%q) not ok", tt.raw)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("NormalizeTime(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeTimeUnparseable(t *testing.T) {
	now := time.Date(2021, 5, 20, 12, 0, 0, 0, time.Local)

	for _, raw := range []string{"", "   ", "abc", "13月40日", "2021-13-01", "x分钟前", "今天"} {
		if got, ok := NormalizeTime(raw, now); ok {
			t.Fatalf("NormalizeTime(%q) = %v, want not ok", raw, got)
		}
	}
}

func TestFormatNormalized(t *testing.T) {
	ts := time.Date(2021, 5, 12, 10, 20, 0, 0, time.Local)
	if got := FormatNormalized(ts, true); got != "2021-05-12 10:20" {
		t.Fatalf("FormatNormalized = %q", got)
	}
	if got := FormatNormalized(time.Time{}, false); got != "" {
		t.Fatalf("FormatNormalized(not ok) = %q", got)
	}
}
