package analysis

import (
	"sort"

	"weibo-insight-go/internal/weibo"
)

// TrendPoint is one day's repost volume.
type TrendPoint struct {
	Key      string `json:"key" bson:"key"`
	DocCount int    `json:"doc_count" bson:"doc_count"`
}

// SpreadTendency counts records per day from the first 10 bytes of the
// normalized created_at string, sorted by day ascending. Records whose
// time stayed unknown have no day to land on and are skipped. This is the
// in-memory twin of the document store's group-by-day aggregation.
func SpreadTendency(records []weibo.RepostRecord) []TrendPoint {
	byDay := make(map[string]int)
	for _, rec := range records {
		if len(rec.CreatedAt) < 10 {
			continue
		}
		byDay[rec.CreatedAt[:10]]++
	}
	out := make([]TrendPoint, 0, len(byDay))
	for day, count := range byDay {
		out = append(out, TrendPoint{Key: day, DocCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
