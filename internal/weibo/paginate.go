package weibo

import (
	"context"
	"time"

	"weibo-insight-go/internal/crawler"
	"weibo-insight-go/internal/logger"
)

// RepostFetcher hands back the raw body of one repost page.
type RepostFetcher interface {
	FetchRepostPage(ctx context.Context, weiboID string, page int) (string, error)
}

// PersistFunc receives each batch of collected records.
type PersistFunc func(ctx context.Context, records []RepostRecord) error

// ProgressFunc observes the walk after every page; total is 0 until the
// page carries its pagination marker.
type ProgressFunc func(current, total int)

// CollectOptions tunes one repost collection walk.
type CollectOptions struct {
	MaxPages           int
	FailureStreakLimit int
	EmptyStreakLimit   int
	BatchPages         int
	DelayMin           time.Duration
	DelayMax           time.Duration
}

func (o CollectOptions) withDefaults() CollectOptions {
	if o.MaxPages <= 0 {
		o.MaxPages = 300
	}
	if o.FailureStreakLimit <= 0 {
		o.FailureStreakLimit = 5
	}
	if o.EmptyStreakLimit <= 0 {
		o.EmptyStreakLimit = 3
	}
	if o.BatchPages <= 0 {
		o.BatchPages = 10
	}
	return o
}

// pageState is the loop variable of the crawl: every iteration derives the
// next state from the previous one instead of mutating shared counters, so
// the termination rules are testable on their own.
type pageState struct {
	page        int
	total       int
	failStreak  int
	emptyStreak int
}

// next classifies one page outcome. gotRecords resets both streaks; an
// empty page bumps both, a failed one only the failure streak.
func (s pageState) next(gotRecords, empty bool, total int) pageState {
	out := s
	out.page = s.page + 1
	if total > 0 && out.total == 0 {
		out.total = total
	}
	switch {
	case gotRecords:
		out.failStreak = 0
		out.emptyStreak = 0
	case empty:
		out.failStreak = s.failStreak + 1
		out.emptyStreak = s.emptyStreak + 1
	default:
		out.failStreak = s.failStreak + 1
	}
	return out
}

// done reports whether the walk should stop and why. First rule to
// trigger wins; the empty-streak rule goes first because every empty page
// also bumps the failure streak, and when both limits trip together the
// more specific reason is that the pages were empty.
func (s pageState) done(opts CollectOptions) (bool, string) {
	switch {
	case s.emptyStreak >= opts.EmptyStreakLimit:
		return true, "empty_streak"
	case s.failStreak >= opts.FailureStreakLimit:
		return true, "failure_streak"
	case s.total > 0 && s.page > s.total:
		return true, "total_pages"
	case s.page > opts.MaxPages:
		return true, "max_pages"
	default:
		return false, ""
	}
}

// CollectResult summarizes one finished walk.
type CollectResult struct {
	Pages        int
	Records      int
	TotalPages   int
	Reason       string
	FailureKinds map[string]int
}

// DominantFailureKind names the error kind that broke the most pages,
// or "" when every page went through. Ties break alphabetically so the
// answer is stable.
func (r CollectResult) DominantFailureKind() string {
	best, bestN := "", 0
	for kind, n := range r.FailureKinds {
		if n > bestN || (n == bestN && best != "" && kind < best) {
			best, bestN = kind, n
		}
	}
	return best
}

// Collector drives the page-by-page repost crawl for one source post.
// Pages are fetched strictly in sequence; the randomized delay between
// fetches is the per-task rate limit.
type Collector struct {
	Fetch    RepostFetcher
	Persist  PersistFunc
	Progress ProgressFunc
	Opts     CollectOptions
}

// Collect walks the repost pages of one post. Single-page failures are
// logged and skipped; the walk only aborts when a termination rule fires
// or the context is canceled. Records are persisted in page batches and
// once more at the end for the remainder.
func (c *Collector) Collect(ctx context.Context, pc PageContext) (CollectResult, error) {
	opts := c.Opts.withDefaults()
	res := CollectResult{FailureKinds: map[string]int{}}

	st := pageState{page: 1}

	var batch []RepostRecord
	pagesInBatch := 0

	flush := func() error {
		if len(batch) == 0 || c.Persist == nil {
			pagesInBatch = 0
			return nil
		}
		if err := c.Persist(ctx, batch); err != nil {
			return err
		}
		logger.Debug("persisted repost batch", "weibo_id", pc.SourcePostID, "records", len(batch))
		batch = nil
		pagesInBatch = 0
		return nil
	}

	for {
		if stop, reason := st.done(opts); stop {
			res.Reason = reason
			break
		}
		if st.page > 1 {
			if !crawler.RandomDelay(ctx, opts.DelayMin, opts.DelayMax) {
				res.Reason = "canceled"
				_ = flush()
				return res, ctx.Err()
			}
		}

		pageCtx := pc
		pageCtx.PageNumber = st.page

		body, err := c.Fetch.FetchRepostPage(ctx, pc.SourcePostID, st.page)
		if err != nil {
			if ctx.Err() != nil {
				res.Reason = "canceled"
				_ = flush()
				return res, ctx.Err()
			}
			kind := string(crawler.KindOf(err))
			res.FailureKinds[kind]++
			logger.Warn("repost page fetch failed",
				"weibo_id", pc.SourcePostID, "page", st.page, "kind", kind, "err", err)
			st = st.next(false, false, 0)
			res.Pages++
			c.report(st)
			continue
		}

		parsed, err := ParseRepostPage(body, pageCtx, time.Now())
		if err != nil {
			kind := string(crawler.KindOf(err))
			res.FailureKinds[kind]++
			logger.Warn("repost page rejected",
				"weibo_id", pc.SourcePostID, "page", st.page, "kind", kind, "err", err)
			st = st.next(false, false, parsed.TotalPages)
			res.Pages++
			c.report(st)
			continue
		}

		total := parsed.TotalPages
		if total > opts.MaxPages {
			total = opts.MaxPages
		}

		if len(parsed.Records) == 0 {
			st = st.next(false, true, total)
			res.Pages++
			c.report(st)
			continue
		}

		batch = append(batch, parsed.Records...)
		res.Records += len(parsed.Records)
		pagesInBatch++
		if pagesInBatch >= opts.BatchPages {
			if err := flush(); err != nil {
				res.Reason = "persist_failed"
				return res, err
			}
		}

		st = st.next(true, false, total)
		res.Pages++
		c.report(st)
	}

	if err := flush(); err != nil {
		res.Reason = "persist_failed"
		return res, err
	}
	res.TotalPages = st.total
	return res, nil
}

func (c *Collector) report(st pageState) {
	if c.Progress != nil {
		// st.page already points at the next page to fetch.
		c.Progress(st.page-1, st.total)
	}
}
