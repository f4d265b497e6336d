package task

import (
	"context"
	"fmt"
	"time"

	"weibo-insight-go/internal/analysis"
	"weibo-insight-go/internal/browser"
	"weibo-insight-go/internal/cache"
	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/crawler"
	"weibo-insight-go/internal/logger"
	"weibo-insight-go/internal/store"
	"weibo-insight-go/internal/weibo"
)

// Step labels reported through the task status.
const (
	StepFetchSource    = "fetch_source"
	StepCollectReposts = "collect_reposts"
	StepAnalyze        = "analyze"
	StepPersist        = "persist_analysis"
)

// NodeDoc is the persisted key-node document: the ranked spreaders plus
// the most-liked repost comments, saved together because the report page
// renders them side by side.
type NodeDoc struct {
	KeyNodes   []analysis.KeyNode    `json:"key_nodes"`
	HotReposts []analysis.HotComment `json:"hot_reposts"`
}

// Pipeline holds the pieces a task run needs. One Pipeline serves all
// tasks; per-task state lives in the Handle.
type Pipeline struct {
	Client  *weibo.Client
	Browser *browser.Fetcher
}

// NewPipeline wires the client with the configured cache and, when
// enabled, a browser for rendered-page fallback.
func NewPipeline() *Pipeline {
	client := weibo.NewClient().
		WithCache(cache.NewFromConfig(config.AppConfig), cache.DefaultTTL(config.AppConfig))
	p := &Pipeline{Client: client}
	if browser.Enabled() {
		f, err := browser.NewFetcher()
		if err != nil {
			logger.Warn("browser fetch disabled", "err", err)
		} else {
			p.Browser = f
		}
	}
	return p
}

// Run executes the full repost pipeline for one post: fetch the source
// post, walk its repost pages, then derive and persist the propagation
// analysis. It is the Manager's RunFunc.
func (p *Pipeline) Run(h *Handle, weiboID string) error {
	ctx := h.Context()
	taskID := h.TaskID()
	weiboID, err := weibo.EnsureBase62ID(weiboID)
	if err != nil {
		return err
	}
	now := time.Now()

	h.SetStep(StepFetchSource)
	source := p.fetchSource(ctx, weiboID, taskID, now)

	h.SetStep(StepCollectReposts)
	collector := &weibo.Collector{
		Fetch: &repostFetcher{client: p.Client, browser: p.Browser},
		Persist: func(ctx context.Context, records []weibo.RepostRecord) error {
			return store.InsertReposts(records)
		},
		Progress: h.SetProgress,
		Opts:     collectOptionsFromConfig(),
	}
	pc := weibo.PageContext{TaskID: taskID, TopicTaskID: h.TopicTaskID(), SourcePostID: weiboID}
	result, err := collector.Collect(ctx, pc)
	if err != nil {
		return err
	}
	logger.Info("repost collection finished",
		"task_id", taskID, "pages", result.Pages, "records", result.Records, "reason", result.Reason)
	if reason, ferr := collectionFailure(result); ferr != nil {
		h.SetReason(reason)
		return ferr
	}

	h.SetStep(StepAnalyze)
	records, err := store.FindReposts(taskID)
	if err != nil {
		return err
	}
	root := analysis.BuildTree([]analysis.Source{source}, records)
	analysis.ComputeSubtreeCounts(root)
	nodeDoc := NodeDoc{
		KeyNodes:   analysis.KeyNodes(root),
		HotReposts: analysis.HotComments(records, config.AppConfig.AnalysisMaxHotReposts),
	}
	trend, err := store.Tendency(taskID)
	if err != nil {
		return err
	}
	texts := make([]string, 0, len(records))
	for _, r := range records {
		if r.ChainIndex == 0 {
			texts = append(texts, r.Content)
		}
	}
	words := analysis.WordFrequencies(texts, 100, 1)

	h.SetStep(StepPersist)
	if err := store.SaveTree(taskID, root); err != nil {
		return err
	}
	if err := store.SaveKeyNodes(taskID, nodeDoc); err != nil {
		return err
	}
	if err := store.SaveTendency(taskID, trend); err != nil {
		return err
	}
	return store.SaveWordCloud(taskID, words)
}

// fetchSource resolves the root post. The PC detail endpoint survives
// without a mobile cookie so it goes first; when both endpoints fail the
// tree still gets a root carrying just the post id.
func (p *Pipeline) fetchSource(ctx context.Context, weiboID, taskID string, now time.Time) analysis.Source {
	for _, pcFirst := range []bool{true, false} {
		body, err := p.Client.StatusDetail(ctx, weiboID, pcFirst)
		if err != nil {
			logger.Warn("status detail fetch failed", "weibo_id", weiboID, "pc", pcFirst, "err", err)
			continue
		}
		post, err := weibo.ParseStatusDetail(body, taskID, now)
		if err != nil {
			logger.Warn("status detail unreadable", "weibo_id", weiboID, "pc", pcFirst, "err", err)
			continue
		}
		if err := store.SaveBlogPosts([]weibo.Post{post}); err != nil {
			logger.Warn("save source post failed", "weibo_id", weiboID, "err", err)
		}
		return analysis.Source{
			ID:         post.ID,
			AuthorName: post.AuthorName,
			AuthorID:   post.AuthorID,
			Content:    post.Text,
		}
	}
	return analysis.Source{ID: weiboID}
}

// repostFetcher is the client with a browser escape hatch: a captcha or
// login wall on the plain HTTP path is retried once through a real
// rendered session.
type repostFetcher struct {
	client  weibo.RepostFetcher
	browser *browser.Fetcher
}

func (f *repostFetcher) FetchRepostPage(ctx context.Context, weiboID string, page int) (string, error) {
	body, err := f.client.FetchRepostPage(ctx, weiboID, page)
	if err == nil || f.browser == nil || crawler.KindOf(err) != crawler.ErrorKindRiskHint {
		return body, err
	}
	url := fmt.Sprintf("%s/repost/%s?page=%d", config.AppConfig.BaseDomain, weiboID, page)
	rendered, rerr := f.browser.FetchRendered(url)
	if rerr != nil {
		logger.Warn("browser fallback failed", "url", url, "err", rerr)
		return "", err
	}
	logger.Info("browser fallback served page", "weibo_id", weiboID, "page", page)
	return rendered, nil
}

// collectionFailure decides whether a finished walk counts as a failed
// task. A walk stopped by the failure-streak rule, or one that produced
// no records at all, must not reach analysis: every document it would
// write is empty. The reason carries the dominant failure kind so the
// status names what actually broke, e.g. "failure_streak:upstream".
func collectionFailure(result weibo.CollectResult) (string, error) {
	if result.Reason != "failure_streak" && result.Records > 0 {
		return "", nil
	}
	reason := result.Reason
	kind := result.DominantFailureKind()
	if kind != "" {
		reason += ":" + kind
	}
	errKind := crawler.ErrorKind(kind)
	if errKind == "" {
		errKind = crawler.ErrorKindUnknown
	}
	return reason, crawler.Error{
		Kind:     errKind,
		Platform: "weibo",
		Msg:      fmt.Sprintf("repost collection ended without data: pages=%d records=%d reason=%s", result.Pages, result.Records, result.Reason),
	}
}

func collectOptionsFromConfig() weibo.CollectOptions {
	cfg := config.AppConfig
	return weibo.CollectOptions{
		MaxPages:           cfg.RepostMaxPages,
		FailureStreakLimit: cfg.FailureStreakLimit,
		EmptyStreakLimit:   cfg.EmptyStreakLimit,
		BatchPages:         cfg.PersistBatchPages,
		DelayMin:           time.Duration(cfg.DelayMinMs) * time.Millisecond,
		DelayMax:           time.Duration(cfg.DelayMaxMs) * time.Millisecond,
	}
}

// RunTopicCrawl searches every configured keyword and queues a repost task
// for each hot post found. It blocks until all searches are done; the
// queued repost tasks keep running in the background.
func (p *Pipeline) RunTopicCrawl(ctx context.Context, mgr *Manager) error {
	cfg := config.AppConfig
	opts := weibo.TopicOptions{
		MaxPages:           cfg.SearchMaxPages,
		FailureStreakLimit: cfg.FailureStreakLimit,
		EmptyStreakLimit:   cfg.EmptyStreakLimit,
		HotPosts:           cfg.HotPostsPerTask,
	}
	var lastErr error
	for _, tag := range config.GetKeywords() {
		topicTaskID := NewTaskID(tag)
		res, err := weibo.CollectTopicPosts(ctx, p.Client, tag, topicTaskID, opts)
		if err != nil {
			logger.Warn("topic crawl stopped", "tag", tag, "reason", res.Reason, "err", err)
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err := store.SaveBlogPosts(res.Posts); err != nil {
			logger.Warn("save topic posts failed", "tag", tag, "err", err)
		}
		logger.Info("topic crawl finished",
			"tag", tag, "posts", len(res.Posts), "hot", len(res.HotPosts), "reason", res.Reason)
		for _, post := range res.HotPosts {
			if _, err := mgr.Start(post.ID, topicTaskID); err != nil {
				logger.Warn("queue repost task failed", "weibo_id", post.ID, "err", err)
			}
		}
	}
	return lastErr
}

// Close releases the pipeline's browser, if any.
func (p *Pipeline) Close() {
	if p.Browser != nil {
		p.Browser.Close()
	}
}
