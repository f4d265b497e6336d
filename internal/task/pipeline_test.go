package task

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/crawler"
	"weibo-insight-go/internal/store"
	"weibo-insight-go/internal/weibo"
)

type stubFetcher struct {
	body string
	err  error
}

func (f *stubFetcher) FetchRepostPage(ctx context.Context, weiboID string, page int) (string, error) {
	return f.body, f.err
}

func TestRepostFetcherPassesThrough(t *testing.T) {
	f := &repostFetcher{client: &stubFetcher{body: "page body"}}
	body, err := f.FetchRepostPage(context.Background(), "K7okwxcKa", 1)
	if err != nil || body != "page body" {
		t.Fatalf("body=%q err=%v", body, err)
	}
}

func TestRepostFetcherNoBrowserKeepsError(t *testing.T) {
	riskErr := crawler.NewRiskHintError("weibo", "https://m.weibo.cn/repost/x", "captcha")
	f := &repostFetcher{client: &stubFetcher{err: riskErr}}
	_, err := f.FetchRepostPage(context.Background(), "K7okwxcKa", 1)
	if crawler.KindOf(err) != crawler.ErrorKindRiskHint {
		t.Fatalf("kind = %s", crawler.KindOf(err))
	}
}

func TestCollectOptionsFromConfig(t *testing.T) {
	old := config.AppConfig
	defer func() { config.AppConfig = old }()

	config.AppConfig.RepostMaxPages = 50
	config.AppConfig.FailureStreakLimit = 2
	config.AppConfig.EmptyStreakLimit = 1
	config.AppConfig.PersistBatchPages = 4
	config.AppConfig.DelayMinMs = 100
	config.AppConfig.DelayMaxMs = 300

	opts := collectOptionsFromConfig()
	want := weibo.CollectOptions{
		MaxPages:           50,
		FailureStreakLimit: 2,
		EmptyStreakLimit:   1,
		BatchPages:         4,
		DelayMin:           100 * time.Millisecond,
		DelayMax:           300 * time.Millisecond,
	}
	if opts != want {
		t.Fatalf("opts = %+v, want %+v", opts, want)
	}
}

func TestCollectionFailure(t *testing.T) {
	tests := []struct {
		name       string
		result     weibo.CollectResult
		wantReason string
		wantKind   crawler.ErrorKind
		wantOK     bool
	}{
		{
			name: "failure streak",
			result: weibo.CollectResult{
				Pages:        5,
				Reason:       "failure_streak",
				FailureKinds: map[string]int{"upstream": 4, "transport": 1},
			},
			wantReason: "failure_streak:upstream",
			wantKind:   crawler.ErrorKindUpstream,
			wantOK:     true,
		},
		{
			name:       "no records at all",
			result:     weibo.CollectResult{Pages: 3, Reason: "empty_streak"},
			wantReason: "empty_streak",
			wantKind:   crawler.ErrorKindUnknown,
			wantOK:     true,
		},
		{
			name:   "records collected",
			result: weibo.CollectResult{Pages: 12, Records: 240, Reason: "total_pages"},
		},
		{
			name: "streak trips despite earlier records",
			result: weibo.CollectResult{
				Pages:        20,
				Records:      150,
				Reason:       "failure_streak",
				FailureKinds: map[string]int{"rate_limited": 5},
			},
			wantReason: "failure_streak:rate_limited",
			wantKind:   crawler.ErrorKindRateLimited,
			wantOK:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, err := collectionFailure(tt.result)
			if !tt.wantOK {
				if err != nil || reason != "" {
					t.Fatalf("want clean pass, got reason=%q err=%v", reason, err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tt.wantReason)
			}
			if crawler.KindOf(err) != tt.wantKind {
				t.Fatalf("kind = %s, want %s", crawler.KindOf(err), tt.wantKind)
			}
		})
	}
}

func TestPipelineFailureStreakFailsTask(t *testing.T) {
	store.ResetMemory()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	old := config.AppConfig
	defer func() { config.AppConfig = old }()
	config.AppConfig.BaseDomain = srv.URL
	config.AppConfig.SearchAPIBase = srv.URL
	config.AppConfig.HttpRetryCount = 1
	config.AppConfig.HttpRetryBaseDelayMs = 1
	config.AppConfig.HttpRetryMaxDelayMs = 2
	config.AppConfig.FailureStreakLimit = 2
	config.AppConfig.EmptyStreakLimit = 2
	config.AppConfig.RepostMaxPages = 5
	config.AppConfig.DelayMinMs = 1
	config.AppConfig.DelayMaxMs = 1
	config.AppConfig.CacheBackend = "none"
	config.AppConfig.EnableBrowserFetch = false

	p := NewPipeline()
	defer p.Close()
	m := NewManager(p.Run)

	taskID, err := m.Start("K7okwxcKa", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := waitForState(t, m, taskID, StateFailure)
	if !strings.HasPrefix(st.Reason, "failure_streak") {
		t.Fatalf("reason = %q, want failure_streak prefix", st.Reason)
	}
	if st.LastError == "" {
		t.Fatalf("last error missing: %+v", st)
	}
	// A crawl that produced nothing must not leave analysis documents.
	if _, ok, _ := store.LoadTree(taskID); ok {
		t.Fatal("tree document written for a failed crawl")
	}
	if _, ok, _ := store.LoadKeyNodes(taskID); ok {
		t.Fatal("key-node document written for a failed crawl")
	}
}
