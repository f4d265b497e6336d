package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"weibo-insight-go/internal/api"
	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/logger"
	"weibo-insight-go/internal/store"
	"weibo-insight-go/internal/task"
	"weibo-insight-go/internal/weibo"
)

func main() {
	configPath := flag.String("config", ".", "path to config file")
	apiMode := flag.Bool("api", false, "start api server")
	apiAddr := flag.String("addr", ":8080", "api server address")
	weiboID := flag.String("weibo-id", "", "collect reposts for one post instead of crawling topics")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitFromConfig()

	if err := store.Init(context.Background()); err != nil {
		logger.Error("store init failed", "backend", config.AppConfig.StoreBackend, "err", err)
		os.Exit(1)
	}

	pipeline := task.NewPipeline()
	defer pipeline.Close()
	mgr := task.NewManager(pipeline.Run)

	if *apiMode {
		srv := api.NewServer(mgr, pipeline)
		logger.Info("starting api server", "addr", *apiAddr)
		if err := http.ListenAndServe(*apiAddr, srv.Handler()); err != nil {
			logger.Error("api server failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if id := strings.TrimSpace(*weiboID); id != "" {
		runSingle(mgr, id)
		return
	}

	logger.Info("starting topic crawl", "keywords", config.AppConfig.Keywords)
	if err := pipeline.RunTopicCrawl(context.Background(), mgr); err != nil {
		logger.Error("topic crawl failed", "err", err)
		os.Exit(1)
	}
	waitAll(mgr)
}

func runSingle(mgr *task.Manager, weiboID string) {
	id, err := weibo.EnsureBase62ID(weiboID)
	if err != nil {
		logger.Error("invalid weibo id", "weibo_id", weiboID, "err", err)
		os.Exit(1)
	}
	taskID, err := mgr.Start(id, "")
	if err != nil {
		logger.Error("task start failed", "weibo_id", weiboID, "err", err)
		os.Exit(1)
	}
	logger.Info("repost task started", "task_id", taskID)
	waitAll(mgr)

	st, _ := mgr.Get(taskID)
	if st.State != task.StateSuccess {
		logger.Error("task did not succeed", "task_id", taskID, "state", st.State, "err", st.LastError)
		os.Exit(1)
	}
	logger.Info("task finished", "task_id", taskID, "pages", st.Current, "total", st.Total)
}

// waitAll blocks until no task is pending or in progress.
func waitAll(mgr *task.Manager) {
	for {
		busy := false
		for _, st := range mgr.List() {
			if st.State == task.StatePending || st.State == task.StateProgress {
				busy = true
				break
			}
		}
		if !busy {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}
