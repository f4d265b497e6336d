package logger

import (
	"io"
	"log/slog"
	"testing"
)

func TestRingWindow(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.add(i)
	}
	got := r.recent(0)
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("recent(0) = %v", got)
	}
	got = r.recent(2)
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("recent(2) = %v", got)
	}
}

func TestRingRecentMatching(t *testing.T) {
	r := newRing[Event](10)
	for i := 0; i < 6; i++ {
		id := "noise"
		if i%2 == 0 {
			id = "17_K7okwxcKa"
		}
		r.add(Event{TaskID: id, Msg: "page fetched"})
	}
	got := r.recentMatching(2, func(e Event) bool { return e.TaskID == "17_K7okwxcKa" })
	if len(got) != 2 {
		t.Fatalf("matched %d events, want 2", len(got))
	}
	for _, e := range got {
		if e.TaskID != "17_K7okwxcKa" {
			t.Fatalf("filter leaked: %+v", e)
		}
	}
}

func TestFeedTaskFilter(t *testing.T) {
	f := newFeed()
	all, cancelAll := f.attach("", 4)
	scoped, cancelScoped := f.attach("17_K7okwxcKa", 4)
	defer cancelAll()

	f.publish(Event{TaskID: "17_K7okwxcKa", Msg: "repost page ok"})
	f.publish(Event{TaskID: "18_other", Msg: "repost page ok"})

	if n := len(all.ch); n != 2 {
		t.Fatalf("unscoped subscriber saw %d events, want 2", n)
	}
	if n := len(scoped.ch); n != 1 {
		t.Fatalf("scoped subscriber saw %d events, want 1", n)
	}
	if evt := <-scoped.ch; evt.TaskID != "17_K7okwxcKa" {
		t.Fatalf("scoped event: %+v", evt)
	}

	cancelScoped()
	if _, open := <-scoped.ch; open {
		t.Fatal("cancel should close the subscriber channel")
	}
}

func TestBroadcastHandlerPromotesTaskID(t *testing.T) {
	log := slog.New(NewBroadcastHandler(slog.NewJSONHandler(io.Discard, nil)))

	ch, cancel := SubscribeTask("99_promoted")
	defer cancel()

	log.Info("repost page fetched", "task_id", "99_promoted", "page", 3)
	log.Info("repost page fetched", "task_id", "99_unrelated", "page", 1)

	evt := <-ch
	if evt.TaskID != "99_promoted" {
		t.Fatalf("task id not promoted: %+v", evt)
	}
	if _, dup := evt.Attrs["task_id"]; dup {
		t.Fatalf("task id duplicated into attrs: %+v", evt.Attrs)
	}
	if evt.Attrs["page"] != int64(3) {
		t.Fatalf("attrs lost: %+v", evt.Attrs)
	}
	if n := len(ch); n != 0 {
		t.Fatalf("unrelated task leaked into scoped stream, %d pending", n)
	}

	hist := RecentForTask("99_promoted", 10)
	if len(hist) == 0 || hist[len(hist)-1].Msg != "repost page fetched" {
		t.Fatalf("history missing promoted event: %+v", hist)
	}
}
