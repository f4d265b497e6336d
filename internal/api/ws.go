package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"weibo-insight-go/internal/logger"
)

// handleWSLogs streams log events as newline-terminated JSON. A task_id
// query narrows the stream to one task's records.
func (s *Server) handleWSLogs(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.URL.Query().Get("task_id"))
	websocket.Server{
		Handshake: func(cfg *websocket.Config, req *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			conn.PayloadType = websocket.TextFrame
			ch, cancel := logger.SubscribeTask(taskID)
			defer cancel()

			for evt := range ch {
				b, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				if err := websocket.Message.Send(conn, string(b)+"\n"); err != nil {
					return
				}
			}
		},
	}.ServeHTTP(w, r)
}

// handleWSStatus pushes one task's status on an interval until the client
// goes away. Progress bars on the report page hang off this.
func (s *Server) handleWSStatus(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.URL.Query().Get("task_id"))
	interval := time.Second
	if v := strings.TrimSpace(r.URL.Query().Get("interval_ms")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n < 100 {
				n = 100
			}
			if n > 5000 {
				n = 5000
			}
			interval = time.Duration(n) * time.Millisecond
		}
	}

	websocket.Server{
		Handshake: func(cfg *websocket.Config, req *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			conn.PayloadType = websocket.TextFrame

			send := func() bool {
				var payload any
				if taskID != "" {
					st, ok := s.manager.Get(taskID)
					if !ok {
						return false
					}
					payload = st
				} else {
					payload = map[string]any{"tasks": s.manager.List()}
				}
				b, err := json.Marshal(payload)
				if err != nil {
					return false
				}
				b = append(b, '\n')
				return websocket.Message.Send(conn, string(b)) == nil
			}

			if !send() {
				return
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for range ticker.C {
				if !send() {
					return
				}
			}
		},
	}.ServeHTTP(w, r)
}
