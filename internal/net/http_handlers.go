package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"shellstorm/server"
)

type HTTPHandlerConfig struct {
	Logger *log.Logger
}

// NewHTTPHandler wires the hub's public surface: join, websocket intake,
// and diagnostics.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		resp := hub.Join()
		data, err := json.Marshal(resp)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string                     `json:"status"`
			ServerTime int64                      `json:"serverTime"`
			Hub        server.DiagnosticsSnapshot `json:"hub"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Hub:        hub.Diagnostics(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := NewWSHandler(hub, WSHandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	return mux
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
