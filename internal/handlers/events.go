package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// heartbeatInterval keeps idle event streams open through proxies.
const heartbeatInterval = 25 * time.Second

// Events streams the user's change events as Server-Sent Events until the
// client disconnects.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		sendError(w, "Streaming unsupported", http.StatusInternalServerError, nil)
		return
	}

	uid := userID(r)
	ch, err := h.broker.Subscribe(r.Context(), uid)
	if err != nil {
		h.logger.Error("event subscription failed", "user_id", uid, "error", err)
		sendError(w, "Live updates unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}
