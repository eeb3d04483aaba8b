package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ServeSSE streams hub messages to one HTTP client as server-sent events.
// `?machine=` scopes the subscription to that machine's group. Blocks
// until the client disconnects or the hub closes the subscriber.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.Subscribe(r.URL.Query().Get("machine"))
	defer h.Unsubscribe(sub.ID)

	// Tell the client the stream is live before the first sample lands.
	fmt.Fprintf(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-sub.C:
			if !open {
				return
			}
			if err := writeSSE(w, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, msg Message) error {
	if msg.Type == MessageReading && msg.Reading != nil {
		if _, err := fmt.Fprintf(w, "id: %d\n", msg.Reading.ID); err != nil {
			return err
		}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)
	return err
}
