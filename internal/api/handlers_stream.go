package api

import (
	"net/http"
	"time"

	respond "github.com/intraylabs/intray/internal/api/respond"
	"github.com/intraylabs/intray/internal/auth"
	"github.com/intraylabs/intray/internal/stream"
)

// defaultPingInterval keeps idle SSE connections alive through proxies.
const defaultPingInterval = 15 * time.Second

// StreamHandler serves the per-user lifecycle event stream.
type StreamHandler struct {
	broker *stream.Broker
	ping   time.Duration
}

func NewStreamHandler(b *stream.Broker, ping time.Duration) *StreamHandler {
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return &StreamHandler{broker: b, ping: ping}
}

// Stream GET /v0/records/stream
// Holds the connection open and relays broker frames until the client goes
// away. The first frame is always "connected".
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	if h.broker == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteInternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Stop reverse proxies from buffering the stream.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.broker.Subscribe(userID)
	defer h.broker.Unsubscribe(sub)

	hello, _ := stream.Frame(stream.EventConnected, struct{}{})
	if _, err := w.Write(hello); err != nil {
		return
	}
	flusher.Flush()

	ping, _ := stream.Frame(stream.EventPing, struct{}{})
	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-sub.Events():
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := w.Write(ping); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
