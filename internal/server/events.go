package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ginjaninja78/report-consolidator/internal/logging"
	"github.com/ginjaninja78/report-consolidator/internal/reportstore"
)

// PingInterval is how often idle event streams receive a keep-alive comment.
var PingInterval = 30 * time.Second

// clientBuffer is the number of undelivered events a slow client may lag.
const clientBuffer = 16

// Broadcaster fans store events out to Server-Sent Events clients.
type Broadcaster struct {
	logger logging.Logger

	mu      sync.Mutex
	clients map[chan reportstore.Event]struct{}
	closed  bool
	done    chan struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger logging.Logger) *Broadcaster {
	return &Broadcaster{
		logger:  logger,
		clients: make(map[chan reportstore.Event]struct{}),
		done:    make(chan struct{}),
	}
}

// Publish queues e for every connected client. Clients whose buffer is
// full miss the event.
func (b *Broadcaster) Publish(e reportstore.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event stream client is lagging, dropped %s", e.Type)
		}
	}
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}

func (b *Broadcaster) add() (chan reportstore.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	ch := make(chan reportstore.Event, clientBuffer)
	b.clients[ch] = struct{}{}
	return ch, true
}

func (b *Broadcaster) remove(ch chan reportstore.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, ch)
}

// ServeHTTP streams events as "event: <type>\ndata: <json>\n\n" frames.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, ok := b.add()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	defer b.remove(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ping := time.NewTicker(PingInterval)
	defer ping.Stop()

	for {
		select {
		case e := <-ch:
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				return
			}
			flusher.Flush()
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-b.done:
			return
		}
	}
}
