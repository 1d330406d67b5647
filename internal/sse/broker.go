// Package sse pushes chart change notifications to browsers over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeChartCreated  = "chart.created"
	TypeChartUpdated  = "chart.updated"
	TypeChartDeleted  = "chart.deleted"
	TypeChartsUpdated = "charts.updated"
)

const (
	clientBuffer     = 64
	defaultKeepAlive = 25 * time.Second
)

// Event is one broadcast message. Unfiltered clients receive every event;
// clients following a chart receive only events whose ChartID matches.
type Event struct {
	Type    string `json:"type"`
	ChartID string `json:"-"`
	Data    any    `json:"data"`
}

// Client is one subscriber. Messages arrive on C already framed for the wire.
type Client struct {
	C       chan []byte
	chartID string
}

type chartEvent struct {
	kind string
	path string
	id   string
}

// Broker fans events out to connected SSE clients.
//
// A single loop goroutine owns the client set, the event sequence and the
// list-refresh throttle. Public methods talk to it over channels.
type Broker struct {
	listMin   time.Duration
	keepAlive time.Duration

	subscribeCh   chan *Client
	unsubscribeCh chan *Client
	publishCh     chan Event
	chartEventCh  chan chartEvent
	countReqCh    chan chan int

	dropped atomic.Int64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that emits charts.updated at most once per
// listThrottle.
func NewBroker(listThrottle time.Duration) *Broker {
	if listThrottle <= 0 {
		listThrottle = 2 * time.Second
	}
	b := &Broker{
		listMin:       listThrottle,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan *Client),
		unsubscribeCh: make(chan *Client),
		publishCh:     make(chan Event, 256),
		chartEventCh:  make(chan chartEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[*Client]struct{})
	var (
		seq      uint64
		lastList time.Time
	)

	send := func(ev Event) {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		seq++
		frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, payload))
		for c := range clients {
			if c.chartID != "" && c.chartID != ev.ChartID {
				continue
			}
			select {
			case c.C <- frame:
			default:
				b.dropped.Add(1)
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for c := range clients {
				close(c.C)
			}
			return

		case c := <-b.subscribeCh:
			clients[c] = struct{}{}

		case c := <-b.unsubscribeCh:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.C)
			}

		case ev := <-b.publishCh:
			send(ev)

		case ce := <-b.chartEventCh:
			typ, ok := eventType(ce.kind)
			if !ok {
				continue
			}
			data := map[string]string{"path": ce.path}
			if ce.id != "" {
				data["id"] = ce.id
			}
			send(Event{Type: typ, ChartID: ce.id, Data: data})

			if now := time.Now(); now.Sub(lastList) >= b.listMin {
				lastList = now
				send(Event{Type: TypeChartsUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func eventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeChartCreated, true
	case "updated":
		return TypeChartUpdated, true
	case "deleted":
		return TypeChartDeleted, true
	}
	return "", false
}

// Close stops the loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. A non-empty chartID limits it to events about
// that chart; list refreshes are not delivered to such clients.
func (b *Broker) Subscribe(chartID string) *Client {
	c := &Client{C: make(chan []byte, clientBuffer), chartID: chartID}
	if b.closed.Load() {
		close(c.C)
		return c
	}
	select {
	case b.subscribeCh <- c:
	case <-b.stopped:
		close(c.C)
	}
	return c
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(c *Client) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- c:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Dropped returns how many frames were discarded because a client's buffer
// was full.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

// Publish sends an event to every matching client.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishChartEvent broadcasts a chart change (kind is created, updated or
// deleted) followed by a throttled charts.updated. id may be empty when the
// chart could not be identified; such events reach unfiltered clients only.
func (b *Broker) PublishChartEvent(kind, path, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.chartEventCh <- chartEvent{kind: kind, path: path, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// ?chart=<id> query narrows the stream to one chart. Idle connections get a
// comment line every keep-alive interval so proxies keep them open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := b.Subscribe(r.URL.Query().Get("chart"))
	defer b.Unsubscribe(c)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-c.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
