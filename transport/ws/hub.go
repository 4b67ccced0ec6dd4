// Package ws streams per-player snapshots to websocket clients and feeds
// their input back to the region.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nathoo/regioncore/engine/snapshot"
	"github.com/nathoo/regioncore/types"
)

const (
	writeWait   = 5 * time.Second
	readWait    = 60 * time.Second
	outboxDepth = 16
)

// Hub tracks one subscriber per joined player.
type Hub struct {
	// Compress sends snapshots as binary zstd frames instead of JSON text.
	Compress bool
	// JoinTimeout bounds how long a connection waits for the region to
	// accept a join.
	JoinTimeout time.Duration

	log      *log.Logger
	actions  chan types.RemoteAction
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[int64]*subscriber
}

type subscriber struct {
	id   int64
	conn *websocket.Conn
	out  chan frame
	done chan struct{}
	once sync.Once
}

type frame struct {
	kind int
	data []byte
}

// ClientMessage is what clients send.
type ClientMessage struct {
	Type  string `json:"type"`
	Input string `json:"input,omitempty"`
}

// ServerMessage is the envelope of text frames sent to clients.
type ServerMessage struct {
	Type     string               `json:"type"`
	ID       int64                `json:"id,omitempty"`
	Snapshot json.RawMessage      `json:"snapshot,omitempty"`
	Message  *types.RegionMessage `json:"message,omitempty"`
}

// NewHub creates a hub. Remote input is queued on Actions.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		JoinTimeout: 10 * time.Second,
		log:         logger,
		actions:     make(chan types.RemoteAction, 256),
		subs:        map[int64]*subscriber{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Actions is the queue of join requests and player input from clients.
func (h *Hub) Actions() <-chan types.RemoteAction {
	return h.actions
}

// Handler serves /ws?name=<player name>.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			http.Error(rw, "missing name", http.StatusBadRequest)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.logf("ws: upgrade failed for %s: %v", name, err)
			return
		}
		defer conn.Close()

		id := h.join(name)
		if id == 0 {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "join refused")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}

		sub := &subscriber{id: id, conn: conn, out: make(chan frame, outboxDepth), done: make(chan struct{})}
		h.subscribe(sub)
		defer h.unsubscribe(sub)

		welcome, _ := json.Marshal(ServerMessage{Type: "welcome", ID: id})
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
			return
		}
		go sub.writeLoop()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg ClientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				h.logf("ws: discarding malformed message from #%d: %v", id, err)
				continue
			}
			switch msg.Type {
			case "input":
				h.queue(types.RemoteAction{Player: id, Input: msg.Input})
			case "heartbeat":
			default:
				h.logf("ws: unknown message type %q from #%d", msg.Type, id)
			}
		}
	}
}

// join asks the region for a player and waits for its id.
func (h *Hub) join(name string) int64 {
	reply := make(chan int64, 1)
	if !h.queue(types.RemoteAction{Join: name, Reply: reply}) {
		return 0
	}
	select {
	case id := <-reply:
		return id
	case <-time.After(h.JoinTimeout):
		h.logf("ws: join of %s timed out", name)
		return 0
	}
}

func (h *Hub) queue(ra types.RemoteAction) bool {
	select {
	case h.actions <- ra:
		return true
	default:
		h.logf("ws: action queue full, dropped input")
		return false
	}
}

func (h *Hub) subscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.subs[sub.id]; ok {
		existing.close()
	}
	h.subs[sub.id] = sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if h.subs[sub.id] == sub {
		delete(h.subs, sub.id)
	}
	h.mu.Unlock()
	sub.close()
}

// Len returns the number of connected players.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// PublishTick sends each subscriber its own snapshot.
func (h *Hub) PublishTick(snapshots map[int64][]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		data, ok := snapshots[id]
		if !ok {
			continue
		}
		f, err := h.snapshotFrame(data)
		if err != nil {
			h.logf("ws: snapshot for #%d: %v", id, err)
			continue
		}
		sub.send(f)
	}
}

func (h *Hub) snapshotFrame(data []byte) (frame, error) {
	if h.Compress {
		z, err := snapshot.Compress(data)
		if err != nil {
			return frame{}, err
		}
		return frame{kind: websocket.BinaryMessage, data: z}, nil
	}
	b, err := json.Marshal(ServerMessage{Type: "snapshot", Snapshot: data})
	if err != nil {
		return frame{}, err
	}
	return frame{kind: websocket.TextMessage, data: b}, nil
}

// PublishMessage forwards region messages. Messages with a receiver go to
// that player only.
func (h *Hub) PublishMessage(msg types.RegionMessage) {
	b, err := json.Marshal(ServerMessage{Type: "region", Message: &msg})
	if err != nil {
		h.logf("ws: failed to marshal %s message: %v", msg.Kind, err)
		return
	}
	f := frame{kind: websocket.TextMessage, data: b}

	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Receiver != 0 {
		if sub, ok := h.subs[msg.Receiver]; ok {
			sub.send(f)
		}
		return
	}
	for _, sub := range h.subs {
		sub.send(f)
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.log != nil {
		h.log.Printf(format, args...)
	}
}

// send never blocks; a slow client loses frames.
func (s *subscriber) send(f frame) {
	select {
	case <-s.done:
	case s.out <- f:
	default:
	}
}

func (s *subscriber) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case f := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(f.kind, f.data); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
