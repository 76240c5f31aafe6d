package web

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/test-input/internal/logic"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// Frame types sent over /ws.
const (
	FrameDeviceAdded   = "device_added"
	FrameDeviceRemoved = "device_removed"
	FrameAxis          = "axis"
	FrameButton        = "button"
)

// Frame is one event pushed to websocket subscribers.
type Frame struct {
	Type    string `json:"type"`
	Handle  string `json:"handle"`
	ID      int    `json:"id"`
	Value   int16  `json:"value"`
	Pressed bool   `json:"pressed"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans bus events out to websocket clients. It implements logic.Observer.
// Broadcasting never blocks: a subscriber whose queue is full misses frames.
type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	dropped     int
}

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and streams frames until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)

	// Clients never send anything meaningful; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(sub)
}

func (h *Hub) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for data := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(sub)
			return
		}
	}
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// remove drops sub and closes its queue. Safe to call more than once.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.send)
}

func (h *Hub) broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("ws marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- data:
		default:
			h.dropped++
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Dropped returns how many frames were discarded for slow subscribers.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.remove(sub)
	}
}

// ObserveDevice broadcasts a device added or removed frame.
func (h *Hub) ObserveDevice(handle logic.DeviceHandle, desc logic.DeviceDescriptor, added bool) {
	typ := FrameDeviceRemoved
	if added {
		typ = FrameDeviceAdded
	}
	h.broadcast(Frame{Type: typ, Handle: string(handle)})
}

// ObserveAxis broadcasts an axis frame.
func (h *Hub) ObserveAxis(handle logic.DeviceHandle, axis logic.Axis, value int16) {
	h.broadcast(Frame{Type: FrameAxis, Handle: string(handle), ID: int(axis), Value: value})
}

// ObserveButton broadcasts a button frame.
func (h *Hub) ObserveButton(handle logic.DeviceHandle, button logic.Button, pressed bool) {
	h.broadcast(Frame{Type: FrameButton, Handle: string(handle), ID: int(button), Pressed: pressed})
}
