package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	defaultSubscriberBuffer = 32
	writeTimeout            = 5 * time.Second
)

type subscriber struct {
	zoneID string
	ch     chan []byte
}

// Hub fans phase changes out to websocket subscribers, optionally filtered
// by zone. Slow subscribers lose messages instead of blocking the hub.
type Hub struct {
	Logger     *zap.Logger
	BufferSize int

	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	dropped uint64
}

func NewHub(logger *zap.Logger, bufferSize int) *Hub {
	return &Hub{Logger: logger, BufferSize: bufferSize, subs: map[*subscriber]struct{}{}}
}

// Subscribe registers a subscriber for zoneID ("" receives every zone).
func (h *Hub) Subscribe(zoneID string) (<-chan []byte, func()) {
	buf := h.BufferSize
	if buf <= 0 {
		buf = defaultSubscriberBuffer
	}
	sub := &subscriber{zoneID: zoneID, ch: make(chan []byte, buf)}
	h.mu.Lock()
	if h.subs == nil {
		h.subs = map[*subscriber]struct{}{}
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(_ context.Context, evt PhaseChanged) error {
	if h == nil {
		return nil
	}
	payload, err := evt.Payload()
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.zoneID != "" && sub.zoneID != evt.ZoneID {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
	return nil
}

func (h *Hub) Clients() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// ServeWS upgrades the request and streams phase changes until the client
// goes away. The optional zone_id query parameter filters by zone.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.logger().Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	zoneID := c.Query("zone_id")
	ch, unsubscribe := h.Subscribe(zoneID)
	defer unsubscribe()

	ctx := conn.CloseRead(c.Request.Context())
	h.logger().Debug("websocket client connected", zap.String("zone_id", zoneID))
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger().Debug("websocket write failed", zap.String("zone_id", zoneID), zap.Error(err))
				return
			}
		}
	}
}

// Register mounts the websocket endpoint.
func (h *Hub) Register(r *gin.Engine) {
	if h == nil || r == nil {
		return
	}
	r.GET("/ws", h.ServeWS)
}

func (h *Hub) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
