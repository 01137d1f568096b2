// Package sse streams room events to browsers as server-sent events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miridle/server/cache"
	"github.com/kasuganosora/miridle/server/config"
	"github.com/kasuganosora/miridle/server/game/battle"
	mw "github.com/kasuganosora/miridle/server/middleware"
	"go.uber.org/zap"
)

const (
	announceChannel = "announce"
	keepalive       = 30 * time.Second
	publishTimeout  = 2 * time.Second
	publishBuffer   = 4096
)

// RoomChannel is the pub/sub channel carrying a room's events.
func RoomChannel(room string) string { return "room:" + room }

type outgoing struct {
	channel string
	payload string
}

// Publisher relays room events to pub/sub. Sink only enqueues, so a slow
// broker never stalls a tick; Run does the publishing.
type Publisher struct {
	pubsub cache.PubSub
	ch     chan outgoing
	logger *zap.Logger
}

// NewPublisher creates a Publisher. Call Run to start relaying.
func NewPublisher(pubsub cache.PubSub, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{pubsub: pubsub, ch: make(chan outgoing, publishBuffer), logger: logger}
}

// Sink enqueues a room event. Its signature matches world.Sink. Events are
// dropped with a warning when the buffer is full.
func (p *Publisher) Sink(room string, ev battle.Envelope) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("sse: unencodable event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	select {
	case p.ch <- outgoing{channel: RoomChannel(room), payload: string(data)}:
	default:
		p.logger.Warn("sse publish buffer full, dropping event",
			zap.String("room", room), zap.String("type", ev.Type))
	}
}

// Run publishes queued events until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-p.ch:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := p.pubsub.Publish(pctx, m.channel, m.payload); err != nil {
				p.logger.Warn("sse publish failed", zap.String("channel", m.channel), zap.Error(err))
			}
			cancel()
		}
	}
}

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub cache.PubSub
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, sec: sec, logger: logger}
}

func (h *Handler) originAllowed(origin string) bool {
	return origin == "" || len(h.sec.AllowedOrigins) == 0 || slices.Contains(h.sec.AllowedOrigins, origin)
}

// Stream handles GET /api/rooms/:name/stream.
// It relays the room's events plus system announcements.
func (h *Handler) Stream(c *gin.Context) {
	if !h.originAllowed(c.GetHeader("Origin")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}
	room := mw.Room(c)

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, RoomChannel(room), announceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("room", room), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	// Set SSE headers.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Send initial connected event.
	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"room\":%q}\n\n", room)
	c.Writer.Flush()

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventName(msg), msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func eventName(msg *cache.Message) string {
	if msg.Channel == announceChannel {
		return "announce"
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg.Payload), &head); err != nil || head.Type == "" {
		return "message"
	}
	return head.Type
}

// Announce publishes an announcement message to all SSE subscribers.
func (h *Handler) Announce(ctx context.Context, message string) error {
	return h.pubsub.Publish(ctx, announceChannel, message)
}
