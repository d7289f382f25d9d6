package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/cache"
	"github.com/hellasmmo/server/game/party"
	"github.com/hellasmmo/server/game/war"
	mw "github.com/hellasmmo/server/middleware"
	"go.uber.org/zap"
)

// Cities resolves a player's city.
type Cities interface {
	CityOf(player string) (string, bool)
}

// Handler streams war and group notices to the players they concern.
type Handler struct {
	pubsub    cache.PubSub
	sessions  cache.Cache
	cities    Cities
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, sessions cache.Cache, cities Cities, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, sessions: sessions, cities: cities, keepalive: 30 * time.Second, logger: logger}
}

// ServeSSE handles GET /sse?token=<session token>.
func (h *Handler) ServeSSE(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	player, err := h.sessions.Get(ctx, mw.SessionKey(token))
	cancel()
	if err != nil || player == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, war.ChannelWar, party.ChannelGroup)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"player\":%q}\n\n", player)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	f := &filter{player: player, cities: h.cities}
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			if !f.relevant(msg) {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Channel, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// filter decides which notices one player's stream carries.
type filter struct {
	player string
	cities Cities
	group  int64 // last group seen containing the player
}

func (f *filter) relevant(msg *cache.Message) bool {
	switch msg.Channel {
	case war.ChannelWar:
		var n war.Notice
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			return false
		}
		return f.involves(n.From) || f.involves(n.To)
	case party.ChannelGroup:
		var u party.Update
		if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
			return false
		}
		if slices.Contains(u.Members, f.player) {
			f.group = u.GroupID
			return true
		}
		if u.GroupID == f.group && f.group != 0 {
			// The player just left or the group broke up.
			f.group = 0
			return true
		}
	}
	return false
}

func (f *filter) involves(b war.Belligerent) bool {
	if b.Kind == war.Player {
		return b.Name == f.player
	}
	if f.cities == nil {
		return false
	}
	city, ok := f.cities.CityOf(f.player)
	return ok && city == b.Name
}
