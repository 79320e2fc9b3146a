package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/event"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub streams domain events (commits, merges, registry changes) to connected
// clients. A client may narrow its feed with ?channels=version,branch;
// no filter means everything.
type Hub struct {
	clients map[*websocket.Conn]map[event.Channel]bool
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]map[event.Channel]bool),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	var channels map[event.Channel]bool
	if raw := c.Query("channels"); raw != "" {
		channels = make(map[event.Channel]bool)
		for _, name := range strings.Split(raw, ",") {
			channels[event.Channel(strings.TrimSpace(name))] = true
		}
	}

	h.mu.Lock()
	h.clients[conn] = channels
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) Broadcast(e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "error", err)
		return
	}
	channel := event.ChannelFor(e.Type)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, channels := range h.clients {
		if channels != nil && !channels[channel] {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Error("websocket write failed", "error", err)
		}
	}
}
