package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsSendBufferSize = 64
)

// LogFeedMessage is the wire format of one log feed frame.
type LogFeedMessage struct {
	CampaignID string            `json:"campaign_id"`
	Entry      campaign.LogEntry `json:"entry"`
}

// Hub broadcasts appended log entries to connected websocket clients. Each
// client subscribes to a single campaign's feed.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	campaignID string
	conn       *websocket.Conn
	send       chan LogFeedMessage
}

// NewHub creates a websocket hub. Origin checking is delegated to the CORS
// middleware in front of the upgrade endpoint.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast sends a log entry to every client following the campaign.
// Slow clients are dropped rather than blocking the mutation path.
func (h *Hub) Broadcast(campaignID string, entry campaign.LogEntry) {
	msg := LogFeedMessage{CampaignID: campaignID, Entry: entry}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.campaignID != campaignID {
			continue
		}
		select {
		case client.send <- msg:
		default:
			go client.conn.Close()
		}
	}
}

// HandleFeed upgrades the connection and streams log entries for the
// campaign named in the path.
func (h *Hub) HandleFeed(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		http.Error(w, "campaign id required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}
	client := &wsClient{
		campaignID: campaignID,
		conn:       conn,
		send:       make(chan LogFeedMessage, wsSendBufferSize),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Info("log feed client connected",
			zap.String("campaign_id", campaignID),
			zap.String("remote_addr", r.RemoteAddr),
		)
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) readPump(client *wsClient) {
	defer h.drop(client)
	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		// The feed is one-way; reads only service control frames.
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(client)
	}()
	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(client *wsClient) {
	h.mu.Lock()
	_, present := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if present {
		client.conn.Close()
	}
}

// CloseAll disconnects every client; used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.conn.Close()
		delete(h.clients, client)
	}
}
