package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/softdesk-dev/softdesk/internal/permissions"
	"github.com/softdesk-dev/softdesk/internal/types"
	"github.com/softdesk-dev/softdesk/internal/utils"
	"gorm.io/gorm"
)

var (
	projectClients   = make(map[uint]map[*wsClient]bool)
	projectClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendQueueSize  = 32
)

type projectEvent struct {
	Type      string      `json:"type"`
	ProjectID uint        `json:"project_id"`
	Payload   interface{} `json:"payload,omitempty"`
}

// wsClient wraps a subscribed connection. All writes go through the send
// queue: gorilla/websocket supports one concurrent writer per connection, so
// writePump is the only goroutine that touches the write side.
type wsClient struct {
	conn *websocket.Conn
	send chan projectEvent
	done chan struct{}
	once sync.Once
}

// shutdown stops the write pump and closes the connection. Safe to call from
// any goroutine, any number of times.
func (c *wsClient) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump owns the connection's write side, serializing broadcast events
// and keepalive pings. It exits when the client shuts down or a write fails.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown()
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				log.Warn().Err(err).Uint("project_id", event.ProjectID).Msg("Failed to write event, dropping client")
				c.shutdown()
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

// BroadcastProjectEvent queues an event for every socket subscribed to the
// project. Clients that stopped draining their queue are dropped rather than
// blocking the request goroutine.
func BroadcastProjectEvent(projectID uint, eventType string, payload interface{}) {
	projectClientsMu.RLock()
	clients := make([]*wsClient, 0, len(projectClients[projectID]))
	for client := range projectClients[projectID] {
		clients = append(clients, client)
	}
	projectClientsMu.RUnlock()

	if len(clients) == 0 {
		return
	}

	event := projectEvent{Type: eventType, ProjectID: projectID, Payload: payload}

	for _, client := range clients {
		select {
		case client.send <- event:
		case <-client.done:
		default:
			log.Warn().Uint("project_id", projectID).Msg("Dropping slow websocket client")
			unregisterClient(projectID, client)
			client.shutdown()
		}
	}
}

func registerClient(projectID uint, client *wsClient) {
	projectClientsMu.Lock()
	if projectClients[projectID] == nil {
		projectClients[projectID] = make(map[*wsClient]bool)
	}
	projectClients[projectID][client] = true
	projectClientsMu.Unlock()
}

func unregisterClient(projectID uint, client *wsClient) {
	projectClientsMu.Lock()
	if clients, exists := projectClients[projectID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(projectClients, projectID)
		}
	}
	projectClientsMu.Unlock()
}

// ProjectEvents upgrades the connection and streams issue/comment mutation
// events for one project. Subscribing requires the same contributorship as
// any other nested read.
func ProjectEvents(c *gin.Context) {
	projectID64, err := strconv.ParseUint(c.Param("project_id"), 10, 64)

	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	projectID, err := permissions.OwningProjectID(permissions.KindProject, uint(projectID64))

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			log.Error().Err(err).Msg("Failed to resolve project scope")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	actor, err := utils.GetCurrentActor(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	allowed, err := permissions.CanAccessProject(actor, projectID)

	if err != nil {
		log.Error().Err(err).Msg("Failed to check project membership")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": permissions.ForbiddenMessage})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin header.
				return true
			}
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn().Err(err).Msg("Failed to set initial read deadline")
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	client := &wsClient{
		conn: conn,
		send: make(chan projectEvent, sendQueueSize),
		done: make(chan struct{}),
	}

	registerClient(projectID, client)
	go client.writePump()

	defer func() {
		unregisterClient(projectID, client)
		client.shutdown()
	}()

	client.send <- projectEvent{Type: "connected", ProjectID: projectID}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		// The stream is server-to-client; inbound frames only keep the
		// connection alive.
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Uint("project_id", projectID).Msg("WebSocket closed unexpectedly")
			}
			break
		}
	}
}
