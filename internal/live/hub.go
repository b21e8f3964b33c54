package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"studyroom-backend/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 32
)

// Event is pushed to every client watching the room's building.
type Event struct {
	EventType        string                `json:"event_type"`
	BuildingID       int64                 `json:"building_id"`
	RoomID           int64                 `json:"room_id"`
	CurrentOccupancy int                   `json:"current_occupancy"`
	OccupancyStatus  model.OccupancyStatus `json:"occupancy_status"`
}

type broadcast struct {
	buildingID int64
	payload    []byte
}

// Hub keeps websocket clients grouped by building.
type Hub struct {
	clients    map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
	mu         sync.RWMutex

	upgrader websocket.Upgrader
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.buildingID] == nil {
				h.clients[client.buildingID] = make(map[*Client]bool)
			}
			h.clients[client.buildingID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.buildingID] {
				select {
				case client.send <- msg.payload:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients[msg.buildingID], client)
				}
			}
			if len(h.clients[msg.buildingID]) == 0 {
				delete(h.clients, msg.buildingID)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.buildingID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.buildingID)
	}
}

// Count returns the number of clients watching a building.
func (h *Hub) Count(buildingID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[buildingID])
}

// RoomOccupancyChanged queues an occupancy event. It never blocks; events are
// dropped while the broadcast queue is full.
func (h *Hub) RoomOccupancyChanged(room model.Room) {
	payload, err := json.Marshal(Event{
		EventType:        "occupancy",
		BuildingID:       room.BuildingID,
		RoomID:           room.ID,
		CurrentOccupancy: room.CurrentOccupancy,
		OccupancyStatus:  room.OccupancyStatus(),
	})
	if err != nil {
		log.Printf("Failed to encode occupancy event for room %d: %v", room.ID, err)
		return
	}
	select {
	case h.broadcast <- broadcast{buildingID: room.BuildingID, payload: payload}:
	default:
		log.Printf("Live feed queue full, dropping event for room %d", room.ID)
	}
}

// ServeWS upgrades the request and subscribes the connection to a building.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, buildingID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		buildingID: buildingID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// Client is a single websocket connection.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	buildingID int64
}

// readPump only watches for the connection going away; clients never send data.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
