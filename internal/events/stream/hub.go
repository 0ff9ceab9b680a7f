package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"carbon-registry/registry-backend/internal/events"
)

// Hub fans emitted records out to websocket subscribers. Purely
// observational: a slow or dead subscriber is dropped, never waited on.
type Hub struct {
	connections map[*Connection]bool
	broadcast   chan events.Event
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
	upgrader    websocket.Upgrader
}

// Connection is one subscriber.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan events.Event
}

func NewHub() *Hub {
	h := &Hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan events.Event, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// In production, implement proper origin checking
				return true
			},
		},
	}
	go h.run()
	return h
}

// Publish queues the record for broadcast. Never blocks the emitter; the
// oldest queued record is dropped under pressure.
func (h *Hub) Publish(ev events.Event) {
	select {
	case h.broadcast <- ev:
	default:
		select {
		case <-h.broadcast:
		default:
		}
		select {
		case h.broadcast <- ev:
		default:
		}
	}
}

// Stop shuts the hub down and closes all subscriber connections.
func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = true
		case conn := <-h.unregister:
			if h.connections[conn] {
				delete(h.connections, conn)
				close(conn.Send)
			}
		case ev := <-h.broadcast:
			for conn := range h.connections {
				select {
				case conn.Send <- ev:
				default:
					delete(h.connections, conn)
					close(conn.Send)
				}
			}
		case <-h.stop:
			for conn := range h.connections {
				delete(h.connections, conn)
				close(conn.Send)
			}
			return
		}
	}
}

// HandleConnection upgrades the request and subscribes it to the stream.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	connection := &Connection{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan events.Event, 256),
	}
	h.register <- connection

	go h.readPump(connection)
	go h.writePump(connection)
	return nil
}

func (h *Hub) readPump(conn *Connection) {
	defer func() {
		h.unregister <- conn
		conn.Conn.Close()
	}()
	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		// Subscribers only listen; discard anything they send.
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("stream: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()
	for {
		select {
		case ev, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
