package ws

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/auth"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/enum"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/middleware"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var (
	errStaffOnly    = errors.New("payment events are for staff only")
	errBranchDenied = errors.New("branch access denied")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; access is checked via JWT claims
	},
}

// Client is one counter screen listening for payment events of a branch.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	branchID uuid.UUID
	// orderID narrows the stream to a single order; uuid.Nil means all.
	orderID uuid.UUID
	send    chan []byte
}

func (c *Client) wants(orderID uuid.UUID) bool {
	return c.orderID == uuid.Nil || c.orderID == orderID
}

// ReadPump pumps messages from the WebSocket connection to the hub
// The application runs ReadPump in a per-connection goroutine
// Screens only listen, so reads are just for detecting disconnects
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Read loop - we just wait for disconnect or errors
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
// The application runs WritePump in a per-connection goroutine
func (c *Client) WritePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// authorizeSubscriber decides whether claims may watch a branch's payments.
// Payment events carry amounts and QR payloads, so only staff may listen.
// ADMIN can watch every branch, EMPLOYEE only their own.
func authorizeSubscriber(claims *auth.Claims, branchID uuid.UUID) error {
	switch claims.Role {
	case enum.UserRoleAdmin:
		return nil
	case enum.UserRoleEmployee:
		if claims.BranchID != branchID {
			return errBranchDenied
		}
		return nil
	}
	return errStaffOnly
}

// ServeWS upgrades an authenticated staff request to a payment event stream.
// Endpoint: WS /ws/branches/{bid}/payments[?order=<uuid>]
// Claims are read from the context set by middleware.Authenticate.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		http.Error(w, "invalid branch id", http.StatusBadRequest)
		return
	}

	if err := authorizeSubscriber(claims, branchID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	// A counter screen showing one customer's QR only follows that order.
	var orderID uuid.UUID
	if s := r.URL.Query().Get("order"); s != "" {
		if orderID, err = uuid.Parse(s); err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		branchID: branchID,
		orderID:  orderID,
		send:     make(chan []byte, 256),
	}
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
