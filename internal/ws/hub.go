package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/enum"
	"github.com/google/uuid"
)

// PaymentEvent is a change to an order's payments, pushed to the counter
// screens of the order's branch.
type PaymentEvent struct {
	Type        string    `json:"type"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PaymentID   uuid.UUID `json:"payment_id"`
	Method      string    `json:"payment_method"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	// Balance is what the order still owes once this payment settles.
	Balance   string `json:"balance"`
	QrPayload string `json:"qr_payload,omitempty"`
}

// branchEvent is an internal struct for routing events to specific branches
type branchEvent struct {
	BranchID uuid.UUID
	Event    PaymentEvent
}

// Hub maintains the set of active clients and broadcasts payment events to them
type Hub struct {
	// Registered clients by branch ID
	rooms map[uuid.UUID]map[*Client]bool

	// Last QR issued per order that nobody has settled yet, by branch.
	// Replayed to screens that connect after the code was issued.
	awaiting map[uuid.UUID]map[uuid.UUID][]byte

	register   chan *Client
	unregister chan *Client

	broadcast chan *branchEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		awaiting:   make(map[uuid.UUID]map[uuid.UUID][]byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *branchEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.branchID] == nil {
				h.rooms[client.branchID] = make(map[*Client]bool)
			}
			h.rooms[client.branchID][client] = true
			for orderID, message := range h.awaiting[client.branchID] {
				if !client.wants(orderID) {
					continue
				}
				select {
				case client.send <- message:
				default:
				}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.branchID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.branchID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal payment event: %v", err)
				continue
			}

			h.mu.Lock()
			h.track(event.BranchID, event.Event, message)

			for client := range h.rooms[event.BranchID] {
				if !client.wants(event.Event.OrderID) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.BranchID], client)
					if len(h.rooms[event.BranchID]) == 0 {
						delete(h.rooms, event.BranchID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// track remembers the open QR of an order until any other payment event for
// that order arrives. Callers hold h.mu.
func (h *Hub) track(branchID uuid.UUID, event PaymentEvent, message []byte) {
	if event.Type == enum.EventPaymentQRIssued {
		if h.awaiting[branchID] == nil {
			h.awaiting[branchID] = make(map[uuid.UUID][]byte)
		}
		h.awaiting[branchID][event.OrderID] = message
		return
	}
	if orders, ok := h.awaiting[branchID]; ok {
		delete(orders, event.OrderID)
		if len(orders) == 0 {
			delete(h.awaiting, branchID)
		}
	}
}

// Publish queues a payment event for every screen subscribed to the branch.
func (h *Hub) Publish(branchID uuid.UUID, event PaymentEvent) {
	h.broadcast <- &branchEvent{
		BranchID: branchID,
		Event:    event,
	}
}
