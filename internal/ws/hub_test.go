package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/auth"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/enum"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const testSecret = "ws-test-secret"

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, branchID uuid.UUID) *Client {
	return &Client{
		hub:      hub,
		branchID: branchID,
		send:     make(chan []byte, 256),
	}
}

func qrIssued(orderID uuid.UUID, payload string) PaymentEvent {
	return PaymentEvent{
		Type:        enum.EventPaymentQRIssued,
		OrderID:     orderID,
		OrderNumber: "LD-0042",
		PaymentID:   uuid.New(),
		Method:      enum.PaymentMethodPromptPay,
		Status:      enum.PaymentStatusPending,
		Amount:      "100.00",
		Balance:     "100.00",
		QrPayload:   payload,
	}
}

func receive(t *testing.T, c *Client) PaymentEvent {
	t.Helper()
	select {
	case msg := <-c.send:
		var evt PaymentEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		return evt
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
	return PaymentEvent{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client := mockClient(hub, branchID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[branchID] == nil {
		t.Fatal("branch room not created")
	}
	if !hub.rooms[branchID][client] {
		t.Fatal("client not registered in branch room")
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client1 := mockClient(hub, branchID)
	client2 := mockClient(hub, branchID)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[branchID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[branchID]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[branchID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[branchID]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[branchID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestPublishStaysInBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch1 := uuid.New()
	branch2 := uuid.New()
	client1 := mockClient(hub, branch1)
	client2 := mockClient(hub, branch1)
	other := mockClient(hub, branch2)

	hub.register <- client1
	hub.register <- client2
	hub.register <- other
	time.Sleep(10 * time.Millisecond)

	orderID := uuid.New()
	hub.Publish(branch1, qrIssued(orderID, "000201"))

	for i, c := range []*Client{client1, client2} {
		evt := receive(t, c)
		if evt.Type != enum.EventPaymentQRIssued || evt.OrderID != orderID {
			t.Errorf("client%d: got %+v", i+1, evt)
		}
		if evt.QrPayload != "000201" {
			t.Errorf("client%d: qr payload got %q", i+1, evt.QrPayload)
		}
	}
	expectNothing(t, other)
}

func TestPublishRespectsOrderFilter(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	watched := uuid.New()
	counter := mockClient(hub, branchID)
	counter.orderID = watched
	backOffice := mockClient(hub, branchID)

	hub.register <- counter
	hub.register <- backOffice
	time.Sleep(10 * time.Millisecond)

	hub.Publish(branchID, qrIssued(uuid.New(), "other"))
	expectNothing(t, counter)
	if evt := receive(t, backOffice); evt.QrPayload != "other" {
		t.Errorf("back office: got %+v", evt)
	}

	hub.Publish(branchID, qrIssued(watched, "mine"))
	if evt := receive(t, counter); evt.QrPayload != "mine" {
		t.Errorf("counter: got %+v", evt)
	}
}

func TestLateScreenReceivesOpenQR(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	orderID := uuid.New()
	hub.Publish(branchID, qrIssued(orderID, "first"))
	hub.Publish(branchID, qrIssued(orderID, "second"))
	time.Sleep(10 * time.Millisecond)

	client := mockClient(hub, branchID)
	client.orderID = orderID
	hub.register <- client

	evt := receive(t, client)
	if evt.QrPayload != "second" {
		t.Errorf("replayed payload: got %q, want the latest code", evt.QrPayload)
	}
	expectNothing(t, client)
}

func TestSettledQRIsNotReplayed(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	orderID := uuid.New()
	hub.Publish(branchID, qrIssued(orderID, "000201"))
	hub.Publish(branchID, PaymentEvent{
		Type:    enum.EventPaymentCompleted,
		OrderID: orderID,
		Method:  enum.PaymentMethodPromptPay,
		Status:  enum.PaymentStatusCompleted,
		Amount:  "100.00",
		Balance: "0.00",
	})
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.awaiting[branchID] != nil {
		t.Error("awaiting entry should be cleared once the order is paid")
	}
	hub.mu.RUnlock()

	client := mockClient(hub, branchID)
	hub.register <- client
	expectNothing(t, client)
}

func TestAuthorizeSubscriber(t *testing.T) {
	branchID := uuid.New()
	tests := []struct {
		name    string
		claims  *auth.Claims
		wantErr error
	}{
		{"admin any branch", &auth.Claims{Role: enum.UserRoleAdmin, BranchID: uuid.New()}, nil},
		{"employee own branch", &auth.Claims{Role: enum.UserRoleEmployee, BranchID: branchID}, nil},
		{"employee other branch", &auth.Claims{Role: enum.UserRoleEmployee, BranchID: uuid.New()}, errBranchDenied},
		{"customer own branch", &auth.Claims{Role: enum.UserRoleCustomer, BranchID: branchID}, errStaffOnly},
		{"unknown role", &auth.Claims{Role: "DRIVER", BranchID: branchID}, errStaffOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := authorizeSubscriber(tt.claims, branchID); err != tt.wantErr {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// newTestServer mounts ServeWS behind the same authentication the API uses.
func newTestServer(hub *Hub) *chi.Mux {
	r := chi.NewRouter()
	r.With(middleware.Authenticate(testSecret)).Get("/ws/branches/{bid}/payments", func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	})
	return r
}

func TestServeWS_CustomerDenied(t *testing.T) {
	hub := NewHub()
	branchID := uuid.New()
	token, err := auth.GenerateToken(testSecret, uuid.New(), branchID, enum.UserRoleCustomer, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest("GET", "/ws/branches/"+branchID.String()+"/payments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	newTestServer(hub).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
	if len(hub.rooms) != 0 {
		t.Error("customer must not be registered")
	}
}

func TestServeWS_InvalidOrderFilter(t *testing.T) {
	branchID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, uuid.New(), branchID, enum.UserRoleEmployee, time.Minute)

	req := httptest.NewRequest("GET", "/ws/branches/"+branchID.String()+"/payments?order=LD-0042", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	newTestServer(NewHub()).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServeWS_EmployeeStreamsPaymentEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	orderID := uuid.New()
	hub.Publish(branchID, qrIssued(orderID, "000201"))
	time.Sleep(10 * time.Millisecond)

	srv := httptest.NewServer(newTestServer(hub))
	defer srv.Close()

	token, _ := auth.GenerateToken(testSecret, uuid.New(), branchID, enum.UserRoleEmployee, time.Minute)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/branches/" + branchID.String() + "/payments?order=" + orderID.String() + "&token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var evt PaymentEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.Type != enum.EventPaymentQRIssued || evt.OrderID != orderID || evt.QrPayload != "000201" {
		t.Errorf("event: got %+v", evt)
	}
}
