package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/database"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/enum"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/middleware"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/promptpay"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/service"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// PaymentProcessor runs the transactional payment operations.
type PaymentProcessor interface {
	IssueOrderQR(ctx context.Context, req service.IssueQRRequest) (*service.IssueQRResult, error)
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.PaymentResult, error)
	ConfirmPromptPay(ctx context.Context, req service.ConfirmPromptPayRequest) (*service.PaymentResult, error)
}

// Publisher pushes payment events to the counter screens of a branch.
type Publisher interface {
	Publish(branchID uuid.UUID, event ws.PaymentEvent)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	store     PaymentStore
	payments  PaymentProcessor
	publisher Publisher
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store PaymentStore, payments PaymentProcessor, publisher Publisher) *PaymentHandler {
	return &PaymentHandler{store: store, payments: payments, publisher: publisher}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /branches/{bid}/orders/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Record)
	r.Post("/promptpay", h.IssuePromptPay)
	r.Post("/{pid}/confirm", h.Confirm)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type recordPaymentRequest struct {
	PaymentMethod   string `json:"payment_method"`
	Amount          string `json:"amount"`
	ReferenceNumber string `json:"reference_number"`
}

type confirmPaymentRequest struct {
	ReferenceNumber string `json:"reference_number"`
}

type paymentResponse struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"order_id"`
	PaymentMethod   string    `json:"payment_method"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	ReferenceNumber *string   `json:"reference_number"`
	QrPayload       *string   `json:"qr_payload"`
	ProcessedBy     uuid.UUID `json:"processed_by"`
	ProcessedAt     time.Time `json:"processed_at"`
}

type paymentResultResponse struct {
	Payment paymentResponse `json:"payment"`
	Balance string          `json:"balance"`
}

type issueQRResponse struct {
	Payment    paymentResponse `json:"payment"`
	Payload    string          `json:"payload"`
	TargetKind string          `json:"target_kind"`
	Amount     string          `json:"amount"`
}

// --- Handlers ---

// Record handles POST /branches/{bid}/orders/{id}/payments.
// Takes a CASH or TRANSFER payment at the counter.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PaymentMethod != enum.PaymentMethodCash && req.PaymentMethod != enum.PaymentMethodTransfer {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method must be CASH or TRANSFER"})
		return
	}
	amount, err := promptpay.ParseAmount(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive with at most two decimal places"})
		return
	}

	result, err := h.payments.RecordPayment(r.Context(), service.RecordPaymentRequest{
		BranchID:        branchID,
		OrderID:         orderID,
		Method:          req.PaymentMethod,
		Amount:          amount,
		ReferenceNumber: req.ReferenceNumber,
		ProcessedBy:     claims.UserID,
	})
	if err != nil {
		h.writeServiceError(w, "record payment", err)
		return
	}

	paymentsCompleted.WithLabelValues(result.Payment.PaymentMethod).Inc()
	h.publish(branchID, enum.EventPaymentCompleted, result.Order, result.Payment, result.Balance)

	writeJSON(w, http.StatusCreated, paymentResultResponse{
		Payment: dbPaymentToResponse(result.Payment),
		Balance: promptpay.FormatAmount(result.Balance),
	})
}

// IssuePromptPay handles POST /branches/{bid}/orders/{id}/payments/promptpay.
func (h *PaymentHandler) IssuePromptPay(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.payments.IssueOrderQR(r.Context(), service.IssueQRRequest{
		BranchID: branchID,
		OrderID:  orderID,
		IssuedBy: claims.UserID,
	})
	if err != nil {
		if status, _ := paymentErrorStatus(err); status != http.StatusInternalServerError {
			payloadFailures.WithLabelValues(failureReason(err)).Inc()
		}
		h.writeServiceError(w, "issue promptpay qr", err)
		return
	}

	payloadsIssued.WithLabelValues(result.Target.Kind.String(), modeLabel(false)).Inc()
	h.publish(branchID, enum.EventPaymentQRIssued, result.Order, result.Payment, result.Amount)

	writeJSON(w, http.StatusCreated, issueQRResponse{
		Payment:    dbPaymentToResponse(result.Payment),
		Payload:    result.Payload,
		TargetKind: result.Target.Kind.String(),
		Amount:     promptpay.FormatAmount(result.Amount),
	})
}

// Confirm handles POST /branches/{bid}/orders/{id}/payments/{pid}/confirm.
// Staff confirm once the PromptPay transfer shows up in the branch account.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	paymentID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	// The body is optional.
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.payments.ConfirmPromptPay(r.Context(), service.ConfirmPromptPayRequest{
		BranchID:        branchID,
		OrderID:         orderID,
		PaymentID:       paymentID,
		ReferenceNumber: req.ReferenceNumber,
		ConfirmedBy:     claims.UserID,
	})
	if err != nil {
		h.writeServiceError(w, "confirm promptpay payment", err)
		return
	}

	paymentsCompleted.WithLabelValues(result.Payment.PaymentMethod).Inc()
	h.publish(branchID, enum.EventPaymentCompleted, result.Order, result.Payment, result.Balance)

	writeJSON(w, http.StatusOK, paymentResultResponse{
		Payment: dbPaymentToResponse(result.Payment),
		Balance: promptpay.FormatAmount(result.Balance),
	})
}

// List handles GET /branches/{bid}/orders/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	// Verify order exists and belongs to branch
	_, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:       orderID,
		BranchID: branchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dbPaymentToResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func parseOrderPath(w http.ResponseWriter, r *http.Request) (branchID, orderID uuid.UUID, ok bool) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err = uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return branchID, orderID, true
}

func (h *PaymentHandler) publish(branchID uuid.UUID, eventType string, order database.Order, p database.Payment, balance decimal.Decimal) {
	if h.publisher == nil {
		return
	}
	event := ws.PaymentEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		PaymentID:   p.ID,
		Method:      p.PaymentMethod,
		Status:      p.Status,
		Amount:      numericToString(p.Amount),
		Balance:     promptpay.FormatAmount(balance),
	}
	if p.QrPayload.Valid && p.Status == enum.PaymentStatusPending {
		event.QrPayload = p.QrPayload.String
	}
	h.publisher.Publish(branchID, event)
}

func (h *PaymentHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	status, msg := paymentErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s: %v", op, err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func paymentErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, service.ErrBranchNotFound):
		return http.StatusNotFound, "branch not found"
	case errors.Is(err, service.ErrPaymentNotFound):
		return http.StatusNotFound, "payment not found"
	case errors.Is(err, service.ErrOrderCancelled):
		return http.StatusConflict, "cannot take payment for cancelled order"
	case errors.Is(err, service.ErrOrderFullyPaid):
		return http.StatusConflict, "order is already fully paid"
	case errors.Is(err, service.ErrPaymentExceedsBalance):
		return http.StatusConflict, "payment exceeds remaining balance"
	case errors.Is(err, service.ErrPaymentNotPending):
		return http.StatusConflict, "payment is not an open promptpay request"
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		return http.StatusBadRequest, "payment_method must be CASH or TRANSFER"
	case errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, "amount must be positive with at most two decimal places"
	case errors.Is(err, service.ErrBranchNoPromptPay):
		return http.StatusUnprocessableEntity, "branch has no promptpay account configured"
	case errors.Is(err, promptpay.ErrInvalidIdentifier):
		return http.StatusUnprocessableEntity, "branch promptpay account is invalid"
	case errors.Is(err, promptpay.ErrValueTooLong):
		return http.StatusUnprocessableEntity, "payment amount is too long"
	}
	return http.StatusInternalServerError, "internal server error"
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, promptpay.ErrInvalidIdentifier):
		return "invalid_target"
	case errors.Is(err, promptpay.ErrValueTooLong):
		return "value_too_long"
	case errors.Is(err, service.ErrBranchNoPromptPay):
		return "no_target"
	}
	return "order_state"
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		PaymentMethod: p.PaymentMethod,
		Amount:        numericToString(p.Amount),
		Status:        p.Status,
		ProcessedBy:   p.ProcessedBy,
		ProcessedAt:   p.ProcessedAt,
	}
	if p.ReferenceNumber.Valid {
		resp.ReferenceNumber = &p.ReferenceNumber.String
	}
	if p.QrPayload.Valid {
		resp.QrPayload = &p.QrPayload.String
	}
	return resp
}
