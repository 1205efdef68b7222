package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/promptpay"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// PromptPayHandler generates and checks PromptPay payloads that are not
// tied to a stored order (walk-in payments, printed static codes).
type PromptPayHandler struct {
	policy  promptpay.MobilePolicy
	builder *promptpay.Builder
}

// NewPromptPayHandler creates a new PromptPayHandler.
func NewPromptPayHandler(policy promptpay.MobilePolicy) *PromptPayHandler {
	return &PromptPayHandler{policy: policy, builder: promptpay.NewBuilder(policy)}
}

// RegisterRoutes registers PromptPay endpoints on the given Chi router.
// Expected to be mounted at /promptpay
func (h *PromptPayHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payloads", h.Generate)
	r.Post("/verify", h.Verify)
}

// --- Request / Response types ---

type generatePayloadRequest struct {
	Target string `json:"target"`
	Amount string `json:"amount"`
}

type payloadResponse struct {
	Payload    string  `json:"payload"`
	TargetKind string  `json:"target_kind"`
	Static     bool    `json:"static"`
	Amount     *string `json:"amount"`
}

type verifyPayloadRequest struct {
	Payload string `json:"payload"`
}

type verifyPayloadResponse struct {
	Valid       bool          `json:"valid"`
	TargetKind  string        `json:"target_kind"`
	TargetValue string        `json:"target_value"`
	Static      bool          `json:"static"`
	Amount      *string       `json:"amount"`
	Fields      []fieldOutput `json:"fields"`
}

type fieldOutput struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// --- Handlers ---

// Generate handles POST /promptpay/payloads.
func (h *PromptPayHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generatePayloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target is required"})
		return
	}

	// Amount is optional: without it the code is static and reusable.
	var amount *decimal.Decimal
	if req.Amount != "" {
		d, err := promptpay.ParseAmount(req.Amount)
		if err != nil {
			payloadFailures.WithLabelValues("invalid_amount").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive with at most two decimal places"})
			return
		}
		amount = &d
	}

	target, err := promptpay.Classify(req.Target, h.policy)
	if err != nil {
		payloadFailures.WithLabelValues("invalid_target").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "target must be a mobile number, national ID or e-wallet ID"})
		return
	}

	payload, err := h.builder.BuildFor(target, amount)
	if err != nil {
		if errors.Is(err, promptpay.ErrValueTooLong) {
			payloadFailures.WithLabelValues("value_too_long").Inc()
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "amount is too long"})
			return
		}
		log.Printf("ERROR: build promptpay payload: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payloadsIssued.WithLabelValues(target.Kind.String(), modeLabel(amount == nil)).Inc()

	resp := payloadResponse{
		Payload:    payload,
		TargetKind: target.Kind.String(),
		Static:     amount == nil,
	}
	if amount != nil {
		s := promptpay.FormatAmount(*amount)
		resp.Amount = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

// Verify handles POST /promptpay/verify.
func (h *PromptPayHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyPayloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Payload == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payload is required"})
		return
	}

	p, err := promptpay.Decode(req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, promptpay.ErrChecksumMismatch):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "checksum mismatch"})
		default:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "malformed payload"})
		}
		return
	}

	resp := verifyPayloadResponse{
		Valid:       true,
		TargetKind:  p.Target.Kind.String(),
		TargetValue: p.Target.Value,
		Static:      p.Static,
		Fields:      make([]fieldOutput, len(p.Fields)),
	}
	for i, f := range p.Fields {
		resp.Fields[i] = fieldOutput{Tag: f.Tag, Value: f.Value}
	}
	if p.Amount != nil {
		s := promptpay.FormatAmount(*p.Amount)
		resp.Amount = &s
	}
	writeJSON(w, http.StatusOK, resp)
}
