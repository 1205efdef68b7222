package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	PromptpayID pgtype.Text `json:"promptpay_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Order struct {
	ID          uuid.UUID      `json:"id"`
	BranchID    uuid.UUID      `json:"branch_id"`
	OrderNumber string         `json:"order_number"`
	Status      string         `json:"status"`
	TotalAmount pgtype.Numeric `json:"total_amount"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Payment struct {
	ID              uuid.UUID      `json:"id"`
	OrderID         uuid.UUID      `json:"order_id"`
	PaymentMethod   string         `json:"payment_method"`
	Amount          pgtype.Numeric `json:"amount"`
	Status          string         `json:"status"`
	ReferenceNumber pgtype.Text    `json:"reference_number"`
	QrPayload       pgtype.Text    `json:"qr_payload"`
	ProcessedBy     uuid.UUID      `json:"processed_by"`
	ProcessedAt     time.Time      `json:"processed_at"`
}
