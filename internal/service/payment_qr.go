package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/database"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/enum"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/promptpay"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// IssueQRRequest identifies the order a payment QR is requested for.
type IssueQRRequest struct {
	BranchID uuid.UUID
	OrderID  uuid.UUID
	IssuedBy uuid.UUID
}

// IssueQRResult is the pending payment together with the payload to render.
type IssueQRResult struct {
	Payment database.Payment
	Order   database.Order
	Payload string
	Target  promptpay.Target
	Amount  decimal.Decimal
	// Superseded counts earlier open requests for the order that were retired.
	Superseded int64
}

// IssueOrderQR locks the order, works out what is still owed, and records a
// PENDING PromptPay payment carrying a payload locked to that amount. Only
// one request per order stays open: earlier PENDING ones are marked FAILED.
func (s *PaymentService) IssueOrderQR(ctx context.Context, req IssueQRRequest) (*IssueQRResult, error) {
	// Begin before reading the order so concurrent requests see a consistent balance.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, balance, err := lockOrderBalance(ctx, store, req.BranchID, req.OrderID)
	if err != nil {
		return nil, err
	}

	branch, err := store.GetBranch(ctx, req.BranchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBranchNotFound
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	if !branch.PromptpayID.Valid || branch.PromptpayID.String == "" {
		return nil, ErrBranchNoPromptPay
	}

	target, err := promptpay.Classify(branch.PromptpayID.String, s.policy)
	if err != nil {
		return nil, fmt.Errorf("branch promptpay id: %w", err)
	}
	payload, err := s.builder.BuildFor(target, &balance)
	if err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}

	superseded, err := store.FailPendingPromptPayPayments(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("retire promptpay requests: %w", err)
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:       order.ID,
		PaymentMethod: enum.PaymentMethodPromptPay,
		Amount:        decimalToNumeric(balance),
		Status:        enum.PaymentStatusPending,
		QrPayload:     pgtype.Text{String: payload, Valid: true},
		ProcessedBy:   req.IssuedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &IssueQRResult{
		Payment:    payment,
		Order:      order,
		Payload:    payload,
		Target:     target,
		Amount:     balance,
		Superseded: superseded,
	}, nil
}
