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

// Errors returned by the payment service.
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrBranchNotFound        = errors.New("branch not found")
	ErrOrderCancelled        = errors.New("cannot request payment for cancelled order")
	ErrOrderFullyPaid        = errors.New("order is already fully paid")
	ErrBranchNoPromptPay     = errors.New("branch has no promptpay account configured")
	ErrInvalidPaymentMethod  = errors.New("payment method must be CASH or TRANSFER")
	ErrInvalidAmount         = errors.New("amount must be positive with at most two decimal places")
	ErrPaymentExceedsBalance = errors.New("payment exceeds remaining balance")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentNotPending     = errors.New("payment is not an open promptpay request")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PaymentStore defines the DB methods the payment service runs inside its
// transactions. Satisfied by *database.Queries.
type PaymentStore interface {
	GetBranch(ctx context.Context, id uuid.UUID) (database.Branch, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	GetPaymentForUpdate(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	CompletePayment(ctx context.Context, arg database.CompletePaymentParams) (database.Payment, error)
	FailPendingPromptPayPayments(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentService moves laundry order payments through their lifecycle:
// PromptPay requests are issued PENDING and confirmed to COMPLETED, cash and
// transfers are recorded COMPLETED directly, and any change to the balance
// retires QR codes that no longer match it.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
	builder  *promptpay.Builder
	policy   promptpay.MobilePolicy
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(pool TxBeginner, newStore NewPaymentStore, policy promptpay.MobilePolicy) *PaymentService {
	return &PaymentService{
		pool:     pool,
		newStore: newStore,
		builder:  promptpay.NewBuilder(policy),
		policy:   policy,
	}
}

// PaymentResult is a payment that changed the order's balance.
type PaymentResult struct {
	Payment database.Payment
	Order   database.Order
	// Balance is what is still owed after the payment.
	Balance decimal.Decimal
	// Superseded counts PromptPay requests retired by this payment.
	Superseded int64
}

// RecordPaymentRequest is a counter payment taken by staff.
type RecordPaymentRequest struct {
	BranchID        uuid.UUID
	OrderID         uuid.UUID
	Method          string
	Amount          decimal.Decimal
	ReferenceNumber string
	ProcessedBy     uuid.UUID
}

// RecordPayment stores a CASH or TRANSFER payment as COMPLETED. Partial
// payments are allowed, overpayment is not.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	if req.Method != enum.PaymentMethodCash && req.Method != enum.PaymentMethodTransfer {
		return nil, ErrInvalidPaymentMethod
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Truncate(2)) {
		return nil, ErrInvalidAmount
	}

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
	if req.Amount.GreaterThan(balance) {
		return nil, ErrPaymentExceedsBalance
	}

	var ref pgtype.Text
	if req.ReferenceNumber != "" {
		ref = pgtype.Text{String: req.ReferenceNumber, Valid: true}
	}
	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:         order.ID,
		PaymentMethod:   req.Method,
		Amount:          decimalToNumeric(req.Amount),
		Status:          enum.PaymentStatusCompleted,
		ReferenceNumber: ref,
		ProcessedBy:     req.ProcessedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	// Open QR codes were locked to the old balance.
	superseded, err := store.FailPendingPromptPayPayments(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("retire promptpay requests: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PaymentResult{
		Payment:    payment,
		Order:      order,
		Balance:    balance.Sub(req.Amount),
		Superseded: superseded,
	}, nil
}

// ConfirmPromptPayRequest marks a PromptPay request as paid once staff have
// seen the transfer arrive.
type ConfirmPromptPayRequest struct {
	BranchID        uuid.UUID
	OrderID         uuid.UUID
	PaymentID       uuid.UUID
	ReferenceNumber string
	ConfirmedBy     uuid.UUID
}

// ConfirmPromptPay moves a PENDING PromptPay payment to COMPLETED.
func (s *PaymentService) ConfirmPromptPay(ctx context.Context, req ConfirmPromptPayRequest) (*PaymentResult, error) {
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

	pending, err := store.GetPaymentForUpdate(ctx, database.GetPaymentParams{
		ID:      req.PaymentID,
		OrderID: order.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if pending.PaymentMethod != enum.PaymentMethodPromptPay || pending.Status != enum.PaymentStatusPending {
		return nil, ErrPaymentNotPending
	}
	amount := numericToDecimal(pending.Amount)
	if amount.GreaterThan(balance) {
		return nil, ErrPaymentExceedsBalance
	}

	var ref pgtype.Text
	if req.ReferenceNumber != "" {
		ref = pgtype.Text{String: req.ReferenceNumber, Valid: true}
	}
	payment, err := store.CompletePayment(ctx, database.CompletePaymentParams{
		ID:              pending.ID,
		ReferenceNumber: ref,
		ProcessedBy:     req.ConfirmedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PaymentResult{
		Payment: payment,
		Order:   order,
		Balance: balance.Sub(amount),
	}, nil
}

// lockOrderBalance locks the order row and returns what is still owed on it.
// Cancelled and fully paid orders are rejected.
func lockOrderBalance(ctx context.Context, store PaymentStore, branchID, orderID uuid.UUID) (database.Order, decimal.Decimal, error) {
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{
		ID:       orderID,
		BranchID: branchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, decimal.Zero, ErrOrderNotFound
		}
		return database.Order{}, decimal.Zero, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusCancelled {
		return database.Order{}, decimal.Zero, ErrOrderCancelled
	}

	paid, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	balance := numericToDecimal(order.TotalAmount).Sub(numericToDecimal(paid))
	if balance.LessThanOrEqual(decimal.Zero) {
		return database.Order{}, decimal.Zero, ErrOrderFullyPaid
	}
	return order, balance, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
