package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getBranch = `
SELECT id, name, promptpay_id, created_at
FROM branches
WHERE id = $1
`

func (q *Queries) GetBranch(ctx context.Context, id uuid.UUID) (Branch, error) {
	row := q.db.QueryRow(ctx, getBranch, id)
	var i Branch
	err := row.Scan(&i.ID, &i.Name, &i.PromptpayID, &i.CreatedAt)
	return i, err
}

const createBranch = `
INSERT INTO branches (name, promptpay_id)
VALUES ($1, $2)
RETURNING id, name, promptpay_id, created_at
`

type CreateBranchParams struct {
	Name        string
	PromptpayID pgtype.Text
}

func (q *Queries) CreateBranch(ctx context.Context, arg CreateBranchParams) (Branch, error) {
	row := q.db.QueryRow(ctx, createBranch, arg.Name, arg.PromptpayID)
	var i Branch
	err := row.Scan(&i.ID, &i.Name, &i.PromptpayID, &i.CreatedAt)
	return i, err
}

const orderColumns = `id, branch_id, order_number, status, total_amount, created_at, updated_at`

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND branch_id = $2
`

type GetOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.BranchID)
	return scanOrder(row)
}

const getOrderForUpdate = getOrder + `FOR NO KEY UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.BranchID)
	return scanOrder(row)
}

const createOrder = `
INSERT INTO orders (branch_id, order_number, total_amount)
VALUES ($1, $2, $3)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	BranchID    uuid.UUID
	OrderNumber string
	TotalAmount pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.BranchID, arg.OrderNumber, arg.TotalAmount)
	return scanOrder(row)
}

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.OrderNumber,
		&i.Status,
		&i.TotalAmount,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const paymentColumns = `id, order_id, payment_method, amount, status, reference_number, qr_payload, processed_by, processed_at`

const createPayment = `
INSERT INTO payments (order_id, payment_method, amount, status, reference_number, qr_payload, processed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID         uuid.UUID
	PaymentMethod   string
	Amount          pgtype.Numeric
	Status          string
	ReferenceNumber pgtype.Text
	QrPayload       pgtype.Text
	ProcessedBy     uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.PaymentMethod,
		arg.Amount,
		arg.Status,
		arg.ReferenceNumber,
		arg.QrPayload,
		arg.ProcessedBy,
	)
	return scanPayment(row)
}

const listPaymentsByOrder = `
SELECT ` + paymentColumns + `
FROM payments
WHERE order_id = $1
ORDER BY processed_at
`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPaymentForUpdate = `
SELECT ` + paymentColumns + `
FROM payments
WHERE id = $1 AND order_id = $2
FOR UPDATE
`

type GetPaymentParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetPaymentForUpdate(ctx context.Context, arg GetPaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentForUpdate, arg.ID, arg.OrderID)
	return scanPayment(row)
}

const completePayment = `
UPDATE payments
SET status = 'COMPLETED',
    reference_number = COALESCE($2, reference_number),
    processed_by = $3,
    processed_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + paymentColumns

type CompletePaymentParams struct {
	ID              uuid.UUID
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
}

func (q *Queries) CompletePayment(ctx context.Context, arg CompletePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, completePayment, arg.ID, arg.ReferenceNumber, arg.ProcessedBy)
	return scanPayment(row)
}

const failPendingPromptPayPayments = `
UPDATE payments
SET status = 'FAILED'
WHERE order_id = $1 AND payment_method = 'PROMPTPAY' AND status = 'PENDING'
`

// FailPendingPromptPayPayments retires QR codes of an order that no longer
// match its balance. Returns the number of payments moved to FAILED.
func (q *Queries) FailPendingPromptPayPayments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, failPendingPromptPayPayments, orderID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const sumPaymentsByOrder = `
SELECT COALESCE(SUM(amount), 0)::NUMERIC(12, 2)
FROM payments
WHERE order_id = $1 AND status = 'COMPLETED'
`

func (q *Queries) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumPaymentsByOrder, orderID)
	var total pgtype.Numeric
	err := row.Scan(&total)
	return total, err
}

func scanPayment(row interface{ Scan(...any) error }) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.PaymentMethod,
		&i.Amount,
		&i.Status,
		&i.ReferenceNumber,
		&i.QrPayload,
		&i.ProcessedBy,
		&i.ProcessedAt,
	)
	return i, err
}
