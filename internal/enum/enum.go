package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "PENDING"
	OrderStatusPickedUp   = "PICKED_UP"
	OrderStatusWashing    = "WASHING"
	OrderStatusDrying     = "DRYING"
	OrderStatusDelivering = "DELIVERING"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin    = "ADMIN"
	UserRoleEmployee = "EMPLOYEE"
	UserRoleCustomer = "CUSTOMER"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash      = "CASH"
	PaymentMethodPromptPay = "PROMPTPAY"
	PaymentMethodTransfer  = "TRANSFER"
)

const (
	EventPaymentQRIssued  = "payment.qr_issued"
	EventPaymentCompleted = "payment.completed"
)
