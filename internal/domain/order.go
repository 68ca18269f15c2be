package domain

import "time"

// OrderSchemaVersion is stored with every staged order record.
const OrderSchemaVersion = 1

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Customer holds the checkout form fields. All of them are required before
// an order can be built.
type Customer struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	Zip      string `json:"zip" validate:"required"`
}

// LineItem snapshots a cart entry at order build time. Later catalog changes
// must not alter a staged order, so name and unit price are copied here.
type LineItem struct {
	ProductID      string `json:"id"`
	Name           string `json:"name"`
	Quantity       int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// PendingOrder is a staged, not-yet-durably-recorded order. It lives in the
// session store between checkout submission and payment confirmation; the
// remote persistence gateway owns the durable copy once submitted.
type PendingOrder struct {
	SchemaVersion int           `json:"schema_version"`
	OrderRef      string        `json:"order_ref"`
	Customer      Customer      `json:"customer"`
	Items         []LineItem    `json:"items"`
	TotalCents    int64         `json:"total_cents"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// MarkPaid transitions the order to paid at the given time. Marking an
// already-paid order again is a no-op so reconciliation retries stay
// idempotent.
func (o *PendingOrder) MarkPaid(at time.Time) {
	if o.PaymentStatus == PaymentStatusPaid {
		return
	}
	o.PaymentStatus = PaymentStatusPaid
	o.PaidAt = &at
}
