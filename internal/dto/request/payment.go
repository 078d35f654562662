package request

// MidtransNotification is the subset of the Midtrans HTTP notification the
// core cares about. Signature validation happened upstream; the raw body is
// kept verbatim for audit.
type MidtransNotification struct {
	OrderID           string `json:"order_id" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	TransactionID     string `json:"transaction_id"`
	GrossAmount       string `json:"gross_amount"`
	TransactionTime   string `json:"transaction_time"`
}

// XenditNotification is the subset of the Xendit invoice callback the core
// cares about.
type XenditNotification struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
	PaidAmount int64  `json:"paid_amount"`
}
