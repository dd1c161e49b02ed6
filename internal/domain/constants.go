package domain

const (
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

// Transaction statuses. A row springs into existence in whichever state its
// first observed processor notification describes.
const (
	TxUncaptured     = "UNCAPTURED"
	TxRequiresAction = "REQUIRES_ACTION"
	TxSucceeded      = "SUCCEEDED"
	TxFailed         = "FAILED"
	TxRefunded       = "REFUNDED"
	TxDisputed       = "DISPUTED"
)

const (
	CommissionPending   = "PENDING"
	CommissionAvailable = "AVAILABLE"
	CommissionAllocated = "ALLOCATED"
	CommissionPaid      = "PAID"
)

const (
	PayoutRequested = "REQUESTED"
	PayoutSent      = "SENT"
	PayoutFailed    = "FAILED"
)

// Processor event types consumed by the ledger.
const (
	EventAmountCapturableUpdated = "payment_intent.amount_capturable_updated"
	EventRequiresAction          = "payment_intent.requires_action"
	EventPaymentFailed           = "payment_intent.payment_failed"
	EventChargeSucceeded         = "charge.succeeded"
	EventChargeRefunded          = "charge.refunded"
	EventDisputeCreated          = "charge.dispute.created"
)
