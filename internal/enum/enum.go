package enum

// Order lifecycle states (CHECK constrained in DB).
const (
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)
