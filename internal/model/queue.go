package model

import "time"

// QueueStatus is the lifecycle state of a queue entry. Transitions only
// happen through the RPC surface in internal/queue.
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueAssigned QueueStatus = "assigned"
	QueueDone     QueueStatus = "done"
	QueueFailed   QueueStatus = "failed"
)

// QueueEntry is one row of the pre-seeded daily work queue.
type QueueEntry struct {
	TargetDate  time.Time // calendar day in the tenant's fixed zone
	TargetingID int64
	CompanyID   int64
	Status      QueueStatus
	AssignedBy  string // run_id of the owning worker process
	AssignedAt  time.Time
	ShardID     *int
}

// ClaimResult is the outcome of claim_next_batch: zero or one row.
type ClaimResult struct {
	CompanyID  int64
	AssignedAt time.Time
}
