package entities

import "time"

// ActivityType is the persisted discriminator of an Activity.
type ActivityType string

const (
	ActivityStageChange     ActivityType = "stage_change"
	ActivityJobCreated      ActivityType = "job_created"
	ActivityJobUpdated      ActivityType = "job_updated"
	ActivityJobArchived     ActivityType = "job_archived"
	ActivityJobUnarchived   ActivityType = "job_unarchived"
	ActivityJobScheduled    ActivityType = "job_scheduled"
	ActivityJobDeleted      ActivityType = "job_deleted"
	ActivityNote            ActivityType = "note"
	ActivityTaskCreated     ActivityType = "task_created"
	ActivityTaskCompleted   ActivityType = "task_completed"
	ActivityCustomerCreated ActivityType = "customer_created"
	ActivityPaymentReceived ActivityType = "payment_received"
)

// FieldChange is one before/after pair of a job_updated activity.
// Values are in serialized form: dates are RFC 3339 strings, never time.Time.
type FieldChange struct {
	From any `json:"from" dynamodbav:"from"`
	To   any `json:"to" dynamodbav:"to"`
}

// Activity is a write-once audit record.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (jobId-index): jobId
//   - GSI2 (customerId-index): customerId
type Activity struct {
	ID         string                 `json:"id" dynamodbav:"id"`
	Type       ActivityType           `json:"type" dynamodbav:"type"`
	JobID      string                 `json:"jobId,omitempty" dynamodbav:"jobId,omitempty"`
	CustomerID string                 `json:"customerId" dynamodbav:"customerId"`
	Changes    map[string]FieldChange `json:"changes,omitempty" dynamodbav:"changes,omitempty"`
	FromStage  Stage                  `json:"fromStage,omitempty" dynamodbav:"fromStage,omitempty"`
	ToStage    Stage                  `json:"toStage,omitempty" dynamodbav:"toStage,omitempty"`
	Note       string                 `json:"note" dynamodbav:"note"`
	CreatedBy  string                 `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt  time.Time              `json:"createdAt" dynamodbav:"createdAt"`
}
