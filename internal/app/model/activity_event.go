package model

import "time"

// ActivityEvent records an action performed on a pad. Events flow through
// NATS JetStream and are persisted asynchronously by the activity consumer.
type ActivityEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	PadID     string    `json:"pad_id" gorm:"size:64;not null;index"`
	Kind      string    `json:"kind" gorm:"size:16;not null"`
	Detail    string    `json:"detail" gorm:"size:255"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
}

// Activity kinds.
const (
	ActivitySave   = "save"
	ActivityUpload = "upload"
)

const (
	ActivityStreamName     = "PADS_ACTIVITY"
	ActivityStreamSubject  = "pads.activity"
	ActivityConsumerName   = "activity-logger"
	ActivityStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
