// internal/domain/webhook/entity.go
package webhook

import "time"

// ProcessedExternalEvent marks a payment provider event as handled. The
// unique index on the event id is what makes redeliveries no-ops.
type ProcessedExternalEvent struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	EventID     string    `json:"event_id" gorm:"uniqueIndex;not null;size:255"`
	EventType   string    `json:"event_type" gorm:"not null;size:100"`
	ProcessedAt time.Time `json:"processed_at" gorm:"not null"`
}

// TableName returns the table name for ProcessedExternalEvent model
func (ProcessedExternalEvent) TableName() string {
	return "processed_external_events"
}
