package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationStepCompleted     NotificationType = "step_completed"
	NotificationDocumentApproved  NotificationType = "document_approved"
	NotificationDocumentRejected  NotificationType = "document_rejected"
	NotificationDocumentUploaded  NotificationType = "document_uploaded"
	NotificationApplicationUpdate NotificationType = "application_update"
	NotificationGeneral           NotificationType = "general"
)

// Notification is an in-app inbox item. Only IsRead changes after insert.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Data      json.RawMessage
	IsRead    bool
	CreatedAt time.Time
}
