package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types raised for administrators.
const (
	NotificationNewContact       = "contact.received"
	NotificationNewQuestionnaire = "questionnaire.received"
	NotificationDeliveryFailed   = "questionnaire.delivery_failed"
)

// Notification is a back-office alert about a new lead or a failed delivery.
// ReadAt stays nil until an administrator acknowledges it.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Audience  string            `gorm:"size:64;index" json:"audience"`
	Type      string            `gorm:"size:64;index" json:"type"`
	Title     string            `gorm:"size:255" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Data      datatypes.JSONMap `gorm:"type:json" json:"data"`
	ReadAt    *time.Time        `gorm:"index" json:"read_at"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
