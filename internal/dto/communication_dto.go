package dto

import (
	"time"

	"github.com/noah-isme/vastu-api/internal/models"
)

// NotificationCreateRequest describes an admin notification to persist and publish.
type NotificationCreateRequest struct {
	Audience string                 `json:"audience" validate:"required,max=64"`
	Type     string                 `json:"type" validate:"required,max=64"`
	Title    string                 `json:"title" validate:"required,max=255"`
	Message  string                 `json:"message" validate:"required,min=1,max=2000"`
	Data     map[string]interface{} `json:"data"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	Audience  string                 `json:"audience"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		Audience:  model.Audience,
		Type:      model.Type,
		Title:     model.Title,
		Message:   model.Message,
		Data:      metadataFromJSON(model.Data),
		Read:      model.ReadAt != nil,
		ReadAt:    model.ReadAt,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
