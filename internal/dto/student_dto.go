package dto

import (
	"time"

	"github.com/noah-isme/vastu-api/internal/models"
)

// StudentProfileRequest captures the multipart form for creating or updating a profile.
// Repeated groups arrive as JSON encoded form fields and are decoded by the handler.
type StudentProfileRequest struct {
	Name         string                  `json:"name" validate:"required,min=2,max=255"`
	Email        string                  `json:"email" validate:"omitempty,email,max=255"`
	Phone        string                  `json:"phone" validate:"omitempty,min=6,max=32"`
	Headline     string                  `json:"headline" validate:"omitempty,max=255"`
	Bio          string                  `json:"bio" validate:"omitempty,max=5000"`
	City         string                  `json:"city" validate:"omitempty,max=128"`
	Status       string                  `json:"status" validate:"omitempty,oneof=draft published"`
	Education    []models.EducationEntry `json:"education" validate:"omitempty,max=20,dive"`
	Projects     []models.ProjectEntry   `json:"projects" validate:"omitempty,max=50,dive"`
	Testimonials []models.Testimonial    `json:"testimonials" validate:"omitempty,max=50,dive"`
	Photo        *PhotoUpload            `json:"-"`
	RemovePhoto  bool                    `json:"remove_photo"`
}

// PhotoUpload is an image attached to a profile form.
type PhotoUpload struct {
	FileName string
	Content  []byte
}

// StudentProfileListRequest filters profile listings.
type StudentProfileListRequest struct {
	Page     int
	PageSize int
	Search   string
	Status   string
	City     string
}

// StudentProfileResponse serializes a profile.
type StudentProfileResponse struct {
	ID           uint                    `json:"id"`
	Slug         string                  `json:"slug"`
	Name         string                  `json:"name"`
	Email        string                  `json:"email,omitempty"`
	Phone        string                  `json:"phone,omitempty"`
	Headline     string                  `json:"headline"`
	Bio          string                  `json:"bio"`
	City         string                  `json:"city"`
	PhotoURL     string                  `json:"photo_url"`
	Status       string                  `json:"status"`
	Education    []models.EducationEntry `json:"education"`
	Projects     []models.ProjectEntry   `json:"projects"`
	Testimonials []models.Testimonial    `json:"testimonials"`
	PublishedAt  *time.Time              `json:"published_at"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// StudentProfileListResponse wraps a page of profiles.
type StudentProfileListResponse struct {
	Items      []StudentProfileResponse `json:"items"`
	Pagination PaginationMeta           `json:"pagination"`
}

// NewStudentProfileResponse converts a model. Contact details are omitted for public responses.
func NewStudentProfileResponse(model models.StudentProfile, includeContact bool) StudentProfileResponse {
	response := StudentProfileResponse{
		ID:           model.ID,
		Slug:         model.Slug,
		Name:         model.Name,
		Headline:     model.Headline,
		Bio:          model.Bio,
		City:         model.City,
		PhotoURL:     model.PhotoURL,
		Status:       model.Status,
		Education:    nonNil(model.Education),
		Projects:     nonNil(model.Projects),
		Testimonials: nonNil(model.Testimonials),
		PublishedAt:  model.PublishedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if includeContact {
		response.Email = model.Email
		response.Phone = model.Phone
	}
	return response
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
