package dto

import (
	"time"

	"github.com/noah-isme/vastu-api/internal/models"
)

// ContactServices lists the consultation types the contact form accepts.
var ContactServices = []ContactServiceOption{
	{Value: "vastu", Label: "Vastu consultation"},
	{Value: "astrology", Label: "Astrology reading"},
	{Value: "numerology", Label: "Numerology"},
	{Value: "course", Label: "Course enquiry"},
	{Value: "other", Label: "Something else"},
}

// ContactServiceOption is one entry of the contact form service picker.
type ContactServiceOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ContactRequest defines the expected payload for the contact form endpoint.
type ContactRequest struct {
	Name      string `json:"name" form:"name" validate:"required,min=2,max=120"`
	Email     string `json:"email" form:"email" validate:"required,email,max=160"`
	Phone     string `json:"phone" form:"phone" validate:"omitempty,min=6,max=32"`
	Service   string `json:"service" form:"service" validate:"omitempty,oneof=vastu astrology numerology course other"`
	Message   string `json:"message" form:"message" validate:"required,min=10,max=2000"`
	Source    string `json:"source" form:"source" validate:"omitempty,max=60"`
	Honeypot  string `json:"_note" form:"_note"`
	IPAddress string `json:"-"`
}

// ContactResponse communicates the status of the submission processing.
type ContactResponse struct {
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}

// AdminContactListRequest defines filters for the contact inbox.
type AdminContactListRequest struct {
	Page     int
	PageSize int
	Search   string
	Service  string
	Unread   bool
}

// AdminContactResponse serializes a contact submission for the inbox.
type AdminContactResponse struct {
	ID          uint       `json:"id"`
	ReferenceID string     `json:"reference_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Service     string     `json:"service"`
	Message     string     `json:"message"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// AdminContactListResponse wraps a page of contact submissions.
type AdminContactListResponse struct {
	Items      []AdminContactResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}

// NewAdminContactResponse converts a model into an inbox DTO.
func NewAdminContactResponse(model models.ContactSubmission) AdminContactResponse {
	return AdminContactResponse{
		ID:          model.ID,
		ReferenceID: model.ReferenceID,
		Name:        model.Name,
		Email:       model.Email,
		Phone:       model.Phone,
		Service:     model.Service,
		Message:     model.Message,
		Source:      model.Source,
		Status:      model.Status,
		Read:        model.ReadAt != nil,
		ReadAt:      model.ReadAt,
		CreatedAt:   model.CreatedAt,
		DeliveredAt: model.DeliveredAt,
	}
}
