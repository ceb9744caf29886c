package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Student profile publication states.
const (
	StudentStatusDraft     = "draft"
	StudentStatusPublished = "published"
)

// EducationEntry is one qualification listed on a student profile.
type EducationEntry struct {
	Institution string `json:"institution"`
	Course      string `json:"course"`
	Year        string `json:"year"`
}

// ProjectEntry is a consultation project completed by a student.
type ProjectEntry struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Testimonial is a client quote shown on a student profile.
type Testimonial struct {
	Author string `json:"author"`
	Quote  string `json:"quote"`
}

// StudentProfile is a graduate of the consultancy's course showcased on the site.
type StudentProfile struct {
	ID            uint                                `gorm:"primaryKey" json:"id"`
	Slug          string                              `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	Name          string                              `gorm:"size:255;not null" json:"name"`
	Email         string                              `gorm:"size:255" json:"email"`
	Phone         string                              `gorm:"size:32" json:"phone"`
	Headline      string                              `gorm:"size:255" json:"headline"`
	Bio           string                              `gorm:"type:text" json:"bio"`
	City          string                              `gorm:"size:128;index" json:"city"`
	PhotoURL      string                              `gorm:"size:512" json:"photo_url"`
	PhotoPublicID string                              `gorm:"size:255" json:"-"`
	Status        string                              `gorm:"size:32;not null;index" json:"status"`
	Education     datatypes.JSONSlice[EducationEntry] `gorm:"type:json" json:"education"`
	Projects      datatypes.JSONSlice[ProjectEntry]   `gorm:"type:json" json:"projects"`
	Testimonials  datatypes.JSONSlice[Testimonial]    `gorm:"type:json" json:"testimonials"`
	PublishedAt   *time.Time                          `json:"published_at"`
	CreatedAt     time.Time                           `json:"created_at"`
	UpdatedAt     time.Time                           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt                      `gorm:"index" json:"-"`
}
