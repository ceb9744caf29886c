package models

import "time"

// Contact submission statuses.
const (
	ContactStatusQueued = "queued"
	ContactStatusSent   = "sent"
)

// ContactSubmission stores inbound enquiries from the public contact form.
type ContactSubmission struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ReferenceID string     `gorm:"size:64;uniqueIndex" json:"reference_id"`
	Name        string     `gorm:"size:128;not null" json:"name"`
	Email       string     `gorm:"size:160;not null;index" json:"email"`
	Phone       string     `gorm:"size:32" json:"phone"`
	Service     string     `gorm:"size:64;index" json:"service"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	Source      string     `gorm:"size:64" json:"source"`
	Status      string     `gorm:"size:32;not null" json:"status"`
	Checksum    string     `gorm:"size:128;index" json:"checksum"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// Upload purposes. Media uploads are deduplicated by checksum; student photos never are.
const (
	UploadPurposeMedia        = "media"
	UploadPurposeStudentPhoto = "student_photo"
)

// UploadRecord stores metadata about an image held by the image host.
type UploadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdminID   *uint     `gorm:"index" json:"admin_id"`
	Purpose   string    `gorm:"size:64;index" json:"purpose"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	PublicID  string    `gorm:"size:255" json:"public_id"`
	MimeType  string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Checksum  string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}
