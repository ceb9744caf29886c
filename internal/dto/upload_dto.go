package dto

import "time"

// UploadResponse describes the stored asset metadata returned to the client.
type UploadResponse struct {
	ID        uint      `json:"id"`
	Purpose   string    `json:"purpose"`
	URL       string    `json:"url"`
	PublicID  string    `json:"public_id"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	Checksum  string    `json:"checksum"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadListRequest filters the media library.
type UploadListRequest struct {
	Purpose  string
	Page     int
	PageSize int
}

// UploadListResponse wraps a page of uploads.
type UploadListResponse struct {
	Items      []UploadResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}
