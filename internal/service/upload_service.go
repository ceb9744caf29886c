package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/observability"
	"github.com/noah-isme/vastu-api/internal/repository"
	"github.com/noah-isme/vastu-api/pkg/cloudinary"
)

// Upload purposes.
const (
	UploadPurposeMedia        = models.UploadPurposeMedia
	UploadPurposeStudentPhoto = models.UploadPurposeStudentPhoto
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadMissing indicates no file was attached.
	ErrUploadMissing = errors.New("file is required")
	// ErrUploadStorageDisabled indicates no storage backend is configured.
	ErrUploadStorageDisabled = errors.New("file storage is not configured")
	// ErrUploadNotFound indicates the upload record does not exist.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrUploadInUse indicates the asset belongs to a student profile and is managed there.
	ErrUploadInUse = errors.New("upload is attached to a student profile")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// PhotoStorage abstracts the image host.
type PhotoStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (cloudinary.Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// UploadService handles validation and persistence of uploads.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, adminID *uint) (dto.UploadResponse, error)
	StorePhoto(ctx context.Context, photo dto.PhotoUpload, adminID *uint, purpose string) (dto.UploadResponse, error)
	Remove(ctx context.Context, publicID string) error
	List(ctx context.Context, req dto.UploadListRequest) (dto.UploadListResponse, error)
	Delete(ctx context.Context, id uint) error
}

type uploadService struct {
	storage PhotoStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service. storage may be nil when no image host is configured.
func NewUploadService(storage PhotoStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/vastu-api/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, adminID *uint) (dto.UploadResponse, error) {
	if file == nil {
		return dto.UploadResponse{}, ErrUploadMissing
	}
	if file.Size > s.maxSize {
		observability.Uploads().WithLabelValues("too_large").Inc()
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	content, err := s.read(handle)
	if err != nil {
		return dto.UploadResponse{}, err
	}

	return s.StorePhoto(ctx, dto.PhotoUpload{FileName: file.Filename, Content: content}, adminID, UploadPurposeMedia)
}

// StorePhoto validates an image and hands it to the storage backend. Media uploads with a
// known checksum reuse the existing asset.
func (s *uploadService) StorePhoto(ctx context.Context, photo dto.PhotoUpload, adminID *uint, purpose string) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store", trace.WithAttributes(
		attribute.String("upload.purpose", purpose),
		attribute.Int64("upload.max_bytes", s.maxSize),
	))
	defer span.End()

	if len(photo.Content) == 0 {
		span.SetStatus(codes.Error, "missing file")
		return dto.UploadResponse{}, ErrUploadMissing
	}
	if int64(len(photo.Content)) > s.maxSize {
		observability.Uploads().WithLabelValues("too_large").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	fileType := mimetype.Detect(photo.Content).String()
	if idx := strings.Index(fileType, ";"); idx >= 0 {
		fileType = fileType[:idx]
	}
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !allowedImageTypes[fileType] {
		observability.Uploads().WithLabelValues("rejected_type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	sum := sha256.Sum256(photo.Content)
	checksum := hex.EncodeToString(sum[:])
	fileName := sanitizeFileName(photo.FileName)

	if purpose == UploadPurposeMedia {
		existing, err := s.repo.FindByChecksum(ctx, checksum)
		if err != nil {
			span.RecordError(err)
			return dto.UploadResponse{}, err
		}
		if existing != nil {
			observability.Uploads().WithLabelValues("reused").Inc()
			span.SetStatus(codes.Ok, "reused")
			return toUploadResponse(*existing), nil
		}
	}

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage disabled")
		return dto.UploadResponse{}, ErrUploadStorageDisabled
	}

	asset, err := s.storage.Upload(ctx, fileName, bytes.NewReader(photo.Content))
	if err != nil {
		observability.Uploads().WithLabelValues("storage_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, fmt.Errorf("store %s: %w", fileName, err)
	}

	record := models.UploadRecord{
		AdminID:   adminID,
		Purpose:   purpose,
		FileName:  fileName,
		URL:       asset.URL,
		PublicID:  asset.PublicID,
		MimeType:  fileType,
		SizeBytes: int64(len(photo.Content)),
		Checksum:  checksum,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.UploadResponse{}, err
	}

	observability.Uploads().WithLabelValues("stored").Inc()
	observability.UploadSize().Observe(float64(record.SizeBytes))
	s.logger.Info().Str("public_id", record.PublicID).Str("purpose", purpose).Int64("size", record.SizeBytes).Msg("upload stored")
	span.SetStatus(codes.Ok, "stored")

	return toUploadResponse(record), nil
}

// Remove destroys the hosted asset and forgets its record. Without storage it only forgets the record.
func (s *uploadService) Remove(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil
	}
	if s.storage != nil {
		if err := s.storage.Destroy(ctx, publicID); err != nil {
			s.logger.Warn().Err(err).Str("public_id", publicID).Msg("failed to remove stored photo")
			return err
		}
	}
	return s.repo.DeleteByPublicID(ctx, publicID)
}

func (s *uploadService) List(ctx context.Context, req dto.UploadListRequest) (dto.UploadListResponse, error) {
	filter := repository.UploadFilter{
		Purpose:  strings.TrimSpace(req.Purpose),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.UploadListResponse{}, err
	}

	items := make([]dto.UploadResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toUploadResponse(record))
	}
	return dto.UploadListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// Delete removes a media library upload. Student photos go with their profile instead.
func (s *uploadService) Delete(ctx context.Context, id uint) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUploadNotFound
		}
		return err
	}
	if record.Purpose == UploadPurposeStudentPhoto {
		return ErrUploadInUse
	}

	if s.storage != nil && record.PublicID != "" {
		if err := s.storage.Destroy(ctx, record.PublicID); err != nil {
			return fmt.Errorf("destroy %s: %w", record.PublicID, err)
		}
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUploadNotFound
		}
		return err
	}

	observability.Uploads().WithLabelValues("deleted").Inc()
	s.logger.Info().Uint("upload_id", id).Str("public_id", record.PublicID).Msg("upload deleted")
	return nil
}

func (s *uploadService) read(reader io.Reader) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(reader, s.maxSize+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.Uploads().WithLabelValues("too_large").Inc()
		return nil, ErrUploadTooLarge
	}
	return buf.Bytes(), nil
}

func toUploadResponse(record models.UploadRecord) dto.UploadResponse {
	return dto.UploadResponse{
		ID:        record.ID,
		Purpose:   record.Purpose,
		CreatedAt: record.CreatedAt,
		URL:       record.URL,
		PublicID:  record.PublicID,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
	}
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" || base == "." {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".img"
	}
	return base + ext
}
