package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/repository"
	"github.com/noah-isme/vastu-api/pkg/cloudinary"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type storageStub struct {
	uploaded  bytes.Buffer
	calls     int
	destroyed []string
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (cloudinary.Asset, error) {
	s.calls++
	s.uploaded.Reset()
	if _, err := s.uploaded.ReadFrom(reader); err != nil {
		return cloudinary.Asset{}, err
	}
	return cloudinary.Asset{URL: "https://cdn.example.com/" + name, PublicID: "students/" + name}, nil
}

func (s *storageStub) Destroy(ctx context.Context, publicID string) error {
	s.destroyed = append(s.destroyed, publicID)
	return nil
}

type uploadRepoStub struct {
	records []models.UploadRecord
}

func (u *uploadRepoStub) Create(ctx context.Context, record *models.UploadRecord) error {
	record.ID = uint(len(u.records) + 1)
	u.records = append(u.records, *record)
	return nil
}

func (u *uploadRepoStub) FindByChecksum(ctx context.Context, checksum string) (*models.UploadRecord, error) {
	for i := range u.records {
		if u.records[i].Checksum == checksum && u.records[i].Purpose == models.UploadPurposeMedia {
			record := u.records[i]
			return &record, nil
		}
	}
	return nil, nil
}

func (u *uploadRepoStub) GetByID(ctx context.Context, id uint) (models.UploadRecord, error) {
	for _, record := range u.records {
		if record.ID == id {
			return record, nil
		}
	}
	return models.UploadRecord{}, gorm.ErrRecordNotFound
}

func (u *uploadRepoStub) List(ctx context.Context, filter repository.UploadFilter) ([]models.UploadRecord, int64, error) {
	var matched []models.UploadRecord
	for _, record := range u.records {
		if filter.Purpose == "" || record.Purpose == filter.Purpose {
			matched = append(matched, record)
		}
	}
	return matched, int64(len(matched)), nil
}

func (u *uploadRepoStub) DeleteByID(ctx context.Context, id uint) error {
	for i, record := range u.records {
		if record.ID == id {
			u.records = append(u.records[:i], u.records[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (u *uploadRepoStub) DeleteByPublicID(ctx context.Context, publicID string) error {
	kept := u.records[:0]
	for _, record := range u.records {
		if record.PublicID != publicID {
			kept = append(kept, record)
		}
	}
	u.records = kept
	return nil
}

func TestUploadServiceRejectsSize(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 1, testLogger())

	file := buildFileHeader(t, "photo.png", bytes.Repeat([]byte("a"), 2*1024*1024))

	_, err := svc.Upload(context.Background(), file, nil)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestUploadServiceTypeValidation(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 5, testLogger())

	file := buildFileHeader(t, "file.txt", []byte("plain text"))
	_, err := svc.Upload(context.Background(), file, nil)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)

	_, err = svc.StorePhoto(context.Background(), dto.PhotoUpload{FileName: "doc.pdf", Content: []byte("%PDF-1.4\n")}, nil, UploadPurposeStudentPhoto)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestUploadServiceSuccess(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())

	file := buildFileHeader(t, "Site Plan.PNG", pngHeader)

	resp, err := svc.Upload(context.Background(), file, ptrUint(7))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/site-plan.png", resp.URL)
	require.Equal(t, "students/site-plan.png", resp.PublicID)
	require.Len(t, repo.records, 1)
	require.Equal(t, "image/png", repo.records[0].MimeType)
	require.Equal(t, UploadPurposeMedia, repo.records[0].Purpose)
	require.Equal(t, uint(7), *repo.records[0].AdminID)
	require.Equal(t, pngHeader, storage.uploaded.Bytes())
}

func TestUploadServiceReusesMediaByChecksum(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())

	first, err := svc.Upload(context.Background(), buildFileHeader(t, "a.png", pngHeader), nil)
	require.NoError(t, err)
	second, err := svc.Upload(context.Background(), buildFileHeader(t, "b.png", pngHeader), nil)
	require.NoError(t, err)

	require.Equal(t, first.URL, second.URL)
	require.Equal(t, 1, storage.calls)

	// profile photos are always stored separately
	_, err = svc.StorePhoto(context.Background(), dto.PhotoUpload{FileName: "c.png", Content: pngHeader}, nil, UploadPurposeStudentPhoto)
	require.NoError(t, err)
	require.Equal(t, 2, storage.calls)
}

func TestUploadServiceWithoutStorage(t *testing.T) {
	svc := NewUploadService(nil, &uploadRepoStub{}, 5, testLogger())

	_, err := svc.StorePhoto(context.Background(), dto.PhotoUpload{FileName: "c.png", Content: pngHeader}, nil, UploadPurposeStudentPhoto)
	require.ErrorIs(t, err, ErrUploadStorageDisabled)
	require.NoError(t, svc.Remove(context.Background(), "students/c"))
}

func TestUploadServiceLibrary(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())
	ctx := context.Background()

	media, err := svc.Upload(ctx, buildFileHeader(t, "plan.png", pngHeader), nil)
	require.NoError(t, err)
	photo, err := svc.StorePhoto(ctx, dto.PhotoUpload{FileName: "asha.png", Content: append(pngHeader, 0x01)}, nil, UploadPurposeStudentPhoto)
	require.NoError(t, err)

	page, err := svc.List(ctx, dto.UploadListRequest{Purpose: UploadPurposeMedia})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, media.ID, page.Items[0].ID)
	require.Equal(t, int64(1), page.Pagination.TotalItems)

	require.ErrorIs(t, svc.Delete(ctx, photo.ID), ErrUploadInUse)
	require.ErrorIs(t, svc.Delete(ctx, 99), ErrUploadNotFound)

	require.NoError(t, svc.Delete(ctx, media.ID))
	require.Equal(t, []string{media.PublicID}, storage.destroyed)

	require.NoError(t, svc.Remove(ctx, photo.PublicID))
	require.Empty(t, repo.records)
}

func TestSanitizeFileName(t *testing.T) {
	require.Equal(t, "my-house-plan.jpg", sanitizeFileName("My House Plan.JPG"))
	require.Equal(t, "passwd.img", sanitizeFileName("../../etc/passwd"))
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
