package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/repository"
)

type studentFixture struct {
	svc      StudentProfileService
	storage  *storageStub
	activity *activityStub
}

func newStudentFixture(t *testing.T) studentFixture {
	t.Helper()
	db := openServiceTestDB(t, &models.StudentProfile{}, &models.UploadRecord{})
	storage := &storageStub{}
	activity := &activityStub{}
	uploads := NewUploadService(storage, repository.NewUploadRepository(db), 2, testLogger())
	svc := NewStudentProfileService(repository.NewStudentProfileRepository(db), uploads, validator.New(), activity, testLogger())
	return studentFixture{svc: svc, storage: storage, activity: activity}
}

func profileRequest(name string) dto.StudentProfileRequest {
	return dto.StudentProfileRequest{
		Name:     name,
		Email:    "Kavya@Example.com",
		Headline: "Certified Vastu consultant",
		Bio:      "<p>Ten years of <b>residential</b> practice.</p>",
		City:     "Pune",
		Education: []models.EducationEntry{
			{Institution: "Institute of Vastu", Course: "Advanced Vastu", Year: "2019"},
			{},
		},
		Projects:     []models.ProjectEntry{{Title: "Villa remodel", Location: "Goa"}},
		Testimonials: []models.Testimonial{{Author: "R. Shah", Quote: "Sleep improved within weeks."}},
	}
}

func TestStudentProfileServiceCreate(t *testing.T) {
	f := newStudentFixture(t)
	actor := ActivityActor{ID: 1, Role: RoleAdmin}

	req := profileRequest("Kavya Iyer")
	req.Photo = &dto.PhotoUpload{FileName: "kavya.png", Content: pngHeader}

	created, err := f.svc.Create(context.Background(), actor, req)
	require.NoError(t, err)
	require.Equal(t, "kavya-iyer", created.Slug)
	require.Equal(t, models.StudentStatusDraft, created.Status)
	require.Equal(t, "kavya@example.com", created.Email)
	require.Equal(t, "Ten years of residential practice.", created.Bio)
	require.Len(t, created.Education, 1)
	require.Equal(t, "https://cdn.example.com/kavya.png", created.PhotoURL)
	require.Nil(t, created.PublishedAt)

	second, err := f.svc.Create(context.Background(), actor, profileRequest("Kavya  Iyer"))
	require.NoError(t, err)
	require.Equal(t, "kavya-iyer-2", second.Slug)

	require.Len(t, f.activity.entries, 2)
	require.Equal(t, ActionStudentCreate, f.activity.entries[0].Action)
}

func TestStudentProfileServiceRejectsInvalidInput(t *testing.T) {
	f := newStudentFixture(t)

	req := profileRequest("K")
	_, err := f.svc.Create(context.Background(), ActivityActor{ID: 1}, req)
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	req = profileRequest("Kavya Iyer")
	req.Photo = &dto.PhotoUpload{FileName: "cv.txt", Content: []byte("plain text resume")}
	_, err = f.svc.Create(context.Background(), ActivityActor{ID: 1}, req)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestStudentProfileServicePublishAndVisibility(t *testing.T) {
	f := newStudentFixture(t)
	actor := ActivityActor{ID: 1, Role: RoleAdmin}

	created, err := f.svc.Create(context.Background(), actor, profileRequest("Arjun Menon"))
	require.NoError(t, err)

	_, err = f.svc.GetPublished(context.Background(), created.Slug)
	require.ErrorIs(t, err, ErrStudentProfileNotFound)

	req := profileRequest("Arjun Menon")
	req.Status = models.StudentStatusPublished
	updated, err := f.svc.Update(context.Background(), actor, created.ID, req)
	require.NoError(t, err)
	require.NotNil(t, updated.PublishedAt)
	require.Equal(t, created.Slug, updated.Slug)

	public, err := f.svc.GetPublished(context.Background(), "Arjun-Menon")
	require.NoError(t, err)
	require.Empty(t, public.Email)

	list, err := f.svc.ListPublished(context.Background(), dto.StudentProfileListRequest{Status: models.StudentStatusDraft})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Empty(t, list.Items[0].Email)

	adminList, err := f.svc.List(context.Background(), dto.StudentProfileListRequest{})
	require.NoError(t, err)
	require.Equal(t, "kavya@example.com", adminList.Items[0].Email)
}

func TestStudentProfileServiceReplacesAndRemovesPhoto(t *testing.T) {
	f := newStudentFixture(t)
	actor := ActivityActor{ID: 1, Role: RoleAdmin}

	req := profileRequest("Nisha Rao")
	req.Photo = &dto.PhotoUpload{FileName: "first.png", Content: pngHeader}
	created, err := f.svc.Create(context.Background(), actor, req)
	require.NoError(t, err)

	req = profileRequest("Nisha R Rao")
	req.Photo = &dto.PhotoUpload{FileName: "second.png", Content: pngHeader}
	updated, err := f.svc.Update(context.Background(), actor, created.ID, req)
	require.NoError(t, err)
	require.Equal(t, "nisha-r-rao", updated.Slug)
	require.Equal(t, "https://cdn.example.com/second.png", updated.PhotoURL)
	require.Equal(t, []string{"students/first.png"}, f.storage.destroyed)

	req = profileRequest("Nisha R Rao")
	req.RemovePhoto = true
	updated, err = f.svc.Update(context.Background(), actor, created.ID, req)
	require.NoError(t, err)
	require.Empty(t, updated.PhotoURL)
	require.Equal(t, []string{"students/first.png", "students/second.png"}, f.storage.destroyed)
}

func TestStudentProfileServiceDelete(t *testing.T) {
	f := newStudentFixture(t)
	actor := ActivityActor{ID: 2, Role: RoleAdmin}

	created, err := f.svc.Create(context.Background(), actor, profileRequest("Dev Patel"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), actor, created.ID))
	_, err = f.svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrStudentProfileNotFound)
	require.ErrorIs(t, f.svc.Delete(context.Background(), actor, created.ID), ErrStudentProfileNotFound)

	// the slug stays reserved by the soft deleted row
	again, err := f.svc.Create(context.Background(), actor, profileRequest("Dev Patel"))
	require.NoError(t, err)
	require.Equal(t, "dev-patel-2", again.Slug)

	last := f.activity.entries[len(f.activity.entries)-2]
	require.Equal(t, ActionStudentDelete, last.Action)
}
