package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

func setupTestDB(t *testing.T, tables ...interface{}) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(tables...))
	return db
}

func TestContactRepositoryInboxLifecycle(t *testing.T) {
	db := setupTestDB(t, &models.ContactSubmission{})
	repo := NewContactRepository(db)
	ctx := context.Background()

	older := models.ContactSubmission{ReferenceID: "ref-1", Name: "Asha", Email: "asha@example.com", Service: "vastu", Message: "Please review my flat", Status: models.ContactStatusQueued, CreatedAt: time.Now().Add(-time.Hour)}
	newer := models.ContactSubmission{ReferenceID: "ref-2", Name: "Ravi", Email: "ravi@example.com", Service: "astrology", Message: "Birth chart reading", Status: models.ContactStatusQueued}
	require.NoError(t, repo.Create(ctx, &older))
	require.NoError(t, repo.Create(ctx, &newer))

	require.NoError(t, repo.UpdateStatus(ctx, older.ID, models.ContactStatusSent))
	stored, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	require.Equal(t, models.ContactStatusSent, stored.Status)
	require.NotNil(t, stored.DeliveredAt)

	items, total, err := repo.List(ctx, ContactFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "ref-2", items[0].ReferenceID, "newest first")

	items, total, err = repo.List(ctx, ContactFilter{Search: "FLAT", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "ref-1", items[0].ReferenceID)

	readAt := time.Now().UTC()
	marked, err := repo.MarkRead(ctx, older.ID, readAt)
	require.NoError(t, err)
	require.NotNil(t, marked.ReadAt)

	_, total, err = repo.List(ctx, ContactFilter{Unread: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	all, unread, err := repo.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), all)
	require.Equal(t, int64(1), unread)

	require.NoError(t, repo.Delete(ctx, newer.ID))
	require.ErrorIs(t, repo.Delete(ctx, newer.ID), gorm.ErrRecordNotFound)
}

func TestQuestionnaireRepositoryDeliveryAndStats(t *testing.T) {
	db := setupTestDB(t, &models.QuestionnaireResult{})
	repo := NewQuestionnaireRepository(db)
	ctx := context.Background()

	first := models.QuestionnaireResult{
		ReferenceID:  "q-1",
		Name:         "Asha",
		Email:        "asha@example.com",
		Answers:      datatypes.NewJSONType(map[int]string{1: "North", 3: "Yes"}),
		Positive:     datatypes.NewJSONType(map[int]bool{1: true, 3: true}),
		ScorePercent: 90,
		GradeLetter:  "A",
		GradeLabel:   "Excellent",
		Status:       models.QuestionnaireStatusPending,
	}
	second := models.QuestionnaireResult{
		ReferenceID:  "q-2",
		Name:         "Ravi",
		Email:        "ravi@example.com",
		Answers:      datatypes.NewJSONType(map[int]string{}),
		Positive:     datatypes.NewJSONType(map[int]bool{}),
		ScorePercent: 40,
		GradeLetter:  "D",
		GradeLabel:   "Needs Attention",
		Status:       models.QuestionnaireStatusPending,
	}
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))

	require.NoError(t, repo.RecordDelivery(ctx, first.ID, models.QuestionnaireStatusSent, ""))
	require.NoError(t, repo.RecordDelivery(ctx, second.ID, models.QuestionnaireStatusFailed, "relay down"))
	require.ErrorIs(t, repo.RecordDelivery(ctx, 999, models.QuestionnaireStatusSent, ""), gorm.ErrRecordNotFound)

	require.NoError(t, repo.MarkOperatorNotified(ctx, second.ID))
	marked, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, marked.OperatorNotifiedAt)
	stamp := *marked.OperatorNotifiedAt
	require.NoError(t, repo.MarkOperatorNotified(ctx, second.ID))
	marked, err = repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, stamp.Equal(*marked.OperatorNotifiedAt))
	require.ErrorIs(t, repo.MarkOperatorNotified(ctx, 999), gorm.ErrRecordNotFound)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.QuestionnaireStatusSent, stored.Status)
	require.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.DeliveredAt)
	require.Equal(t, "North", stored.Answers.Data()[1])

	failed, total, err := repo.List(ctx, QuestionnaireFilter{Status: models.QuestionnaireStatusFailed})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "relay down", failed[0].FailureReason)

	_, total, err = repo.List(ctx, QuestionnaireFilter{Grade: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.ByStatus[models.QuestionnaireStatusSent])
	require.Equal(t, int64(1), stats.ByGrade["D"])
	require.InDelta(t, 65.0, stats.AverageScore, 0.001)
}

func TestStudentProfileRepositoryListAndSoftDelete(t *testing.T) {
	db := setupTestDB(t, &models.StudentProfile{})
	repo := NewStudentProfileRepository(db)
	ctx := context.Background()

	published := models.StudentProfile{
		Slug:      "meera-iyer",
		Name:      "Meera Iyer",
		Headline:  "Residential Vastu consultant",
		City:      "Chennai",
		Status:    models.StudentStatusPublished,
		Education: datatypes.NewJSONSlice([]models.EducationEntry{{Institution: "Vastu Academy", Course: "Diploma", Year: "2021"}}),
		CreatedAt: time.Now().Add(-time.Hour),
	}
	draft := models.StudentProfile{Slug: "arjun-rao", Name: "Arjun Rao", City: "Pune", Status: models.StudentStatusDraft}
	require.NoError(t, repo.Create(ctx, &published))
	require.NoError(t, repo.Create(ctx, &draft))

	items, total, err := repo.List(ctx, StudentProfileFilter{Status: models.StudentStatusPublished, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Diploma", items[0].Education[0].Course)

	_, total, err = repo.List(ctx, StudentProfileFilter{City: "chennai"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	bySlug, err := repo.GetBySlug(ctx, "arjun-rao")
	require.NoError(t, err)
	require.Equal(t, draft.ID, bySlug.ID)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[models.StudentStatusDraft])
	require.Equal(t, int64(1), counts[models.StudentStatusPublished])

	require.NoError(t, repo.SoftDelete(ctx, draft.ID))
	_, err = repo.GetByID(ctx, draft.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.ErrorIs(t, repo.SoftDelete(ctx, draft.ID), gorm.ErrRecordNotFound)

	exists, err := repo.SlugExists(ctx, "arjun-rao", 0)
	require.NoError(t, err)
	require.True(t, exists, "soft deleted slugs stay reserved")

	exists, err = repo.SlugExists(ctx, "meera-iyer", published.ID)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAdminUserRepository(t *testing.T) {
	db := setupTestDB(t, &models.AdminUser{})
	repo := NewAdminUserRepository(db)
	ctx := context.Background()

	user := models.AdminUser{Email: "owner@example.com", Name: "Owner", PasswordHash: "hash", Role: "admin", Active: true}
	require.NoError(t, repo.Create(ctx, &user))

	found, err := repo.GetByEmail(ctx, " OWNER@example.com ")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	require.NoError(t, repo.TouchLogin(ctx, user.ID, time.Now().UTC()))
	found, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
}

func TestNotificationRepositoryAudience(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	first := models.Notification{Audience: "admin", Type: models.NotificationNewContact, Title: "New enquiry", Message: "Asha wrote in"}
	second := models.Notification{Audience: "admin", Type: models.NotificationNewQuestionnaire, Title: "New questionnaire", Message: "Grade B"}
	other := models.Notification{Audience: "ops", Type: "other", Title: "x", Message: "y"}
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))
	require.NoError(t, repo.Create(ctx, &other))

	items, err := repo.ListByAudience(ctx, "admin", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, err = repo.MarkRead(ctx, other.ID, "admin")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	marked, err := repo.MarkRead(ctx, first.ID, "admin")
	require.NoError(t, err)
	require.NotNil(t, marked.ReadAt)

	unread, err := repo.CountUnread(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, int64(1), unread)

	items, err = repo.ListByAudience(ctx, "admin", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, second.ID, items[0].ID)

	changed, err := repo.MarkAllRead(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, int64(1), changed)

	unread, err = repo.CountUnread(ctx, "admin")
	require.NoError(t, err)
	require.Zero(t, unread)

	unread, err = repo.CountUnread(ctx, "ops")
	require.NoError(t, err)
	require.Equal(t, int64(1), unread)
}

func TestUploadRepositoryFindByChecksum(t *testing.T) {
	db := setupTestDB(t, &models.UploadRecord{})
	repo := NewUploadRepository(db)
	ctx := context.Background()

	missing, err := repo.FindByChecksum(ctx, "abc")
	require.NoError(t, err)
	require.Nil(t, missing)

	photo := models.UploadRecord{Purpose: models.UploadPurposeStudentPhoto, FileName: "asha.png", URL: "https://cdn/asha.png", PublicID: "students/asha", MimeType: "image/png", SizeBytes: 10, Checksum: "abc"}
	require.NoError(t, repo.Create(ctx, &photo))

	missing, err = repo.FindByChecksum(ctx, "abc")
	require.NoError(t, err)
	require.Nil(t, missing, "student photos are never reused")

	record := models.UploadRecord{Purpose: models.UploadPurposeMedia, FileName: "photo.png", URL: "https://cdn/photo.png", PublicID: "media/photo", MimeType: "image/png", SizeBytes: 10, Checksum: "abc"}
	require.NoError(t, repo.Create(ctx, &record))

	found, err := repo.FindByChecksum(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, record.ID, found.ID)

	items, total, err := repo.List(ctx, UploadFilter{Purpose: models.UploadPurposeMedia})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, record.ID, items[0].ID)

	require.NoError(t, repo.DeleteByPublicID(ctx, "students/asha"))
	require.NoError(t, repo.DeleteByPublicID(ctx, "students/unknown"))
	require.NoError(t, repo.DeleteByID(ctx, record.ID))
	require.ErrorIs(t, repo.DeleteByID(ctx, record.ID), gorm.ErrRecordNotFound)

	_, total, err = repo.List(ctx, UploadFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestActivityLogRepositoryFilters(t *testing.T) {
	db := setupTestDB(t, &models.ActivityLog{})
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	entityID := uint(7)
	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 1, ActorRole: "admin", Action: "student_profile.create", EntityType: "student_profile", EntityID: &entityID}))
	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 2, ActorRole: "admin", Action: "contact.delete", EntityType: "contact"}))

	actor := uint(1)
	entries, total, err := repo.List(ctx, ActivityLogFilter{ActorID: &actor})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "student_profile.create", entries[0].Action)

	_, total, err = repo.List(ctx, ActivityLogFilter{EntityType: "contact", Page: 1, PageSize: 5})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 1, ActorRole: "admin", Action: "student_profile.update", EntityType: "student_profile", EntityID: &entityID}))

	entries, total, err = repo.List(ctx, ActivityLogFilter{Action: "student_profile.", EntityID: &entityID})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "student_profile.update", entries[0].Action)

	future := time.Now().Add(time.Hour)
	_, total, err = repo.List(ctx, ActivityLogFilter{Since: &future})
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
}
