package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/models"
)

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	for _, model := range []interface{}{&models.AdminUser{}, &models.QuestionnaireResult{}, &models.StudentProfile{}, &models.UploadRecord{}} {
		require.True(t, db.Migrator().HasTable(model))
	}
}

func TestConnectPostgresRequiresDSN(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr(), "vastu-api-test")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, RedisProbe(client)(context.Background()))

	mr.Close()
	require.Error(t, RedisProbe(client)(context.Background()))

	_, err = ConnectRedis(context.Background(), "::not-a-url", "")
	require.Error(t, err)
	_, err = ConnectRedis(context.Background(), "", "")
	require.Error(t, err)
}

func TestPostgresProbeUsesPool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, PostgresProbe(db)(context.Background()))
}
