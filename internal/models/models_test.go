package models

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestBaseModel_GeneratesULID(t *testing.T) {
	db := openTestDB(t)

	user := &User{Email: "a@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	assert.Len(t, user.ID, 26)

	keep := &User{BaseModel: BaseModel{ID: "01HZZZZZZZZZZZZZZZZZZZZZZZ"}, Email: "b@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(keep).Error)
	assert.Equal(t, "01HZZZZZZZZZZZZZZZZZZZZZZZ", keep.ID)
}

func TestVideo_SoftDeleteAndFindByID(t *testing.T) {
	db := openTestDB(t)

	user := &User{Email: "a@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	video := &Video{Title: "clip", PublicID: "video-uploads/clip", OwnerID: user.ID, OriginalSize: 10, CompressedSize: 5}
	require.NoError(t, db.Create(video).Error)

	var found Video
	require.NoError(t, FindByID(db, video.ID, &found))
	assert.Equal(t, "clip", found.Title)

	require.NoError(t, db.Delete(&found).Error)
	require.ErrorIs(t, FindByID(db, video.ID, &Video{}), gorm.ErrRecordNotFound)
	require.NoError(t, FindByID(db.Unscoped(), video.ID, &Video{}))
}

func TestVideo_CompressionPercent(t *testing.T) {
	tests := []struct {
		original, compressed int64
		want                 int
	}{
		{0, 0, 0},
		{100, 100, 0},
		{100, 40, 60},
		{3, 2, 33},
		{100, 150, -50},
	}

	for _, tt := range tests {
		v := Video{OriginalSize: tt.original, CompressedSize: tt.compressed}
		assert.Equal(t, tt.want, v.CompressionPercent(), "%d -> %d", tt.original, tt.compressed)
	}
}
