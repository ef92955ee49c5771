package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config represents the global configuration for the deployment
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first boot (64 hex chars)
}

// User represents a local account
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Video describes an asset uploaded to the media host
type Video struct {
	BaseModel
	Title          string         `json:"title" gorm:"not null"`
	Description    string         `json:"description"`
	PublicID       string         `json:"public_id" gorm:"not null;index"` // Media host identifier
	URL            string         `json:"url"`
	OriginalSize   int64          `json:"original_size" gorm:"not null"`   // Bytes received from the client
	CompressedSize int64          `json:"compressed_size" gorm:"not null"` // Bytes stored by the media host
	Duration       float64        `json:"duration"`                        // Seconds, 0 when unknown
	OwnerID        string         `json:"owner_id" gorm:"not null;index"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
}

// CompressionPercent returns how much smaller the stored asset is than the
// upload, rounded to the nearest integer. Negative values mean it grew.
func (v *Video) CompressionPercent() int {
	if v.OriginalSize <= 0 {
		return 0
	}
	saved := float64(v.OriginalSize-v.CompressedSize) / float64(v.OriginalSize) * 100
	if saved < 0 {
		return int(saved - 0.5)
	}
	return int(saved + 0.5)
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &Config{}, &Video{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
