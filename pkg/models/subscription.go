package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription binds a local document to the document it was pushed to on a
// remote site. There is at most one per (LocalPostID, RemoteBaseURL).
type Subscription struct {
	ID   uint      `gorm:"primaryKey" json:"-"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	LocalPostID   int64  `gorm:"not null;uniqueIndex:idx_subscription_target" json:"localPostId"`
	RemoteBaseURL string `gorm:"not null;size:2048;uniqueIndex:idx_subscription_target" json:"remoteBaseUrl"`
	RemotePostID  int64  `gorm:"not null" json:"remotePostId"`

	// Signature authorizes inbound update and delete notifications.
	Signature string `gorm:"not null;size:128" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "dt_subscriptions"
}

// BeforeCreate assigns a UUID when none is set.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	return nil
}
