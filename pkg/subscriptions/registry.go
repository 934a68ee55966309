// Package subscriptions records push relationships between local documents
// and the remote documents they were syndicated to.
package subscriptions

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hashicorp-forge/distributor/pkg/models"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

var (
	// ErrNotFound is returned when no subscription exists for a target.
	ErrNotFound = errors.New("subscription not found")

	// ErrSignatureMismatch is returned by Verify for a wrong signature.
	ErrSignatureMismatch = errors.New("subscription signature mismatch")
)

// signatureBytes is the entropy of a generated signature.
const signatureBytes = 32

// GenerateSignature returns a fresh random signature as lowercase hex.
func GenerateSignature() (string, error) {
	b := make([]byte, signatureBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate signature: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Registry stores subscriptions keyed by (local post id, remote base URL).
type Registry interface {
	// Upsert creates the subscription or updates the remote post id and
	// signature of the existing one.
	Upsert(ctx context.Context, sub *models.Subscription) error

	Get(ctx context.Context, localPostID int64, remoteBaseURL string) (*models.Subscription, error)

	ListForPost(ctx context.Context, localPostID int64) ([]models.Subscription, error)

	// Verify returns nil only when signature matches the stored one.
	Verify(ctx context.Context, localPostID int64, remoteBaseURL, signature string) (*models.Subscription, error)

	// Touch marks the subscription as updated now.
	Touch(ctx context.Context, localPostID int64, remoteBaseURL string) error

	Delete(ctx context.Context, localPostID int64, remoteBaseURL string) error
}

// GormRegistry is a Registry backed by gorm.
type GormRegistry struct {
	db     *gorm.DB
	logger hclog.Logger
}

var _ Registry = (*GormRegistry)(nil)

// NewGormRegistry creates a registry on db. The dt_subscriptions table must
// already be migrated.
func NewGormRegistry(db *gorm.DB, logger hclog.Logger) *GormRegistry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GormRegistry{db: db, logger: logger.Named("subscriptions")}
}

func (r *GormRegistry) Upsert(ctx context.Context, sub *models.Subscription) error {
	if sub.LocalPostID == 0 {
		return errors.New("subscription requires a local post id")
	}
	sub.RemoteBaseURL = remote.NormalizeBaseURL(sub.RemoteBaseURL)
	if sub.RemoteBaseURL == "" {
		return errors.New("subscription requires a remote base URL")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "local_post_id"}, {Name: "remote_base_url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"remote_post_id",
			"signature",
			"updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	r.logger.Debug("subscription recorded",
		"local_post_id", sub.LocalPostID,
		"remote_base_url", sub.RemoteBaseURL,
		"remote_post_id", sub.RemotePostID,
	)
	return nil
}

func (r *GormRegistry) Get(ctx context.Context, localPostID int64, remoteBaseURL string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("local_post_id = ? AND remote_base_url = ?", localPostID, remote.NormalizeBaseURL(remoteBaseURL)).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *GormRegistry) ListForPost(ctx context.Context, localPostID int64) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("local_post_id = ?", localPostID).
		Order("remote_base_url").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *GormRegistry) Verify(ctx context.Context, localPostID int64, remoteBaseURL, signature string) (*models.Subscription, error) {
	sub, err := r.Get(ctx, localPostID, remoteBaseURL)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(sub.Signature), []byte(signature)) != 1 {
		return nil, ErrSignatureMismatch
	}
	return sub, nil
}

func (r *GormRegistry) Touch(ctx context.Context, localPostID int64, remoteBaseURL string) error {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("local_post_id = ? AND remote_base_url = ?", localPostID, remote.NormalizeBaseURL(remoteBaseURL)).
		Update("updated_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("failed to touch subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRegistry) Delete(ctx context.Context, localPostID int64, remoteBaseURL string) error {
	res := r.db.WithContext(ctx).
		Where("local_post_id = ? AND remote_base_url = ?", localPostID, remote.NormalizeBaseURL(remoteBaseURL)).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
