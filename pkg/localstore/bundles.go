package localstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/models"
)

// provenancePrefix marks protocol-internal meta keys.
const provenancePrefix = "dt_"

// exportable reports whether a meta key is sent with a push. Hidden keys
// (leading underscore) and protocol keys stay local.
func exportable(key string) bool {
	return !strings.HasPrefix(key, "_") && !strings.HasPrefix(key, provenancePrefix)
}

func (s *Store) ExportMeta(ctx context.Context, id int64) (document.Meta, error) {
	var rows []models.DocumentMeta
	err := s.db.WithContext(ctx).
		Where("document_id = ?", id).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load meta: %w", err)
	}

	meta := document.Meta{}
	for _, row := range rows {
		if !exportable(row.Key) {
			continue
		}
		var v any
		if err := row.Value.Decode(&v); err != nil {
			s.logger.Warn("skipping undecodable meta value", "document_id", id, "key", row.Key, "error", err)
			continue
		}
		meta[row.Key] = append(meta[row.Key], v)
	}
	return meta, nil
}

func (s *Store) ExportTerms(ctx context.Context, id int64) (document.Terms, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	terms := document.Terms{}
	if err := m.Terms.Decode(&terms); err != nil {
		return nil, err
	}
	return terms, nil
}

func (s *Store) ExportMedia(ctx context.Context, id int64) ([]document.Media, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	media := []document.Media{}
	if err := m.Media.Decode(&media); err != nil {
		return nil, err
	}
	return media, nil
}

// ImportMeta replaces the values of every key in meta. Keys not in meta are
// left alone.
func (s *Store) ImportMeta(ctx context.Context, id int64, meta document.Meta) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			if err := tx.Where("document_id = ? AND meta_key = ?", id, key).Delete(&models.DocumentMeta{}).Error; err != nil {
				return fmt.Errorf("failed to clear meta %q: %w", key, err)
			}
			for _, v := range meta[key] {
				value, err := models.NewJSON(v)
				if err != nil {
					return fmt.Errorf("meta %q: %w", key, err)
				}
				row := models.DocumentMeta{DocumentID: id, Key: key, Value: value}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to store meta %q: %w", key, err)
				}
			}
		}
		return nil
	})
}

func (s *Store) ImportTerms(ctx context.Context, id int64, terms document.Terms) error {
	value, err := models.NewJSON(terms)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "terms", value)
}

func (s *Store) ImportMedia(ctx context.Context, id int64, media []document.Media) error {
	value, err := models.NewJSON(media)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "media", value)
}

func (s *Store) updateColumn(ctx context.Context, id int64, column string, value models.JSON) error {
	res := s.db.WithContext(ctx).Model(&models.Document{ID: id}).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("failed to store %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", document.ErrNotFound, id)
	}
	return nil
}
