// Package localstore is a gorm-backed content store implementing the
// document store, exporter and importer interfaces.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/iancoleman/strcase"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/models"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// Config configures a Store.
type Config struct {
	// SiteURL is the public URL permalinks are built on.
	SiteURL string

	// DefaultAuthor is assigned to documents stored without an author.
	DefaultAuthor int64
}

// Store is a document.Store, document.Exporter and document.Importer.
type Store struct {
	db     *gorm.DB
	cfg    Config
	logger hclog.Logger
}

var (
	_ document.Store    = (*Store)(nil)
	_ document.Exporter = (*Store)(nil)
	_ document.Importer = (*Store)(nil)
)

// New creates a Store on db. The document tables must already be migrated.
func New(db *gorm.DB, cfg Config, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cfg.SiteURL = remote.NormalizeBaseURL(cfg.SiteURL)
	return &Store{db: db, cfg: cfg, logger: logger.Named("localstore")}
}

func (s *Store) find(ctx context.Context, id int64) (*models.Document, error) {
	var m models.Document
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", document.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &m, nil
}

// Get returns the document without its bundles.
func (s *Store) Get(ctx context.Context, id int64) (*document.Document, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	link, _ := s.Permalink(ctx, id)
	return &document.Document{
		ID:       m.ID,
		Title:    m.Title,
		Slug:     m.Slug,
		Content:  m.Content,
		Excerpt:  m.Excerpt,
		Status:   m.Status,
		Date:     m.CreatedAt,
		Modified: m.UpdatedAt,
		Link:     link,
		GUID:     link,
		Type:     m.Type,
		Author:   m.Author,
	}, nil
}

// Upsert stores the core fields of doc. Bundles are ignored.
func (s *Store) Upsert(ctx context.Context, doc *document.Document) (int64, error) {
	m := models.Document{
		ID:      doc.ID,
		Type:    doc.Type,
		Status:  doc.Status,
		Title:   doc.Title,
		Slug:    doc.Slug,
		Content: doc.Content,
		Excerpt: doc.Excerpt,
		Author:  doc.Author,
	}
	if m.Type == "" {
		m.Type = "post"
	}
	if m.Status == "" {
		m.Status = "draft"
	}
	if m.Slug == "" {
		m.Slug = Slugify(m.Title)
	}
	if m.Author == 0 {
		m.Author = s.cfg.DefaultAuthor
	}

	db := s.db.WithContext(ctx)
	if m.ID == 0 {
		if err := db.Create(&m).Error; err != nil {
			return 0, fmt.Errorf("failed to create document: %w", err)
		}
		s.logger.Debug("document created", "id", m.ID, "type", m.Type)
		return m.ID, nil
	}

	res := db.Model(&models.Document{ID: m.ID}).Select(
		"type", "status", "title", "slug", "content", "excerpt", "author", "updated_at",
	).Updates(&m)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: %d", document.ErrNotFound, m.ID)
	}
	s.logger.Debug("document updated", "id", m.ID)
	return m.ID, nil
}

// Permalink returns "{SiteURL}/?p={id}".
func (s *Store) Permalink(ctx context.Context, id int64) (string, error) {
	return s.cfg.SiteURL + "/?p=" + strconv.FormatInt(id, 10), nil
}

// SetProvenance stores each provenance field as a single-valued meta key.
func (s *Store) SetProvenance(ctx context.Context, id int64, p document.Provenance) error {
	meta := document.Meta{}
	for k, v := range p.Values() {
		meta[k] = []any{v}
	}
	return s.ImportMeta(ctx, id, meta)
}

// Provenance reads back what SetProvenance stored.
func (s *Store) Provenance(ctx context.Context, id int64) (document.Provenance, error) {
	var rows []models.DocumentMeta
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND meta_key LIKE ?", id, provenancePrefix+"%").
		Find(&rows).Error
	if err != nil {
		return document.Provenance{}, fmt.Errorf("failed to load provenance: %w", err)
	}

	values := map[string]string{}
	for _, row := range rows {
		var v string
		if err := row.Value.Decode(&v); err == nil {
			values[row.Key] = v
		}
	}
	return document.ProvenanceFromValues(values), nil
}

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strcase.ToKebab(strings.Join(strings.Fields(b.String()), " "))
}
