// Package document defines the in-transit syndicated document and the
// collaborator interfaces a content store implements for push and pull.
package document

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores for unknown local documents.
var ErrNotFound = errors.New("document not found")

// Document is the canonical in-transit representation of a post.
//
// Meta, Terms, Media, OriginalSiteName and OriginalSiteURL are only populated
// when the remote peer implements the syndication protocol.
type Document struct {
	ID       int64
	Title    string
	Slug     string
	Content  string
	Excerpt  string
	Status   string
	Date     time.Time
	Modified time.Time
	Link     string
	GUID     string
	Type     string
	Author   int64

	Meta  Meta
	Terms Terms
	Media []Media

	OriginalSiteName string
	OriginalSiteURL  string

	// FullConnection is set only from the remote's protocol marker header.
	FullConnection bool
}

// Meta maps a meta key to its values.
type Meta map[string][]any

// Terms maps a taxonomy to the terms assigned to a document.
type Terms map[string][]Term

// Term is an exported taxonomy term.
type Term struct {
	ID          int64  `json:"term_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Taxonomy    string `json:"taxonomy"`
	Description string `json:"description,omitempty"`
	Parent      int64  `json:"parent,omitempty"`
}

// Media is an exported attachment reference.
type Media struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title,omitempty"`
	Featured    bool           `json:"featured"`
	Caption     string         `json:"caption,omitempty"`
	Description string         `json:"description,omitempty"`
	AltText     string         `json:"alt_text,omitempty"`
	MimeType    string         `json:"mime_type,omitempty"`
	SourceURL   string         `json:"source_url"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Site identifies the local site in provenance fields.
type Site struct {
	Name string
	URL  string
}

// Store is the content store's CRUD surface.
type Store interface {
	// Get returns the local document or ErrNotFound.
	Get(ctx context.Context, id int64) (*Document, error)

	// Upsert updates doc when doc.ID is set, else inserts it, and returns the
	// local id. The store assigns timestamps and, when Author is zero, the
	// local author.
	Upsert(ctx context.Context, doc *Document) (int64, error)

	// Permalink returns the public URL of a local document.
	Permalink(ctx context.Context, id int64) (string, error)

	// SetProvenance persists the provenance keys of a syndicated document.
	SetProvenance(ctx context.Context, id int64, p Provenance) error
}

// Exporter produces the meta/terms/media bundles sent with a push.
type Exporter interface {
	ExportMeta(ctx context.Context, id int64) (Meta, error)
	ExportTerms(ctx context.Context, id int64) (Terms, error)
	ExportMedia(ctx context.Context, id int64) ([]Media, error)
}

// Importer applies meta/terms/media bundles received with a pull.
type Importer interface {
	ImportMeta(ctx context.Context, id int64, meta Meta) error
	ImportTerms(ctx context.Context, id int64, terms Terms) error
	ImportMedia(ctx context.Context, id int64, media []Media) error
}

// ContentRenderer runs raw content through the content filter pipeline so
// shortcodes and embeds resolve before transmission.
type ContentRenderer interface {
	Render(ctx context.Context, doc *Document) (string, error)
}

// PassthroughRenderer returns content unchanged.
type PassthroughRenderer struct{}

func (PassthroughRenderer) Render(_ context.Context, doc *Document) (string, error) {
	return doc.Content, nil
}

// NopExporter exports empty bundles.
type NopExporter struct{}

func (NopExporter) ExportMeta(context.Context, int64) (Meta, error)     { return Meta{}, nil }
func (NopExporter) ExportTerms(context.Context, int64) (Terms, error)   { return Terms{}, nil }
func (NopExporter) ExportMedia(context.Context, int64) ([]Media, error) { return []Media{}, nil }

// NopImporter discards bundles.
type NopImporter struct{}

func (NopImporter) ImportMeta(context.Context, int64, Meta) error     { return nil }
func (NopImporter) ImportTerms(context.Context, int64, Terms) error   { return nil }
func (NopImporter) ImportMedia(context.Context, int64, []Media) error { return nil }
