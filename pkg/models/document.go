package models

import (
	"time"
)

// Document is a post held by the reference content store.
type Document struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Type    string `gorm:"not null;default:post;size:64;index" json:"type"`
	Status  string `gorm:"not null;default:draft;size:32" json:"status"`
	Title   string `gorm:"not null" json:"title"`
	Slug    string `gorm:"size:200;index" json:"slug"`
	Content string `gorm:"type:text" json:"content"`
	Excerpt string `gorm:"type:text" json:"excerpt"`
	Author  int64  `json:"author"`

	// Terms and Media hold the exported bundles as JSON.
	Terms JSON `gorm:"type:jsonb" json:"terms,omitempty"`
	Media JSON `gorm:"type:jsonb" json:"media,omitempty"`

	Meta []DocumentMeta `gorm:"constraint:OnDelete:CASCADE" json:"meta,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// DocumentMeta is one value of a document meta key. A key with several
// values has several rows, ordered by ID.
type DocumentMeta struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	DocumentID int64  `gorm:"not null;index:idx_document_meta_key" json:"documentId"`
	Key        string `gorm:"column:meta_key;not null;size:255;index:idx_document_meta_key" json:"key"`
	Value      JSON   `gorm:"type:text" json:"value"`
}

// TableName returns the table name for GORM
func (DocumentMeta) TableName() string {
	return "document_meta"
}
