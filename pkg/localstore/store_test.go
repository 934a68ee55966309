package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/distributor/pkg/database"
	"github.com/hashicorp-forge/distributor/pkg/document"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return New(db, Config{SiteURL: "https://origin.example/", DefaultAuthor: 1}, nil)
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Upsert(ctx, &document.Document{Title: "Hello, World!", Content: "<p>x</p>"})
	require.NoError(t, err)
	require.NotZero(t, id)

	doc, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", doc.Title)
	assert.Equal(t, "hello-world", doc.Slug)
	assert.Equal(t, "post", doc.Type)
	assert.Equal(t, "draft", doc.Status)
	assert.Equal(t, int64(1), doc.Author, "default author is assigned")
	assert.False(t, doc.Date.IsZero(), "store assigns timestamps")
	assert.Equal(t, "https://origin.example/?p=1", doc.Link)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Upsert(ctx, &document.Document{Title: "First", Status: "publish", Author: 7})
	require.NoError(t, err)

	got, err := s.Upsert(ctx, &document.Document{ID: id, Title: "Second", Status: "draft", Author: 7})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	doc, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Second", doc.Title)
	assert.Equal(t, "draft", doc.Status)

	_, err = s.Upsert(ctx, &document.Document{ID: 999, Title: "Ghost"})
	assert.ErrorIs(t, err, document.ErrNotFound)

	_, err = s.Get(ctx, 999)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStore_MetaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Upsert(ctx, &document.Document{Title: "Meta"})
	require.NoError(t, err)

	require.NoError(t, s.ImportMeta(ctx, id, document.Meta{
		"subtitle": {"one", "two"},
		"_edit":    {"hidden"},
	}))
	require.NoError(t, s.ImportMeta(ctx, id, document.Meta{"subtitle": {"three"}}))

	meta, err := s.ExportMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, document.Meta{"subtitle": {"three"}}, meta, "import replaces per key and export skips hidden keys")

	assert.ErrorIs(t, s.ImportMeta(ctx, 999, document.Meta{"a": {"b"}}), document.ErrNotFound)
}

func TestStore_TermsAndMedia(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Upsert(ctx, &document.Document{Title: "Bundles"})
	require.NoError(t, err)

	terms, err := s.ExportTerms(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, terms)

	wantTerms := document.Terms{"category": {{ID: 2, Name: "News", Slug: "news", Taxonomy: "category"}}}
	wantMedia := []document.Media{{ID: 3, Featured: true, SourceURL: "https://origin.example/a.png"}}
	require.NoError(t, s.ImportTerms(ctx, id, wantTerms))
	require.NoError(t, s.ImportMedia(ctx, id, wantMedia))

	terms, err = s.ExportTerms(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wantTerms, terms)

	media, err := s.ExportMedia(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wantMedia, media)

	assert.ErrorIs(t, s.ImportTerms(ctx, 999, wantTerms), document.ErrNotFound)
}

func TestStore_Provenance(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Upsert(ctx, &document.Document{Title: "Pulled"})
	require.NoError(t, err)

	want := document.Provenance{
		OriginalPostID:   6,
		OriginalSourceID: "remote-a",
		SyndicateTime:    time.Unix(1700000000, 0),
		OriginalPostURL:  "https://remote.example/6",
		OriginalSiteName: "Remote",
		OriginalSiteURL:  "https://remote.example",
		FullConnection:   true,
	}
	require.NoError(t, s.SetProvenance(ctx, id, want))

	got, err := s.Provenance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want.OriginalPostID, got.OriginalPostID)
	assert.Equal(t, want.OriginalSourceID, got.OriginalSourceID)
	assert.True(t, want.SyndicateTime.Equal(got.SyndicateTime))
	assert.Equal(t, want.OriginalPostURL, got.OriginalPostURL)
	assert.True(t, got.FullConnection)
	assert.False(t, got.Unlinked)

	meta, err := s.ExportMeta(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, meta, "provenance keys are never exported")
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":     "hello-world",
		"  spaced   out  ":  "spaced-out",
		"Crème brûlée tips": "cr-me-br-l-e-tips",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}
