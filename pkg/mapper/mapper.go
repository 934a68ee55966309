// Package mapper converts between the REST wire representation of a post and
// document.Document.
package mapper

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// DefaultPushStatus is the remote status of a pushed document unless overridden.
const DefaultPushStatus = "publish"

// Decode converts a single wire post. fullConnection must come from the
// response's protocol marker header; anything the body claims is ignored.
//
// Title, content and GUID are taken rendered. Content is never re-rendered
// from raw source. Excerpt prefers raw when the remote sent it.
func Decode(p *Post, fullConnection bool) *document.Document {
	doc := &document.Document{
		ID:             int64(p.ID),
		Title:          p.Title.Rendered,
		Content:        p.Content.Rendered,
		Excerpt:        p.Excerpt.Rendered,
		Slug:           p.Slug,
		Status:         p.Status,
		Date:           parseTime(p.DateGMT, p.Date),
		Modified:       parseTime(p.ModifiedGMT, p.Modified),
		Link:           p.Link,
		GUID:           p.GUID.Rendered,
		Type:           p.Type,
		Author:         int64(p.Author),
		Meta:           document.Meta{},
		Terms:          document.Terms{},
		Media:          []document.Media{},
		FullConnection: fullConnection,
	}
	if p.Excerpt.Raw != nil {
		doc.Excerpt = *p.Excerpt.Raw
	}

	var meta document.Meta
	if decodeBundle(p.DistributorMeta, &meta) {
		doc.Meta = meta
	}
	var terms document.Terms
	if decodeBundle(p.DistributorTerms, &terms) {
		doc.Terms = terms
	}
	var media []document.Media
	if decodeBundle(p.DistributorMedia, &media) {
		doc.Media = media
	}
	doc.OriginalSiteName = p.DistributorOriginalSiteName
	doc.OriginalSiteURL = p.DistributorOriginalSiteURL

	return doc
}

// DecodeOne decodes a detail response body.
func DecodeOne(body []byte, fullConnection bool) (*document.Document, error) {
	var p Post
	if err := (&remote.Response{Body: body}).DecodeJSON(&p); err != nil {
		return nil, err
	}
	return Decode(&p, fullConnection), nil
}

// DecodeList decodes a collection response body.
func DecodeList(body []byte, fullConnection bool) ([]*document.Document, error) {
	var posts []Post
	if err := (&remote.Response{Body: body}).DecodeJSON(&posts); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}

	docs := make([]*document.Document, 0, len(posts))
	for i := range posts {
		docs = append(docs, Decode(&posts[i], fullConnection))
	}
	return docs, nil
}

// parseTime prefers the GMT variant. CMS timestamps carry no zone.
func parseTime(gmt, local string) time.Time {
	if gmt != "" {
		if t, err := dateparse.ParseIn(gmt, time.UTC); err == nil {
			return t
		}
	}
	if local != "" {
		if t, err := dateparse.ParseLocal(local); err == nil {
			return t
		}
	}
	return time.Time{}
}
