package mapper

import (
	"github.com/hashicorp-forge/distributor/pkg/document"
)

// EncodeContext carries the provenance attached to a push.
type EncodeContext struct {
	// SourceID identifies the connection on the origin site.
	SourceID  string
	Site      document.Site
	Permalink string
	Signature string

	// Status overrides DefaultPushStatus when set.
	Status string

	Meta  document.Meta
	Terms document.Terms
	Media []document.Media
}

// PushPayload is the JSON body of a push write.
type PushPayload struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Excerpt string `json:"excerpt"`

	OriginalSourceID string           `json:"distributor_original_source_id"`
	OriginalSiteName string           `json:"distributor_original_site_name"`
	OriginalSiteURL  string           `json:"distributor_original_site_url"`
	OriginalPostURL  string           `json:"distributor_original_post_url"`
	RemotePostID     int64            `json:"distributor_remote_post_id"`
	Signature        string           `json:"distributor_signature"`
	Media            []document.Media `json:"distributor_media"`
	Terms            document.Terms   `json:"distributor_terms"`
	Meta             document.Meta    `json:"distributor_meta"`
}

// Encode builds the push payload for doc. doc.Content must already be
// rendered.
func Encode(doc *document.Document, ec EncodeContext) *PushPayload {
	status := ec.Status
	if status == "" {
		status = DefaultPushStatus
	}

	payload := &PushPayload{
		Title:            doc.Title,
		Slug:             doc.Slug,
		Content:          doc.Content,
		Type:             doc.Type,
		Status:           status,
		Excerpt:          doc.Excerpt,
		OriginalSourceID: ec.SourceID,
		OriginalSiteName: ec.Site.Name,
		OriginalSiteURL:  ec.Site.URL,
		OriginalPostURL:  ec.Permalink,
		RemotePostID:     doc.ID,
		Signature:        ec.Signature,
		Media:            ec.Media,
		Terms:            ec.Terms,
		Meta:             ec.Meta,
	}

	if payload.Media == nil {
		payload.Media = []document.Media{}
	}
	if payload.Terms == nil {
		payload.Terms = document.Terms{}
	}
	if payload.Meta == nil {
		payload.Meta = document.Meta{}
	}
	return payload
}
