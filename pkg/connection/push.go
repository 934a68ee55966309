package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp-forge/distributor/pkg/auth"
	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/events"
	"github.com/hashicorp-forge/distributor/pkg/mapper"
	"github.com/hashicorp-forge/distributor/pkg/models"
	"github.com/hashicorp-forge/distributor/pkg/prober"
	"github.com/hashicorp-forge/distributor/pkg/remote"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

// ErrNoRegistry is recorded as the subscription error of a protocol-aware
// push when the connection has no subscription registry.
var ErrNoRegistry = errors.New("no subscription registry configured")

// PushOptions tunes a push.
type PushOptions struct {
	// RemoteID is the document a previous push created. It is updated if it
	// still exists, otherwise a new document is created.
	RemoteID int64

	// Status overrides mapper.DefaultPushStatus.
	Status string
}

// PushResult describes a successful push.
type PushResult struct {
	RemoteID int64

	// Updated is true when an existing remote document was written.
	Updated   bool
	TargetURL string

	// FullConnection is true when the remote answered with the protocol
	// marker.
	FullConnection bool

	// SubscriptionErr is set when the remote is protocol-aware but the
	// subscription could not be recorded. The push itself succeeded.
	SubscriptionErr error
}

// Push sends a local document to the remote and returns its remote id.
func (c *Connection) Push(ctx context.Context, localID int64, opts PushOptions) (*PushResult, error) {
	e := c.newEvent(events.KindPush)
	e.LocalID = localID

	result, err := c.push(ctx, localID, opts, &e)
	if err != nil {
		e.Error = err.Error()
		c.logger.Warn("push failed", "local_id", localID, "error", err)
	} else {
		e.RemoteID = result.RemoteID
		e.FullConnection = result.FullConnection
	}
	c.publish(ctx, e)
	return result, err
}

func (c *Connection) push(ctx context.Context, localID int64, opts PushOptions, e *events.Event) (*PushResult, error) {
	if localID == 0 {
		return nil, ErrNoPostID
	}
	if c.store == nil {
		return nil, ErrNoStore
	}

	doc, err := c.store.Get(ctx, localID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", localID, err)
	}
	postType := doc.Type
	if postType == "" {
		postType = DefaultPostType
	}

	typeURL, err := c.prober.ResolveTypeURL(ctx, prober.TypeMap{}, postType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPushEndpoint, err)
	}

	signature, err := subscriptions.GenerateSignature()
	if err != nil {
		return nil, err
	}

	payload, err := c.buildPayload(ctx, doc, signature, opts.Status)
	if err != nil {
		return nil, err
	}

	result := &PushResult{TargetURL: typeURL}
	if opts.RemoteID != 0 {
		existing := fmt.Sprintf("%s/%d", strings.TrimRight(typeURL, "/"), opts.RemoteID)
		if c.remoteExists(ctx, existing) {
			result.TargetURL = existing
			result.Updated = true
		}
	}
	e.TargetURL = result.TargetURL

	args := c.auth.FormatPostArgs(auth.RequestArgs{Timeout: c.pushTimeout})
	resp, err := c.client.PostJSON(ctx, result.TargetURL, payload, args)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Empty():
		return nil, remote.ErrEmptyResponse
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, remote.NewAPIError(resp)
	}

	var created struct {
		ID mapper.ID `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrMalformedResponse, err)
	}
	if created.ID == 0 {
		return nil, remote.ErrNoRemoteID
	}
	result.RemoteID = int64(created.ID)
	result.FullConnection = resp.HasMarker()

	if result.FullConnection {
		result.SubscriptionErr = c.subscribe(ctx, localID, result.RemoteID, signature)
	}

	c.logger.Info("pushed document",
		"local_id", localID,
		"remote_id", result.RemoteID,
		"updated", result.Updated,
		"full_connection", result.FullConnection,
	)
	return result, nil
}

func (c *Connection) buildPayload(ctx context.Context, doc *document.Document, signature, status string) (*mapper.PushPayload, error) {
	rendered, err := c.renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}
	permalink, err := c.store.Permalink(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permalink: %w", err)
	}

	meta, err := c.exporter.ExportMeta(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to export meta: %w", err)
	}
	terms, err := c.exporter.ExportTerms(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to export terms: %w", err)
	}
	media, err := c.exporter.ExportMedia(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to export media: %w", err)
	}

	out := *doc
	out.Content = rendered
	return mapper.Encode(&out, mapper.EncodeContext{
		SourceID:  c.id,
		Site:      c.site,
		Permalink: permalink,
		Signature: signature,
		Status:    status,
		Meta:      meta,
		Terms:     terms,
		Media:     media,
	}), nil
}

// remoteExists reports whether a GET of u answers 200.
func (c *Connection) remoteExists(ctx context.Context, u string) bool {
	resp, err := c.client.Get(ctx, u, c.auth.FormatGetArgs(auth.RequestArgs{Timeout: remote.DiscoveryTimeout}))
	if err != nil {
		c.logger.Debug("existence probe failed", "url", u, "error", err)
		return false
	}
	return resp.StatusCode == http.StatusOK
}

// subscribe records the push. Failures are logged and returned, never
// propagated as a push failure.
func (c *Connection) subscribe(ctx context.Context, localID, remoteID int64, signature string) error {
	if c.subs == nil {
		c.logger.Warn("remote is protocol-aware but no subscription registry is configured", "local_id", localID)
		return ErrNoRegistry
	}

	err := c.subs.Upsert(ctx, &models.Subscription{
		LocalPostID:   localID,
		RemotePostID:  remoteID,
		RemoteBaseURL: c.baseURL,
		Signature:     signature,
	})
	if err != nil {
		c.logger.Error("failed to record subscription",
			"local_id", localID,
			"remote_id", remoteID,
			"error", err,
		)
		return err
	}
	return nil
}
