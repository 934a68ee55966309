package connection

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp-forge/distributor/pkg/auth"
	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/events"
	"github.com/hashicorp-forge/distributor/pkg/mapper"
	"github.com/hashicorp-forge/distributor/pkg/prober"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// PullStatus is the local status of pulled documents unless overridden.
const PullStatus = "draft"

// Query selects remote documents.
type Query struct {
	// PostType defaults to DefaultPostType.
	PostType string

	// ID fetches a single document; the listing fields are ignored.
	ID int64

	// Status is the status filter, "any" by default.
	Status  string
	Page    int
	PerPage int

	// Include restricts the listing to these ids. A non-nil empty slice
	// matches nothing and issues no request.
	Include []int64
	// Exclude is ignored when Include is set.
	Exclude []int64

	Search string
}

// Listing is one page of remote documents.
type Listing struct {
	Items []*document.Document
	// Total is the remote's total match count, or len(Items) when the remote
	// does not report one.
	Total int
}

func (q Query) postType() string {
	if q.PostType == "" {
		return DefaultPostType
	}
	return q.PostType
}

func (q Query) values(defaultPerPage int, editContext bool) url.Values {
	v := url.Values{}

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	v.Set("per_page", strconv.Itoa(perPage))

	status := q.Status
	if status == "" {
		status = "any"
	}
	v.Set("post_status", status)

	page := q.Page
	if page <= 0 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))

	if q.Include != nil {
		for _, id := range q.Include {
			v.Add("include[]", strconv.FormatInt(id, 10))
		}
	} else {
		for _, id := range q.Exclude {
			v.Add("exclude[]", strconv.FormatInt(id, 10))
		}
	}

	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if editContext {
		v.Set("context", "edit")
	}
	return v
}

// editContext reports whether requests will carry credentials, in which case
// the remote is asked for the edit context to expose raw fields.
func (c *Connection) editContext() bool {
	return auth.HasAuthorization(c.auth.FormatGetArgs(auth.RequestArgs{}))
}

// RemoteGet fetches a listing, or a single document when q.ID is set.
func (c *Connection) RemoteGet(ctx context.Context, q Query) (*Listing, error) {
	if q.ID != 0 {
		doc, err := c.RemoteGetByID(ctx, q.postType(), q.ID)
		if err != nil {
			return nil, err
		}
		return &Listing{Items: []*document.Document{doc}, Total: 1}, nil
	}

	if q.Include != nil && len(q.Include) == 0 {
		return &Listing{Items: []*document.Document{}, Total: 0}, nil
	}

	typeURL, err := c.prober.ResolveTypeURL(ctx, prober.TypeMap{}, q.postType())
	if err != nil {
		return nil, err
	}

	listURL := strings.TrimRight(typeURL, "/") + "/?" + q.values(c.perPage, c.editContext()).Encode()
	resp, err := c.fetch(ctx, listURL)
	if err != nil {
		return nil, err
	}

	items, err := mapper.DecodeList(resp.Body, resp.HasMarker())
	if err != nil {
		return nil, err
	}

	total := len(items)
	if h := resp.Header.Get(remote.HeaderTotal); h != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(h)); err == nil {
			total = n
		}
	}

	return &Listing{Items: items, Total: total}, nil
}

// RemoteGetByID fetches one remote document.
func (c *Connection) RemoteGetByID(ctx context.Context, postType string, id int64) (*document.Document, error) {
	return c.remoteGetByID(ctx, prober.TypeMap{}, postType, id)
}

func (c *Connection) remoteGetByID(ctx context.Context, types prober.TypeMap, postType string, id int64) (*document.Document, error) {
	if postType == "" {
		postType = DefaultPostType
	}
	typeURL, err := c.prober.ResolveTypeURL(ctx, types, postType)
	if err != nil {
		return nil, err
	}

	viewContext := "view"
	if c.editContext() {
		viewContext = "edit"
	}
	docURL := fmt.Sprintf("%s/%d/?context=%s", strings.TrimRight(typeURL, "/"), id, viewContext)

	resp, err := c.fetch(ctx, docURL)
	if err != nil {
		return nil, err
	}
	return mapper.DecodeOne(resp.Body, resp.HasMarker())
}

// fetch issues a read and maps non-200 answers to error kinds.
func (c *Connection) fetch(ctx context.Context, u string) (*remote.Response, error) {
	args := c.auth.FormatGetArgs(auth.RequestArgs{Timeout: remote.FetchTimeout})
	resp, err := c.client.Get(ctx, u, args)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", remote.ErrEndpointNotFound, u)
	case resp.StatusCode != http.StatusOK:
		return nil, remote.NewAPIError(resp)
	case resp.Empty():
		return nil, remote.ErrEmptyResponse
	}
	return resp, nil
}

// PullItem names a remote document to pull.
type PullItem struct {
	RemoteID int64
	// LocalID updates an existing local document instead of inserting.
	LocalID int64
	// PostType defaults to DefaultPostType.
	PostType string
	// Status overrides PullStatus.
	Status string
}

// PullResult is the outcome of one PullItem.
type PullResult struct {
	RemoteID int64
	LocalID  int64

	// Err is set when the document could not be fetched or stored.
	Err error

	// Warnings collects provenance and import failures of a stored document.
	Warnings error
}

// Pull fetches each item and stores it locally. A failed item never stops
// the batch; results are in input order.
func (c *Connection) Pull(ctx context.Context, items []PullItem) []PullResult {
	results := make([]PullResult, len(items))
	types := prober.TypeMap{}

	for i, item := range items {
		results[i] = c.pullOne(ctx, types, item)

		e := c.newEvent(events.KindPull)
		e.RemoteID = item.RemoteID
		e.LocalID = results[i].LocalID
		if results[i].Err != nil {
			e.Error = results[i].Err.Error()
		}
		c.publish(ctx, e)
	}
	return results
}

func (c *Connection) pullOne(ctx context.Context, types prober.TypeMap, item PullItem) PullResult {
	result := PullResult{RemoteID: item.RemoteID}
	logger := c.logger.With("remote_id", item.RemoteID)

	if c.store == nil {
		result.Err = ErrNoStore
		return result
	}

	remoteDoc, err := c.remoteGetByID(ctx, types, item.PostType, item.RemoteID)
	if err != nil {
		logger.Warn("failed to fetch remote document", "error", err)
		result.Err = err
		return result
	}

	local := *remoteDoc
	local.ID = item.LocalID
	local.Date = time.Time{}
	local.Modified = time.Time{}
	local.Author = 0
	local.Link = ""
	local.GUID = ""
	local.Meta, local.Terms, local.Media = nil, nil, nil
	local.Status = PullStatus
	if item.Status != "" {
		local.Status = item.Status
	}

	localID, err := c.store.Upsert(ctx, &local)
	if err != nil {
		logger.Warn("failed to store pulled document", "error", err)
		result.Err = fmt.Errorf("failed to store document: %w", err)
		return result
	}
	result.LocalID = localID

	var warnings *multierror.Error

	provenance := document.Provenance{
		OriginalPostID:   item.RemoteID,
		OriginalSourceID: c.id,
		SyndicateTime:    time.Now(),
		OriginalPostURL:  remoteDoc.Link,
		OriginalSiteName: remoteDoc.OriginalSiteName,
		OriginalSiteURL:  remoteDoc.OriginalSiteURL,
		FullConnection:   remoteDoc.FullConnection,
	}
	if err := c.store.SetProvenance(ctx, localID, provenance); err != nil {
		warnings = multierror.Append(warnings, fmt.Errorf("provenance: %w", err))
	}

	if len(remoteDoc.Meta) > 0 {
		if err := c.importer.ImportMeta(ctx, localID, remoteDoc.Meta); err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("meta: %w", err))
		}
	}
	if len(remoteDoc.Terms) > 0 {
		if err := c.importer.ImportTerms(ctx, localID, remoteDoc.Terms); err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("terms: %w", err))
		}
	}
	if len(remoteDoc.Media) > 0 {
		if err := c.importer.ImportMedia(ctx, localID, remoteDoc.Media); err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("media: %w", err))
		}
	}

	if err := warnings.ErrorOrNil(); err != nil {
		logger.Warn("pulled document stored with errors", "local_id", localID, "error", err)
		result.Warnings = err
	} else {
		logger.Debug("pulled document", "local_id", localID)
	}
	return result
}
