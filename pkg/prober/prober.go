// Package prober discovers what a remote peer supports: the collection
// endpoint of each document type and whether reads and writes are permitted
// with the connection's credentials.
package prober

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/distributor/pkg/auth"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// SubscriptionType is the protocol-internal type never reported as a capability.
const SubscriptionType = "dt_subscription"

// WriteProbe selects how write capability is determined.
type WriteProbe string

const (
	// WriteProbeSentinel POSTs {"test":1} to every writable route. The
	// request reaches remote handlers, so it may have side effects.
	WriteProbeSentinel WriteProbe = "sentinel"

	// WriteProbeDeclared trusts the route's declared methods and issues no POST.
	WriteProbeDeclared WriteProbe = "declared"
)

// Config configures a Prober.
type Config struct {
	BaseURL    string
	Namespace  string
	Auth       auth.Handler
	Client     *remote.Client
	Logger     hclog.Logger
	WriteProbe WriteProbe
}

// Prober issues discovery requests against one remote base URL.
type Prober struct {
	baseURL    string
	namespace  string
	auth       auth.Handler
	client     *remote.Client
	logger     hclog.Logger
	writeProbe WriteProbe
}

// New creates a Prober. Missing collaborators get defaults.
func New(cfg Config) *Prober {
	p := &Prober{
		baseURL:    remote.NormalizeBaseURL(cfg.BaseURL),
		namespace:  strings.Trim(cfg.Namespace, "/"),
		auth:       cfg.Auth,
		client:     cfg.Client,
		logger:     cfg.Logger,
		writeProbe: cfg.WriteProbe,
	}
	if p.auth == nil {
		p.auth, _ = auth.New(auth.SchemeNone, auth.Credentials{})
	}
	if p.logger == nil {
		p.logger = hclog.NewNullLogger()
	}
	if p.client == nil {
		p.client = remote.NewClient(nil, p.logger)
	}
	if p.writeProbe == "" {
		p.writeProbe = WriteProbeSentinel
	}
	return p
}

// TypesURL returns the URL of the type registry.
func (p *Prober) TypesURL() string {
	return p.baseURL + "/" + p.namespace + "/types"
}

func (p *Prober) getArgs() auth.RequestArgs {
	return p.auth.FormatGetArgs(auth.RequestArgs{Timeout: remote.DiscoveryTimeout})
}

// fetchTypes returns the decoded type registry together with the raw response.
func (p *Prober) fetchTypes(ctx context.Context) (map[string]any, *remote.Response, error) {
	resp, err := p.client.Get(ctx, p.TypesURL(), p.getArgs())
	if err != nil {
		return nil, nil, err
	}
	var types map[string]any
	if err := resp.DecodeJSON(&types); err != nil {
		return nil, resp, err
	}
	return types, resp, nil
}

// ResolveTypeURL returns the collection URL of postType. Resolved URLs are
// stored in cache, which callers create per operation.
func (p *Prober) ResolveTypeURL(ctx context.Context, cache TypeMap, postType string) (string, error) {
	if u, ok := cache[postType]; ok {
		return u, nil
	}

	resp, err := p.client.Get(ctx, p.TypesURL(), p.getArgs())
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", remote.ErrEndpointNotFound, p.TypesURL())
	case resp.Empty():
		return "", remote.ErrEmptyResponse
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", remote.NewAPIError(resp)
	}

	var types map[string]any
	if err := resp.DecodeJSON(&types); err != nil {
		return "", err
	}
	raw, ok := types[postType]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: type %q not in registry", remote.ErrMalformedResponse, postType)
	}

	desc, err := decodeDescriptor(raw)
	if err != nil {
		return "", fmt.Errorf("%w: type %q: %v", remote.ErrMalformedResponse, postType, err)
	}
	link := desc.ItemsLink()
	if link == "" {
		return "", fmt.Errorf("%w: %s", remote.ErrNoCollectionLink, postType)
	}

	if cache != nil {
		cache[postType] = link
	}
	p.logger.Trace("resolved type endpoint", "type", postType, "url", link)
	return link, nil
}

// routeKey maps a collection link to its key in the routes table.
func (p *Prober) routeKey(link string) string {
	return strings.TrimPrefix(link, p.baseURL)
}

func lookupRoute(routes map[string]Route, key string) (Route, bool) {
	if r, ok := routes[key]; ok {
		return r, true
	}
	r, ok := routes[strings.TrimRight(key, "/")]
	return r, ok
}
