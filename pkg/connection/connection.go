// Package connection pulls documents from and pushes documents to one remote
// site over its REST API.
//
// A Connection is safe for concurrent use. Type endpoints are discovered
// again for every operation and never shared between calls.
package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/distributor/pkg/auth"
	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/events"
	"github.com/hashicorp-forge/distributor/pkg/prober"
	"github.com/hashicorp-forge/distributor/pkg/remote"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

const (
	// DefaultNamespace is the REST namespace of the core content routes.
	DefaultNamespace = "wp/v2"

	// DefaultPerPage is the listing page size when none is configured.
	DefaultPerPage = 10

	// DefaultPostType is used when a document or query names no type.
	DefaultPostType = "post"
)

var (
	// ErrNoPostID is returned by Push for a zero local id.
	ErrNoPostID = errors.New("post id required to push")

	// ErrNoPushEndpoint wraps the discovery failure of a push.
	ErrNoPushEndpoint = errors.New("could not determine remote post type endpoint")

	// ErrNoStore is returned by Pull and Push when no document store is set.
	ErrNoStore = errors.New("connection has no document store")
)

// Config holds everything a Connection needs. Only ID and BaseURL are
// required.
type Config struct {
	ID        string
	BaseURL   string
	Namespace string
	Auth      auth.Handler

	Store         document.Store
	Renderer      document.ContentRenderer
	Exporter      document.Exporter
	Importer      document.Importer
	Subscriptions subscriptions.Registry
	Events        events.Sink

	// Site identifies this site in pushed provenance fields.
	Site document.Site

	PerPage     int
	PushTimeout time.Duration
	WriteProbe  prober.WriteProbe

	HTTPClient *http.Client
	Logger     hclog.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.PerPage, validation.Min(0)),
		validation.Field(&c.PushTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.WriteProbe, validation.In(prober.WriteProbeSentinel, prober.WriteProbeDeclared)),
	)
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an absolute http or https URL")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// Connection is a configured link to one remote site.
type Connection struct {
	id          string
	baseURL     string
	namespace   string
	perPage     int
	pushTimeout time.Duration
	site        document.Site

	auth     auth.Handler
	store    document.Store
	renderer document.ContentRenderer
	exporter document.Exporter
	importer document.Importer
	subs     subscriptions.Registry
	events   events.Sink

	client *remote.Client
	prober *prober.Prober
	logger hclog.Logger
}

// New validates cfg and builds a Connection.
func New(cfg Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	c := &Connection{
		id:          cfg.ID,
		baseURL:     remote.NormalizeBaseURL(cfg.BaseURL),
		namespace:   strings.Trim(cfg.Namespace, "/"),
		perPage:     cfg.PerPage,
		pushTimeout: cfg.PushTimeout,
		site:        cfg.Site,
		auth:        cfg.Auth,
		store:       cfg.Store,
		renderer:    cfg.Renderer,
		exporter:    cfg.Exporter,
		importer:    cfg.Importer,
		subs:        cfg.Subscriptions,
		events:      cfg.Events,
		logger:      cfg.Logger,
	}

	if c.namespace == "" {
		c.namespace = DefaultNamespace
	}
	if c.perPage == 0 {
		c.perPage = DefaultPerPage
	}
	if c.pushTimeout == 0 {
		c.pushTimeout = remote.PushTimeout
	}
	if c.auth == nil {
		c.auth, _ = auth.New(auth.SchemeNone, auth.Credentials{})
	}
	if c.renderer == nil {
		c.renderer = document.PassthroughRenderer{}
	}
	if c.exporter == nil {
		c.exporter = document.NopExporter{}
	}
	if c.importer == nil {
		c.importer = document.NopImporter{}
	}
	if c.events == nil {
		c.events = events.Nop{}
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	c.logger = c.logger.Named("connection").With("connection", c.id)

	c.client = remote.NewClient(cfg.HTTPClient, c.logger.Named("remote"))
	c.prober = prober.New(prober.Config{
		BaseURL:    c.baseURL,
		Namespace:  c.namespace,
		Auth:       c.auth,
		Client:     c.client,
		Logger:     c.logger.Named("prober"),
		WriteProbe: cfg.WriteProbe,
	})

	return c, nil
}

// ID returns the connection id.
func (c *Connection) ID() string { return c.id }

// BaseURL returns the normalized base URL.
func (c *Connection) BaseURL() string { return c.baseURL }

// Auth returns the auth handler, for persisting refreshed credentials.
func (c *Connection) Auth() auth.Handler { return c.auth }

// CheckConnections reports reachability and per-type capabilities.
func (c *Connection) CheckConnections(ctx context.Context) *prober.Report {
	return c.prober.CheckConnections(ctx)
}

// RefreshCredentials renews the credentials of handlers that support it.
func (c *Connection) RefreshCredentials(ctx context.Context) error {
	r, ok := c.auth.(auth.Refresher)
	if !ok {
		return fmt.Errorf("%w: scheme %s", auth.ErrRefreshUnsupported, c.auth.Scheme())
	}
	if err := r.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh credentials: %w", err)
	}
	c.logger.Info("credentials refreshed", "scheme", c.auth.Scheme())
	return nil
}

func (c *Connection) newEvent(kind events.Kind) events.Event {
	return events.New(kind, c.id, c.baseURL)
}

// publish sends e to the sink. Failures are logged and otherwise ignored.
func (c *Connection) publish(ctx context.Context, e events.Event) {
	if err := c.events.Publish(ctx, e); err != nil {
		c.logger.Warn("failed to publish event", "kind", e.Kind, "event_id", e.ID, "error", err)
	}
}
