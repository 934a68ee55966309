package connection

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/distributor/pkg/auth"
	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/events"
	"github.com/hashicorp-forge/distributor/pkg/prober"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

type harness struct {
	peer     *peer
	store    *memStore
	registry *memRegistry
	events   *events.Recorder
	conn     *Connection
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()

	h := &harness{
		peer:     newPeer(t),
		store:    newMemStore(),
		registry: newMemRegistry(),
		events:   &events.Recorder{},
	}

	cfg := Config{
		ID:            "remote-a",
		BaseURL:       h.peer.URL + "/",
		Store:         h.store,
		Importer:      h.store,
		Subscriptions: h.registry,
		Events:        h.events,
		Site:          document.Site{Name: "Origin", URL: "https://origin.example"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, err := New(cfg)
	require.NoError(t, err)
	h.conn = conn
	return h
}

func withAuth(t *testing.T, scheme auth.Scheme, creds auth.Credentials) func(*Config) {
	t.Helper()
	handler, err := auth.New(scheme, creds)
	require.NoError(t, err)
	return func(c *Config) { c.Auth = handler }
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing id", Config{BaseURL: "https://remote.example"}},
		{"missing base url", Config{ID: "a"}},
		{"relative base url", Config{ID: "a", BaseURL: "/wp-json"}},
		{"unsupported scheme", Config{ID: "a", BaseURL: "ftp://remote.example"}},
		{"negative per page", Config{ID: "a", BaseURL: "https://remote.example", PerPage: -1}},
		{"unknown write probe", Config{ID: "a", BaseURL: "https://remote.example", WriteProbe: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}

	conn, err := New(Config{ID: "a", BaseURL: " https://remote.example/wp-json/ ", WriteProbe: prober.WriteProbeDeclared})
	require.NoError(t, err)
	assert.Equal(t, "https://remote.example/wp-json", conn.BaseURL())
	assert.Equal(t, "a", conn.ID())
	assert.Equal(t, auth.SchemeNone, conn.Auth().Scheme())
}

func TestRemoteGet_Listing(t *testing.T) {
	h := newHarness(t)
	h.peer.addPost(1, "One")
	h.peer.addPost(2, "Two")
	h.peer.total = "42"

	listing, err := h.conn.RemoteGet(context.Background(), Query{Include: []int64{1, 2}})
	require.NoError(t, err)

	require.Len(t, listing.Items, 2)
	assert.Equal(t, "One", listing.Items[0].Title)
	assert.Equal(t, "Two", listing.Items[1].Title)
	assert.Equal(t, 42, listing.Total)

	assert.Equal(t, []string{"GET /wp/v2/types", "GET /wp/v2/posts/"}, h.peer.requestLog(),
		"one discovery and exactly one collection fetch")

	q := h.peer.lastQuery()
	assert.Equal(t, []string{"1", "2"}, q["include[]"])
	assert.Equal(t, []string{"10"}, q["per_page"])
	assert.Equal(t, []string{"any"}, q["post_status"])
	assert.Equal(t, []string{"1"}, q["page"])
	assert.NotContains(t, q, "context", "anonymous requests use the view context")
}

func TestRemoteGet_QueryOptions(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.PerPage = 25 })

	_, err := h.conn.RemoteGet(context.Background(), Query{
		Status:  "publish",
		Page:    3,
		Exclude: []int64{7, 8},
		Search:  "hello world",
	})
	require.NoError(t, err)

	q := h.peer.lastQuery()
	assert.Equal(t, []string{"25"}, q["per_page"])
	assert.Equal(t, []string{"publish"}, q["post_status"])
	assert.Equal(t, []string{"3"}, q["page"])
	assert.Equal(t, []string{"7", "8"}, q["exclude[]"])
	assert.Equal(t, []string{"hello world"}, q["search"])
}

func TestRemoteGet_TotalFallsBackToCount(t *testing.T) {
	h := newHarness(t)
	h.peer.addPost(1, "One")

	listing, err := h.conn.RemoteGet(context.Background(), Query{Include: []int64{1, 99}})
	require.NoError(t, err)
	assert.Len(t, listing.Items, 1)
	assert.Equal(t, 1, listing.Total)
}

func TestRemoteGet_EmptyIncludeShortCircuits(t *testing.T) {
	h := newHarness(t)

	listing, err := h.conn.RemoteGet(context.Background(), Query{Include: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, listing.Items)
	assert.NotNil(t, listing.Items)
	assert.Zero(t, listing.Total)
	assert.Empty(t, h.peer.requestLog(), "no request is issued")
}

func TestRemoteGet_EditContextWithCredentials(t *testing.T) {
	h := newHarness(t, withAuth(t, auth.SchemeToken, auth.Credentials{Token: "secret"}))
	h.peer.addPost(1, "One")

	_, err := h.conn.RemoteGet(context.Background(), Query{Include: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"edit"}, h.peer.lastQuery()["context"])

	doc, err := h.conn.RemoteGetByID(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"edit"}, h.peer.lastQuery()["context"])
	assert.Equal(t, "excerpt of One", doc.Excerpt)

	for _, a := range h.peer.auth {
		assert.Equal(t, "Bearer secret", a)
	}
}

func TestRemoteGet_SingleByID(t *testing.T) {
	h := newHarness(t)
	h.peer.marker = true
	h.peer.addPost(6, "Six")

	listing, err := h.conn.RemoteGet(context.Background(), Query{ID: 6})
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)

	doc := listing.Items[0]
	assert.Equal(t, int64(6), doc.ID)
	assert.True(t, doc.FullConnection)
	assert.Equal(t, "Peer", doc.OriginalSiteName)
	assert.Equal(t, []string{"view"}, h.peer.lastQuery()["context"])
	assert.Contains(t, h.peer.requestLog(), "GET /wp/v2/posts/6/")
}

func TestRemoteGetByID_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.conn.RemoteGetByID(context.Background(), "post", 5)
	assert.ErrorIs(t, err, remote.ErrEndpointNotFound)

	_, err = h.conn.RemoteGetByID(context.Background(), "post", 500)
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "rest_broken", apiErr.Code)
	assert.Equal(t, "it broke", apiErr.Message)

	h.peer.typesDown = true
	_, err = h.conn.RemoteGetByID(context.Background(), "post", 1)
	assert.ErrorIs(t, err, remote.ErrEndpointNotFound)
}

func TestRefreshCredentials_Unsupported(t *testing.T) {
	h := newHarness(t, withAuth(t, auth.SchemeBasic, auth.Credentials{Username: "u", Password: "p"}))
	assert.ErrorIs(t, h.conn.RefreshCredentials(context.Background()), auth.ErrRefreshUnsupported)
}

func TestCheckConnections_Delegates(t *testing.T) {
	h := newHarness(t)
	report := h.conn.CheckConnections(context.Background())
	assert.True(t, report.Has(prober.DiagnosisUnreachable), "fake peer serves no API root")
}

func TestPushTimeoutDefault(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, remote.PushTimeout, h.conn.pushTimeout)

	h = newHarness(t, func(c *Config) { c.PushTimeout = 2 * time.Minute })
	assert.Equal(t, 2*time.Minute, h.conn.pushTimeout)
}

func TestQueryValues_IncludeWinsOverExclude(t *testing.T) {
	v := Query{Include: []int64{1}, Exclude: []int64{2}}.values(10, false)
	assert.Equal(t, []string{"1"}, v["include[]"])
	assert.NotContains(t, v, "exclude[]")
	assert.False(t, strings.Contains(v.Encode(), "context"))
}
