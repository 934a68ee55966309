package serve

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/distributor/internal/config"
	"github.com/hashicorp-forge/distributor/internal/server"
	"github.com/hashicorp-forge/distributor/pkg/database"
	"github.com/hashicorp-forge/distributor/pkg/remote"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

func testServer(t *testing.T) server.Server {
	t.Helper()

	cfg, err := config.Parse("test.hcl", []byte(`site { url = "https://origin.example" }`))
	require.NoError(t, err)

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return server.Server{
		Config:        cfg,
		DB:            db,
		Subscriptions: subscriptions.NewGormRegistry(db, nil),
		Logger:        hclog.NewNullLogger(),
	}
}

func TestHandler_Routes(t *testing.T) {
	h := Handler(testServer(t))

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/subscriptions?local_post_id=1", http.StatusOK},
		{http.MethodPost, "/api/v1/subscriptions/notify", http.StatusBadRequest},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString("{"))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "yes", w.Header().Get(remote.HeaderMarker))
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := testServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, srv) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}
