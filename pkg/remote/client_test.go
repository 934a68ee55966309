package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/distributor/pkg/auth"
)

func TestClient_GetSendsFormattedHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set(HeaderMarker, "yes")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewClient(nil, nil)
	args := auth.RequestArgs{Header: http.Header{"Authorization": []string{"Basic abc"}}}

	resp, err := c.Get(context.Background(), srv.URL, args)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.HasMarker())

	var body map[string]bool
	require.NoError(t, resp.DecodeJSON(&body))
	assert.True(t, body["ok"])
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":7}`)
	}))
	defer srv.Close()

	resp, err := NewClient(nil, nil).PostJSON(context.Background(), srv.URL, map[string]int{"test": 1}, auth.RequestArgs{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, resp.HasMarker())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(nil, nil).Get(context.Background(), url, auth.RequestArgs{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_TimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(nil, nil).Get(context.Background(), srv.URL, auth.RequestArgs{Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestResponse_DecodeJSON(t *testing.T) {
	var v any

	err := (&Response{Body: []byte("  \n")}).DecodeJSON(&v)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	err = (&Response{Body: []byte("<html>oops</html>")}).DecodeJSON(&v)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		wantCode string
		wantMsg  string
		is401    bool
	}{
		{
			name:     "remote code and message",
			resp:     &Response{StatusCode: 403, Body: []byte(`{"code":"rest_forbidden","message":"Sorry"}`)},
			wantCode: "rest_forbidden",
			wantMsg:  "Sorry",
		},
		{
			name:     "non JSON body",
			resp:     &Response{StatusCode: 500, Body: []byte("fatal error")},
			wantCode: "endpoint-error",
			wantMsg:  "API endpoint error.",
		},
		{
			name:     "unauthorized",
			resp:     &Response{StatusCode: 401, Body: []byte(`{"code":"rest_not_logged_in"}`)},
			wantCode: "rest_not_logged_in",
			wantMsg:  "API endpoint error.",
			is401:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.resp)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.ErrorIs(t, err, ErrRemoteAPI)
			assert.Equal(t, tt.is401, err.Is(ErrUnauthorized))
		})
	}
}

func TestAPIRootFromLinks(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{
			name:   "single header",
			values: []string{`<https://example.com/wp-json/>; rel="https://api.w.org/"`},
			want:   "https://example.com/wp-json/",
		},
		{
			name: "comma joined with other relations",
			values: []string{
				`<https://example.com/?p=1>; rel="shortlink", <https://example.com/wp-json/>; rel="https://api.w.org/"`,
			},
			want: "https://example.com/wp-json/",
		},
		{
			name: "repeated headers",
			values: []string{
				`<https://example.com/feed>; rel="alternate"`,
				`<https://other.example/wp-json>; rel="https://api.w.org/"`,
			},
			want: "https://other.example/wp-json",
		},
		{
			name:   "absent",
			values: []string{`<https://example.com/feed>; rel="alternate"`},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for _, v := range tt.values {
				h.Add("Link", v)
			}
			assert.Equal(t, tt.want, APIRootFromLinks(h))
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://example.com/wp-json", NormalizeBaseURL(" https://example.com/wp-json// "))
	assert.Equal(t, "https://example.com", NormalizeBaseURL("https://example.com"))
}

func TestWrongEndpointError(t *testing.T) {
	err := error(&WrongEndpointError{Configured: "a", Suggestion: "b"})
	assert.ErrorIs(t, err, ErrWrongEndpoint)
	assert.Contains(t, err.Error(), "b")
}
