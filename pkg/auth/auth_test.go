package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareCredentials_Basic(t *testing.T) {
	tests := []struct {
		name        string
		raw         Credentials
		wantEncoded string
	}{
		{
			name:        "password derives token",
			raw:         Credentials{Username: " admin ", Password: "secret"},
			wantEncoded: base64.StdEncoding.EncodeToString([]byte("admin:secret")),
		},
		{
			name:        "existing token kept without password",
			raw:         Credentials{Username: "admin", Base64Encoded: "abc123"},
			wantEncoded: "abc123",
		},
		{
			name:        "new password replaces existing token",
			raw:         Credentials{Username: "admin", Password: "changed", Base64Encoded: "abc123"},
			wantEncoded: base64.StdEncoding.EncodeToString([]byte("admin:changed")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := PrepareCredentials(SchemeBasic, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, "admin", creds.Username)
			assert.Equal(t, tt.wantEncoded, creds.Base64Encoded)
			assert.Empty(t, creds.Password, "plaintext password must not persist")
		})
	}
}

func TestPrepareCredentials_StripsControlCharacters(t *testing.T) {
	creds, err := PrepareCredentials(SchemeToken, Credentials{Token: "abc\n\tdef\x00"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", creds.Token)
}

func TestPrepareCredentials_UnknownScheme(t *testing.T) {
	_, err := PrepareCredentials("kerberos", Credentials{})
	assert.ErrorIs(t, err, ErrUnknownScheme)

	_, err = New("kerberos", Credentials{})
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestBasicHandler_FormatArgs(t *testing.T) {
	h, err := New(SchemeBasic, Credentials{Username: "admin", Base64Encoded: "dG9rZW4="})
	require.NoError(t, err)

	base := RequestArgs{
		Header:  http.Header{"Accept": []string{"application/json"}},
		Timeout: 5 * time.Second,
	}

	got := h.FormatGetArgs(base)
	assert.Equal(t, "Basic dG9rZW4=", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, 5*time.Second, got.Timeout)

	post := h.FormatPostArgs(base)
	assert.Equal(t, "Basic dG9rZW4=", post.Header.Get("Authorization"))

	// The caller's copy is never mutated.
	assert.Empty(t, base.Header.Get("Authorization"))
}

func TestBasicHandler_DerivesFromChangedPassword(t *testing.T) {
	h, err := New(SchemeBasic, Credentials{Username: "admin", Password: "pw", Base64Encoded: "stale"})
	require.NoError(t, err)

	got := h.FormatGetArgs(RequestArgs{})
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:pw"))
	assert.Equal(t, want, got.Header.Get("Authorization"))
}

func TestHandlers_AbsentCredentials(t *testing.T) {
	for _, scheme := range Schemes() {
		t.Run(string(scheme), func(t *testing.T) {
			h, err := New(scheme, Credentials{})
			require.NoError(t, err)
			assert.Equal(t, scheme, h.Scheme())

			base := RequestArgs{Timeout: time.Second}
			assert.NotPanics(t, func() {
				got := h.FormatGetArgs(base)
				assert.False(t, HasAuthorization(got))
				assert.Equal(t, time.Second, got.Timeout)

				got = h.FormatPostArgs(base)
				assert.False(t, HasAuthorization(got))
			})
		})
	}
}

func TestTokenHandler_DefaultsToBearer(t *testing.T) {
	h, err := New(SchemeToken, Credentials{Token: "t0k"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer t0k", h.FormatGetArgs(RequestArgs{}).Header.Get("Authorization"))

	h, err = New(SchemeToken, Credentials{Token: "t0k", TokenType: "Token"})
	require.NoError(t, err)
	assert.Equal(t, "Token t0k", h.FormatPostArgs(RequestArgs{}).Header.Get("Authorization"))
}

func TestJWTHandler_SignsVerifiableToken(t *testing.T) {
	h, err := New(SchemeJWT, Credentials{Username: "editor", Issuer: "origin.example", Secret: "shh"})
	require.NoError(t, err)

	header := h.FormatGetArgs(RequestArgs{}).Header.Get("Authorization")
	require.Contains(t, header, "Bearer ")

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(header[len("Bearer "):], claims, func(*jwt.Token) (any, error) {
		return []byte("shh"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "editor", claims.Subject)
	assert.Equal(t, "origin.example", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(defaultJWTLifetime), claims.ExpiresAt.Time, 2*time.Second)
}

func TestOAuth2Handler_ExpiredTokenNotSent(t *testing.T) {
	h, err := New(SchemeOAuth2, Credentials{Token: "old", Expiry: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.False(t, HasAuthorization(h.FormatGetArgs(RequestArgs{})))

	h, err = New(SchemeOAuth2, Credentials{Token: "fresh", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", h.FormatGetArgs(RequestArgs{}).Header.Get("Authorization"))
}

func TestOAuth2Handler_Refresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "r1", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	h, err := New(SchemeOAuth2, Credentials{
		Token:        "old",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(-time.Minute),
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL,
	})
	require.NoError(t, err)

	refresher, ok := h.(Refresher)
	require.True(t, ok)
	require.NoError(t, refresher.Refresh(context.Background()))

	assert.Equal(t, "Bearer new-access", h.FormatGetArgs(RequestArgs{}).Header.Get("Authorization"))

	creds := h.(*oauth2Handler).Credentials()
	assert.Equal(t, "r1", creds.RefreshToken, "refresh token is carried over when the server omits it")
}

func TestOAuth2Handler_RefreshUnsupported(t *testing.T) {
	h, err := New(SchemeOAuth2, Credentials{Token: "static"})
	require.NoError(t, err)

	err = h.(Refresher).Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshUnsupported)
}
