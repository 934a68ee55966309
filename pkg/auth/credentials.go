package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Credentials are the fields persisted for a connection's auth handler.
//
// Password is input only: PrepareCredentials derives Base64Encoded from it and
// clears it, so the plaintext never persists next to the derived token.
type Credentials struct {
	Username      string `json:"username,omitempty"`
	Password      string `json:"-"`
	Base64Encoded string `json:"base64_encoded,omitempty"`

	Token        string    `json:"token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`

	// OAuth2 client settings, only needed to refresh.
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`

	// JWT signing settings.
	Secret   string        `json:"secret,omitempty"`
	Issuer   string        `json:"issuer,omitempty"`
	Lifetime time.Duration `json:"lifetime,omitempty"`
}

// PrepareCredentials sanitizes raw form input into the credentials to store
// for scheme.
func PrepareCredentials(scheme Scheme, raw Credentials) (Credentials, error) {
	var out Credentials

	switch scheme {
	case SchemeBasic:
		out.Username = sanitize(raw.Username)
		out.Base64Encoded = sanitize(raw.Base64Encoded)
		if raw.Password != "" {
			out.Base64Encoded = basicToken(out.Username, raw.Password)
		}

	case SchemeToken:
		out.Token = sanitize(raw.Token)
		out.TokenType = sanitize(raw.TokenType)

	case SchemeOAuth2:
		out.Token = sanitize(raw.Token)
		out.TokenType = sanitize(raw.TokenType)
		out.RefreshToken = sanitize(raw.RefreshToken)
		out.Expiry = raw.Expiry
		out.ClientID = sanitize(raw.ClientID)
		out.ClientSecret = sanitize(raw.ClientSecret)
		out.TokenURL = sanitize(raw.TokenURL)

	case SchemeJWT:
		out.Username = sanitize(raw.Username)
		out.Secret = strings.TrimSpace(raw.Secret)
		out.Issuer = sanitize(raw.Issuer)
		out.Lifetime = raw.Lifetime

	case SchemeNone, "":

	default:
		return Credentials{}, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}

	return out, nil
}

func basicToken(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// sanitize trims whitespace and strips control characters and line breaks.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
