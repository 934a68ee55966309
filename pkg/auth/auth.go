// Package auth turns stored connection credentials into per-request headers.
//
// A Handler is resolved once, when a connection is built, from the scheme slug
// stored with the connection. Handlers never perform I/O while formatting
// request arguments; the only exception is the optional Refresher interface,
// which a caller must invoke explicitly.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Scheme is the stored slug that selects an authentication variant.
type Scheme string

const (
	// SchemeBasic is username/password HTTP Basic auth.
	SchemeBasic Scheme = "user-pass"
	// SchemeToken sends a static bearer (or custom type) token.
	SchemeToken Scheme = "token"
	// SchemeOAuth2 sends a stored OAuth2 access token and can refresh it.
	SchemeOAuth2 Scheme = "oauth2"
	// SchemeJWT signs a short-lived HS256 token per request from a shared secret.
	SchemeJWT Scheme = "jwt"
	// SchemeNone sends no credentials.
	SchemeNone Scheme = "none"
)

// ErrUnknownScheme is returned for a slug no handler is registered for.
var ErrUnknownScheme = errors.New("unknown auth scheme")

// ErrRefreshUnsupported is returned by Refresh when the stored credentials
// cannot be refreshed.
var ErrRefreshUnsupported = errors.New("credentials cannot be refreshed")

// Schemes lists every supported scheme in display order.
func Schemes() []Scheme {
	return []Scheme{SchemeBasic, SchemeToken, SchemeOAuth2, SchemeJWT, SchemeNone}
}

// RequestArgs are the per-request options a handler may augment.
type RequestArgs struct {
	Header  http.Header
	Timeout time.Duration
}

// Clone returns a deep copy so handlers never mutate the caller's args.
func (a RequestArgs) Clone() RequestArgs {
	return RequestArgs{
		Header:  a.Header.Clone(),
		Timeout: a.Timeout,
	}
}

// withAuthorization returns a copy of args carrying the given Authorization value.
func (a RequestArgs) withAuthorization(value string) RequestArgs {
	out := a.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	out.Header.Set("Authorization", value)
	return out
}

// Handler augments base request args with credentials.
//
// Both methods must be safe to call with absent credentials, in which case
// they return an unchanged copy of args.
type Handler interface {
	Scheme() Scheme
	FormatGetArgs(args RequestArgs) RequestArgs
	FormatPostArgs(args RequestArgs) RequestArgs
}

// Refresher is implemented by handlers whose credentials can be renewed.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// HasAuthorization reports whether args carry an Authorization header.
func HasAuthorization(args RequestArgs) bool {
	return args.Header.Get("Authorization") != ""
}

// New builds the handler for scheme from stored credentials.
func New(scheme Scheme, creds Credentials) (Handler, error) {
	switch scheme {
	case SchemeBasic:
		return newBasicHandler(creds), nil
	case SchemeToken:
		return newTokenHandler(creds), nil
	case SchemeOAuth2:
		return newOAuth2Handler(creds), nil
	case SchemeJWT:
		return newJWTHandler(creds), nil
	case SchemeNone, "":
		return noneHandler{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

type noneHandler struct{}

func (noneHandler) Scheme() Scheme { return SchemeNone }

func (noneHandler) FormatGetArgs(args RequestArgs) RequestArgs { return args.Clone() }

func (noneHandler) FormatPostArgs(args RequestArgs) RequestArgs { return args.Clone() }
