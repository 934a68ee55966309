package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// oauth2Handler sends a stored OAuth2 access token.
//
// An expired token is not sent; the remote then answers 401 and capability
// probes exclude the type until Refresh succeeds.
type oauth2Handler struct {
	mu     sync.RWMutex
	token  *oauth2.Token
	config *oauth2.Config
}

var _ Refresher = (*oauth2Handler)(nil)

func newOAuth2Handler(creds Credentials) *oauth2Handler {
	h := &oauth2Handler{}
	if creds.Token != "" || creds.RefreshToken != "" {
		h.token = &oauth2.Token{
			AccessToken:  creds.Token,
			TokenType:    creds.TokenType,
			RefreshToken: creds.RefreshToken,
			Expiry:       creds.Expiry,
		}
	}
	if creds.TokenURL != "" {
		h.config = &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: creds.TokenURL,
			},
		}
	}
	return h
}

func (h *oauth2Handler) Scheme() Scheme { return SchemeOAuth2 }

func (h *oauth2Handler) FormatGetArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *oauth2Handler) FormatPostArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *oauth2Handler) format(args RequestArgs) RequestArgs {
	h.mu.RLock()
	tok := h.token
	h.mu.RUnlock()

	if !tok.Valid() {
		return args.Clone()
	}
	return args.withAuthorization(tok.Type() + " " + tok.AccessToken)
}

// Refresh exchanges the stored refresh token for a new access token.
func (h *oauth2Handler) Refresh(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.config == nil || h.token == nil || h.token.RefreshToken == "" {
		return ErrRefreshUnsupported
	}

	// Dropping the access token forces the token source to hit the endpoint.
	stale := &oauth2.Token{RefreshToken: h.token.RefreshToken}
	tok, err := h.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return fmt.Errorf("refresh oauth2 token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = h.token.RefreshToken
	}
	h.token = tok
	return nil
}

// Credentials returns the current token fields for persisting after a refresh.
func (h *oauth2Handler) Credentials() Credentials {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var creds Credentials
	if h.token != nil {
		creds.Token = h.token.AccessToken
		creds.TokenType = h.token.TokenType
		creds.RefreshToken = h.token.RefreshToken
		creds.Expiry = h.token.Expiry
	}
	if h.config != nil {
		creds.ClientID = h.config.ClientID
		creds.ClientSecret = h.config.ClientSecret
		creds.TokenURL = h.config.Endpoint.TokenURL
	}
	return creds
}
