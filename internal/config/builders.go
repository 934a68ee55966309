package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/distributor/pkg/auth"
	"github.com/hashicorp-forge/distributor/pkg/connection"
	"github.com/hashicorp-forge/distributor/pkg/database"
	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/events"
	"github.com/hashicorp-forge/distributor/pkg/localstore"
	"github.com/hashicorp-forge/distributor/pkg/prober"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// LoggerOptions returns hclog options for the log block.
func (l *Log) LoggerOptions(name string) *hclog.LoggerOptions {
	return &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(l.Level),
		JSONFormat: l.Format == "json",
		Output:     os.Stderr,
	}
}

// DocumentSite returns the local site as stamped on pushed documents.
func (s *Site) DocumentSite() document.Site {
	return document.Site{Name: s.Name, URL: strings.TrimRight(s.URL, "/")}
}

// StoreConfig returns the reference store settings.
func (s *Site) StoreConfig() localstore.Config {
	return localstore.Config{SiteURL: s.URL, DefaultAuthor: s.DefaultAuthor}
}

// DatabaseConfig converts the database block.
func (d *Database) DatabaseConfig() database.Config {
	return database.Config{
		Driver:          d.Driver,
		Path:            d.Path,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		DBName:          d.DBName,
		SSLMode:         d.SSLMode,
		MaxIdleConns:    d.MaxIdleConns,
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: parseDuration(d.ConnMaxLifetime),
		ConnMaxIdleTime: parseDuration(d.ConnMaxIdleTime),
		ConnectTimeout:  parseDuration(d.ConnectTimeout),
	}
}

// KafkaConfig converts the events block for events.NewKafkaSink.
func (e *Events) KafkaConfig() events.KafkaConfig {
	brokers := make([]string, 0, len(e.Brokers))
	for _, b := range e.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return events.KafkaConfig{Brokers: brokers, Topic: e.Topic}
}

// Credentials returns the sanitized credentials to hand to auth.New. A
// supplied password is folded into the derived basic token and dropped.
func (a *Auth) Credentials() (auth.Credentials, error) {
	raw := auth.Credentials{
		Username:      a.Username,
		Password:      a.Password,
		Base64Encoded: a.Base64Encoded,
		Token:         a.Token,
		TokenType:     a.TokenType,
		RefreshToken:  a.RefreshToken,
		ClientID:      a.ClientID,
		ClientSecret:  a.ClientSecret,
		TokenURL:      a.TokenURL,
		Secret:        a.Secret,
		Issuer:        a.Issuer,
		Lifetime:      parseDuration(a.Lifetime),
	}
	if a.Expiry != "" {
		t, err := dateparse.ParseIn(a.Expiry, time.UTC)
		if err != nil {
			return auth.Credentials{}, fmt.Errorf("invalid expiry %q: %w", a.Expiry, err)
		}
		raw.Expiry = t
	}
	return auth.PrepareCredentials(auth.Scheme(a.Scheme), raw)
}

// Handler resolves the auth block into a handler. A nil block sends no
// credentials.
func (a *Auth) Handler() (auth.Handler, error) {
	if a == nil {
		return auth.New(auth.SchemeNone, auth.Credentials{})
	}
	creds, err := a.Credentials()
	if err != nil {
		return nil, err
	}
	return auth.New(auth.Scheme(a.Scheme), creds)
}

// ConnectionConfig converts the block into a connection.Config. The caller
// attaches the store, registry and event sink.
func (c *Connection) ConnectionConfig(site *Site, logger hclog.Logger) (connection.Config, error) {
	handler, err := c.Auth.Handler()
	if err != nil {
		return connection.Config{}, fmt.Errorf("connection %q: %w", c.Name, err)
	}

	cfg := connection.Config{
		ID:          c.Name,
		BaseURL:     c.URL,
		Namespace:   c.Namespace,
		Auth:        handler,
		PerPage:     c.PerPage,
		PushTimeout: parseDuration(c.PushTimeout),
		WriteProbe:  prober.WriteProbe(c.WriteProbe),
		HTTPClient:  remote.NewHTTPClient(!c.TLSSkipVerify),
		Logger:      logger,
	}
	if site != nil {
		cfg.Site = site.DocumentSite()
	}
	return cfg, nil
}

// Timeouts returns the server read and write timeouts. Zero means 30s.
func (s *Server) Timeouts() (read, write time.Duration) {
	read, write = parseDuration(s.ReadTimeout), parseDuration(s.WriteTimeout)
	if read == 0 {
		read = 30 * time.Second
	}
	if write == 0 {
		write = 30 * time.Second
	}
	return read, write
}
