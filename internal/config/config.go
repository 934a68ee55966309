// Package config loads the distributor HCL configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
)

const (
	// DefaultPath is read when neither -config nor DISTRIBUTOR_CONFIG is set.
	DefaultPath = "distributor.hcl"

	// EnvPath overrides DefaultPath.
	EnvPath = "DISTRIBUTOR_CONFIG"

	// EnvKafkaBrokers overrides the brokers of the events block.
	EnvKafkaBrokers = "DISTRIBUTOR_KAFKA_BROKERS"
)

// ErrUnknownConnection is returned by Connection for a name not in the file.
var ErrUnknownConnection = errors.New("unknown connection")

// Config is the root of the configuration file.
type Config struct {
	Site        *Site         `hcl:"site,block"`
	Database    *Database     `hcl:"database,block"`
	Connections []*Connection `hcl:"connection,block"`
	Events      *Events       `hcl:"events,block"`
	Server      *Server       `hcl:"server,block"`
	Log         *Log          `hcl:"log,block"`
}

// Site describes the local site.
type Site struct {
	Name string `hcl:"name,optional"`
	URL  string `hcl:"url"`

	// DefaultAuthor is assigned to pulled documents.
	DefaultAuthor int64 `hcl:"default_author,optional"`
}

// Database configures the local store.
type Database struct {
	Driver   string `hcl:"driver,optional"`
	Path     string `hcl:"path,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	DBName   string `hcl:"dbname,optional"`
	SSLMode  string `hcl:"sslmode,optional"`

	MaxIdleConns    int    `hcl:"max_idle_conns,optional"`
	MaxOpenConns    int    `hcl:"max_open_conns,optional"`
	ConnMaxLifetime string `hcl:"conn_max_lifetime,optional"`
	ConnMaxIdleTime string `hcl:"conn_max_idle_time,optional"`
	ConnectTimeout  string `hcl:"connect_timeout,optional"`
}

// Connection is one external connection.
type Connection struct {
	Name        string `hcl:"name,label"`
	URL         string `hcl:"url"`
	Namespace   string `hcl:"namespace,optional"`
	PerPage     int    `hcl:"per_page,optional"`
	PushTimeout string `hcl:"push_timeout,optional"`
	WriteProbe  string `hcl:"write_probe,optional"`

	// TLSSkipVerify accepts self-signed certificates.
	TLSSkipVerify bool `hcl:"tls_skip_verify,optional"`

	Auth *Auth `hcl:"auth,block"`
}

// Auth holds the credentials of a connection as entered by an operator.
type Auth struct {
	Scheme string `hcl:"scheme"`

	Username      string `hcl:"username,optional"`
	Password      string `hcl:"password,optional"`
	Base64Encoded string `hcl:"base64_encoded,optional"`

	Token        string `hcl:"token,optional"`
	TokenType    string `hcl:"token_type,optional"`
	RefreshToken string `hcl:"refresh_token,optional"`
	Expiry       string `hcl:"expiry,optional"`
	ClientID     string `hcl:"client_id,optional"`
	ClientSecret string `hcl:"client_secret,optional"`
	TokenURL     string `hcl:"token_url,optional"`

	Secret   string `hcl:"secret,optional"`
	Issuer   string `hcl:"issuer,optional"`
	Lifetime string `hcl:"lifetime,optional"`
}

// Events selects where syndication events are published.
type Events struct {
	// Sink is "none" (default), "log" or "kafka".
	Sink    string   `hcl:"sink,optional"`
	Brokers []string `hcl:"brokers,optional"`
	Topic   string   `hcl:"topic,optional"`
}

// Server configures the inbound subscription API.
type Server struct {
	Addr         string `hcl:"addr,optional"`
	ReadTimeout  string `hcl:"read_timeout,optional"`
	WriteTimeout string `hcl:"write_timeout,optional"`
}

// Log configures the root logger.
type Log struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Path resolves the config file path: flag, then DISTRIBUTOR_CONFIG, then
// DefaultPath.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads, decodes and validates the file at path.
func Load(fs afero.Fs, path string) (*Config, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %q: %w", path, err)
	}
	return Parse(path, src)
}

// Parse decodes HCL source. filename is used only in diagnostics and must end
// in .hcl.
func Parse(filename string, src []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, src, nil, &cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site == nil {
		c.Site = &Site{}
	}
	if c.Site.DefaultAuthor == 0 {
		c.Site.DefaultAuthor = 1
	}
	if c.Database == nil {
		c.Database = &Database{}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "distributor.db"
	}
	if c.Events == nil {
		c.Events = &Events{}
	}
	if c.Events.Sink == "" {
		c.Events.Sink = "none"
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "distributor.syndication"
	}
	if brokers := os.Getenv(EnvKafkaBrokers); brokers != "" {
		c.Events.Brokers = strings.Split(brokers, ",")
	}
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Log == nil {
		c.Log = &Log{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "standard"
	}
}

// Validate checks the decoded configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c.Site,
		validation.Field(&c.Site.URL, validation.Required),
	); err != nil {
		return fmt.Errorf("site: %w", err)
	}

	if err := validation.ValidateStruct(c.Database,
		validation.Field(&c.Database.Driver, validation.In("sqlite", "postgres")),
		validation.Field(&c.Database.Host, validation.When(c.Database.Driver == "postgres", validation.Required)),
		validation.Field(&c.Database.DBName, validation.When(c.Database.Driver == "postgres", validation.Required)),
		validation.Field(&c.Database.ConnMaxLifetime, validation.By(duration)),
		validation.Field(&c.Database.ConnMaxIdleTime, validation.By(duration)),
		validation.Field(&c.Database.ConnectTimeout, validation.By(duration)),
	); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	seen := make(map[string]bool, len(c.Connections))
	for _, conn := range c.Connections {
		if seen[conn.Name] {
			return fmt.Errorf("connection %q: declared more than once", conn.Name)
		}
		seen[conn.Name] = true
		if err := conn.validate(); err != nil {
			return fmt.Errorf("connection %q: %w", conn.Name, err)
		}
	}

	if err := validation.ValidateStruct(c.Events,
		validation.Field(&c.Events.Sink, validation.In("none", "log", "kafka")),
		validation.Field(&c.Events.Brokers, validation.When(c.Events.Sink == "kafka", validation.Required)),
	); err != nil {
		return fmt.Errorf("events: %w", err)
	}

	if err := validation.ValidateStruct(c.Server,
		validation.Field(&c.Server.ReadTimeout, validation.By(duration)),
		validation.Field(&c.Server.WriteTimeout, validation.By(duration)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := validation.ValidateStruct(c.Log,
		validation.Field(&c.Log.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.Log.Format, validation.In("standard", "json")),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}

func (c *Connection) validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.PerPage, validation.Min(0)),
		validation.Field(&c.PushTimeout, validation.By(duration)),
		validation.Field(&c.WriteProbe, validation.In("sentinel", "declared")),
	); err != nil {
		return err
	}
	if c.Auth == nil {
		return nil
	}
	return validation.ValidateStruct(c.Auth,
		validation.Field(&c.Auth.Scheme, validation.Required),
		validation.Field(&c.Auth.Lifetime, validation.By(duration)),
	)
}

// Connection returns the connection block with the given name.
func (c *Config) Connection(name string) (*Connection, error) {
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
}

func duration(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return errors.New("must be a duration such as 30s or 5m")
	}
	return nil
}

// parseDuration parses a value already accepted by Validate.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}
