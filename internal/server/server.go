package server

import (
	"github.com/hashicorp-forge/distributor/internal/config"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

// Server contains the server configuration.
type Server struct {
	// Config is the config for the server.
	Config *config.Config

	// DB is the database for the server.
	DB *gorm.DB

	// Subscriptions verifies and updates subscriptions held by remote sites.
	Subscriptions subscriptions.Registry

	// Logger is the logger for the server.
	Logger hclog.Logger
}
