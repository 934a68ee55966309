// Package base holds what every distributor subcommand shares: the logger,
// the UI, flag handling and the loading of configuration into live
// collaborators.
package base

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
)

// Command is embedded by every subcommand.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	// FS is where configuration is read from. Nil means the OS filesystem.
	FS afero.Fs
}

// NewCommand returns a Command on the OS filesystem.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{Log: log, UI: ui, FS: afero.NewOsFs()}
}

func (c *Command) fs() afero.Fs {
	if c.FS == nil {
		return afero.NewOsFs()
	}
	return c.FS
}
