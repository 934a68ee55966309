package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/distributor/internal/cmd/base"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/check"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/credentials"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/list"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/pull"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/push"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/serve"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/subscriptions"
	"github.com/hashicorp-forge/distributor/internal/cmd/commands/version"
)

// Commands is the mapping of all the available commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(log, ui)

	Commands = map[string]cli.CommandFactory{
		"check": func() (cli.Command, error) {
			return &check.Command{Command: b}, nil
		},
		"credentials": func() (cli.Command, error) {
			return &credentials.Command{Command: b}, nil
		},
		"list": func() (cli.Command, error) {
			return &list.Command{Command: b}, nil
		},
		"pull": func() (cli.Command, error) {
			return &pull.Command{Command: b}, nil
		},
		"push": func() (cli.Command, error) {
			return &push.Command{Command: b}, nil
		},
		"serve": func() (cli.Command, error) {
			return &serve.Command{Command: b}, nil
		},
		"subscriptions": func() (cli.Command, error) {
			return &subscriptions.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
