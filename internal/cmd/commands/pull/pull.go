package pull

import (
	"context"
	"flag"
	"fmt"

	"github.com/hashicorp-forge/distributor/internal/cmd/base"
	"github.com/hashicorp-forge/distributor/pkg/connection"
)

type Command struct {
	*base.Command

	flagConfig  string
	flagType    string
	flagStatus  string
	flagLocalID int64
}

func (c *Command) Synopsis() string {
	return "Import remote documents into the local store"
}

func (c *Command) Help() string {
	return `Usage: distributor pull [options] <connection> <remote-id>...

  Fetches each remote document and stores a local copy as a draft, recording
  where it came from. Items are independent: one failure does not stop the
  others.

  -local-id updates an existing local document and requires a single
  remote id.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("pull", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the distributor config file.",
	)
	f.StringVar(
		&c.flagType, "type", connection.DefaultPostType, "Remote post type.",
	)
	f.StringVar(
		&c.flagStatus, "status", "", `Local status of the copies. Defaults to "draft".`,
	)
	f.Int64Var(
		&c.flagLocalID, "local-id", 0, "Existing local document to update.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() < 2 {
		ui.Error("a connection name and at least one remote id are required")
		return 1
	}
	if c.flagLocalID != 0 && flags.NArg() != 2 {
		ui.Error("-local-id requires exactly one remote id")
		return 1
	}

	items := make([]connection.PullItem, 0, flags.NArg()-1)
	for _, arg := range flags.Args()[1:] {
		id, err := base.ParseID(arg)
		if err != nil {
			ui.Error(err.Error())
			return 1
		}
		items = append(items, connection.PullItem{
			RemoteID: id,
			LocalID:  c.flagLocalID,
			PostType: c.flagType,
			Status:   c.flagStatus,
		})
	}

	rt, err := c.Open(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	defer rt.Close()

	conn, err := rt.Connection(flags.Arg(0))
	if err != nil {
		ui.Error(fmt.Sprintf("error building connection: %v", err))
		return 1
	}

	failed := 0
	for _, res := range conn.Pull(context.Background(), items) {
		if res.Err != nil {
			failed++
			ui.Error(fmt.Sprintf("remote %d: %v", res.RemoteID, res.Err))
			continue
		}
		ui.Output(fmt.Sprintf("remote %d -> local %d", res.RemoteID, res.LocalID))
		if res.Warnings != nil {
			ui.Warn(fmt.Sprintf("remote %d: %v", res.RemoteID, res.Warnings))
		}
	}

	if failed > 0 {
		ui.Error(fmt.Sprintf("%d of %d documents failed", failed, len(items)))
		return 1
	}
	return 0
}
