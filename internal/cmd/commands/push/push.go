package push

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/hashicorp-forge/distributor/internal/cmd/base"
	"github.com/hashicorp-forge/distributor/pkg/connection"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

type Command struct {
	*base.Command

	flagConfig   string
	flagRemoteID int64
	flagStatus   string
}

func (c *Command) Synopsis() string {
	return "Syndicate a local document to a remote site"
}

func (c *Command) Help() string {
	return `Usage: distributor push [options] <connection> <local-id>

  Sends the local document to the remote site. When the document was pushed
  to this remote before, the earlier remote copy is updated; otherwise a new
  one is created. Full-connection peers also receive a subscription so they
  can report later changes back.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("push", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the distributor config file.",
	)
	f.Int64Var(
		&c.flagRemoteID, "remote-id", 0,
		"Remote document to update. Defaults to the one recorded by an earlier push.",
	)
	f.StringVar(
		&c.flagStatus, "status", "", `Remote status. Defaults to "publish".`,
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
	if flags.NArg() != 2 {
		ui.Error("a connection name and a local id are required")
		return 1
	}
	localID, err := base.ParseID(flags.Arg(1))
	if err != nil {
		ui.Error(err.Error())
		return 1
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

	ctx := context.Background()
	remoteID := c.flagRemoteID
	if remoteID == 0 {
		sub, err := rt.Subscriptions.Get(ctx, localID, conn.BaseURL())
		switch {
		case err == nil:
			remoteID = sub.RemotePostID
		case !errors.Is(err, subscriptions.ErrNotFound):
			ui.Error(fmt.Sprintf("error reading subscription: %v", err))
			return 1
		}
	}

	res, err := conn.Push(ctx, localID, connection.PushOptions{
		RemoteID: remoteID,
		Status:   c.flagStatus,
	})
	if err != nil {
		ui.Error(fmt.Sprintf("error pushing document %d: %v", localID, err))
		return 1
	}

	verb := "created"
	if res.Updated {
		verb = "updated"
	}
	ui.Output(fmt.Sprintf("local %d -> remote %d (%s)", localID, res.RemoteID, verb))
	ui.Info(res.TargetURL)
	if res.SubscriptionErr != nil {
		ui.Warn(fmt.Sprintf("subscription not recorded: %v", res.SubscriptionErr))
	}
	return 0
}
