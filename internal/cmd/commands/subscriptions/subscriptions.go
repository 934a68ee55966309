package subscriptions

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/hashicorp-forge/distributor/internal/cmd/base"
)

type Command struct {
	*base.Command

	flagConfig string
	flagDelete string
}

func (c *Command) Synopsis() string {
	return "List or remove the subscriptions of a local document"
}

func (c *Command) Help() string {
	return `Usage: distributor subscriptions [options] <local-id>

  Lists the remote sites holding a pushed copy of the local document. With
  -delete, removes the subscription of one remote instead.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("subscriptions", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the distributor config file.",
	)
	f.StringVar(
		&c.flagDelete, "delete", "",
		"Remote base URL whose subscription should be removed.",
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
	if flags.NArg() != 1 {
		ui.Error("exactly one local id is required")
		return 1
	}
	localID, err := base.ParseID(flags.Arg(0))
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

	ctx := context.Background()

	if c.flagDelete != "" {
		if err := rt.Subscriptions.Delete(ctx, localID, c.flagDelete); err != nil {
			ui.Error(fmt.Sprintf("error deleting subscription: %v", err))
			return 1
		}
		ui.Info(fmt.Sprintf("removed subscription of %s", c.flagDelete))
		return 0
	}

	subs, err := rt.Subscriptions.ListForPost(ctx, localID)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	if len(subs) == 0 {
		ui.Info(fmt.Sprintf("local document %d has no subscriptions", localID))
		return 0
	}
	for _, s := range subs {
		ui.Output(fmt.Sprintf("%s\tremote %d\tupdated %s",
			s.RemoteBaseURL, s.RemotePostID, s.UpdatedAt.UTC().Format(time.RFC3339)))
	}
	return 0
}
