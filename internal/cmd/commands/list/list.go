package list

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
	flagID      int64
	flagStatus  string
	flagPage    int
	flagPerPage int
	flagInclude string
	flagExclude string
	flagSearch  string
}

func (c *Command) Synopsis() string {
	return "List documents available on a remote site"
}

func (c *Command) Help() string {
	return `Usage: distributor list [options] <connection>

  Lists one page of documents of a post type on the remote site, or a single
  document when -id is set.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("list", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the distributor config file.",
	)
	f.StringVar(
		&c.flagType, "type", connection.DefaultPostType, "Post type to list.",
	)
	f.Int64Var(
		&c.flagID, "id", 0, "Fetch a single remote document by id.",
	)
	f.StringVar(
		&c.flagStatus, "status", "", `Status filter. Defaults to "any".`,
	)
	f.IntVar(
		&c.flagPage, "page", 1, "Page number.",
	)
	f.IntVar(
		&c.flagPerPage, "per-page", 0, "Page size. Defaults to the connection's per_page.",
	)
	f.StringVar(
		&c.flagInclude, "include", "", "Comma-separated remote ids to restrict the listing to.",
	)
	f.StringVar(
		&c.flagExclude, "exclude", "", "Comma-separated remote ids to leave out. Ignored with -include.",
	)
	f.StringVar(
		&c.flagSearch, "search", "", "Search term.",
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
		ui.Error("exactly one connection name is required")
		return 1
	}

	include, err := base.ParseIDs(c.flagInclude)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing -include: %v", err))
		return 1
	}
	exclude, err := base.ParseIDs(c.flagExclude)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing -exclude: %v", err))
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

	listing, err := conn.RemoteGet(context.Background(), connection.Query{
		PostType: c.flagType,
		ID:       c.flagID,
		Status:   c.flagStatus,
		Page:     c.flagPage,
		PerPage:  c.flagPerPage,
		Include:  include,
		Exclude:  exclude,
		Search:   c.flagSearch,
	})
	if err != nil {
		ui.Error(fmt.Sprintf("error listing remote documents: %v", err))
		return 1
	}

	for _, doc := range listing.Items {
		ui.Output(fmt.Sprintf("%d\t%s\t%s", doc.ID, doc.Status, doc.Title))
	}
	ui.Info(fmt.Sprintf("%d of %d documents", len(listing.Items), listing.Total))
	return 0
}
