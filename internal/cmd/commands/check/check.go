package check

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/hashicorp-forge/distributor/internal/cmd/base"
	"github.com/hashicorp-forge/distributor/pkg/prober"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "Probe a connection for reachability and per-type access"
}

func (c *Command) Help() string {
	return `Usage: distributor check [options] <connection>

  Connects to the named remote site, verifies it exposes a compliant REST
  API, and lists the post types this site may read and write.

  Exits 1 when the remote is unreachable, points at the wrong endpoint or
  exposes no types. A missing distributor marker is reported but is not fatal.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("check", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the distributor config file.",
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

	report := conn.CheckConnections(context.Background())

	ui.Output(fmt.Sprintf("Connection: %s (%s)", conn.ID(), conn.BaseURL()))
	for _, d := range report.Diagnoses {
		msg := "Problem: " + Label(d)
		if d == prober.DiagnosisWrongEndpoint && report.EndpointSuggestion != "" {
			msg += fmt.Sprintf(" (try %s)", report.EndpointSuggestion)
		}
		if d == prober.DiagnosisNoDistributor {
			ui.Warn(msg)
			continue
		}
		ui.Error(msg)
	}
	ui.Output("Can read:  " + list(report.CanGet))
	ui.Output("Can write: " + list(report.CanPost))

	if err := report.Err(); err != nil {
		return 1
	}
	return 0
}

// Label renders a diagnosis code for people, e.g. "no external connection".
func Label(d prober.Diagnosis) string {
	return strcase.ToDelimited(string(d), ' ')
}

func list(types []string) string {
	if len(types) == 0 {
		return "(none)"
	}
	return strings.Join(types, ", ")
}
