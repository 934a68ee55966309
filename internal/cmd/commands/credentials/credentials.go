package credentials

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/hashicorp-forge/distributor/internal/cmd/base"
	"github.com/hashicorp-forge/distributor/pkg/auth"
)

type Command struct {
	*base.Command

	flagConfig  string
	flagRefresh bool
}

func (c *Command) Synopsis() string {
	return "Print the credentials to store for a connection"
}

func (c *Command) Help() string {
	return `Usage: distributor credentials [options] <connection>

  Sanitizes the auth block of a connection and prints the block that should
  be stored in its place. A password is replaced by the derived basic token.

  With -refresh, OAuth2 credentials are renewed against the token endpoint
  first and the new tokens are printed.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("credentials", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the distributor config file.",
	)
	f.BoolVar(
		&c.flagRefresh, "refresh", false,
		"Refresh OAuth2 credentials before printing.",
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

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	block, err := cfg.Connection(flags.Arg(0))
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	if block.Auth == nil {
		ui.Info(fmt.Sprintf("connection %q sends no credentials", block.Name))
		return 0
	}

	scheme := auth.Scheme(block.Auth.Scheme)
	creds, err := block.Auth.Credentials()
	if err != nil {
		ui.Error(fmt.Sprintf("error preparing credentials: %v", err))
		return 1
	}

	if c.flagRefresh {
		handler, err := auth.New(scheme, creds)
		if err != nil {
			ui.Error(err.Error())
			return 1
		}
		refresher, ok := handler.(auth.Refresher)
		if !ok {
			ui.Error(fmt.Sprintf("%v: scheme %s", auth.ErrRefreshUnsupported, scheme))
			return 1
		}
		if err := refresher.Refresh(context.Background()); err != nil {
			ui.Error(fmt.Sprintf("error refreshing credentials: %v", err))
			return 1
		}
		if s, ok := handler.(interface{ Credentials() auth.Credentials }); ok {
			creds = s.Credentials()
		}
	}

	ui.Output(string(RenderAuthBlock(scheme, creds)))
	return 0
}

// RenderAuthBlock formats creds as an HCL auth block. Empty fields are
// omitted.
func RenderAuthBlock(scheme auth.Scheme, creds auth.Credentials) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body().AppendNewBlock("auth", nil).Body()

	set := func(name, value string) {
		if value != "" {
			body.SetAttributeValue(name, cty.StringVal(value))
		}
	}

	set("scheme", string(scheme))
	set("username", creds.Username)
	set("base64_encoded", creds.Base64Encoded)
	set("token", creds.Token)
	set("token_type", creds.TokenType)
	set("refresh_token", creds.RefreshToken)
	if !creds.Expiry.IsZero() {
		set("expiry", creds.Expiry.UTC().Format(time.RFC3339))
	}
	set("client_id", creds.ClientID)
	set("client_secret", creds.ClientSecret)
	set("token_url", creds.TokenURL)
	set("secret", creds.Secret)
	set("issuer", creds.Issuer)
	if creds.Lifetime != 0 {
		set("lifetime", creds.Lifetime.String())
	}

	return hclwrite.Format(f.Bytes())
}
