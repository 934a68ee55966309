package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiv1 "github.com/hashicorp-forge/distributor/internal/api/v1"
	"github.com/hashicorp-forge/distributor/internal/cmd/base"
	"github.com/hashicorp-forge/distributor/internal/server"
)

const shutdownTimeout = 10 * time.Second

type Command struct {
	*base.Command

	flagConfig string
	flagAddr   string
}

func (c *Command) Synopsis() string {
	return "Run the inbound subscription API"
}

func (c *Command) Help() string {
	return `Usage: distributor serve [options]

  Runs the HTTP server remote sites call to report changes to documents this
  site pushed to them. Every response carries the distributor marker header.

  Endpoints:
    POST /api/v1/subscriptions/notify
    GET  /api/v1/subscriptions?local_post_id=N
    GET  /health

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(
		flag.NewFlagSet("serve", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to the distributor config file.",
	)
	f.StringVar(
		&c.flagAddr, "addr", "", "Listen address. Overrides server.addr.",
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

	rt, err := c.Open(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	defer rt.Close()

	addr := rt.Config.Server.Addr
	if c.flagAddr != "" {
		addr = c.flagAddr
	}

	srv := server.Server{
		Config:        rt.Config,
		DB:            rt.DB,
		Subscriptions: rt.Subscriptions,
		Logger:        rt.Logger.Named("api"),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		ui.Error(fmt.Sprintf("error listening on %s: %v", addr, err))
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := Serve(ctx, ln, srv); err != nil {
		ui.Error(fmt.Sprintf("error running server: %v", err))
		return 1
	}
	return 0
}

// Handler returns the routed API of srv.
func Handler(srv server.Server) http.Handler {
	subs := apiv1.SubscriptionsHandler(srv)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/subscriptions", subs)
	mux.Handle("/api/v1/subscriptions/", subs)
	mux.Handle("/health", apiv1.HealthHandler(srv))

	return apiv1.MarkerMiddleware(mux)
}

// Serve runs the API on ln until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, ln net.Listener, srv server.Server) error {
	read, write := srv.Config.Server.Timeouts()
	httpServer := &http.Server{
		Handler:           Handler(srv),
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.Logger.Info("listening", "address", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	srv.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down: %w", err)
	}
	return nil
}
