package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/die-net/relaypost/internal/api"
	"github.com/die-net/relaypost/internal/audit"
	"github.com/die-net/relaypost/internal/config"
	"github.com/die-net/relaypost/internal/dialer"
	"github.com/die-net/relaypost/internal/egress"
	"github.com/die-net/relaypost/internal/metrics"
	"github.com/die-net/relaypost/internal/platform"
	"github.com/die-net/relaypost/internal/post"
	"github.com/die-net/relaypost/internal/probe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	pflag.CommandLine.SortFlags = false
	cfg, err := config.Load(pflag.CommandLine, os.Args[1:], nil)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	ka, err := cfg.KeepAlive()
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	dialCfg := dialer.Config{
		DialTimeout:        cfg.DialTimeout,
		NegotiationTimeout: cfg.NegotiationTimeout,
		KeepAlive:          ka,
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	postOpts := post.Options{
		Domain:       cfg.Domain,
		APIHost:      cfg.APIHost,
		APIPort:      cfg.APIPort,
		ProbeTimeout: cfg.ProbeTimeout,
		Verbose:      cfg.Verbose,
	}
	apiOpts := api.ServerOptions{
		Addr:         cfg.Listen,
		RateLimit:    rate.Limit(cfg.RateLimit),
		RateBurst:    cfg.RateBurst,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Metrics:      metrics.Handler(),
		Verbose:      cfg.Verbose,
	}

	if cfg.AuditDB != "" {
		store, err := audit.Open(ctx, cfg.AuditDB)
		if err != nil {
			return err
		}
		defer store.Close()
		postOpts.Recorder = store
		apiOpts.Audit = store
		log.Printf("audit: recording to %s", cfg.AuditDB)
	}

	orch := post.New(
		probe.New(dialCfg, cfg.Verbose),
		egress.NewFactory(egress.Options{Dialer: dialCfg, RequestTimeout: cfg.UpstreamTimeout}),
		platform.New(cfg.UploadURL, cfg.PostURL),
		postOpts,
	)

	if cfg.DebugListen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		debugLn, err := api.Listen(ctx, cfg.DebugListen, ka)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Printf("debug listening on %s", cfg.DebugListen)
	}

	ln, err := api.Listen(ctx, cfg.Listen, ka)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	srv := api.NewServer(orch, apiOpts)
	drained := make(chan struct{})
	context.AfterFunc(ctx, func() {
		defer close(drained)
		// Let in-flight attempts finish; Shutdown bounds the wait.
		_ = srv.Shutdown(context.WithoutCancel(ctx))
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil {
			return fmt.Errorf("api serve: %w", err)
		}
		<-drained
		return nil
	})

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Print("shutting down")
	return err
}
