package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bomba-atomica/atomica-sub003/light"
)

func (a *app) runCmd() *cobra.Command {
	var (
		waypoint  string
		exitOnEOF bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a stream of JSON updates from stdin and serve metrics",
		Long: `Apply a stream of JSON updates from stdin and serve metrics.

Updates are read as concatenated JSON objects. A rejected update is logged
and skipped; the trusted state only moves on accepted updates. The command
runs until SIGINT or SIGTERM, or until stdin is exhausted with --exit-on-eof.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), waypoint, exitOnEOF)
		},
	}
	f := cmd.Flags()
	f.StringVar(&waypoint, "waypoint", "", "waypoint JSON to trust when no state is stored")
	f.BoolVar(&exitOnEOF, "exit-on-eof", false, "stop once stdin is exhausted")
	f.Bool("metrics", false, "serve Prometheus metrics")
	f.String("metrics-addr", "", "metrics listen address (default from config)")
	f.String("metrics-namespace", "", "metrics namespace (default from config)")
	return cmd
}

func (a *app) serve(ctx context.Context, waypoint string, exitOnEOF bool) error {
	metrics := light.NopMetrics()
	if a.cfg.Metrics.Enabled {
		metrics = light.PrometheusMetrics(a.cfg.Metrics.Namespace)
	}
	c, s, err := a.openClient(true, metrics)
	if err != nil {
		return err
	}
	defer s.Close()

	if !c.Initialized() {
		if waypoint == "" {
			return errors.Wrap(light.ErrNotInitialized, "run init first or pass --waypoint")
		}
		var w light.Waypoint
		if err := a.readJSON(waypoint, &w); err != nil {
			return err
		}
		if err := c.Initialize(&w); err != nil {
			return errors.Wrap(err, "initialize")
		}
	}

	if a.cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              a.cfg.Metrics.ListenAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.log.Info("metrics server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Error("metrics server error", "err", err)
			}
		}()
		defer srv.Close()
	}

	// Events are printed off the update loop. The feed blocks UpdateState
	// until the event is taken, so the loop must never be the reader.
	events := make(chan light.UpdateEvent, 16)
	sub := c.SubscribeUpdates(events)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			a.printEvent(ev)
		}
	}()
	defer func() {
		sub.Unsubscribe()
		close(events)
		<-printed
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := make(chan *light.Update)
	readErr := make(chan error, 1)
	go decodeUpdates(ctx, a.stdin, updates, readErr)

	st := c.TrustedState()
	a.log.Info("light client running", "version", st.Version, "epoch", st.Epoch)
	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutting down")
			return nil
		case err := <-readErr:
			if err != nil {
				return errors.Wrap(err, "read updates")
			}
			if exitOnEOF {
				return nil
			}
			readErr = nil
		case u := <-updates:
			if err := c.UpdateState(u); err != nil {
				a.log.Warn("update rejected", "version", u.Version, "epoch", u.Epoch, "reason", light.ErrorReason(err), "err", err)
			}
		case err := <-sub.Err():
			return err
		}
	}
}

func (a *app) printEvent(ev light.UpdateEvent) {
	out, err := json.Marshal(ev)
	if err != nil {
		a.log.Error("encode event", "err", err)
		return
	}
	a.stdout.Write(append(out, '\n'))
}

// decodeUpdates streams JSON updates from r until EOF or a decode error,
// which is reported on errc (nil for a clean EOF).
func decodeUpdates(ctx context.Context, r io.Reader, out chan<- *light.Update, errc chan<- error) {
	dec := json.NewDecoder(r)
	for {
		u := new(light.Update)
		if err := dec.Decode(u); err != nil {
			if err == io.EOF {
				err = nil
			}
			errc <- err
			return
		}
		select {
		case out <- u:
		case <-ctx.Done():
			return
		}
	}
}
