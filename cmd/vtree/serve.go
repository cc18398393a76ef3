package main

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/demo"
	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/hosttree"
	"github.com/vango-dev/vtree/pkg/loop"
	"github.com/vango-dev/vtree/pkg/metrics"
	"github.com/vango-dev/vtree/pkg/reactive"
	"github.com/vango-dev/vtree/pkg/server"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func serveCmd(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo app to websocket viewers",
		Long: `Mount the demo app in an in-memory document and stream its mutations
to websocket viewers. Viewers send events back over the same socket.

Endpoints:
  GET /ws        mutation stream
  GET /snapshot  current document as HTML (?pretty=1, ?ids=1)
  GET /metrics   Prometheus metrics
  GET /healthz   liveness

Examples:
  vtree serve
  vtree serve --address=localhost:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				a.cfg.Server.Address = address
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Address to listen on (default from server.address)")

	return cmd
}

// serve runs the event loop on the calling goroutine and HTTP on another.
func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var m *metrics.Metrics
	if !a.cfg.Metrics.Disabled {
		m = metrics.New(metrics.WithRegistry(reg))
	}

	doc := hosttree.NewDocument()
	l := loop.New(loop.WithLogger(a.logger))
	defer l.Close()

	sopts := []reactive.Option{
		reactive.WithExecutor(l),
		reactive.WithLogger(a.logger),
		reactive.WithMetrics(m),
		reactive.WithFlushLimit(a.cfg.Scheduler.FlushLimit),
	}
	if a.cfg.Scheduler.AffinityCheck {
		sopts = append(sopts, reactive.WithAffinityCheck())
	}
	sched := reactive.NewScheduler(sopts...)
	renderer := vdom.NewRenderer(doc, sched, vdom.WithLogger(a.logger), vdom.WithMetrics(m))

	srv := server.New(doc, l, a.serverConfig(reg))

	// The loop is not running yet, so the first render happens here on the
	// goroutine that will run it.
	if err := renderer.Render(ctx, vdom.H(demo.App, nil), doc.Body()); err != nil {
		return errors.New("E401").Wrap(err)
	}

	errc := make(chan error, 1)
	go func() {
		err := srv.Run(ctx)
		cancel()
		errc <- err
	}()
	success("Serving on %s", a.cfg.Server.Address)
	info("ws://%s/ws", displayAddr(a.cfg.Server.Address))

	if err := l.Run(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
		a.logger.Error("loop stopped", "error", err)
	}
	if err := <-errc; err != nil {
		return errors.New("E400").Wrap(err)
	}
	_ = renderer.Unmount(doc.Body())
	return nil
}

func (a *app) serverConfig(reg *prometheus.Registry) *server.Config {
	cfg := a.cfg
	sc := server.DefaultConfig()
	sc.Address = cfg.Server.Address
	sc.ReadTimeout = cfg.Server.ReadTimeout.D()
	sc.WriteTimeout = cfg.Server.WriteTimeout.D()
	sc.HeartbeatInterval = cfg.Server.HeartbeatInterval.D()
	sc.MaxMessageSize = cfg.Server.MaxMessageSize
	sc.SendQueue = cfg.Server.SendQueue
	sc.Logger = a.logger
	sc.Registry = reg
	sc.Gatherer = reg

	if check := cfg.Server.CheckOrigin(); check != nil {
		sc.CheckOrigin = func(r *http.Request) bool {
			return check(r.Header.Get("Origin"))
		}
	} else {
		warn("server.allowedOrigins is empty; accepting websocket connections from any origin")
	}
	return sc
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
