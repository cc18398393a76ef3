package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/pkg/hosttree"
	"github.com/vango-dev/vtree/pkg/loop"
	"github.com/vango-dev/vtree/pkg/protocol"
)

const tracerName = "github.com/vango-dev/vtree/pkg/server"

// Server streams a document's mutations to websocket viewers.
type Server struct {
	config   *Config
	doc      *hosttree.Document
	loop     *loop.Loop
	logger   *slog.Logger
	metrics  *serverMetrics
	tracer   trace.Tracer
	upgrader websocket.Upgrader
	router   chi.Router

	done      chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	pending []protocol.Mutation
	seq     uint64
	viewers map[*viewer]struct{}
}

// New creates a server for doc. Document mutations must happen on l.
func New(doc *hosttree.Document, l *loop.Loop, config *Config) *Server {
	config = config.withDefaults()

	s := &Server{
		config:  config,
		doc:     doc,
		loop:    l,
		logger:  config.Logger.With("component", "server"),
		metrics: newServerMetrics(config.Registry),
		tracer:  otel.Tracer(tracerName),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		done:    make(chan struct{}),
		viewers: make(map[*viewer]struct{}),
	}

	doc.Observe(func(m protocol.Mutation) {
		if len(s.viewers) > 0 {
			s.pending = append(s.pending, m)
		}
	})
	l.OnIdle(s.publish)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWS)
	s.router = r

	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Do runs fn on the loop and waits for it. It is the only way HTTP
// goroutines read or mutate the document.
func (s *Server) Do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	s.loop.Post(func() { errc <- fn() })
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServerClosed
	}
}

// Run serves HTTP on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.config.Address)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// Close disconnects every viewer. Websocket connections are hijacked, so
// http.Server.Shutdown does not reach them.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// publish broadcasts the mutations collected since the last idle point as
// one batch. It runs as a loop idle hook.
func (s *Server) publish() {
	if len(s.pending) == 0 {
		return
	}
	muts := s.pending
	s.pending = nil
	if len(s.viewers) == 0 {
		return
	}

	s.seq++
	frames, err := encodeFrames(protocol.FrameMutations, &protocol.Batch{
		Seq:       s.seq,
		Root:      s.doc.Body().ID(),
		Mutations: muts,
	})
	if err != nil {
		s.logger.Error("encode mutation batch", "seq", s.seq, "error", err)
		return
	}

	s.metrics.batchesSent.Inc()
	s.metrics.mutationsSent.Add(float64(len(muts)))
	for v := range s.viewers {
		if !v.enqueue(frames...) {
			s.logger.Warn("dropping slow viewer", "viewer", v.id)
			s.metrics.wsError("slow_viewer")
			s.removeViewer(v)
			v.close(ErrSlowViewer)
		}
	}
}

// attach registers v and returns the snapshot frames it must be sent
// before anything queued on it. Runs on the loop.
func (s *Server) attach(v *viewer) ([][]byte, error) {
	// Mutations already applied to the document are part of the snapshot;
	// deliver them to the existing viewers first so none is sent twice.
	s.publish()

	body := s.doc.Body()
	frames, err := encodeFrames(protocol.FrameSnapshot, &protocol.Batch{
		Seq:       s.seq,
		Root:      body.ID(),
		Mutations: hosttree.Snapshot(body),
	})
	if err != nil {
		return nil, err
	}
	s.viewers[v] = struct{}{}
	s.metrics.viewers.Set(float64(len(s.viewers)))
	return frames, nil
}

func (s *Server) removeViewer(v *viewer) {
	if _, ok := s.viewers[v]; !ok {
		return
	}
	delete(s.viewers, v)
	s.metrics.viewers.Set(float64(len(s.viewers)))
}

func encodeFrames(ft protocol.FrameType, b *protocol.Batch) ([][]byte, error) {
	frames, err := protocol.EncodeBatchFrames(ft, b)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(frames))
	for i, f := range frames {
		out[i] = f.Encode()
	}
	return out, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	opts := hosttree.HTMLOptions{
		Pretty: r.URL.Query().Get("pretty") == "1",
		IDs:    r.URL.Query().Get("ids") == "1",
	}

	var buf bytes.Buffer
	err := s.Do(r.Context(), func() error {
		for _, c := range s.doc.Body().Children() {
			if err := hosttree.WriteHTML(&buf, c, opts); err != nil {
				return err
			}
			if opts.Pretty {
				buf.WriteByte('\n')
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("snapshot", "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// requestLogger logs one line per request at Debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
