package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/pkg/protocol"
)

// viewer is one websocket connection. The write goroutine is the only
// writer once the snapshot has been sent; everything else queues frames.
type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
	reason    error
}

func newViewer(id string, conn *websocket.Conn, queue int) *viewer {
	return &viewer{
		id:   id,
		conn: conn,
		send: make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// enqueue queues frames without blocking. It reports false if the queue
// is full or the viewer is closed.
func (v *viewer) enqueue(frames ...[]byte) bool {
	for _, f := range frames {
		select {
		case <-v.done:
			return false
		default:
		}
		select {
		case v.send <- f:
		default:
			return false
		}
	}
	return true
}

func (v *viewer) close(reason error) {
	v.closeOnce.Do(func() {
		v.reason = reason
		close(v.done)
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.metrics.wsError("upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.config.MaxMessageSize)

	v := newViewer(middleware.GetReqID(r.Context()), conn, s.config.SendQueue)

	var snapshot [][]byte
	err = s.Do(r.Context(), func() error {
		var err error
		snapshot, err = s.attach(v)
		return err
	})
	if err != nil {
		s.logger.Error("attach viewer", "viewer", v.id, "error", err)
		return
	}
	defer s.loop.Post(func() { s.removeViewer(v) })

	for _, f := range snapshot {
		if err := s.write(conn, f); err != nil {
			s.logger.Debug("snapshot write failed", "viewer", v.id, "error", err)
			v.close(err)
			return
		}
	}
	s.logger.Debug("viewer attached", "viewer", v.id, "frames", len(snapshot))

	go s.writeLoop(v)
	s.readLoop(v)
	v.close(nil)
}

func (s *Server) write(conn *websocket.Conn, frame []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return err
	}
	s.metrics.framesSent.Inc()
	return nil
}

// writeLoop sends queued frames and heartbeat pings until the viewer or the
// server closes.
func (s *Server) writeLoop(v *viewer) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	defer v.conn.Close()

	for {
		select {
		case f := <-v.send:
			if err := s.write(v.conn, f); err != nil {
				s.metrics.wsError("write")
				v.close(err)
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := v.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.metrics.wsError("ping")
				v.close(err)
				return
			}

		case <-v.done:
			s.closeConn(v)
			return

		case <-s.done:
			v.close(ErrServerClosed)
			s.closeConn(v)
			return
		}
	}
}

// closeConn sends a close frame carrying the viewer's close reason.
func (s *Server) closeConn(v *viewer) {
	code, text := websocket.CloseNormalClosure, ""
	switch v.reason {
	case nil:
	case ErrServerClosed:
		code, text = websocket.CloseGoingAway, "server closing"
	case ErrSlowViewer:
		code, text = websocket.ClosePolicyViolation, "too slow"
	default:
		return
	}
	deadline := time.Now().Add(s.config.WriteTimeout)
	_ = v.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

// readLoop decodes incoming frames until the connection fails.
func (s *Server) readLoop(v *viewer) {
	extend := func() { _ = v.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)) }
	extend()
	v.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		_, msg, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "viewer", v.id, "error", err)
				s.metrics.wsError("read")
			}
			return
		}
		extend()

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.reject(v, protocol.ErrInvalidFrame, err)
			continue
		}
		if frame.Type != protocol.FrameEvent {
			s.reject(v, protocol.ErrInvalidFrame, fmt.Errorf("%w: %s", ErrUnexpectedFrame, frame.Type))
			continue
		}
		s.handleEventFrame(v, frame.Payload)
	}
}

// handleEventFrame decodes an event and posts its dispatch to the loop.
func (s *Server) handleEventFrame(v *viewer, payload []byte) {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.metrics.event("invalid")
		s.reject(v, protocol.ErrInvalidEvent, err)
		return
	}
	s.loop.Post(func() { s.dispatch(v, ev) })
}

// dispatch delivers a remote event to the document. Runs on the loop.
func (s *Server) dispatch(v *viewer, ev *protocol.Event) {
	_, span := s.tracer.Start(context.Background(), "server.event",
		trace.WithAttributes(
			attribute.String("event.type", ev.EventName()),
			attribute.Int64("event.node", int64(ev.Node)),
			attribute.Int64("event.seq", int64(ev.Seq)),
		),
	)
	defer span.End()

	ran, err := s.doc.DispatchByID(ev.Node, ev.EventName(), ev.Value, ev.Data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.event("not_found")
		s.reject(v, protocol.ErrNodeNotFound, err)
		return
	}
	if !ran {
		s.metrics.event("unhandled")
		return
	}
	s.metrics.event("ok")
}

// reject reports a non-fatal error to the viewer.
func (s *Server) reject(v *viewer, code protocol.ErrorCode, err error) {
	verr := &ViewerError{Viewer: v.id, Op: code.String(), Err: err}
	s.logger.Debug("rejected viewer frame", "error", verr)

	frame := protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(protocol.NewError(code, err.Error())))
	if !v.enqueue(frame.Encode()) {
		s.metrics.wsError("error_dropped")
	}
}
