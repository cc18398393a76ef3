package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vtree/pkg/hosttree"
	"github.com/vango-dev/vtree/pkg/loop"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/reactive"
	"github.com/vango-dev/vtree/pkg/vdom"
)

type clicker struct {
	vdom.Base
	n *reactive.Signal[int]
}

func (c *clicker) Render() any {
	return vdom.H("button", vdom.Props{
		"onClick": func() { c.n.Update(func(v int) int { return v + 1 }) },
	}, fmt.Sprint(c.n.Get()))
}

var clickerRef = vdom.Stateful("Clicker", func(_ vdom.Props, s *reactive.Scheduler) vdom.Component {
	return &clicker{n: reactive.NewSignal(s, 0)}
})

type testEnv struct {
	doc *hosttree.Document
	srv *Server
	ts  *httptest.Server
}

// setupServer runs a loop with a mounted clicker behind an httptest server.
func setupServer(t *testing.T) *testEnv {
	t.Helper()

	doc := hosttree.NewDocument()
	l := loop.New()
	sched := reactive.NewScheduler(reactive.WithExecutor(l))
	r := vdom.NewRenderer(doc, sched)

	reg := prometheus.NewRegistry()
	s := New(doc, l, &Config{
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:          reg,
		Gatherer:          reg,
		HeartbeatInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(cancel)
	t.Cleanup(s.Close)

	err := s.Do(ctx, func() error {
		return r.Render(ctx, vdom.H(clickerRef, nil), doc.Body())
	})
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{doc: doc, srv: s, ts: ts}
}

func wsURL(t *testing.T, baseURL, path string) string {
	t.Helper()
	if !strings.HasPrefix(baseURL, "http") {
		t.Fatalf("unexpected base URL: %q", baseURL)
	}
	return "ws" + strings.TrimPrefix(baseURL, "http") + path
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	return f
}

// readBatch reads frames of type ft until the final one and joins them.
func readBatch(t *testing.T, conn *websocket.Conn, ft protocol.FrameType) *protocol.Batch {
	t.Helper()
	var out *protocol.Batch
	for {
		f := readFrame(t, conn)
		if f.Type != ft {
			t.Fatalf("frame type = %s, want %s", f.Type, ft)
		}
		b, err := protocol.DecodeBatch(f.Payload)
		if err != nil {
			t.Fatalf("DecodeBatch failed: %v", err)
		}
		if out == nil {
			out = b
		} else {
			if b.Seq != out.Seq {
				t.Fatalf("batch seq changed mid-batch: %d then %d", out.Seq, b.Seq)
			}
			out.Mutations = append(out.Mutations, b.Mutations...)
		}
		if f.Flags.Has(protocol.FlagFinal) {
			return out
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev *protocol.Event) {
	t.Helper()
	frame := protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(ev))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("write event failed: %v", err)
	}
}

func readError(t *testing.T, conn *websocket.Conn) *protocol.ErrorMessage {
	t.Helper()
	f := readFrame(t, conn)
	if f.Type != protocol.FrameError {
		t.Fatalf("frame type = %s, want %s", f.Type, protocol.FrameError)
	}
	em, err := protocol.DecodeErrorMessage(f.Payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage failed: %v", err)
	}
	return em
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestHealthz(t *testing.T) {
	env := setupServer(t)
	status, body := get(t, env.ts.URL+"/healthz")
	if status != http.StatusOK || body != "ok" {
		t.Errorf("GET /healthz = %d %q, want 200 \"ok\"", status, body)
	}
}

func TestSnapshotHTML(t *testing.T) {
	env := setupServer(t)

	status, body := get(t, env.ts.URL+"/snapshot")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body != "<button>0</button>" {
		t.Errorf("snapshot = %q, want %q", body, "<button>0</button>")
	}

	_, body = get(t, env.ts.URL+"/snapshot?ids=1")
	if !strings.Contains(body, "data-vt=") {
		t.Errorf("snapshot with ids = %q, want node ids", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t)
	_, body := get(t, env.ts.URL+"/metrics")
	if !strings.Contains(body, "vtree_server_viewers") {
		t.Errorf("metrics output missing vtree_server_viewers:\n%s", body)
	}
}

func TestMirrorRoundTrip(t *testing.T) {
	env := setupServer(t)
	conn := dialWS(t, wsURL(t, env.ts.URL, "/ws"))

	snap := readBatch(t, conn, protocol.FrameSnapshot)
	mirror := hosttree.NewMirror()
	if err := mirror.Apply(snap.Mutations...); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}
	root := mirror.Node(snap.Root)
	if root == nil {
		t.Fatalf("snapshot root %d not created", snap.Root)
	}
	if got, want := hosttree.InnerHTML(root), "<button>0</button>"; got != want {
		t.Fatalf("mirror = %s, want %s", got, want)
	}

	button := root.FindByTag("button")
	sendEvent(t, conn, &protocol.Event{Seq: 1, Type: protocol.EventClick, Node: button.ID()})

	batch := readBatch(t, conn, protocol.FrameMutations)
	if batch.Seq <= snap.Seq {
		t.Errorf("mutation seq = %d, want > snapshot seq %d", batch.Seq, snap.Seq)
	}
	if err := mirror.Apply(batch.Mutations...); err != nil {
		t.Fatalf("apply mutations: %v", err)
	}
	if got, want := hosttree.InnerHTML(root), "<button>1</button>"; got != want {
		t.Errorf("mirror after click = %s, want %s", got, want)
	}

	// The mirror and the served document agree.
	var served string
	_ = env.srv.Do(context.Background(), func() error {
		served = hosttree.InnerHTML(env.doc.Body())
		return nil
	})
	if served != hosttree.InnerHTML(root) {
		t.Errorf("served = %s, mirror = %s", served, hosttree.InnerHTML(root))
	}
}

func TestSecondViewerSeesCurrentState(t *testing.T) {
	env := setupServer(t)
	first := dialWS(t, wsURL(t, env.ts.URL, "/ws"))
	snap := readBatch(t, first, protocol.FrameSnapshot)

	mirror := hosttree.NewMirror()
	if err := mirror.Apply(snap.Mutations...); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}
	button := mirror.Node(snap.Root).FindByTag("button")
	sendEvent(t, first, &protocol.Event{Type: protocol.EventClick, Node: button.ID()})
	readBatch(t, first, protocol.FrameMutations)

	second := dialWS(t, wsURL(t, env.ts.URL, "/ws"))
	snap2 := readBatch(t, second, protocol.FrameSnapshot)
	m2 := hosttree.NewMirror()
	if err := m2.Apply(snap2.Mutations...); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}
	if got, want := hosttree.InnerHTML(m2.Node(snap2.Root)), "<button>1</button>"; got != want {
		t.Errorf("second viewer = %s, want %s", got, want)
	}
}

func TestEventForUnknownNode(t *testing.T) {
	env := setupServer(t)
	conn := dialWS(t, wsURL(t, env.ts.URL, "/ws"))
	readBatch(t, conn, protocol.FrameSnapshot)

	sendEvent(t, conn, &protocol.Event{Type: protocol.EventClick, Node: 99999})
	em := readError(t, conn)
	if em.Code != protocol.ErrNodeNotFound {
		t.Errorf("error code = %s, want %s", em.Code, protocol.ErrNodeNotFound)
	}
	if em.Fatal {
		t.Error("unknown node error should not be fatal")
	}
}

func TestGarbageFrame(t *testing.T) {
	env := setupServer(t)
	conn := dialWS(t, wsURL(t, env.ts.URL, "/ws"))
	readBatch(t, conn, protocol.FrameSnapshot)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xff}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if em := readError(t, conn); em.Code != protocol.ErrInvalidFrame {
		t.Errorf("error code = %s, want %s", em.Code, protocol.ErrInvalidFrame)
	}

	// A well-formed frame of the wrong direction is rejected too.
	frame := protocol.NewFrame(protocol.FrameMutations, protocol.EncodeBatch(&protocol.Batch{}))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if em := readError(t, conn); em.Code != protocol.ErrInvalidFrame {
		t.Errorf("error code = %s, want %s", em.Code, protocol.ErrInvalidFrame)
	}

	// The connection survives.
	frame = protocol.NewFrame(protocol.FrameEvent, []byte{0x00})
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if em := readError(t, conn); em.Code != protocol.ErrInvalidEvent {
		t.Errorf("error code = %s, want %s", em.Code, protocol.ErrInvalidEvent)
	}
}

func TestCloseDisconnectsViewers(t *testing.T) {
	env := setupServer(t)
	conn := dialWS(t, wsURL(t, env.ts.URL, "/ws"))
	readBatch(t, conn, protocol.FrameSnapshot)

	env.srv.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read after Close = %v, want going-away close", err)
	}
}

func TestViewerEnqueue(t *testing.T) {
	v := newViewer("v1", nil, 2)
	if !v.enqueue([]byte{1}, []byte{2}) {
		t.Fatal("enqueue within capacity failed")
	}
	if v.enqueue([]byte{3}) {
		t.Error("enqueue past capacity succeeded")
	}

	v2 := newViewer("v2", nil, 4)
	v2.close(ErrSlowViewer)
	v2.close(nil)
	if v2.enqueue([]byte{1}) {
		t.Error("enqueue after close succeeded")
	}
	if v2.reason != ErrSlowViewer {
		t.Errorf("reason = %v, want first close reason", v2.reason)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := (&Config{Address: ":9999"}).withDefaults()
	if c.Address != ":9999" {
		t.Errorf("Address = %q, want %q", c.Address, ":9999")
	}
	if c.SendQueue != 256 {
		t.Errorf("SendQueue = %d, want 256", c.SendQueue)
	}
	if c.Logger == nil || c.Registry == nil || c.CheckOrigin == nil {
		t.Error("withDefaults left a nil field")
	}

	var nilConfig *Config
	if got := nilConfig.withDefaults(); got.Address != ":8080" {
		t.Errorf("nil config Address = %q, want :8080", got.Address)
	}
}

func TestViewerError(t *testing.T) {
	err := &ViewerError{Viewer: "abc", Op: "InvalidEvent", Err: ErrUnexpectedFrame}
	if !errors.Is(err, ErrUnexpectedFrame) {
		t.Error("errors.Is(ViewerError, ErrUnexpectedFrame) = false")
	}
	want := "server: viewer abc: InvalidEvent: server: unexpected frame type"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
