// Package server mirrors a hosttree document to remote viewers.
//
// A Server owns no rendering. The application renders into a
// hosttree.Document on a loop.Loop; the server observes the document's
// mutations, batches them, and streams them to every connected viewer over
// a websocket, one mutation batch per loop idle point. Viewers send event
// frames back, which are dispatched on the loop as if a user had interacted
// with the document directly.
//
// # Endpoints
//
//	GET /healthz   liveness probe
//	GET /metrics   Prometheus metrics
//	GET /snapshot  HTML of the document body (?pretty=1, ?ids=1)
//	GET /ws        websocket mutation stream
//
// # Websocket stream
//
// The first frames on a new connection are a snapshot batch (FrameSnapshot)
// that recreates the body subtree; the last frame of a batch carries
// FlagFinal. Mutation batches (FrameMutations) follow, each with a sequence
// number one higher than the previous. Failures answering an event frame
// are reported with an error frame; the connection stays open.
//
// # Threading
//
// The document, renderer and scheduler belong to the loop goroutine. HTTP
// handlers never touch them directly: reads are posted to the loop and
// awaited (see Server.Do), and remote events are posted without waiting.
//
// Usage:
//
//	doc := hosttree.NewDocument()
//	l := loop.New()
//	srv := server.New(doc, l, nil)
//	go l.Run(ctx)
//	srv.Do(ctx, func() error { return renderer.Render(ctx, app, doc.Body()) })
//	srv.Run(ctx)
package server
