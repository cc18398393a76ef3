// Package demo is a small application built on vdom, used by the vtree
// command to show the renderer at work.
//
// The App component has four sections, each exercising one part of the
// renderer:
//
//   - counter: a stateful component updated by a click handler
//   - names: a keyed list with a computed summary, grown, cleared and
//     reversed
//   - fetch: a Resource shown through Suspense, with reload and cancel
//   - errors: an ErrorBoundary around a component that can be broken
//
// A Harness mounts the App into a hosttree document and drives it from a
// single goroutine. Scenarios are scripted sequences of clicks on a Harness.
package demo
