// Package hosttree is an in-memory DOM-like tree that implements vdom.Host.
//
// A Document owns a <body> root and numbers every node it creates. It
// supports delegated event dispatch with bubbling, HTML serialization, and
// observation: every mutation is reported as a protocol.Mutation, so a
// Document can be mirrored to a remote viewer. Snapshot produces the
// mutations that rebuild an existing subtree.
//
//	doc := hosttree.NewDocument()
//	r := vdom.NewRenderer(doc, sched)
//	err := r.Render(ctx, vdom.H("p", nil, "hi"), doc.Body())
//	fmt.Println(hosttree.InnerHTML(doc.Body())) // <p>hi</p>
package hosttree
