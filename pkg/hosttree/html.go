package hosttree

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// HTMLOptions configures serialization.
type HTMLOptions struct {
	// Pretty puts block elements on their own indented lines.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces.
	Indent string

	// IDs adds a data-vt attribute with the node ID to every element.
	IDs bool
}

// HTML serializes n and its subtree.
func HTML(n *Node) string {
	var b strings.Builder
	_ = WriteHTML(&b, n, HTMLOptions{})
	return b.String()
}

// InnerHTML serializes n's children.
func InnerHTML(n *Node) string {
	var b strings.Builder
	hw := newHTMLWriter(&b, HTMLOptions{})
	for _, c := range n.children {
		hw.node(c, 0)
	}
	_ = hw.Flush()
	return b.String()
}

// WriteHTML serializes n to w.
//
// Attributes are written in name order. The class list and style map are
// written as class and style attributes, and the value and checked
// properties as the matching attributes when no attribute of that name is
// set.
func WriteHTML(w io.Writer, n *Node, opts HTMLOptions) error {
	hw := newHTMLWriter(w, opts)
	hw.node(n, 0)
	return hw.Flush()
}

type htmlWriter struct {
	*bufio.Writer
	opts HTMLOptions
}

func newHTMLWriter(w io.Writer, opts HTMLOptions) *htmlWriter {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	return &htmlWriter{Writer: bufio.NewWriter(w), opts: opts}
}

func (w *htmlWriter) node(n *Node, depth int) {
	if n.typ == TextNode {
		w.WriteString(escapeHTML(n.text))
		return
	}

	pretty := w.opts.Pretty && !inlineElements[n.tag]
	if pretty && depth > 0 {
		w.newline(depth)
	}

	w.WriteByte('<')
	w.WriteString(n.tag)
	for _, a := range serializedAttrs(n, w.opts.IDs) {
		w.WriteByte(' ')
		w.WriteString(a[0])
		if a[1] != "" {
			w.WriteString(`="`)
			w.WriteString(escapeAttr(a[1]))
			w.WriteByte('"')
		}
	}
	w.WriteByte('>')

	if vdom.IsVoidElement(n.tag) {
		return
	}

	block := false
	for _, c := range n.children {
		if c.typ == ElementNode && !inlineElements[c.tag] {
			block = true
		}
		w.node(c, depth+1)
	}
	if pretty && block {
		w.newline(depth)
	}

	w.WriteString("</")
	w.WriteString(n.tag)
	w.WriteByte('>')
}

func (w *htmlWriter) newline(depth int) {
	w.WriteByte('\n')
	for i := 0; i < depth; i++ {
		w.WriteString(w.opts.Indent)
	}
}

// serializedAttrs returns name/value pairs in name order. Boolean
// attributes with an empty value are written as a bare name.
func serializedAttrs(n *Node, ids bool) [][2]string {
	all := make(map[string]string, len(n.attrs)+4)
	for k, v := range n.attrs {
		all[k] = v
	}
	if len(n.classes) > 0 {
		all["class"] = strings.Join(n.classes, " ")
	}
	if len(n.styles) > 0 {
		parts := make([]string, 0, len(n.styles))
		for _, k := range sortedKeys(n.styles) {
			parts = append(parts, k+": "+n.styles[k])
		}
		all["style"] = strings.Join(parts, "; ")
	}
	if v, ok := n.props["value"]; ok {
		if _, set := all["value"]; !set {
			all["value"] = propString(v)
		}
	}
	if propString(n.props["checked"]) == "true" {
		if _, set := all["checked"]; !set {
			all["checked"] = ""
		}
	}
	if ids {
		all["data-vt"] = propString(n.id)
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, all[k]}
	}
	return out
}

// inlineElements stay on their parent's line in pretty output.
var inlineElements = map[string]bool{
	"a":      true,
	"b":      true,
	"br":     true,
	"code":   true,
	"em":     true,
	"i":      true,
	"label":  true,
	"small":  true,
	"span":   true,
	"strong": true,
	"sub":    true,
	"sup":    true,
}

// escapeHTML escapes text for safe inclusion in HTML content.
func escapeHTML(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

// escapeAttr escapes text for attribute values. Whitespace that could break
// attribute parsing is escaped as well.
func escapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\n':
			buf.WriteString("&#10;")
		case '\r':
			buf.WriteString("&#13;")
		case '\t':
			buf.WriteString("&#9;")
		default:
			buf.WriteString(escapeHTML(string(r)))
		}
	}

	return buf.String()
}
