package vdom

import (
	"sort"
	"strings"
)

// applyProps diffs oldProps against newProps on v's host node. Removed props
// are reset first, then every new prop is applied in name order.
func (r *Renderer) applyProps(v *VNode, oldProps, newProps Props) {
	n := v.node

	for _, name := range oldProps.sortedKeys() {
		if name == "key" {
			continue
		}
		if _, ok := newProps[name]; ok {
			continue
		}
		old := oldProps[name]
		switch {
		case isEventProp(name):
			r.setHandler(v, eventName(name), nil)
		case name == "class" || name == "className":
			for _, c := range classTokens(old) {
				r.host.RemoveClass(n, c)
			}
		case name == "style":
			for _, k := range styleKeys(old) {
				r.host.RemoveStyle(n, kebab(k))
			}
		case name == "dataset":
			for _, k := range styleKeys(old) {
				r.host.RemoveAttribute(n, "data-"+k)
			}
		case name == "value":
			r.host.SetProperty(n, "value", "")
		case name == "checked":
			r.host.SetProperty(n, "checked", false)
		default:
			r.host.RemoveAttribute(n, name)
		}
	}

	for _, name := range newProps.sortedKeys() {
		if name == "key" {
			continue
		}
		val := newProps[name]
		switch {
		case isEventProp(name):
			r.setHandler(v, eventName(name), handlerFunc(val))

		case name == "class" || name == "className":
			r.diffClass(n, oldProps.Get(name), val)

		case name == "style":
			r.diffMap(n, oldProps.Get(name), val,
				func(k string) { r.host.RemoveStyle(n, kebab(k)) },
				func(k, s string) { r.host.SetStyle(n, kebab(k), s) })

		case name == "dataset":
			r.diffMap(n, oldProps.Get(name), val,
				func(k string) { r.host.RemoveAttribute(n, "data-"+k) },
				func(k, s string) { r.host.SetAttribute(n, "data-"+k, s) })

		case name == "value":
			s := ""
			if val != nil {
				s = stringify(val)
			}
			r.host.SetProperty(n, "value", s)

		case name == "checked":
			b, _ := val.(bool)
			r.host.SetProperty(n, "checked", b)

		default:
			r.setAttribute(n, name, oldProps.Get(name), val, oldProps != nil)
		}
	}
}

// setHandler binds, retargets or unbinds the trampoline for one event.
func (r *Renderer) setHandler(v *VNode, event string, fn func(*Event)) {
	l := v.listeners[event]
	if fn == nil {
		if l != nil {
			r.host.Unlisten(v.node, l.id)
			delete(v.listeners, event)
		}
		return
	}
	if l != nil {
		l.target = fn
		return
	}
	if v.listeners == nil {
		v.listeners = make(map[string]*listener)
	}
	l = &listener{target: fn}
	l.id = r.host.Listen(v.node, event, l.dispatch)
	v.listeners[event] = l
}

func (r *Renderer) setAttribute(n Node, name string, old, val any, patching bool) {
	switch b := val.(type) {
	case nil:
		if patching && old != nil {
			r.host.RemoveAttribute(n, name)
		}
		return
	case bool:
		if !b {
			r.host.RemoveAttribute(n, name)
			return
		}
		if old == true {
			return
		}
		r.host.SetAttribute(n, name, "")
		return
	}

	s := stringify(val)
	if old != nil && old != true && stringify(old) == s {
		return
	}
	r.host.SetAttribute(n, name, s)
}

// diffClass adds and removes class tokens so only changed tokens touch the
// host.
func (r *Renderer) diffClass(n Node, old, val any) {
	oldTokens := classTokens(old)
	newTokens := classTokens(val)

	keep := make(map[string]bool, len(newTokens))
	for _, c := range newTokens {
		keep[c] = true
	}
	had := make(map[string]bool, len(oldTokens))
	for _, c := range oldTokens {
		had[c] = true
		if !keep[c] {
			r.host.RemoveClass(n, c)
		}
	}
	for _, c := range newTokens {
		if !had[c] {
			r.host.AddClass(n, c)
		}
	}
}

// diffMap applies a key-by-key diff of two map props.
func (r *Renderer) diffMap(n Node, old, val any, remove func(string), set func(k, v string)) {
	oldMap := toStringMap(old)
	newMap := toStringMap(val)
	for _, k := range sortedMapKeys(oldMap) {
		if _, ok := newMap[k]; !ok {
			remove(k)
		}
	}
	for _, k := range sortedMapKeys(newMap) {
		if prev, ok := oldMap[k]; ok && prev == newMap[k] {
			continue
		}
		set(k, newMap[k])
	}
}

// classTokens accepts a space separated string, a []string, or a
// map[string]bool of enabled classes.
func classTokens(v any) []string {
	var raw []string
	switch c := v.(type) {
	case string:
		raw = strings.Fields(c)
	case []string:
		for _, s := range c {
			raw = append(raw, strings.Fields(s)...)
		}
	case map[string]bool:
		keys := make([]string, 0, len(c))
		for k, on := range c {
			if on {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		raw = keys
	}

	seen := make(map[string]bool, len(raw))
	out := raw[:0]
	for _, s := range raw {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func toStringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = stringify(val)
		}
		return out
	case Props:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = stringify(val)
		}
		return out
	default:
		return nil
	}
}

func styleKeys(v any) []string {
	return sortedMapKeys(toStringMap(v))
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
