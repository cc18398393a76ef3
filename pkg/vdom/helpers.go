package vdom

import (
	"fmt"
	"strconv"
)

// H creates a VNode.
//
// tag is an element name or a *ComponentRef. children may be *VNode,
// []*VNode, []any, strings, fmt.Stringer values or numbers; nested slices
// are flattened and nil entries dropped. props["key"] becomes the node key.
// For components the flattened children are passed as props["children"]
// unless the props already carry one.
func H(tag any, props Props, children ...any) *VNode {
	flat := flattenChildren(nil, children)

	switch t := tag.(type) {
	case string:
		return &VNode{
			Kind:     KindElement,
			Tag:      t,
			Props:    props,
			Children: flat,
			Key:      normalizeKey(props.Get("key")),
		}
	case *ComponentRef:
		if t == nil {
			panic(fmt.Errorf("%w: nil component", ErrUnknownTag))
		}
		p := make(Props, len(props)+1)
		for k, v := range props {
			p[k] = v
		}
		if _, ok := p["children"]; !ok {
			p["children"] = flat
		}
		return &VNode{
			Kind:  KindComponent,
			Comp:  t,
			Props: p,
			Key:   normalizeKey(props.Get("key")),
		}
	default:
		panic(fmt.Errorf("%w: %T", ErrUnknownTag, tag))
	}
}

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// toVNode converts a render result into a node. Anything that is not a
// *VNode becomes a text node.
func toVNode(v any) *VNode {
	switch val := v.(type) {
	case *VNode:
		if val == nil {
			return Text("")
		}
		return val
	case nil:
		return Text("")
	default:
		return Text(stringify(val))
	}
}

func flattenChildren(out []*VNode, items []any) []*VNode {
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case *VNode:
			if v != nil {
				out = append(out, v)
			}
		case []*VNode:
			for _, c := range v {
				if c != nil {
					out = append(out, c)
				}
			}
		case []any:
			out = flattenChildren(out, v)
		case []string:
			for _, s := range v {
				out = append(out, Text(s))
			}
		default:
			out = append(out, Text(stringify(v)))
		}
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// normalizeKey keeps string and int keys and formats any other key so it is
// always usable as a map key.
func normalizeKey(k any) any {
	switch v := k.(type) {
	case nil:
		return nil
	case string, int:
		return v
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *VNode) *VNode {
	if condition {
		return node
	}
	return nil
}

// When is like If but with lazy evaluation.
// The function is only called if condition is true.
func When(condition bool, fn func() *VNode) *VNode {
	if condition {
		return fn()
	}
	return nil
}

// Range maps a slice to VNodes.
func Range[T any](items []T, fn func(item T, index int) *VNode) []*VNode {
	result := make([]*VNode, 0, len(items))
	for i, item := range items {
		node := fn(item, i)
		if node != nil {
			result = append(result, node)
		}
	}
	return result
}
