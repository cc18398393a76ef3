package vdom

import "sort"

// patchChildren reconciles the children of an element.
//
// New children are matched to old ones by identity, then by key, then by
// scanning for the earliest unused unkeyed old child of the same type.
// Matched pairs are patched in place. Children whose old positions form a
// longest increasing subsequence stay put; the rest are moved, and
// unmatched new children are mounted, in a single right-to-left pass.
// Unmatched old children are unmounted last.
func (r *Renderer) patchChildren(parent Node, old, v *VNode, sc *scope) error {
	oldCh := normalizeChildren(old.Children)
	newCh := normalizeChildren(v.Children)
	v.Children = newCh

	same := make(map[*VNode]int, len(oldCh))
	keyed := make(map[any]int)
	for j, oc := range oldCh {
		same[oc] = j
		if oc.Key == nil {
			continue
		}
		if _, dup := keyed[oc.Key]; !dup {
			keyed[oc.Key] = j
		}
	}

	used := make([]bool, len(oldCh))
	sources := make([]int, len(newCh))
	scan := 0
	for i, c := range newCh {
		j := -1
		if k, ok := same[c]; ok && !used[k] {
			j = k
		}
		if j < 0 && c.Key != nil {
			if k, ok := keyed[c.Key]; ok && !used[k] {
				j = k
			}
		}
		if j < 0 {
			for scan < len(oldCh) && used[scan] {
				scan++
			}
			for k := scan; k < len(oldCh); k++ {
				if !used[k] && oldCh[k].Key == nil && sameType(oldCh[k], c) {
					j = k
					break
				}
			}
		}

		sources[i] = j
		if j < 0 {
			continue
		}
		used[j] = true
		if err := r.patch(oldCh[j], c, parent, sc); err != nil {
			return err
		}
	}

	stay := lis(sources)
	var anchor Node
	for i := len(newCh) - 1; i >= 0; i-- {
		c := newCh[i]
		switch {
		case sources[i] < 0:
			if err := r.mount(c, parent, anchor, sc); err != nil {
				return err
			}
		case !stay[i]:
			if h := c.Handle(); h != nil {
				r.host.InsertBefore(parent, h, anchor)
				r.metrics.NodeMoved()
			}
		}
		if h := c.Handle(); h != nil {
			anchor = h
		}
	}

	for j, oc := range oldCh {
		if !used[j] {
			r.unmount(oc, true)
		}
	}
	return nil
}

// lis marks the positions of seq that belong to one longest strictly
// increasing subsequence of its non-negative entries. Negative entries are
// never marked.
func lis(seq []int) []bool {
	in := make([]bool, len(seq))
	prev := make([]int, len(seq))
	var tails, tailPos []int

	for i, s := range seq {
		if s < 0 {
			continue
		}
		k := sort.SearchInts(tails, s)
		if k == len(tails) {
			tails = append(tails, s)
			tailPos = append(tailPos, i)
		} else {
			tails[k] = s
			tailPos[k] = i
		}
		prev[i] = -1
		if k > 0 {
			prev[i] = tailPos[k-1]
		}
	}

	if len(tailPos) == 0 {
		return in
	}
	for i := tailPos[len(tailPos)-1]; i >= 0; i = prev[i] {
		in[i] = true
	}
	return in
}
