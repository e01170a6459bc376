package dce

import (
	"github.com/panbanda/eliminator/pkg/ast"
)

// prunePattern removes dead bindings from a declaring pattern in place. It
// returns how many bindings were removed and whether p binds nothing
// afterwards. A parent only drops p when both hold, so patterns that were
// already empty in the source are left alone.
func (sw *sweeper) prunePattern(p ast.Pattern, rule Rule) (int, bool, error) {
	switch p := p.(type) {
	case *ast.Ident:
		b := sw.res.Binding(p)
		if b == nil {
			return 0, false, &InvariantError{Name: p.Name, Loc: p.Pos(), Reason: "declaring identifier has no binding"}
		}
		if sw.cls.live(b) {
			return 0, false, nil
		}
		sw.record(b, rule)
		return 1, true, nil

	case *ast.AssignPattern:
		return sw.prunePattern(p.Target, rule)

	case *ast.RestElement:
		return sw.prunePattern(p.Arg, rule)

	case *ast.ArrayPattern:
		total := 0
		for i, elem := range p.Elems {
			if elem == nil {
				continue
			}
			n, empty, err := sw.prunePattern(elem, RuleArraySlot)
			total += n
			if err != nil {
				return total, false, err
			}
			if n > 0 && empty {
				sw.drop(elem)
				p.Elems[i] = nil
			}
		}
		if total > 0 {
			p.Elems = trimHoles(p.Elems)
		}
		return total, len(p.Elems) == 0, nil

	case *ast.ObjectPattern:
		restLive := p.Rest != nil && !sw.e.pruneBeforeRest && sw.cls.restLive(p.Rest)
		total := 0
		kept := make([]*ast.PatternProp, 0, len(p.Props))
		for i, prop := range p.Props {
			n, empty, err := sw.prunePattern(prop.Value, RuleObjectProperty)
			total += n
			if err != nil {
				p.Props = append(kept, p.Props[i:]...)
				return total, false, err
			}
			// An emptied nested pattern stays as `key: {}` beside a live
			// rest, since the key still shapes what the rest captures.
			if n > 0 && empty && !restLive {
				sw.drop(prop)
				continue
			}
			kept = append(kept, prop)
		}
		p.Props = kept

		if p.Rest != nil {
			n, empty, err := sw.prunePattern(p.Rest.Arg, RuleRest)
			total += n
			if err != nil {
				return total, false, err
			}
			if n > 0 && empty {
				sw.drop(p.Rest)
				p.Rest = nil
			}
		}
		return total, len(p.Props) == 0 && p.Rest == nil, nil
	}
	return 0, false, unsupported(p, "binding pattern")
}

// trimHoles drops trailing elided slots, which carry no position.
func trimHoles(elems []ast.Pattern) []ast.Pattern {
	end := len(elems)
	for end > 0 && elems[end-1] == nil {
		end--
	}
	return elems[:end]
}
