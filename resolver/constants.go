package resolver

import (
	"github.com/ardanlabs/ffi-bindgen/cexpr"
	"github.com/ardanlabs/ffi-bindgen/ctype"
	"github.com/ardanlabs/ffi-bindgen/logger"
	"github.com/ardanlabs/ffi-bindgen/parser"
)

// constantEnv is all a define may refer to: constants resolved so far and
// the types the resolver knows.
type constantEnv struct {
	consts *ConstantTable
	types  *Resolver
}

func (e constantEnv) Constant(name string) (cexpr.Value, bool) {
	return e.consts.Get(name)
}

func (e constantEnv) Type(spelling string) (ctype.Type, bool) {
	if p, ok := e.types.Fundamental(spelling); ok {
		return p, true
	}
	return e.types.Types.Lookup(spelling)
}

// ResolveConstants evaluates defs to a fixpoint. Each round retries every
// unresolved define against the constants resolved so far, first as
// written and then with numeric literal suffixes stripped. Resolution stops
// once a round resolves nothing.
//
// Values already in seed are kept as they are. types supplies the type
// names a define may use and may be nil.
func ResolveConstants(defs []parser.Define, seed *ConstantTable, types *Resolver) *ConstantTable {
	table := NewConstantTable()
	if seed != nil {
		table = seed.Clone()
	}
	if types == nil {
		types = New()
	}
	env := constantEnv{consts: table, types: types}

	var pending []parser.Define
	for _, d := range defs {
		if d.Expr == "" {
			continue
		}
		if _, done := table.Get(d.Name); done {
			continue
		}
		pending = append(pending, d)
	}

	rounds := 0
	for len(pending) > 0 {
		rounds++
		var next []parser.Define
		for _, d := range pending {
			if v, ok := evalDefine(d.Expr, env); ok {
				table.Set(d.Name, v)
				continue
			}
			next = append(next, d)
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}

	logger.Debugw("Resolved constants",
		"constants", table.Len(),
		"unresolved", len(pending),
		"rounds", rounds)
	return table
}

func evalDefine(expr string, env cexpr.Env) (cexpr.Value, bool) {
	for _, candidate := range []string{expr, cexpr.StripSuffixes(expr)} {
		if v, err := cexpr.Eval(candidate, env); err == nil {
			return v, true
		}
	}
	return cexpr.Value{}, false
}
