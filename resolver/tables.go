package resolver

import (
	"github.com/ardanlabs/ffi-bindgen/cexpr"
	"github.com/ardanlabs/ffi-bindgen/ctype"
)

// Entry is one row of the TypeTable.
type Entry struct {
	// Key is the arena id of the declaration the type was resolved from.
	Key  int
	Name string
	Type ctype.Type
}

// TypeTable maps declaration identity to native type in insertion order.
// Rows are never replaced once inserted.
type TypeTable struct {
	entries []Entry
	index   map[int]int
}

func NewTypeTable() *TypeTable {
	return &TypeTable{index: make(map[int]int)}
}

// Get returns the type stored for a declaration.
func (t *TypeTable) Get(key int) (ctype.Type, bool) {
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.entries[i].Type, true
}

// Insert adds a row unless key is already present, and returns whichever
// type the table holds for key afterwards.
func (t *TypeTable) Insert(key int, name string, typ ctype.Type) ctype.Type {
	if i, ok := t.index[key]; ok {
		return t.entries[i].Type
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, Entry{Key: key, Name: name, Type: typ})
	return typ
}

// Bind makes key resolve to the row already stored for existing. It is used
// when a front end reports one type under two declarations. It reports
// false when existing has no row or key already has one.
func (t *TypeTable) Bind(key, existing int) bool {
	i, ok := t.index[existing]
	if !ok {
		return false
	}
	if _, taken := t.index[key]; taken {
		return false
	}
	t.index[key] = i
	return true
}

// Lookup finds the first row with the given declared name.
func (t *TypeTable) Lookup(name string) (ctype.Type, bool) {
	for _, e := range t.entries {
		if e.Name == name {
			return e.Type, true
		}
	}
	return nil, false
}

// Contains reports whether typ is stored in any row.
func (t *TypeTable) Contains(typ ctype.Type) bool {
	for _, e := range t.entries {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func (t *TypeTable) Len() int { return len(t.entries) }

// Entries returns the rows in insertion order.
func (t *TypeTable) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Function is a resolved free function.
type Function struct {
	Name string
	Sig  *ctype.Signature
}

// FunctionTable maps function names to signatures. A later Put with the
// same name replaces the signature but keeps the original position.
type FunctionTable struct {
	funcs []Function
	index map[string]int
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{index: make(map[string]int)}
}

func (t *FunctionTable) Put(name string, sig *ctype.Signature) {
	if i, ok := t.index[name]; ok {
		t.funcs[i].Sig = sig
		return
	}
	t.index[name] = len(t.funcs)
	t.funcs = append(t.funcs, Function{Name: name, Sig: sig})
}

func (t *FunctionTable) Get(name string) (*ctype.Signature, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.funcs[i].Sig, true
}

func (t *FunctionTable) Len() int { return len(t.funcs) }

// Functions returns the functions in insertion order.
func (t *FunctionTable) Functions() []Function {
	return append([]Function(nil), t.funcs...)
}

// Constant is a resolved #define.
type Constant struct {
	Name  string
	Value cexpr.Value
}

// ConstantTable maps constant names to values in resolution order. Names
// that never resolved are absent.
type ConstantTable struct {
	consts []Constant
	index  map[string]int
}

func NewConstantTable() *ConstantTable {
	return &ConstantTable{index: make(map[string]int)}
}

func (t *ConstantTable) Set(name string, v cexpr.Value) {
	if i, ok := t.index[name]; ok {
		t.consts[i].Value = v
		return
	}
	t.index[name] = len(t.consts)
	t.consts = append(t.consts, Constant{Name: name, Value: v})
}

func (t *ConstantTable) Get(name string) (cexpr.Value, bool) {
	i, ok := t.index[name]
	if !ok {
		return cexpr.Value{}, false
	}
	return t.consts[i].Value, true
}

func (t *ConstantTable) Len() int { return len(t.consts) }

// Constants returns the constants in resolution order.
func (t *ConstantTable) Constants() []Constant {
	return append([]Constant(nil), t.consts...)
}

// Clone returns an independent copy of t.
func (t *ConstantTable) Clone() *ConstantTable {
	c := NewConstantTable()
	for _, k := range t.consts {
		c.Set(k.Name, k.Value)
	}
	return c
}
