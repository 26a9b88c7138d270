package ctype

import (
	"fmt"

	"github.com/ardanlabs/ffi-bindgen/errors"
)

// DuplicateMemberError reports two enumeration members with the same name.
type DuplicateMemberError struct {
	Enum   string
	Member string
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("enumeration %s: duplicate member %s", e.Enum, e.Member)
}

// UnknownMemberError reports a value no member of the enumeration carries.
type UnknownMemberError struct {
	Enum  string
	Value int64
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("%s does not have a member with value %d", e.Enum, e.Value)
}

// EnumerationMismatchError reports a value of one enumeration passed where
// another was expected.
type EnumerationMismatchError struct {
	Want string
	Got  string
}

func (e *EnumerationMismatchError) Error() string {
	return fmt.Sprintf("enumeration %s passed as %s", e.Got, e.Want)
}

// Member is one name/value pair of an enumeration.
type Member struct {
	Name  string
	Value int64
}

// Enum is a tagged integer enumeration with name<->value lookup.
type Enum struct {
	Name    string
	members []Member
	byName  map[string]int64
	byValue map[int64]string
}

// NewEnum builds an enumeration from members in declaration order. Two
// names may share a value; value lookups then return the first declared.
func NewEnum(name string, members []Member) (*Enum, error) {
	e := &Enum{
		Name:    name,
		members: make([]Member, 0, len(members)),
		byName:  make(map[string]int64, len(members)),
		byValue: make(map[int64]string, len(members)),
	}
	for _, m := range members {
		if _, dup := e.byName[m.Name]; dup {
			return nil, errors.WithStack(&DuplicateMemberError{Enum: name, Member: m.Name})
		}
		e.byName[m.Name] = m.Value
		if _, taken := e.byValue[m.Value]; !taken {
			e.byValue[m.Value] = m.Name
		}
		e.members = append(e.members, m)
	}
	return e, nil
}

func (e *Enum) Kind() Kind     { return KindEnum }
func (e *Enum) String() string { return e.Name }

// Members returns the members in declaration order.
func (e *Enum) Members() []Member {
	return append([]Member(nil), e.members...)
}

// Lookup returns the value bound to a member name.
func (e *Enum) Lookup(name string) (int64, bool) {
	v, ok := e.byName[name]
	return v, ok
}

// NameOf returns the first declared member carrying v.
func (e *Enum) NameOf(v int64) (string, bool) {
	n, ok := e.byValue[v]
	return n, ok
}

// Signed reports whether any member is negative, which forces a signed
// representation.
func (e *Enum) Signed() bool {
	for _, m := range e.members {
		if m.Value < 0 {
			return true
		}
	}
	return false
}

// Value constructs an instance of e from an integer.
func (e *Enum) Value(v int64) (EnumValue, error) {
	name, ok := e.byValue[v]
	if !ok {
		return EnumValue{}, errors.WithStack(&UnknownMemberError{Enum: e.Name, Value: v})
	}
	return EnumValue{enum: e, value: v, name: name}, nil
}

// Convert accepts an instance of e and rejects instances of any other
// enumeration, even one with the same members.
func (e *Enum) Convert(v EnumValue) (EnumValue, error) {
	if v.enum != e {
		got := "<nil>"
		if v.enum != nil {
			got = v.enum.Name
		}
		return EnumValue{}, errors.WithStack(&EnumerationMismatchError{Want: e.Name, Got: got})
	}
	return v, nil
}

// FromParam coerces an argument into an instance of e: enumeration values
// go through Convert, integers through Value.
func (e *Enum) FromParam(p any) (EnumValue, error) {
	switch p := p.(type) {
	case EnumValue:
		return e.Convert(p)
	case int:
		return e.Value(int64(p))
	case int8:
		return e.Value(int64(p))
	case int16:
		return e.Value(int64(p))
	case int32:
		return e.Value(int64(p))
	case int64:
		return e.Value(p)
	case uint:
		return e.Value(int64(p))
	case uint8:
		return e.Value(int64(p))
	case uint16:
		return e.Value(int64(p))
	case uint32:
		return e.Value(int64(p))
	}
	return EnumValue{}, errors.Newf("cannot use %T as %s", p, e.Name)
}

// EnumValue is an integer tagged with the enumeration it belongs to.
type EnumValue struct {
	enum  *Enum
	value int64
	name  string
}

func (v EnumValue) Enum() *Enum  { return v.enum }
func (v EnumValue) Value() int64 { return v.value }
func (v EnumValue) Name() string { return v.name }

func (v EnumValue) String() string {
	if v.enum == nil {
		return "<invalid enumeration value>"
	}
	return fmt.Sprintf("%s: %s (= %d)", v.enum.Name, v.name, v.value)
}
