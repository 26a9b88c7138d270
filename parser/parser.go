// Package parser is the front end of the binding generator. It decodes the
// XML declaration graph castxml (or gccxml) writes for a C header, extracts
// the #define lines of the header's preprocessor dump and drives the castxml
// executable itself.
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ardanlabs/ffi-bindgen/errors"
)

// element is the generic shape of every castxml element. Children only
// ever carry attributes (Argument, Ellipsis, EnumValue).
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []child    `xml:",any"`
}

type child struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

type decoder struct {
	elements []element
	byID     map[string]int
	files    map[string]string
	nodes    []*Node
}

// Parse decodes a castxml declaration graph.
func Parse(r io.Reader) (*Header, error) {
	d := &decoder{
		byID:  make(map[string]int),
		files: make(map[string]string),
	}
	if err := d.read(r); err != nil {
		return nil, err
	}
	if err := d.link(); err != nil {
		return nil, err
	}
	d.adoptTypedefNames()

	return &Header{Nodes: d.nodes, Decls: d.topLevel()}, nil
}

// read collects every top-level element and assigns arena ids in document
// order. File elements only feed the file name table.
func (d *decoder) read(r io.Reader) error {
	dec := xml.NewDecoder(r)
	depth := 0
	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "decoding declaration graph")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Local != "CastXML" && t.Name.Local != "GCC_XML" {
					return errors.Newf("unexpected root element <%s>", t.Name.Local)
				}
				sawRoot = true
				depth++
				continue
			}

			var el element
			if err := dec.DecodeElement(&el, &t); err != nil {
				return errors.Wrapf(err, "decoding <%s>", t.Name.Local)
			}
			id := attr(el.Attrs, "id")
			if t.Name.Local == "File" {
				d.files[id] = attr(el.Attrs, "name")
				continue
			}
			if id == "" {
				continue
			}
			if _, dup := d.byID[id]; dup {
				return errors.Newf("duplicate element id %q", id)
			}
			d.byID[id] = len(d.elements)
			d.elements = append(d.elements, el)

		case xml.EndElement:
			depth--
		}
	}
	if !sawRoot {
		return errors.New("empty declaration graph")
	}
	return nil
}

// link builds the nodes, then resolves every id reference between them.
func (d *decoder) link() error {
	d.nodes = make([]*Node, len(d.elements))
	for i, el := range d.elements {
		kind, ok := elementKinds[el.XMLName.Local]
		if !ok {
			kind = KindUnsupported
		}
		n := &Node{
			ID:         i,
			Kind:       kind,
			Element:    el.XMLName.Local,
			Name:       attr(el.Attrs, "name"),
			Artificial: attr(el.Attrs, "artificial") == "1",
			Incomplete: attr(el.Attrs, "incomplete") == "1",
			Max:        strings.TrimRight(attr(el.Attrs, "max"), "u"),
		}
		if f := attr(el.Attrs, "file"); f != "" {
			n.File = d.files[f]
			if n.File == "" {
				n.File = f
			}
		}
		if s := attr(el.Attrs, "size"); s != "" {
			n.Size, _ = strconv.Atoi(s)
		}
		if a := attr(el.Attrs, "align"); a != "" {
			n.Align, _ = strconv.Atoi(a)
		}
		if b := attr(el.Attrs, "bits"); b != "" {
			n.Bits, _ = strconv.Atoi(b)
		}
		d.nodes[i] = n
	}

	for i, el := range d.elements {
		n := d.nodes[i]
		var err error

		if ref := attr(el.Attrs, "type"); ref != "" {
			if n.Type, err = d.ref(ref); err != nil {
				return errors.Wrapf(err, "%s %q", n.Element, n.Name)
			}
		}
		if ref := attr(el.Attrs, "returns"); ref != "" {
			if n.Returns, err = d.ref(ref); err != nil {
				return errors.Wrapf(err, "%s %q", n.Element, n.Name)
			}
		}

		for _, c := range el.Children {
			switch c.XMLName.Local {
			case "Argument":
				t, err := d.ref(attr(c.Attrs, "type"))
				if err != nil {
					return errors.Wrapf(err, "argument of %s %q", n.Element, n.Name)
				}
				n.Args = append(n.Args, Arg{
					Name:    attr(c.Attrs, "name"),
					Type:    t,
					Default: attr(c.Attrs, "default"),
				})
			case "Ellipsis":
				n.Variadic = true
			case "EnumValue":
				v, err := strconv.ParseInt(attr(c.Attrs, "init"), 0, 64)
				if err != nil {
					return errors.Wrapf(err, "enumerator %s of %q", attr(c.Attrs, "name"), n.Name)
				}
				n.Values = append(n.Values, EnumValue{Name: attr(c.Attrs, "name"), Init: v})
			}
		}

		if n.Kind == KindStruct || n.Kind == KindUnion {
			for _, m := range strings.Fields(attr(el.Attrs, "members")) {
				member, err := d.ref(m)
				if err != nil {
					return errors.Wrapf(err, "member of %q", n.Name)
				}
				if member.Kind == KindField {
					n.Fields = append(n.Fields, member)
				}
			}
		}
	}
	return nil
}

func (d *decoder) ref(id string) (*Node, error) {
	i, ok := d.byID[id]
	if !ok {
		return nil, errors.Newf("dangling reference %q", id)
	}
	return d.nodes[i], nil
}

// adoptTypedefNames names anonymous structs, unions and enumerations. One
// referenced by exactly one typedef takes the typedef's name, so the
// `typedef struct {...} foo;` idiom yields a single type named foo.
func (d *decoder) adoptTypedefNames() {
	users := make(map[*Node][]*Node)
	for _, n := range d.nodes {
		if n.Kind != KindTypedef || n.Type == nil {
			continue
		}
		target := n.Type
		if target.Kind == KindElaborated && target.Type != nil {
			target = target.Type
		}
		users[target] = append(users[target], n)
	}

	for _, n := range d.nodes {
		switch n.Kind {
		case KindStruct, KindUnion, KindEnumeration:
		default:
			continue
		}
		if n.Name != "" {
			continue
		}
		if tds := users[n]; len(tds) == 1 {
			n.Name = tds[0].Name
			continue
		}
		n.Name = fmt.Sprintf("anon%d", n.ID)
	}
}

// topLevel orders the global namespace's declarations by its members
// list, falling back to document order when the list is absent.
func (d *decoder) topLevel() []*Node {
	for i, el := range d.elements {
		n := d.nodes[i]
		if n.Kind != KindNamespace || n.Name != "::" {
			continue
		}
		members := strings.Fields(attr(el.Attrs, "members"))
		if len(members) == 0 {
			break
		}
		decls := make([]*Node, 0, len(members))
		for _, m := range members {
			if member, err := d.ref(m); err == nil && isDeclaration(member) {
				decls = append(decls, member)
			}
		}
		return decls
	}

	global := ""
	for i, el := range d.elements {
		if d.nodes[i].Kind == KindNamespace && d.nodes[i].Name == "::" {
			global = attr(el.Attrs, "id")
		}
	}

	var decls []*Node
	for i, el := range d.elements {
		n := d.nodes[i]
		if !isDeclaration(n) {
			continue
		}
		if ctx := attr(el.Attrs, "context"); global != "" && ctx != global {
			continue
		}
		decls = append(decls, n)
	}
	return decls
}

func isDeclaration(n *Node) bool {
	switch n.Kind {
	case KindTypedef, KindStruct, KindUnion, KindEnumeration, KindFunction, KindVariable:
		return true
	case KindUnsupported:
		return n.Name != ""
	}
	return false
}
