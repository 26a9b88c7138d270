// Package docs looks up symbol documentation in Doxygen XML output.
package docs

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/logger"
)

// Lookup is the documentation service the emitter consults.
type Lookup interface {
	Lookup(name string) (string, bool)
}

// None is a Lookup without any documentation.
type None struct{}

func (None) Lookup(string) (string, bool) { return "", false }

// Index holds the detailed description of every documented member.
type Index struct {
	docs map[string]string
}

type doxygenIndex struct {
	Compounds []struct {
		RefID string `xml:"refid,attr"`
		Kind  string `xml:"kind,attr"`
	} `xml:"compound"`
}

type member struct {
	Name     string      `xml:"name"`
	Detailed description `xml:"detaileddescription"`
	Values   []member    `xml:"enumvalue"`
}

type description struct {
	Paras []para `xml:"para"`
}

type para struct {
	Inner []byte `xml:",innerxml"`
}

// Load reads dir/index.xml and every compound file it lists.
func Load(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, "index.xml"))
	if err != nil {
		return nil, errors.Wrap(err, "reading doxygen index")
	}

	var index doxygenIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(err, "decoding doxygen index")
	}

	ix := &Index{docs: make(map[string]string)}
	for _, c := range index.Compounds {
		path := filepath.Join(dir, c.RefID+".xml")
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening compound %s", c.RefID)
		}
		err = ix.readCompound(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decoding compound %s", path)
		}
	}

	logger.Debugw("Loaded documentation", "dir", dir, "symbols", len(ix.docs))
	return ix, nil
}

// readCompound records every memberdef and enumvalue of a compound file.
// The first documented occurrence of a name wins.
func (ix *Index) readCompound(r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || (start.Name.Local != "memberdef" && start.Name.Local != "enumvalue") {
			continue
		}

		var m member
		if err := dec.DecodeElement(&m, &start); err != nil {
			return err
		}
		if err := ix.record(m); err != nil {
			return err
		}
	}
}

func (ix *Index) record(m member) error {
	if _, seen := ix.docs[m.Name]; !seen && m.Name != "" {
		var paras []string
		for _, p := range m.Detailed.Paras {
			text, err := textContent(p.Inner)
			if err != nil {
				return err
			}
			if text != "" {
				paras = append(paras, text)
			}
		}
		if len(paras) > 0 {
			ix.docs[m.Name] = strings.Join(paras, "\n")
		}
	}

	for _, v := range m.Values {
		if err := ix.record(v); err != nil {
			return err
		}
	}
	return nil
}

// textContent concatenates the character data of an XML fragment.
func textContent(fragment []byte) (string, error) {
	dec := xml.NewDecoder(io.MultiReader(
		strings.NewReader("<p>"),
		bytes.NewReader(fragment),
		strings.NewReader("</p>"),
	))

	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Lookup returns the documentation for a symbol.
func (ix *Index) Lookup(name string) (string, bool) {
	if ix == nil {
		return "", false
	}
	doc, ok := ix.docs[name]
	return doc, ok
}

func (ix *Index) Len() int { return len(ix.docs) }
