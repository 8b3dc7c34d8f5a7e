// Package xmldoc renders and parses ir document trees as namespace-free
// XML 1.0.
//
// Layout:
//
//	<document>                          mapping root
//	  <name>text</name>                 string
//	  <level type="number">3</level>    number (also "boolean", "null")
//	  <tags type="array">               array, one <item> per element
//	    <item>a</item>
//	  </tags>
//	  <empty type="object"></empty>     empty mapping
//	  <entry key="2 words">x</entry>    key that is not an element name
//	</document>
//
// Strings XML cannot carry (control characters, invalid UTF-8) are written
// base64 encoded with encoding="base64". Any tree renders and parses back to
// an ir.Equal tree.
package xmldoc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/ir"
)

const (
	rootName  = "document"
	itemName  = "item"
	entryName = "entry"

	attrType        = "type"
	attrEncoding    = "encoding"
	attrKey         = "key"
	attrKeyEncoding = "key-encoding"

	typeObject  = "object"
	typeArray   = "array"
	typeNumber  = "number"
	typeBoolean = "boolean"
	typeNull    = "null"

	encodingBase64 = "base64"

	header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
)

// maxDepth bounds element nesting on parse.
const maxDepth = 10000

// Option configures rendering.
type Option func(*options)

type options struct {
	indent int
}

// WithIndent sets the indentation width; 0 renders without whitespace
// between elements.
func WithIndent(width int) Option {
	return func(o *options) {
		if width >= 0 {
			o.indent = width
		}
	}
}

// Render writes n as an XML document rooted at <document>.
func Render(n ir.Node, opts ...Option) ([]byte, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := xml.NewEncoder(&buf)
	if o.indent > 0 {
		enc.Indent("", strings.Repeat(" ", o.indent))
	}
	if err := writeElement(enc, xml.StartElement{Name: xml.Name{Local: rootName}}, n); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, errs.Wrap(errs.CodeMalformedDocument, err, "render xml")
	}
	return buf.Bytes(), nil
}

func writeElement(enc *xml.Encoder, start xml.StartElement, n ir.Node) error {
	var text string
	switch v := n.(type) {
	case nil, ir.Null:
		start.Attr = append(start.Attr, attr(attrType, typeNull))
	case ir.Bool:
		start.Attr = append(start.Attr, attr(attrType, typeBoolean))
		text = "false"
		if v {
			text = "true"
		}
	case ir.Number:
		if !ir.IsValidNumber(string(v)) {
			return errs.New(errs.CodeMalformedDocument, "invalid number %q", string(v))
		}
		start.Attr = append(start.Attr, attr(attrType, typeNumber))
		text = string(v)
	case ir.String:
		text = string(v)
		if !isCharData(text) {
			start.Attr = append(start.Attr, attr(attrEncoding, encodingBase64))
			text = base64.StdEncoding.EncodeToString([]byte(v))
		}
	case ir.Array:
		start.Attr = append(start.Attr, attr(attrType, typeArray))
		if err := enc.EncodeToken(start); err != nil {
			return errs.Wrap(errs.CodeMalformedDocument, err, "render xml")
		}
		for _, elem := range v {
			if err := writeElement(enc, xml.StartElement{Name: xml.Name{Local: itemName}}, elem); err != nil {
				return err
			}
		}
		return encodeEnd(enc, start)
	case *ir.Mapping:
		if v.Len() == 0 {
			start.Attr = append(start.Attr, attr(attrType, typeObject))
		}
		if err := enc.EncodeToken(start); err != nil {
			return errs.Wrap(errs.CodeMalformedDocument, err, "render xml")
		}
		for k, child := range v.All() {
			if err := writeElement(enc, childStart(k), child); err != nil {
				return err
			}
		}
		return encodeEnd(enc, start)
	default:
		return errs.New(errs.CodeMalformedDocument, "unsupported node type %T", n)
	}

	if err := enc.EncodeToken(start); err != nil {
		return errs.Wrap(errs.CodeMalformedDocument, err, "render xml")
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return errs.Wrap(errs.CodeMalformedDocument, err, "render xml")
		}
	}
	return encodeEnd(enc, start)
}

func encodeEnd(enc *xml.Encoder, start xml.StartElement) error {
	if err := enc.EncodeToken(start.End()); err != nil {
		return errs.Wrap(errs.CodeMalformedDocument, err, "render xml")
	}
	return nil
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// childStart names the element of a mapping entry. Keys that are not plain
// element names go into the key attribute of an <entry>.
func childStart(key string) xml.StartElement {
	if isElementName(key) {
		return xml.StartElement{Name: xml.Name{Local: key}}
	}
	start := xml.StartElement{Name: xml.Name{Local: entryName}}
	if isCharData(key) {
		start.Attr = append(start.Attr, attr(attrKey, key))
	} else {
		start.Attr = append(start.Attr,
			attr(attrKey, base64.StdEncoding.EncodeToString([]byte(key))),
			attr(attrKeyEncoding, encodingBase64))
	}
	return start
}

// isElementName accepts ASCII names that need no escaping and carry no
// namespace prefix. Names starting with "xml" are reserved.
func isElementName(s string) bool {
	if s == "" || len(s) >= 3 && strings.EqualFold(s[:3], "xml") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case i > 0 && (c >= '0' && c <= '9' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// isCharData reports whether s is valid UTF-8 made only of XML 1.0 Chars.
func isCharData(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == 0x09, r == 0x0A, r == 0x0D:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

// Parse reads a document produced by Render, or written by hand in the same
// layout.
func Parse(data []byte) (ir.Node, error) {
	p := &parser{dec: xml.NewDecoder(bytes.NewReader(data))}
	p.dec.Strict = true

	var root ir.Node
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, p.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, p.fail("second root element <%s>", t.Name.Local)
			}
			if t.Name.Local != rootName {
				return nil, p.fail("root element is <%s>, want <%s>", t.Name.Local, rootName)
			}
			if root, err = p.element(t, 0); err != nil {
				return nil, err
			}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, p.fail("text outside the root element")
			}
		case xml.Directive:
			return nil, p.fail("directives (DOCTYPE) are not allowed")
		}
	}
	if root == nil {
		return nil, p.fail("no <%s> element", rootName)
	}
	return root, nil
}

type parser struct {
	dec *xml.Decoder
}

func (p *parser) fail(format string, args ...any) error {
	line, col := p.dec.InputPos()
	return errs.New(errs.CodeMalformedDocument, format, args...).
		WithPath(fmt.Sprintf("line %d, column %d", line, col))
}

func (p *parser) wrap(err error) error {
	line, col := p.dec.InputPos()
	return errs.Wrap(errs.CodeMalformedDocument, err, "parse xml at line %d, column %d", line, col)
}

// child is a parsed element awaiting placement in its parent.
type child struct {
	start xml.StartElement
	node  ir.Node
}

func attrValue(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (p *parser) checkNamespaces(start xml.StartElement) error {
	if start.Name.Space != "" {
		return p.fail("element <%s> uses a namespace", start.Name.Local)
	}
	for _, a := range start.Attr {
		if a.Name.Space != "" || a.Name.Local == "xmlns" {
			return p.fail("element <%s> declares or uses a namespace", start.Name.Local)
		}
	}
	return nil
}

func (p *parser) element(start xml.StartElement, depth int) (ir.Node, error) {
	if depth > maxDepth {
		return nil, p.fail("nesting exceeds %d levels", maxDepth)
	}
	if err := p.checkNamespaces(start); err != nil {
		return nil, err
	}

	var text bytes.Buffer
	var children []child
	for done := false; !done; {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, p.fail("unexpected end of document inside <%s>", start.Name.Local)
			}
			return nil, p.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n, err := p.element(t, depth+1)
			if err != nil {
				return nil, err
			}
			children = append(children, child{start: t, node: n})
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			done = true
		case xml.Directive:
			return nil, p.fail("directives (DOCTYPE) are not allowed")
		}
	}

	typ, _ := attrValue(start, attrType)
	blank := len(bytes.TrimSpace(text.Bytes())) == 0
	if len(children) > 0 && !blank {
		return nil, p.fail("element <%s> mixes text and elements", start.Name.Local)
	}
	if len(children) > 0 && typ != "" && typ != typeObject && typ != typeArray {
		return nil, p.fail("element <%s> of type %q has child elements", start.Name.Local, typ)
	}

	switch typ {
	case "":
		if len(children) > 0 {
			return p.mapping(children)
		}
		return p.text(start, text.String())
	case typeObject:
		if !blank {
			return nil, p.fail("object <%s> contains text", start.Name.Local)
		}
		return p.mapping(children)
	case typeArray:
		if !blank {
			return nil, p.fail("array <%s> contains text", start.Name.Local)
		}
		arr := make(ir.Array, 0, len(children))
		for _, c := range children {
			if c.start.Name.Local != itemName {
				return nil, p.fail("array <%s> contains <%s>, want <%s>", start.Name.Local, c.start.Name.Local, itemName)
			}
			arr = append(arr, c.node)
		}
		return arr, nil
	case typeNumber:
		s := strings.TrimSpace(text.String())
		if !ir.IsValidNumber(s) {
			return nil, p.fail("invalid number %q in <%s>", s, start.Name.Local)
		}
		return ir.Number(s), nil
	case typeBoolean:
		switch strings.TrimSpace(text.String()) {
		case "true":
			return ir.Bool(true), nil
		case "false":
			return ir.Bool(false), nil
		}
		return nil, p.fail("invalid boolean %q in <%s>", text.String(), start.Name.Local)
	case typeNull:
		if !blank {
			return nil, p.fail("null <%s> contains text", start.Name.Local)
		}
		return ir.Null{}, nil
	default:
		return nil, p.fail("unknown type %q on <%s>", typ, start.Name.Local)
	}
}

func (p *parser) text(start xml.StartElement, s string) (ir.Node, error) {
	enc, _ := attrValue(start, attrEncoding)
	switch enc {
	case "":
		return ir.String(s), nil
	case encodingBase64:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, p.wrap(err)
		}
		return ir.String(b), nil
	default:
		return nil, p.fail("unknown encoding %q on <%s>", enc, start.Name.Local)
	}
}

func (p *parser) mapping(children []child) (ir.Node, error) {
	m := ir.NewMapping()
	for _, c := range children {
		key := c.start.Name.Local
		if key == entryName {
			if k, ok := attrValue(c.start, attrKey); ok {
				key = k
				if enc, _ := attrValue(c.start, attrKeyEncoding); enc == encodingBase64 {
					b, err := base64.StdEncoding.DecodeString(k)
					if err != nil {
						return nil, p.wrap(err)
					}
					key = string(b)
				}
			}
		}
		if m.Has(key) {
			return nil, p.fail("duplicate key %q", key)
		}
		m.Set(key, c.node)
	}
	return m, nil
}
