// Package yamldoc renders and parses ir document trees as YAML 1.2 through
// the yaml.v3 node API, which keeps mapping order.
//
// Numbers are written with their lexical form and an !!int or !!float
// resolution; strings that would resolve to another type are quoted.
// Aliases are expanded on parse.
package yamldoc

import (
	"bytes"
	"encoding/base64"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/ir"
)

const (
	tagNull      = "!!null"
	tagBool      = "!!bool"
	tagInt       = "!!int"
	tagFloat     = "!!float"
	tagStr       = "!!str"
	tagBinary    = "!!binary"
	tagTimestamp = "!!timestamp"
	tagSeq       = "!!seq"
	tagMap       = "!!map"
)

// maxDepth bounds nesting, aliases included.
const maxDepth = 10000

// maxNodes bounds the expanded size of a document so a small file with
// nested aliases cannot expand without limit.
const maxNodes = 1 << 22

// Option configures rendering.
type Option func(*options)

type options struct {
	indent int
}

// WithIndent sets the indentation width. YAML needs at least 2 spaces;
// smaller values keep the default of 2.
func WithIndent(width int) Option {
	return func(o *options) {
		if width >= 2 {
			o.indent = width
		}
	}
}

// Render writes n as a single YAML document.
func Render(n ir.Node, opts ...Option) ([]byte, error) {
	o := options{indent: 2}
	for _, opt := range opts {
		opt(&o)
	}

	node, err := toYAML(n)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(o.indent)
	if err := enc.Encode(node); err != nil {
		return nil, errs.Wrap(errs.CodeMalformedDocument, err, "render yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errs.Wrap(errs.CodeMalformedDocument, err, "render yaml")
	}
	return buf.Bytes(), nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toYAML(n ir.Node) (*yaml.Node, error) {
	switch v := n.(type) {
	case nil, ir.Null:
		return scalar(tagNull, "null"), nil
	case ir.Bool:
		return scalar(tagBool, strconv.FormatBool(bool(v))), nil
	case ir.Number:
		if !ir.IsValidNumber(string(v)) {
			return nil, errs.New(errs.CodeMalformedDocument, "invalid number %q", string(v))
		}
		if v.IsInteger() {
			return scalar(tagInt, string(v)), nil
		}
		return scalar(tagFloat, string(v)), nil
	case ir.String:
		if !utf8.ValidString(string(v)) {
			return scalar(tagBinary, base64.StdEncoding.EncodeToString([]byte(v))), nil
		}
		return scalar(tagStr, string(v)), nil
	case ir.Array:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
		if len(v) == 0 {
			seq.Style = yaml.FlowStyle
		}
		for _, elem := range v {
			child, err := toYAML(elem)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, child)
		}
		return seq, nil
	case *ir.Mapping:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
		if v.Len() == 0 {
			m.Style = yaml.FlowStyle
		}
		for k, child := range v.All() {
			key, err := toYAML(ir.String(k))
			if err != nil {
				return nil, err
			}
			value, err := toYAML(child)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, key, value)
		}
		return m, nil
	default:
		return nil, errs.New(errs.CodeMalformedDocument, "unsupported node type %T", n)
	}
}

// Parse reads exactly one YAML document.
func Parse(data []byte) (ir.Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errs.New(errs.CodeMalformedDocument, "empty yaml document")
		}
		return nil, errs.Wrap(errs.CodeMalformedDocument, err, "parse yaml")
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		if err != nil {
			return nil, errs.Wrap(errs.CodeMalformedDocument, err, "parse yaml")
		}
		return nil, fail(&extra, "more than one yaml document")
	}

	return FromNode(&doc)
}

// FromNode converts an already decoded yaml.v3 node, such as a document
// embedded in a larger YAML file.
func FromNode(n *yaml.Node) (ir.Node, error) {
	c := &converter{}
	return c.convert(n, 0)
}

func fail(n *yaml.Node, format string, args ...any) error {
	return errs.New(errs.CodeMalformedDocument, format, args...).
		WithPath("line " + strconv.Itoa(n.Line) + ", column " + strconv.Itoa(n.Column))
}

type converter struct {
	nodes int
}

func (c *converter) convert(n *yaml.Node, depth int) (ir.Node, error) {
	if depth > maxDepth {
		return nil, fail(n, "nesting exceeds %d levels", maxDepth)
	}
	if c.nodes++; c.nodes > maxNodes {
		return nil, fail(n, "document expands to more than %d nodes", maxNodes)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) != 1 {
			return nil, fail(n, "document has %d root nodes", len(n.Content))
		}
		return c.convert(n.Content[0], depth)
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fail(n, "unresolved alias %q", n.Value)
		}
		return c.convert(n.Alias, depth+1)
	case yaml.ScalarNode:
		return convertScalar(n)
	case yaml.SequenceNode:
		arr := make(ir.Array, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := c.convert(child, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.MappingNode:
		m := ir.NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			for keyNode.Kind == yaml.AliasNode && keyNode.Alias != nil {
				keyNode = keyNode.Alias
			}
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fail(keyNode, "mapping keys must be scalars")
			}
			key := keyNode.Value
			if keyNode.ShortTag() == tagBinary {
				b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(key), ""))
				if err != nil {
					return nil, fail(keyNode, "invalid base64 in !!binary key")
				}
				key = string(b)
			}
			if m.Has(key) {
				return nil, fail(keyNode, "duplicate key %q", key)
			}
			v, err := c.convert(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
		}
		return m, nil
	default:
		return nil, fail(n, "unsupported yaml node kind %d", n.Kind)
	}
}

func convertScalar(n *yaml.Node) (ir.Node, error) {
	switch n.ShortTag() {
	case tagNull:
		return ir.Null{}, nil
	case tagBool:
		b, err := strconv.ParseBool(strings.ToLower(n.Value))
		if err != nil {
			return nil, fail(n, "invalid boolean %q", n.Value)
		}
		return ir.Bool(b), nil
	case tagInt:
		return convertInt(n)
	case tagFloat:
		return convertFloat(n)
	case tagBinary:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fail(n, "invalid base64 in !!binary scalar")
		}
		return ir.String(b), nil
	case tagStr, tagTimestamp:
		return ir.String(n.Value), nil
	default:
		// Application tags (!thing) keep their text.
		return ir.String(n.Value), nil
	}
}

func convertInt(n *yaml.Node) (ir.Node, error) {
	s := n.Value
	if ir.IsValidNumber(s) {
		return ir.Number(s), nil
	}
	// YAML forms JSON lacks: +1, 0x1F, 0o17, 1_000.
	plain := strings.ReplaceAll(strings.TrimPrefix(s, "+"), "_", "")
	if i, err := strconv.ParseInt(plain, 0, 64); err == nil {
		return ir.Int(i), nil
	}
	if u, err := strconv.ParseUint(plain, 0, 64); err == nil {
		return ir.Uint(u), nil
	}
	return nil, fail(n, "invalid integer %q", s)
}

func convertFloat(n *yaml.Node) (ir.Node, error) {
	s := n.Value
	if ir.IsValidNumber(s) {
		return ir.Number(s), nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	if err != nil {
		// .inf, .nan and friends
		return nil, fail(n, "non-finite or invalid float %q", s)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fail(n, "non-finite float %q", s)
	}
	return ir.Float(f, 64), nil
}
