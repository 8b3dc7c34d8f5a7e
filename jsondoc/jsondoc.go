// Package jsondoc renders and parses ir document trees as JSON text
// (RFC 8259).
//
// Rendering writes mapping entries in their tree order; parsing keeps the
// key order of the text. Numbers keep their lexical form in both
// directions. Parse errors are MALFORMED_DOCUMENT and name the byte offset.
package jsondoc

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/ir"
)

// Option configures rendering.
type Option func(*options)

type options struct {
	indent int
}

// WithIndent sets the indentation width; 0 renders compact output.
func WithIndent(width int) Option {
	return func(o *options) {
		if width >= 0 {
			o.indent = width
		}
	}
}

var parseConfig = jsoniter.Config{UseNumber: true}.Froze()

// Render writes n as JSON text.
func Render(n ir.Node, opts ...Option) ([]byte, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	api := jsoniter.Config{IndentionStep: o.indent, EscapeHTML: false}.Froze()
	stream := api.BorrowStream(nil)
	defer api.ReturnStream(stream)

	if err := writeNode(stream, n); err != nil {
		return nil, err
	}
	if stream.Error != nil {
		return nil, errs.Wrap(errs.CodeMalformedDocument, stream.Error, "render json")
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func writeNode(stream *jsoniter.Stream, n ir.Node) error {
	switch v := n.(type) {
	case nil, ir.Null:
		stream.WriteNil()
	case ir.Bool:
		stream.WriteBool(bool(v))
	case ir.String:
		stream.WriteString(string(v))
	case ir.Number:
		if !ir.IsValidNumber(string(v)) {
			return errs.New(errs.CodeMalformedDocument, "invalid number %q", string(v))
		}
		stream.WriteRaw(string(v))
	case ir.Array:
		if len(v) == 0 {
			stream.WriteEmptyArray()
			return nil
		}
		stream.WriteArrayStart()
		for i, elem := range v {
			if i > 0 {
				stream.WriteMore()
			}
			if err := writeNode(stream, elem); err != nil {
				return err
			}
		}
		stream.WriteArrayEnd()
	case *ir.Mapping:
		if v.Len() == 0 {
			stream.WriteEmptyObject()
			return nil
		}
		stream.WriteObjectStart()
		first := true
		for k, child := range v.All() {
			if !first {
				stream.WriteMore()
			}
			first = false
			stream.WriteObjectField(k)
			if err := writeNode(stream, child); err != nil {
				return err
			}
		}
		stream.WriteObjectEnd()
	default:
		return errs.New(errs.CodeMalformedDocument, "unsupported node type %T", n)
	}
	return nil
}

// Parse reads one JSON value. Duplicate keys, trailing content and invalid
// number lexemes are rejected.
func Parse(data []byte) (ir.Node, error) {
	iter := parseConfig.BorrowIterator(data)
	defer parseConfig.ReturnIterator(iter)

	n := readNode(iter)
	if _, ok := n.(ir.Number); ok && iter.Error == io.EOF {
		// A number at the root reads up to the end of the input.
		return n, nil
	}
	// Otherwise io.EOF means the input ended inside a value.
	if iter.Error != nil {
		return nil, errs.Wrap(errs.CodeMalformedDocument, iter.Error, "parse json")
	}

	// Only whitespace may follow; running into the end sets io.EOF.
	iter.WhatIsNext()
	switch {
	case iter.Error == nil:
		return nil, errs.New(errs.CodeMalformedDocument, "parse json: unexpected data after top-level value")
	case iter.Error != io.EOF:
		return nil, errs.Wrap(errs.CodeMalformedDocument, iter.Error, "parse json")
	}
	return n, nil
}

func readNode(iter *jsoniter.Iterator) ir.Node {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return ir.Null{}
	case jsoniter.BoolValue:
		return ir.Bool(iter.ReadBool())
	case jsoniter.StringValue:
		return ir.String(iter.ReadString())
	case jsoniter.NumberValue:
		num := iter.ReadNumber()
		if !ir.IsValidNumber(string(num)) {
			iter.ReportError("ReadNumber", "invalid number "+string(num))
			return nil
		}
		return ir.Number(num)
	case jsoniter.ArrayValue:
		arr := ir.Array{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			child := readNode(it)
			if it.Error != nil {
				return false
			}
			arr = append(arr, child)
			return true
		})
		return arr
	case jsoniter.ObjectValue:
		m := ir.NewMapping()
		iter.ReadMapCB(func(it *jsoniter.Iterator, key string) bool {
			if m.Has(key) {
				it.ReportError("ReadObject", "duplicate key "+key)
				return false
			}
			child := readNode(it)
			if it.Error != nil {
				return false
			}
			m.Set(key, child)
			return true
		})
		return m
	default:
		iter.ReportError("Parse", "expected a JSON value")
		return nil
	}
}
