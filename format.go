package playerdata

import (
	"path"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/jsondoc"
	"github.com/roach88/playerdata/xmldoc"
	"github.com/roach88/playerdata/yamldoc"
)

// Format selects the text encoding of a persisted document.
type Format int

const (
	JSON Format = iota
	XML
	YAML
)

// ErrUnknownFormat is returned for format names and file extensions that
// map to no Format.
var ErrUnknownFormat = errors.New("unknown document format")

var formatNames = map[Format]string{
	JSON: "json",
	XML:  "xml",
	YAML: "yaml",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

// ParseFormat maps a format name ("json", "xml", "yaml" or "yml") to a
// Format. Matching ignores case.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON, nil
	case "xml":
		return XML, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return 0, errors.Wrapf(ErrUnknownFormat, "%q", name)
}

// FormatOf picks the Format from the extension of name.
func FormatOf(name string) (Format, error) {
	ext := path.Ext(name)
	if ext == "" {
		return 0, errors.Wrapf(ErrUnknownFormat, "%q has no extension", name)
	}
	return ParseFormat(ext[1:])
}

// Render writes n in format f. An indent of 0 renders compact output where
// the format has one; YAML always indents by at least 2.
func (f Format) Render(n ir.Node, indent int) ([]byte, error) {
	switch f {
	case JSON:
		return jsondoc.Render(n, jsondoc.WithIndent(indent))
	case XML:
		return xmldoc.Render(n, xmldoc.WithIndent(indent))
	case YAML:
		return yamldoc.Render(n, yamldoc.WithIndent(indent))
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%s", f)
}

// Parse reads a document in format f.
func (f Format) Parse(data []byte) (ir.Node, error) {
	switch f {
	case JSON:
		return jsondoc.Parse(data)
	case XML:
		return xmldoc.Parse(data)
	case YAML:
		return yamldoc.Parse(data)
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%s", f)
}
