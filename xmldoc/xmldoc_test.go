package xmldoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playerdata/codec"
	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/internal/fixture"
	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/jsondoc"
	"github.com/roach88/playerdata/meta"
	"github.com/roach88/playerdata/poly"
)

func fixtureTree(t *testing.T) ir.Node {
	t.Helper()
	types, impls := meta.NewRegistry(), poly.NewResolver()
	require.NoError(t, fixture.Register(types, impls))
	n, err := codec.New(types, impls).Serialize(fixture.Parent())
	require.NoError(t, err)
	return n
}

func TestRender_Golden(t *testing.T) {
	n := fixtureTree(t)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	pretty, err := Render(n, WithIndent(2))
	require.NoError(t, err)
	g.Assert(t, "parent", pretty)

	compact, err := Render(n)
	require.NoError(t, err)
	g.Assert(t, "parent_compact", compact)
}

func TestParse_GoldenMatchesTree(t *testing.T) {
	n := fixtureTree(t)
	for _, name := range []string{"parent.golden", "parent_compact.golden"} {
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", "golden", name))
			require.NoError(t, err)

			parsed, err := Parse(data)
			require.NoError(t, err)
			assert.True(t, ir.Equal(n, parsed), "parsed tree differs from serialized graph")
		})
	}
}

func TestJSONAndXMLAreInterchangeable(t *testing.T) {
	n := fixtureTree(t)

	js, err := jsondoc.Render(n, jsondoc.WithIndent(2))
	require.NoError(t, err)
	fromJSON, err := jsondoc.Parse(js)
	require.NoError(t, err)

	x, err := Render(fromJSON, WithIndent(2))
	require.NoError(t, err)
	fromXML, err := Parse(x)
	require.NoError(t, err)

	back, err := jsondoc.Render(fromXML, jsondoc.WithIndent(2))
	require.NoError(t, err)
	assert.Equal(t, string(js), string(back))

	d1, err := ir.Digest(fromJSON)
	require.NoError(t, err)
	d2, err := ir.Digest(fromXML)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestRoundTrip_Trees(t *testing.T) {
	tests := []struct {
		name string
		node ir.Node
	}{
		{"null root", ir.Null{}},
		{"string root", ir.String("plain")},
		{"empty string", ir.NewMapping(ir.E("s", ir.String("")))},
		{"whitespace string", ir.NewMapping(ir.E("s", ir.String("  padded \n")))},
		{"carriage return and tab", ir.NewMapping(ir.E("s", ir.String("a\r\nb\tc")))},
		{"quotes and markup", ir.NewMapping(ir.E("s", ir.String(`<x a="1">'&'</x>`)))},
		{"control characters", ir.NewMapping(ir.E("s", ir.String("bell\x07nul\x00")))},
		{"invalid utf8", ir.NewMapping(ir.E("s", ir.String("\xff\xfe")))},
		{"non-ascii", ir.NewMapping(ir.E("s", ir.String("caf\u00e9 \U0001F600")))},
		{"empty containers", ir.NewMapping(ir.E("m", ir.NewMapping()), ir.E("a", ir.Array{}))},
		{"empty root mapping", ir.NewMapping()},
		{"nested arrays", ir.Array{ir.Array{ir.Int(1)}, ir.Array{}, ir.Null{}}},
		{"numbers keep lexical form", ir.Array{ir.Number("1.0"), ir.Number("-0"), ir.Number("2E+10")}},
		{"booleans", ir.Array{ir.Bool(true), ir.Bool(false)}},
		{"keys needing entry", ir.NewMapping(
			ir.E("two words", ir.Int(1)),
			ir.E("1st", ir.Int(2)),
			ir.E("xmlThing", ir.Int(3)),
			ir.E("", ir.Int(4)),
			ir.E("ns:key", ir.Int(5)),
			ir.E("caf\u00e9", ir.Int(6)),
			ir.E("tab\tkey", ir.Int(7)),
		)},
		{"control character key", ir.NewMapping(ir.E("k\x01", ir.String("v")))},
		{"keys named like layout elements", ir.NewMapping(
			ir.E("entry", ir.String("e")),
			ir.E("item", ir.String("i")),
			ir.E("document", ir.String("d")),
			ir.E("type", ir.String("t")),
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, indent := range []int{0, 2} {
				out, err := Render(tt.node, WithIndent(indent))
				require.NoError(t, err)

				back, err := Parse(out)
				require.NoError(t, err, "document:\n%s", out)
				assert.True(t, ir.Equal(tt.node, back), "indent %d, document:\n%s", indent, out)
			}
		})
	}
}

func TestRender_Layout(t *testing.T) {
	n := ir.NewMapping(
		ir.E("name", ir.String("cart")),
		ir.E("two words", ir.Number("2")),
		ir.E("tags", ir.Array{ir.String("a")}),
		ir.E("none", ir.Null{}),
		ir.E("empty", ir.NewMapping()),
		ir.E("raw", ir.String("\x01")),
	)
	out, err := Render(n, WithIndent(2))
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<document>
  <name>cart</name>
  <entry key="two words" type="number">2</entry>
  <tags type="array">
    <item>a</item>
  </tags>
  <none type="null"></none>
  <empty type="object"></empty>
  <raw encoding="base64">AQ==</raw>
</document>`
	assert.Equal(t, want, string(out))
}

func TestRender_InvalidNumber(t *testing.T) {
	_, err := Render(ir.NewMapping(ir.E("n", ir.Number("NaN"))))
	assert.True(t, errs.IsMalformedDocument(err), "got %v", err)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"wrong root", `<root></root>`},
		{"two roots", `<document></document><document></document>`},
		{"unclosed", `<document><a>1</a>`},
		{"mismatched tags", `<document><a>1</b></document>`},
		{"doctype", `<!DOCTYPE document><document></document>`},
		{"default namespace", `<document xmlns="urn:x"></document>`},
		{"prefixed namespace", `<document xmlns:p="urn:x"><p:a>1</p:a></document>`},
		{"mixed content", `<document>text<a>1</a></document>`},
		{"unknown type", `<document type="date">2024</document>`},
		{"bad number", `<document type="number">12abc</document>`},
		{"bad boolean", `<document type="boolean">yes</document>`},
		{"null with text", `<document type="null">x</document>`},
		{"number with children", `<document type="number"><a>1</a></document>`},
		{"array with foreign child", `<document type="array"><a>1</a></document>`},
		{"duplicate key", `<document><a>1</a><a>2</a></document>`},
		{"duplicate entry key", `<document><entry key="x y">1</entry><entry key="x y">2</entry></document>`},
		{"bad base64", `<document encoding="base64">!!!</document>`},
		{"unknown encoding", `<document encoding="rot13">abc</document>`},
		{"text after root", `<document></document>trailing`},
		{"object with text", `<document type="object">x</document>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errs.IsMalformedDocument(err), "got %v", err)
		})
	}
}

func TestParse_ReportsPosition(t *testing.T) {
	_, err := Parse([]byte("<document>\n  <a type=\"number\">x</a>\n</document>"))
	se, ok := errs.As(err)
	require.True(t, ok, "got %v", err)
	assert.Contains(t, se.Path, "line 2")
}

func TestParse_IgnoresCommentsAndProcessingInstructions(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?>
<!-- saved by hand -->
<document>
  <!-- level -->
  <level type="number">3</level>
  <?editor fold?>
</document>
`
	n, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.NewMapping(ir.E("level", ir.Number("3"))), n))
}
