package yamldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playerdata/codec"
	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/internal/fixture"
	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/meta"
	"github.com/roach88/playerdata/poly"
)

func TestRoundTrip_Fixture(t *testing.T) {
	types, impls := meta.NewRegistry(), poly.NewResolver()
	require.NoError(t, fixture.Register(types, impls))
	c := codec.New(types, impls)

	n, err := c.Serialize(fixture.Parent())
	require.NoError(t, err)
	out, err := Render(n)
	require.NoError(t, err)

	back, err := Parse(out)
	require.NoError(t, err)
	require.True(t, ir.Equal(n, back), "document:\n%s", out)

	got, err := codec.Decode[*fixture.ParentObject](c, back)
	require.NoError(t, err)
	assert.Equal(t, fixture.Expected(), got)
}

func TestRender_Layout(t *testing.T) {
	n := ir.NewMapping(
		ir.E("name", ir.String("cart")),
		ir.E("count", ir.Int(5)),
		ir.E("ok", ir.Bool(true)),
		ir.E("none", ir.Null{}),
		ir.E("ratio", ir.Number("1.25")),
		ir.E("flag", ir.String("true")),
		ir.E("digits", ir.String("42")),
		ir.E("empty", ir.NewMapping()),
	)
	out, err := Render(n)
	require.NoError(t, err)

	want := `name: cart
count: 5
ok: true
none: null
ratio: 1.25
flag: "true"
digits: "42"
empty: {}
`
	assert.Equal(t, want, string(out))
}

func TestRoundTrip_Trees(t *testing.T) {
	tests := []struct {
		name string
		node ir.Node
	}{
		{"null root", ir.Null{}},
		{"scalar root", ir.String("plain")},
		{"strings that look like other types", ir.Array{
			ir.String("null"), ir.String("~"), ir.String("false"), ir.String("1e3"),
			ir.String("0x1F"), ir.String("2024-05-06"), ir.String(""),
		}},
		{"special characters", ir.Array{
			ir.String("multi\nline"), ir.String("tab\tand\rcr"), ir.String("- dash"),
			ir.String("key: value"), ir.String("# hash"), ir.String("caf\u00e9"),
		}},
		{"invalid utf8", ir.NewMapping(ir.E("bytes", ir.String("\xff\xfe")))},
		{"numbers keep lexical form", ir.Array{
			ir.Number("1.0"), ir.Number("-0"), ir.Number("2E+10"),
			ir.Number("18446744073709551615"), ir.Number("123456789012345678901234567890"),
		}},
		{"numeric and empty keys", ir.NewMapping(ir.E("1", ir.Int(1)), ir.E("", ir.Int(2)), ir.E("true", ir.Int(3)))},
		{"empty containers", ir.NewMapping(ir.E("m", ir.NewMapping()), ir.E("a", ir.Array{}))},
		{"nested", ir.Array{ir.Array{ir.NewMapping(ir.E("k", ir.Array{ir.Null{}}))}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, indent := range []int{2, 4} {
				out, err := Render(tt.node, WithIndent(indent))
				require.NoError(t, err)

				back, err := Parse(out)
				require.NoError(t, err, "document:\n%s", out)
				assert.True(t, ir.Equal(tt.node, back), "indent %d, document:\n%s", indent, out)
			}
		})
	}
}

func TestParse_YAMLForms(t *testing.T) {
	input := `
base: &base
  level: 3
copy: *base
hex: 0x1F
octal: 0o17
plus: +5
float: .5
stamp: 2024-05-06
bool: True
nothing: ~
tagged: !thing value
`
	n, err := Parse([]byte(input))
	require.NoError(t, err)

	want := ir.NewMapping(
		ir.E("base", ir.NewMapping(ir.E("level", ir.Number("3")))),
		ir.E("copy", ir.NewMapping(ir.E("level", ir.Number("3")))),
		ir.E("hex", ir.Number("31")),
		ir.E("octal", ir.Number("15")),
		ir.E("plus", ir.Number("5")),
		ir.E("float", ir.Number("0.5")),
		ir.E("stamp", ir.String("2024-05-06")),
		ir.E("bool", ir.Bool(true)),
		ir.E("nothing", ir.Null{}),
		ir.E("tagged", ir.String("value")),
	)
	assert.True(t, ir.Equal(want, n), "got %#v", n)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"syntax", "a: [1, 2\n"},
		{"bad indentation", "a:\n  b: 1\n c: 2\n"},
		{"duplicate key", "a: 1\na: 2\n"},
		{"sequence key", "? [1, 2]\n: x\n"},
		{"mapping key", "? {a: 1}\n: x\n"},
		{"infinity", "x: .inf\n"},
		{"nan", "x: .nan\n"},
		{"two documents", "a: 1\n---\nb: 2\n"},
		{"undefined alias", "a: *missing\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errs.IsMalformedDocument(err), "got %v", err)
		})
	}
}

func TestRender_InvalidNumber(t *testing.T) {
	_, err := Render(ir.Array{ir.Number(".5")})
	assert.True(t, errs.IsMalformedDocument(err), "got %v", err)
}
