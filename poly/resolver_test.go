package poly

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playerdata/errs"
)

type shape interface{ Area() float64 }

type circle struct{ R float64 }

func (c *circle) Area() float64 { return 3 * c.R * c.R }

type square struct{ S float64 }

func (s square) Area() float64 { return s.S * s.S }

var (
	shapeType  = reflect.TypeFor[shape]()
	circlePtr  = reflect.TypeFor[*circle]()
	squareType = reflect.TypeFor[square]()
)

func TestRegister_AndLookup(t *testing.T) {
	r := NewResolver()
	require.NoError(t, Register[shape, *circle](r, "circle"))
	require.NoError(t, Register[shape, square](r, "square"))

	d, err := r.Discriminant(shapeType, circlePtr)
	require.NoError(t, err)
	assert.Equal(t, "circle", d)

	c, err := r.Concrete(shapeType, "square")
	require.NoError(t, err)
	assert.Equal(t, squareType, c)

	assert.Equal(t, []Implementation{
		{Discriminant: "circle", Type: circlePtr},
		{Discriminant: "square", Type: squareType},
	}, r.Implementations(shapeType))
}

func TestRegister_Ambiguous(t *testing.T) {
	r := NewResolver()
	require.NoError(t, Register[shape, *circle](r, "round"))

	err := Register[shape, square](r, "round")
	assert.True(t, errs.Is(err, errs.CodeAmbiguousImplementation), "got %v", err)

	err = Register[shape, *circle](r, "circle")
	assert.True(t, errs.Is(err, errs.CodeAmbiguousImplementation), "got %v", err)

	// identical pair is a no-op
	assert.NoError(t, Register[shape, *circle](r, "round"))
}

func TestRegister_InvalidArguments(t *testing.T) {
	r := NewResolver()
	tests := []struct {
		name     string
		base     reflect.Type
		concrete reflect.Type
		disc     string
	}{
		{"base not interface", squareType, squareType, "x"},
		{"concrete is interface", shapeType, shapeType, "x"},
		{"does not implement", shapeType, reflect.TypeFor[circle](), "x"},
		{"empty discriminant", shapeType, squareType, " "},
		{"nil base", nil, squareType, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.base, tt.concrete, tt.disc)
			assert.True(t, errs.Is(err, errs.CodeInvalidDescriptor), "got %v", err)
		})
	}
}

func TestLookup_Failures(t *testing.T) {
	r := NewResolver()
	require.NoError(t, Register[shape, *circle](r, "circle"))

	_, err := r.Discriminant(shapeType, squareType)
	assert.True(t, errs.Is(err, errs.CodeUnregisteredImplementation))

	_, err = r.Concrete(shapeType, "triangle")
	assert.True(t, errs.Is(err, errs.CodeUnknownImplementation))

	_, err = r.Concrete(reflect.TypeFor[any](), "circle")
	assert.True(t, errs.Is(err, errs.CodeUnknownImplementation))
}

func TestRegister_AfterFirstUseFails(t *testing.T) {
	r := NewResolver()
	require.NoError(t, Register[shape, *circle](r, "circle"))
	_, err := r.Concrete(shapeType, "circle")
	require.NoError(t, err)

	err = Register[shape, square](r, "square")
	assert.True(t, errs.Is(err, errs.CodeInvalidDescriptor), "got %v", err)
}

func TestResolver_ConcurrentLookups(t *testing.T) {
	r := NewResolver()
	require.NoError(t, Register[shape, *circle](r, "circle"))
	require.NoError(t, Register[shape, square](r, "square"))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Concrete(shapeType, "circle")
			assert.NoError(t, err)
			assert.Equal(t, circlePtr, c)
			d, err := r.Discriminant(shapeType, squareType)
			assert.NoError(t, err)
			assert.Equal(t, "square", d)
		}()
	}
	wg.Wait()
}
