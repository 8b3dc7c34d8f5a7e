// Package fixture holds the object graph shared by the codec, surface and
// caller tests. It exercises every field kind the codec knows: an embedded
// base struct, scalars of every width, a registered enum, a textual enum, an
// ignored field, collections, fixed arrays with nil holes, maps of objects,
// a constructor-only type, interface fields and a factory-initialised type.
package fixture

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/playerdata/meta"
	"github.com/roach88/playerdata/poly"
)

// Os is an integer enum registered by name.
type Os int

const (
	OsWindows Os = iota
	OsMac
	OsLinux
	OsUnknown
)

// OsNames is the name table of Os.
var OsNames = map[Os]string{
	OsWindows: "WINDOWS",
	OsMac:     "MAC",
	OsLinux:   "LINUX",
	OsUnknown: "UNKNOWN",
}

// Difficulty is an enum that names itself through encoding.TextMarshaler.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyNormal Difficulty = "NORMAL"
	DifficultyHard   Difficulty = "HARD"
)

var errUnknownDifficulty = errors.New("unknown difficulty")

func (d Difficulty) MarshalText() ([]byte, error) {
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return []byte(d), nil
	}
	return nil, errors.Wrapf(errUnknownDifficulty, "%q", string(d))
}

func (d *Difficulty) UnmarshalText(b []byte) error {
	v := Difficulty(b)
	if _, err := v.MarshalText(); err != nil {
		return err
	}
	*d = v
	return nil
}

// SuperObject is embedded by ParentObject; its fields come first.
type SuperObject struct {
	SuperField string `playerdata:"superField"`
}

type ChildObject struct {
	IntValue int `playerdata:"intValue"`
}

// ConstructorArgObject keeps its state private. It can only be built
// through NewConstructorArgObject.
type ConstructorArgObject struct {
	argument string `playerdata:"argument"`
}

func NewConstructorArgObject(argument string) *ConstructorArgObject {
	return &ConstructorArgObject{argument: argument}
}

func (o *ConstructorArgObject) Argument() string { return o.argument }

type Interface interface {
	ID() string
}

type InterfaceImpl struct {
	Id string `playerdata:"id"`
}

func (i *InterfaceImpl) ID() string { return i.Id }

// Abstract is implemented through an embedded base carrying shared state.
type Abstract interface {
	Value() int
}

type AbstractBase struct {
	value int `playerdata:"value"`
}

func (b *AbstractBase) Value() int { return b.value }

type AbstractImpl struct {
	AbstractBase
	Label string `playerdata:"label"`
}

// NewAbstractImpl sets the base state, which has no exported setter.
func NewAbstractImpl(value int, label string) *AbstractImpl {
	return &AbstractImpl{AbstractBase: AbstractBase{value: value}, Label: label}
}

type ParentObject struct {
	SuperObject

	BooleanValue bool       `playerdata:"booleanValue"`
	FloatValue   float32    `playerdata:"floatValue"`
	IntValue     int32      `playerdata:"intValue"`
	LongValue    int64      `playerdata:"longValue"`
	ShortValue   int16      `playerdata:"shortValue"`
	StringValue  string     `playerdata:"stringValue"`
	EnumValue    Os         `playerdata:"enumValue"`
	Difficulty   Difficulty `playerdata:"difficulty"`
	IgnoredValue int        `playerdata:"-"`

	ListValues       []string                `playerdata:"listValues"`
	MapValues        map[string]int          `playerdata:"mapValues"`
	ChildObject      *ChildObject            `playerdata:"childObject"`
	ChildObjectArray [3]*ChildObject         `playerdata:"childObjectArray"`
	IntArray         []int                   `playerdata:"intArray"`
	StringArray      [2]string               `playerdata:"stringArray"`
	Children         []ChildObject           `playerdata:"children"`
	MapObjectValues  map[string]*ChildObject `playerdata:"mapObjectValues"`
	ArgObject        *ConstructorArgObject   `playerdata:"argObject"`

	InterfaceValue  Interface   `playerdata:"interfaceValue"`
	InterfaceValues []Interface `playerdata:"interfaceValues"`

	FinalStringList []string          `playerdata:"finalStringList"`
	FinalStringMap  map[string]string `playerdata:"finalStringMap"`

	AbstractValue Abstract  `playerdata:"abstractValue"`
	CreatedAt     time.Time `playerdata:"createdAt"`
	UnsignedValue uint64    `playerdata:"unsignedValue"`
}

// NewParentObject is the factory of ParentObject: its final containers
// exist before any document is read into them.
func NewParentObject() *ParentObject {
	return &ParentObject{
		FinalStringList: []string{},
		FinalStringMap:  map[string]string{},
	}
}

// MapKey is the key of the single MapValues entry.
const MapKey = "test"

// IgnoredValue is the value Parent puts in the ignored field.
const IgnoredValue = 42

// Parent returns a fully populated graph. Every call returns a new graph.
func Parent() *ParentObject {
	p := NewParentObject()
	p.SuperField = "super duper"
	p.BooleanValue = true
	p.FloatValue = 1.25
	p.IntValue = 42
	p.LongValue = 9007199254740993
	p.ShortValue = -7
	p.StringValue = "hello & <world>"
	p.EnumValue = OsUnknown
	p.Difficulty = DifficultyHard
	p.IgnoredValue = IgnoredValue

	p.ListValues = []string{"alpha", "beta"}
	p.MapValues = map[string]int{MapKey: 7}
	p.ChildObject = &ChildObject{IntValue: 1}
	p.ChildObjectArray = [3]*ChildObject{{IntValue: 2}, nil, {IntValue: 3}}
	p.IntArray = []int{1, 2, 3}
	p.StringArray = [2]string{"x", "y"}
	p.Children = []ChildObject{{IntValue: 4}, {IntValue: 5}}
	p.MapObjectValues = map[string]*ChildObject{"a": {IntValue: 6}, "b": {IntValue: 7}}
	p.ArgObject = NewConstructorArgObject("cargValue")

	p.InterfaceValue = &InterfaceImpl{Id: "id-5"}
	p.InterfaceValues = []Interface{&InterfaceImpl{Id: "id-6"}, &InterfaceImpl{Id: "id-7"}}

	p.FinalStringList = append(p.FinalStringList, "final-1")
	p.FinalStringMap["k"] = "v"

	p.AbstractValue = NewAbstractImpl(9, "concrete")
	p.CreatedAt = time.Date(2024, time.May, 6, 7, 8, 9, 0, time.UTC)
	p.UnsignedValue = math.MaxUint64
	return p
}

// Expected returns Parent as it reads back from any document: the ignored
// field holds its zero value.
func Expected() *ParentObject {
	p := Parent()
	p.IgnoredValue = 0
	return p
}

// Register adds the constructors, enums and implementations the graph
// needs. Either registry may be nil.
func Register(types *meta.Registry, impls *poly.Resolver) error {
	if types != nil {
		if err := meta.RegisterEnum(types, OsNames); err != nil {
			return err
		}
		if err := types.RegisterConstructor(NewConstructorArgObject, "argument"); err != nil {
			return err
		}
		if err := types.RegisterConstructor(NewParentObject); err != nil {
			return err
		}
	}
	if impls != nil {
		if err := poly.Register[Interface, *InterfaceImpl](impls, "impl"); err != nil {
			return err
		}
		if err := poly.Register[Abstract, *AbstractImpl](impls, "abstract-impl"); err != nil {
			return err
		}
	}
	return nil
}
