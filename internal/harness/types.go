package harness

import (
	"github.com/roach88/playerdata/ir"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq      int64
	Op       string
	Name     string
	Format   string
	Document ir.Node  // read result
	Exists   *bool    // exists result
	Names    []string // list result
	Error    string   // outcome code when the step failed
}

// node renders the event as a tree; empty fields are omitted.
func (e TraceEvent) node() ir.Node {
	m := ir.NewMapping(
		ir.E("seq", ir.Int(e.Seq)),
		ir.E("op", ir.String(e.Op)),
	)
	if e.Name != "" {
		m.Set("name", ir.String(e.Name))
	}
	if e.Format != "" {
		m.Set("format", ir.String(e.Format))
	}
	if e.Document != nil {
		m.Set("document", e.Document)
	}
	if e.Exists != nil {
		m.Set("exists", ir.Bool(*e.Exists))
	}
	if e.Names != nil {
		names := make(ir.Array, len(e.Names))
		for i, name := range e.Names {
			names[i] = ir.String(name)
		}
		m.Set("names", names)
	}
	if e.Error != "" {
		m.Set("error", ir.String(e.Error))
	}
	return m
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation.
	Pass bool

	// Trace holds every step in execution order.
	Trace []TraceEvent

	// Errors describes each failed expectation.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event, numbering it from 1.
func (r *Result) AddTrace(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}
