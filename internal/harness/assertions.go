package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/playerdata/ir"
)

// checkStep compares an executed step with its expectation and returns one
// message per mismatch.
func checkStep(step *Step, event TraceEvent) []string {
	e := step.Expect
	if e == nil {
		if event.Error != "" {
			return []string{fmt.Sprintf("unexpected error %s", event.Error)}
		}
		return nil
	}

	if e.Error != "" {
		if event.Error != e.Error {
			return []string{fmt.Sprintf("expected error %s, got %s", e.Error, describeOutcome(event.Error))}
		}
		return nil
	}
	if event.Error != "" {
		return []string{fmt.Sprintf("unexpected error %s", event.Error)}
	}

	var msgs []string
	if e.Document.Kind != 0 {
		if msg := checkDocument(e, event.Document); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	if e.Exists != nil && (event.Exists == nil || *event.Exists != *e.Exists) {
		msgs = append(msgs, fmt.Sprintf("expected exists=%t", *e.Exists))
	}
	if e.Names != nil && !slices.Equal(*e.Names, event.Names) {
		msgs = append(msgs, fmt.Sprintf("expected names %v, got %v", *e.Names, event.Names))
	}
	return msgs
}

func checkDocument(e *Expect, got ir.Node) string {
	want, err := documentOf(&e.Document)
	if err != nil {
		return fmt.Sprintf("expected document is invalid: %v", err)
	}
	if ir.Equal(want, got) {
		return ""
	}
	return fmt.Sprintf("document mismatch:\n  want %s\n  got  %s", canonical(want), canonical(got))
}

func canonical(n ir.Node) string {
	if n == nil {
		return "<none>"
	}
	b, err := ir.MarshalCanonical(n)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(b)
}

func describeOutcome(code string) string {
	if code == "" {
		return "success"
	}
	return code
}
