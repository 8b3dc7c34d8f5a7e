package harness

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/playerdata"
	"github.com/roach88/playerdata/errs"
	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/storage"
	"github.com/roach88/playerdata/yamldoc"
)

// Harness runs scenarios against one backend.
type Harness struct {
	store *playerdata.Store
	log   *zap.Logger
}

// New returns a Harness writing through backend. A nil logger discards.
func New(backend storage.Backend, log *zap.Logger) *Harness {
	if log == nil {
		log = zap.NewNop()
	}
	return &Harness{
		store: playerdata.New(backend, playerdata.WithLogger(log)),
		log:   log,
	}
}

// Run executes scenario against a fresh Harness on backend.
func Run(ctx context.Context, scenario *Scenario, backend storage.Backend) (*Result, error) {
	return New(backend, nil).Run(ctx, scenario)
}

// Run executes scenario. The returned error reports a scenario that cannot
// be executed at all (bad documents, failing setup); unmet expectations are
// collected in the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	h.log.Debug("running scenario", zap.String("scenario", scenario.Name))

	for i, seed := range scenario.Setup {
		f, _ := formatOf(seed.Format, seed.Name)
		doc, err := documentOf(&seed.Document)
		if err != nil {
			return nil, errors.Wrapf(err, "setup[%d]", i)
		}
		if err := h.store.WriteDocument(ctx, f, doc, seed.Name); err != nil {
			return nil, errors.Wrapf(err, "setup[%d]: write %s", i, seed.Name)
		}
	}

	result := NewResult()
	for i := range scenario.Steps {
		if err := h.runStep(ctx, i, &scenario.Steps[i], result); err != nil {
			return nil, err
		}
	}

	h.log.Debug("scenario finished",
		zap.String("scenario", scenario.Name),
		zap.Bool("pass", result.Pass),
		zap.Int("steps", len(result.Trace)),
	)
	return result, nil
}

func (h *Harness) runStep(ctx context.Context, index int, step *Step, result *Result) error {
	event := TraceEvent{Op: step.Op, Name: step.Name}
	var stepErr error

	switch step.Op {
	case OpWrite:
		f, _ := formatOf(step.Format, step.Name)
		event.Format = f.String()
		doc, err := documentOf(&step.Document)
		if err != nil {
			return errors.Wrapf(err, "steps[%d]", index)
		}
		stepErr = h.store.WriteDocument(ctx, f, doc, step.Name)

	case OpRead:
		f, _ := formatOf(step.Format, step.Name)
		event.Format = f.String()
		event.Document, stepErr = h.store.ReadDocument(ctx, f, step.Name)

	case OpExists:
		var ok bool
		if ok, stepErr = h.store.HasFile(ctx, step.Name); stepErr == nil {
			event.Exists = &ok
		}

	case OpDelete:
		stepErr = h.store.Delete(ctx, step.Name)

	case OpWipe:
		stepErr = h.store.Wipe(ctx)

	case OpList:
		var names []string
		if names, stepErr = h.store.List(ctx); stepErr == nil {
			if names == nil {
				names = []string{}
			}
			event.Names = names
		}
	}

	if stepErr != nil {
		event.Document = nil
		event.Error = outcomeOf(stepErr)
	}
	result.AddTrace(event)

	for _, msg := range checkStep(step, event) {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", index, step.Op, step.Name, msg))
	}
	return nil
}

// documentOf converts a YAML node embedded in a scenario to a tree.
func documentOf(n *yaml.Node) (ir.Node, error) {
	return yamldoc.FromNode(n)
}

// outcomeOf names a step failure.
func outcomeOf(err error) string {
	if code := errs.CodeOf(err); code != "" {
		return string(code)
	}
	if errors.Is(err, storage.ErrInvalidName) {
		return codeInvalidName
	}
	return codeOther
}
