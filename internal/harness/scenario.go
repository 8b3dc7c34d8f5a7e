package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/playerdata"
	"github.com/roach88/playerdata/errs"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup seeds the store before the steps run.
	Setup []Seed `yaml:"setup,omitempty"`

	// Steps are executed in order and traced.
	Steps []Step `yaml:"steps"`
}

// Seed is a document written during setup.
type Seed struct {
	Name     string    `yaml:"name"`
	Format   string    `yaml:"format,omitempty"`
	Document yaml.Node `yaml:"document"`
}

// Step is one store operation.
type Step struct {
	// Op is one of the Op constants.
	Op string `yaml:"op"`

	// Name is the stored name (write, read, exists, delete).
	Name string `yaml:"name,omitempty"`

	// Format overrides the format implied by Name's extension.
	Format string `yaml:"format,omitempty"`

	// Document is the tree to write (write only).
	Document yaml.Node `yaml:"document,omitempty"`

	// Expect validates the outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Document is the tree a read must return.
	Document yaml.Node `yaml:"document,omitempty"`

	// Exists is the answer an exists step must give.
	Exists *bool `yaml:"exists,omitempty"`

	// Names is the exact sorted result of a list step.
	Names *[]string `yaml:"names,omitempty"`

	// Error is the errs code the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Operations.
const (
	OpWrite  = "write"
	OpRead   = "read"
	OpExists = "exists"
	OpDelete = "delete"
	OpWipe   = "wipe"
	OpList   = "list"
)

var namedOps = map[string]bool{
	OpWrite:  true,
	OpRead:   true,
	OpExists: true,
	OpDelete: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", filepath.Base(path))
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	for i, seed := range s.Setup {
		if seed.Name == "" {
			return errors.Newf("setup[%d]: name is required", i)
		}
		if seed.Document.Kind == 0 {
			return errors.Newf("setup[%d]: document is required", i)
		}
		if _, err := formatOf(seed.Format, seed.Name); err != nil {
			return errors.Wrapf(err, "setup[%d]", i)
		}
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	switch step.Op {
	case OpWrite, OpRead, OpExists, OpDelete, OpWipe, OpList:
	case "":
		return errors.Newf("steps[%d]: op is required", index)
	default:
		return errors.Newf("steps[%d]: unknown op %q", index, step.Op)
	}

	if namedOps[step.Op] && step.Name == "" {
		return errors.Newf("steps[%d]: name is required for %s", index, step.Op)
	}
	if step.Op == OpWrite || step.Op == OpRead {
		if _, err := formatOf(step.Format, step.Name); err != nil {
			return errors.Wrapf(err, "steps[%d]", index)
		}
	}
	if step.Op == OpWrite && step.Document.Kind == 0 {
		return errors.Newf("steps[%d]: document is required for write", index)
	}

	e := step.Expect
	if e == nil {
		return nil
	}
	if e.Error != "" && !isKnownOutcome(e.Error) {
		return errors.Newf("steps[%d].expect: unknown error code %q", index, e.Error)
	}
	if e.Document.Kind != 0 && step.Op != OpRead {
		return errors.Newf("steps[%d].expect: document only applies to read", index)
	}
	if e.Exists != nil && step.Op != OpExists {
		return errors.Newf("steps[%d].expect: exists only applies to exists", index)
	}
	if e.Names != nil && step.Op != OpList {
		return errors.Newf("steps[%d].expect: names only applies to list", index)
	}
	return nil
}

// formatOf resolves an explicit format name or the name's extension.
func formatOf(format, name string) (playerdata.Format, error) {
	if format != "" {
		return playerdata.ParseFormat(format)
	}
	return playerdata.FormatOf(name)
}

// Error outcomes that are not errs codes.
const (
	codeInvalidName = "INVALID_NAME"
	codeOther       = "ERROR"
)

func isKnownOutcome(code string) bool {
	return code == codeInvalidName || code == codeOther || errs.IsKnownCode(errs.Code(code))
}
