// Package harness runs storage conformance scenarios against a
// playerdata.Store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: slot_lifecycle
//	description: "What this scenario validates"
//	setup:
//	  - name: profiles/ada.yaml
//	    document: { name: ada }
//	steps:
//	  - op: write
//	    name: slot1.json
//	    document: { level: 3 }
//	  - op: read
//	    name: slot1.json
//	    expect:
//	      document: { level: 3 }
//	  - op: read
//	    name: missing.json
//	    expect:
//	      error: FILE_NOT_FOUND
//
// Setup entries are written before the steps and never traced. Documents are
// plain YAML and become ir trees through yamldoc. The format of a step
// follows the name's extension unless format is given.
//
// # Operations
//
//   - write: store document under name
//   - read: load name; expect.document compares the tree
//   - exists: expect.exists compares the answer
//   - delete: remove name
//   - wipe: remove everything
//   - list: expect.names compares the sorted names
//
// Any step may set expect.error to an errs code; the step must then fail
// with that code.
//
// # Golden Traces
//
// Every step is recorded in a trace that RunWithGolden compares, in
// canonical JSON, against testdata/golden/{name}.golden. The trace does not
// depend on the backend, so one golden file covers all of them.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/slot_lifecycle.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario, storage.NewMemoryStore())
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
