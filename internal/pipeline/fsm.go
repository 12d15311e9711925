package pipeline

import "fmt"

// State identifies a release pipeline stage.
type State string

// Strict pipeline states. A run moves strictly forward; any failure lands
// in StateFailed and nothing after the failing stage executes.
const (
	StateFormat         State = "format"          // formatter over the project tree
	StateLint           State = "lint"            // linter with autofix
	StateTest           State = "test"            // test runner
	StateCleanOutput    State = "clean_output"    // empty the build-output directory
	StateRebuildDeps    State = "rebuild_deps"    // reinstall production-only dependencies
	StateProvisionTools State = "provision_tools" // create the disposable tool environment
	StateBuild          State = "build"           // build distributable artifacts
	StateUpload         State = "upload"          // publish artifacts to the registry
	StateTeardownTools  State = "teardown_tools"  // remove the disposable tool environment
	StateDone           State = "done"            // pipeline finished successfully
	StateFailed         State = "failed"          // pipeline aborted at some stage
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[State]map[State]bool{
	StateFormat: {
		StateLint:   true, // formatter done, run the linter
		StateFailed: true,
	},
	StateLint: {
		StateTest:   true, // verification continues into tests
		StateDone:   true, // lint-only invocation stops here
		StateFailed: true,
	},
	StateTest: {
		StateCleanOutput: true, // release continues into the build half
		StateDone:        true, // verify-only invocation stops here
		StateFailed:      true,
	},
	StateCleanOutput: {
		StateRebuildDeps: true,
		StateFailed:      true,
	},
	StateRebuildDeps: {
		StateProvisionTools: true,
		StateFailed:         true,
	},
	StateProvisionTools: {
		StateBuild:  true,
		StateFailed: true,
	},
	StateBuild: {
		StateUpload:        true,
		StateTeardownTools: true, // upload skipped (dry runs without publish)
		StateFailed:        true,
	},
	StateUpload: {
		StateTeardownTools: true,
		StateFailed:        true,
	},
	StateTeardownTools: {
		StateDone:   true,
		StateFailed: true,
	},
	// Terminal states (no transitions allowed)
	StateDone:   {},
	StateFailed: {},
}

// ValidateTransition checks if a stage transition is valid
func ValidateTransition(from, to State) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if the state is terminal (no further transitions)
func IsTerminal(state State) bool {
	return state == StateDone || state == StateFailed
}

// VerifyStates returns the stages of the verification pipeline, in order.
func VerifyStates() []State {
	return []State{StateFormat, StateLint, StateTest}
}

// ReleaseStates returns the stages of the full release pipeline, in order.
func ReleaseStates() []State {
	return []State{
		StateFormat,
		StateLint,
		StateTest,
		StateCleanOutput,
		StateRebuildDeps,
		StateProvisionTools,
		StateBuild,
		StateUpload,
		StateTeardownTools,
	}
}
