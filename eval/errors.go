package eval

import "fmt"

// ConfigError reports a fatal problem parsing the directive file: an
// unrecognized directive, wrong arity, or a missing required flow set.
type ConfigError struct {
	Line      int
	Directive string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config line %d (%q): %s", e.Line, e.Directive, e.Reason)
}

// InvariantError reports a simulation-time invariant violation: a flit
// delivered at egress that was never handed to the DUT, or delivered
// with a head/tail/ingress that doesn't match its creation-time record.
// These indicate a DUT bug or corruption and are never recovered from.
type InvariantError struct {
	UniqueID int64
	Reason   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("flit %d: %s", e.UniqueID, e.Reason)
}
