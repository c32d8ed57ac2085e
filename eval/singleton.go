package eval

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/noc-traffic-eval/traffic-eval/netrace"
)

// Runtime is the process-wide pair of parsed params and constructed
// evaluator/strategy, lazily initialized on first tick and never torn
// down — the outer simulator reclaims it at process exit. Ticks are a
// single-threaded cooperative reentry: there is never a
// concurrent call into IngressTick/EgressTick, so a plain option-cell
// is correct here and no mutex is needed.
type Runtime struct {
	Params    Params
	Evaluator *Evaluator
	Strategy  Strategy
}

var runtime *Runtime

// OpenTraceFunc opens a netrace.Reader over the trace at path. Supplied
// by the caller so tests can inject a fake reader without touching disk.
type OpenTraceFunc func(path string) (netrace.Reader, error)

// OpenTraceFile is the default OpenTraceFunc: a Go-native trace file on
// disk, read via netrace.Open.
func OpenTraceFile(path string) (netrace.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return netrace.Open(f)
}

// GetRuntime returns the process-wide Runtime, constructing it on first
// call from configPath if non-empty, else from fallback. Configuration
// errors are fatal at init.
func GetRuntime(configPath, fallback string, openTrace OpenTraceFunc) *Runtime {
	if runtime != nil {
		return runtime
	}

	params, err := loadParams(configPath, fallback)
	if err != nil {
		logrus.Fatalf("eval: configuration error: %v", err)
	}

	e := NewEvaluator(params)
	var strategy Strategy
	if params.Netrace.Enable {
		src, err := openTrace(params.Netrace.TracePath)
		if err != nil {
			logrus.Fatalf("eval: failed to open netrace trace %q: %v", params.Netrace.TracePath, err)
		}
		strategy = NewNetraceStrategy(e, src)
	} else {
		strategy = NewRandomStrategy(e)
	}

	runtime = &Runtime{Params: params, Evaluator: e, Strategy: strategy}
	return runtime
}

// ResetRuntime clears the process-wide singleton. Production code never
// calls this; it exists so tests can exercise GetRuntime's lazy-init
// path repeatedly within one test binary.
func ResetRuntime() {
	runtime = nil
	reported = false
}

func loadParams(configPath, fallback string) (Params, error) {
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return Params{}, err
		}
		defer f.Close()
		return ParseParams(f)
	}
	return ParseParams(strings.NewReader(fallback))
}
