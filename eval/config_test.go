package eval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseParams_Defaults(t *testing.T) {
	// GIVEN a config with only one flow directive
	r := strings.NewReader("flow 0 0 1.0\n")

	// WHEN parsed
	p, err := ParseParams(r)
	require.NoError(t, err)

	// THEN unspecified directives take their documented defaults
	require.Equal(t, uint64(1000), p.Phase.Warmup)
	require.Equal(t, uint64(2000), p.Phase.Measurement)
	require.Equal(t, uint64(500), p.Phase.DrainTimeout)
	require.Equal(t, 4, p.FlitsPerPacket)
	require.Equal(t, 0.0, p.Thresholds.RequiredThroughput)
	require.Equal(t, int64(99999), p.Thresholds.RequiredMedianLatency)
	require.Equal(t, int64(99999), p.Thresholds.RequiredMaxLatency)
	require.Len(t, p.Flows, 1)
	require.Equal(t, 1, p.NumIngresses)
	require.Equal(t, 1, p.NumEgresses)
}

func TestParseParams_CommentsAndBlankLinesIgnored(t *testing.T) {
	// GIVEN a config with comments and blank lines interspersed
	r := strings.NewReader("# a comment\n\nwarmup 10\n\n# another\nflow 0 0 1.0\n")

	// WHEN parsed
	p, err := ParseParams(r)

	// THEN it parses as if they weren't there
	require.NoError(t, err)
	require.Equal(t, uint64(10), p.Phase.Warmup)
}

func TestParseParams_NumIngressesEgresses_OnePastMaxFlowID(t *testing.T) {
	// GIVEN flows touching ingress 0,2 and egress 1,3
	r := strings.NewReader("flow 0 1 0.1\nflow 2 3 0.2\n")

	// WHEN parsed
	p, err := ParseParams(r)
	require.NoError(t, err)

	// THEN num_ingresses/egresses are one past the largest id seen
	require.Equal(t, 3, p.NumIngresses)
	require.Equal(t, 4, p.NumEgresses)
}

func TestParseParams_ArityMismatch_IsFatalParseError(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"warmup missing arg", "warmup\n"},
		{"warmup extra arg", "warmup 10 20\n"},
		{"flow missing arg", "flow 0 0\n"},
		{"flow extra arg", "flow 0 0 1.0 extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParams(strings.NewReader(tt.line))
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestParseParams_UnrecognizedDirective_IsFatalParseError(t *testing.T) {
	_, err := ParseParams(strings.NewReader("bogus_directive 1\n"))
	require.Error(t, err)
}

func TestParseParams_NoFlowsAndNetraceDisabled_IsError(t *testing.T) {
	// GIVEN a config with no flow directives and netrace left disabled
	_, err := ParseParams(strings.NewReader("warmup 10\n"))

	// THEN parsing fails
	require.Error(t, err)
}

func TestParseParams_NoFlowsButNetraceEnabled_IsOK(t *testing.T) {
	// GIVEN a config with no flows but netrace_enable true
	p, err := ParseParams(strings.NewReader("netrace_enable true\n"))

	require.NoError(t, err)
	require.True(t, p.Netrace.Enable)
}

func TestParseParams_NetraceDirectives(t *testing.T) {
	r := strings.NewReader(strings.Join([]string{
		"netrace_enable true",
		"netrace_trace traces/foo.ntrace",
		"netrace_region 2",
		"netrace_ignore_dependencies true",
	}, "\n"))

	p, err := ParseParams(r)
	require.NoError(t, err)
	require.True(t, p.Netrace.Enable)
	require.Equal(t, "traces/foo.ntrace", p.Netrace.TracePath)
	require.Equal(t, 2, p.Netrace.Region)
	require.True(t, p.Netrace.IgnoreDependencies)
}

func TestParseParams_NetraceRegionOutOfRange(t *testing.T) {
	_, err := ParseParams(strings.NewReader("netrace_enable true\nnetrace_region 5\n"))
	require.Error(t, err)
}

func TestApplyEnvOverrides_OverridesThresholds(t *testing.T) {
	// GIVEN an env var override for required_throughput
	t.Setenv("EVAL_REQUIRED_THROUGHPUT", "0.95")

	// WHEN parsed
	p, err := ParseParams(strings.NewReader("flow 0 0 1.0\nrequired_throughput 0.5\n"))
	require.NoError(t, err)

	// THEN the env var wins over the directive-file value
	require.Equal(t, 0.95, p.Thresholds.RequiredThroughput)
}

func TestApplyEnvOverrides_UnsetLeavesDirectiveValue(t *testing.T) {
	p, err := ParseParams(strings.NewReader("flow 0 0 1.0\nrequired_throughput 0.5\n"))
	require.NoError(t, err)
	require.Equal(t, 0.5, p.Thresholds.RequiredThroughput)
}
