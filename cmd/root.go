// cmd/root.go
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/noc-traffic-eval/traffic-eval/eval"
)

var (
	configPath  string
	logLevel    string
	maxCycles   uint64
	loopbackLag uint64
)

var rootCmd = &cobra.Command{
	Use:   "traffic-eval",
	Short: "C-side traffic evaluator for a cycle-accurate NoC simulator",
}

// runCmd drives the evaluator against a trivial in-process loopback DUT:
// every ingress flit is echoed back at the matching egress after a fixed
// cycle delay. It exists for local smoke-testing and CI sanity checks —
// the real invocation path is the RTL simulator calling IngressTick/
// EgressTick directly, which has no CLI of its own.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the evaluator against an in-process loopback DUT",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		logrus.Infof("starting loopback run: config=%q max-cycles=%d loopback-lag=%d", configPath, maxCycles, loopbackLag)

		success, fatal := runLoopback(configPath, maxCycles, loopbackLag)
		logrus.Infof("run finished: success=%v fatal=%v", success, fatal)
		if fatal {
			os.Exit(1)
		}
	},
}

// validateCmd parses the directive file and reports success without
// running any cycles, for catching config typos in CI before a full run.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse a config file and report any errors",
	Run: func(cmd *cobra.Command, args []string) {
		if configPath == "" {
			logrus.Fatal("validate requires --config")
		}
		f, err := os.Open(configPath)
		if err != nil {
			logrus.Fatalf("cannot open %s: %v", configPath, err)
		}
		defer f.Close()

		if _, err := eval.ParseParams(f); err != nil {
			logrus.Fatalf("invalid config: %v", err)
		}
		logrus.Infof("%s: OK", configPath)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the directive config file (fallback config used if empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")

	runCmd.Flags().Uint64Var(&maxCycles, "max-cycles", 10000, "Give up (non-fatally) after this many cycles with no completion signal")
	runCmd.Flags().Uint64Var(&loopbackLag, "loopback-lag", 1, "Cycles between a flit being dequeued and its loopback delivery")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
