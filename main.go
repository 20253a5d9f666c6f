// Copyright 2025 Synopsys, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultCC  = "gcc-rv32gc-ilp32d"
	defaultSim = "qemu-riscv32"
	tmpDir     = "tmp"
)

// analyzers lists every probe in dependency order: datatypes populates the
// type details everything after it reads; argpass populates the argument
// registers the struct probes need; the rest only read facts.
var analyzers = []Analyzer{
	DataTypesAnalyzer{},
	StackDirAnalyzer{},
	StackAlignAnalyzer{},
	EndiannessAnalyzer{},
	ArgPassAnalyzer{},
	EmptyStructAnalyzer{},
	StructBoundaryAnalyzer{},
	SavedAnalyzer{},
	ReturnPassAnalyzer{},
	BitFieldAnalyzer{},
}

// newLogger builds the stderr diagnostics logger. The report itself never
// goes through it.
func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return logger.Sugar()
}

// normalizeArgs maps the historical single-dash long options onto the flag
// surface cobra understands.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "-cc", "--compiler":
			out = append(out, "--cc")
		case "-sim", "--simulator":
			out = append(out, "--sim")
		default:
			out = append(out, arg)
		}
	}
	return out
}

var (
	verbose      bool
	printReport  bool
	saveTemps    bool
	checkSources bool
)

var command = &cobra.Command{
	Use:   "abi-extract-info [-cc <compiler>] [-sim <simulator>]",
	Short: "Empirically discover a C toolchain's ABI by probing it under a simulator",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cc, _ := cmd.PersistentFlags().GetString("cc")
		sim, _ := cmd.PersistentFlags().GetString("sim")
		log := newLogger(verbose)
		defer func() { _ = log.Sync() }()

		for _, tool := range []struct{ name, id string }{{"cc", cc}, {"sim", sim}} {
			if err := ValidateConfiguration(tool.name, tool.id); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
		if err := SetWrapperPath(cc, sim); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		registry, err := LoadToolchains()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Running %s with %s...\n", cc, sim)
		if err := os.MkdirAll(tmpDir, 0o755); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}

		arch, err := GetArch("riscv")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		target := NewTarget(arch)

		var extraCFlags []string
		if meta, ok := registry.meta("cc", cc); ok {
			extraCFlags = meta.CFlags
		}
		driver := NewWrapperDriver(tmpDir, extraCFlags, verbose, log)
		report := NewReport(fmt.Sprintf("%s_%s.report", cc, sim))
		encoder := NewEncoder(time.Now().UnixNano())

		runner := NewRunner(driver, report, target, encoder, tmpDir, log)
		runner.CheckSources = checkSources

		for _, analyzer := range analyzers {
			runner.RunAnalyzer(analyzer)
		}

		if err := report.Generate(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report file generated at %s\n", report.Path())
		if printReport {
			if content, err := os.ReadFile(report.Path()); err == nil {
				fmt.Print(string(content))
			}
		}

		if !saveTemps {
			if err := os.RemoveAll(tmpDir); err != nil {
				log.Warnf("failed to remove %s: %v", tmpDir, err)
			}
		}
	},
}

func init() {
	command.PersistentFlags().String("cc", defaultCC, "compiler wrapper to use")
	command.PersistentFlags().String("sim", defaultSim, "simulator wrapper to use")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print execution commands")
	command.PersistentFlags().BoolVar(&printReport, "print-report", false, "print summary report upon conclusion")
	command.PersistentFlags().BoolVar(&saveTemps, "save-temps", false, "do not delete the temporary files from the tmp directory")
	command.PersistentFlags().BoolVar(&checkSources, "check-sources", false, "parse each generated probe source before building it")
}

func main() {
	// The --help=cc / --help=sim forms predate the flag surface and are
	// handled before cobra sees the arguments.
	for _, arg := range os.Args[1:] {
		if arg == "--help=cc" || arg == "--help=sim" {
			tool := arg[len("--help="):]
			registry, err := LoadToolchains()
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
				os.Exit(1)
			}
			if err := DisplayConfigurations(tool, registry); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		}
	}
	command.SetArgs(normalizeArgs(os.Args[1:]))
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
