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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"modernc.org/cc/v4"
)

// errProbe marks build/run and parse failures: the probe is reported as
// skipped and the driver proceeds with the next analyzer.
var errProbe = errors.New("probe failed")

// Analyzer is the contract every probe implements: generate C encoding the
// ABI question, run it through the external collaborator, decode the dump
// and return the summary fragment for the report.
type Analyzer interface {
	Name() string
	Analyze(r *Runner) (string, error)
}

// Runner carries the shared probe machinery: the build/run collaborator,
// the report, the target model, the fixed auxiliary sources (the dump
// helper and the target assembly), temp-file allocation and summary
// emission.
type Runner struct {
	Driver       BuildRunner
	Report       *Report
	Target       *Target
	Encoder      *Encoder
	CheckSources bool

	tmpDir        string
	sourceFiles   []string
	assemblyFiles []string
	log           *zap.SugaredLogger
}

// NewRunner returns a runner using the standard auxiliary sources.
func NewRunner(driver BuildRunner, report *Report, target *Target, encoder *Encoder, tmpDir string, log *zap.SugaredLogger) *Runner {
	return &Runner{
		Driver:        driver,
		Report:        report,
		Target:        target,
		Encoder:       encoder,
		tmpDir:        tmpDir,
		sourceFiles:   []string{"src/helper.c"},
		assemblyFiles: []string{"src/arch/riscv.S"},
		log:           log,
	}
}

// WriteFile places an auxiliary file with a fixed name in the temp
// directory (needed for generated headers the probe sources #include).
func (r *Runner) WriteFile(name, content string) (string, error) {
	path := filepath.Join(r.tmpDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", errProbe, err)
	}
	return path, nil
}

// Exec writes each generated source to a uniquely-named temp file, hands
// the file list plus the fixed auxiliary sources to the build/run
// collaborator, and returns the captured stdout. extraAsm is appended to
// the fixed assembly list (the return-pass probe needs its own wrapper).
func (r *Runner) Exec(name string, extraAsm []string, srcs ...string) (string, error) {
	var tempFiles []string
	for _, src := range srcs {
		if r.CheckSources {
			if err := checkSource(name, src); err != nil {
				return "", fmt.Errorf("%w: generated source: %v", errProbe, err)
			}
		}
		path := filepath.Join(r.tmpDir, fmt.Sprintf("%s-%s.c", name, uuid.NewString()))
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			return "", fmt.Errorf("%w: %v", errProbe, err)
		}
		tempFiles = append(tempFiles, path)
	}

	sources := append(append([]string{}, r.sourceFiles...), tempFiles...)
	asm := append(append([]string{}, r.assemblyFiles...), extraAsm...)
	status, stdoutPath := r.Driver.Run(sources, asm, name)
	if status != 0 {
		return "", fmt.Errorf("%w: build/run returned %d", errProbe, status)
	}
	content, err := os.ReadFile(stdoutPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errProbe, err)
	}
	return string(content), nil
}

// RunAnalyzer executes one analyzer and attaches its summary to the
// report. A failed probe is logged and skipped; it never aborts the
// driver.
func (r *Runner) RunAnalyzer(a Analyzer) {
	summary, err := a.Analyze(r)
	if err != nil {
		r.log.Errorf("Skip: '%s' analyzer failed.", a.Name())
		r.log.Debugf("%s: %v", a.Name(), err)
		return
	}
	summaryFile := filepath.Join(r.tmpDir, a.Name()+".sum")
	if err := os.WriteFile(summaryFile, []byte(summary), 0o644); err != nil {
		r.log.Errorf("Skip: '%s' analyzer failed.", a.Name())
		return
	}
	r.Report.Append(summaryFile)
}

// checkSource parses a generated probe source with the host cc
// configuration. A generator bug surfaces here as a local diagnostic
// instead of an opaque cross-toolchain failure.
func checkSource(name, src string) error {
	cfg, err := cc.NewConfig(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	_, err = cc.Parse(cfg, []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: name + ".c", Value: src},
	})
	if err != nil {
		return fmt.Errorf("failed to parse generated source for %v: %w", name, err)
	}
	return nil
}
