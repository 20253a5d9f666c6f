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
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// BuildRunner is the external build-and-run collaborator: it compiles,
// assembles, links and simulates a probe and hands back the captured
// stdout. A non-zero status marks the probe as failed.
type BuildRunner interface {
	Run(sources, asmSources []string, outBase string) (status int, stdoutPath string)
}

// WrapperDriver drives the toolchain through the wrapper scripts the
// selected -cc/-sim configuration puts on PATH: cc-wrapper, as-wrapper,
// ld-wrapper, sim-wrapper. -O1 is fixed: low enough that the compiler does
// not constant-fold the sentinels away, high enough that argument passing
// uses the ABI without spurious stack spills.
type WrapperDriver struct {
	tmpDir  string
	cflags  []string
	verbose bool
	log     *zap.SugaredLogger
}

// NewWrapperDriver returns a driver writing its artifacts under tmpDir.
// extraCFlags come from the wrapper's toolchains.yaml entry, if any.
func NewWrapperDriver(tmpDir string, extraCFlags []string, verbose bool, log *zap.SugaredLogger) *WrapperDriver {
	return &WrapperDriver{
		tmpDir:  tmpDir,
		cflags:  append([]string{"-O1"}, extraCFlags...),
		verbose: verbose,
		log:     log,
	}
}

// cmd runs one external command, logging the command line in verbose mode.
func (d *WrapperDriver) cmd(name string, args ...string) error {
	if d.verbose {
		d.log.Infof("EXECUTING: %s %s", name, strings.Join(args, " "))
	}
	c := exec.Command(name, args...)
	output, err := c.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("%s: %s", name, strings.TrimSpace(string(output)))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// cmdCapture runs one external command capturing its stdout.
func (d *WrapperDriver) cmdCapture(name string, args ...string) ([]byte, error) {
	if d.verbose {
		d.log.Infof("EXECUTING: %s %s", name, strings.Join(args, " "))
	}
	output, err := exec.Command(name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

// Compile translates one C source into assembly.
func (d *WrapperDriver) Compile(input, output string) error {
	args := append(append([]string{}, d.cflags...), input, "-S", "-o", output)
	return d.cmd("cc-wrapper", args...)
}

// Assemble turns one assembly source into an object file.
func (d *WrapperDriver) Assemble(input, output string) error {
	args := append(append([]string{}, d.cflags...), input, "-c", "-o", output)
	return d.cmd("as-wrapper", args...)
}

// Link combines object files into an executable.
func (d *WrapperDriver) Link(inputs []string, output string) error {
	args := append(append([]string{}, d.cflags...), inputs...)
	args = append(args, "-o", output)
	return d.cmd("ld-wrapper", args...)
}

// Simulate executes the linked binary under the simulator and writes the
// captured stdout to output.
func (d *WrapperDriver) Simulate(input, output string) error {
	stdout, err := d.cmdCapture("sim-wrapper", input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, stdout, 0o644)
}

// Run performs the whole compile → assemble → link → simulate pipeline for
// a probe. The returned status is 0 on success; on failure the probe is
// reported as skipped by the caller.
func (d *WrapperDriver) Run(sources, asmSources []string, outBase string) (int, string) {
	var objects []string
	fail := func(err error) (int, string) {
		d.log.Debugf("build/run %s: %v", outBase, err)
		return 1, ""
	}

	for _, src := range sources {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		asm := filepath.Join(d.tmpDir, base+".s")
		obj := filepath.Join(d.tmpDir, base+".o")
		if err := d.Compile(src, asm); err != nil {
			return fail(err)
		}
		if err := d.Assemble(asm, obj); err != nil {
			return fail(err)
		}
		objects = append(objects, obj)
	}
	for _, src := range asmSources {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		obj := filepath.Join(d.tmpDir, base+".o")
		if err := d.Assemble(src, obj); err != nil {
			return fail(err)
		}
		objects = append(objects, obj)
	}

	elf := filepath.Join(d.tmpDir, outBase+".elf")
	if err := d.Link(objects, elf); err != nil {
		return fail(err)
	}
	stdoutPath := filepath.Join(d.tmpDir, outBase+".stdout")
	if err := d.Simulate(elf, stdoutPath); err != nil {
		return fail(err)
	}
	return 0, stdoutPath
}
