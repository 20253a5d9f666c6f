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
	"strings"

	"github.com/samber/lo"
)

// GenerateSavedMain emits the main translation unit of the caller/callee
// -saved probe: every register is set to the first sentinel, aux is called,
// and a dump is taken on return.
func GenerateSavedMain(mainValue HexValue) string {
	return fmt.Sprintf(`extern void callee (void);
extern void reset_registers (void);
extern void set_registers (int);
void aux (void);

int main (void) {
    reset_registers();
    set_registers(%s);
    aux();
    callee();

    return 0;
}
`, mainValue)
}

// GenerateSavedAux emits the aux translation unit: an empty inline-asm
// block with a clobber list of every register forces the compiler to treat
// all register contents as dead on entry, then every register is set to the
// second sentinel. On return, aux's epilogue restores the callee-saved
// registers to the caller's values.
func GenerateSavedAux(target *Target, auxValue HexValue) string {
	names := lo.Map(target.AllRegisters(), func(reg string, _ int) string {
		return fmt.Sprintf("%q", reg)
	})
	return fmt.Sprintf(`extern void set_registers (int);

void aux (void) {
    asm volatile (""
    :
    :
    : %s);

    set_registers(%s);

    asm volatile("":::);
}
`, strings.Join(names, ", "), auxValue)
}

// SavedAnalyzer partitions the register file into caller-saved and
// callee-saved sets. After aux returns, registers still holding the aux
// sentinel were left to the caller to preserve (caller-saved); registers
// restored to the main sentinel were preserved by aux's prologue/epilogue
// (callee-saved).
type SavedAnalyzer struct{}

func (SavedAnalyzer) Name() string { return "saved" }

func (SavedAnalyzer) Analyze(r *Runner) (string, error) {
	if !r.Target.HasTypeDetails() {
		return "", fmt.Errorf("%w: datatypes facts not available", errProbe)
	}
	size := r.Target.TypeSize("int")
	r.Encoder.Reset()
	mainValue := r.Encoder.Fresh(size)
	auxValue := r.Encoder.Fresh(size)

	stdout, err := r.Exec("saved", nil,
		GenerateSavedMain(mainValue),
		GenerateSavedAux(r.Target, auxValue))
	if err != nil {
		return "", err
	}
	dump, err := ParseDump(stdout)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errProbe, err)
	}

	matcher := NewMatcher(r.Target)
	calleeMatches, _ := matcher.FindRegistersFill([]HexValue{mainValue}, dump.Banks)
	callerMatches, _ := matcher.FindRegistersFill([]HexValue{auxValue}, dump.Banks)

	caller := lo.Map(callerMatches, func(m RegisterMatch, _ int) string { return m.Reg })
	callee := lo.Map(calleeMatches, func(m RegisterMatch, _ int) string { return m.Reg })

	summary := []string{
		"Caller/callee-saved test:",
		fmt.Sprintf(" - caller-saved %s", strings.Join(caller, ", ")),
		fmt.Sprintf(" - callee-saved %s", strings.Join(callee, ", ")),
		"",
	}
	return strings.Join(summary, "\n"), nil
}
