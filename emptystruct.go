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
)

// emptyStructSentinel bounds the argument list in every call: if the empty
// struct occupies no register, the sentinel fills every argument register
// up to its position.
var emptyStructSentinel = mustHex("0xdead")

// GenerateEmptyStruct emits the empty-struct probe: a family of calls
// placing the empty struct at every position of the argument list,
//
//	callee(S, I);
//	callee(I, S, I);
//	callee(I, I, S, I);
//	…
//
// where S is the empty struct and I the sentinel. Each call produces its
// own dump snapshot.
func GenerateEmptyStruct(maxArgRegisters int) string {
	var sb strings.Builder
	sb.WriteString(`
struct emptyStruct {
};

extern void callee();

int main (void) {
    int I = ` + emptyStructSentinel.String() + `;
    struct emptyStruct S;

`)
	for count := 2; count <= maxArgRegisters+1; count++ {
		args := make([]string, count)
		for i := range args {
			args[i] = "I"
		}
		args[count-2] = "S"
		fmt.Fprintf(&sb, "    callee(%s);\n", strings.Join(args, ", "))
	}
	sb.WriteString("}\n")
	return sb.String()
}

// validateEmptyStructIgnored checks one snapshot: the struct sat at
// argument position k, so if the compiler ignored it, the first k argument
// registers all hold the sentinel.
func validateEmptyStructIgnored(target *Target, dump *Dump, count int) bool {
	values := NewMatcher(target).registerValues(dump.Banks)
	argRegs := target.ArgumentRegisters()
	if count > len(argRegs) {
		return false
	}
	for i := 0; i < count; i++ {
		v, ok := values[argRegs[i]]
		if !ok || !v.Equal(emptyStructSentinel) {
			return false
		}
	}
	return true
}

// EmptyStructAnalyzer confirms whether empty structs occupy an argument
// register. Needs the argument-register fact, so it runs after argpass.
type EmptyStructAnalyzer struct{}

func (EmptyStructAnalyzer) Name() string { return "empty_struct" }

func (EmptyStructAnalyzer) Analyze(r *Runner) (string, error) {
	return analyzeEmptyStruct(r)
}

// analyzeEmptyStruct runs the probe and reports a single boolean: empty
// structs are or are not ignored by the compiler.
func analyzeEmptyStruct(r *Runner) (string, error) {
	argRegs := r.Target.ArgumentRegisters()
	if len(argRegs) == 0 {
		return "", fmt.Errorf("%w: argument registers not available", errProbe)
	}

	stdout, err := r.Exec("empty_struct", nil, GenerateEmptyStruct(len(argRegs)))
	if err != nil {
		return "", err
	}

	ignored := false
	for i, section := range SplitDumps(stdout) {
		dump, err := ParseDump(section)
		if err != nil {
			return "", fmt.Errorf("%w: snapshot %d: %v", errProbe, i, err)
		}
		ignored = validateEmptyStructIgnored(r.Target, dump, i+1)
		if !ignored {
			break
		}
	}

	if ignored {
		return "- empty struct is ignored by C compiler.\n", nil
	}
	return "- empty struct is not ignored by C compiler.\n", nil
}
