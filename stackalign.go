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

// stackAlignLadder is how many TrackAlignment functions the probe chains.
// Across that many calls with local arrays of 1..N bytes, every stack
// position modulo the true alignment is observed at least once, so the
// trailing zero bits surviving the OR accumulator are exactly the
// alignment exponent.
const stackAlignLadder = 64

// GenerateStackAlignHeader emits the shared header declaring the function
// ladder and the function-pointer table that hides the recursion target
// from the optimizer.
func GenerateStackAlignHeader() string {
	var sb strings.Builder
	sb.WriteString("#ifndef FUNCTIONS_H\n#define FUNCTIONS_H\n#include <stdint.h>\n")
	sb.WriteString("struct p_functions_struct;\n")
	sb.WriteString("typedef void (*p_function)(uintptr_t*, struct p_functions_struct*, int, void*);\n")
	fmt.Fprintf(&sb, `
typedef struct p_functions_struct {
    p_function functions[%d];
} p_functions_struct;
`, stackAlignLadder)
	sb.WriteString("\nextern unsigned long get_stack_pointer(void);\n")
	for n := 1; n <= stackAlignLadder; n++ {
		fmt.Fprintf(&sb, "void TrackAlignment%d(uintptr_t* p_Alignment, p_functions_struct* FunctionArray, int Index, void *Dummy);\n", n)
	}
	sb.WriteString("int CalculateAlignment(uintptr_t alignment);\n")
	sb.WriteString("#endif // FUNCTIONS_H\n")
	return sb.String()
}

// GenerateStackAlignFunctions emits the ladder: each function allocates a
// local array of a different size and recursively calls the next through
// the table, ORing the captured stack pointer into the accumulator.
func GenerateStackAlignFunctions() string {
	var sb strings.Builder
	sb.WriteString("#include <stdio.h>\n#include <stdint.h>\n#include \"out_functions.h\"\n")
	for n := 1; n <= stackAlignLadder; n++ {
		fmt.Fprintf(&sb, `
void TrackAlignment%d(uintptr_t* p_Alignment, p_functions_struct* FunctionArray, int Index, void *Dummy) {
    char A[%d];
    *p_Alignment |=  get_stack_pointer();
    if (Index > 0) {
        FunctionArray->functions[Index-1](p_Alignment, FunctionArray, Index-1, &A[0]);
    }
}`, n, n)
	}
	sb.WriteString(`
int CalculateAlignment(uintptr_t alignment) {
    int count = 0;
    while ((alignment & 1) == 0) {
        alignment >>= 1;
        count++;
    }
    return count;
}
`)
	return sb.String()
}

// GenerateStackAlignDriver emits main: it seeds the table, walks the whole
// ladder, and prints the alignment derived from the accumulator's trailing
// zero bits.
func GenerateStackAlignDriver() string {
	var sb strings.Builder
	sb.WriteString("#include <stdio.h>\n#include <stdint.h>\n#include \"out_functions.h\"\n")
	sb.WriteString(`
int main() {
    p_functions_struct FunctionArray = {
        .functions = {
`)
	for n := 1; n <= stackAlignLadder; n++ {
		fmt.Fprintf(&sb, "            TrackAlignment%d,\n", n)
	}
	sb.WriteString(`        }
    };

    uintptr_t alignment = 0;

    int startIndex = sizeof(FunctionArray.functions) / sizeof(FunctionArray.functions[0]) - 1;
    FunctionArray.functions[startIndex](&alignment, &FunctionArray, startIndex, NULL);

    int finalAlignment = CalculateAlignment(alignment);

    printf("Stack alignment test:\n");
    printf("- Number of least significant 0 bits: %d\n", finalAlignment);
    printf("- Stack is aligned to %d bytes.\n", 1 << finalAlignment);

    return 0;
}
`)
	return sb.String()
}

// StackAlignAnalyzer observes the stack alignment. The probe's stdout is
// the summary.
type StackAlignAnalyzer struct{}

func (StackAlignAnalyzer) Name() string { return "stack_align" }

func (StackAlignAnalyzer) Analyze(r *Runner) (string, error) {
	if _, err := r.WriteFile("out_functions.h", GenerateStackAlignHeader()); err != nil {
		return "", err
	}
	stdout, err := r.Exec("stack_align", nil,
		GenerateStackAlignFunctions(), GenerateStackAlignDriver())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(stdout, "\n") + "\n", nil
}
