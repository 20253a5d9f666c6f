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

import "strings"

// GenerateStackDirMain emits the driver translation unit of the stack
// direction probe. The frame addresses are recorded by three separately
// compiled functions so the compiler cannot flatten the call chain.
func GenerateStackDirMain() string {
	return `#include <stdio.h>
#include <stdint.h>

extern void A(void);
uintptr_t frame_main, frame_A, frame_B;

int main(void) {
    int local;
    frame_main = (uintptr_t)&local;
    A();
    printf("Stack direction test:\n");
    if (frame_main > frame_A && frame_A > frame_B) {
        printf("- Stack grows downwards.\n");
    } else if (frame_main < frame_A && frame_A < frame_B) {
        printf("- Stack grows upwards.\n");
    } else {
        printf("- Stack direction inconclusive.\n");
    }
    return 0;
}
`
}

// GenerateStackDirA emits the middle frame of the chain.
func GenerateStackDirA() string {
	return `#include <stdint.h>

extern void B(void);
extern uintptr_t frame_A;

void A(void) {
    int local;
    frame_A = (uintptr_t)&local;
    B();
}
`
}

// GenerateStackDirB emits the deepest frame of the chain.
func GenerateStackDirB() string {
	return `#include <stdint.h>

extern uintptr_t frame_B;

void B(void) {
    int local;
    frame_B = (uintptr_t)&local;
}
`
}

// StackDirAnalyzer observes the stack growth direction from the relative
// order of three nested frame addresses. The probe's stdout is the summary.
type StackDirAnalyzer struct{}

func (StackDirAnalyzer) Name() string { return "stack_dir" }

func (StackDirAnalyzer) Analyze(r *Runner) (string, error) {
	stdout, err := r.Exec("stack_dir", nil,
		GenerateStackDirMain(), GenerateStackDirA(), GenerateStackDirB())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(stdout, "\n") + "\n", nil
}
