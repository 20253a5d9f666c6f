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

// GenerateEndianness emits the byte-order probe: a multi-byte integer is
// written and its first byte in memory order decides the answer.
func GenerateEndianness() string {
	return `#include <stdio.h>

int main(void) {
    unsigned int value = 0x01020304;
    unsigned char *bytes = (unsigned char *)&value;

    printf("Endianness test:\n");
    if (bytes[0] == 0x04) {
        printf("- Little-endian.\n");
    } else if (bytes[0] == 0x01) {
        printf("- Big-endian.\n");
    } else {
        printf("- Unknown byte order.\n");
    }
    return 0;
}
`
}

// EndiannessAnalyzer observes the target's byte order. The probe's stdout
// is the summary.
type EndiannessAnalyzer struct{}

func (EndiannessAnalyzer) Name() string { return "endianness" }

func (EndiannessAnalyzer) Analyze(r *Runner) (string, error) {
	stdout, err := r.Exec("endianness", nil, GenerateEndianness())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(stdout, "\n") + "\n", nil
}
