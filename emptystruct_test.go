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
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEmptyStruct(t *testing.T) {
	src := GenerateEmptyStruct(8)

	assert.Contains(t, src, "struct emptyStruct {")
	assert.Contains(t, src, "int I = 0xdead;")
	assert.Contains(t, src, "callee(S, I);")
	assert.Contains(t, src, "callee(I, S, I);")
	assert.Contains(t, src, "callee(I, I, S, I);")
	// The struct is probed at the last argument register too.
	assert.Contains(t, src, "callee(I, I, I, I, I, I, I, S, I);")
	assert.NotContains(t, src, "callee(I, I, I, I, I, I, I, I, S, I);")
}

func TestValidateEmptyStructIgnored(t *testing.T) {
	target := newTestTarget(t)

	tests := []struct {
		name  string
		bank  map[string]string
		count int
		want  bool
	}{
		{
			name:  "struct ignored, sentinel in a0",
			bank:  map[string]string{"a0": "0xdead"},
			count: 1,
			want:  true,
		},
		{
			name:  "struct ignored at position 3",
			bank:  map[string]string{"a0": "0xdead", "a1": "0xdead", "a2": "0xdead"},
			count: 3,
			want:  true,
		},
		{
			name:  "struct consumed a register",
			bank:  map[string]string{"a0": "0x0", "a1": "0xdead"},
			count: 2,
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dump := &Dump{Banks: []DumpBank{testBank(t, target, "regs_bank0", tt.bank)}}
			assert.Equal(t, tt.want, validateEmptyStructIgnored(target, dump, tt.count))
		})
	}
}

// TestEmptyStructAnalyzer drives the probe end to end against a canned
// multi-snapshot stream: snapshot k has the sentinel in the first k
// argument registers, so the struct is reported as ignored.
func TestEmptyStructAnalyzer(t *testing.T) {
	target := newTestTarget(t)

	var stream strings.Builder
	for count := 1; count <= len(target.ArgumentRegisters()); count++ {
		overrides := map[int]string{}
		for i := 0; i < count; i++ {
			overrides[10+i] = "0xdead" // a0 is bank 0 index 10
		}
		stream.WriteString(buildTestDump(fullBank(32, overrides), fullBank(32, nil), nil))
	}

	driver := &fakeDriver{tmpDir: t.TempDir(), stdout: stream.String()}
	runner, report := newTestRunner(t, driver)

	runner.RunAnalyzer(EmptyStructAnalyzer{})
	require.Len(t, report.files, 1)
	assert.Contains(t, report.files[0], "empty_struct.sum")
	content, err := os.ReadFile(report.files[0])
	require.NoError(t, err)
	assert.Equal(t, "- empty struct is ignored by C compiler.\n", string(content))
}

// A failed empty-struct run is skipped in isolation and must not disturb
// any other analyzer's summary.
func TestEmptyStructAnalyzerSkipsOnFailure(t *testing.T) {
	driver := &fakeDriver{tmpDir: t.TempDir(), status: 1}
	runner, report := newTestRunner(t, driver)

	runner.RunAnalyzer(EmptyStructAnalyzer{})
	assert.Empty(t, report.files)
}

// An unpopulated argument-register fact makes the probe fail fast.
func TestEmptyStructAnalyzerRequiresArgumentRegisters(t *testing.T) {
	driver := &fakeDriver{tmpDir: t.TempDir(), stdout: "unused"}
	runner, report := newTestRunner(t, driver)
	runner.Target = NewTarget(runner.Target.arch)

	runner.RunAnalyzer(EmptyStructAnalyzer{})
	assert.Empty(t, report.files)
	assert.Empty(t, driver.sources)
}
