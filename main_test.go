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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{
			[]string{"-cc", "gcc-rv32gc-ilp32d", "-sim", "qemu-riscv32"},
			[]string{"--cc", "gcc-rv32gc-ilp32d", "--sim", "qemu-riscv32"},
		},
		{
			[]string{"--compiler", "x", "--simulator", "y", "-v"},
			[]string{"--cc", "x", "--sim", "y", "-v"},
		},
		{
			[]string{"--print-report"},
			[]string{"--print-report"},
		},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.in, " "), func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeArgs(tt.in))
		})
	}
}

func TestAnalyzerDependencyOrder(t *testing.T) {
	// datatypes must run first; argpass must precede the struct probes;
	// the remaining probes only read facts populated before them.
	index := map[string]int{}
	for i, a := range analyzers {
		index[a.Name()] = i
	}
	require.Len(t, index, len(analyzers))

	assert.Equal(t, 0, index["datatypes"])
	assert.Less(t, index["argpass"], index["empty_struct"])
	assert.Less(t, index["argpass"], index["struct_boundaries"])
	assert.Less(t, index["struct_boundaries"], index["saved"])
	assert.Less(t, index["struct_boundaries"], index["returnpass"])
	assert.Less(t, index["struct_boundaries"], index["bitfield"])
}

func TestGetArch(t *testing.T) {
	arch, err := GetArch("riscv")
	require.NoError(t, err)
	assert.Len(t, arch.Banks["regs_bank0"], 32)
	assert.Len(t, arch.Banks["regs_bank1"], 32)
	assert.Equal(t, "a0", arch.Banks["regs_bank0"][10])
	assert.Equal(t, "fa0", arch.Banks["regs_bank1"][10])

	_, err = GetArch("m68k")
	assert.Error(t, err)
}

func TestTargetFacts(t *testing.T) {
	target := newTestTarget(t)

	assert.Equal(t, 4, target.IntWidth())
	assert.Equal(t, 8, target.TypeSize("double"))
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}, target.ArgumentRegisters())
	assert.Equal(t, 4, target.RegisterSize("regs_bank0"))
	assert.Equal(t, 2, target.RegisterBankCount())
	assert.Len(t, target.AllRegisters(), 64)

	// Before datatypes runs, the reference width falls back to 4.
	fresh := NewTarget(target.arch)
	assert.Equal(t, 4, fresh.IntWidth())
	assert.False(t, fresh.HasTypeDetails())
}

func TestGenerateStackDir(t *testing.T) {
	main := GenerateStackDirMain()
	assert.Contains(t, main, "frame_main = (uintptr_t)&local;")
	assert.Contains(t, main, "Stack grows downwards.")
	assert.Contains(t, main, "Stack grows upwards.")

	a := GenerateStackDirA()
	assert.Contains(t, a, "void A(void)")
	assert.Contains(t, a, "B();")

	b := GenerateStackDirB()
	assert.Contains(t, b, "void B(void)")
	assert.NotContains(t, b, "A();")
}

func TestGenerateStackAlign(t *testing.T) {
	header := GenerateStackAlignHeader()
	assert.Contains(t, header, "extern unsigned long get_stack_pointer(void);")
	assert.Contains(t, header, "void TrackAlignment1(")
	assert.Contains(t, header, "void TrackAlignment64(")
	assert.NotContains(t, header, "void TrackAlignment65(")

	functions := GenerateStackAlignFunctions()
	assert.Contains(t, functions, "char A[1];")
	assert.Contains(t, functions, "char A[64];")
	assert.Contains(t, functions, "*p_Alignment |=  get_stack_pointer();")
	assert.Contains(t, functions, "int CalculateAlignment(uintptr_t alignment)")

	driver := GenerateStackAlignDriver()
	assert.Contains(t, driver, "TrackAlignment64,")
	assert.Contains(t, driver, "Stack alignment test:")
	assert.Contains(t, driver, "1 << finalAlignment")
}

func TestGenerateEndianness(t *testing.T) {
	src := GenerateEndianness()
	assert.Contains(t, src, "0x01020304")
	assert.Contains(t, src, "Little-endian.")
	assert.Contains(t, src, "Big-endian.")
}
