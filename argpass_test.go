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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateArgPass(t *testing.T) {
	argv := []HexValue{mustHex("0x1234"), mustHex("0x5678")}

	src := GenerateArgPass("int", argv)
	assert.Contains(t, src, "extern void callee(int, int);")
	assert.Contains(t, src, "callee(0x1234, 0x5678);")
	assert.NotContains(t, src, "memcpy")

	src = GenerateArgPass("double", argv)
	assert.Contains(t, src, "ull_as_double(0x1234)")
	assert.Contains(t, src, "memcpy")

	src = GenerateArgPass("float", argv)
	assert.Contains(t, src, "int_as_float(0x1234)")
}

// intIterations models the int probe on RV32: iterations 1-8 fill a0-a7,
// iteration 9 spills to the stack.
func intIterations() []argIteration {
	argRegs := []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	var iterations []argIteration
	for argc := 1; argc <= 9; argc++ {
		it := argIteration{argc: argc}
		for i := 0; i < argc && i < 8; i++ {
			it.registers = append(it.registers, RegisterMatch{Reg: argRegs[i], Value: mustHex("0x1111")})
		}
		if argc == 9 {
			it.valueInStack = true
		}
		iterations = append(iterations, it)
	}
	return iterations
}

// doubleIterations models the double probe on ILP32D: iterations 1-8 fill
// fa0-fa7, 9-12 pair into a0-a7 with [low, high] order, 13 spills.
func doubleIterations() []argIteration {
	faRegs := []string{"fa0", "fa1", "fa2", "fa3", "fa4", "fa5", "fa6", "fa7"}
	aRegs := []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	var iterations []argIteration
	for argc := 1; argc <= 13; argc++ {
		it := argIteration{argc: argc}
		for i := 0; i < argc && i < 8; i++ {
			it.registers = append(it.registers, RegisterMatch{Reg: faRegs[i], Value: mustHex("0x1111111122222222")})
		}
		if argc > 8 {
			it.pairsOrder = "[low, high]"
			pairs := argc - 8
			if pairs > 4 {
				pairs = 4
			}
			for i := 0; i < pairs*2; i++ {
				it.registers = append(it.registers, RegisterMatch{Reg: aRegs[i], Value: mustHex("0x11111111")})
			}
		}
		if argc == 13 {
			it.valueInStack = true
		}
		iterations = append(iterations, it)
	}
	return iterations
}

func TestArgpassStage1PrefixProperty(t *testing.T) {
	results := map[string][]argIteration{"int": intIterations()}
	rows := argpassStage1([]string{"int"}, results)
	require.Len(t, rows, 9)

	// Each row carries only the newly occupied registers: the union across
	// iterations is a prefix of one totally-ordered sequence.
	var sequence []string
	for _, row := range rows {
		sequence = append(sequence, row.regs...)
	}
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}, sequence)
	assert.Len(t, rows[0].regs, 1)
	assert.Len(t, rows[1].regs, 1)
	assert.True(t, rows[8].stack)
	assert.Empty(t, rows[8].regs)
}

func TestArgpassStage2Groups(t *testing.T) {
	results := map[string][]argIteration{"int": intIterations()}
	order, grouped := argpassStage2(argpassStage1([]string{"int"}, results))
	require.Equal(t, []string{"int"}, order)
	groups := grouped["int"]
	require.Len(t, groups, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, groups[0].args)
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}, groups[0].regs)
	assert.False(t, groups[0].stack)
	assert.Equal(t, []int{9}, groups[1].args)
	assert.True(t, groups[1].stack)
}

func TestArgpassStage3MergesIdenticalTypes(t *testing.T) {
	results := map[string][]argIteration{
		"char": intIterations(),
		"int":  intIterations(),
	}
	order, grouped := argpassStage2(argpassStage1([]string{"char", "int"}, results))
	order, grouped = argpassStage3(order, grouped)
	require.Equal(t, []string{"char int"}, order)
	require.Len(t, grouped["char int"], 2)
}

func TestArgpassSummaryScenario(t *testing.T) {
	results := map[string][]argIteration{
		"char":   intIterations(),
		"int":    intIterations(),
		"double": doubleIterations(),
	}
	rows := argpassStage1([]string{"char", "int", "double"}, results)
	order, grouped := argpassStage2(rows)
	order, grouped = argpassStage3(order, grouped)
	summary := argpassStage4(order, grouped)

	assert.Contains(t, summary, "Argument passing test:")
	assert.Contains(t, summary, "- char : int")
	assert.Contains(t, summary, " - args 1-8 : a0 a1 a2 a3 a4 a5 a6 a7")
	assert.Contains(t, summary, " - args 9   : [stack]")
	assert.Contains(t, summary, "- double")
	assert.Contains(t, summary, " - args 1-8 : fa0 fa1 fa2 fa3 fa4 fa5 fa6 fa7")
	assert.Contains(t, summary, "[low, high]: [a0, a1] [a2, a3] [a4, a5] [a6, a7]")
	assert.Contains(t, summary, " - args 13  [low, high]: [stack]")
}

func TestIntRange(t *testing.T) {
	tests := []struct {
		in   []int
		want string
	}{
		{[]int{1, 2, 3, 4, 5, 6, 7, 8}, "1-8"},
		{[]int{9}, "9"},
		{[]int{1, 3, 5}, "1, 3, 5"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, intRange(tt.in))
		})
	}
}

func TestRunArgIteration(t *testing.T) {
	target := newTestTarget(t)
	matcher := NewMatcher(target)

	argv := []HexValue{mustHex("0x1a2b3c4d"), mustHex("0x5e6f7a8b")}
	dump := &Dump{
		Banks: []DumpBank{testBank(t, target, "regs_bank0", map[string]string{
			"a0": "0x1a2b3c4d",
			"a1": "0x5e6f7a8b",
		})},
	}
	it := runArgIteration(matcher, 2, argv, dump)
	assert.Equal(t, []string{"a0", "a1"}, regNames(it.registers))
	assert.False(t, it.valueInStack)

	// The newest sentinel in the stack flips the stop flag.
	dump.Stack = []StackEntry{{Addr: 0x3ff0, Value: mustHex("0x5e6f7a8b")}}
	it = runArgIteration(matcher, 2, argv, dump)
	assert.True(t, it.valueInStack)
}

func TestRunArgIterationPairSplit(t *testing.T) {
	target := newTestTarget(t)
	matcher := NewMatcher(target)

	value := mustHex("0x1234567890abcdef")
	dump := &Dump{
		Banks: []DumpBank{testBank(t, target, "regs_bank0", map[string]string{
			"a0": "0x90abcdef",
			"a1": "0x12345678",
		})},
	}
	it := runArgIteration(matcher, 1, []HexValue{value}, dump)
	assert.Equal(t, "[low, high]", it.pairsOrder)
	assert.ElementsMatch(t, []string{"a0", "a1"}, regNames(it.registers))
}

func TestArgpassStage4WarningLine(t *testing.T) {
	grouped := map[string][]*argGroup{
		"int": {{
			args:            []int{1},
			regs:            []string{"a0"},
			inconsistencies: []Inconsistency{{"t0", "a0"}},
		}},
	}
	summary := argpassStage4([]string{"int"}, grouped)
	assert.Contains(t, summary, fmt.Sprintf(" - WARNING: multiple value occurrences detected in %s", "(t0, a0)"))
}

func TestGenerateArgPassArity(t *testing.T) {
	argv := []HexValue{mustHex("0x11"), mustHex("0x22"), mustHex("0x33")}
	src := GenerateArgPass("char", argv)
	assert.Equal(t, 1, strings.Count(src, "extern void callee"))
	assert.Contains(t, src, "callee(0x11, 0x22, 0x33);")
	assert.Contains(t, src, "char, char, char")
}
