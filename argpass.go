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

// argPassTypes are the datatypes the argument-passing probe iterates.
var argPassTypes = []string{"char", "short", "int", "long", "long long", "float", "double"}

// maxArgIterations caps the per-type growth loop.
const maxArgIterations = 20

// GenerateArgPass emits one argument-passing probe: a call to an extern
// callee with argc sentinels of one type. Sentinels are integer literals;
// float and double arguments go through memcpy-based converters so the
// call site receives the exact bit pattern at the ABI register (a float
// literal would be rounded by the compiler).
func GenerateArgPass(dtype string, argv []HexValue) string {
	var sb strings.Builder
	switch dtype {
	case "double":
		sb.WriteString("#include <string.h>\n")
		sb.WriteString(`
inline static double ull_as_double(unsigned long long lhs) {
    double result;
    memcpy(&result, &lhs, sizeof(result));
    return result;
}
`)
	case "float":
		sb.WriteString("#include <string.h>\n")
		sb.WriteString(`
inline static float int_as_float(unsigned int lhs) {
    float result;
    memcpy(&result, &lhs, sizeof(result));
    return result;
}
`)
	}

	types := make([]string, len(argv))
	args := make([]string, len(argv))
	for i, v := range argv {
		types[i] = dtype
		switch dtype {
		case "double":
			args[i] = fmt.Sprintf("ull_as_double(%s)", v)
		case "float":
			args[i] = fmt.Sprintf("int_as_float(%s)", v)
		default:
			args[i] = v.String()
		}
	}
	fmt.Fprintf(&sb, `
extern void callee(%s);

int main(void) {
    callee(%s);
}
`, strings.Join(types, ", "), strings.Join(args, ", "))
	return sb.String()
}

// argIteration is the decoded observation of one (dtype, argc) probe.
type argIteration struct {
	argc            int
	registers       []RegisterMatch
	pairsOrder      string
	valueInStack    bool
	inconsistencies []Inconsistency
}

// runArgIteration decodes one dump: whole sentinels in registers, split
// halves for wider-than-register values, then the stack — the probe stops
// growing once a sentinel lands there.
func runArgIteration(m *Matcher, argc int, argv []HexValue, dump *Dump) argIteration {
	it := argIteration{argc: argc}

	fill, inc := m.FindRegistersFill(argv, dump.Banks)
	it.registers = fill
	it.inconsistencies = inc

	pairs, pairInc, order := m.FindRegistersPairs(argv, dump.Banks)
	it.registers = append(it.registers, pairs...)
	it.inconsistencies = append(it.inconsistencies, pairInc...)
	it.pairsOrder = order

	addrs, stackInc := m.FindValueInStack(it.registers, argv, dump.Stack)
	if len(addrs) == 0 {
		addrs, stackInc = m.FindValuePairsInStack(it.registers, argv, dump.Stack)
	}
	it.valueInStack = len(addrs) > 0
	it.inconsistencies = append(it.inconsistencies, stackInc...)
	return it
}

// argRow is one flattened iteration row (pipeline stage 1 output).
type argRow struct {
	dtypes          []string
	argc            int
	regs            []string
	order           string
	stack           bool
	inconsistencies []Inconsistency
}

// argGroup merges contiguous iterations with the same shape (stage 2).
type argGroup struct {
	args            []int
	regs            []string
	order           string
	stack           bool
	inconsistencies []Inconsistency
}

// argpassStage1 flattens the per-type iteration lists into rows, dropping
// registers already reported by an earlier iteration of the same type: the
// register set across iterations is a prefix of one totally-ordered
// sequence, so each row carries only the newly-occupied registers.
func argpassStage1(order []string, results map[string][]argIteration) []argRow {
	var rows []argRow
	for _, dtype := range order {
		seen := map[string]struct{}{}
		for _, it := range results[dtype] {
			var regs []string
			for _, match := range it.registers {
				if _, dup := seen[match.Reg]; !dup {
					regs = append(regs, match.Reg)
				}
			}
			rows = append(rows, argRow{
				dtypes:          []string{strings.ReplaceAll(dtype, " ", "_")},
				argc:            it.argc,
				regs:            regs,
				order:           it.pairsOrder,
				stack:           it.valueInStack,
				inconsistencies: it.inconsistencies,
			})
			for _, match := range it.registers {
				seen[match.Reg] = struct{}{}
			}
		}
	}
	return rows
}

// argpassStage2 groups each type's rows by (pair order, stack) so
// contiguous iterations with the same disposition collapse into one entry.
func argpassStage2(rows []argRow) ([]string, map[string][]*argGroup) {
	var order []string
	grouped := make(map[string][]*argGroup)
	for _, row := range rows {
		key := strings.Join(row.dtypes, " ")
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		merged := false
		for _, g := range grouped[key] {
			if g.order == row.order && g.stack == row.stack {
				g.args = append(g.args, row.argc)
				g.regs = append(g.regs, row.regs...)
				g.inconsistencies = append(g.inconsistencies, row.inconsistencies...)
				merged = true
				break
			}
		}
		if !merged {
			grouped[key] = append(grouped[key], &argGroup{
				args:            []int{row.argc},
				regs:            row.regs,
				order:           row.order,
				stack:           row.stack,
				inconsistencies: row.inconsistencies,
			})
		}
	}
	return order, grouped
}

// argGroupsEqual compares two types' grouped dispositions.
func argGroupsEqual(a, b []*argGroup) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].order != b[i].order || a[i].stack != b[i].stack {
			return false
		}
		if !lo.ElementsMatch(a[i].args, b[i].args) || !lo.ElementsMatch(a[i].regs, b[i].regs) {
			return false
		}
	}
	return true
}

// argpassStage3 merges types whose register-set and stack behavior
// coincide into a single table row.
func argpassStage3(order []string, grouped map[string][]*argGroup) ([]string, map[string][]*argGroup) {
	var mergedOrder []string
	merged := make(map[string][]*argGroup)
	for _, dtype := range order {
		matched := ""
		for _, existing := range mergedOrder {
			if argGroupsEqual(merged[existing], grouped[dtype]) {
				matched = existing
				break
			}
		}
		if matched != "" {
			combined := matched + " " + dtype
			merged[combined] = merged[matched]
			delete(merged, matched)
			for i, k := range mergedOrder {
				if k == matched {
					mergedOrder[i] = combined
				}
			}
			continue
		}
		merged[dtype] = grouped[dtype]
		mergedOrder = append(mergedOrder, dtype)
	}
	return mergedOrder, merged
}

// intRange collapses a contiguous run like [1 2 3] into "1-3".
func intRange(n []int) string {
	if len(n) == 1 {
		return fmt.Sprintf("%d", n[0])
	}
	contiguous := true
	for i := 0; i+1 < len(n); i++ {
		if n[i]+1 != n[i+1] {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("%d-%d", n[0], n[len(n)-1])
	}
	parts := lo.Map(n, func(x int, _ int) string { return fmt.Sprintf("%d", x) })
	return strings.Join(parts, ", ")
}

// argpassStage4 renders the summary.
func argpassStage4(order []string, grouped map[string][]*argGroup) string {
	lines := []string{"Argument passing test:"}
	for _, key := range order {
		lines = append(lines, fmt.Sprintf("- %s", strings.Join(strings.Fields(key), " : ")))

		var inconsistencies []Inconsistency
		for _, g := range grouped[key] {
			inconsistencies = append(inconsistencies, g.inconsistencies...)

			var regsStr string
			if g.stack {
				regsStr = "[stack]"
			} else if g.order != "" {
				var pairs []string
				for i := 0; i+1 < len(g.regs); i += 2 {
					pairs = append(pairs, fmt.Sprintf("[%s, %s]", g.regs[i], g.regs[i+1]))
				}
				regsStr = strings.Join(pairs, " ")
			} else {
				regsStr = strings.Join(g.regs, " ")
			}
			lines = append(lines, fmt.Sprintf(" - args %-3s %s: %s", intRange(g.args), g.order, regsStr))
		}
		if len(inconsistencies) > 0 {
			lines = append(lines, formatInconsistencies(inconsistencies))
		}
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// ArgPassAnalyzer grows per-type call sites one argument at a time until a
// sentinel spills to the stack, then summarizes the register sequences and
// thresholds. The int type's final iteration also yields the
// argument-register sequence fact consumed by the struct probes.
type ArgPassAnalyzer struct{}

func (ArgPassAnalyzer) Name() string { return "argpass" }

func (ArgPassAnalyzer) Analyze(r *Runner) (string, error) {
	if !r.Target.HasTypeDetails() {
		return "", fmt.Errorf("%w: datatypes facts not available", errProbe)
	}
	matcher := NewMatcher(r.Target)
	results := make(map[string][]argIteration)

	for _, dtype := range argPassTypes {
		size := r.Target.TypeSize(dtype)
		if size == 0 {
			return "", fmt.Errorf("%w: no size for %s", errProbe, dtype)
		}
		var last argIteration
		for argc := 1; argc <= maxArgIterations; argc++ {
			r.Encoder.Reset()
			argv := r.Encoder.FreshList(argc, size)

			stdout, err := r.Exec("argpass", nil, GenerateArgPass(dtype, argv))
			if err != nil {
				return "", err
			}
			dump, err := ParseDump(stdout)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errProbe, err)
			}
			for _, bank := range dump.Banks {
				r.Target.SetRegisterSize(bank.ID, bank.RegisterSize)
			}

			last = runArgIteration(matcher, argc, argv, dump)
			results[dtype] = append(results[dtype], last)
			if last.valueInStack {
				break
			}
		}

		if dtype == "int" {
			regs := lo.Uniq(lo.Map(last.registers, func(m RegisterMatch, _ int) string { return m.Reg }))
			r.Target.SetArgumentRegisters(regs)
		}
	}

	rows := argpassStage1(argPassTypes, results)
	order, grouped := argpassStage2(rows)
	order, grouped = argpassStage3(order, grouped)
	return argpassStage4(order, grouped), nil
}
