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
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// structBoundaryTypes are the wider types probed in stage B, after the
// char limit is known.
var structBoundaryTypes = []string{"short", "int", "long", "long long", "float", "double"}

// fpSpecialCases are the member combinations probed in stage C: per the
// RISC-V floating-point calling convention a struct of at most two
// floating-point reals may travel in separate floating-point registers
// instead of being packed.
var fpSpecialCases = [][]string{
	{"float"},
	{"double"},
	{"float", "float"},
	{"double", "double"},
	{"float", "char"},
	{"double", "char"},
	{"float", "float", "float"},
	{"float", "char", "char"},
}

// integerSubstitute returns the same-sized integer type used in the
// assignment view of the init union.
func integerSubstitute(size int) string {
	switch size {
	case 1:
		return "unsigned char"
	case 2:
		return "unsigned short"
	case 4:
		return "unsigned int"
	default:
		return "unsigned long long"
	}
}

// GenerateStructCall emits a probe passing one struct by value. When the
// struct has floating-point members the object is initialized through a
// union whose first view substitutes each floating-point member with the
// same-sized integer type: the initializer is then a compile-time constant
// and no runtime temporary register contaminates the dump.
func GenerateStructCall(target *Target, dtypes []string, argv []HexValue) string {
	hasFP := lo.Contains(dtypes, "float") || lo.Contains(dtypes, "double")

	var sb strings.Builder
	sb.WriteString("#include <stdio.h>\n")

	var members, assignMembers []string
	for i, dtype := range dtypes {
		members = append(members, fmt.Sprintf("    %s a%d;", dtype, i+1))
		sub := dtype
		if dtype == "float" || dtype == "double" {
			sub = integerSubstitute(target.TypeSize(dtype))
		}
		assignMembers = append(assignMembers, fmt.Sprintf("    %s a%d;", sub, i+1))
	}
	fmt.Fprintf(&sb, "\nstruct structType {\n%s\n};\n", strings.Join(members, "\n"))
	if hasFP {
		fmt.Fprintf(&sb, "\nstruct assignmentType {\n%s\n};\n", strings.Join(assignMembers, "\n"))
		sb.WriteString(`
union initUnion {
    struct assignmentType sA;
    struct structType sT;
};
`)
	}

	sb.WriteString("\nextern void callee(struct structType);\n")
	sb.WriteString("extern void reset_registers();\n")

	values := lo.Map(argv, func(v HexValue, _ int) string { return v.String() })
	if hasFP {
		fmt.Fprintf(&sb, `
int main (void) {
    printf("Sizeof(struct structType): %%d\n", (int)sizeof(struct structType));
    reset_registers();
    union initUnion u = { { %s } };
    callee(u.sT);

    return 0;
}
`, strings.Join(values, ", "))
	} else {
		fmt.Fprintf(&sb, `
int main (void) {
    printf("Sizeof(struct structType): %%d\n", (int)sizeof(struct structType));
    reset_registers();
    struct structType structTypeObject = { %s };
    callee(structTypeObject);

    return 0;
}
`, strings.Join(values, ", "))
	}
	return sb.String()
}

var structSizePattern = regexp.MustCompile(`Sizeof\(struct structType\): (\d+)`)

// parseStructSize extracts the probe's own sizeof(S) printf.
func parseStructSize(stdout string) (int, error) {
	match := structSizePattern.FindStringSubmatch(stdout)
	if match == nil {
		return 0, fmt.Errorf("%w: missing struct size in probe output", errProbe)
	}
	return strconv.Atoi(match[1])
}

// structIteration is the decoded observation of one struct probe.
type structIteration struct {
	sizeofS           int
	dtypes            []string
	argv              []HexValue
	passedByRef       string
	registersFill     []RegisterMatch
	registersPairs    []RegisterMatch
	registersCombined []RegisterMatch
	pairsOrder        string
}

// runStructIteration decides the struct's disposition: by-reference checks
// first (whole value, split halves, packed chunks at the address held in
// the first argument register), then the register placements.
func runStructIteration(m *Matcher, dtypes []string, argv []HexValue, sizeofS int, dump *Dump) structIteration {
	it := structIteration{sizeofS: sizeofS, dtypes: dtypes, argv: argv}

	if reg, ok := m.FindRefInStackFill(argv, dump.Banks, dump.Stack); ok {
		it.passedByRef = reg
		return it
	}
	if reg, ok := m.FindRefInStackPairs(argv, dump.Banks, dump.Stack); ok {
		it.passedByRef = reg
		return it
	}
	if reg, ok := m.FindRefInStackCombined(argv, dump.Banks, dump.Stack); ok {
		it.passedByRef = reg
		return it
	}

	it.registersFill, _ = m.FindRegistersFill(argv, dump.Banks)
	it.registersPairs, _, it.pairsOrder = m.FindRegistersPairs(argv, dump.Banks)
	it.registersCombined, _ = m.FindRegistersCombined(argv, dump.Banks)
	return it
}

// probeStruct generates, runs and decodes one struct probe.
func probeStruct(r *Runner, m *Matcher, dtypes []string, argv []HexValue) (structIteration, *Dump, error) {
	stdout, err := r.Exec("struct_boundary", nil, GenerateStructCall(r.Target, dtypes, argv))
	if err != nil {
		return structIteration{}, nil, err
	}
	dump, err := ParseDump(stdout)
	if err != nil {
		return structIteration{}, nil, fmt.Errorf("%w: %v", errProbe, err)
	}
	sizeofS, err := parseStructSize(stdout)
	if err != nil {
		return structIteration{}, nil, err
	}
	return runStructIteration(m, dtypes, argv, sizeofS, dump), dump, nil
}

// StructBoundaryAnalyzer discovers the struct argument-passing boundary in
// three stages: the char-by-char limit, the per-type confirmation with an
// appended char, and the floating-point special cases.
type StructBoundaryAnalyzer struct{}

func (StructBoundaryAnalyzer) Name() string { return "struct_boundaries" }

// analyzeCharLimit grows a struct of chars one member at a time until the
// struct is passed by reference; the last successful count is the ABI's
// struct-in-registers byte threshold.
func (StructBoundaryAnalyzer) analyzeCharLimit(r *Runner, m *Matcher, results map[string][]structIteration) (int, error) {
	charSize := r.Target.TypeSize("char")
	r.Encoder.Reset()
	for count := 1; count <= maxArgIterations; count++ {
		argv := r.Encoder.FreshList(count, charSize)
		dtypes := lo.Times(count, func(int) string { return "char" })

		it, _, err := probeStruct(r, m, dtypes, argv)
		if err != nil {
			return 0, err
		}
		results["char"] = append(results["char"], it)
		if it.passedByRef != "" {
			return count - 1, nil
		}
	}
	return 0, fmt.Errorf("%w: char limit not reached within %d members", errProbe, maxArgIterations)
}

// analyzeStructTypes probes each wider type at the predicted limit plus an
// appended char. When the predicted limit does not trigger by-reference,
// the limit is extended by one member and retried, bounded by a small cap.
func (StructBoundaryAnalyzer) analyzeStructTypes(r *Runner, m *Matcher, results map[string][]structIteration, charLimit int) error {
	bankCount := 0
	for _, dtype := range structBoundaryTypes {
		size := r.Target.TypeSize(dtype)
		if size == 0 {
			return fmt.Errorf("%w: no size for %s", errProbe, dtype)
		}
		limit := charLimit / size
		reached := false
		for !reached && limit < 10 {
			for _, extra := range [][]string{nil, {"char"}} {
				dtypes := append(lo.Times(limit, func(int) string { return dtype }), extra...)
				argv := r.Encoder.FreshListForTypes(dtypes, r.Target)

				it, dump, err := probeStruct(r, m, dtypes, argv)
				if err != nil {
					return err
				}
				bankCount = len(dump.Banks)
				results[dtype] = append(results[dtype], it)
				if it.passedByRef != "" {
					reached = true
					break
				}
			}
			limit++
		}
	}
	r.Target.SetRegisterBankCount(bankCount)
	return nil
}

// structTypeRow groups types whose placement coincides.
type structTypeRow struct {
	sizeofS int
	dtypes  []string
	regs    []string
	pairs   string
}

// placementRegisters picks the register view matching the member size
// relative to the register width: fill when equal, combined when
// narrower, pairs when wider. Doubles on a two-bank target compare
// against the floating-point bank's width.
func placementRegisters(target *Target, dtype string, it structIteration) ([]string, string) {
	regSize := target.RegisterSize("regs_bank0")
	if dtype == "double" && target.RegisterBankCount() == 2 {
		if s := target.RegisterSize("regs_bank1"); s > 0 {
			regSize = s
		}
	}
	size := target.TypeSize(dtype)
	var matches []RegisterMatch
	switch {
	case size == regSize:
		matches = it.registersFill
	case size < regSize:
		matches = it.registersCombined
	default:
		matches = it.registersPairs
	}
	regs := lo.Uniq(lo.Map(matches, func(m RegisterMatch, _ int) string { return m.Reg }))
	pairs := ""
	if size > regSize {
		pairs = it.pairsOrder
	}
	return regs, pairs
}

// summarizeBoundaries renders the threshold summary: the byte limit below
// which structs travel in registers, the by-reference register above it,
// and the per-type placements grouped by identical shape.
func summarizeBoundaries(target *Target, order []string, results map[string][]structIteration) string {
	var rows []*structTypeRow
	passedByRef := ""

	for _, dtype := range order {
		iterations := results[dtype]
		if len(iterations) < 2 {
			continue
		}
		last := iterations[len(iterations)-1]
		secondLast := iterations[len(iterations)-2]
		if last.passedByRef != "" && passedByRef == "" {
			passedByRef = last.passedByRef
		}

		regs, pairs := placementRegisters(target, dtype, secondLast)
		name := strings.ReplaceAll(dtype, " ", "_")
		merged := false
		for _, row := range rows {
			if row.sizeofS == secondLast.sizeofS && row.pairs == pairs && lo.ElementsMatch(row.regs, regs) {
				row.dtypes = append(row.dtypes, name)
				merged = true
				break
			}
		}
		if !merged {
			rows = append(rows, &structTypeRow{
				sizeofS: secondLast.sizeofS,
				dtypes:  []string{name},
				regs:    regs,
				pairs:   pairs,
			})
		}
	}

	summary := []string{"Struct argument passing test:"}
	bySize := map[int][]*structTypeRow{}
	var sizes []int
	for _, row := range rows {
		if _, ok := bySize[row.sizeofS]; !ok {
			sizes = append(sizes, row.sizeofS)
		}
		bySize[row.sizeofS] = append(bySize[row.sizeofS], row)
	}
	for _, size := range sizes {
		summary = append(summary, fmt.Sprintf("- sizeof(S) <= %d : passed in registers", size))
		summary = append(summary, fmt.Sprintf("- sizeof(S) >  %d : passed by ref: %s", size, passedByRef))
		for _, row := range bySize[size] {
			summary = append(summary, fmt.Sprintf("  - %s %s: %s",
				strings.Join(row.dtypes, " : "), row.pairs, strings.Join(row.regs, ", ")))
		}
	}
	summary = append(summary, "")
	return strings.Join(summary, "\n")
}

// analyzeSpecialCases probes the floating-point member combinations and
// reports each combination's observed placement. Skipped on targets
// without a floating-point bank.
func (StructBoundaryAnalyzer) analyzeSpecialCases(r *Runner, m *Matcher) (string, error) {
	if r.Target.RegisterBankCount() < 2 {
		return "", nil
	}
	summary := []string{"Struct floating-point special cases:"}
	for _, dtypes := range fpSpecialCases {
		r.Encoder.Reset()
		argv := r.Encoder.FreshListForTypes(dtypes, r.Target)
		it, _, err := probeStruct(r, m, dtypes, argv)
		if err != nil {
			return "", err
		}

		var placement string
		if it.passedByRef != "" {
			placement = fmt.Sprintf("passed by ref: %s", it.passedByRef)
		} else {
			var matches []RegisterMatch
			matches = append(matches, it.registersFill...)
			matches = append(matches, it.registersPairs...)
			matches = append(matches, it.registersCombined...)
			regs := lo.Uniq(lo.Map(matches, func(m RegisterMatch, _ int) string { return m.Reg }))
			if it.pairsOrder != "" {
				placement = fmt.Sprintf("passed in registers %s: %s", it.pairsOrder, strings.Join(regs, ", "))
			} else {
				placement = fmt.Sprintf("passed in registers: %s", strings.Join(regs, ", "))
			}
		}
		summary = append(summary, fmt.Sprintf("- {%s} : %s", strings.Join(dtypes, ","), placement))
	}
	summary = append(summary, "")
	return strings.Join(summary, "\n"), nil
}

func (a StructBoundaryAnalyzer) Analyze(r *Runner) (string, error) {
	if !r.Target.HasTypeDetails() {
		return "", fmt.Errorf("%w: datatypes facts not available", errProbe)
	}
	if len(r.Target.ArgumentRegisters()) == 0 {
		return "", fmt.Errorf("%w: argument registers not available", errProbe)
	}
	matcher := NewMatcher(r.Target)
	results := make(map[string][]structIteration)

	charLimit, err := a.analyzeCharLimit(r, matcher, results)
	if err != nil {
		return "", err
	}
	r.Encoder.Reset()
	if err := a.analyzeStructTypes(r, matcher, results, charLimit); err != nil {
		return "", err
	}

	order := append([]string{"char"}, structBoundaryTypes...)
	content := summarizeBoundaries(r.Target, order, results)

	special, err := a.analyzeSpecialCases(r, matcher)
	if err != nil {
		return "", err
	}
	return content + special, nil
}
