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

// GenerateReturnPass emits the return-register probe for one type:
//
//	main (.c) → foo (.s) → bar (.c, returns the sentinel) → callee (.s, dumps)
//
// The assembly wrappers preserve the return register(s) exactly, so the
// dump taken in callee still shows the sentinel where bar's return left it.
func GenerateReturnPass(dtype string, value HexValue) string {
	var sb strings.Builder
	ret := value.String()
	switch dtype {
	case "float":
		sb.WriteString("#include <string.h>\n")
		sb.WriteString(`
inline static float ul_as_float(unsigned long lhs)
{
    float result;
    memcpy(&result, &lhs, sizeof(float));
    return result;
}
`)
		ret = fmt.Sprintf("ul_as_float(%s)", value)
	case "double":
		sb.WriteString("#include <string.h>\n")
		sb.WriteString(`
inline static double ull_as_double(unsigned long long lhs)
{
    double result;
    memcpy(&result, &lhs, sizeof(double));
    return result;
}
`)
		ret = fmt.Sprintf("ull_as_double(%s)", value)
	}

	sb.WriteString("extern void foo (void);\n")
	fmt.Fprintf(&sb, `
%s bar (void) {
    return %s;
}

int main (void) {
    foo ();
    return 0;
}
`, dtype, ret)
	return sb.String()
}

// returnObservation is the decoded register placement of one return value.
type returnObservation struct {
	fill       []string
	pairs      []string
	pairsOrder string
}

// runReturnTest locates the sentinel by fill and pair-split only: return
// values are never packed and never by-reference at these widths.
func runReturnTest(m *Matcher, value HexValue, dump *Dump) returnObservation {
	fill, _ := m.FindRegistersFill([]HexValue{value}, dump.Banks)
	pairs, _, order := m.FindRegistersPairs([]HexValue{value}, dump.Banks)
	return returnObservation{
		fill:       lo.Map(fill, func(m RegisterMatch, _ int) string { return m.Reg }),
		pairs:      lo.Map(pairs, func(m RegisterMatch, _ int) string { return m.Reg }),
		pairsOrder: order,
	}
}

// summarizeReturns groups types by the register tuple carrying their
// return value.
func summarizeReturns(order []string, results map[string]returnObservation) string {
	type group struct {
		regs   []string
		paired bool
		dtypes []string
	}
	var groups []*group
	pairsOrder := ""

	for _, dtype := range order {
		obs := results[dtype]
		if pairsOrder == "" {
			pairsOrder = obs.pairsOrder
		}
		var regs []string
		paired := false
		switch {
		case len(obs.fill) > 0 && len(obs.pairs) == 0:
			regs = obs.fill
		case len(obs.pairs) > 0 && len(obs.fill) == 0:
			regs = obs.pairs
			paired = true
		}
		name := strings.ReplaceAll(dtype, " ", "_")
		merged := false
		for _, g := range groups {
			if g.paired == paired && lo.ElementsMatch(g.regs, regs) {
				g.dtypes = append(g.dtypes, name)
				merged = true
				break
			}
		}
		if !merged {
			groups = append(groups, &group{regs: regs, paired: paired, dtypes: []string{name}})
		}
	}

	summary := []string{"Return registers:"}
	for _, g := range groups {
		summary = append(summary, fmt.Sprintf("- %s", strings.Join(g.dtypes, " : ")))
		switch {
		case len(g.regs) == 0:
			summary = append(summary, " - passed in registers: None")
		case g.paired:
			summary = append(summary, fmt.Sprintf(" - passed in registers %s: %s", pairsOrder, strings.Join(g.regs, ", ")))
		default:
			summary = append(summary, fmt.Sprintf(" - passed in registers: %s", strings.Join(g.regs, ", ")))
		}
	}
	summary = append(summary, "")
	return strings.Join(summary, "\n")
}

// ReturnPassAnalyzer discovers the return-value register(s) per type.
type ReturnPassAnalyzer struct{}

func (ReturnPassAnalyzer) Name() string { return "returnpass" }

func (ReturnPassAnalyzer) Analyze(r *Runner) (string, error) {
	if !r.Target.HasTypeDetails() {
		return "", fmt.Errorf("%w: datatypes facts not available", errProbe)
	}
	matcher := NewMatcher(r.Target)
	results := make(map[string]returnObservation)

	for _, dtype := range argPassTypes {
		size := r.Target.TypeSize(dtype)
		if size == 0 {
			return "", fmt.Errorf("%w: no size for %s", errProbe, dtype)
		}
		r.Encoder.Reset()
		value := r.Encoder.Fresh(size)

		stdout, err := r.Exec("returnpass", []string{"src/arch/riscv2.S"}, GenerateReturnPass(dtype, value))
		if err != nil {
			return "", err
		}
		dump, err := ParseDump(stdout)
		if err != nil {
			return "", fmt.Errorf("%w: %v", errProbe, err)
		}
		results[dtype] = runReturnTest(matcher, value, dump)
	}
	return summarizeReturns(argPassTypes, results), nil
}
