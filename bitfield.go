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

// bitFieldTypes are the underlying storage types probed for bit-field
// layout.
var bitFieldTypes = []string{"char", "short", "int", "long", "long long"}

// bitFieldRounds is how many width pairs are drawn per (dtype, relation).
const bitFieldRounds = 3

// padMult4 left-pads a bit string with undefined markers to a multiple of
// four bits so it maps onto whole hex nibbles.
func padMult4(b BinaryValue) BinaryValue {
	s := string(b)
	if r := len(s) % 4; r != 0 {
		s = strings.Repeat("N", 4-r) + s
	}
	return BinaryValue(s)
}

// noExtraPadding concatenates field values bit-contiguously into the
// storage unit, the later field at the more significant positions.
func noExtraPadding(fields []BinaryValue) BinaryValue {
	var sb strings.Builder
	for i := len(fields) - 1; i >= 0; i-- {
		sb.WriteString(string(fields[i]))
	}
	return padMult4(BinaryValue(sb.String()))
}

// extendWithUndefined left-pads one field value with undefined markers to
// the storage unit's width.
func extendWithUndefined(b BinaryValue, unitBits int) BinaryValue {
	if len(b) >= unitBits {
		return b
	}
	return BinaryValue(strings.Repeat("N", unitBits-len(b)) + string(b))
}

// extraPadding pads each field (except the last) out to the full storage
// unit before the next field begins.
func extraPadding(fields []BinaryValue, unitBits int) BinaryValue {
	extended := make([]BinaryValue, len(fields))
	for i, b := range fields {
		if i < len(fields)-1 {
			extended[i] = extendWithUndefined(b, unitBits)
		} else {
			extended[i] = b
		}
	}
	return noExtraPadding(extended)
}

// littleToBigEndian reverses the byte order of a bit string. Applying it
// twice is the identity on patterns whose length is a multiple of 8.
func littleToBigEndian(b BinaryValue) BinaryValue {
	s := string(padMult4(b))
	var groups []string
	for end := len(s); end > 0; end -= 8 {
		start := end - 8
		if start < 0 {
			start = 0
		}
		groups = append(groups, s[start:end])
	}
	return BinaryValue(strings.Join(groups, ""))
}

// splitUpperLower splits a bit string at the given bit position from the
// least significant end.
func splitUpperLower(b BinaryValue, bits int) (BinaryValue, BinaryValue) {
	if len(b) <= bits {
		return "", b
	}
	return b[:len(b)-bits], b[len(b)-bits:]
}

// bitFieldCase is one generated probe: a storage type and two field widths
// whose sum is either below or above the storage unit.
type bitFieldCase struct {
	name   string
	dtype  string
	widths []int
	values []BinaryValue
}

// relation renders the probe's width relation against the unit size.
func (c bitFieldCase) relation(unitBits int) string {
	if lo.Sum(c.widths) > unitBits {
		return ">"
	}
	return "<"
}

// drawBitFieldWidths draws a width pair for one relation: ">" pairs exceed
// the unit, "<" pairs fit within it while still crossing its midpoint.
func drawBitFieldWidths(e *Encoder, unitBits int, over bool) (int, int) {
	limit := unitBits - unitBits/4
	for {
		w0 := 1 + e.rng.Intn(limit)
		w1 := 1 + e.rng.Intn(limit)
		sum := w0 + w1
		if over && sum > unitBits {
			return w0, w1
		}
		if !over && sum < unitBits && sum > unitBits/2 {
			return w0, w1
		}
	}
}

// bitFieldGenerator assembles the probe source: one union per case with
// the candidate-layout checks, and a main invoking them all.
type bitFieldGenerator struct {
	target *Target
	sb     strings.Builder
	cases  []bitFieldCase
}

func (g *bitFieldGenerator) unitBits(dtype string) int {
	return g.target.TypeSize(dtype) * 8
}

func (g *bitFieldGenerator) generateUnion(c bitFieldCase) {
	fmt.Fprintf(&g.sb, "union union_%s {\n  struct {\n", c.name)
	for i, w := range c.widths {
		fmt.Fprintf(&g.sb, "    unsigned %s x%d : %d;\n", c.dtype, i, w)
	}
	g.sb.WriteString("  } s;\n")
	fmt.Fprintf(&g.sb, " unsigned long long values[%d];\n};\n", len(c.widths))
}

// layoutCheck emits one candidate-layout if: the check fires iff the
// observed storage matches the candidate's value under its defined-bits
// mask.
func (g *bitFieldGenerator) layoutCheck(expr string, layout BinaryValue, labels ...string) {
	mask := layout.Mask()
	var prints strings.Builder
	for _, label := range labels {
		fmt.Fprintf(&prints, "        printf(\"%s\");\n", label)
	}
	fmt.Fprintf(&g.sb, `
    if ((%s & %s) == %s)
    {
%s    }
`, expr, mask.Hex(), layout.Hex(), prints.String())
}

// splitLayoutCheck emits a candidate check for layouts wider than one
// 64-bit access, compared as (lower, upper) halves.
func (g *bitFieldGenerator) splitLayoutCheck(lowerExpr, upperExpr string, layout BinaryValue, bits int, labels ...string) {
	mask := layout.Mask()
	upperVal, lowerVal := splitUpperLower(layout, bits)
	upperMask, lowerMask := splitUpperLower(mask, bits)
	var prints strings.Builder
	for _, label := range labels {
		fmt.Fprintf(&prints, "        printf(\"%s\");\n", label)
	}
	fmt.Fprintf(&g.sb, `
    if ((%s & %s) == %s &&
        (%s & %s) == %s)
    {
%s    }
`, lowerExpr, lowerMask.Hex(), lowerVal.Hex(),
		upperExpr, upperMask.Hex(), upperVal.Hex(), prints.String())
}

func (g *bitFieldGenerator) generateCalculate(c bitFieldCase) {
	fmt.Fprintf(&g.sb, "void calculate_%s (void) {\n", c.name)
	var inits []string
	for i, b := range c.values {
		inits = append(inits, fmt.Sprintf(".x%d = %s", i, b.Hex()))
	}
	fmt.Fprintf(&g.sb, "  union union_%s test = { .s = { %s } };\n", c.name, strings.Join(inits, ", "))

	unitBits := g.unitBits(c.dtype)
	fmt.Fprintf(&g.sb, "printf(\"%s:%s:\");\n", c.name, c.relation(unitBits))

	noPad := noExtraPadding(c.values)
	pad := extraPadding(c.values, unitBits)

	switch {
	case c.dtype == "char":
		// A single byte carries no byte order; only the padding question
		// is decidable for the packed layout.
		g.layoutCheck("*test.values", noPad, "No extra padding.")
		g.layoutCheck("*test.values", pad, "Extra padding.:", "Little-endian.")
		g.layoutCheck("*test.values", littleToBigEndian(pad), "Extra padding.:", "Big-endian.")
	case g.target.TypeSize(c.dtype) >= g.target.TypeSize("long long"):
		g.sb.WriteString(`
    unsigned long long lower_bits = (*(test.values + 0) & 0xFFFFFFFF);
    unsigned long long upper_bits = ((*(test.values + 0) >> 32));
`)
		g.splitLayoutCheck("lower_bits", "upper_bits", noPad, 32, "No extra padding.:", "Little-endian.")
		g.splitLayoutCheck("lower_bits", "upper_bits", littleToBigEndian(noPad), 32, "No extra padding.:", "Big-endian.")
		g.sb.WriteString(`
    lower_bits = (*(test.values + 0) & 0xFFFFFFFFFFFFFFFF);
    upper_bits = (*(test.values + 1) & 0xFFFFFFFFFFFFFFFF);
`)
		g.splitLayoutCheck("lower_bits", "upper_bits", pad, 64, "Extra padding.:", "Little-endian.")
		g.splitLayoutCheck("lower_bits", "upper_bits", littleToBigEndian(pad), 64, "Extra padding.:", "Big-endian.")
	default:
		g.layoutCheck("*test.values", noPad, "No extra padding.:", "Little-endian.")
		g.layoutCheck("*test.values", littleToBigEndian(noPad), "No extra padding.:", "Big-endian.")
		g.layoutCheck("*test.values", pad, "Extra padding.:", "Little-endian.")
		g.layoutCheck("*test.values", littleToBigEndian(pad), "Extra padding.:", "Big-endian.")
	}
	g.sb.WriteString("printf(\"\\n\");\n}\n")
}

// GenerateBitField emits the whole bit-field probe: for each storage type,
// several width pairs below and above the unit size, each initialized with
// fresh MSB-set values and printed in the four candidate encodings.
func GenerateBitField(target *Target, e *Encoder) string {
	g := &bitFieldGenerator{target: target}
	g.sb.WriteString("#include <stdio.h>\n#include <stdint.h>\n\n")

	for _, dtype := range bitFieldTypes {
		unitBits := g.unitBits(dtype)
		for round := 0; round < bitFieldRounds; round++ {
			for _, over := range []bool{true, false} {
				w0, w1 := drawBitFieldWidths(e, unitBits, over)
				c := bitFieldCase{
					name:   fmt.Sprintf("%s_%d", typeIdent(dtype), len(g.cases)),
					dtype:  dtype,
					widths: []int{w0, w1},
					values: []BinaryValue{e.FreshBinary(w0, true), e.FreshBinary(w1, true)},
				}
				g.cases = append(g.cases, c)
				g.generateUnion(c)
				g.generateCalculate(c)
			}
		}
	}

	g.sb.WriteString("int main (void) {\n")
	for _, c := range g.cases {
		fmt.Fprintf(&g.sb, "  calculate_%s();\n", c.name)
	}
	g.sb.WriteString("  return 0;\n}\n")
	return g.sb.String()
}

// bitFieldVote is one decoded probe line.
type bitFieldVote struct {
	dtype   string
	sign    string
	padding string
	endian  string
}

// parseBitFieldVotes decodes the probe's stdout lines
// ("<name>:<sign>:<padding>[:<endian>]").
func parseBitFieldVotes(stdout string) []bitFieldVote {
	var votes []bitFieldVote
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "//") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 3 {
			continue
		}
		vote := bitFieldVote{sign: fields[1], padding: fields[2]}
		if len(fields) > 3 {
			vote.endian = fields[3]
		}
		// Strip the per-case counter: "long_long_7" → "long_long".
		name := fields[0]
		if i := strings.LastIndex(name, "_"); i > 0 {
			vote.dtype = name[:i]
		} else {
			vote.dtype = name
		}
		votes = append(votes, vote)
	}
	return votes
}

// majority returns the most frequent non-empty value.
func majority(values []string) string {
	counts := lo.CountValues(lo.Filter(values, func(s string, _ int) bool { return s != "" }))
	best, bestCount := "", 0
	for v, c := range counts {
		if c > bestCount {
			best, bestCount = v, c
		}
	}
	return best
}

// summarizeBitFields aggregates the fired labels over all rounds and
// reports the majority layout, separately for the fits-in-one-unit and
// spans-two-units cases. A single observed endianness collapses into one
// trailing line.
func summarizeBitFields(votes []bitFieldVote) (string, error) {
	if len(votes) == 0 {
		return "", fmt.Errorf("%w: no bit-field observations", errProbe)
	}
	bySign := lo.GroupBy(votes, func(v bitFieldVote) string { return v.sign })
	endians := lo.Uniq(lo.FilterMap(votes, func(v bitFieldVote, _ int) (string, bool) {
		return v.endian, v.endian != ""
	}))

	summary := []string{"Bit-Field test:"}
	for _, sign := range []string{">", "<"} {
		group, ok := bySign[sign]
		if !ok {
			continue
		}
		summary = append(summary, fmt.Sprintf("- sum(bit-fields) %s sizeof(dtype)", sign))
		padding := majority(lo.Map(group, func(v bitFieldVote, _ int) string { return v.padding }))
		summary = append(summary, fmt.Sprintf("  - %s", padding))
		if len(endians) > 1 {
			endian := majority(lo.Map(group, func(v bitFieldVote, _ int) string { return v.endian }))
			summary = append(summary, fmt.Sprintf("  - %s", endian))
		}
	}
	if len(endians) == 1 {
		summary = append(summary, fmt.Sprintf("- %s", endians[0]))
	}
	summary = append(summary, "")
	return strings.Join(summary, "\n"), nil
}

// BitFieldAnalyzer discovers bit-field packing and endianness.
type BitFieldAnalyzer struct{}

func (BitFieldAnalyzer) Name() string { return "bitfield" }

func (BitFieldAnalyzer) Analyze(r *Runner) (string, error) {
	if !r.Target.HasTypeDetails() {
		return "", fmt.Errorf("%w: datatypes facts not available", errProbe)
	}
	r.Encoder.Reset()
	stdout, err := r.Exec("bitfield", nil, GenerateBitField(r.Target, r.Encoder))
	if err != nil {
		return "", err
	}
	return summarizeBitFields(parseBitFieldVotes(stdout))
}
