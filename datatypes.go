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
	"sort"
	"strconv"
	"strings"
)

// fundamentalTypes are probed in this order throughout the framework.
var fundamentalTypes = []string{
	"char",
	"signed char",
	"unsigned char",
	"short",
	"int",
	"long",
	"long long",
	"void*",
	"float",
	"double",
	"long double",
}

// typeIdent turns a C type name into an identifier fragment.
func typeIdent(t string) string {
	return strings.ReplaceAll(strings.ReplaceAll(t, " ", "_"), "*", "")
}

// GenerateDatatypes emits the type-details probe. For each fundamental
// type T it declares a { char; T } struct so the offset of the member from
// the dummy char yields T's alignment, plus struct and union wrappers for
// the aggregate variants. Signedness is observed by assigning -1 (omitted
// for void*: some compilers reject the assignment).
func GenerateDatatypes() string {
	var sb strings.Builder
	sb.WriteString(`
#include <stdio.h>
#include <stdint.h>

void print_info(const char *datatype, int signedness, size_t size, uintptr_t theOffset) {
   printf("%-20s: signedness: %d, size: %zu, align: %zu\n", datatype, signedness, size, (size_t)theOffset);
}

`)
	for i, t := range fundamentalTypes {
		ident := typeIdent(t)
		fmt.Fprintf(&sb, "struct struct_%s {\n  %s theType;\n};\n", ident, t)
		fmt.Fprintf(&sb, "struct StructType%d {\n  char dummy;\n  struct struct_%s theType;\n} theStructTypeObject%d;\n\n", i, ident, i)
	}
	for i, t := range fundamentalTypes {
		ident := typeIdent(t)
		fmt.Fprintf(&sb, "union union_%s {\n  char dummy;\n  %s theType;\n};\n", ident, t)
		fmt.Fprintf(&sb, "struct UnionType%d {\n  char dummy;\n  union union_%s theType;\n} theUnionTypeObject%d;\n\n", i, ident, i)
	}
	for i, t := range fundamentalTypes {
		fmt.Fprintf(&sb, "struct Type%d {\n  char dummy;\n  %s theType;\n} theTypeObject%d;\n\n", i, t, i)
	}

	sb.WriteString("void analyzeTypesUsingGlobals() {\n")
	for i, t := range fundamentalTypes {
		if t != "void*" {
			fmt.Fprintf(&sb, "  theTypeObject%d.theType = -1;\n", i)
			fmt.Fprintf(&sb, "  print_info(\"%s\", theTypeObject%d.theType == -1, sizeof(%s), (uintptr_t)&theTypeObject%d.theType-(uintptr_t)&theTypeObject%d.dummy);\n", t, i, t, i, i)
		} else {
			fmt.Fprintf(&sb, "  print_info(\"%s\", 0, sizeof(%s), (uintptr_t)&theTypeObject%d.theType-(uintptr_t)&theTypeObject%d.dummy);\n", t, t, i, i)
		}
	}
	for i, t := range fundamentalTypes {
		ident := typeIdent(t)
		fmt.Fprintf(&sb, "  print_info(\"struct %s\", 0, sizeof(struct struct_%s), (uintptr_t)&theStructTypeObject%d.theType-(uintptr_t)&theStructTypeObject%d.dummy);\n", ident, ident, i, i)
	}
	for i, t := range fundamentalTypes {
		ident := typeIdent(t)
		fmt.Fprintf(&sb, "  print_info(\"union %s\", 0, sizeof(union union_%s), (uintptr_t)&theUnionTypeObject%d.theType-(uintptr_t)&theUnionTypeObject%d.dummy);\n", ident, ident, i, i)
	}
	sb.WriteString("}\n")

	sb.WriteString(`
int main() {
  analyzeTypesUsingGlobals();
}
`)
	return sb.String()
}

var typeInfoPattern = regexp.MustCompile(`(\w[\w*\s]+?)\s*:\s+signedness:\s+(\d),\s+size:\s+(\d+),\s+align:\s+(\d+)`)

// ParseTypeInfo extracts the per-type facts from the probe's stdout. Keys
// are the printed names: bare type names plus "struct X" / "union X"
// entries for the aggregate variants.
func ParseTypeInfo(content string) (map[string]TypeDetail, error) {
	details := make(map[string]TypeDetail)
	for _, match := range typeInfoPattern.FindAllStringSubmatch(content, -1) {
		signedness, _ := strconv.Atoi(match[2])
		size, _ := strconv.Atoi(match[3])
		align, _ := strconv.Atoi(match[4])
		details[strings.TrimSpace(match[1])] = TypeDetail{
			Size:       size,
			Align:      align,
			Signedness: signedness,
		}
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("%w: no type information in probe output", errProbe)
	}
	return details, nil
}

// summarizeDatatypes renders the seven summary tables: size, align and
// signedness for the bare types, then the struct and union variants,
// each table's rows sorted by key.
func summarizeDatatypes(content string) (string, error) {
	type row struct {
		key   int
		types []string
	}
	categories := map[string]map[int][]string{
		"size": {}, "align": {},
		"struct size": {}, "struct align": {},
		"union size": {}, "union align": {},
	}
	var signed []string

	for _, match := range typeInfoPattern.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		signedness := match[2]
		size, _ := strconv.Atoi(match[3])
		align, _ := strconv.Atoi(match[4])

		var prefix, base string
		switch {
		case strings.HasPrefix(name, "struct "):
			prefix, base = "struct", strings.TrimPrefix(name, "struct ")
		case strings.HasPrefix(name, "union "):
			prefix, base = "union", strings.TrimPrefix(name, "union ")
		default:
			base = name
		}

		if prefix != "" {
			categories[prefix+" size"][size] = append(categories[prefix+" size"][size], base)
			categories[prefix+" align"][align] = append(categories[prefix+" align"][align], base)
			continue
		}
		categories["size"][size] = append(categories["size"][size], base)
		categories["align"][align] = append(categories["align"][align], base)
		if signedness == "1" {
			signed = append(signed, base)
		}
	}
	if len(categories["size"]) == 0 {
		return "", fmt.Errorf("%w: no type information in probe output", errProbe)
	}

	var sb strings.Builder
	for _, key := range []string{"size", "align", "signedness", "struct size", "struct align", "union size", "union align"} {
		fmt.Fprintf(&sb, "Datatype %s test:\n", key)
		if key == "signedness" {
			fmt.Fprintf(&sb, " - %s\n", strings.Join(signed, " : "))
			sb.WriteString("\n")
			continue
		}
		var rows []row
		for k, types := range categories[key] {
			rows = append(rows, row{key: k, types: types})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })
		for _, r := range rows {
			fmt.Fprintf(&sb, " - %d: %s\n", r.key, strings.Join(r.types, " : "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}

// DataTypesAnalyzer discovers the fundamental type details and publishes
// them as the target facts all later probes require.
type DataTypesAnalyzer struct{}

func (DataTypesAnalyzer) Name() string { return "datatypes" }

func (DataTypesAnalyzer) Analyze(r *Runner) (string, error) {
	stdout, err := r.Exec("datatypes", nil, GenerateDatatypes())
	if err != nil {
		return "", err
	}
	details, err := ParseTypeInfo(stdout)
	if err != nil {
		return "", err
	}
	r.Target.SetTypeDetails(details)
	return summarizeDatatypes(stdout)
}
