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
)

// DumpBank is one register bank as parsed from the dump: the declared id,
// the register width in bytes, and one value per register in bank order.
type DumpBank struct {
	ID           string
	RegisterSize int
	Values       []HexValue
}

// StackEntry is one slot of the stack snapshot.
type StackEntry struct {
	Addr  uint64
	Value HexValue
}

// Dump is a single parsed snapshot: the header metadata, the register banks
// in declaration order, and the stack window starting at the stack pointer.
type Dump struct {
	StackPointer     uint64
	StackPointerSize int
	Banks            []DumpBank
	Stack            []StackEntry
}

// Bank returns the bank with the given id, or nil.
func (d *Dump) Bank(id string) *DumpBank {
	for i := range d.Banks {
		if d.Banks[i].ID == id {
			return &d.Banks[i]
		}
	}
	return nil
}

// SplitDumps splits a stdout stream into independent snapshots on the
// "// Done" sentinel. Probes that invoke the callee more than once produce
// one snapshot per call. A trailing section without the sentinel is kept.
func SplitDumps(content string) []string {
	var sections []string
	var current []string
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "// Done") {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
			continue
		}
		current = append(current, line)
	}
	if len(strings.TrimSpace(strings.Join(current, "\n"))) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return sections
}

// ParseDump parses one snapshot. Unknown leading noise before the
// "// Header info" marker is tolerated; everything after it must follow the
// dump grammar exactly, and a register bank section shorter than the header
// promises is a fatal parse error (the probe is aborted and skipped).
func ParseDump(content string) (*Dump, error) {
	lines := strings.Split(content, "\n")

	// Skip noise up to the header marker.
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "// Header info") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("dump: missing \"// Header info\" section")
	}
	lines = lines[start:]

	header, rest := readRawSection(lines)
	if len(header) < 3 {
		return nil, fmt.Errorf("dump: header has %d entries, want at least 3", len(header))
	}
	headerHex := func(i int) (uint64, error) {
		v, err := ParseHex(header[i])
		if err != nil {
			return 0, fmt.Errorf("dump: header entry %d: %w", i, err)
		}
		return v.Uint64(), nil
	}
	stackPointer, err := headerHex(0)
	if err != nil {
		return nil, err
	}
	stackPointerSize, err := headerHex(1)
	if err != nil {
		return nil, err
	}
	bankCountWord, err := headerHex(2)
	if err != nil {
		return nil, err
	}
	dump := &Dump{
		StackPointer:     stackPointer,
		StackPointerSize: int(stackPointerSize),
	}
	bankCount := int(bankCountWord)
	if len(header) != 3+3*bankCount {
		return nil, fmt.Errorf("dump: header has %d entries, want %d for %d banks",
			len(header), 3+3*bankCount, bankCount)
	}

	type bankInfo struct {
		id    string
		size  int
		count int
	}
	infos := make(map[string]bankInfo, bankCount)
	for i := 0; i < bankCount; i++ {
		size, err := headerHex(3 + 3*i + 1)
		if err != nil {
			return nil, err
		}
		count, err := headerHex(3 + 3*i + 2)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSpace(header[3+3*i])
		infos[id] = bankInfo{id: id, size: int(size), count: int(count)}
	}

	lines = rest
	for i := 0; i < bankCount; i++ {
		if len(lines) == 0 || !strings.HasPrefix(strings.TrimSpace(lines[0]), "// regs_bank") {
			return nil, fmt.Errorf("dump: missing register bank section %d", i)
		}
		id := strings.TrimPrefix(strings.TrimSpace(lines[0]), "// ")
		info, ok := infos[id]
		if !ok {
			return nil, fmt.Errorf("dump: bank %s not declared in header", id)
		}
		values, rest, err := readSection(lines[1:])
		if err != nil {
			return nil, fmt.Errorf("dump: bank %s: %w", id, err)
		}
		if len(values) != info.count {
			return nil, fmt.Errorf("dump: bank %s has %d values, header promises %d",
				id, len(values), info.count)
		}
		dump.Banks = append(dump.Banks, DumpBank{
			ID:           id,
			RegisterSize: info.size,
			Values:       values,
		})
		lines = rest
	}

	if len(lines) == 0 || !strings.Contains(lines[0], "// Start of stack dump") {
		// A snapshot without a stack section is legal for probes that only
		// inspect registers.
		return dump, nil
	}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			break
		}
		addrStr, valStr, ok := strings.Cut(line, " : ")
		if !ok {
			return nil, fmt.Errorf("dump: malformed stack entry %q", line)
		}
		addr, err := ParseHex(addrStr)
		if err != nil {
			return nil, fmt.Errorf("dump: stack address: %w", err)
		}
		val, err := ParseHex(valStr)
		if err != nil {
			return nil, fmt.Errorf("dump: stack value: %w", err)
		}
		entry := StackEntry{Addr: addr.Uint64(), Value: val}
		if n := len(dump.Stack); n > 0 {
			prev := dump.Stack[n-1].Addr
			if entry.Addr != prev+uint64(dump.StackPointerSize) {
				return nil, fmt.Errorf("dump: stack address 0x%x does not follow 0x%x by %d",
					entry.Addr, prev, dump.StackPointerSize)
			}
		} else if entry.Addr != dump.StackPointer {
			return nil, fmt.Errorf("dump: stack window starts at 0x%x, stack pointer is 0x%x",
				entry.Addr, dump.StackPointer)
		}
		dump.Stack = append(dump.Stack, entry)
	}
	return dump, nil
}

// readRawSection consumes lines verbatim until the next "//" marker or end
// of input, returning them and the remaining lines (marker in place). The
// header mixes hex integers with bank-id strings, so it is read raw.
func readRawSection(lines []string) ([]string, []string) {
	var out []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") {
			return out, lines[i:]
		}
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out, nil
}

// readSection consumes hex-integer lines until the next "//" marker or end
// of input, returning the parsed values and the remaining lines (with the
// marker still in place).
func readSection(lines []string) ([]HexValue, []string, error) {
	var values []HexValue
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") {
			return values, lines[i:], nil
		}
		if trimmed == "" {
			continue
		}
		v, err := ParseHex(trimmed)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, v)
	}
	return values, nil, nil
}
