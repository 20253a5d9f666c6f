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

import "fmt"

// RegisterMatch records that a register was observed holding a sentinel
// (whole, a split half, or a packed chunk). Matches are kept in discovery
// order: the summaries depend on it.
type RegisterMatch struct {
	Reg   string
	Value HexValue
}

// Inconsistency lists the locations a single sentinel was found at when it
// appeared more than once: a compiler-generated intermediate cannot be
// distinguished from the ABI-placed copy. Reported as a warning, not a
// failure.
type Inconsistency []string

// Matcher locates sentinels in register banks and the stack window. The
// reference int width and the register name catalog come from the target.
type Matcher struct {
	target *Target
}

// NewMatcher returns a matcher bound to a target model.
func NewMatcher(target *Target) *Matcher {
	return &Matcher{target: target}
}

// matchesRegister reports whether a parsed register (or stack) value holds
// the sentinel directly, zero-extended or sign-extended to the parsed width.
func matchesRegister(regValue, v HexValue) bool {
	return regValue.Equal(v) ||
		regValue.Equal(v.ZeroExtend(regValue.Width())) ||
		regValue.Equal(v.SignExtend(regValue.Width()))
}

// FindRegistersFill locates each whole sentinel in the register banks.
func (m *Matcher) FindRegistersFill(argv []HexValue, banks []DumpBank) ([]RegisterMatch, []Inconsistency) {
	var matches []RegisterMatch
	var inconsistencies []Inconsistency

	for _, v := range argv {
		var tmp Inconsistency
		for _, bank := range banks {
			names := m.target.Registers(bank.ID)
			for i, regValue := range bank.Values {
				if i >= len(names) {
					break
				}
				if matchesRegister(regValue, v) {
					tmp = append(tmp, names[i])
					matches = append(matches, RegisterMatch{Reg: names[i], Value: v})
				}
			}
		}
		if len(tmp) > 1 {
			inconsistencies = append(inconsistencies, tmp)
		}
	}
	return matches, inconsistencies
}

// FindRegistersPairs locates the halves of each wider-than-int-width
// sentinel in the register banks and determines the pair order from two
// adjacent positions: "[high, low]" when position i holds the high half and
// i+1 the low half, "[low, high]" when reversed.
func (m *Matcher) FindRegistersPairs(argv []HexValue, banks []DumpBank) ([]RegisterMatch, []Inconsistency, string) {
	var matches []RegisterMatch
	var inconsistencies []Inconsistency
	var order string

	intWidth := m.target.IntWidth()
	for _, v := range argv {
		if v.Width() <= intWidth {
			continue
		}
		high, low := v.Split()

		var tmp Inconsistency
		for _, bank := range banks {
			names := m.target.Registers(bank.ID)
			for i, regValue := range bank.Values {
				if i >= len(names) {
					break
				}
				if order == "" && i+1 < len(bank.Values) {
					switch {
					case regValue.Equal(high) && bank.Values[i+1].Equal(low):
						order = "[high, low]"
					case regValue.Equal(low) && bank.Values[i+1].Equal(high):
						order = "[low, high]"
					}
				}
				switch {
				case regValue.Equal(high):
					tmp = append(tmp, names[i])
					matches = append(matches, RegisterMatch{Reg: names[i], Value: high})
				case regValue.Equal(low):
					tmp = append(tmp, names[i])
					matches = append(matches, RegisterMatch{Reg: names[i], Value: low})
				}
			}
		}
		if len(tmp) > 2 {
			inconsistencies = append(inconsistencies, tmp)
		}
	}
	return matches, inconsistencies, order
}

// packChunks greedily packs consecutive narrower-than-int-width sentinels
// into int-width chunks, little-endian. A char followed by a short is
// zero-padded to two bytes first: compilers emit the char into a two-byte
// slot to satisfy the short's alignment.
func packChunks(argv []HexValue, intWidth int) []HexValue {
	var chunks []HexValue
	i := 0
	for i < len(argv) {
		if argv[i].Width() == intWidth {
			i++
			continue
		}
		var res []HexValue
		for i < len(argv) && combineHex(res).Width() < intWidth {
			res = append(res, argv[i])
			i++
			if i < len(argv) {
				if combineHex(res).Width()+argv[i].Width() <= intWidth {
					res = append(res, argv[i])
					i++
				} else {
					break
				}
			}
		}
		if len(res) == 2 && res[0].Width() == 1 && res[1].Width() == 2 {
			res[0] = res[0].ZeroExtend(2)
		}
		chunks = append(chunks, combineHex(res))
	}
	return chunks
}

// FindRegistersCombined locates packed chunks of narrow sentinels in the
// register banks (the struct ABI packs small sequential members into
// integer argument registers).
func (m *Matcher) FindRegistersCombined(argv []HexValue, banks []DumpBank) ([]RegisterMatch, []Inconsistency) {
	var matches []RegisterMatch
	var inconsistencies []Inconsistency

	for _, chunk := range packChunks(argv, m.target.IntWidth()) {
		var tmp Inconsistency
		for _, bank := range banks {
			names := m.target.Registers(bank.ID)
			for i, regValue := range bank.Values {
				if i >= len(names) {
					break
				}
				if regValue.Equal(chunk) {
					tmp = append(tmp, names[i])
					matches = append(matches, RegisterMatch{Reg: names[i], Value: chunk})
				}
			}
		}
		if len(tmp) > 1 {
			inconsistencies = append(inconsistencies, tmp)
		}
	}
	return matches, inconsistencies
}

// FindValueInStack locates the last (newest) sentinel whole in the stack
// window. A hit at an address while the same sentinel also sits in an
// already-claimed register is recorded as an inconsistency.
func (m *Matcher) FindValueInStack(claimed []RegisterMatch, argv []HexValue, stack []StackEntry) ([]uint64, []Inconsistency) {
	var addrs []uint64
	var inconsistencies []Inconsistency
	if len(argv) == 0 {
		return addrs, inconsistencies
	}

	v := argv[len(argv)-1]
	for _, entry := range stack {
		if matchesRegister(entry.Value, v) {
			for _, match := range claimed {
				if match.Value.Equal(v) {
					inconsistencies = append(inconsistencies, Inconsistency{match.Reg, "[stack]"})
				}
			}
			addrs = append(addrs, entry.Addr)
		}
	}
	return addrs, inconsistencies
}

// FindValuePairsInStack locates either half of the last sentinel in the
// stack window. Values no wider than the int width never pair-split.
func (m *Matcher) FindValuePairsInStack(claimed []RegisterMatch, argv []HexValue, stack []StackEntry) ([]uint64, []Inconsistency) {
	var addrs []uint64
	var inconsistencies []Inconsistency
	if len(argv) == 0 {
		return addrs, inconsistencies
	}

	v := argv[len(argv)-1]
	if v.Width() <= m.target.IntWidth() {
		return addrs, inconsistencies
	}
	high, low := v.Split()
	for _, entry := range stack {
		if entry.Value.Equal(high) || entry.Value.Equal(low) {
			for _, match := range claimed {
				if match.Value.Equal(entry.Value) {
					inconsistencies = append(inconsistencies, Inconsistency{match.Reg, "[stack]"})
				}
			}
			addrs = append(addrs, entry.Addr)
		}
	}
	return addrs, inconsistencies
}

// registerValues flattens the banks into a register-name → value map.
func (m *Matcher) registerValues(banks []DumpBank) map[string]HexValue {
	out := make(map[string]HexValue)
	for _, bank := range banks {
		names := m.target.Registers(bank.ID)
		for i, v := range bank.Values {
			if i >= len(names) {
				break
			}
			out[names[i]] = v
		}
	}
	return out
}

// refStackSearch is the shared pass-by-reference discriminator: the probe
// value was passed by reference iff it is found at a stack address held in
// the first argument register. Only the first argument register is
// consulted: compilers have been observed staging the value through other
// argument registers before the call.
func (m *Matcher) refStackSearch(stack []StackEntry, banks []DumpBank, found func(HexValue) bool) (string, bool) {
	argRegs := m.target.ArgumentRegisters()
	if len(argRegs) == 0 {
		return "", false
	}
	regValues := m.registerValues(banks)
	first, ok := regValues[argRegs[0]]
	if !ok {
		return "", false
	}
	for _, entry := range stack {
		if first.Uint64() == entry.Addr && found(entry.Value) {
			return argRegs[0], true
		}
	}
	return "", false
}

// FindRefInStackFill checks whether the first sentinel was passed by
// reference whole. Returns the argument register holding the reference.
func (m *Matcher) FindRefInStackFill(argv []HexValue, banks []DumpBank, stack []StackEntry) (string, bool) {
	if len(argv) == 0 {
		return "", false
	}
	return m.refStackSearch(stack, banks, func(v HexValue) bool {
		return v.Equal(argv[0])
	})
}

// FindRefInStackPairs checks whether either half of a wider-than-int-width
// sentinel was passed by reference.
func (m *Matcher) FindRefInStackPairs(argv []HexValue, banks []DumpBank, stack []StackEntry) (string, bool) {
	intWidth := m.target.IntWidth()
	for _, v := range argv {
		if v.Width() <= intWidth {
			continue
		}
		high, low := v.Split()
		if reg, ok := m.refStackSearch(stack, banks, func(sv HexValue) bool {
			return sv.Equal(high) || sv.Equal(low)
		}); ok {
			return reg, true
		}
	}
	return "", false
}

// FindRefInStackCombined checks whether a packed chunk of narrow sentinels
// was passed by reference.
func (m *Matcher) FindRefInStackCombined(argv []HexValue, banks []DumpBank, stack []StackEntry) (string, bool) {
	for _, chunk := range packChunks(argv, m.target.IntWidth()) {
		chunk := chunk
		if reg, ok := m.refStackSearch(stack, banks, func(sv HexValue) bool {
			return sv.Equal(chunk)
		}); ok {
			return reg, true
		}
	}
	return "", false
}

// formatInconsistencies renders the warning line for the summaries.
func formatInconsistencies(inconsistencies []Inconsistency) string {
	var parts []string
	for _, inc := range inconsistencies {
		var locs string
		for i, loc := range inc {
			if i > 0 {
				locs += ", "
			}
			locs += loc
		}
		parts = append(parts, fmt.Sprintf("(%s)", locs))
	}
	var joined string
	for i, p := range parts {
		if i > 0 {
			joined += ", "
		}
		joined += p
	}
	return fmt.Sprintf(" - WARNING: multiple value occurrences detected in %s", joined)
}
