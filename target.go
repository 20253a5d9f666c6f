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

// Arch is the static register catalog for a target architecture. Bank ids
// match the "regs_bank<n>" labels the dump helper prints; the register names
// at a given index correspond positionally to the values parsed from the
// dump for that bank.
type Arch struct {
	Name      string
	BankOrder []string
	Banks     map[string][]string
}

// archs holds the registered architecture catalogs.
var archs = map[string]*Arch{}

// RegisterArch registers an architecture catalog.
func RegisterArch(a *Arch) {
	archs[a.Name] = a
}

// GetArch returns the catalog for the given architecture.
func GetArch(name string) (*Arch, error) {
	if a, ok := archs[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("unsupported architecture: %s", name)
}

func init() {
	RegisterArch(&Arch{
		Name:      "riscv",
		BankOrder: []string{"regs_bank0", "regs_bank1"},
		Banks: map[string][]string{
			"regs_bank0": {
				"zero", "ra", "sp", "gp", "tp",
				"t0", "t1", "t2", "s0", "s1",
				"a0", "a1", "a2", "a3", "a4",
				"a5", "a6", "a7", "s2", "s3",
				"s4", "s5", "s6", "s7", "s8",
				"s9", "s10", "s11", "t3", "t4",
				"t5", "t6",
			},
			"regs_bank1": {
				"ft0", "ft1", "ft2", "ft3", "ft4",
				"ft5", "ft6", "ft7", "fs0", "fs1",
				"fa0", "fa1", "fa2", "fa3", "fa4",
				"fa5", "fa6", "fa7", "fs2", "fs3",
				"fs4", "fs5", "fs6", "fs7", "fs8",
				"fs9", "fs10", "fs11", "ft8", "ft9",
				"ft10", "ft11",
			},
		},
	})
}

// TypeDetail records the discovered size, alignment and signedness of one
// fundamental type (or of its struct/union wrapper).
type TypeDetail struct {
	Size       int
	Align      int
	Signedness int
}

// Target accumulates the facts the analyzers discover, in dependency order:
// datatypes populates the type details, argpass the argument registers and
// per-bank register sizes, struct boundaries the bank count. Later analyzers
// read the facts through the getters and fail fast when one is missing.
type Target struct {
	arch *Arch

	typeDetails       map[string]TypeDetail
	argumentRegisters []string
	registerSizes     map[string]int
	registerBankCount int
}

// NewTarget returns a target model bound to an architecture catalog.
func NewTarget(arch *Arch) *Target {
	return &Target{
		arch:          arch,
		typeDetails:   make(map[string]TypeDetail),
		registerSizes: make(map[string]int),
	}
}

// Registers returns the register names of one bank, positionally aligned
// with the dump's values for that bank.
func (t *Target) Registers(bank string) []string {
	return t.arch.Banks[bank]
}

// BankOrder returns the declared bank ids, bank 0 first.
func (t *Target) BankOrder() []string {
	return t.arch.BankOrder
}

// AllRegisters returns every register name across all banks, in bank order.
func (t *Target) AllRegisters() []string {
	var out []string
	for _, bank := range t.arch.BankOrder {
		out = append(out, t.arch.Banks[bank]...)
	}
	return out
}

// SetTypeDetails installs the datatypes facts. Populated exactly once.
func (t *Target) SetTypeDetails(details map[string]TypeDetail) {
	t.typeDetails = details
}

// TypeDetail looks up one type's facts.
func (t *Target) TypeDetail(name string) (TypeDetail, bool) {
	d, ok := t.typeDetails[name]
	return d, ok
}

// HasTypeDetails reports whether the datatypes probe has run.
func (t *Target) HasTypeDetails() bool {
	return len(t.typeDetails) > 0
}

// TypeSize returns a type's size in bytes, or 0 when unknown.
func (t *Target) TypeSize(name string) int {
	return t.typeDetails[name].Size
}

// IntWidth is the reference width for the matchers: the discovered
// sizeof(int), falling back to 4 before the datatypes probe has run.
func (t *Target) IntWidth() int {
	if d, ok := t.typeDetails["int"]; ok && d.Size > 0 {
		return d.Size
	}
	return 4
}

// SetArgumentRegisters installs the argument-register sequence fact.
func (t *Target) SetArgumentRegisters(regs []string) {
	t.argumentRegisters = regs
}

// ArgumentRegisters returns the ordered integer argument registers as
// discovered by the argpass probe, or nil before it has run.
func (t *Target) ArgumentRegisters() []string {
	return t.argumentRegisters
}

// SetRegisterSize records one bank's register width in bytes.
func (t *Target) SetRegisterSize(bank string, size int) {
	t.registerSizes[bank] = size
}

// RegisterSize returns one bank's register width in bytes, or 0 when the
// bank has not been observed.
func (t *Target) RegisterSize(bank string) int {
	return t.registerSizes[bank]
}

// SetRegisterBankCount records how many banks the dumps declare.
func (t *Target) SetRegisterBankCount(n int) {
	t.registerBankCount = n
}

// RegisterBankCount returns the number of banks in use (1 = integer only,
// 2 = integer + floating point), or 0 when not yet observed.
func (t *Target) RegisterBankCount() int {
	return t.registerBankCount
}
