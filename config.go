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
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const wrapperRoot = "scripts/wrapper"

// ToolchainMeta is the optional per-wrapper metadata carried by
// scripts/wrapper/toolchains.yaml: a description surfaced by --help=cc /
// --help=sim and extra cflags handed to the build driver.
type ToolchainMeta struct {
	Description string   `yaml:"description"`
	CFlags      []string `yaml:"cflags"`
}

// ToolchainRegistry maps wrapper identifiers to their metadata, per tool.
type ToolchainRegistry struct {
	CC  map[string]ToolchainMeta `yaml:"cc"`
	Sim map[string]ToolchainMeta `yaml:"sim"`
}

// LoadToolchains reads scripts/wrapper/toolchains.yaml. A missing file is
// not an error: the registry is then empty and only directory discovery
// applies.
func LoadToolchains() (ToolchainRegistry, error) {
	var reg ToolchainRegistry
	content, err := os.ReadFile(filepath.Join(wrapperRoot, "toolchains.yaml"))
	if os.IsNotExist(err) {
		return reg, nil
	}
	if err != nil {
		return reg, fmt.Errorf("toolchains.yaml: %w", err)
	}
	if err := yaml.Unmarshal(content, &reg); err != nil {
		return reg, fmt.Errorf("toolchains.yaml: %w", err)
	}
	return reg, nil
}

// meta returns the registry entry for one wrapper, if any.
func (r ToolchainRegistry) meta(tool, id string) (ToolchainMeta, bool) {
	var m map[string]ToolchainMeta
	switch tool {
	case "cc":
		m = r.CC
	case "sim":
		m = r.Sim
	}
	meta, ok := m[id]
	return meta, ok
}

// AvailableConfigurations lists the wrapper directories for one tool
// ("cc" or "sim").
func AvailableConfigurations(tool string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(wrapperRoot, tool))
	if err != nil {
		return nil, fmt.Errorf("wrapper directory for %s: %w", tool, err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// ValidateConfiguration checks that the identifier names an existing
// wrapper directory.
func ValidateConfiguration(tool, id string) error {
	if id == "" {
		return fmt.Errorf("fatal: %s configuration not provided", tool)
	}
	configurations, err := AvailableConfigurations(tool)
	if err != nil {
		return fmt.Errorf("fatal: %w", err)
	}
	for _, c := range configurations {
		if c == id {
			return nil
		}
	}
	return fmt.Errorf("fatal: %s configuration %s not found", tool, id)
}

// DisplayConfigurations prints the wrapper identifiers for one tool, with
// toolchains.yaml descriptions when present.
func DisplayConfigurations(tool string, reg ToolchainRegistry) error {
	configurations, err := AvailableConfigurations(tool)
	if err != nil {
		return err
	}
	fmt.Printf("Available configurations for %s:\n", tool)
	for _, id := range configurations {
		if meta, ok := reg.meta(tool, id); ok && meta.Description != "" {
			fmt.Printf("- %s (%s)\n", id, meta.Description)
		} else {
			fmt.Printf("- %s\n", id)
		}
	}
	return nil
}

// SetWrapperPath prepends the selected cc and sim wrapper directories to
// PATH so the build driver finds cc-wrapper, as-wrapper, ld-wrapper and
// sim-wrapper without absolute paths.
func SetWrapperPath(cc, sim string) error {
	root, err := filepath.Abs(wrapperRoot)
	if err != nil {
		return err
	}
	path := filepath.Join(root, "cc", cc) + string(os.PathListSeparator) +
		filepath.Join(root, "sim", sim) + string(os.PathListSeparator) +
		os.Getenv("PATH")
	return os.Setenv("PATH", path)
}
