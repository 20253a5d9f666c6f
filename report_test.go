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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportGenerate(t *testing.T) {
	dir := t.TempDir()

	first := filepath.Join(dir, "datatypes.sum")
	require.NoError(t, os.WriteFile(first, []byte("Datatype size test:\n - 4: int\n"), 0o644))
	second := filepath.Join(dir, "argpass.sum")
	require.NoError(t, os.WriteFile(second, []byte("Argument passing test:\n- int\n"), 0o644))

	report := NewReport(filepath.Join(dir, "gcc_qemu.report"))
	report.Append(first)
	report.Append(second)
	require.NoError(t, report.Generate())

	content, err := os.ReadFile(report.Path())
	require.NoError(t, err)
	// Summaries concatenated in insertion order, each with a trailing
	// blank line.
	assert.Equal(t, "Datatype size test:\n - 4: int\n\nArgument passing test:\n- int\n\n", string(content))

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestReportGenerateMissingSummary(t *testing.T) {
	report := NewReport(filepath.Join(t.TempDir(), "out.report"))
	report.Append("does-not-exist.sum")
	assert.Error(t, report.Generate())
}
